package probe

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	mcpgateway "github.com/generect/generect-mcp/pkg/mcp-gateway"
	"github.com/generect/generect-mcp/pkg/mcpclient"
	"github.com/generect/generect-mcp/pkg/tools"
	"github.com/generect/generect-mcp/pkg/upstream"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cannedReplies = map[string]string{
	upstream.EndpointLeadByLink:  `{"lead":{"linkedin_url":"https://www.linkedin.com/in/satyanadella/","full_name":"Satya Nadella"}}`,
	upstream.EndpointCompanies:   `{"amount":2,"companies":[{"name":"Microsoft"},{"name":"GitHub"}]}`,
	upstream.EndpointLeadsByICP:  `{"amount":1,"leads":[{"linkedin_url":"https://www.linkedin.com/in/someone/"}]}`,
	upstream.EndpointEmailFinder: `[{"email":"satya.nadella@microsoft.com","valid":true}]`,
}

type fakeAPI struct {
	mu     sync.Mutex
	status int
	paths  []string
}

func newFakeAPI(t *testing.T, status int) (*fakeAPI, *httptest.Server) {
	t.Helper()
	api := &fakeAPI{status: status}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		api.paths = append(api.paths, r.URL.Path)
		api.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		if api.status != http.StatusOK {
			w.WriteHeader(api.status)
			_, _ = io.WriteString(w, `{"detail":"Invalid token."}`)
			return
		}
		body, ok := cannedReplies[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return api, srv
}

func (f *fakeAPI) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paths...)
}

func newGatewayServer(t *testing.T, opts *mcpgateway.Options) *httptest.Server {
	t.Helper()
	_, api := newFakeAPI(t, http.StatusOK)
	client := upstream.New(api.URL, &upstream.Options{HTTPClient: api.Client()})
	gateway, err := mcpgateway.NewGateway(tools.NewDispatcher(client, nil), opts)
	require.NoError(t, err)
	t.Cleanup(gateway.Close)
	srv := httptest.NewServer(gateway.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestUpstreamAllChecksPass(t *testing.T) {
	api, srv := newFakeAPI(t, http.StatusOK)
	client := upstream.New(srv.URL, &upstream.Options{HTTPClient: srv.Client()})

	report := Upstream(context.Background(), client, "key-1")

	require.True(t, report.OK(), "%+v", report.Checks)
	require.Len(t, report.Checks, 3)
	assert.Equal(t, "by_link", report.Checks[0].Name)
	assert.Equal(t, "url=https://www.linkedin.com/in/satyanadella/", report.Checks[0].Detail)
	assert.Equal(t, "companies_by_icp_keywords", report.Checks[1].Name)
	assert.Equal(t, "amount=2 count=2", report.Checks[1].Detail)
	assert.Equal(t, "leads_by_icp", report.Checks[2].Name)
	assert.Equal(t, "count=1 sample=https://www.linkedin.com/in/someone/", report.Checks[2].Detail)
	for _, c := range report.Checks {
		assert.Equal(t, http.StatusOK, c.Status)
	}
	assert.ElementsMatch(t, []string{
		upstream.EndpointLeadByLink,
		upstream.EndpointCompanies,
		upstream.EndpointLeadsByICP,
	}, api.seen())
}

func TestUpstreamReportsRejectedKey(t *testing.T) {
	_, srv := newFakeAPI(t, http.StatusUnauthorized)
	client := upstream.New(srv.URL, &upstream.Options{HTTPClient: srv.Client()})

	report := Upstream(context.Background(), client, "bad-key")

	assert.False(t, report.OK())
	assert.Equal(t, 3, report.Failed())
	for _, c := range report.Checks {
		assert.Equal(t, http.StatusUnauthorized, c.Status, c.Name)
		assert.Error(t, c.Err, c.Name)
	}
}

func TestAuthAgainstGateway(t *testing.T) {
	srv := newGatewayServer(t, nil)

	report := Auth(context.Background(), srv.Client(), srv.URL+"/mcp", "key-1")

	require.True(t, report.OK(), "%+v", report.Checks)
	require.Len(t, report.Checks, 3)
	assert.Equal(t, http.StatusOK, report.Checks[0].Status)
	assert.True(t, strings.HasPrefix(report.Checks[0].Detail, "session="))
	assert.Equal(t, http.StatusUnauthorized, report.Checks[1].Status)
	assert.Equal(t, "tools=5", report.Checks[2].Detail)
}

func TestAuthFlagsAnonymousAccess(t *testing.T) {
	srv := newGatewayServer(t, &mcpgateway.Options{DefaultCredential: "demo-key"})

	report := Auth(context.Background(), srv.Client(), srv.URL+"/mcp", "key-1")

	assert.False(t, report.OK())
	anonymous := report.Checks[1]
	assert.False(t, anonymous.OK)
	assert.Equal(t, http.StatusOK, anonymous.Status)
	assert.Contains(t, anonymous.Detail, "default key")
}

func TestAuthWithoutKey(t *testing.T) {
	srv := newGatewayServer(t, nil)

	report := Auth(context.Background(), srv.Client(), srv.URL+"/mcp", "  ")

	assert.False(t, report.OK())
	assert.Error(t, report.Checks[0].Err)
	assert.True(t, report.Checks[1].OK)
	assert.Error(t, report.Checks[2].Err)
}

func TestSmokeInProcess(t *testing.T) {
	api, srv := newFakeAPI(t, http.StatusOK)
	client := upstream.New(srv.URL, &upstream.Options{HTTPClient: srv.Client()})
	server := mcp.NewServer(&mcp.Implementation{Name: "generect-api", Version: "1.0.0"}, nil)
	tools.NewDispatcher(client, nil).Register(server, tools.StaticCredential("key-1"))

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ss, err := server.Connect(context.Background(), serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })
	session, err := mcpclient.Connect(context.Background(), clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	report := Smoke(context.Background(), session, "in-process")

	require.True(t, report.OK(), "%+v", report.Checks)
	require.Len(t, report.Checks, 1+len(SmokeCalls))
	assert.Equal(t, "generate_email,get_lead_by_url,health,search_companies,search_leads", report.Checks[0].Detail)
	assert.Contains(t, report.Checks[2].Detail, "satya.nadella@microsoft.com")
	assert.Len(t, api.seen(), len(SmokeCalls))
}

func TestSmokeReportsToolErrors(t *testing.T) {
	_, srv := newFakeAPI(t, http.StatusUnauthorized)
	client := upstream.New(srv.URL, &upstream.Options{HTTPClient: srv.Client()})
	server := mcp.NewServer(&mcp.Implementation{Name: "generect-api", Version: "1.0.0"}, nil)
	tools.NewDispatcher(client, nil).Register(server, tools.StaticCredential("bad-key"))

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ss, err := server.Connect(context.Background(), serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })
	session, err := mcpclient.Connect(context.Background(), clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	report := Smoke(context.Background(), session, "in-process")

	assert.True(t, report.Checks[0].OK, "tool listing does not touch the API")
	assert.Equal(t, len(SmokeCalls), report.Failed())
}

func TestRender(t *testing.T) {
	report := Report{
		Title:  "Generect API probe",
		Target: "http://localhost:9999",
		Checks: []Check{
			{Name: "by_link", OK: true, Status: 200, Detail: "url=https://www.linkedin.com/in/satyanadella/"},
			{Name: "leads_by_icp", Status: 502, Err: io.ErrUnexpectedEOF},
		},
	}

	var quiet bytes.Buffer
	Render(&quiet, report, false)
	out := quiet.String()
	assert.Contains(t, out, "Generect API probe")
	assert.Contains(t, out, "http://localhost:9999")
	assert.Contains(t, out, "by_link")
	assert.NotContains(t, out, "satyanadella", "passing details are verbose only")
	assert.Contains(t, out, "Status: 502")
	assert.Contains(t, out, "unexpected EOF")
	assert.Contains(t, out, "1 of 2 checks failed")

	var verbose bytes.Buffer
	Render(&verbose, report, true)
	assert.Contains(t, verbose.String(), "satyanadella")
	assert.Contains(t, verbose.String(), "Took:")
}
