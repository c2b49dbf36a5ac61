package mcpgateway

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/generect/generect-mcp/pkg/tools"
	"github.com/generect/generect-mcp/pkg/upstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGatewayRequiresDispatcher(t *testing.T) {
	_, err := NewGateway(nil, nil)
	require.Error(t, err)
}

func TestGatewayOptionsDefaults(t *testing.T) {
	gateway, err := NewGateway(tools.NewDispatcher(upstream.New("", nil), nil), nil)
	require.NoError(t, err)
	t.Cleanup(gateway.Close)

	assert.Equal(t, ":3000", gateway.opts.Addr)
	assert.Equal(t, "/mcp", gateway.opts.Path)
	assert.Equal(t, "generect-api", gateway.opts.Implementation.Name)
	assert.Equal(t, []string{"*"}, gateway.opts.AllowedOrigins)
	assert.Zero(t, gateway.opts.SweepInterval, "no sweep without an idle timeout")
}

func TestGatewayHealth(t *testing.T) {
	_, _, srv := newTestGateway(t, nil)

	res, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, map[string]string{"status": "ok", "transport": "streamable-http"}, body)
}

// Verifies that consumers can add custom routes via ServeMux before serving.
func TestGatewayServeMux_AllowsCustomRoutes_BeforeServe(t *testing.T) {
	gateway, err := NewGateway(tools.NewDispatcher(upstream.New("", nil), nil), &Options{Path: "/mcp"})
	require.NoError(t, err)
	t.Cleanup(gateway.Close)

	gateway.ServeMux().HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	srv := httptest.NewServer(gateway.Handler())
	defer srv.Close()

	res, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	body, _ := io.ReadAll(res.Body)
	assert.Equal(t, "ok", string(body))
}

// Routes registered after the handler is mounted are reachable too.
func TestGatewayServeMux_AllowsCustomRoutes_AfterServe(t *testing.T) {
	gateway, _, srv := newTestGateway(t, nil)

	gateway.ServeMux().HandleFunc("/late", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ready"))
	})

	res, err := http.Get(srv.URL + "/late")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	body, _ := io.ReadAll(res.Body)
	assert.Equal(t, "ready", string(body))
}

func TestGatewayCORSExposesSessionHeader(t *testing.T) {
	_, _, srv := newTestGateway(t, nil)

	preflight := func(requestHeaders string) string {
		req, err := http.NewRequest(http.MethodOptions, srv.URL+"/mcp", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "https://app.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", requestHeaders)
		res, err := srv.Client().Do(req)
		require.NoError(t, err)
		res.Body.Close()
		return res.Header.Get("Access-Control-Allow-Origin")
	}
	// Browsers send the list lowercased and comma separated without spaces.
	assert.Equal(t, "*", preflight("authorization,mcp-session-id"))
	assert.Equal(t, "*", preflight("authorization,content-type,mcp-protocol-version,mcp-session-id"))
	assert.Equal(t, "*", preflight("content-type"))
	// rs/cors v1.11.0 does not accept whitespace after the commas.
	assert.Empty(t, preflight("authorization, mcp-session-id"))
	assert.Empty(t, preflight("x-unlisted"))

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://app.example.com")
	res, err := srv.Client().Do(req)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, "*", res.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, sessionIDHeader, res.Header.Get("Access-Control-Expose-Headers"))
}
