package mcpgateway

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const initializeParams = `{"protocolVersion":"2025-06-18","capabilities":{},"clientInfo":{"name":"raw","version":"1.0.0"}}`

func postMessage(t *testing.T, srv *httptest.Server, body string, header http.Header) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/mcp", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	for k, vs := range header {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func postInitialize(t *testing.T, srv *httptest.Server, auth, method string) *http.Response {
	t.Helper()
	if method == "" {
		method = "initialize"
	}
	header := http.Header{}
	if auth != "" {
		header.Set("Authorization", auth)
	}
	body := `{"jsonrpc":"2.0","id":1,"method":"` + method + `","params":` + initializeParams + `}`
	return postMessage(t, srv, body, header)
}

type rpcErrorReply struct {
	JSONRPC string `json:"jsonrpc"`
	Error   struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	ID any `json:"id"`
}

func decodeRPCError(t *testing.T, resp *http.Response) rpcErrorReply {
	t.Helper()
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var reply rpcErrorReply
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reply))
	return reply
}

func TestGatewayInitializeWithoutCredentialIsUnauthorized(t *testing.T) {
	gateway, api, srv := newTestGateway(t, nil)

	for _, auth := range []string{"", "Bearer", "Token   "} {
		resp := postInitialize(t, srv, auth, "")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode, "auth %q", auth)
		assert.Empty(t, resp.Header.Get(sessionIDHeader))
		reply := decodeRPCError(t, resp)
		assert.Equal(t, "2.0", reply.JSONRPC)
		assert.Equal(t, CodeAuthenticationRequired, reply.Error.Code)
		assert.Contains(t, reply.Error.Message, "Authentication required")
	}
	assert.Equal(t, 0, gateway.Sessions().Len())
	assert.Empty(t, api.calls())
}

func TestGatewayRejectsMessagesWithoutSession(t *testing.T) {
	gateway, api, srv := newTestGateway(t, nil)
	call := `{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"health","arguments":{}}}`

	cases := map[string]http.Header{
		"no session":      {"Authorization": {"key-1"}},
		"unknown session": {"Authorization": {"key-1"}, sessionIDHeader: {"does-not-exist"}},
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			resp := postMessage(t, srv, call, header)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			reply := decodeRPCError(t, resp)
			assert.Equal(t, CodeNoSession, reply.Error.Code)
			assert.Equal(t, "Bad Request: No session", reply.Error.Message)
			assert.Nil(t, reply.ID)
		})
	}
	assert.Equal(t, 0, gateway.Sessions().Len())
	assert.Empty(t, api.calls())
}

func TestGatewayInitializeMatchesMethodCaseInsensitively(t *testing.T) {
	gateway, _, srv := newTestGateway(t, &Options{Streamable: mcp.StreamableHTTPOptions{JSONResponse: true}})

	resp := postInitialize(t, srv, "Token key-1", "Initialize")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	ids := gateway.Sessions().IDs()
	require.Len(t, ids, 1)
	assert.Equal(t, ids[0], resp.Header.Get(sessionIDHeader))

	var reply struct {
		Result struct {
			ServerInfo struct {
				Name string `json:"name"`
			} `json:"serverInfo"`
		} `json:"result"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reply))
	assert.Equal(t, "generect-api", reply.Result.ServerInfo.Name)
}

func TestGatewayInitializeRequiresObjectParams(t *testing.T) {
	gateway, _, srv := newTestGateway(t, nil)
	header := http.Header{"Authorization": {"key-1"}}

	for _, params := range []string{`[]`, `"x"`, `42`} {
		body := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":` + params + `}`
		resp := postMessage(t, srv, body, header)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, "params %s", params)
		assert.Equal(t, CodeNoSession, decodeRPCError(t, resp).Error.Code)
	}
	assert.Equal(t, 0, gateway.Sessions().Len())
}

func TestGatewayInitializeWithStaleSessionStartsFresh(t *testing.T) {
	gateway, _, srv := newTestGateway(t, &Options{Streamable: mcp.StreamableHTTPOptions{JSONResponse: true}})
	header := http.Header{"Authorization": {"key-1"}, sessionIDHeader: {"stale"}}
	body := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":` + initializeParams + `}`

	resp := postMessage(t, srv, body, header)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	id := resp.Header.Get(sessionIDHeader)
	assert.NotEmpty(t, id)
	assert.NotEqual(t, "stale", id)
	assert.Equal(t, []string{id}, gateway.Sessions().IDs())
}

func TestGatewayDropsSessionWhenInitializeFails(t *testing.T) {
	gateway, _, srv := newTestGateway(t, nil)
	body := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":` + initializeParams + `}`

	resp := postMessage(t, srv, body, http.Header{
		"Authorization": {"key-1"},
		"Accept":        {"application/json"},
	})
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 0, gateway.Sessions().Len())
}

func TestGatewayStreamAndDeleteRequireKnownSession(t *testing.T) {
	_, _, srv := newTestGateway(t, nil)

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		for _, id := range []string{"", "unknown"} {
			req, err := http.NewRequest(method, srv.URL+"/mcp", nil)
			require.NoError(t, err)
			req.Header.Set("Accept", "text/event-stream")
			if id != "" {
				req.Header.Set(sessionIDHeader, id)
			}
			resp, err := srv.Client().Do(req)
			require.NoError(t, err)
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "%s with id %q", method, id)
			assert.Equal(t, "Invalid or missing session ID", strings.TrimSpace(string(body)))
		}
	}
}

func TestGatewayRejectsOtherMethods(t *testing.T) {
	_, _, srv := newTestGateway(t, nil)

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/mcp", strings.NewReader("{}"))
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, "GET, POST, DELETE", resp.Header.Get("Allow"))
}
