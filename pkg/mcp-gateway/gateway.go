package mcpgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/generect/generect-mcp/pkg/credential"
	"github.com/generect/generect-mcp/pkg/tools"
	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/cors"
)

const (
	sessionIDHeader       = "Mcp-Session-Id"
	protocolVersionHeader = "Mcp-Protocol-Version"
	methodInitialize      = "initialize"
)

// JSON-RPC error codes written by the gateway before a message reaches a
// session.
const (
	CodeNoSession              = -32000
	CodeAuthenticationRequired = -32001
)

// Gateway routes Streamable MCP traffic from many clients onto per-session
// servers, each bound to the Generect credential its client presented.
type Gateway struct {
	dispatcher *tools.Dispatcher
	opts       Options
	resolver   credential.Resolver
	sessions   *SessionRegistry

	streamHandler *mcp.StreamableHTTPHandler
	mux           *http.ServeMux
	httpHandler   http.Handler

	httpServerMu sync.Mutex
	httpServer   *http.Server

	closeOnce sync.Once
	stopSweep chan struct{}
	sweepDone chan struct{}
}

// NewGateway builds a Gateway serving the tools of dispatcher and starts the
// idle sweep when configured.
func NewGateway(dispatcher *tools.Dispatcher, opts *Options) (*Gateway, error) {
	if dispatcher == nil {
		return nil, fmt.Errorf("mcpgateway: dispatcher is required")
	}
	options := opts.withDefaults()
	g := &Gateway{
		dispatcher: dispatcher,
		opts:       options,
		resolver:   credential.Resolver{Default: options.DefaultCredential},
		sessions:   NewSessionRegistry(nil),
		stopSweep:  make(chan struct{}),
		sweepDone:  make(chan struct{}),
	}
	g.streamHandler = mcp.NewStreamableHTTPHandler(serverFromRequest, &options.Streamable)
	g.mux = g.mountHandler()
	g.httpHandler = cors.New(cors.Options{
		AllowedOrigins: options.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "Accept", sessionIDHeader, protocolVersionHeader, "Last-Event-ID"},
		ExposedHeaders: []string{sessionIDHeader},
	}).Handler(g.mux)

	if options.SessionIdleTimeout > 0 {
		go g.sweepLoop()
	} else {
		close(g.sweepDone)
	}
	return g, nil
}

// Handler exposes the HTTP handler that serves the Streamable endpoint and
// the liveness probe.
func (g *Gateway) Handler() http.Handler {
	return g.httpHandler
}

// ServeMux exposes the router behind Handler so callers can mount extra
// routes. They share the gateway's CORS policy.
func (g *Gateway) ServeMux() *http.ServeMux {
	return g.mux
}

// Sessions exposes the live session table.
func (g *Gateway) Sessions() *SessionRegistry {
	return g.sessions
}

// ListenAndServe runs an HTTP server until the provided context is cancelled or
// the server stops. Sessions are closed on return.
func (g *Gateway) ListenAndServe(ctx context.Context) error {
	g.httpServerMu.Lock()
	if g.httpServer != nil {
		serv := g.httpServer
		g.httpServerMu.Unlock()
		return fmt.Errorf("mcpgateway: server already running on %s", serv.Addr)
	}
	srv := &http.Server{
		Addr:              g.opts.Addr,
		Handler:           g.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.httpServer = srv
	g.httpServerMu.Unlock()
	defer func() {
		g.httpServerMu.Lock()
		if g.httpServer == srv {
			g.httpServer = nil
		}
		g.httpServerMu.Unlock()
		g.Close()
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), g.opts.ShutdownTimeout)
		defer cancel()
		// Streams stay open until their sessions close.
		g.sessions.CloseAll()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Shutdown stops the embedded HTTP server if it is running.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.httpServerMu.Lock()
	srv := g.httpServer
	g.httpServer = nil
	g.httpServerMu.Unlock()
	if srv == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	g.sessions.CloseAll()
	return srv.Shutdown(ctx)
}

// Close stops the idle sweep and closes every session. It is safe to call more
// than once.
func (g *Gateway) Close() {
	g.closeOnce.Do(func() {
		close(g.stopSweep)
		<-g.sweepDone
		g.sessions.CloseAll()
	})
}

func (g *Gateway) mountHandler() *http.ServeMux {
	path := g.opts.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	endpoint := http.HandlerFunc(g.serveMCP)
	mux := http.NewServeMux()
	mux.Handle(path, endpoint)
	if !strings.HasSuffix(path, "/") {
		mux.Handle(path+"/", endpoint)
	}
	mux.HandleFunc("/health", g.serveHealth)
	return mux
}

func (g *Gateway) serveHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"transport": "streamable-http",
	})
}

func (g *Gateway) serveMCP(w http.ResponseWriter, r *http.Request) {
	if g.opts.Debug {
		g.opts.Logger.Info("mcp request",
			"method", r.Method,
			"session", r.Header.Get(sessionIDHeader),
			"sessions", g.sessions.Len(),
		)
	}
	switch r.Method {
	case http.MethodPost:
		g.handlePost(w, r)
	case http.MethodGet:
		g.handleStream(w, r)
	case http.MethodDelete:
		g.handleDelete(w, r)
	default:
		w.Header().Set("Allow", "GET, POST, DELETE")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (g *Gateway) handlePost(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, g.opts.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	id := r.Header.Get(sessionIDHeader)
	if sess, ok := g.liveSession(id); ok {
		current := sess.Credential()
		if resolved, ok := g.resolver.Resolve(r.Header.Get("Authorization"), current); ok &&
			resolved.Source == credential.SourceHeader && resolved.Value != current {
			g.sessions.UpdateCredential(sess.ID, resolved.Value)
			g.opts.Logger.Debug("session credential refreshed", "session", sess.ID, "credential", credential.Redact(resolved.Value))
		}
		g.sessions.Touch(sess.ID)
		g.streamHandler.ServeHTTP(w, withBody(r, body))
		return
	}

	body, ok := initializeMessage(body)
	if !ok {
		g.opts.Logger.Debug("message rejected", "error", ErrSessionNotFound, "session", id)
		writeRPCError(w, http.StatusBadRequest, CodeNoSession, "Bad Request: No session")
		return
	}
	resolved, ok := g.resolver.Resolve(r.Header.Get("Authorization"), "")
	if !ok {
		g.opts.Logger.Warn("initialize rejected", "error", ErrAuthenticationMissing, "remote", r.RemoteAddr)
		writeRPCError(w, http.StatusUnauthorized, CodeAuthenticationRequired,
			"Authentication required: send a Generect API key in the Authorization header")
		return
	}
	sess, err := g.sessions.Create(resolved.Value, g.bindServer)
	if err != nil {
		g.logError("create session", err)
		writeRPCError(w, http.StatusInternalServerError, jsonrpcInternalError, "failed to create session")
		return
	}
	g.opts.Logger.Info("session created",
		"session", sess.ID,
		"credential", credential.Redact(resolved.Value),
		"source", resolved.Source,
		"sessions", g.sessions.Len(),
	)

	r = withBody(r, body)
	r.Header.Del(sessionIDHeader)
	r = r.WithContext(context.WithValue(r.Context(), serverContextKey{}, sess.Server()))
	g.streamHandler.ServeHTTP(w, r)

	if !sess.connected() {
		g.sessions.Evict(sess.ID)
		g.opts.Logger.Debug("session dropped after failed initialize", "session", sess.ID)
	}
}

func (g *Gateway) handleStream(w http.ResponseWriter, r *http.Request) {
	sess, ok := g.liveSession(r.Header.Get(sessionIDHeader))
	if !ok {
		g.opts.Logger.Debug("stream rejected", "error", ErrSessionNotFound, "session", r.Header.Get(sessionIDHeader))
		http.Error(w, "Invalid or missing session ID", http.StatusBadRequest)
		return
	}
	g.sessions.Touch(sess.ID)
	release := g.sessions.HoldStream(sess.ID)
	defer release()
	g.streamHandler.ServeHTTP(w, r)
}

func (g *Gateway) handleDelete(w http.ResponseWriter, r *http.Request) {
	sess, ok := g.liveSession(r.Header.Get(sessionIDHeader))
	if !ok {
		http.Error(w, "Invalid or missing session ID", http.StatusBadRequest)
		return
	}
	g.streamHandler.ServeHTTP(w, r)
	g.sessions.Evict(sess.ID)
	g.opts.Logger.Info("session closed", "session", sess.ID, "sessions", g.sessions.Len())
}

// liveSession looks id up and drops sessions whose transport has gone away.
func (g *Gateway) liveSession(id string) (*Session, bool) {
	sess, ok := g.sessions.Lookup(id)
	if !ok {
		return nil, false
	}
	if !sess.connected() {
		g.sessions.Evict(id)
		return nil, false
	}
	return sess, true
}

// bindServer builds the per-session server. Its tools read the session's
// credential on every call, so refreshes apply to the next call.
func (g *Gateway) bindServer(sess *Session) *mcp.Server {
	id := sess.ID
	server := mcp.NewServer(g.opts.Implementation, &mcp.ServerOptions{
		GetSessionID: func() string { return id },
	})
	g.dispatcher.Register(server, func(context.Context) (string, bool) {
		value := sess.Credential()
		return value, value != ""
	})
	return server
}

func (g *Gateway) sweepLoop() {
	defer close(g.sweepDone)
	ticker := time.NewTicker(g.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-g.stopSweep:
			return
		case <-ticker.C:
			if evicted := g.sessions.SweepIdle(g.opts.SessionIdleTimeout); len(evicted) > 0 {
				g.opts.Logger.Info("idle sessions evicted", "count", len(evicted), "sessions", g.sessions.Len())
			}
		}
	}
}

func (g *Gateway) logError(msg string, err error, args ...any) {
	if err == nil {
		return
	}
	attrs := append([]any{"error", err}, args...)
	g.opts.Logger.Error(msg, attrs...)
}

type serverContextKey struct{}

func serverFromRequest(r *http.Request) *mcp.Server {
	server, _ := r.Context().Value(serverContextKey{}).(*mcp.Server)
	return server
}

// initializeMessage reports whether body is a single initialize request. The
// method matches case-insensitively and params, when present, must be an
// object. A differently cased method is rewritten so the session accepts it.
func initializeMessage(body []byte) ([]byte, bool) {
	msg, err := jsonrpc.DecodeMessage(body)
	if err != nil {
		return nil, false
	}
	req, ok := msg.(*jsonrpc.Request)
	if !ok || !req.IsCall() || !strings.EqualFold(req.Method, methodInitialize) {
		return nil, false
	}
	params := bytes.TrimSpace(req.Params)
	if len(params) > 0 && !bytes.Equal(params, []byte("null")) && params[0] != '{' {
		return nil, false
	}
	if req.Method == methodInitialize {
		return body, true
	}
	req.Method = methodInitialize
	rewritten, err := jsonrpc.EncodeMessage(req)
	if err != nil {
		return nil, false
	}
	return rewritten, true
}

func withBody(r *http.Request, body []byte) *http.Request {
	r.Body = io.NopCloser(bytes.NewReader(body))
	r.ContentLength = int64(len(body))
	return r
}

const jsonrpcInternalError = -32603

type rpcErrorBody struct {
	JSONRPC string   `json:"jsonrpc"`
	Error   rpcError `json:"error"`
	ID      any      `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeRPCError(w http.ResponseWriter, status, code int, message string) {
	writeJSON(w, status, rpcErrorBody{
		JSONRPC: "2.0",
		Error:   rpcError{Code: code, Message: message},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
