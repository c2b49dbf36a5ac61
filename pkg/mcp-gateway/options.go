package mcpgateway

import (
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Options configure a Gateway instance.
type Options struct {
	// Implementation identifies the MCP server implementation reported to
	// clients on initialize.
	Implementation *mcp.Implementation
	// Addr controls the listen address used by ListenAndServe. Defaults to ":3000".
	Addr string
	// Path mounts the Streamable handler under a specific HTTP path.
	// Defaults to "/mcp".
	Path string
	// Streamable tweaks the Streamable HTTP handler behavior passed to
	// mcp.NewStreamableHTTPHandler. Stateless mode is always disabled since
	// every session carries its own credential.
	Streamable mcp.StreamableHTTPOptions
	// Logger receives structured diagnostics.
	Logger *slog.Logger
	// Debug logs every inbound request with its session and the number of
	// live sessions.
	Debug bool
	// DefaultCredential is used for initializations that carry no
	// Authorization header. Empty disables the fallback.
	DefaultCredential string
	// SessionIdleTimeout evicts sessions that received nothing for this long.
	// Zero keeps sessions until their transport closes.
	SessionIdleTimeout time.Duration
	// SweepInterval is the period of the idle sweep. Defaults to a quarter of
	// SessionIdleTimeout, at least one second.
	SweepInterval time.Duration
	// ShutdownTimeout bounds graceful shutdown in ListenAndServe.
	// Defaults to 10s.
	ShutdownTimeout time.Duration
	// MaxBodyBytes caps POST bodies. Defaults to 4 MiB.
	MaxBodyBytes int64
	// AllowedOrigins lists CORS origins. Defaults to any origin.
	AllowedOrigins []string
}

// DefaultImplementation is the server identity reported when Options leave
// Implementation unset.
func DefaultImplementation() *mcp.Implementation {
	return &mcp.Implementation{
		Name:    "generect-api",
		Title:   "Generect API",
		Version: "1.0.0",
	}
}

func (o *Options) withDefaults() Options {
	if o == nil {
		o = &Options{}
	}
	opts := *o
	if opts.Implementation == nil {
		opts.Implementation = DefaultImplementation()
	} else {
		impl := *opts.Implementation
		opts.Implementation = &impl
	}
	if opts.Addr == "" {
		opts.Addr = ":3000"
	}
	if opts.Path == "" {
		opts.Path = "/mcp"
	}
	opts.Streamable.Stateless = false
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.SessionIdleTimeout > 0 && opts.SweepInterval <= 0 {
		opts.SweepInterval = opts.SessionIdleTimeout / 4
		if opts.SweepInterval < time.Second {
			opts.SweepInterval = time.Second
		}
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 4 << 20
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	} else {
		opts.AllowedOrigins = append([]string(nil), opts.AllowedOrigins...)
	}
	return opts
}
