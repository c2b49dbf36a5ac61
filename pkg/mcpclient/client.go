package mcpclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// AuthProvider supplies the Authorization header value for outbound HTTP
// requests, for example "Bearer Token <key>".
type AuthProvider func(context.Context) (string, error)

// StaticAuth always sends value. An empty value sends nothing.
func StaticAuth(value string) AuthProvider {
	return func(context.Context) (string, error) { return value, nil }
}

// Options configure Dial.
type Options struct {
	// Endpoint is the Streamable HTTP URL of the server, e.g.
	// "http://localhost:3000/mcp".
	Endpoint string
	// Auth supplies the Authorization header. Requests that already carry one
	// keep it.
	Auth AuthProvider
	// Headers are added to every request.
	Headers http.Header
	// HTTPClient is the base client. Defaults to http.DefaultClient.
	HTTPClient *http.Client
	// MaxRetries bounds reconnection attempts of the Streamable transport.
	MaxRetries int
	// ClientName and ClientVersion identify this client. Default to
	// "generect-mcp-client" and "1.0.0".
	ClientName    string
	ClientVersion string
	// ClientOptions are passed to mcp.NewClient.
	ClientOptions *mcp.ClientOptions
	// RPCLogger, when set, observes every JSON-RPC message.
	RPCLogger RPCLogger
}

func (o *Options) normalized() Options {
	if o == nil {
		o = &Options{}
	}
	opts := *o
	if opts.ClientName == "" {
		opts.ClientName = "generect-mcp-client"
	}
	if opts.ClientVersion == "" {
		opts.ClientVersion = "1.0.0"
	}
	return opts
}

// Dial connects to the Streamable HTTP server at opts.Endpoint. ctx bounds the
// lifetime of the whole session, not only the handshake.
func Dial(ctx context.Context, opts *Options) (*mcp.ClientSession, error) {
	options := opts.normalized()
	if options.Endpoint == "" {
		return nil, fmt.Errorf("mcpclient: endpoint is required")
	}
	transport := &mcp.StreamableClientTransport{
		Endpoint:   options.Endpoint,
		HTTPClient: decorateHTTPClient(options.HTTPClient, options.Headers, options.Auth),
		MaxRetries: options.MaxRetries,
	}
	return Connect(ctx, transport, &options)
}

// Connect runs the initialize handshake over transport. Only the client
// identity, ClientOptions and RPCLogger fields of opts apply.
func Connect(ctx context.Context, transport mcp.Transport, opts *Options) (*mcp.ClientSession, error) {
	options := opts.normalized()
	impl := &mcp.Implementation{Name: options.ClientName, Version: options.ClientVersion}
	client := mcp.NewClient(impl, options.ClientOptions)
	session, err := client.Connect(ctx, LoggingTransport(options.Endpoint, transport, options.RPCLogger), nil)
	if err != nil {
		return nil, fmt.Errorf("mcpclient: connect %s: %w", options.Endpoint, err)
	}
	return session, nil
}

func decorateHTTPClient(base *http.Client, headers http.Header, provider AuthProvider) *http.Client {
	if base == nil {
		base = http.DefaultClient
	}
	clone := *base
	clone.Transport = &headerDecorator{
		next:         defaultRoundTripper(base.Transport),
		headers:      cloneHeader(headers),
		authProvider: provider,
	}
	return &clone
}

func cloneHeader(h http.Header) http.Header {
	if h == nil {
		return nil
	}
	clone := make(http.Header, len(h))
	for k, values := range h {
		clone[k] = append([]string(nil), values...)
	}
	return clone
}

type headerDecorator struct {
	next         http.RoundTripper
	headers      http.Header
	authProvider AuthProvider
}

func (d *headerDecorator) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	for k, values := range d.headers {
		req.Header.Del(k)
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	if d.authProvider != nil && req.Header.Get("Authorization") == "" {
		token, err := d.authProvider(req.Context())
		if err != nil {
			return nil, err
		}
		if token != "" {
			req.Header.Set("Authorization", token)
		}
	}
	return d.next.RoundTrip(req)
}

func defaultRoundTripper(next http.RoundTripper) http.RoundTripper {
	if next != nil {
		return next
	}
	return http.DefaultTransport
}
