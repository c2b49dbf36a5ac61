// Package upstream issues authenticated JSON calls against the Generect API
// and classifies every way such a call can fail.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/generect/generect-mcp/pkg/credential"
)

// DefaultBaseURL is the public Generect API host.
const DefaultBaseURL = "https://api.generect.com"

// Endpoint paths used by the tool layer.
const (
	EndpointLeadByLink  = "/api/linkedin/leads/by_link/"
	EndpointLeadsByICP  = "/api/linkedin/leads/by_icp/"
	EndpointCompanies   = "/api/linkedin/companies/by_icp/"
	EndpointEmailFinder = "/api/linkedin/email_finder/"
)

const (
	defaultCallTimeout  = 120 * time.Second
	defaultMaxBodyBytes = 16 << 20
	defaultUserAgent    = "generect-mcp/1.0"
	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	contentTypeJSON     = "application/json"
)

// Options configure a Client.
type Options struct {
	// HTTPClient is the base client. Defaults to http.DefaultClient.
	HTTPClient *http.Client
	// DefaultTimeout applies when a call passes no deadline. Defaults to 120s.
	DefaultTimeout time.Duration
	// UserAgent is sent on every request.
	UserAgent string
	// Headers are added to every request unless already set.
	Headers http.Header
	// MaxBodyBytes bounds how much of a response body is read.
	MaxBodyBytes int64
	Logger       *slog.Logger
}

func (o *Options) withDefaults() Options {
	if o == nil {
		o = &Options{}
	}
	opts := *o
	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = defaultCallTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return opts
}

// Client calls the Generect API.
type Client struct {
	baseURL string
	http    *http.Client
	opts    Options
}

// Response is a successfully parsed upstream payload.
type Response struct {
	Status int
	Data   any
	Raw    []byte
}

// New builds a Client rooted at baseURL.
func New(baseURL string, opts *Options) *Client {
	options := opts.withDefaults()
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	headers := cloneHeader(options.Headers)
	if headers == nil {
		headers = http.Header{}
	}
	headers.Set("User-Agent", options.UserAgent)
	headers.Set("Accept", contentTypeJSON)
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    decorateHTTPClient(options.HTTPClient, headers),
		opts:    options,
	}
}

// BaseURL reports the API root the client targets.
func (c *Client) BaseURL() string { return c.baseURL }

// DefaultTimeout reports the deadline applied when a call passes none.
func (c *Client) DefaultTimeout() time.Duration { return c.opts.DefaultTimeout }

// Call POSTs body as JSON to endpoint using credential and waits at most
// deadline for the full response. A non-positive deadline uses the client
// default. Failures are always returned as *Error.
func (c *Client) Call(ctx context.Context, endpoint, cred string, body any, deadline time.Duration) (*Response, error) {
	authz, ok := credential.Normalize(cred)
	if !ok {
		return nil, &Error{Kind: KindAuthenticationMissing, Message: ErrAuthenticationMissing.Error(), Err: ErrAuthenticationMissing}
	}
	if deadline <= 0 {
		deadline = c.opts.DefaultTimeout
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Message: fmt.Sprintf("encode request: %v", err), Err: err}
	}

	callCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, &Error{Kind: KindTransport, Message: fmt.Sprintf("build request: %v", err), Err: err}
	}
	req.Header.Set(headerAuthorization, authz)
	req.Header.Set(headerContentType, contentTypeJSON)

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.classify(ctx, callCtx, deadline, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.opts.MaxBodyBytes))
	if err != nil {
		return nil, c.classify(ctx, callCtx, deadline, err)
	}
	c.opts.Logger.Debug("upstream call", "endpoint", endpoint, "status", resp.StatusCode, "bytes", len(raw), "elapsed", time.Since(started))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{
			Kind:    KindStatus,
			Status:  resp.StatusCode,
			Message: StatusMessage(resp.StatusCode),
			Preview: preview(raw),
		}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, &Error{Kind: KindEmptyBody, Status: resp.StatusCode, Message: "upstream returned an empty body"}
	}
	data, err := decode(raw)
	if err != nil {
		return nil, &Error{
			Kind:    KindParse,
			Status:  resp.StatusCode,
			Message: "upstream returned a malformed JSON body",
			Preview: preview(raw),
			Err:     err,
		}
	}
	return &Response{Status: resp.StatusCode, Data: data, Raw: raw}, nil
}

func (c *Client) classify(parent, callCtx context.Context, deadline time.Duration, err error) error {
	switch {
	case parent.Err() != nil && errors.Is(parent.Err(), context.Canceled):
		return &Error{Kind: KindCanceled, Message: "upstream request canceled", Err: err}
	case errors.Is(callCtx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindTimeout, Message: fmt.Sprintf("upstream request timed out after %s", deadline), Err: err}
	default:
		return &Error{Kind: KindTransport, Message: fmt.Sprintf("upstream request failed: %v", err), Err: err}
	}
}

func decode(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var data any
	if err := dec.Decode(&data); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON value")
	}
	return data, nil
}
