// Package tools binds the Generect tool contracts to upstream calls and
// shapes their results for MCP clients.
package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/generect/generect-mcp/pkg/credential"
	"github.com/generect/generect-mcp/pkg/shaper"
	"github.com/generect/generect-mcp/pkg/upstream"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Tool names.
const (
	ToolGetLeadByURL    = "get_lead_by_url"
	ToolSearchLeads     = "search_leads"
	ToolSearchCompanies = "search_companies"
	ToolGenerateEmail   = "generate_email"
	ToolHealth          = "health"
)

// DefaultHealthURL is the public profile probed by health when no url is given.
const DefaultHealthURL = "https://www.linkedin.com/in/satyanadella/"

// fallbackLeadLimit is the page size of the leads query behind a derived
// company list.
const fallbackLeadLimit = 100

// CredentialFunc yields the credential bound to the calling session. The
// boolean is false when the session has none.
type CredentialFunc func(ctx context.Context) (string, bool)

// StaticCredential binds every call to raw, normalized once.
func StaticCredential(raw string) CredentialFunc {
	value, ok := credential.Normalize(raw)
	return func(context.Context) (string, bool) { return value, ok }
}

// Options configure a Dispatcher.
type Options struct {
	// DefaultTimeout bounds upstream calls that carry no timeout_ms. Zero
	// defers to the upstream client's default.
	DefaultTimeout time.Duration
	Logger         *slog.Logger
	// Debug logs tool arguments.
	Debug bool
}

func (o *Options) withDefaults() Options {
	if o == nil {
		o = &Options{}
	}
	opts := *o
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return opts
}

// Dispatcher turns tool calls into upstream requests. One Dispatcher is shared
// by every session; the per-session part is the CredentialFunc given to
// Register.
type Dispatcher struct {
	client *upstream.Client
	opts   Options
}

// NewDispatcher builds a Dispatcher over client.
func NewDispatcher(client *upstream.Client, opts *Options) *Dispatcher {
	return &Dispatcher{client: client, opts: opts.withDefaults()}
}

// Register adds the Generect tool set to server, resolving credentials with
// creds on every call.
func (d *Dispatcher) Register(server *mcp.Server, creds CredentialFunc) {
	if creds == nil {
		creds = func(context.Context) (string, bool) { return "", false }
	}
	b := &binding{d: d, creds: creds}

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolGetLeadByURL,
		Description: "Get a lead by LinkedIn profile URL",
	}, guard(b, ToolGetLeadByURL, b.getLeadByURL))
	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolSearchLeads,
		Description: "Search for leads by ICP filters",
	}, guard(b, ToolSearchLeads, b.searchLeads))
	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolSearchCompanies,
		Description: "Search for companies by ICP filters, deriving them from matching leads when none are found",
	}, guard(b, ToolSearchCompanies, b.searchCompanies))
	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolGenerateEmail,
		Description: "Generate an email address from first name, last name and company domain",
	}, guard(b, ToolGenerateEmail, b.generateEmail))
	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolHealth,
		Description: "Check Generect API reachability with a quick lead-by-link request",
	}, guard(b, ToolHealth, b.health))
}

type binding struct {
	d     *Dispatcher
	creds CredentialFunc
}

// guard is the tool boundary: every failure, panics included, leaves it as an
// error-shaped result rather than a protocol error.
func guard[In any](b *binding, name string, fn func(context.Context, *mcp.CallToolRequest, In) (*mcp.CallToolResult, error)) mcp.ToolHandlerFor[In, any] {
	logger := b.d.opts.Logger
	return func(ctx context.Context, req *mcp.CallToolRequest, in In) (res *mcp.CallToolResult, out any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("tool panicked", "tool", name, "panic", r)
				res, out, err = errorResult(fmt.Errorf("tool %s: %v", name, r)), nil, nil
			}
		}()
		if b.d.opts.Debug {
			logger.Info("tool call", "tool", name, "args", in)
		}
		res, err = fn(ctx, req, in)
		if err != nil {
			logger.Warn("tool failed", "tool", name, "error", err)
			return errorResult(err), nil, nil
		}
		return res, nil, nil
	}
}

func (b *binding) credential(ctx context.Context) string {
	value, _ := b.creds(ctx)
	return value
}

func (b *binding) timeout(ms *int) time.Duration {
	if t := timeoutOf(ms); t > 0 {
		return t
	}
	return b.d.opts.DefaultTimeout
}

func (b *binding) call(ctx context.Context, endpoint string, body any, ms *int) (*upstream.Response, error) {
	return b.d.client.Call(ctx, endpoint, b.credential(ctx), body, b.timeout(ms))
}

func (b *binding) getLeadByURL(ctx context.Context, req *mcp.CallToolRequest, in GetLeadByURLInput) (*mcp.CallToolResult, error) {
	query := in.query()
	if query.URL == "" {
		return nil, invalidArguments("url must not be blank")
	}
	resp, err := b.call(ctx, upstream.EndpointLeadByLink, query, in.TimeoutMS)
	if err != nil {
		return nil, err
	}
	return textResult(resp.Data), nil
}

type leadsSummary struct {
	Amount any   `json:"amount"`
	Leads  []any `json:"leads"`
}

func (b *binding) searchLeads(ctx context.Context, req *mcp.CallToolRequest, in SearchLeadsInput) (*mcp.CallToolResult, error) {
	resp, err := b.call(ctx, upstream.EndpointLeadsByICP, in.query(), in.TimeoutMS)
	if err != nil {
		return nil, err
	}
	if !enabled(in.Compact) {
		return textResult(resp.Data), nil
	}
	leads := shaper.Items(resp.Data, "leads", "results", "items")
	trimmed := shaper.Compact(leads, shaper.Cap(in.MaxItems, in.Limit), shaper.LeadItem)
	return structuredResult(leadsSummary{
		Amount: shaper.Amount(resp.Data, len(leads)),
		Leads:  trimmed,
	}), nil
}

type companiesSummary struct {
	Amount    any   `json:"amount"`
	Companies []any `json:"companies"`
}

func (b *binding) searchCompanies(ctx context.Context, req *mcp.CallToolRequest, in SearchCompaniesInput) (*mcp.CallToolResult, error) {
	prog := newProgress(req, 1, b.d.opts.Logger)
	resp, err := b.call(ctx, upstream.EndpointCompanies, in.query(), in.TimeoutMS)
	if err != nil {
		return nil, err
	}
	prog.step(ctx, "companies fetched")

	data := resp.Data
	keywords := in.keywords()
	if len(shaper.Items(data, "companies")) == 0 && len(keywords) > 0 && enabled(in.FallbackFromLeads) {
		prog.grow(1)
		if derived, ok := b.deriveCompanies(ctx, keywords, in.TimeoutMS); ok {
			data = derived
		}
		prog.step(ctx, "companies derived from leads")
	}

	if !enabled(in.Compact) {
		return textResult(data), nil
	}
	companies := shaper.Items(data, "companies", "results", "items")
	trimmed := shaper.Compact(companies, shaper.Cap(in.MaxItems), shaper.CompanyItem)
	return structuredResult(companiesSummary{
		Amount:    shaper.Amount(data, len(companies)),
		Companies: trimmed,
	}), nil
}

// deriveCompanies runs the leads query behind the company fallback. Its
// failures are logged and dropped so the primary result stands.
func (b *binding) deriveCompanies(ctx context.Context, keywords []string, ms *int) (map[string]any, bool) {
	limit := fallbackLeadLimit
	resp, err := b.call(ctx, upstream.EndpointLeadsByICP, leadsQuery{Keywords: keywords, Limit: &limit}, ms)
	if err != nil {
		b.d.opts.Logger.Warn("company fallback from leads failed", "keywords", keywords, "error", err)
		return nil, false
	}
	derived := shaper.DeriveCompanies(shaper.Items(resp.Data, "leads", "results"))
	companies := make([]any, len(derived))
	for i, c := range derived {
		companies[i] = c
	}
	return map[string]any{"amount": len(derived), "companies": companies}, true
}

func (b *binding) generateEmail(ctx context.Context, req *mcp.CallToolRequest, in GenerateEmailInput) (*mcp.CallToolResult, error) {
	candidate := emailCandidate{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Domain:    strings.TrimSpace(in.Domain),
	}
	if candidate.FirstName == "" || candidate.LastName == "" || candidate.Domain == "" {
		return nil, invalidArguments("first_name, last_name and domain must not be blank")
	}
	resp, err := b.call(ctx, upstream.EndpointEmailFinder, []emailCandidate{candidate}, in.TimeoutMS)
	if err != nil {
		return nil, err
	}
	return textResult(resp.Data), nil
}

// HealthReport is the result of the health tool.
type HealthReport struct {
	OK     bool   `json:"ok"`
	Status int    `json:"status,omitempty"`
	MS     int64  `json:"ms"`
	Sample any    `json:"sample"`
	Error  string `json:"error,omitempty"`
}

func (b *binding) health(ctx context.Context, req *mcp.CallToolRequest, in HealthInput) (*mcp.CallToolResult, error) {
	started := time.Now()
	target := strings.TrimSpace(in.URL)
	if target == "" {
		target = DefaultHealthURL
	}
	resp, err := b.call(ctx, upstream.EndpointLeadByLink, map[string]string{"url": target}, in.TimeoutMS)
	report := HealthReport{MS: time.Since(started).Milliseconds()}
	if err != nil {
		report.Error = err.Error()
		if ue, ok := upstream.AsError(err); ok {
			report.Status = ue.Status
		}
		return textResult(report), nil
	}
	report.Status = resp.Status
	if url := sampleURL(resp.Data); url != "" {
		report.OK = true
		report.Sample = url
	}
	return textResult(report), nil
}

func sampleURL(data any) string {
	obj, ok := data.(map[string]any)
	if !ok {
		return ""
	}
	lead, ok := obj["lead"].(map[string]any)
	if !ok {
		return ""
	}
	url, _ := lead["linkedin_url"].(string)
	return url
}
