// Package probe runs operator diagnostics: reachability checks against the
// Generect API, authentication checks against a running gateway and smoke
// calls through the MCP tool set.
package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/generect/generect-mcp/pkg/shaper"
	"github.com/generect/generect-mcp/pkg/tools"
	"github.com/generect/generect-mcp/pkg/upstream"
	"golang.org/x/sync/errgroup"
)

// Check is the outcome of one probe step.
type Check struct {
	Name     string
	OK       bool
	Status   int
	Duration time.Duration
	// Detail summarizes what the step observed.
	Detail string
	Err    error
}

// Report collects the checks of one probe run against Target.
type Report struct {
	Title  string
	Target string
	Checks []Check
}

// OK reports whether every check passed.
func (r Report) OK() bool {
	for _, c := range r.Checks {
		if !c.OK {
			return false
		}
	}
	return len(r.Checks) > 0
}

// Failed counts the checks that did not pass.
func (r Report) Failed() int {
	n := 0
	for _, c := range r.Checks {
		if !c.OK {
			n++
		}
	}
	return n
}

// Sample inputs shared by the upstream and smoke probes.
const (
	SampleCompanyLink = "https://www.linkedin.com/company/microsoft/"
	SampleKeyword     = "Microsoft"
)

type upstreamStep struct {
	name     string
	endpoint string
	body     any
	timeout  time.Duration
	inspect  func(c *Check, data any)
}

var upstreamSteps = []upstreamStep{
	{
		name:     "by_link",
		endpoint: upstream.EndpointLeadByLink,
		body:     map[string]string{"url": tools.DefaultHealthURL},
		timeout:  90 * time.Second,
		inspect: func(c *Check, data any) {
			url := leadURL(data)
			c.OK = url != ""
			c.Detail = "url=" + orNull(url)
		},
	},
	{
		name:     "companies_by_icp_keywords",
		endpoint: upstream.EndpointCompanies,
		body:     map[string]any{"keywords": []string{SampleKeyword}, "max_items": 3},
		timeout:  120 * time.Second,
		inspect: func(c *Check, data any) {
			c.OK = true
			c.Detail = fmt.Sprintf("amount=%v count=%d",
				shaper.Amount(data, 0), len(shaper.Items(data, "companies")))
		},
	},
	{
		name:     "leads_by_icp",
		endpoint: upstream.EndpointLeadsByICP,
		body:     map[string]any{"company_link": SampleCompanyLink, "limit": 1},
		timeout:  120 * time.Second,
		inspect: func(c *Check, data any) {
			leads := shaper.Items(data, "leads")
			sample := ""
			if len(leads) > 0 {
				if lead, ok := leads[0].(map[string]any); ok {
					sample, _ = lead["linkedin_url"].(string)
				}
			}
			c.OK = true
			c.Detail = fmt.Sprintf("count=%d sample=%s", len(leads), orNull(sample))
		},
	},
}

// Upstream checks the Generect API with key. The steps run concurrently and
// independently; one failing never cancels another.
func Upstream(ctx context.Context, client *upstream.Client, key string) Report {
	report := Report{
		Title:  "Generect API probe",
		Target: client.BaseURL(),
		Checks: make([]Check, len(upstreamSteps)),
	}
	var g errgroup.Group
	for i, step := range upstreamSteps {
		g.Go(func() error {
			report.Checks[i] = runUpstreamStep(ctx, client, key, step)
			return nil
		})
	}
	_ = g.Wait()
	return report
}

func runUpstreamStep(ctx context.Context, client *upstream.Client, key string, step upstreamStep) Check {
	check := Check{Name: step.name}
	started := time.Now()
	resp, err := client.Call(ctx, step.endpoint, key, step.body, step.timeout)
	check.Duration = time.Since(started)
	if err != nil {
		check.Err = err
		if ue, ok := upstream.AsError(err); ok {
			check.Status = ue.Status
		}
		return check
	}
	check.Status = resp.Status
	step.inspect(&check, resp.Data)
	return check
}

func leadURL(data any) string {
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

func orNull(s string) string {
	if s == "" {
		return "null"
	}
	return s
}
