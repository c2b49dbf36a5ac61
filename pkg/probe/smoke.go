package probe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/generect/generect-mcp/pkg/tools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const detailLimit = 160

// SmokeCall is one tool invocation made by Smoke.
type SmokeCall struct {
	Tool      string
	Arguments map[string]any
}

// SmokeCalls are the sample invocations Smoke runs, in order.
var SmokeCalls = []SmokeCall{
	{Tool: tools.ToolGetLeadByURL, Arguments: map[string]any{"url": tools.DefaultHealthURL}},
	{Tool: tools.ToolGenerateEmail, Arguments: map[string]any{"first_name": "Satya", "last_name": "Nadella", "domain": "microsoft.com"}},
	{Tool: tools.ToolSearchCompanies, Arguments: map[string]any{
		"industries": []string{"Software Development"},
		"headcounts": []string{"10001+"},
		"keywords":   []string{SampleKeyword, "Windows", "Azure"},
	}},
	{Tool: tools.ToolSearchLeads, Arguments: map[string]any{"company_link": SampleCompanyLink, "limit": 1}},
}

// Smoke lists the tools of session and runs SmokeCalls through it. A call
// passes when the tool answers without an error result.
func Smoke(ctx context.Context, session *mcp.ClientSession, target string) Report {
	report := Report{Title: "MCP smoke test", Target: target}

	report.Checks = append(report.Checks, timed("list_tools", func(c *Check) {
		names, err := toolNames(ctx, session)
		if err != nil {
			c.Err = err
			return
		}
		missing := missingTools(names)
		c.OK = len(missing) == 0
		c.Detail = strings.Join(names, ",")
		if len(missing) > 0 {
			c.Detail += fmt.Sprintf(" missing=%v", missing)
		}
	}))

	for _, call := range SmokeCalls {
		report.Checks = append(report.Checks, timed(call.Tool, func(c *Check) {
			res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: call.Tool, Arguments: call.Arguments})
			if err != nil {
				c.Err = err
				return
			}
			c.OK = !res.IsError
			c.Detail = truncate(firstText(res), detailLimit)
		}))
	}
	return report
}

func firstText(res *mcp.CallToolResult) string {
	for _, content := range res.Content {
		if text, ok := content.(*mcp.TextContent); ok {
			return text.Text
		}
	}
	return ""
}

func truncate(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}

// Elapsed sums the durations of all checks.
func (r Report) Elapsed() time.Duration {
	var total time.Duration
	for _, c := range r.Checks {
		total += c.Duration
	}
	return total
}
