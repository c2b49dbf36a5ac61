package probe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"slices"
	"time"

	"github.com/generect/generect-mcp/pkg/credential"
	"github.com/generect/generect-mcp/pkg/mcpclient"
	"github.com/generect/generect-mcp/pkg/tools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const initializeRequest = `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"generect-auth-check","version":"1.0.0"}}}`

// ExpectedTools lists the tools every session must expose.
var ExpectedTools = []string{
	tools.ToolGetLeadByURL,
	tools.ToolSearchLeads,
	tools.ToolSearchCompanies,
	tools.ToolGenerateEmail,
	tools.ToolHealth,
}

// Auth checks that the gateway at endpoint admits an initialize carrying key,
// lists the full tool set to such a session, and refuses an initialize that
// carries no credential. A nil httpClient means http.DefaultClient.
func Auth(ctx context.Context, httpClient *http.Client, endpoint, key string) Report {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	report := Report{Title: "Gateway authentication check", Target: endpoint}

	header := ""
	if normalized, ok := credential.Normalize(key); ok {
		header = "Bearer " + normalized
	}

	report.Checks = append(report.Checks, timed("initialize_with_key", func(c *Check) {
		if header == "" {
			c.Err = fmt.Errorf("no API key supplied")
			return
		}
		status, sessionID, err := postInitialize(ctx, httpClient, endpoint, header)
		c.Status = status
		if err != nil {
			c.Err = err
			return
		}
		c.OK = status == http.StatusOK && sessionID != ""
		c.Detail = "session=" + orNull(sessionID)
		if sessionID != "" {
			deleteSession(ctx, httpClient, endpoint, sessionID, header)
		}
	}))

	report.Checks = append(report.Checks, timed("initialize_without_key", func(c *Check) {
		status, sessionID, err := postInitialize(ctx, httpClient, endpoint, "")
		c.Status = status
		if err != nil {
			c.Err = err
			return
		}
		c.OK = status == http.StatusUnauthorized
		if sessionID != "" {
			c.Detail = "server accepted an anonymous session; is a default key configured?"
			deleteSession(ctx, httpClient, endpoint, sessionID, "")
		}
	}))

	report.Checks = append(report.Checks, timed("list_tools", func(c *Check) {
		if header == "" {
			c.Err = fmt.Errorf("no API key supplied")
			return
		}
		session, err := mcpclient.Dial(ctx, &mcpclient.Options{
			Endpoint:   endpoint,
			Auth:       mcpclient.StaticAuth(header),
			HTTPClient: httpClient,
			MaxRetries: 1,
			ClientName: "generect-auth-check",
		})
		if err != nil {
			c.Err = err
			return
		}
		defer session.Close()
		names, err := toolNames(ctx, session)
		if err != nil {
			c.Err = err
			return
		}
		missing := missingTools(names)
		c.OK = len(missing) == 0
		c.Detail = fmt.Sprintf("tools=%d", len(names))
		if len(missing) > 0 {
			c.Detail += fmt.Sprintf(" missing=%v", missing)
		}
	}))

	return report
}

func timed(name string, fn func(c *Check)) Check {
	check := Check{Name: name}
	started := time.Now()
	fn(&check)
	check.Duration = time.Since(started)
	return check
}

func postInitialize(ctx context.Context, client *http.Client, endpoint, auth string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBufferString(initializeRequest))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	return resp.StatusCode, resp.Header.Get("Mcp-Session-Id"), nil
}

func deleteSession(ctx context.Context, client *http.Client, endpoint, sessionID, auth string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return
	}
	req.Header.Set("Mcp-Session-Id", sessionID)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := client.Do(req)
	if err != nil {
		return
	}
	resp.Body.Close()
}

func toolNames(ctx context.Context, session *mcp.ClientSession) ([]string, error) {
	res, err := session.ListTools(ctx, nil)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	slices.Sort(names)
	return names, nil
}

func missingTools(names []string) []string {
	var missing []string
	for _, want := range ExpectedTools {
		if !slices.Contains(names, want) {
			missing = append(missing, want)
		}
	}
	return missing
}
