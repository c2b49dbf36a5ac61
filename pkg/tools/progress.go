package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type progressSink interface {
	NotifyProgress(context.Context, *mcp.ProgressNotificationParams) error
}

// progress reports per-upstream-call steps of one tool invocation when the
// caller asked for it through _meta.progressToken.
type progress struct {
	sink   progressSink
	token  any
	total  float64
	done   float64
	logger *slog.Logger
}

func newProgress(req *mcp.CallToolRequest, total int, logger *slog.Logger) *progress {
	p := &progress{total: float64(total), logger: logger}
	if req == nil || req.Session == nil || req.Params == nil {
		return p
	}
	token, ok := normalizeProgressToken(req.Params.GetProgressToken())
	if !ok {
		return p
	}
	p.sink = req.Session
	p.token = token
	return p
}

// grow raises the expected step count once a tool learns it needs more calls.
func (p *progress) grow(extra int) {
	p.total += float64(extra)
}

func (p *progress) step(ctx context.Context, message string) {
	p.done++
	if p.sink == nil {
		return
	}
	params := &mcp.ProgressNotificationParams{
		ProgressToken: p.token,
		Message:       message,
		Progress:      p.done,
		Total:         p.total,
	}
	if err := p.sink.NotifyProgress(ctx, params); err != nil && p.logger != nil {
		p.logger.Warn("progress notification failed", "token", p.token, "error", err)
	}
}

func normalizeProgressToken(token any) (any, bool) {
	switch v := token.(type) {
	case nil:
		return nil, false
	case string:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, false
		}
		if math.Trunc(v) == v {
			return int64(v), true
		}
		return v, true
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, true
		}
		if f, err := v.Float64(); err == nil {
			return normalizeProgressToken(f)
		}
		return v.String(), true
	default:
		return fmt.Sprintf("%v", v), true
	}
}
