package tools

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/generect/generect-mcp/pkg/upstream"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Kinds reported by the tool layer in addition to upstream.Kind values.
const (
	KindInvalidArguments = "invalid_arguments"
	KindInternal         = "internal"
)

// ErrorPayload is the JSON body of a failed tool call.
type ErrorPayload struct {
	Error   string `json:"error"`
	Kind    string `json:"kind"`
	Status  int    `json:"status,omitempty"`
	Preview string `json:"preview,omitempty"`
}

var errInvalidArguments = errors.New("invalid arguments")

func invalidArguments(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errInvalidArguments, fmt.Sprintf(format, args...))
}

// payloadFor classifies err into the structured shape returned to callers.
func payloadFor(err error) ErrorPayload {
	if ue, ok := upstream.AsError(err); ok {
		return ErrorPayload{
			Error:   ue.Error(),
			Kind:    string(ue.Kind),
			Status:  ue.Status,
			Preview: ue.Preview,
		}
	}
	if errors.Is(err, errInvalidArguments) {
		return ErrorPayload{Error: err.Error(), Kind: KindInvalidArguments}
	}
	return ErrorPayload{Error: err.Error(), Kind: KindInternal}
}

func errorResult(err error) *mcp.CallToolResult {
	res := textResult(payloadFor(err))
	res.IsError = true
	return res
}

// textResult renders v as indented JSON text content.
func textResult(v any) *mcp.CallToolResult {
	text, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		text = []byte(fmt.Sprintf(`{"error":%q,"kind":%q}`, err.Error(), KindInternal))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(text)}},
	}
}

// structuredResult is textResult plus the same value as structured content.
func structuredResult(v any) *mcp.CallToolResult {
	res := textResult(v)
	res.StructuredContent = v
	return res
}
