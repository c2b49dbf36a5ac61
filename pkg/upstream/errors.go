package upstream

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed upstream call.
type Kind string

const (
	KindStatus                Kind = "upstream_status"
	KindEmptyBody             Kind = "upstream_empty_body"
	KindParse                 Kind = "upstream_parse"
	KindTimeout               Kind = "timeout"
	KindCanceled              Kind = "canceled"
	KindTransport             Kind = "transport"
	KindAuthenticationMissing Kind = "authentication_missing"
)

// ErrAuthenticationMissing is returned before any request is built when the
// call carries no usable credential.
var ErrAuthenticationMissing = errors.New("upstream: missing API credential")

// Error is a classified upstream failure.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	// Preview holds the leading bytes of an unparseable body.
	Preview string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return fmt.Sprintf("upstream %s: %v", e.Kind, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// AsError extracts a classified error from err.
func AsError(err error) (*Error, bool) {
	var ue *Error
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}

var statusMessages = map[int]string{
	http.StatusTooManyRequests:     "rate limit exceeded, retry later",
	http.StatusPaymentRequired:     "insufficient credits on the Generect account",
	http.StatusUnauthorized:        "invalid API key",
	http.StatusForbidden:           "access forbidden for this API key",
	http.StatusInternalServerError: "Generect API server error",
	http.StatusServiceUnavailable:  "Generect API temporarily unavailable",
}

// StatusMessage maps an HTTP status to the human-readable reason reported to
// tool callers.
func StatusMessage(status int) string {
	if msg, ok := statusMessages[status]; ok {
		return msg
	}
	return fmt.Sprintf("upstream request failed with status %d", status)
}

const previewLimit = 200

func preview(body []byte) string {
	if len(body) > previewLimit {
		return string(body[:previewLimit])
	}
	return string(body)
}
