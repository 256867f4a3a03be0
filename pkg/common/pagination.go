package common

import (
	"net/http"
	"strconv"
)

// CursorParams represents cursor pagination parameters for message
// history: everything after a sequence number, up to a limit.
type CursorParams struct {
	After uint64 `json:"after"`
	Limit int    `json:"limit"`
}

// DefaultCursorParams returns default cursor parameters
func DefaultCursorParams() CursorParams {
	return CursorParams{After: 0, Limit: 50}
}

// ExtractCursorParams extracts cursor parameters from request
func ExtractCursorParams(r *http.Request) CursorParams {
	params := DefaultCursorParams()

	if after := r.URL.Query().Get("after"); after != "" {
		if a, err := strconv.ParseUint(after, 10, 64); err == nil {
			params.After = a
		}
	}

	if limit := r.URL.Query().Get("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil && l > 0 {
			if l > 100 {
				l = 100
			}
			params.Limit = l
		}
	}

	return params
}
