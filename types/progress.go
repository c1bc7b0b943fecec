package types

import "strings"

// ErrorMarker prefixes the message of a terminal event for a failed paint.
const ErrorMarker = "Error:"

// ProgressEvent reports paint progress to a client.
// Progress and Total count commits, not cells.
type ProgressEvent struct {
	Message  string `json:"message" msgpack:"message"`
	Progress int    `json:"progress" msgpack:"progress"`
	Total    int    `json:"total" msgpack:"total"`
	Done     bool   `json:"done,omitempty" msgpack:"done,omitempty"`
}

// IsError reports whether this is a terminal failure event.
func (e ProgressEvent) IsError() bool {
	return e.Done && strings.HasPrefix(e.Message, ErrorMarker)
}
