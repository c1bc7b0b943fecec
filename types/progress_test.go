package types //nolint:revive // types is a valid package name

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestProgressEvent_IsError(t *testing.T) {
	tests := []struct {
		event ProgressEvent
		want  bool
	}{
		{ProgressEvent{Message: "Error: boom", Done: true}, true},
		{ProgressEvent{Message: "Error: boom", Done: false}, false},
		{ProgressEvent{Message: "Cancelled by user", Done: true}, false},
		{ProgressEvent{Message: "Complete! Your graph has been painted.", Done: true}, false},
	}
	for _, tt := range tests {
		if got := tt.event.IsError(); got != tt.want {
			t.Errorf("IsError(%+v) = %v, want %v", tt.event, got, tt.want)
		}
	}
}

func TestProgressEvent_DoneOmittedWhenFalse(t *testing.T) {
	data, err := json.Marshal(ProgressEvent{Message: "Painted 2024-01-01 (1/1)", Progress: 1, Total: 1})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "done") {
		t.Errorf("non-terminal event should omit done: %s", data)
	}
}
