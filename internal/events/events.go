package events

import (
	"encoding/json"
	"time"
)

// Event types published over the run-progress stream.
const (
	TypeRunStarted       = "run_started"
	TypeRunCompleted     = "run_completed"
	TypeRunFailed        = "run_failed"
	TypePostingDelivered = "posting_delivered"
)

// Event is one run-progress notification. Data carries the type-specific
// payload pre-marshaled, so subscribers never re-encode it.
type Event struct {
	Type  string          `json:"type"`
	At    time.Time       `json:"at"`
	RunID string          `json:"run_id,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func Make(runID, typ string, data any) Event {
	var raw json.RawMessage
	if data != nil {
		b, _ := json.Marshal(data)
		raw = b
	}
	return Event{
		Type:  typ,
		At:    time.Now().UTC(),
		RunID: runID,
		Data:  raw,
	}
}

// JSON renders the event for the wire.
func (e Event) JSON() string {
	b, _ := json.Marshal(e)
	return string(b)
}
