package gateway

import (
	"encoding/json"
	"time"
)

// Envelope types sent on a run stream.
const (
	TypeDay     = "day"
	TypeSummary = "summary"
	TypeError   = "error"
)

// Envelope is one websocket text message. Data holds a model.DayResult for
// "day", a model.Summary for "summary" and is empty for "error".
type Envelope struct {
	Type  string          `json:"type"`
	RunID string          `json:"run_id,omitempty"`
	Seq   int             `json:"seq"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
	TS    string          `json:"ts"`
}

func newEnvelope(typ, runID string, seq int, v any) ([]byte, error) {
	env := Envelope{Type: typ, RunID: runID, Seq: seq, TS: time.Now().UTC().Format(time.RFC3339Nano)}
	if v != nil {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		env.Data = data
	}
	return json.Marshal(env)
}

func errorEnvelope(runID string, cause error) ([]byte, error) {
	return json.Marshal(Envelope{
		Type:  TypeError,
		RunID: runID,
		Error: cause.Error(),
		TS:    time.Now().UTC().Format(time.RFC3339Nano),
	})
}
