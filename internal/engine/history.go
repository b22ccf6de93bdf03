package engine

import (
	"context"
	"sync"
	"time"
)

// Record is one entry of an execution's history.
type Record struct {
	Sequence    int64          `json:"sequence"`
	ExecutionID string         `json:"execution_id"`
	FlowID      string         `json:"flow_id,omitempty"`
	StateID     string         `json:"state_id,omitempty"`
	Type        string         `json:"type"`
	Payload     map[string]any `json:"payload,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

// Recorder receives execution history records.
type Recorder interface {
	Record(ctx context.Context, rec *Record) error
}

// NopRecorder discards records.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, *Record) error { return nil }

// History is an in-memory Recorder keyed by execution ID.
type History struct {
	mu      sync.RWMutex
	seq     int64
	records map[string][]*Record
}

// NewHistory creates an empty History.
func NewHistory() *History {
	return &History{records: make(map[string][]*Record)}
}

// Record appends rec, assigning its sequence and timestamp.
func (h *History) Record(_ context.Context, rec *Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	rec.Sequence = h.seq
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	h.records[rec.ExecutionID] = append(h.records[rec.ExecutionID], rec)
	return nil
}

// Records returns the history of an execution in order.
func (h *History) Records(executionID string) []*Record {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]*Record(nil), h.records[executionID]...)
}

// Types returns the record types of an execution in order.
func (h *History) Types(executionID string) []string {
	recs := h.Records(executionID)
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Type
	}
	return out
}
