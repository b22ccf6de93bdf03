package engine

import (
	"context"
	"sync"

	"github.com/rendis/authflow/pkg/schema"
)

// TransitionHook is called before or after a status transition.
type TransitionHook func(from, to string) error

type hookKey struct {
	from, to schema.ExecutionStatus
}

// ExecutionFSM manages execution lifecycle transitions:
// pending -> active -> (paused -> active)* -> ended | failed.
type ExecutionFSM struct {
	mu       sync.Mutex
	recorder Recorder
	before   map[hookKey][]TransitionHook
	after    map[hookKey][]TransitionHook
}

// NewExecutionFSM creates an FSM that records lifecycle events on recorder.
func NewExecutionFSM(recorder Recorder) *ExecutionFSM {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &ExecutionFSM{
		recorder: recorder,
		before:   make(map[hookKey][]TransitionHook),
		after:    make(map[hookKey][]TransitionHook),
	}
}

// OnBefore registers a hook called before a transition. A hook error aborts it.
func (f *ExecutionFSM) OnBefore(from, to schema.ExecutionStatus, hook TransitionHook) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := hookKey{from, to}
	f.before[key] = append(f.before[key], hook)
}

// OnAfter registers a hook called after a transition.
func (f *ExecutionFSM) OnAfter(from, to schema.ExecutionStatus, hook TransitionHook) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := hookKey{from, to}
	f.after[key] = append(f.after[key], hook)
}

// Transition validates from -> to, runs hooks and records the lifecycle
// event. The caller updates the execution's status.
func (f *ExecutionFSM) Transition(ctx context.Context, exec *Execution, from, to schema.ExecutionStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !isValidTransition(from, to) {
		return schema.NewErrorf(schema.ErrCodeInvalidTransition,
			"invalid execution transition: %s -> %s", from, to).
			WithDetails(map[string]any{"execution_id": exec.ID, "from": string(from), "to": string(to)})
	}

	key := hookKey{from, to}
	for _, hook := range f.before[key] {
		if err := hook(string(from), string(to)); err != nil {
			return err
		}
	}

	if eventType := lifecycleEventType(from, to); eventType != "" {
		rec := &Record{ExecutionID: exec.ID, FlowID: exec.FlowID, Type: eventType}
		if err := f.recorder.Record(ctx, rec); err != nil {
			return schema.NewErrorf(schema.ErrCodeStore, "record execution event: %s", err.Error()).WithCause(err)
		}
	}

	for _, hook := range f.after[key] {
		if err := hook(string(from), string(to)); err != nil {
			return err
		}
	}
	return nil
}

func isValidTransition(from, to schema.ExecutionStatus) bool {
	for _, a := range schema.ValidExecutionTransitions[from] {
		if a == to {
			return true
		}
	}
	return false
}

func lifecycleEventType(from, to schema.ExecutionStatus) string {
	switch to {
	case schema.ExecutionStatusActive:
		if from == schema.ExecutionStatusPaused {
			return schema.EventExecutionResumed
		}
		return schema.EventExecutionStarted
	case schema.ExecutionStatusPaused:
		return schema.EventExecutionPaused
	case schema.ExecutionStatusEnded:
		return schema.EventExecutionEnded
	case schema.ExecutionStatusFailed:
		return schema.EventExecutionFailed
	default:
		return ""
	}
}
