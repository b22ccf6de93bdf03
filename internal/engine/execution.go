package engine

import (
	"sync"
	"time"

	"github.com/rendis/authflow/internal/expressions"
	"github.com/rendis/authflow/internal/flow"
	"github.com/rendis/authflow/pkg/schema"
)

// Execution is one run of a flow. Subflow invocations push frames; the
// innermost frame is the one executing.
type Execution struct {
	ID        string                 `json:"id"`
	FlowID    string                 `json:"flow_id"`
	Status    schema.ExecutionStatus `json:"status"`
	View      *flow.View             `json:"view,omitempty"`
	Output    map[string]any         `json:"output,omitempty"`
	EndState  string                 `json:"end_state,omitempty"`
	Error     *schema.FlowError      `json:"error,omitempty"`
	Steps     int                    `json:"steps"`
	StartedAt time.Time              `json:"started_at"`
	EndedAt   *time.Time             `json:"ended_at,omitempty"`

	mu     sync.Mutex
	frames []*frame
}

// frame is the activation of one flow inside an execution.
type frame struct {
	flow    *flow.Flow
	state   string
	scope   *expressions.Scope
	request map[string]any
}

func (x *Execution) top() *frame {
	if len(x.frames) == 0 {
		return nil
	}
	return x.frames[len(x.frames)-1]
}

func (x *Execution) push(fr *frame) { x.frames = append(x.frames, fr) }

func (x *Execution) pop() *frame {
	fr := x.top()
	if fr != nil {
		x.frames = x.frames[:len(x.frames)-1]
	}
	return fr
}

// CurrentState returns the flow and state the execution is positioned on.
func (x *Execution) CurrentState() (flowID, stateID string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if fr := x.top(); fr != nil {
		return fr.flow.ID, fr.state
	}
	return "", ""
}

// Depth returns the number of active flows: 1 at top level, +1 per subflow.
func (x *Execution) Depth() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.frames)
}

// Variables returns a copy of the innermost flow scope.
func (x *Execution) Variables() map[string]any {
	x.mu.Lock()
	defer x.mu.Unlock()
	if fr := x.top(); fr != nil {
		return fr.scope.Snapshot()
	}
	return map[string]any{}
}
