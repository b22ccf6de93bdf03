package diagram

import (
	"github.com/rendis/authflow/internal/engine"
	"github.com/rendis/authflow/pkg/schema"
)

// HistoryOverlay derives node statuses for flowID from an execution's
// history. States entered are visited; the state x is positioned on is
// current, or failed when the execution failed there. x may be nil.
func HistoryOverlay(flowID string, recs []*engine.Record, x *engine.Execution) map[string]*StatusOverlay {
	overlay := make(map[string]*StatusOverlay)
	for _, rec := range recs {
		if rec.FlowID != flowID || rec.Type != schema.EventStateEntered || rec.StateID == "" {
			continue
		}
		o, ok := overlay[rec.StateID]
		if !ok {
			o = &StatusOverlay{Status: StatusVisited}
			overlay[rec.StateID] = o
		}
		o.Visits++
	}

	if x == nil {
		return overlay
	}
	stateID := x.EndState
	if fid, sid := x.CurrentState(); fid == flowID && sid != "" {
		stateID = sid
	}
	if stateID == "" {
		return overlay
	}
	o, ok := overlay[stateID]
	if !ok {
		o = &StatusOverlay{}
		overlay[stateID] = o
	}
	switch x.Status {
	case schema.ExecutionStatusFailed:
		o.Status = StatusFailed
	case schema.ExecutionStatusEnded:
		o.Status = StatusVisited
	default:
		o.Status = StatusCurrent
	}
	return overlay
}
