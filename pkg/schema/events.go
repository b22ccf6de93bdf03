package schema

// Event type constants recorded on an execution's history.
const (
	EventExecutionStarted = "execution_started"
	EventExecutionPaused  = "execution_paused"
	EventExecutionResumed = "execution_resumed"
	EventExecutionEnded   = "execution_ended"
	EventExecutionFailed  = "execution_failed"

	EventStateEntered     = "state_entered"
	EventStateExited      = "state_exited"
	EventActionExecuted   = "action_executed"
	EventDecisionResolved = "decision_resolved"
	EventTransition       = "transition"
	EventViewRendered     = "view_rendered"

	EventSubflowStarted = "subflow_started"
	EventSubflowEnded   = "subflow_ended"
	EventMappingSkipped = "mapping_skipped"
)

// ExecutionStatus represents the lifecycle state of a flow execution.
type ExecutionStatus string

const (
	ExecutionStatusPending ExecutionStatus = "pending"
	ExecutionStatusActive  ExecutionStatus = "active"
	ExecutionStatusPaused  ExecutionStatus = "paused"
	ExecutionStatusEnded   ExecutionStatus = "ended"
	ExecutionStatusFailed  ExecutionStatus = "failed"
)

// ValidExecutionTransitions lists the allowed status changes of an execution.
var ValidExecutionTransitions = map[ExecutionStatus][]ExecutionStatus{
	ExecutionStatusPending: {ExecutionStatusActive, ExecutionStatusFailed},
	ExecutionStatusActive:  {ExecutionStatusPaused, ExecutionStatusEnded, ExecutionStatusFailed},
	ExecutionStatusPaused:  {ExecutionStatusActive, ExecutionStatusFailed},
}

// IsTerminal reports whether no further transition is possible from s.
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionStatusEnded || s == ExecutionStatusFailed
}
