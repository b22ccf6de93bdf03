package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rendis/authflow/internal/expressions"
	"github.com/rendis/authflow/internal/flow"
	"github.com/rendis/authflow/internal/logging"
	"github.com/rendis/authflow/internal/metrics"
	"github.com/rendis/authflow/pkg/schema"
)

// DefaultMaxSteps bounds the number of states one Start or Signal may enter.
const DefaultMaxSteps = 1000

// Config holds configuration for the executor.
type Config struct {
	MaxSteps int              // states entered per drive (0 = DefaultMaxSteps)
	Logger   *slog.Logger     // nil = discard
	Metrics  *metrics.Metrics // nil = no metrics
	Recorder Recorder         // nil = discard history
}

// Executor walks flow graphs held in a registry. Views pause an execution
// until Signal delivers the next event.
type Executor struct {
	registry *flow.Registry
	fsm      *ExecutionFSM
	recorder Recorder
	metrics  *metrics.Metrics
	log      *slog.Logger
	maxSteps int

	mu         sync.Mutex
	executions map[string]*Execution
}

// NewExecutor creates an Executor resolving flows and subflows in registry.
func NewExecutor(registry *flow.Registry, cfg Config) *Executor {
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = DefaultMaxSteps
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	if cfg.Recorder == nil {
		cfg.Recorder = NopRecorder{}
	}
	return &Executor{
		registry:   registry,
		fsm:        NewExecutionFSM(cfg.Recorder),
		recorder:   cfg.Recorder,
		metrics:    cfg.Metrics,
		log:        cfg.Logger,
		maxSteps:   cfg.MaxSteps,
		executions: make(map[string]*Execution),
	}
}

// FSM exposes the lifecycle FSM so callers can register hooks.
func (e *Executor) FSM() *ExecutionFSM { return e.fsm }

// Get returns a known execution.
func (e *Executor) Get(id string) (*Execution, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	x, ok := e.executions[id]
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "execution %q not found", id)
	}
	return x, nil
}

// Start begins an execution of flowID with input as the initial flow scope
// and drives it until it pauses on a view, ends or fails. A failed
// execution is returned together with its error.
func (e *Executor) Start(ctx context.Context, flowID string, input map[string]any) (*Execution, error) {
	f, err := e.registry.Get(flowID)
	if err != nil {
		return nil, err
	}

	x := &Execution{
		ID:        uuid.NewString(),
		FlowID:    flowID,
		Status:    schema.ExecutionStatusPending,
		StartedAt: time.Now().UTC(),
	}
	e.mu.Lock()
	e.executions[x.ID] = x
	e.mu.Unlock()

	x.mu.Lock()
	defer x.mu.Unlock()

	ctx = logging.WithIDs(ctx, flowID, "", x.ID)
	e.metrics.ExecutionStarted()

	if err := e.setStatus(ctx, x, schema.ExecutionStatusActive); err != nil {
		return x, e.fail(ctx, x, err)
	}
	fr := &frame{flow: f, scope: expressions.NewScope(input), request: map[string]any{}}
	x.push(fr)
	if err := e.enterFlow(ctx, x, fr); err != nil {
		return x, e.fail(ctx, x, err)
	}
	return x, e.drive(ctx, x)
}

// Signal resumes a paused execution with an external event, typically the
// submit of the view it is paused on. The payload becomes request data. An
// event no transition matches leaves the execution paused.
func (e *Executor) Signal(ctx context.Context, executionID string, sig schema.Signal) (*Execution, error) {
	x, err := e.Get(executionID)
	if err != nil {
		return nil, err
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if x.Status != schema.ExecutionStatusPaused {
		return x, schema.NewErrorf(schema.ErrCodeInvalidTransition,
			"execution %q is %s, not paused", x.ID, x.Status)
	}

	fr := x.top()
	ctx = logging.WithEventID(logging.WithIDs(ctx, fr.flow.ID, fr.state, x.ID), sig.Event)
	if err := e.setStatus(ctx, x, schema.ExecutionStatusActive); err != nil {
		return x, e.fail(ctx, x, err)
	}

	fr.request = sig.Payload
	if fr.request == nil {
		fr.request = map[string]any{}
	}
	state, ok := fr.flow.State(fr.state)
	if !ok {
		return x, e.fail(ctx, x, unresolved(fr))
	}
	if err := e.follow(ctx, x, fr, state, sig.Event); err != nil {
		if schema.IsCode(err, schema.ErrCodeNoMatchingTransition) {
			if perr := e.setStatus(ctx, x, schema.ExecutionStatusPaused); perr != nil {
				return x, e.fail(ctx, x, perr)
			}
			return x, err
		}
		return x, e.fail(ctx, x, err)
	}
	x.View = nil
	return x, e.drive(ctx, x)
}

type outcome int

const (
	outcomeNext  outcome = iota // follow a transition of the current state
	outcomeJump                 // frames changed, continue with the new current state
	outcomePause                // wait for Signal
	outcomeEnd                  // execution finished
)

// drive executes states until the execution pauses, ends or fails.
func (e *Executor) drive(ctx context.Context, x *Execution) error {
	for steps := 0; ; steps++ {
		if err := ctx.Err(); err != nil {
			return e.fail(ctx, x, schema.NewError(schema.ErrCodeExecution, "execution cancelled").WithCause(err))
		}
		if steps >= e.maxSteps {
			return e.fail(ctx, x, schema.NewErrorf(schema.ErrCodeExecution,
				"execution exceeded %d steps", e.maxSteps))
		}

		fr := x.top()
		state, ok := fr.flow.State(fr.state)
		if !ok {
			return e.fail(ctx, x, unresolved(fr))
		}
		x.Steps++

		next, event, err := e.execState(ctx, x, fr, state)
		if err != nil {
			return e.fail(ctx, x, err)
		}
		switch next {
		case outcomeNext:
			if err := e.follow(ctx, x, fr, state, event); err != nil {
				return e.fail(ctx, x, err)
			}
		case outcomeJump:
		case outcomePause:
			return e.setStatus(ctx, x, schema.ExecutionStatusPaused)
		case outcomeEnd:
			return e.finish(ctx, x)
		}
	}
}

// execState runs state and reports how the execution continues.
func (e *Executor) execState(ctx context.Context, x *Execution, fr *frame, state *flow.State) (outcome, string, error) {
	e.record(ctx, x, fr, schema.EventStateEntered, nil)
	rc := e.requestContext(ctx, x, fr, "")

	for _, a := range state.EntryActions {
		if _, err := e.runAction(ctx, x, fr, rc, a); err != nil {
			return 0, "", err
		}
	}

	switch state.Kind {
	case schema.StateKindAction:
		event := schema.TransitionSuccess
		for _, a := range state.Actions {
			ev, err := e.runAction(ctx, x, fr, rc, a)
			if err != nil {
				return 0, "", err
			}
			if ev.ID != "" {
				event = ev.ID
			}
		}
		if rc.View != nil {
			x.View = rc.View
		}
		return outcomeNext, event, nil

	case schema.StateKindDecision:
		return outcomeNext, "", nil

	case schema.StateKindView:
		if state.View == nil {
			return 0, "", schema.NewErrorf(schema.ErrCodeExecution, "view state %q has no view", state.ID).WithState(state.ID)
		}
		v, err := state.View.Render(ctx, rc)
		if err != nil {
			return 0, "", err
		}
		x.View = v
		e.record(ctx, x, fr, schema.EventViewRendered, map[string]any{"view": v.Name})
		return outcomePause, "", nil

	case schema.StateKindEnd:
		return e.execEnd(ctx, x, fr, state, rc)

	case schema.StateKindSubflow:
		return e.execSubflow(ctx, x, fr, state, rc)

	default:
		return 0, "", schema.NewErrorf(schema.ErrCodeExecution, "unknown state kind %q", state.Kind).WithState(state.ID)
	}
}

// execEnd renders the final response and either ends the execution or
// returns control to the parent flow, whose subflow state then follows the
// transition named after this end state.
func (e *Executor) execEnd(ctx context.Context, x *Execution, fr *frame, state *flow.State, rc *flow.RequestContext) (outcome, string, error) {
	if state.FinalResponse != nil {
		if _, err := e.runAction(ctx, x, fr, rc, state.FinalResponse); err != nil {
			return 0, "", err
		}
	}
	if rc.View != nil {
		x.View = rc.View
	}

	data := rc.Data()
	output := make(map[string]any)
	res, err := state.Output.Map(ctx, data, output)
	if err != nil {
		return 0, "", asStateError(err, state.ID)
	}
	e.mappingSkipped(ctx, x, fr, res)

	if len(x.frames) == 1 {
		x.Output = output
		x.EndState = state.ID
		return outcomeEnd, "", nil
	}

	child := x.pop()
	parent := x.top()
	sub, ok := parent.flow.State(parent.state)
	if !ok {
		return 0, "", unresolved(parent)
	}
	for k, v := range output {
		data[k] = v
	}
	res, err = sub.Subflow.Mapper.MapSubflowOutput(ctx, data, parent.scope)
	if err != nil {
		return 0, "", asStateError(err, sub.ID)
	}
	e.mappingSkipped(ctx, x, parent, res)
	e.record(ctx, x, parent, schema.EventSubflowEnded,
		map[string]any{"subflow": child.flow.ID, "end_state": state.ID})

	if err := e.follow(ctx, x, parent, sub, state.ID); err != nil {
		return 0, "", err
	}
	return outcomeJump, "", nil
}

// execSubflow starts the referenced flow with a fresh scope holding only
// what the input mapper copies.
func (e *Executor) execSubflow(ctx context.Context, x *Execution, fr *frame, state *flow.State, rc *flow.RequestContext) (outcome, string, error) {
	if state.Subflow == nil || state.Subflow.FlowID == nil {
		return 0, "", schema.NewErrorf(schema.ErrCodeExecution, "subflow state %q has no flow reference", state.ID).WithState(state.ID)
	}
	data := rc.Data()
	raw, err := state.Subflow.FlowID.Evaluate(ctx, data)
	if err != nil {
		return 0, "", asStateError(err, state.ID)
	}
	id, _ := raw.(string)
	child, err := e.registry.Get(id)
	if err != nil {
		return 0, "", asStateError(err, state.ID)
	}

	input, res, err := state.Subflow.Mapper.CreateSubflowInput(ctx, data)
	if err != nil {
		return 0, "", asStateError(err, state.ID)
	}
	e.mappingSkipped(ctx, x, fr, res)

	childFrame := &frame{flow: child, scope: expressions.NewScope(input), request: map[string]any{}}
	x.push(childFrame)
	e.record(ctx, x, fr, schema.EventSubflowStarted, map[string]any{"subflow": child.ID})
	if err := e.enterFlow(ctx, x, childFrame); err != nil {
		return 0, "", err
	}
	return outcomeJump, "", nil
}

// enterFlow initialises declared variables missing from the scope, runs the
// start actions and positions fr on the start state.
func (e *Executor) enterFlow(ctx context.Context, x *Execution, fr *frame) error {
	for _, v := range fr.flow.Variables {
		if _, ok := fr.scope.Get(v.Name); ok {
			continue
		}
		var val any
		if v.Initial != nil {
			out, err := v.Initial.Evaluate(ctx, e.requestContext(ctx, x, fr, "").Data())
			if err != nil {
				return schema.NewErrorf(schema.ErrCodeExecution,
					"initialise variable %q of flow %q", v.Name, fr.flow.ID).WithCause(err)
			}
			val = out
		}
		if err := fr.scope.Set(val, v.Name); err != nil {
			return err
		}
	}

	rc := e.requestContext(ctx, x, fr, "")
	for _, a := range fr.flow.StartActions {
		if _, err := e.runAction(ctx, x, fr, rc, a); err != nil {
			return err
		}
	}

	start, err := fr.flow.StartState()
	if err != nil {
		return err
	}
	fr.state = start.ID
	return nil
}

// follow moves fr along the transition of state matching event.
func (e *Executor) follow(ctx context.Context, x *Execution, fr *frame, state *flow.State, event string) error {
	data := e.requestContext(ctx, x, fr, event).Data()
	t, target, err := selectTransition(ctx, fr.flow, state, event, data)
	if err != nil {
		return err
	}
	if state.Is(schema.StateKindDecision) {
		e.record(ctx, x, fr, schema.EventDecisionResolved, map[string]any{"to": target.ID})
	}
	e.record(ctx, x, fr, schema.EventTransition, map[string]any{
		"on": t.Criteria.String(), "event": event, "to": target.ID,
	})
	e.record(ctx, x, fr, schema.EventStateExited, nil)
	e.metrics.TransitionTaken(fr.flow.ID)
	fr.state = target.ID
	return nil
}

func (e *Executor) runAction(ctx context.Context, x *Execution, fr *frame, rc *flow.RequestContext, a flow.Action) (flow.Event, error) {
	ev, err := a.Execute(ctx, rc)
	if err != nil {
		return flow.Event{}, asStateError(err, fr.state)
	}
	e.record(ctx, x, fr, schema.EventActionExecuted, map[string]any{"action": a.Name(), "event": ev.ID})
	return ev, nil
}

func (e *Executor) requestContext(ctx context.Context, x *Execution, fr *frame, event string) *flow.RequestContext {
	return &flow.RequestContext{
		ExecutionID: x.ID,
		FlowID:      fr.flow.ID,
		StateID:     fr.state,
		Scope:       fr.scope,
		Request:     fr.request,
		Event:       event,
		Logger:      logging.LogWith(logging.WithIDs(ctx, fr.flow.ID, fr.state, x.ID), e.log),
	}
}

func (e *Executor) mappingSkipped(ctx context.Context, x *Execution, fr *frame, res flow.MappingResult) {
	if len(res.Skipped) == 0 {
		return
	}
	e.metrics.MappingSkipped(len(res.Skipped))
	e.log.DebugContext(ctx, "optional mappings skipped", "targets", res.Skipped)
	e.record(ctx, x, fr, schema.EventMappingSkipped, map[string]any{"targets": res.Skipped})
}

func (e *Executor) record(ctx context.Context, x *Execution, fr *frame, typ string, payload map[string]any) {
	rec := &Record{ExecutionID: x.ID, FlowID: fr.flow.ID, StateID: fr.state, Type: typ, Payload: payload}
	if err := e.recorder.Record(ctx, rec); err != nil {
		e.log.WarnContext(ctx, "history record dropped", "type", typ, "error", err)
	}
}

func (e *Executor) setStatus(ctx context.Context, x *Execution, to schema.ExecutionStatus) error {
	if err := e.fsm.Transition(ctx, x, x.Status, to); err != nil {
		return err
	}
	x.Status = to
	return nil
}

func (e *Executor) finish(ctx context.Context, x *Execution) error {
	if err := e.setStatus(ctx, x, schema.ExecutionStatusEnded); err != nil {
		return e.fail(ctx, x, err)
	}
	e.closeOut(x)
	e.log.InfoContext(ctx, "execution ended", "end_state", x.EndState, "steps", x.Steps)
	return nil
}

// fail marks x failed and returns err as a FlowError.
func (e *Executor) fail(ctx context.Context, x *Execution, err error) error {
	var fe *schema.FlowError
	if !errors.As(err, &fe) {
		fe = schema.NewError(schema.ErrCodeExecution, err.Error()).WithCause(err)
	}
	x.Error = fe
	if !x.Status.IsTerminal() {
		if terr := e.fsm.Transition(ctx, x, x.Status, schema.ExecutionStatusFailed); terr != nil {
			e.log.WarnContext(ctx, "failed transition not recorded", "error", terr)
		}
		x.Status = schema.ExecutionStatusFailed
		e.closeOut(x)
	}
	e.log.ErrorContext(ctx, "execution failed", "error", fe)
	return fe
}

func (e *Executor) closeOut(x *Execution) {
	now := time.Now().UTC()
	x.EndedAt = &now
	e.metrics.ExecutionFinished(x.FlowID, string(x.Status), now.Sub(x.StartedAt).Seconds())
}

func unresolved(fr *frame) error {
	return schema.NewErrorf(schema.ErrCodeUnresolvedTarget,
		"state %q not found in flow %q", fr.state, fr.flow.ID).WithState(fr.state)
}

func asStateError(err error, stateID string) error {
	var fe *schema.FlowError
	if errors.As(err, &fe) {
		if fe.StateID == "" {
			fe.StateID = stateID
		}
		return err
	}
	return schema.NewError(schema.ErrCodeExecution, err.Error()).WithState(stateID).WithCause(err)
}
