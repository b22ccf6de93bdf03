// Package builder constructs and composes flow graphs. State creation is
// idempotent so configuration passes can be layered; transition targets are
// symbolic and only resolved when the graph is traversed or finalized.
package builder

import (
	"log/slog"

	"github.com/rendis/authflow/internal/actions"
	"github.com/rendis/authflow/internal/expressions"
	"github.com/rendis/authflow/internal/flow"
	"github.com/rendis/authflow/internal/logging"
	"github.com/rendis/authflow/internal/metrics"
	"github.com/rendis/authflow/internal/validation"
	"github.com/rendis/authflow/internal/views"
	"github.com/rendis/authflow/pkg/schema"
)

// Config holds the builder's collaborators. Zero values get defaults.
type Config struct {
	Logger        *slog.Logger
	Metrics       *metrics.Metrics // nil = no metrics
	Views         views.Creator
	Autoconfigure bool
}

// Builder mutates flows held in a registry. Not safe for concurrent
// mutation of the same flow.
type Builder struct {
	registry      *flow.Registry
	parser        *expressions.Parser
	views         views.Creator
	log           *slog.Logger
	metrics       *metrics.Metrics
	autoconfigure bool
}

// New creates a Builder over registry. A nil registry starts empty.
func New(registry *flow.Registry, parser *expressions.Parser, cfg Config) *Builder {
	if registry == nil {
		registry = flow.NewRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	if cfg.Views == nil {
		cfg.Views = views.NewCreator()
	}
	return &Builder{
		registry:      registry,
		parser:        parser,
		views:         cfg.Views,
		log:           cfg.Logger,
		metrics:       cfg.Metrics,
		autoconfigure: cfg.Autoconfigure,
	}
}

// Registry returns the builder's primary registry.
func (b *Builder) Registry() *flow.Registry { return b.registry }

// Parser returns the expression parser.
func (b *Builder) Parser() *expressions.Parser { return b.parser }

// Logger returns the builder's logger.
func (b *Builder) Logger() *slog.Logger { return b.log }

// LoginFlow returns the primary login flow.
func (b *Builder) LoginFlow() (*flow.Flow, error) {
	return b.registry.Get(schema.FlowIDLogin)
}

// EnsureFlow returns the flow registered under id, registering an empty
// one first if needed.
func (b *Builder) EnsureFlow(id string) (*flow.Flow, error) {
	if f, err := b.registry.Get(id); err == nil {
		return f, nil
	}
	f := flow.New(id)
	if _, err := b.registry.Register(f); err != nil {
		return nil, err
	}
	b.log.Debug("flow registered", logging.KeyFlowID, id)
	return f, nil
}

// ContainsFlowState reports whether f holds a state with the given ID.
func (b *Builder) ContainsFlowState(f *flow.Flow, id string) bool {
	return f != nil && f.ContainsState(id)
}

// StartState returns the start state of f.
func (b *Builder) StartState(f *flow.Flow) (*flow.State, error) {
	if f == nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "flow is nil")
	}
	return f.StartState()
}

// SetStartState designates id as the start state. The ID may name a state
// that does not exist yet; Finalize reports it if it never appears.
func (b *Builder) SetStartState(f *flow.Flow, id string) error {
	if f == nil {
		return schema.NewError(schema.ErrCodeValidation, "flow is nil")
	}
	if id == "" {
		return schema.NewError(schema.ErrCodeValidation, "start state id is empty")
	}
	f.SetStartState(id)
	b.log.Debug("start state set", logging.KeyFlowID, f.ID, logging.KeyStateID, id)
	return nil
}

// CreateExpression parses raw bound to the expected result type.
func (b *Builder) CreateExpression(raw string, expected expressions.Type) (expressions.Expression, error) {
	return b.parser.Parse(raw, expected)
}

// CreateEvaluateAction returns an action that evaluates raw and signals its
// result as the event ("yes"/"no" for booleans, the string itself for strings).
func (b *Builder) CreateEvaluateAction(raw string) (flow.Action, error) {
	expr, err := b.parser.Parse(raw, expressions.TypeAny)
	if err != nil {
		return nil, err
	}
	return actions.NewEvaluateAction(expr, nil), nil
}

// Finalize checks that f is traversable against the builder's registry.
func (b *Builder) Finalize(f *flow.Flow) *schema.ValidationResult {
	result := validation.ValidateGraph(f, b.registry)
	if !result.Valid() {
		b.log.Warn("flow failed finalization",
			logging.KeyFlowID, flowID(f),
			"errors", len(result.Errors),
			"warnings", len(result.Warnings))
	}
	return result
}

func flowID(f *flow.Flow) string {
	if f == nil {
		return ""
	}
	return f.ID
}
