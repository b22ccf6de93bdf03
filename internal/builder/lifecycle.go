package builder

import (
	"context"
	"fmt"
	"time"

	"github.com/rendis/authflow/pkg/schema"
)

// Configurer assembles flows on a builder.
type Configurer interface {
	DoInitialize(ctx context.Context, b *Builder) error
}

// ConfigurerFunc adapts a function to Configurer.
type ConfigurerFunc func(ctx context.Context, b *Builder) error

func (fn ConfigurerFunc) DoInitialize(ctx context.Context, b *Builder) error {
	return fn(ctx, b)
}

// InitReport describes one Initialize call.
type InitReport struct {
	Ran      bool
	Skipped  bool
	Err      error
	Duration time.Duration
}

// Initialize runs c when autoconfigure is enabled. Errors and panics raised
// by c are logged and counted but never returned, so startup continues with
// whatever c managed to build.
func (b *Builder) Initialize(ctx context.Context, c Configurer) InitReport {
	if !b.autoconfigure {
		b.log.Warn("autoconfigure is disabled, flow initialization skipped")
		return InitReport{Skipped: true}
	}
	if c == nil {
		return InitReport{Skipped: true}
	}

	start := time.Now()
	err := b.runConfigurer(ctx, c)
	report := InitReport{Ran: true, Err: err, Duration: time.Since(start)}
	if err != nil {
		b.metrics.InitFailed()
		b.log.Error("flow initialization failed", "error", err, "duration", report.Duration)
		return report
	}
	b.log.Debug("flow initialization complete",
		"flows", b.registry.Len(), "duration", report.Duration)
	return report
}

func (b *Builder) runConfigurer(ctx context.Context, c Configurer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = schema.NewError(schema.ErrCodeExecution, fmt.Sprintf("initialization panicked: %v", r)).
				WithDetails(map[string]any{"panic": fmt.Sprint(r)})
		}
	}()
	return c.DoInitialize(ctx, b)
}
