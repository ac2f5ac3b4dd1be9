package builder

import (
	"context"
	"log/slog"
)

// step is one phase of a pipeline.
type step struct {
	name string

	// enter decides whether the phase runs. A nil enter always runs; when it
	// returns false the reason is logged at info level and the phase is
	// skipped.
	enter func() (ok bool, reason string)

	// optional phases log a warning on failure instead of aborting.
	optional bool

	run func(ctx context.Context) error
}

// always is a convenience for phases without an entry condition.
func always(name string, run func(ctx context.Context) error) step {
	return step{name: name, run: run}
}

// runSteps executes steps in order. The first required failure stops the
// pipeline and is returned as a *PhaseError.
func runSteps(ctx context.Context, log *slog.Logger, steps []step) error {
	for i, st := range steps {
		if err := ctx.Err(); err != nil {
			return &PhaseError{Phase: st.name, Err: err}
		}
		if st.enter != nil {
			if ok, reason := st.enter(); !ok {
				log.Info("skipping phase", "phase", st.name, "reason", reason)
				continue
			}
		}
		log.Info("running phase", "phase", st.name, "step", i+1, "of", len(steps))
		if err := st.run(ctx); err != nil {
			if st.optional {
				log.Warn("optional phase failed", "phase", st.name, "error", err)
				continue
			}
			return &PhaseError{Phase: st.name, Err: err}
		}
	}
	return nil
}
