package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Run executes ticks forever with a fixed inter-tick sleep. A failed tick is
// alerted once and then the process parks until the context is cancelled:
// repeated bad trades are worse than downtime, so recovery requires a human
// restart.
func (t *Ticker) Run(ctx context.Context) error {
	for {
		start := time.Now()
		err := t.Tick(ctx)
		if err != nil {
			t.logger.ErrorContext(ctx, "tick failed, halting",
				slog.String("error", err.Error()),
			)
			t.reporter.Alert(ctx, fmt.Sprintf("tick failed, entering eternal sleep until restarted: %v", err))
			<-ctx.Done()
			return err
		}

		t.logger.DebugContext(ctx, "tick complete",
			slog.Duration("took", time.Since(start)),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(t.botCfg.TickInterval.Duration):
		}
	}
}
