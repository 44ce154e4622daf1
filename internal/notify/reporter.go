// Package notify reports the agent's trading decisions to operators. Every
// planned action is announced before the API call that performs it, so a
// stalled run still shows what the agent was about to do. Reporters never
// block trading: delivery failures are logged and swallowed.
package notify

import (
	"context"
	"log/slog"

	"galaswapbot/internal/domain"
)

// StatusReporter receives the agent's decisions and alerts. Implementations
// must tolerate being called from the trading loop: slow or failing delivery
// must not return errors that would halt a tick.
type StatusReporter interface {
	// ReportAcceptingSwap announces an offer about to be accepted.
	ReportAcceptingSwap(ctx context.Context, swap domain.SwapToAccept, tokens []domain.TokenInfo)
	// ReportCreatingSwap announces an offer about to be created.
	ReportCreatingSwap(ctx context.Context, swap domain.SwapToCreate, tokens []domain.TokenInfo)
	// ReportTerminatingSwap announces an own offer about to be terminated.
	ReportTerminatingSwap(ctx context.Context, swap domain.SwapToTerminate, tokens []domain.TokenInfo)
	// ReportSwapUsed announces that a counterparty used one of the agent's own
	// offers, with the before/after versions for the delta.
	ReportSwapUsed(ctx context.Context, before, after domain.Swap, tokens []domain.TokenInfo)
	// Alert delivers an operator-attention message (fatal errors, low fee
	// balance, and similar conditions).
	Alert(ctx context.Context, message string)
}

// MultiReporter fans every report out to all children.
type MultiReporter struct {
	reporters []StatusReporter
}

// NewMultiReporter creates a reporter that forwards to all the given children.
func NewMultiReporter(reporters ...StatusReporter) *MultiReporter {
	return &MultiReporter{reporters: reporters}
}

func (m *MultiReporter) ReportAcceptingSwap(ctx context.Context, swap domain.SwapToAccept, tokens []domain.TokenInfo) {
	for _, r := range m.reporters {
		r.ReportAcceptingSwap(ctx, swap, tokens)
	}
}

func (m *MultiReporter) ReportCreatingSwap(ctx context.Context, swap domain.SwapToCreate, tokens []domain.TokenInfo) {
	for _, r := range m.reporters {
		r.ReportCreatingSwap(ctx, swap, tokens)
	}
}

func (m *MultiReporter) ReportTerminatingSwap(ctx context.Context, swap domain.SwapToTerminate, tokens []domain.TokenInfo) {
	for _, r := range m.reporters {
		r.ReportTerminatingSwap(ctx, swap, tokens)
	}
}

func (m *MultiReporter) ReportSwapUsed(ctx context.Context, before, after domain.Swap, tokens []domain.TokenInfo) {
	for _, r := range m.reporters {
		r.ReportSwapUsed(ctx, before, after, tokens)
	}
}

func (m *MultiReporter) Alert(ctx context.Context, message string) {
	for _, r := range m.reporters {
		r.Alert(ctx, message)
	}
}

// ConsoleReporter writes reports to the structured log. Always registered so
// a run without webhooks still leaves a trail.
type ConsoleReporter struct {
	logger *slog.Logger
}

// NewConsoleReporter creates a ConsoleReporter on the given logger.
func NewConsoleReporter(logger *slog.Logger) *ConsoleReporter {
	return &ConsoleReporter{logger: logger.With(slog.String("component", "reporter"))}
}

func (c *ConsoleReporter) ReportAcceptingSwap(ctx context.Context, swap domain.SwapToAccept, tokens []domain.TokenInfo) {
	c.logger.InfoContext(ctx, "accepting swap",
		slog.String("swap_request_id", SanitizeID(swap.SwapRequestID)),
		slog.String("details", DescribeAccept(swap, tokens)),
	)
}

func (c *ConsoleReporter) ReportCreatingSwap(ctx context.Context, swap domain.SwapToCreate, tokens []domain.TokenInfo) {
	c.logger.InfoContext(ctx, "creating swap",
		slog.String("details", DescribeCreate(swap, tokens)),
	)
}

func (c *ConsoleReporter) ReportTerminatingSwap(ctx context.Context, swap domain.SwapToTerminate, tokens []domain.TokenInfo) {
	c.logger.InfoContext(ctx, "terminating swap",
		slog.String("swap_request_id", SanitizeID(swap.SwapRequestID)),
		slog.String("reason", swap.TerminationReason),
		slog.String("details", DescribeSwap(swap.Swap, tokens)),
	)
}

func (c *ConsoleReporter) ReportSwapUsed(ctx context.Context, before, after domain.Swap, tokens []domain.TokenInfo) {
	c.logger.InfoContext(ctx, "own swap used",
		slog.String("swap_request_id", SanitizeID(after.SwapRequestID)),
		slog.String("details", DescribeUse(before, after, tokens)),
	)
}

func (c *ConsoleReporter) Alert(ctx context.Context, message string) {
	c.logger.ErrorContext(ctx, "alert", slog.String("message", message))
}
