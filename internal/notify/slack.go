package notify

import (
	"context"
	"fmt"
	"log/slog"

	"galaswapbot/internal/domain"
)

// SlackReporter delivers reports to a Slack incoming webhook using Block Kit
// sections. Delivery failures are logged, never propagated.
type SlackReporter struct {
	sender *webhookSender
	logger *slog.Logger
}

// NewSlackReporter creates a SlackReporter posting to the given webhook URL.
func NewSlackReporter(webhookURL string, logger *slog.Logger) *SlackReporter {
	return &SlackReporter{
		sender: newWebhookSender(webhookURL),
		logger: logger.With(slog.String("component", "slack_reporter")),
	}
}

func (s *SlackReporter) send(ctx context.Context, title, text string) {
	payload := map[string]any{
		"blocks": []map[string]any{
			{
				"type": "section",
				"text": map[string]any{
					"type": "mrkdwn",
					"text": fmt.Sprintf("*%s*\n%s", title, text),
				},
			},
		},
	}
	if err := s.sender.post(ctx, payload); err != nil {
		s.logger.WarnContext(ctx, "slack delivery failed", slog.String("error", err.Error()))
	}
}

func (s *SlackReporter) ReportAcceptingSwap(ctx context.Context, swap domain.SwapToAccept, tokens []domain.TokenInfo) {
	s.send(ctx, "Accepting swap", DescribeAccept(swap, tokens))
}

func (s *SlackReporter) ReportCreatingSwap(ctx context.Context, swap domain.SwapToCreate, tokens []domain.TokenInfo) {
	s.send(ctx, "Creating swap", DescribeCreate(swap, tokens))
}

func (s *SlackReporter) ReportTerminatingSwap(ctx context.Context, swap domain.SwapToTerminate, tokens []domain.TokenInfo) {
	s.send(ctx, "Terminating swap",
		fmt.Sprintf("%s\nReason: %s", DescribeSwap(swap.Swap, tokens), swap.TerminationReason))
}

func (s *SlackReporter) ReportSwapUsed(ctx context.Context, before, after domain.Swap, tokens []domain.TokenInfo) {
	s.send(ctx, "Swap used", DescribeUse(before, after, tokens))
}

func (s *SlackReporter) Alert(ctx context.Context, message string) {
	s.send(ctx, ":rotating_light: Alert", message)
}
