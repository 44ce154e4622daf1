package notify

import (
	"context"
	"fmt"
	"log/slog"

	"galaswapbot/internal/domain"
)

const (
	discordColorInfo  = 0x2B6CB0
	discordColorAlert = 0xC53030
)

// DiscordReporter delivers reports to a Discord webhook as embeds. Delivery
// failures are logged, never propagated.
type DiscordReporter struct {
	sender *webhookSender
	logger *slog.Logger
}

// NewDiscordReporter creates a DiscordReporter posting to the given webhook URL.
func NewDiscordReporter(webhookURL string, logger *slog.Logger) *DiscordReporter {
	return &DiscordReporter{
		sender: newWebhookSender(webhookURL),
		logger: logger.With(slog.String("component", "discord_reporter")),
	}
}

func (d *DiscordReporter) send(ctx context.Context, title, text string, color int) {
	payload := map[string]any{
		"embeds": []map[string]any{
			{
				"title":       title,
				"description": text,
				"color":       color,
			},
		},
	}
	if err := d.sender.post(ctx, payload); err != nil {
		d.logger.WarnContext(ctx, "discord delivery failed", slog.String("error", err.Error()))
	}
}

func (d *DiscordReporter) ReportAcceptingSwap(ctx context.Context, swap domain.SwapToAccept, tokens []domain.TokenInfo) {
	d.send(ctx, "Accepting swap", DescribeAccept(swap, tokens), discordColorInfo)
}

func (d *DiscordReporter) ReportCreatingSwap(ctx context.Context, swap domain.SwapToCreate, tokens []domain.TokenInfo) {
	d.send(ctx, "Creating swap", DescribeCreate(swap, tokens), discordColorInfo)
}

func (d *DiscordReporter) ReportTerminatingSwap(ctx context.Context, swap domain.SwapToTerminate, tokens []domain.TokenInfo) {
	d.send(ctx, "Terminating swap",
		fmt.Sprintf("%s\nReason: %s", DescribeSwap(swap.Swap, tokens), swap.TerminationReason), discordColorInfo)
}

func (d *DiscordReporter) ReportSwapUsed(ctx context.Context, before, after domain.Swap, tokens []domain.TokenInfo) {
	d.send(ctx, "Swap used", DescribeUse(before, after, tokens), discordColorInfo)
}

func (d *DiscordReporter) Alert(ctx context.Context, message string) {
	d.send(ctx, "Alert", message, discordColorAlert)
}
