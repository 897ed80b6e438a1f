package bot

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"momentum-radar/internal/alert"
	"momentum-radar/internal/domain"

	tele "gopkg.in/telebot.v3"
)

var newTeleBot = tele.NewBot

// RSIReporter serves categorized RSI reports on demand.
type RSIReporter interface {
	GetReport(ctx context.Context, timeframe string) (domain.RSIReport, error)
}

// PriceSource serves the latest per-symbol price statistics.
type PriceSource interface {
	Prices(ctx context.Context) (map[string]domain.PriceSnapshot, error)
}

// Telegram exposes the signal engine over chat commands and pushes
// cycle results to the configured chats. A nil *Telegram is a valid
// no-op notifier, so callers never need to branch on whether the bot
// is configured.
type Telegram struct {
	bot     *tele.Bot
	chatIDs []int64
}

// StartTelegramBot wires the command handlers and starts long polling.
// Returns nil when no token is configured.
func StartTelegramBot(
	token string,
	chatIDs []int64,
	rsi RSIReporter,
	market PriceSource,
	tiers []domain.AlertTier,
) *Telegram {
	if token == "" {
		log.Println("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return nil
	}

	b, err := newTeleBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		log.Fatalf("failed to create Telegram bot: %v", err)
	}

	tierByTimeframe := make(map[string]domain.AlertTier, len(tiers))
	for _, tier := range tiers {
		tierByTimeframe[tier.Timeframe] = tier
	}

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})

	b.Handle("/rsi", func(c tele.Context) error {
		args := c.Args()
		if len(args) == 0 {
			return c.Send(fmt.Sprintf("Usage: /rsi 1h\nSupported: %s", strings.Join(domain.SupportedTimeframes, ", ")))
		}
		timeframe := strings.ToLower(args[0])
		if !isSupportedTimeframe(timeframe) {
			return c.Send(fmt.Sprintf("Unknown timeframe: %s\nSupported: %s", timeframe, strings.Join(domain.SupportedTimeframes, ", ")))
		}
		report, err := rsi.GetReport(context.Background(), timeframe)
		if err != nil {
			log.Printf("/rsi %s failed: %v", timeframe, err)
			return c.Send(FormatTimeout(timeframe))
		}
		return c.Send(FormatReport(report))
	})

	b.Handle("/alerts", func(c tele.Context) error {
		args := c.Args()
		if len(args) == 0 {
			return c.Send(fmt.Sprintf("Usage: /alerts 24h\nSupported: %s", strings.Join(domain.AlertTimeframes, ", ")))
		}
		timeframe := strings.ToLower(args[0])
		tier, ok := tierByTimeframe[timeframe]
		if !ok {
			return c.Send(fmt.Sprintf("Unknown timeframe: %s\nSupported: %s", timeframe, strings.Join(domain.AlertTimeframes, ", ")))
		}
		prices, err := market.Prices(context.Background())
		if err != nil {
			return c.Send(fmt.Sprintf("Error fetching prices: %v", err))
		}
		decision := alert.Evaluate(prices, tier)
		if !decision.Found {
			return c.Send(fmt.Sprintf("No %s movers above %.1f%% right now.", timeframe, tier.ThresholdPct))
		}
		return c.Send(FormatAlerts([]domain.AlertDecision{decision}))
	})

	log.Println("Telegram bot started")
	go b.Start()

	return &Telegram{bot: b, chatIDs: chatIDs}
}

// NotifyReport pushes a cycle report to every configured chat.
func (t *Telegram) NotifyReport(report domain.RSIReport) {
	t.broadcast(FormatReport(report))
}

// NotifyTimeout tells the chats a cycle was aborted.
func (t *Telegram) NotifyTimeout(timeframe string) {
	t.broadcast(FormatTimeout(timeframe))
}

// NotifyAlerts pushes fired price-change alerts.
func (t *Telegram) NotifyAlerts(decisions []domain.AlertDecision) {
	t.broadcast(FormatAlerts(decisions))
}

func (t *Telegram) broadcast(text string) {
	if t == nil || text == "" {
		return
	}
	for _, id := range t.chatIDs {
		if _, err := t.bot.Send(tele.ChatID(id), text); err != nil {
			log.Printf("telegram send to %d failed: %v", id, err)
		}
	}
}

func isSupportedTimeframe(timeframe string) bool {
	for _, tf := range domain.SupportedTimeframes {
		if tf == timeframe {
			return true
		}
	}
	return false
}

// FormatReport renders a categorized RSI report as a chat message.
// Categories with no members are omitted; an empty report still gets a
// headline so the chats see the cycle ran.
func FormatReport(report domain.RSIReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 RSI %s — %s", report.Timeframe, report.ComputedAt.UTC().Format("2006-01-02 15:04 UTC"))

	if len(report.Groups) == 0 {
		b.WriteString("\nNothing notable this cycle.")
		return b.String()
	}

	for _, group := range report.Groups {
		fmt.Fprintf(&b, "\n\n%s %s:", group.Category.Label, group.Category.Name)
		for _, m := range group.Members {
			fmt.Fprintf(&b, "\n  %s: %.1f", m.Pair, m.Value)
		}
	}
	return b.String()
}

// FormatTimeout is the message sent when a cycle misses its deadline.
func FormatTimeout(timeframe string) string {
	return fmt.Sprintf("😴 The %s RSI cycle did not finish in time. Results were discarded, will retry next cycle.", timeframe)
}

// FormatAlerts renders fired price-change alerts in evaluation order,
// with each tier's strongest move first.
func FormatAlerts(decisions []domain.AlertDecision) string {
	var parts []string
	for _, d := range decisions {
		if !d.Found {
			continue
		}
		var b strings.Builder
		fmt.Fprintf(&b, "🚨 %s movers:", d.Timeframe)
		for _, hit := range d.Hits {
			fmt.Fprintf(&b, "\n  %s: %+.1f%%", hit.Symbol, hit.ChangePct)
		}
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "\n\n")
}
