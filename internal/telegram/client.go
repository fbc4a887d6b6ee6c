// Package telegram provides a client for sending notifications and serving
// bot commands via the Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"farewatch/internal/models"
)

// Service is the command surface the bot exposes to chat users. Implemented
// by the monitor.
type Service interface {
	AddRoute(origin, destination, name string) (models.Route, error)
	RemoveRoute(origin, destination string) (models.Route, error)
	Routes() []models.Route
	CreateSubscription(userID, origin, destination string, maxPrice float64) (models.Subscription, error)
	Analyze(origin, destination string) (models.RouteAnalysis, error)
	TopPromotions(n int) []models.Promotion
	SetTestMode(on bool)
	Mode() models.CadenceMode
}

// Client handles Telegram notifications and bot commands.
type Client struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client.
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// ListenForCommands starts a goroutine that polls for Telegram updates and
// handles bot commands against svc. It returns immediately; the goroutine
// stops when ctx is cancelled.
func (c *Client) ListenForCommands(ctx context.Context, svc Service) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := c.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.bot.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message != nil && update.Message.IsCommand() {
					c.handleCommand(update.Message, svc)
				}
			}
		}
	}()
}

func (c *Client) handleCommand(msg *tgbotapi.Message, svc Service) {
	args := strings.Fields(msg.CommandArguments())
	reply := func(text string) {
		c.bot.Send(tgbotapi.NewMessage(msg.Chat.ID, text)) //nolint:errcheck
	}

	switch msg.Command() {
	case "ping":
		reply("Pong")

	case "addroute":
		if len(args) < 2 {
			reply("Usage: /addroute ORIGIN DESTINATION [name]")
			return
		}
		name := strings.Join(args[2:], " ")
		route, err := svc.AddRoute(args[0], args[1], name)
		if err != nil {
			reply(fmt.Sprintf("❌ %v", err))
			return
		}
		reply(fmt.Sprintf("✅ Route added: %s", route.Name))

	case "removeroute":
		if len(args) != 2 {
			reply("Usage: /removeroute ORIGIN DESTINATION")
			return
		}
		route, err := svc.RemoveRoute(args[0], args[1])
		if err != nil {
			reply(fmt.Sprintf("❌ %v", err))
			return
		}
		reply(fmt.Sprintf("✅ Route removed: %s", route.Name))

	case "routes":
		routes := svc.Routes()
		if len(routes) == 0 {
			reply("No routes monitored.")
			return
		}
		var b strings.Builder
		b.WriteString(fmt.Sprintf("✈️ Monitoring %d routes [%s]:\n", len(routes), svc.Mode()))
		for _, r := range routes {
			b.WriteString(fmt.Sprintf("• %s (%s)\n", r.Name, r.ID()))
		}
		reply(b.String())

	case "alert":
		if len(args) != 3 {
			reply("Usage: /alert ORIGIN DESTINATION MAX_PRICE")
			return
		}
		maxPrice, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			reply("❌ Max price must be a number")
			return
		}
		userID := strconv.FormatInt(msg.From.ID, 10)
		sub, err := svc.CreateSubscription(userID, args[0], args[1], maxPrice)
		if err != nil {
			reply(fmt.Sprintf("❌ %v", err))
			return
		}
		reply(fmt.Sprintf("✅ Alert created! You will be notified when %s drops to %.2f or less.",
			sub.RouteID, sub.MaxPrice))

	case "deal":
		if len(args) != 2 {
			reply("Usage: /deal ORIGIN DESTINATION")
			return
		}
		analysis, err := svc.Analyze(args[0], args[1])
		if err != nil {
			reply(fmt.Sprintf("❌ %v", err))
			return
		}
		c.sendAnalysis(msg.Chat.ID, analysis)

	case "top":
		promos := svc.TopPromotions(5)
		if len(promos) == 0 {
			reply("No promotions right now.")
			return
		}
		var b strings.Builder
		b.WriteString("🔥 Current best deals:\n")
		for i, p := range promos {
			b.WriteString(fmt.Sprintf("%d. %s — %.2f (%.1f%% OFF) | score %.1f/10\n",
				i+1, p.Route.Name, p.Price, p.DiscountPct, p.Score))
		}
		reply(b.String())

	case "test":
		switch strings.ToLower(strings.TrimSpace(msg.CommandArguments())) {
		case "on":
			svc.SetTestMode(true)
			reply("✅ Test mode ON. Immediate alerts enabled.")
		case "off":
			svc.SetTestMode(false)
			reply("✅ Test mode OFF. Back to normal.")
		default:
			reply("Usage: /test on|off")
		}
	}
}

// sendMarkdownV2 sends a MarkdownV2 message with linear-backoff retry.
func (c *Client) sendMarkdownV2(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		if _, err := c.bot.Send(msg); err == nil {
			return nil
		} else {
			lastErr = err
		}
		time.Sleep(c.retryDelayBase * time.Duration(i+1))
	}
	return fmt.Errorf("failed after %d retries: %w", c.maxRetries, lastErr)
}

// SendError sends a monitoring error notification.
// Call this only on the first occurrence of a consecutive error sequence.
func (c *Client) SendError(cycleErr error) error {
	text := fmt.Sprintf("⚠️ *Monitoring error*\n`%s`", escapeMarkdownV2(cycleErr.Error()))
	return c.sendMarkdownV2(c.chatID, text)
}

// SendRecovery sends a recovery notification after consecutive failures.
func (c *Client) SendRecovery(failureCount int) error {
	text := fmt.Sprintf("✅ *Monitoring recovered* after %d consecutive failure\\(s\\)", failureCount)
	return c.sendMarkdownV2(c.chatID, text)
}

// SendAlert sends a price alert to the configured channel.
func (c *Client) SendAlert(alert models.Alert) error {
	return c.sendMarkdownV2(c.chatID, formatAlert(alert))
}

// SendPersonalAlert delivers a subscription match directly to its user.
func (c *Client) SendPersonalAlert(alert models.PersonalAlert) error {
	userChatID, err := strconv.ParseInt(alert.UserID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid user ID %q: %w", alert.UserID, err)
	}
	text := fmt.Sprintf("🔔 *Your price alert fired\\!*\n%s is now at *%s*, at or below your limit of %s\\.",
		escapeMarkdownV2(alert.Route.Name),
		escapeMarkdownV2(formatMoney(alert.Price)),
		escapeMarkdownV2(formatMoney(alert.MaxPrice)))
	return c.sendMarkdownV2(userChatID, text)
}

// SendSummary sends the daily digest to the configured channel.
func (c *Client) SendSummary(summary models.DailySummary) error {
	return c.sendMarkdownV2(c.chatID, formatSummary(summary))
}

var tierHeaders = map[models.AlertTier]string{
	models.TierCritical:  "🚨 *PRICE GLITCH DETECTED\\!* Possible mistake fare — buy IMMEDIATELY\\!",
	models.TierExcellent: "⚡ *EXCELLENT PROMOTION\\!* Very good price — buy TODAY\\!",
	models.TierGood:      "🎉 *GOOD PROMOTION\\!* Below-average price — worth considering\\.",
}

func formatAlert(alert models.Alert) string {
	var b strings.Builder

	header, okHeader := tierHeaders[alert.Tier]
	if !okHeader {
		header = tierHeaders[models.TierGood]
	}
	b.WriteString(header + "\n\n")

	b.WriteString(fmt.Sprintf("✈️ %s\n", escapeMarkdownV2(alert.Route.Name)))
	b.WriteString(fmt.Sprintf("💰 Current: *%s*\n", escapeMarkdownV2(formatMoney(alert.Price))))
	b.WriteString(fmt.Sprintf("📊 Mean: %s \\| Discount: *%s*\n",
		escapeMarkdownV2(formatMoney(alert.Mean)),
		escapeMarkdownV2(fmt.Sprintf("%.1f%%", alert.DiscountPct))))
	b.WriteString(fmt.Sprintf("🏆 Score: *%s/10*\n", escapeMarkdownV2(fmt.Sprintf("%.1f", alert.Score))))
	b.WriteString(fmt.Sprintf("💎 Min: %s \\| 📈 Max: %s\n",
		escapeMarkdownV2(formatMoney(alert.Min)),
		escapeMarkdownV2(formatMoney(alert.Max))))

	trendEmoji := "➡️"
	switch alert.Trend {
	case models.TrendFalling:
		trendEmoji = "📉"
	case models.TrendRising:
		trendEmoji = "📈"
	}
	b.WriteString(fmt.Sprintf("%s Trend: %s \\(%s\\)\n", trendEmoji, alert.Trend,
		escapeMarkdownV2(fmt.Sprintf("%+.1f%%", alert.TrendPct))))

	b.WriteString(fmt.Sprintf("⏰ %s\n", escapeMarkdownV2(alert.Urgency)))
	b.WriteString(fmt.Sprintf("🔗 [Google Flights](https://www.google.com/flights?q=flights+from+%s+to+%s)\n",
		alert.Route.Origin, alert.Route.Destination))
	b.WriteString(fmt.Sprintf("_Mode: %s \\| %s_", alert.Mode,
		escapeMarkdownV2(alert.DetectedAt.Format("2006-01-02 15:04"))))

	return b.String()
}

var summaryMedals = []string{"🥇", "🥈", "🥉", "4️⃣", "5️⃣"}

func formatSummary(summary models.DailySummary) string {
	var b strings.Builder
	b.WriteString("📊 *DAILY REPORT*\n")
	b.WriteString(fmt.Sprintf("🗓️ %s\n\n", escapeMarkdownV2(summary.Date.Format("January 2, 2006"))))

	if len(summary.TopPromotions) > 0 {
		b.WriteString("🔥 *TOP PROMOTIONS*\n")
		for i, p := range summary.TopPromotions {
			medal := "•"
			if i < len(summaryMedals) {
				medal = summaryMedals[i]
			}
			b.WriteString(fmt.Sprintf("%s %s\n   %s \\(%s OFF\\) \\| Score: %s/10\n",
				medal, escapeMarkdownV2(p.Route.Name),
				escapeMarkdownV2(formatMoney(p.Price)),
				escapeMarkdownV2(fmt.Sprintf("%.1f%%", p.DiscountPct)),
				escapeMarkdownV2(fmt.Sprintf("%.1f", p.Score))))
		}
		b.WriteString("\n")
	}

	if len(summary.Falling) > 0 {
		b.WriteString("📉 *FALLING* \\(wait\\!\\):\n")
		for _, t := range summary.Falling {
			b.WriteString(fmt.Sprintf("   • %s \\(%s\\)\n",
				escapeMarkdownV2(t.Route.Name), escapeMarkdownV2(fmt.Sprintf("%.1f%%", t.TrendPct))))
		}
	}
	if len(summary.Rising) > 0 {
		b.WriteString("📈 *RISING* \\(don't buy\\!\\):\n")
		for _, t := range summary.Rising {
			b.WriteString(fmt.Sprintf("   • %s \\(%s\\)\n",
				escapeMarkdownV2(t.Route.Name), escapeMarkdownV2(fmt.Sprintf("%+.1f%%", t.TrendPct))))
		}
	}

	b.WriteString(fmt.Sprintf("\n📊 Routes: %d \\| Checks per route: \\~%d \\| Mode: %s\n",
		summary.RouteCount, summary.ChecksPerRoute, summary.Mode))
	b.WriteString("💡 Tuesdays and Wednesdays tend to run 10\\-15% cheaper\\!")
	return b.String()
}

func formatMoney(v float64) string {
	return fmt.Sprintf("R$ %.2f", v)
}

// sendAnalysis replies to /deal with a plain-text breakdown.
func (c *Client) sendAnalysis(chatID int64, a models.RouteAnalysis) {
	trendEmoji := "➡️"
	switch a.Trend {
	case models.TrendFalling:
		trendEmoji = "📉"
	case models.TrendRising:
		trendEmoji = "📈"
	}
	text := fmt.Sprintf(
		"💎 ANALYSIS: %s\n💰 Current: %s\n📊 Mean: %s\n🏆 Score: %.1f/10\n💎 Min: %s | 📈 Max: %s\n%s Trend: %s (%+.1f%%)\n⏰ %s",
		a.Route.Name, formatMoney(a.Price), formatMoney(a.Mean), a.Score,
		formatMoney(a.Min), formatMoney(a.Max), trendEmoji, a.Trend, a.TrendPct, a.Urgency)
	c.bot.Send(tgbotapi.NewMessage(chatID, text)) //nolint:errcheck
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4) // pre-allocate with room for escapes
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
