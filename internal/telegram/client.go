// Package telegram sends reload and prediction notifications via the Telegram Bot API.
// Messages use MarkdownV2 and are retried with a linear backoff.
package telegram

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rewired-gh/cricketoracle/internal/models"
	"github.com/rewired-gh/cricketoracle/internal/stats"
)

// sender is the part of tgbotapi.BotAPI the client uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Client handles Telegram notifications
type Client struct {
	bot            sender
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	return newClient(bot, chatID, maxRetries, retryDelayBase)
}

func newClient(bot sender, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
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

// NotifyReload announces a freshly loaded snapshot.
func (c *Client) NotifyReload(snap *stats.Snapshot) error {
	return c.send(formatReload(snap))
}

// NotifyReloadFailure reports a reload that left the previous data in place.
func (c *Client) NotifyReloadFailure(err error) error {
	return c.send(formatReloadFailure(err))
}

// NotifyPrediction sends a served prediction.
func (c *Client) NotifyPrediction(p *models.PredictionResult) error {
	return c.send(formatPrediction(p))
}

func (c *Client) send(text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		if i < c.maxRetries-1 {
			time.Sleep(c.retryDelayBase * time.Duration(i+1))
		}
	}

	return fmt.Errorf("failed to send message after %d retries: %w", c.maxRetries, lastErr)
}

func formatReload(snap *stats.Snapshot) string {
	var b strings.Builder
	b.WriteString("🏏 *Match data reloaded*\n\n")
	fmt.Fprintf(&b, "📅 Loaded: %s\n", escapeMarkdownV2(snap.LoadedAt.Format("2006-01-02 15:04:05")))
	fmt.Fprintf(&b, "👥 Teams: %d\n", snap.Len())
	fmt.Fprintf(&b, "🎯 Matches: %d\n", snap.Matches)
	if snap.Anomalies > 0 {
		fmt.Fprintf(&b, "⚠️ Winner not in match: %d\n", snap.Anomalies)
	}
	fmt.Fprintf(&b, "🆔 `%s`\n", snap.ID)
	return b.String()
}

func formatReloadFailure(err error) string {
	return fmt.Sprintf("🚨 *Reload failed*\n\nPrevious data is still being served\\.\n\n%s\n",
		escapeMarkdownV2(err.Error()))
}

func formatPrediction(p *models.PredictionResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏏 *%s vs %s*\n\n", escapeMarkdownV2(p.Team1), escapeMarkdownV2(p.Team2))
	fmt.Fprintf(&b, "   %s: %s win rate, *%s* chance\n",
		escapeMarkdownV2(p.Team1),
		escapeMarkdownV2(fmt.Sprintf("%.2f%%", p.Team1Pct)),
		escapeMarkdownV2(fmt.Sprintf("%.2f%%", p.Team1Chance)))
	fmt.Fprintf(&b, "   %s: %s win rate, *%s* chance\n\n",
		escapeMarkdownV2(p.Team2),
		escapeMarkdownV2(fmt.Sprintf("%.2f%%", p.Team2Pct)),
		escapeMarkdownV2(fmt.Sprintf("%.2f%%", p.Team2Chance)))
	b.WriteString(escapeMarkdownV2(p.Verdict))
	b.WriteString("\n")
	return b.String()
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
