package notify

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram sends messages through the Bot API as MarkdownV2 text.
type Telegram struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewTelegram creates a Telegram channel.
func NewTelegram(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Telegram, error) {
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

	return &Telegram{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// Send renders the message as MarkdownV2 and delivers it with
// linear-backoff retry.
func (t *Telegram) Send(msg Message) error {
	tgMsg := tgbotapi.NewMessage(t.chatID, renderMarkdownV2(msg))
	tgMsg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < t.maxRetries; i++ {
		if _, err := t.bot.Send(tgMsg); err == nil {
			return nil
		} else {
			lastErr = err
		}
		time.Sleep(t.retryDelayBase * time.Duration(i+1))
	}
	return fmt.Errorf("failed after %d retries: %w", t.maxRetries, lastErr)
}

// renderMarkdownV2 formats the channel-neutral message as MarkdownV2 text:
// bold title, plain description, one "name: value" line per field, italic
// footer.
func renderMarkdownV2(msg Message) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("*%s*\n", escapeMarkdownV2(msg.Title)))
	if msg.Description != "" {
		b.WriteString(escapeMarkdownV2(msg.Description))
		b.WriteString("\n")
	}
	if len(msg.Fields) > 0 {
		b.WriteString("\n")
		for _, f := range msg.Fields {
			b.WriteString(fmt.Sprintf("• *%s*: %s\n",
				escapeMarkdownV2(f.Name), escapeMarkdownV2(f.Value)))
		}
	}
	if msg.Footer != "" {
		b.WriteString(fmt.Sprintf("\n_%s_", escapeMarkdownV2(msg.Footer)))
	}

	return b.String()
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
