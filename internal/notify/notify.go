// Package notify provides the alert dispatch channels: Discord webhook
// embeds and Telegram messages rendered from one channel-neutral message
// shape.
package notify

import "coinsentry/internal/logger"

// Embed colors per alert category.
const (
	ColorSignal       = 16763904 // orange
	ColorTop          = 16711680 // red
	ColorDipBuy       = 3066993  // green
	ColorPriceBuy     = 3447003  // blue
	ColorPriceSell    = 15158332 // red
	ColorProfitTaking = 16744448 // gold
	ColorTrailingStop = 10038562 // maroon
	ColorSummary      = 5793266  // blurple
)

// Field is one name/value pair rendered inside a message.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Message is a channel-neutral alert. Each channel renders it natively:
// Discord as an embed, Telegram as MarkdownV2 text.
type Message struct {
	Title       string
	Description string
	Color       int
	Fields      []Field
	Footer      string
}

// Notifier delivers one message. A nil error means the message was
// confirmed dispatched; callers record cooldowns only on success.
type Notifier interface {
	Send(msg Message) error
}

// Multi fans one message out to several channels. Dispatch counts as
// successful if at least one channel delivered; a later duplicate on a
// failed channel is worse than a missed one.
type Multi struct {
	channels []Notifier
}

func NewMulti(channels ...Notifier) *Multi {
	return &Multi{channels: channels}
}

func (m *Multi) Send(msg Message) error {
	if len(m.channels) == 0 {
		return nil
	}
	var lastErr error
	delivered := false
	for _, ch := range m.channels {
		if err := ch.Send(msg); err != nil {
			logger.Warn("Notification channel failed: %v", err)
			lastErr = err
			continue
		}
		delivered = true
	}
	if delivered {
		return nil
	}
	return lastErr
}
