// Delivery gateway.
//
// Gateway is the single seam between the alert pipeline and the messaging
// transport: it formats the display string and performs exactly one send
// attempt. If the send fails the alert is lost and the caller is told so;
// the relay is not a durable queue.
package bot

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotInitialized is returned when the gateway has no transport to send
// through. This indicates a configuration error at bootstrap, not a
// per-request condition.
var ErrNotInitialized = errors.New("telegram transport not initialized")

// Sender is the narrow messaging-transport contract: deliver text to a chat.
// Implemented by Client (live Telegram) and by test fakes.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Gateway formats and sends a single alert message to a chat.
type Gateway struct {
	// Sender is the underlying transport. Nil means misconfigured bootstrap.
	Sender Sender
	// Timeout bounds each send attempt.
	Timeout time.Duration
	// now is an injectable clock for deterministic timestamp tests.
	now func() time.Time
}

// NewGateway constructs a Gateway over the given transport.
func NewGateway(sender Sender, timeout time.Duration) *Gateway {
	return &Gateway{Sender: sender, Timeout: timeout, now: time.Now}
}

// Send composes the alert display string and dispatches it to chatID. The
// body embeds the alert type, the free-text message, and the send timestamp
// formatted as "YYYY-MM-DD HH:MM:SS UTC". One attempt, no retry.
func (g *Gateway) Send(ctx context.Context, chatID int64, alertType, message string) error {
	if g == nil || g.Sender == nil {
		return ErrNotInitialized
	}
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}

	text := fmt.Sprintf("🚨 %s\n\n%s\n\n%s UTC",
		alertType,
		message,
		g.now().UTC().Format("2006-01-02 15:04:05"),
	)
	if err := g.Sender.SendMessage(ctx, chatID, text); err != nil {
		return fmt.Errorf("send alert to chat %d: %w", chatID, err)
	}
	return nil
}
