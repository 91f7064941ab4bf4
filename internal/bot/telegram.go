// Telegram transport.
//
// Client wraps the Bot API behind the Sender interface and feeds inbound
// updates to the Dispatcher. Two intake modes exist: long polling (Run) and
// webhook (ProcessUpdate, called from the HTTP handler). Both funnel into
// the same dispatch path, so the state machine behaves identically either
// way.
package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// Client is the live Telegram transport.
type Client struct {
	api *tgbotapi.BotAPI
}

// NewClient authenticates against the Bot API with token.
func NewClient(token string) (*Client, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	return &Client{api: api}, nil
}

// Username returns the authenticated bot's username (for startup logging).
func (c *Client) Username() string {
	return c.api.Self.UserName
}

// SendMessage delivers text to chatID. The Bot API client is synchronous
// and context-free, so the call runs in a goroutine and the context deadline
// is enforced from outside it.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	done := make(chan error, 1)
	go func() {
		_, err := c.api.Send(tgbotapi.NewMessage(chatID, text))
		done <- err
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// Run long-polls the Bot API and dispatches every inbound text message
// until ctx is cancelled. Updates are processed sequentially, which
// preserves the in-order assumption the state machine relies on for
// messages within one chat.
func (c *Client) Run(ctx context.Context, d *Dispatcher) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := c.api.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		c.api.StopReceivingUpdates()
	}()

	log.Info().Str("bot", c.Username()).Msg("telegram polling started")
	for update := range updates {
		c.ProcessUpdate(ctx, &update, d)
	}
	log.Info().Msg("telegram polling stopped")
}

// ProcessUpdate dispatches a single update and sends the reply, if any.
// Non-message updates (edits, callbacks, joins) are ignored.
func (c *Client) ProcessUpdate(ctx context.Context, update *tgbotapi.Update, d *Dispatcher) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}
	chatID := update.Message.Chat.ID
	reply := d.Handle(ctx, chatID, update.Message.Text)
	if reply == "" {
		return
	}
	if err := c.SendMessage(ctx, chatID, reply); err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("send reply")
	}
}
