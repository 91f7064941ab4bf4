// Telegram webhook handler.
//
// In webhook mode Telegram POSTs each update to /webhook/<secret>. The
// secret path segment is the only authentication on this route, so it is
// compared in constant time. Parsed updates feed the same dispatcher as the
// polling transport; processing outcomes become chat replies, never HTTP
// errors, so Telegram does not re-deliver the update.
package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tbourn/go-alert-relay/internal/bot"
)

// WebhookDeps wires the Telegram transport into the webhook route.
type WebhookDeps struct {
	Client     *bot.Client
	Dispatcher *bot.Dispatcher
	Secret     string
}

// Webhook godoc
// @ID          telegramWebhook
// @Summary     Telegram update webhook
// @Description Receives Bot API updates when TELEGRAM_MODE=webhook. Not meant for human callers.
// @Tags        Telegram
// @Accept      json
// @Produce     json
// @Param       secret  path  string  true  "Webhook secret path segment"
// @Success     200 {string} string "update accepted"
// @Failure     401 {object} handlers.ErrorResponse "Wrong secret"
// @Failure     500 {object} handlers.ErrorResponse "Unparseable update"
// @Router      /webhook/{secret} [post]
func (h *Handlers) Webhook(c *gin.Context) {
	if h.webhook.Client == nil || h.webhook.Secret == "" {
		fail(c, http.StatusNotFound, "Not found", nil)
		return
	}
	if subtle.ConstantTimeCompare([]byte(c.Param("secret")), []byte(h.webhook.Secret)) != 1 {
		fail(c, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}

	var update tgbotapi.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		fail(c, http.StatusInternalServerError, "Failed to parse update", err)
		return
	}

	h.webhook.Client.ProcessUpdate(c.Request.Context(), &update, h.webhook.Dispatcher)
	c.Status(http.StatusOK)
}
