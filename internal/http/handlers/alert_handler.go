// Alert ingestion HTTP handler.
//
// This file exposes the endpoint client software calls when a node crashes
// or emits a warning:
//   - POST /api/alert
//
// The handler is transport-thin: it binds the payload, delegates to
// services.AlertService, and translates the service sentinels into the wire
// statuses the node-side clients depend on.
package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-alert-relay/internal/services"
)

// AlertRequest is the JSON payload for an alert submission. The identifier
// field is named "ens" on the wire for compatibility with existing clients;
// it accepts either an ENS name or a hex address.
type AlertRequest struct {
	ENS       string `json:"ens" example:"mynode.eth"`
	Message   string `json:"message" example:"geth process exited with code 1"`
	AlertType string `json:"alertType" example:"CRASH"`
}

// Handlers bundles the dependencies of all HTTP endpoints.
type Handlers struct {
	alerts  *services.AlertService
	webhook WebhookDeps

	// Preformatted quota message, e.g. "Rate limit exceeded. Maximum 100
	// alerts per 24h0m0s per identifier." built once from config.
	rateLimitMsg string
}

// New constructs the handler set. rateMax/rateWindow only feed the 429
// message text; enforcement lives in the alert service. webhook may be
// zero-valued in polling mode.
func New(alerts *services.AlertService, rateMax int, rateWindow fmt.Stringer, webhook WebhookDeps) *Handlers {
	return &Handlers{
		alerts:       alerts,
		webhook:      webhook,
		rateLimitMsg: fmt.Sprintf("Rate limit exceeded. Maximum %d alerts per %s per identifier.", rateMax, rateWindow),
	}
}

// PostAlert godoc
// @ID          postAlert
// @Summary     Submit an alert
// @Description Validates the submission, resolves the identifier to a registered chat, and pushes the alert via Telegram. One delivery attempt, no retry.
// @Tags        Alerts
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.AlertRequest  true  "Alert payload"
//
// @Success     200  {object} handlers.SuccessResponse
// @Failure     400  {object} handlers.ErrorResponse "Missing or invalid fields"
// @Failure     404  {object} handlers.ErrorResponse "Identifier not registered"
// @Failure     429  {object} handlers.ErrorResponse "Per-identifier quota exhausted"
// @Failure     500  {object} handlers.ErrorResponse "Delivery or dependency failure"
// @Router      /alert [post]
func (h *Handlers) PostAlert(c *gin.Context) {
	var req AlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	err := h.alerts.Send(c.Request.Context(), services.AlertRequest{
		Identifier: req.ENS,
		Message:    req.Message,
		AlertType:  req.AlertType,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMissingFields):
			fail(c, http.StatusBadRequest, "Missing required fields: ens, message, alertType", nil)
		case errors.Is(err, services.ErrInvalidIdentifier):
			fail(c, http.StatusBadRequest, "Invalid ENS name or address format", nil)
		case errors.Is(err, services.ErrMessageTooLong):
			fail(c, http.StatusBadRequest,
				fmt.Sprintf("Message exceeds maximum length of %d characters", h.alerts.MaxMessageLen), nil)
		case errors.Is(err, services.ErrAlertTypeTooLong):
			fail(c, http.StatusBadRequest,
				fmt.Sprintf("Alert type exceeds maximum length of %d characters", h.alerts.MaxAlertTypeLen), nil)
		case errors.Is(err, services.ErrRateLimited):
			fail(c, http.StatusTooManyRequests, h.rateLimitMsg, nil)
		case errors.Is(err, services.ErrIdentifierNotFound):
			failDetails(c, http.StatusNotFound, "Identifier not found",
				"No registration exists for this ENS name or address. Register it via the Telegram bot first.")
		default:
			fail(c, http.StatusInternalServerError, "Failed to send alert. Please try again later.", err)
		}
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Success: true, Message: "Alert sent successfully"})
}
