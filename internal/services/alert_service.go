// Alert ingestion pipeline.
//
// This file implements the alert ingestion pipeline: field validation,
// per-identifier quota enforcement, registration lookup, and dispatch to
// the delivery gateway. The validation sequence short-circuits on the first
// failure and every failure maps to exactly one sentinel from errors.go, so
// the HTTP handler can translate outcomes without inspecting error text.
//
// Delivery is at-most-once: if the Telegram send fails the alert
// is lost and the submitting client is told so synchronously. There is no
// retry queue and no alert history.
package services

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tbourn/go-alert-relay/internal/eth"
	"github.com/tbourn/go-alert-relay/internal/ratelimit"
)

var (
	// alertsAccepted counts alerts that passed validation and lookup.
	alertsAccepted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_alerts_accepted_total",
		Help: "Total number of alert submissions that reached delivery.",
	})

	// alertsRejected counts rejected submissions by reason.
	alertsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_alerts_rejected_total",
		Help: "Total number of rejected alert submissions.",
	}, []string{"reason"})

	// alertsDelivered counts successful Telegram sends.
	alertsDelivered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_alerts_delivered_total",
		Help: "Total number of alerts delivered to a chat.",
	})
)

func init() {
	prometheus.MustRegister(alertsAccepted, alertsRejected, alertsDelivered)
}

// AlertSender is the delivery gateway contract: one formatted message to one
// chat, no retry. Implemented by bot.Gateway.
type AlertSender interface {
	Send(ctx context.Context, chatID int64, alertType, message string) error
}

// AlertRequest is an inbound alert submission. Identifier carries the raw
// value as submitted; it is also the rate-limit key.
type AlertRequest struct {
	Identifier string
	Message    string
	AlertType  string
}

// AlertService validates, throttles, and delivers alert submissions.
type AlertService struct {
	// Reg resolves identifiers to chats.
	Reg *RegistrationService
	// Limiter is the per-identifier fixed-window quota.
	Limiter *ratelimit.Window
	// Gateway performs the actual Telegram send.
	Gateway AlertSender

	// MaxMessageLen caps the alert message by rune length.
	MaxMessageLen int
	// MaxAlertTypeLen caps the alert type tag by rune length.
	MaxAlertTypeLen int
}

// NewAlertService constructs an AlertService with the given collaborators
// and payload limits.
func NewAlertService(reg *RegistrationService, limiter *ratelimit.Window, gw AlertSender, maxMessageLen, maxAlertTypeLen int) *AlertService {
	return &AlertService{
		Reg:             reg,
		Limiter:         limiter,
		Gateway:         gw,
		MaxMessageLen:   maxMessageLen,
		MaxAlertTypeLen: maxAlertTypeLen,
	}
}

// Send runs the full ingestion pipeline for req.
//
// Validation order (first failure wins): missing fields, identifier format,
// message length, alert type length, rate limit, registration lookup. On
// success the alert is handed to the gateway exactly once.
func (s *AlertService) Send(ctx context.Context, req AlertRequest) error {
	if req.Identifier == "" || req.Message == "" || req.AlertType == "" {
		alertsRejected.WithLabelValues("missing_fields").Inc()
		return ErrMissingFields
	}
	if !eth.IsValidIdentifier(req.Identifier) {
		alertsRejected.WithLabelValues("invalid_identifier").Inc()
		return ErrInvalidIdentifier
	}
	if utf8.RuneCountInString(req.Message) > s.MaxMessageLen {
		alertsRejected.WithLabelValues("message_too_long").Inc()
		return ErrMessageTooLong
	}
	if utf8.RuneCountInString(req.AlertType) > s.MaxAlertTypeLen {
		alertsRejected.WithLabelValues("alert_type_too_long").Inc()
		return ErrAlertTypeTooLong
	}
	// The quota is keyed by the raw identifier string, not the resolved
	// address, and is consumed before the (potentially expensive) lookup.
	if !s.Limiter.Allow(req.Identifier) {
		alertsRejected.WithLabelValues("rate_limited").Inc()
		return ErrRateLimited
	}

	chatID, err := s.Reg.FindByIdentifier(ctx, req.Identifier)
	if err != nil {
		// An unknown ENS name and an unregistered address are the same
		// outcome for the submitting client: nobody is listening.
		if errors.Is(err, ErrNotRegistered) || errors.Is(err, ErrResolutionFailed) {
			alertsRejected.WithLabelValues("not_found").Inc()
			return ErrIdentifierNotFound
		}
		return err
	}

	alertsAccepted.Inc()
	if err := s.Gateway.Send(ctx, chatID, req.AlertType, req.Message); err != nil {
		return ErrDeliveryFailed
	}
	alertsDelivered.Inc()
	return nil
}
