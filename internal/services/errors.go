// Package services defines the business logic for registrations and alert
// ingestion. This file centralizes common service-level error values so that
// they can be consistently returned by service methods and checked by
// callers.
//
// These errors are intended for internal use by the service layer; the
// translation into user-facing messages, chat replies, or HTTP status codes
// is performed at the handler/dispatcher layer.
package services

import "errors"

// Registration-related errors.
var (
	// ErrNotRegistered indicates that no registration exists for the
	// requested identifier or chat.
	ErrNotRegistered = errors.New("not registered")

	// ErrInvalidIdentifier is returned when an identifier is neither a
	// plausible ENS name nor a well-formed EIP-55 address.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrResolutionFailed is returned when an ENS name cannot be resolved
	// (unknown name, empty record, or RPC failure). Non-fatal by contract.
	ErrResolutionFailed = errors.New("could not resolve name")
)

// Alert-ingestion errors, in validation order.
var (
	// ErrMissingFields is returned when the alert request is missing any of
	// identifier, message, or alert type.
	ErrMissingFields = errors.New("missing required fields")

	// ErrMessageTooLong is returned when the alert message exceeds the
	// configured maximum length.
	ErrMessageTooLong = errors.New("message too long")

	// ErrAlertTypeTooLong is returned when the alert type tag exceeds the
	// configured maximum length.
	ErrAlertTypeTooLong = errors.New("alert type too long")

	// ErrRateLimited is returned when the per-identifier quota for the
	// current window is exhausted.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrIdentifierNotFound is returned when the alert target does not map
	// to any registered chat.
	ErrIdentifierNotFound = errors.New("identifier not found")

	// ErrDeliveryFailed is returned when the Telegram send fails after all
	// validation passed. Alerts are never retried (at-most-once delivery).
	ErrDeliveryFailed = errors.New("delivery failed")
)
