// Package eth implements identifier handling for the relay: classification
// of user-supplied identifiers (ENS name vs. hex address), EIP-55 address
// validation/normalization, and ENS resolution against an Ethereum JSON-RPC
// endpoint.
//
// The functions in this file are pure and stateless; resolution lives in
// resolver.go behind the Resolver interface so the conversation and alert
// flows can be tested without a live chain.
package eth

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInvalidAddress is returned when an address-style identifier fails the
// hex format or EIP-55 checksum rules.
var ErrInvalidAddress = errors.New("invalid ethereum address")

// Kind classifies an identifier string.
type Kind int

const (
	// KindAddress is a hex address identifier (the default classification).
	KindAddress Kind = iota
	// KindName is an ENS-style name identifier (contains a dot).
	KindName
)

// minNameLen is the shortest string treated as an ENS name. "a.b" and
// shorter are rejected as names; real 2LD names under .eth are longer.
const minNameLen = 3

// Classify reports whether identifier looks like an ENS name or a hex
// address. Anything containing a dot and longer than minNameLen is treated
// as a name; everything else falls through to address handling (and its
// stricter validation).
func Classify(identifier string) Kind {
	if len(identifier) > minNameLen && strings.Contains(identifier, ".") {
		return KindName
	}
	return KindAddress
}

// NormalizeAddress validates raw against Ethereum address rules and returns
// the canonical lowercase form.
//
// Accepted inputs: "0x" + 40 hex digits, either all one case (no checksum
// information) or mixed-case with a correct EIP-55 checksum. A mixed-case
// address with a wrong checksum is rejected: it is more likely a typo than
// an intentionally un-checksummed address.
func NormalizeAddress(raw string) (string, error) {
	if !strings.HasPrefix(raw, "0x") && !strings.HasPrefix(raw, "0X") {
		return "", ErrInvalidAddress
	}
	if !common.IsHexAddress(raw) {
		return "", ErrInvalidAddress
	}
	hex := raw[2:]
	if strings.ToLower(hex) != hex && strings.ToUpper(hex) != hex {
		// Mixed case carries an EIP-55 checksum; it must verify.
		if common.HexToAddress(raw).Hex() != raw {
			return "", ErrInvalidAddress
		}
	}
	return "0x" + strings.ToLower(hex), nil
}

// IsValidIdentifier reports whether identifier is acceptable as an alert
// target: either a plausible ENS name or a well-formed address.
func IsValidIdentifier(identifier string) bool {
	switch Classify(identifier) {
	case KindName:
		return len(identifier) > minNameLen
	default:
		_, err := NormalizeAddress(identifier)
		return err == nil
	}
}
