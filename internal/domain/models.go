// Package domain defines the persistence model for node-operator
// registrations. The type is mapped with GORM and forms the core data layer
// of the alert relay.
package domain

import (
	"time"
)

// Registration binds a resolved Ethereum address to a Telegram chat. It is
// the single durable entity of the relay: created when a registration or
// change flow completes, read on every /show, /change and alert lookup, and
// deleted on change (old row) or opt-out.
//
// Fields:
//   - Address: canonical lowercase hex address; primary key. All lookups go
//     through this key, so case variation in user input never causes a miss.
//   - ENS: the ENS name that resolved to Address at registration time; nil
//     when the operator registered a bare address.
//   - ChatID: Telegram chat the alerts are pushed to. Uniqueness across rows
//     is NOT enforced by the schema; see repo.FindRegistrationByChat.
//   - CreatedAt: server-assigned creation timestamp (UTC).
//
// The JSON field names (ens, address, chatId, createdAt) are a contract for
// migration tooling and must not change.
type Registration struct {
	Address   string    `json:"address"   gorm:"type:varchar(42);primaryKey"`
	ENS       *string   `json:"ens"       gorm:"type:varchar(255)"`
	ChatID    int64     `json:"chatId"    gorm:"not null;index:idx_registration_chat"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName returns the database table name for Registration.
func (Registration) TableName() string { return "registrations" }
