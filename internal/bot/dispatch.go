// Conversation state machine.
//
// Dispatcher.Handle is a single dispatch function per inbound chat event: it
// pattern-matches on the chat's current state and the message content, runs
// the required service calls, and returns the reply text plus (implicitly)
// the next state via the StateStore. Keeping it transport-free makes every
// transition exhaustively testable without a live Telegram session.
//
// Transition rules worth calling out:
//   - A recognized slash command unconditionally replaces any pending flow
//     for that chat; the abandoned flow gets no farewell message.
//   - Unrecognized slash commands reply with a fixed message and leave the
//     pending state untouched.
//   - A failed registration or change attempt keeps the chat in its flow so
//     the operator can just send a corrected identifier.
//   - Any reply other than y/yes cancels a pending deletion.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tbourn/go-alert-relay/internal/services"
)

// Reply texts. Kept as constants so tests can assert exact transcripts.
const (
	replyAskIdentifier = "Send me the ENS name or Ethereum address you want alerts for."
	replyAskNew        = "Send me the new ENS name or Ethereum address."
	replyAskConfirm    = `Reply "y" or "yes" to confirm deletion. Anything else cancels.`
	replyDeleted       = "Your registration has been deleted. You will no longer receive alerts."
	replyCancelled     = "Deletion cancelled. Your registration is unchanged."
	replyNotRegistered = "You are not registered yet. Send /start to register."
	replyNothingToDo   = "There is nothing to delete: you are not registered."
	replyInvalid       = "That does not look like a valid ENS name or Ethereum address. Please try again."
	replyNoResolve     = "I could not resolve that ENS name. Check the spelling and try again."
	replyServerTrouble = "Something went wrong on our side. Please try again later."
	replyUnknown       = "Unknown command. Send /help to see what I can do."
	replyIdleHint      = "Send /start to register, or /help for the list of commands."

	replyHelp = "I relay alerts from your Ethereum client to this chat.\n\n" +
		"/start – register an ENS name or address\n" +
		"/show – show your current registration\n" +
		"/change – switch to a different ENS name or address\n" +
		"/stop – delete your registration\n" +
		"/help – this message"
)

// Dispatcher drives the per-chat registration state machine.
type Dispatcher struct {
	States *StateStore
	Reg    *services.RegistrationService
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(states *StateStore, reg *services.RegistrationService) *Dispatcher {
	return &Dispatcher{States: states, Reg: reg}
}

// Handle processes one inbound chat message and returns the reply text.
// It never returns an error: every failure becomes a user-visible reply.
func (d *Dispatcher) Handle(ctx context.Context, chatID int64, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if strings.HasPrefix(text, "/") {
		return d.handleCommand(ctx, chatID, text)
	}
	return d.handleFreeform(ctx, chatID, text)
}

// handleCommand runs the Idle-row transitions. Recognized commands replace
// any pending flow first ("last command wins").
func (d *Dispatcher) handleCommand(ctx context.Context, chatID int64, text string) string {
	cmd := strings.ToLower(strings.Fields(text)[0])
	// Telegram appends @botname in group chats.
	if i := strings.Index(cmd, "@"); i > 0 {
		cmd = cmd[:i]
	}

	switch cmd {
	case "/start":
		d.States.Clear(chatID)
		reg, err := d.Reg.FindByChat(ctx, chatID)
		switch {
		case err == nil:
			return fmt.Sprintf("You are already registered as %s.", displayName(reg.ENS, reg.Address))
		case errors.Is(err, services.ErrNotRegistered):
			d.States.Set(chatID, State{Kind: StateAwaitingRegistration})
			return replyAskIdentifier
		default:
			return replyServerTrouble
		}

	case "/show":
		d.States.Clear(chatID)
		reg, err := d.Reg.FindByChat(ctx, chatID)
		switch {
		case err == nil:
			return fmt.Sprintf("You are registered as %s.", displayName(reg.ENS, reg.Address))
		case errors.Is(err, services.ErrNotRegistered):
			return replyNotRegistered
		default:
			return replyServerTrouble
		}

	case "/change":
		d.States.Clear(chatID)
		reg, err := d.Reg.FindByChat(ctx, chatID)
		switch {
		case err == nil:
			d.States.Set(chatID, State{Kind: StateAwaitingChange, Address: reg.Address, ENS: reg.ENS})
			return fmt.Sprintf("You are currently registered as %s. %s", displayName(reg.ENS, reg.Address), replyAskNew)
		case errors.Is(err, services.ErrNotRegistered):
			return replyNotRegistered
		default:
			return replyServerTrouble
		}

	case "/stop":
		d.States.Clear(chatID)
		reg, err := d.Reg.FindByChat(ctx, chatID)
		switch {
		case err == nil:
			d.States.Set(chatID, State{Kind: StateAwaitingDeleteConfirmation, Address: reg.Address, ENS: reg.ENS})
			return fmt.Sprintf("This deletes the registration for %s. %s", displayName(reg.ENS, reg.Address), replyAskConfirm)
		case errors.Is(err, services.ErrNotRegistered):
			return replyNothingToDo
		default:
			return replyServerTrouble
		}

	case "/help":
		d.States.Clear(chatID)
		return replyHelp

	default:
		// Unrecognized command: fixed reply, pending state untouched.
		return replyUnknown
	}
}

// handleFreeform consumes the pending flow, if any.
func (d *Dispatcher) handleFreeform(ctx context.Context, chatID int64, text string) string {
	st := d.States.Get(chatID)

	switch st.Kind {
	case StateAwaitingRegistration:
		reg, err := d.Reg.Register(ctx, chatID, text)
		if err != nil {
			// Remain in the flow so a corrected identifier can follow.
			return registrationErrorReply(err)
		}
		d.States.Clear(chatID)
		return fmt.Sprintf("Registered %s. You will receive alerts in this chat.", displayName(reg.ENS, reg.Address))

	case StateAwaitingChange:
		reg, err := d.Reg.Replace(ctx, chatID, st.Address, text)
		if err != nil {
			return registrationErrorReply(err)
		}
		d.States.Clear(chatID)
		return fmt.Sprintf("Registration updated to %s.", displayName(reg.ENS, reg.Address))

	case StateAwaitingDeleteConfirmation:
		// Any input other than y/yes cancels; either way the flow ends.
		d.States.Clear(chatID)
		switch strings.ToLower(text) {
		case "y", "yes":
			if err := d.Reg.Delete(ctx, st.Address); err != nil {
				return replyServerTrouble
			}
			return replyDeleted
		default:
			return replyCancelled
		}

	default:
		return replyIdleHint
	}
}

// registrationErrorReply maps a failed resolve/register attempt to the reply
// shown while the chat remains in its pending flow.
func registrationErrorReply(err error) string {
	switch {
	case errors.Is(err, services.ErrInvalidIdentifier):
		return replyInvalid
	case errors.Is(err, services.ErrResolutionFailed):
		return replyNoResolve
	default:
		return replyServerTrouble
	}
}

// displayName prefers the ENS alias over the raw address when showing a
// registration back to the operator.
func displayName(ens *string, address string) string {
	if ens != nil && *ens != "" {
		return *ens
	}
	return address
}
