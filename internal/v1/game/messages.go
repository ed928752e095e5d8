package game

import (
	"github.com/alex-gusto/buzzer/internal/v1/types"
)

// Outgoing WebSocket message types. Incoming types live in the transport
// package; these are defined here because the room core itself emits state
// and error frames.
const (
	MessageTypeState      = "state"
	MessageTypeError      = "error"
	MessageTypeRegistered = "registered"
)

// StateMessage carries a role-aware snapshot after every transition.
type StateMessage struct {
	Type    string    `json:"type"`
	Payload *Snapshot `json:"payload"`
}

// ErrorMessage tells one client why its request failed, or that the room
// is gone.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// RegisteredMessage confirms a successful registration.
type RegisteredMessage struct {
	Type     string             `json:"type"`
	Role     types.RoleType     `json:"role"`
	PlayerId types.PlayerIdType `json:"playerId,omitempty"`
}

func NewStateMessage(snapshot *Snapshot) StateMessage {
	return StateMessage{Type: MessageTypeState, Payload: snapshot}
}

func NewErrorMessage(message string) ErrorMessage {
	return ErrorMessage{Type: MessageTypeError, Message: message}
}

func NewRegisteredMessage(role types.RoleType, playerId types.PlayerIdType) RegisteredMessage {
	return RegisteredMessage{Type: MessageTypeRegistered, Role: role, PlayerId: playerId}
}
