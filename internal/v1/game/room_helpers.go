package game

import (
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/alex-gusto/buzzer/internal/v1/types"
)

// Room helper functions - pure business logic, fully testable

// roomCodeAlphabet deliberately omits 0/O/1/I so codes survive being read
// aloud or scribbled on a whiteboard.
const roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	roomCodeLength  = 4
	shareCodeLength = 4
)

// randomRoomCode draws one candidate room code. Uniqueness is the
// registry's job; this only supplies randomness.
func randomRoomCode() types.RoomCodeType {
	b := make([]byte, roomCodeLength)
	for i := range b {
		b[i] = roomCodeAlphabet[rand.IntN(len(roomCodeAlphabet))]
	}
	return types.RoomCodeType(b)
}

// randomShareCode draws one candidate 4-digit share code.
func randomShareCode() string {
	b := make([]byte, shareCodeLength)
	for i := range b {
		b[i] = byte('0' + rand.IntN(10))
	}
	return string(b)
}

// newHostSecret issues the per-room host credential.
func newHostSecret() string {
	return uuid.NewString()
}

// newPlayerId issues a player identifier.
func newPlayerId() types.PlayerIdType {
	return types.PlayerIdType(uuid.NewString())
}

// isShareCodeFormat reports whether s is exactly four decimal digits.
func isShareCodeFormat(s string) bool {
	if len(s) != shareCodeLength {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
