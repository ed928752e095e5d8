package types

import (
	"context"
	"strings"
	"time"
)

// --- Core Domain Types ---

// RoleType defines the two principals a room connection can represent.
type RoleType string

// RoomCodeType is the 4-character identifier players type to find a room.
// Codes are stored and compared in canonical uppercase form.
type RoomCodeType string

// PlayerIdType is the server-issued opaque identifier for a player.
type PlayerIdType string

// Millis is a unix timestamp in milliseconds, the wire format for every
// time value the API exposes.
type Millis int64

// Role constants. A connection is unknown until it registers.
const (
	RoleTypeHost    RoleType = "host"
	RoleTypePlayer  RoleType = "player"
	RoleTypeUnknown RoleType = "unknown"
)

// NowMillis returns the current wall clock as Millis.
func NowMillis() Millis {
	return Millis(time.Now().UnixMilli())
}

// Canonical returns the uppercase form of a room code. Lookups accept any
// casing; storage always uses the canonical form.
func (c RoomCodeType) Canonical() RoomCodeType {
	return RoomCodeType(strings.ToUpper(strings.TrimSpace(string(c))))
}

// --- Question Types ---

// Difficulty constants accepted from hosts. Providers may return other
// strings; scoring treats anything unrecognized as a default-weight question.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Question is a single trivia question as supplied by a QuestionSource.
type Question struct {
	Id               string   `json:"id"`
	Category         string   `json:"category"`
	Difficulty       string   `json:"difficulty"`
	Text             string   `json:"question"`
	CorrectAnswer    string   `json:"correctAnswer"`
	IncorrectAnswers []string `json:"incorrectAnswers"`
}

// QuestionRequest narrows what FetchQuestion may return. Empty Category or
// Difficulty means "any". ExcludeIds lists question ids the room has already
// used; a source must not return any of them.
type QuestionRequest struct {
	Category   string
	Difficulty string
	ExcludeIds []string
}

// --- Shared Interfaces ---

// QuestionSource supplies categories and questions to rooms. The game
// package depends on this interface rather than on the trivia package so
// tests can substitute a stub source.
type QuestionSource interface {
	// FetchCategories returns group-slug -> sub-slugs. Best effort; rooms
	// tolerate an error here and simply skip category preloading.
	FetchCategories(ctx context.Context) (map[string][]string, error)
	// FetchQuestion returns one question honoring the request, or an error
	// when no fresh question can be supplied.
	FetchQuestion(ctx context.Context, req QuestionRequest) (*Question, error)
}

// Sink is the narrow write capability a room connection must provide.
// The transport package implements it over a WebSocket; tests substitute
// an in-memory recorder. This keeps the game package transport-agnostic.
type Sink interface {
	// WriteJSON marshals v and delivers it to the peer. An error marks the
	// sink dead; callers drop dead sinks without retrying.
	WriteJSON(v any) error
	// Closed reports whether the sink can no longer accept writes.
	Closed() bool
	// Close releases the underlying connection. Idempotent.
	Close() error
}
