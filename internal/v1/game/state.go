package game

import (
	"github.com/alex-gusto/buzzer/internal/v1/types"
	"k8s.io/utils/set"
)

// Stage is the phase of the active question.
type Stage string

const (
	// StageAwaitingHostDecision means the host is judging one player's answer.
	StageAwaitingHostDecision Stage = "awaitingHostDecision"
	// StageOpenForBuzz means any eligible player may claim the question.
	StageOpenForBuzz Stage = "openForBuzz"
)

// Player is one participant of a room.
type Player struct {
	Id       types.PlayerIdType
	Name     string
	JoinedAt types.Millis
	Score    int
	BuzzedAt types.Millis // 0 means the player has not buzzed this question
}

// ActiveQuestion is the single question currently in play in a room.
type ActiveQuestion struct {
	Id    string
	Stage Stage

	// AssignedTo is the player whose turn triggered activation.
	AssignedTo types.PlayerIdType
	// AnsweringPlayerId is the player the host is currently judging.
	// Empty while buzzers are open.
	AnsweringPlayerId types.PlayerIdType
	// Attempted holds every player who has had a shot at this question.
	Attempted set.Set[types.PlayerIdType]
	// TurnIndex is captured at activation and drives turn advancement after
	// the question finishes, so mid-question setTurn calls do not perturb
	// the rotation.
	TurnIndex int

	// Category is the slot category, never the provider's sub-category.
	Category         string
	Difficulty       string
	Question         string
	CorrectAnswer    string
	IncorrectAnswers []string
	Choices          []string
	Points           int
}

// QuestionResult is the record of a finished question.
type QuestionResult struct {
	Id                string
	Category          string
	Difficulty        string
	Question          string
	CorrectAnswer     string
	AnsweredCorrectly bool
	AnsweredBy        types.PlayerIdType // empty when nobody answered
	PointsAwarded     int
}
