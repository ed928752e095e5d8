package game

import (
	"github.com/alex-gusto/buzzer/internal/v1/types"
)

// --- Snapshot DTOs ---

// PlayerRef is how snapshots point at a player. Every cross-reference goes
// through playerRefLocked so a player who already left never shows up as a
// dangling id.
type PlayerRef struct {
	PlayerId types.PlayerIdType `json:"playerId"`
	Name     string             `json:"name"`
}

// PlayerSnapshot is one player as serialized to clients.
type PlayerSnapshot struct {
	Id       types.PlayerIdType `json:"id"`
	Name     string             `json:"name"`
	Score    int                `json:"score"`
	JoinedAt types.Millis       `json:"joinedAt"`
	BuzzedAt types.Millis       `json:"buzzedAt,omitempty"`
	IsTurn   bool               `json:"isTurn"`
}

// ActiveQuestionSnapshot is the in-play question as serialized to clients.
// Choices and CorrectAnswer are populated for hosts only.
type ActiveQuestionSnapshot struct {
	Id                 string               `json:"id"`
	Stage              Stage                `json:"stage"`
	AssignedTo         *PlayerRef           `json:"assignedTo"`
	AnsweringPlayer    *PlayerRef           `json:"answeringPlayer"`
	AttemptedPlayerIds []types.PlayerIdType `json:"attemptedPlayerIds"`
	Category           string               `json:"category"`
	Difficulty         string               `json:"difficulty"`
	Question           string               `json:"question"`
	Points             int                  `json:"points"`
	Choices            []string             `json:"choices,omitempty"`
	CorrectAnswer      string               `json:"correctAnswer,omitempty"`
}

// ResultSnapshot is the last finished question as serialized to clients.
// CorrectAnswer is populated for hosts only.
type ResultSnapshot struct {
	Id                string     `json:"id"`
	Category          string     `json:"category"`
	Difficulty        string     `json:"difficulty"`
	Question          string     `json:"question"`
	CorrectAnswer     string     `json:"correctAnswer,omitempty"`
	AnsweredCorrectly bool       `json:"answeredCorrectly"`
	AnsweredBy        *PlayerRef `json:"answeredBy"`
	PointsAwarded     int        `json:"pointsAwarded"`
}

// Snapshot is the full room projection sent to one connection. The same
// transition produces different snapshots per role: hosts additionally see
// correctAnswer, choices, shareCode and shareCodeIssuedAt.
type Snapshot struct {
	Code               types.RoomCodeType      `json:"code"`
	CreatedAt          types.Millis            `json:"createdAt"`
	Players            []PlayerSnapshot        `json:"players"`
	CurrentTurn        *PlayerRef              `json:"currentTurn"`
	QuestionActive     bool                    `json:"questionActive"`
	BuzzedBy           *PlayerRef              `json:"buzzedBy"`
	ActiveQuestion     *ActiveQuestionSnapshot `json:"activeQuestion"`
	LastResult         *ResultSnapshot         `json:"lastResult"`
	UsedQuestions      []string                `json:"usedQuestions"`
	UsedCategorySlots  []string                `json:"usedCategorySlots"`
	Categories         map[string][]string     `json:"categories,omitempty"`
	ShareCode          string                  `json:"shareCode,omitempty"`
	ShareCodeIssuedAt  types.Millis            `json:"shareCodeIssuedAt,omitempty"`
	ShareCodeExpiresAt types.Millis            `json:"shareCodeExpiresAt,omitempty"`
}

// RoomListing is the compact per-room row returned by the room list.
type RoomListing struct {
	Code           types.RoomCodeType `json:"code"`
	CreatedAt      types.Millis       `json:"createdAt"`
	PlayerCount    int                `json:"playerCount"`
	QuestionActive bool               `json:"questionActive"`
	HostOnline     bool               `json:"hostOnline"`
	ShareActive    bool               `json:"shareActive"`
	ShareExpiresAt types.Millis       `json:"shareExpiresAt,omitempty"`
}

// --- builders ---

// SnapshotFor projects the room for one consumer role. Unauthenticated reads
// must pass the player role so answers and share digits stay host-only.
func (r *Room) SnapshotFor(role types.RoleType) *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cleanupShareLocked()
	return r.snapshotLocked(role)
}

func (r *Room) snapshotLocked(role types.RoleType) *Snapshot {
	isHost := role == types.RoleTypeHost

	players := make([]PlayerSnapshot, 0, len(r.turnOrder))
	for _, id := range r.turnOrder {
		p, ok := r.players[id]
		if !ok {
			continue
		}
		players = append(players, PlayerSnapshot{
			Id:       p.Id,
			Name:     p.Name,
			Score:    p.Score,
			JoinedAt: p.JoinedAt,
			BuzzedAt: p.BuzzedAt,
			IsTurn:   r.currentTurnId == p.Id,
		})
	}

	snap := &Snapshot{
		Code:               r.Code,
		CreatedAt:          r.createdAt,
		Players:            players,
		CurrentTurn:        r.playerRefLocked(r.currentTurnId),
		QuestionActive:     r.questionActive,
		BuzzedBy:           r.playerRefLocked(r.buzzedBy),
		ActiveQuestion:     r.activeQuestionSnapshotLocked(isHost),
		LastResult:         r.lastResultSnapshotLocked(isHost),
		UsedQuestions:      r.usedQuestions.SortedList(),
		UsedCategorySlots:  r.usedCategorySlots.SortedList(),
		Categories:         r.categories,
		ShareCodeExpiresAt: r.shareCodeExpiresAt,
	}
	if isHost {
		snap.ShareCode = r.shareCode
		snap.ShareCodeIssuedAt = r.shareCodeIssuedAt
	}
	return snap
}

func (r *Room) activeQuestionSnapshotLocked(isHost bool) *ActiveQuestionSnapshot {
	active := r.activeQuestion
	if active == nil {
		return nil
	}

	snap := &ActiveQuestionSnapshot{
		Id:                 active.Id,
		Stage:              active.Stage,
		AssignedTo:         r.playerRefLocked(active.AssignedTo),
		AnsweringPlayer:    r.playerRefLocked(active.AnsweringPlayerId),
		AttemptedPlayerIds: active.Attempted.SortedList(),
		Category:           active.Category,
		Difficulty:         active.Difficulty,
		Question:           active.Question,
		Points:             active.Points,
	}
	if isHost {
		snap.Choices = active.Choices
		snap.CorrectAnswer = active.CorrectAnswer
	}
	return snap
}

func (r *Room) lastResultSnapshotLocked(isHost bool) *ResultSnapshot {
	result := r.lastResult
	if result == nil {
		return nil
	}

	snap := &ResultSnapshot{
		Id:                result.Id,
		Category:          result.Category,
		Difficulty:        result.Difficulty,
		Question:          result.Question,
		AnsweredCorrectly: result.AnsweredCorrectly,
		AnsweredBy:        r.playerRefLocked(result.AnsweredBy),
		PointsAwarded:     result.PointsAwarded,
	}
	if isHost {
		snap.CorrectAnswer = result.CorrectAnswer
	}
	return snap
}

// playerRefLocked resolves an id to {playerId, name}, or nil when the player
// no longer exists.
func (r *Room) playerRefLocked(id types.PlayerIdType) *PlayerRef {
	if id == "" {
		return nil
	}
	p, ok := r.players[id]
	if !ok {
		return nil
	}
	return &PlayerRef{PlayerId: p.Id, Name: p.Name}
}

// Listing projects the room into its room-list row.
func (r *Room) Listing() RoomListing {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cleanupShareLocked()
	return RoomListing{
		Code:           r.Code,
		CreatedAt:      r.createdAt,
		PlayerCount:    len(r.players),
		QuestionActive: r.questionActive,
		HostOnline:     r.conns.HostOnline(),
		ShareActive:    r.shareCode != "",
		ShareExpiresAt: r.shareCodeExpiresAt,
	}
}
