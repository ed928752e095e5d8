package game

import (
	"context"
	"math/rand/v2"

	"go.uber.org/zap"
	"k8s.io/utils/set"

	"github.com/alex-gusto/buzzer/internal/v1/logging"
	"github.com/alex-gusto/buzzer/internal/v1/types"
)

// activationPrep carries everything gathered under the lock in phase one of
// an activation, so the provider call can run without holding the room.
type activationPrep struct {
	requestedCategory string
	providerCategory  string
	difficulty        string
	turnId            types.PlayerIdType
	turnIndex         int
	excludeIds        []string
}

// prepareActivation is phase one of activate: validate preconditions and
// capture inputs under the lock. The caller then fetches a question without
// the lock and commits with commitActivation, which re-checks everything.
func (r *Room) prepareActivation(requestedCategory, difficulty string) (*activationPrep, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.activeQuestion != nil {
		return nil, ErrQuestionAlreadyInPlay
	}
	if r.currentTurnId == "" {
		return nil, ErrTurnRequired
	}

	// A requested category naming a known group resolves to one of its
	// sub-slugs at random; the slot still burns under the group name.
	providerCategory := requestedCategory
	if subs, ok := r.categories[requestedCategory]; ok && len(subs) > 0 {
		providerCategory = subs[rand.IntN(len(subs))]
	}

	// Fail early when the slot is already knowable. The commit re-checks
	// against the question actually returned.
	if requestedCategory != "" && difficulty != "" {
		if r.usedCategorySlots.Has(slotKey(requestedCategory, difficulty)) {
			return nil, ErrSlotAlreadyUsed
		}
	}

	return &activationPrep{
		requestedCategory: requestedCategory,
		providerCategory:  providerCategory,
		difficulty:        difficulty,
		turnId:            r.currentTurnId,
		turnIndex:         r.turnIndex,
		excludeIds:        r.usedQuestions.SortedList(),
	}, nil
}

// commitActivation is phase two of activate. Preconditions are re-validated
// because the lock was released during the fetch; any violation leaves the
// room untouched, including the used-slot set.
func (r *Room) commitActivation(ctx context.Context, prep *activationPrep, q *types.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.activeQuestion != nil {
		return ErrQuestionAlreadyInPlay
	}
	if r.currentTurnId != prep.turnId {
		return ErrQuestionAlreadyInPlay
	}

	slotCategory := prep.requestedCategory
	if slotCategory == "" {
		slotCategory = q.Category
	}
	difficulty := q.Difficulty
	if difficulty == "" {
		difficulty = prep.difficulty
	}

	key := slotKey(slotCategory, difficulty)
	if r.usedCategorySlots.Has(key) {
		return ErrSlotAlreadyUsed
	}
	r.usedCategorySlots.Insert(key)

	r.activeQuestion = &ActiveQuestion{
		Id:                q.Id,
		Stage:             StageAwaitingHostDecision,
		AssignedTo:        prep.turnId,
		AnsweringPlayerId: prep.turnId,
		Attempted:         set.New(prep.turnId),
		TurnIndex:         prep.turnIndex,
		Category:          slotCategory,
		Difficulty:        difficulty,
		Question:          q.Text,
		CorrectAnswer:     q.CorrectAnswer,
		IncorrectAnswers:  q.IncorrectAnswers,
		Choices:           shuffledChoices(q.CorrectAnswer, q.IncorrectAnswers),
		Points:            pointsForDifficulty(difficulty),
	}
	r.questionActive = false
	r.lastResult = nil
	r.buzzedBy = ""
	r.clearBuzzesLocked()

	logging.Info(ctx, "Question activated",
		zap.String("room", string(r.Code)),
		zap.String("questionId", q.Id),
		zap.String("slot", key))
	return nil
}

// OpenBuzzers moves the active question from host judgement to the open
// stage where every player who has not attempted yet may buzz.
func (r *Room) OpenBuzzers(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.openBuzzersLocked(ctx)
}

func (r *Room) openBuzzersLocked(ctx context.Context) error {
	active := r.activeQuestion
	if active == nil {
		return ErrNoActiveQuestion
	}
	if active.Stage == StageOpenForBuzz {
		return ErrBuzzersAlreadyOpen
	}

	if active.AnsweringPlayerId != "" {
		active.Attempted.Insert(active.AnsweringPlayerId)
		active.AnsweringPlayerId = ""
	}
	active.Stage = StageOpenForBuzz
	r.questionActive = true
	r.buzzedBy = ""
	r.clearBuzzesLocked()

	logging.Info(ctx, "Buzzers opened", zap.String("room", string(r.Code)), zap.String("questionId", active.Id))
	return nil
}

// Buzz is a player's claim to answer. Claims serialize through the room
// lock; the first one that still sees the open stage wins, every later one
// gets a clean rejection rather than a silent drop.
func (r *Room) Buzz(ctx context.Context, playerId types.PlayerIdType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	player, ok := r.players[playerId]
	if !ok {
		return ErrPlayerNotFound
	}
	active := r.activeQuestion
	if active == nil || active.Stage != StageOpenForBuzz {
		return ErrBuzzNotAvailable
	}
	if active.Attempted.Has(playerId) {
		return ErrAlreadyAttempted
	}

	player.BuzzedAt = types.NowMillis()
	r.buzzedBy = playerId
	active.AnsweringPlayerId = playerId
	active.Attempted.Insert(playerId)
	active.Stage = StageAwaitingHostDecision
	r.questionActive = false

	logging.Info(ctx, "Buzz won", zap.String("room", string(r.Code)), zap.String("playerId", string(playerId)))
	return nil
}

// MarkCorrect awards the active question to a player. With no explicit
// player, the current answerer wins it.
func (r *Room) MarkCorrect(ctx context.Context, playerId types.PlayerIdType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	active := r.activeQuestion
	if active == nil {
		return ErrNoActiveQuestion
	}

	winner := playerId
	if winner == "" {
		winner = active.AnsweringPlayerId
	}
	if winner == "" {
		return ErrNoAnsweringPlayer
	}
	player, ok := r.players[winner]
	if !ok {
		return ErrPlayerNotFound
	}

	player.Score += active.Points
	r.usedQuestions.Insert(active.Id)
	r.lastResult = &QuestionResult{
		Id:                active.Id,
		Category:          active.Category,
		Difficulty:        active.Difficulty,
		Question:          active.Question,
		CorrectAnswer:     active.CorrectAnswer,
		AnsweredCorrectly: true,
		AnsweredBy:        winner,
		PointsAwarded:     active.Points,
	}

	logging.Info(ctx, "Question answered correctly",
		zap.String("room", string(r.Code)),
		zap.String("playerId", string(winner)),
		zap.Int("points", active.Points))

	r.finishLocked()
	return nil
}

// MarkIncorrect rejects the current answer. With openBuzzers the question
// stays alive and reopens for the remaining players, even when nobody was
// answering; otherwise the question is finished as missed.
func (r *Room) MarkIncorrect(ctx context.Context, openBuzzers bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	active := r.activeQuestion
	if active == nil {
		return ErrNoActiveQuestion
	}

	if active.AnsweringPlayerId != "" {
		active.Attempted.Insert(active.AnsweringPlayerId)
	}

	if openBuzzers {
		return r.openBuzzersLocked(ctx)
	}

	r.usedQuestions.Insert(active.Id)
	r.lastResult = &QuestionResult{
		Id:                active.Id,
		Category:          active.Category,
		Difficulty:        active.Difficulty,
		Question:          active.Question,
		CorrectAnswer:     active.CorrectAnswer,
		AnsweredCorrectly: false,
		AnsweredBy:        active.AnsweringPlayerId,
		PointsAwarded:     0,
	}

	logging.Info(ctx, "Question closed as incorrect",
		zap.String("room", string(r.Code)), zap.String("questionId", active.Id))

	r.finishLocked()
	return nil
}

// Cancel abandons the active question without a result. The slot stays
// consumed. Reports whether there was anything to cancel.
func (r *Room) Cancel(ctx context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.activeQuestion == nil {
		return false
	}

	id := r.activeQuestion.Id
	r.activeQuestion = nil
	r.questionActive = false
	r.buzzedBy = ""
	r.clearBuzzesLocked()

	logging.Info(ctx, "Question cancelled", zap.String("room", string(r.Code)), zap.String("questionId", id))
	return true
}

// finishLocked tears the active question down and advances the turn from
// the index captured at activation, so mid-question setTurn calls do not
// perturb the rotation.
func (r *Room) finishLocked() {
	fromIndex := r.turnIndex
	if r.activeQuestion != nil && r.activeQuestion.TurnIndex >= 0 {
		fromIndex = r.activeQuestion.TurnIndex
	}

	r.activeQuestion = nil
	r.questionActive = false
	r.buzzedBy = ""
	r.clearBuzzesLocked()

	r.turnIndex, r.currentTurnId = advanceTurnFrom(r.turnOrder, r.players, fromIndex)
}

func (r *Room) clearBuzzesLocked() {
	for _, p := range r.players {
		p.BuzzedAt = 0
	}
}
