package game

import (
	"context"
	"crypto/subtle"
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"
	"k8s.io/utils/set"

	"github.com/alex-gusto/buzzer/internal/v1/logging"
	"github.com/alex-gusto/buzzer/internal/v1/metrics"
	"github.com/alex-gusto/buzzer/internal/v1/types"
)

const (
	// MaxPlayerNameLength bounds the display name players pick at join.
	MaxPlayerNameLength = 32
)

// Room is one isolated game instance. All mutable state is guarded by mu;
// every externally observable transition happens under it, so observers see
// transitions in a single total order. Connection writes never happen under
// mu (see Broadcast).
type Room struct {
	Code types.RoomCodeType

	mu sync.RWMutex

	hostSecret string
	createdAt  types.Millis

	players       map[types.PlayerIdType]*Player
	turnOrder     []types.PlayerIdType
	turnIndex     int                // -1 while nobody has the turn
	currentTurnId types.PlayerIdType // cached turnOrder[turnIndex], "" when none

	activeQuestion *ActiveQuestion
	questionActive bool // the buzzers-live flag players see
	buzzedBy       types.PlayerIdType
	lastResult     *QuestionResult

	usedQuestions     set.Set[string]
	usedCategorySlots set.Set[string]
	categories        map[string][]string

	shareCode          string
	shareCodeIssuedAt  types.Millis
	shareCodeExpiresAt types.Millis

	conns *ConnectionSet

	// onEmpty is invoked (on its own goroutine) whenever the room loses its
	// last player and its last connection. The registry re-validates before
	// actually dropping the room.
	onEmpty func(types.RoomCodeType)
}

// NewRoom creates an empty room. Codes are canonical uppercase by the time
// they get here; the registry owns uniqueness.
func NewRoom(code types.RoomCodeType, hostSecret string, onEmptyCallback func(types.RoomCodeType)) *Room {
	return &Room{
		Code:              code,
		hostSecret:        hostSecret,
		createdAt:         types.NowMillis(),
		players:           make(map[types.PlayerIdType]*Player),
		turnIndex:         -1,
		usedQuestions:     set.New[string](),
		usedCategorySlots: set.New[string](),
		conns:             newConnectionSet(),
		onEmpty:           onEmptyCallback,
	}
}

// CheckHostSecret compares in constant time so the comparison itself leaks
// nothing about the stored secret.
func (r *Room) CheckHostSecret(secret string) bool {
	return subtle.ConstantTimeCompare([]byte(secret), []byte(r.hostSecret)) == 1
}

// HostSecret is exposed for share-code claims, which exist precisely to hand
// the secret to a second host device.
func (r *Room) HostSecret() string {
	return r.hostSecret
}

// CreatedAt returns the creation timestamp.
func (r *Room) CreatedAt() types.Millis {
	return r.createdAt
}

// Connections returns the room's connection set.
func (r *Room) Connections() *ConnectionSet {
	return r.conns
}

// SetCategories stores the preloaded category map. Best effort; rooms work
// without one.
func (r *Room) SetCategories(categories map[string][]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.categories = categories
}

// PlayerCount returns the number of joined players.
func (r *Room) PlayerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}

// Empty reports whether the room has neither players nor connections, the
// condition under which the registry drops it.
func (r *Room) Empty() bool {
	r.mu.RLock()
	playerCount := len(r.players)
	r.mu.RUnlock()
	return playerCount == 0 && r.conns.Len() == 0
}

// --- Player Management ---

// Join adds a player and returns the issued player id. The first player to
// join receives the turn.
func (r *Room) Join(ctx context.Context, name string) (types.PlayerIdType, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < 1 || n > MaxPlayerNameLength {
		return "", NewValidationError("Name must be between 1 and 32 characters")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := newPlayerId()
	r.players[id] = &Player{
		Id:       id,
		Name:     name,
		JoinedAt: types.NowMillis(),
	}
	r.turnOrder = append(r.turnOrder, id)
	if r.turnIndex < 0 {
		r.turnIndex = 0
		r.currentTurnId = id
	}

	logging.Info(ctx, "Player joined", zap.String("room", string(r.Code)), zap.String("playerId", string(id)))
	metrics.RoomPlayers.WithLabelValues(string(r.Code)).Set(float64(len(r.players)))

	return id, nil
}

// Reconnect authenticates a returning player. Pure lookup, no state change.
func (r *Room) Reconnect(playerId types.PlayerIdType) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.players[playerId]; !ok {
		return ErrPlayerNotFound
	}
	return nil
}

// SetTurn hands the turn to a specific player.
func (r *Room) SetTurn(ctx context.Context, playerId types.PlayerIdType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.players[playerId]; !ok {
		return ErrPlayerNotFound
	}
	r.turnIndex = indexOfPlayer(r.turnOrder, playerId)
	r.currentTurnId = playerId

	logging.Info(ctx, "Turn set", zap.String("room", string(r.Code)), zap.String("playerId", string(playerId)))
	return nil
}

// RemovePlayer deletes a player, repairs the turn rotation, scrubs any
// references the active question held to them, and closes the player's
// connections. Disconnect alone never removes a player; this is the
// explicit-leave and host-destroy path.
func (r *Room) RemovePlayer(ctx context.Context, playerId types.PlayerIdType) error {
	r.mu.Lock()
	if _, ok := r.players[playerId]; !ok {
		r.mu.Unlock()
		return ErrPlayerNotFound
	}
	r.removePlayerLocked(playerId)
	playerCount := len(r.players)
	sinks := r.conns.SinksForPlayer(playerId)
	r.mu.Unlock()

	for _, sink := range sinks {
		r.conns.Remove(sink)
		_ = sink.Close()
	}

	if playerCount > 0 {
		metrics.RoomPlayers.WithLabelValues(string(r.Code)).Set(float64(playerCount))
	} else {
		metrics.RoomPlayers.DeleteLabelValues(string(r.Code))
	}

	logging.Info(ctx, "Player removed", zap.String("room", string(r.Code)), zap.String("playerId", string(playerId)))
	r.notifyIfEmpty()
	return nil
}

func (r *Room) removePlayerLocked(playerId types.PlayerIdType) {
	delete(r.players, playerId)

	removedIdx := indexOfPlayer(r.turnOrder, playerId)
	r.turnOrder = splicePlayer(r.turnOrder, playerId)

	if len(r.turnOrder) == 0 {
		r.turnIndex = -1
		r.currentTurnId = ""
	} else {
		if removedIdx >= 0 && removedIdx < r.turnIndex {
			r.turnIndex--
		}
		if r.turnIndex < 0 || r.turnIndex >= len(r.turnOrder) {
			r.turnIndex = 0
		}
		r.currentTurnId = r.turnOrder[r.turnIndex]
	}

	if r.buzzedBy == playerId {
		r.buzzedBy = ""
	}

	active := r.activeQuestion
	if active == nil {
		return
	}
	if active.AssignedTo == playerId {
		active.AssignedTo = ""
	}
	active.Attempted.Delete(playerId)
	if active.AnsweringPlayerId == playerId {
		// The question stays; the host has to resolve or cancel it.
		active.AnsweringPlayerId = ""
		if active.Stage == StageAwaitingHostDecision {
			r.questionActive = false
			r.buzzedBy = ""
		}
	}
}

// --- Connections ---

// AttachSink adds an authenticated connection to the room.
func (r *Room) AttachSink(sink types.Sink, role types.RoleType, playerId types.PlayerIdType) {
	r.conns.Add(sink, role, playerId)
}

// DetachSink drops a connection, firing the empty-room callback when it was
// the last one and no players remain. Idempotent.
func (r *Room) DetachSink(sink types.Sink) {
	if r.conns.Remove(sink) {
		r.notifyIfEmpty()
	}
}

func (r *Room) notifyIfEmpty() {
	if r.onEmpty != nil && r.Empty() {
		go r.onEmpty(r.Code)
	}
}

// Broadcast fans the current state out to every connection, each with a
// snapshot projected for its role. Snapshots are built under the lock; the
// writes happen outside it, and a dead sink is dropped without disturbing
// its peers.
func (r *Room) Broadcast(ctx context.Context) {
	type delivery struct {
		sink types.Sink
		msg  StateMessage
	}

	r.mu.Lock()
	r.cleanupShareLocked()
	records := r.conns.records()
	deliveries := make([]delivery, 0, len(records))
	for _, rec := range records {
		deliveries = append(deliveries, delivery{rec.sink, NewStateMessage(r.snapshotLocked(rec.role))})
	}
	r.mu.Unlock()

	dropped := false
	for _, d := range deliveries {
		if d.sink.Closed() {
			r.conns.Remove(d.sink)
			dropped = true
			continue
		}
		if err := d.sink.WriteJSON(d.msg); err != nil {
			logging.Warn(ctx, "Dropping unwritable connection",
				zap.String("room", string(r.Code)), zap.Error(err))
			r.conns.Remove(d.sink)
			_ = d.sink.Close()
			dropped = true
		}
	}

	if dropped {
		r.notifyIfEmpty()
	}
}

// CloseAllConnections notifies every connection once and closes it. Used
// when the host destroys the room.
func (r *Room) CloseAllConnections(ctx context.Context, message string) {
	sinks := r.conns.AllSinks()
	msg := NewErrorMessage(message)
	for _, sink := range sinks {
		_ = sink.WriteJSON(msg)
		_ = sink.Close()
		r.conns.Remove(sink)
	}
	logging.Info(ctx, "Closed all room connections",
		zap.String("room", string(r.Code)), zap.Int("count", len(sinks)))
}
