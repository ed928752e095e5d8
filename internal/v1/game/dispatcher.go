package game

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/alex-gusto/buzzer/internal/v1/logging"
	"github.com/alex-gusto/buzzer/internal/v1/metrics"
	"github.com/alex-gusto/buzzer/internal/v1/types"
)

// Operation labels for transition metrics.
const (
	OpJoin        = "join"
	OpLeave       = "leave"
	OpSetTurn     = "set_turn"
	OpActivate    = "activate"
	OpOpenBuzzers = "open_buzzers"
	OpBuzz        = "buzz"
	OpMark        = "mark"
	OpCancel      = "cancel"
	OpDestroy     = "destroy"
	OpIssueShare  = "issue_share"
	OpClaimShare  = "claim_share"
)

// Dispatcher is the sole path by which external commands reach a room. It
// resolves the room, authenticates host commands, runs the transition,
// records metrics, and broadcasts the new state once the transition commits.
// Every error it returns belongs to the closed taxonomy in errors.go.
type Dispatcher struct {
	registry     *Registry
	fetchTimeout time.Duration
}

// NewDispatcher wires a dispatcher to a registry. fetchTimeout bounds the
// question-provider call made during activation.
func NewDispatcher(registry *Registry, fetchTimeout time.Duration) *Dispatcher {
	return &Dispatcher{
		registry:     registry,
		fetchTimeout: fetchTimeout,
	}
}

// Registry exposes the underlying room registry.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// CreateRoom allocates a fresh room.
func (d *Dispatcher) CreateRoom(ctx context.Context) *Room {
	return d.registry.CreateRoom(ctx)
}

// ListRooms projects every live room, newest first.
func (d *Dispatcher) ListRooms() []RoomListing {
	return d.registry.List()
}

// HasRoom reports whether a room exists under the code.
func (d *Dispatcher) HasRoom(code types.RoomCodeType) bool {
	return d.registry.Has(code)
}

// Snapshot serves the unauthenticated HTTP read. It deliberately projects
// the player role so spectators never see answers or share digits.
func (d *Dispatcher) Snapshot(code types.RoomCodeType) (*Snapshot, error) {
	room, err := d.registry.Get(code)
	if err != nil {
		return nil, err
	}
	return room.SnapshotFor(types.RoleTypePlayer), nil
}

// hostRoom resolves a room and verifies the host secret.
func (d *Dispatcher) hostRoom(code types.RoomCodeType, hostSecret string) (*Room, error) {
	room, err := d.registry.Get(code)
	if err != nil {
		return nil, err
	}
	if !room.CheckHostSecret(hostSecret) {
		return nil, ErrForbidden
	}
	return room, nil
}

// observeOp records one dispatched transition.
func observeOp(op string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = ErrorCode(err)
	}
	metrics.RoomTransitions.WithLabelValues(op, status).Inc()
	metrics.TransitionDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// Join adds a player to the room and broadcasts the new roster.
func (d *Dispatcher) Join(ctx context.Context, code types.RoomCodeType, name string) (types.PlayerIdType, error) {
	start := time.Now()
	room, err := d.registry.Get(code)
	if err != nil {
		observeOp(OpJoin, start, err)
		return "", err
	}

	playerId, err := room.Join(ctx, name)
	observeOp(OpJoin, start, err)
	if err != nil {
		return "", err
	}

	room.Broadcast(ctx)
	return playerId, nil
}

// Leave removes a player. Knowing the opaque player id is the authorization.
func (d *Dispatcher) Leave(ctx context.Context, code types.RoomCodeType, playerId types.PlayerIdType) error {
	start := time.Now()
	room, err := d.registry.Get(code)
	if err != nil {
		observeOp(OpLeave, start, err)
		return err
	}

	err = room.RemovePlayer(ctx, playerId)
	observeOp(OpLeave, start, err)
	if err != nil {
		return err
	}

	room.Broadcast(ctx)
	return nil
}

// SetTurn hands the turn to a specific player.
func (d *Dispatcher) SetTurn(ctx context.Context, code types.RoomCodeType, hostSecret string, playerId types.PlayerIdType) error {
	start := time.Now()
	room, err := d.hostRoom(code, hostSecret)
	if err != nil {
		observeOp(OpSetTurn, start, err)
		return err
	}

	err = room.SetTurn(ctx, playerId)
	observeOp(OpSetTurn, start, err)
	if err != nil {
		return err
	}

	room.Broadcast(ctx)
	return nil
}

// Activate starts a question for the player on turn. The provider call runs
// without the room lock and under a finite timeout; the commit re-validates
// every precondition so a failed fetch leaves the room untouched.
func (d *Dispatcher) Activate(ctx context.Context, code types.RoomCodeType, hostSecret, category, difficulty string) error {
	start := time.Now()
	room, err := d.hostRoom(code, hostSecret)
	if err != nil {
		observeOp(OpActivate, start, err)
		return err
	}

	err = d.activate(ctx, room, category, difficulty)
	observeOp(OpActivate, start, err)
	if err != nil {
		return err
	}

	room.Broadcast(ctx)
	return nil
}

func (d *Dispatcher) activate(ctx context.Context, room *Room, category, difficulty string) error {
	prep, err := room.prepareActivation(category, difficulty)
	if err != nil {
		return err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, d.fetchTimeout)
	defer cancel()

	question, err := d.registry.Source().FetchQuestion(fetchCtx, types.QuestionRequest{
		Category:   prep.providerCategory,
		Difficulty: prep.difficulty,
		ExcludeIds: prep.excludeIds,
	})
	if err != nil {
		var domainErr *Error
		if errors.As(err, &domainErr) {
			return err
		}
		logging.Error(ctx, "Question fetch failed",
			zap.String("room", string(room.Code)), zap.Error(err))
		return ErrQuestionProviderUnavailable
	}

	return room.commitActivation(ctx, prep, question)
}

// OpenBuzzers opens the active question to every player who has not
// attempted it yet.
func (d *Dispatcher) OpenBuzzers(ctx context.Context, code types.RoomCodeType, hostSecret string) error {
	start := time.Now()
	room, err := d.hostRoom(code, hostSecret)
	if err != nil {
		observeOp(OpOpenBuzzers, start, err)
		return err
	}

	err = room.OpenBuzzers(ctx)
	observeOp(OpOpenBuzzers, start, err)
	if err != nil {
		return err
	}

	room.Broadcast(ctx)
	return nil
}

// Buzz is a player's claim on the open question. Claims serialize through
// the room lock; exactly one wins per open episode.
func (d *Dispatcher) Buzz(ctx context.Context, code types.RoomCodeType, playerId types.PlayerIdType) error {
	start := time.Now()
	room, err := d.registry.Get(code)
	if err != nil {
		observeOp(OpBuzz, start, err)
		return err
	}

	err = room.Buzz(ctx, playerId)
	observeOp(OpBuzz, start, err)
	if err != nil {
		metrics.Buzzes.WithLabelValues("rejected").Inc()
		return err
	}

	metrics.Buzzes.WithLabelValues("won").Inc()
	room.Broadcast(ctx)
	return nil
}

// Mark resolves the current answer. correct=true awards the question to the
// answering player (or an explicitly named one); correct=false either
// reopens the buzzers or closes the question as missed.
func (d *Dispatcher) Mark(ctx context.Context, code types.RoomCodeType, hostSecret string, correct bool, playerId types.PlayerIdType, openBuzzers bool) error {
	start := time.Now()
	room, err := d.hostRoom(code, hostSecret)
	if err != nil {
		observeOp(OpMark, start, err)
		return err
	}

	if correct {
		err = room.MarkCorrect(ctx, playerId)
	} else {
		err = room.MarkIncorrect(ctx, openBuzzers)
	}
	observeOp(OpMark, start, err)
	if err != nil {
		return err
	}

	room.Broadcast(ctx)
	return nil
}

// Cancel abandons the active question. A room without one is a no-op, not
// an error; the consumed slot stays consumed either way.
func (d *Dispatcher) Cancel(ctx context.Context, code types.RoomCodeType, hostSecret string) error {
	start := time.Now()
	room, err := d.hostRoom(code, hostSecret)
	if err != nil {
		observeOp(OpCancel, start, err)
		return err
	}

	cancelled := room.Cancel(ctx)
	observeOp(OpCancel, start, nil)
	if cancelled {
		room.Broadcast(ctx)
	}
	return nil
}

// Destroy removes the room and tells every live connection why, once.
func (d *Dispatcher) Destroy(ctx context.Context, code types.RoomCodeType, hostSecret string) error {
	start := time.Now()
	room, err := d.hostRoom(code, hostSecret)
	if err != nil {
		observeOp(OpDestroy, start, err)
		return err
	}

	d.registry.Delete(ctx, room.Code)
	room.CloseAllConnections(ctx, "Session closed by host")
	observeOp(OpDestroy, start, nil)
	return nil
}

// IssueShare binds a fresh 4-digit share code to the room.
func (d *Dispatcher) IssueShare(ctx context.Context, code types.RoomCodeType, hostSecret string) (ShareInfo, error) {
	start := time.Now()
	room, err := d.hostRoom(code, hostSecret)
	if err != nil {
		observeOp(OpIssueShare, start, err)
		return ShareInfo{}, err
	}

	info := d.registry.IssueShare(ctx, room)
	observeOp(OpIssueShare, start, nil)

	room.Broadcast(ctx)
	return info, nil
}

// ClaimShare exchanges a live share code for the room's host credentials.
func (d *Dispatcher) ClaimShare(ctx context.Context, shareCode string) (ClaimInfo, error) {
	start := time.Now()
	claim, err := d.registry.ClaimShare(ctx, shareCode)
	observeOp(OpClaimShare, start, err)
	return claim, err
}

// RegisterHost authenticates a connection as the room's host. The caller
// attaches its sink to the returned room.
func (d *Dispatcher) RegisterHost(code types.RoomCodeType, hostSecret string) (*Room, error) {
	return d.hostRoom(code, hostSecret)
}

// RegisterPlayer authenticates a connection as a returning player.
func (d *Dispatcher) RegisterPlayer(code types.RoomCodeType, playerId types.PlayerIdType) (*Room, error) {
	room, err := d.registry.Get(code)
	if err != nil {
		return nil, err
	}
	if err := room.Reconnect(playerId); err != nil {
		return nil, err
	}
	return room, nil
}

// Shutdown closes every room's connections with a final notice. Used on
// process shutdown.
func (d *Dispatcher) Shutdown(ctx context.Context) {
	rooms := d.registry.drain(ctx)
	for _, room := range rooms {
		room.CloseAllConnections(ctx, "Server shutting down")
	}
	logging.Info(ctx, "All rooms closed", zap.Int("count", len(rooms)))
}
