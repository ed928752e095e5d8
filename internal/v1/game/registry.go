package game

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/alex-gusto/buzzer/internal/v1/logging"
	"github.com/alex-gusto/buzzer/internal/v1/metrics"
	"github.com/alex-gusto/buzzer/internal/v1/types"
)

// Registry owns every live room and arbitrates lookup by code.
//
// Lock order is registry then room, never the reverse. Room callbacks that
// need the registry (onEmpty) therefore run on their own goroutine instead
// of inside a room critical section.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[types.RoomCodeType]*Room
	source types.QuestionSource
}

// NewRegistry returns an empty registry backed by the given question source.
func NewRegistry(source types.QuestionSource) *Registry {
	return &Registry{
		rooms:  make(map[types.RoomCodeType]*Room),
		source: source,
	}
}

// Source exposes the question provider for activation fetches.
func (reg *Registry) Source() types.QuestionSource {
	return reg.source
}

// CreateRoom allocates a fresh room under an unused code. Category preload
// is best effort: a provider failure leaves the room without category groups
// and never fails creation.
func (reg *Registry) CreateRoom(ctx context.Context) *Room {
	reg.mu.Lock()
	var code types.RoomCodeType
	for {
		candidate := randomRoomCode()
		if _, taken := reg.rooms[candidate]; !taken {
			code = candidate
			break
		}
	}

	room := NewRoom(code, newHostSecret(), reg.removeIfEmpty)
	reg.rooms[code] = room
	metrics.ActiveRooms.Set(float64(len(reg.rooms)))
	reg.mu.Unlock()

	logging.Info(ctx, "Room created", zap.String("room", string(code)))

	if categories, err := reg.source.FetchCategories(ctx); err != nil {
		logging.Warn(ctx, "Category preload failed", zap.String("room", string(code)), zap.Error(err))
	} else {
		room.SetCategories(categories)
	}

	return room
}

// Get resolves a room by code, case-insensitively.
func (reg *Registry) Get(code types.RoomCodeType) (*Room, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	room, ok := reg.rooms[code.Canonical()]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// Has reports whether a room exists under the code.
func (reg *Registry) Has(code types.RoomCodeType) bool {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	_, ok := reg.rooms[code.Canonical()]
	return ok
}

// Len is the number of live rooms.
func (reg *Registry) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

// Delete removes a room unconditionally. Used by the host destroy path;
// closing the room's connections is the caller's job.
func (reg *Registry) Delete(ctx context.Context, code types.RoomCodeType) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.deleteLocked(ctx, code.Canonical())
}

func (reg *Registry) deleteLocked(ctx context.Context, code types.RoomCodeType) {
	if _, ok := reg.rooms[code]; !ok {
		return
	}
	delete(reg.rooms, code)
	metrics.ActiveRooms.Set(float64(len(reg.rooms)))
	metrics.RoomPlayers.DeleteLabelValues(string(code))

	logging.Info(ctx, "Room removed", zap.String("room", string(code)), zap.Int("remaining", len(reg.rooms)))
}

// List projects every room into its listing row, newest first.
func (reg *Registry) List() []RoomListing {
	reg.mu.RLock()
	listings := make([]RoomListing, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		listings = append(listings, room.Listing())
	}
	reg.mu.RUnlock()

	sort.Slice(listings, func(i, j int) bool {
		return listings[i].CreatedAt > listings[j].CreatedAt
	})
	return listings
}

// drain removes every room and returns them so the caller can close their
// connections outside the registry lock.
func (reg *Registry) drain(ctx context.Context) []*Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	rooms := make([]*Room, 0, len(reg.rooms))
	for code, room := range reg.rooms {
		rooms = append(rooms, room)
		reg.deleteLocked(ctx, code)
	}
	return rooms
}

// removeIfEmpty is the room onEmpty callback. The emptiness check repeats
// under the registry lock because a join or a fresh connection may have
// raced the notification.
func (reg *Registry) removeIfEmpty(code types.RoomCodeType) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	room, ok := reg.rooms[code]
	if !ok {
		return
	}
	if !room.Empty() {
		return
	}
	reg.deleteLocked(context.Background(), code)
}
