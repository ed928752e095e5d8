package game

import (
	"sync"

	"github.com/alex-gusto/buzzer/internal/v1/types"
)

// connRecord tags a sink with the identity it authenticated as.
type connRecord struct {
	sink     types.Sink
	role     types.RoleType
	playerId types.PlayerIdType // empty for hosts
}

// ConnectionSet owns the live connections of one room. It carries its own
// lock, separate from the room lock, so broadcast I/O can drop dead sinks
// without re-entering room state. Lock order is room then connections,
// never the reverse.
type ConnectionSet struct {
	mu    sync.Mutex
	conns map[types.Sink]connRecord
}

func newConnectionSet() *ConnectionSet {
	return &ConnectionSet{conns: make(map[types.Sink]connRecord)}
}

// Add registers an authenticated connection. The caller must have verified
// the role already (host via secret, player via known id).
func (s *ConnectionSet) Add(sink types.Sink, role types.RoleType, playerId types.PlayerIdType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[sink] = connRecord{sink: sink, role: role, playerId: playerId}
}

// Remove drops a connection. Idempotent; reports whether it was present.
func (s *ConnectionSet) Remove(sink types.Sink) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.conns[sink]
	delete(s.conns, sink)
	return ok
}

// Len returns the number of live connections.
func (s *ConnectionSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// HostOnline reports whether any live connection registered as host.
func (s *ConnectionSet) HostOnline() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.conns {
		if rec.role == types.RoleTypeHost {
			return true
		}
	}
	return false
}

// records returns a copy of the current records so callers can iterate and
// perform I/O without holding the lock.
func (s *ConnectionSet) records() []connRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]connRecord, 0, len(s.conns))
	for _, rec := range s.conns {
		out = append(out, rec)
	}
	return out
}

// SinksForPlayer returns every sink registered for the given player.
func (s *ConnectionSet) SinksForPlayer(playerId types.PlayerIdType) []types.Sink {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.Sink
	for _, rec := range s.conns {
		if rec.role == types.RoleTypePlayer && rec.playerId == playerId {
			out = append(out, rec.sink)
		}
	}
	return out
}

// AllSinks returns every live sink.
func (s *ConnectionSet) AllSinks() []types.Sink {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Sink, 0, len(s.conns))
	for _, rec := range s.conns {
		out = append(out, rec.sink)
	}
	return out
}
