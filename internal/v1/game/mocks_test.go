package game

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alex-gusto/buzzer/internal/v1/types"
)

// MockSink implements types.Sink and records every message written to it.
type MockSink struct {
	mu         sync.Mutex
	writes     []any
	closed     bool
	failWrites bool
	closeCalls int
}

func (s *MockSink) WriteJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("sink closed")
	}
	if s.failWrites {
		return errors.New("write failed")
	}
	s.writes = append(s.writes, v)
	return nil
}

func (s *MockSink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *MockSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.closeCalls++
	return nil
}

func (s *MockSink) Writes() []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]any, len(s.writes))
	copy(out, s.writes)
	return out
}

func (s *MockSink) CloseCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCalls
}

// States returns every state frame the sink received, in order.
func (s *MockSink) States() []StateMessage {
	var out []StateMessage
	for _, w := range s.Writes() {
		if msg, ok := w.(StateMessage); ok {
			out = append(out, msg)
		}
	}
	return out
}

// LastState returns the snapshot of the most recent state frame, or nil.
func (s *MockSink) LastState() *Snapshot {
	states := s.States()
	if len(states) == 0 {
		return nil
	}
	return states[len(states)-1].Payload
}

// Errors returns every error frame the sink received, in order.
func (s *MockSink) Errors() []ErrorMessage {
	var out []ErrorMessage
	for _, w := range s.Writes() {
		if msg, ok := w.(ErrorMessage); ok {
			out = append(out, msg)
		}
	}
	return out
}

// StubSource implements types.QuestionSource with scripted responses.
// FetchFunc, when set, takes over FetchQuestion entirely so tests can
// control interleaving.
type StubSource struct {
	mu            sync.Mutex
	Categories    map[string][]string
	CategoriesErr error
	Question      *types.Question
	FetchErr      error
	FetchFunc     func(ctx context.Context, req types.QuestionRequest) (*types.Question, error)
	requests      []types.QuestionRequest
}

func (s *StubSource) FetchCategories(_ context.Context) (map[string][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CategoriesErr != nil {
		return nil, s.CategoriesErr
	}
	return s.Categories, nil
}

func (s *StubSource) FetchQuestion(ctx context.Context, req types.QuestionRequest) (*types.Question, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	fetchFunc := s.FetchFunc
	fetchErr := s.FetchErr
	q := s.Question
	s.mu.Unlock()

	if fetchFunc != nil {
		return fetchFunc(ctx, req)
	}
	if fetchErr != nil {
		return nil, fetchErr
	}
	if q == nil {
		q = stubQuestion("stub-q", "general_knowledge", "medium")
	}
	return q, nil
}

func (s *StubSource) Requests() []types.QuestionRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.QuestionRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *StubSource) SetQuestion(q *types.Question) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Question = q
}

// stubQuestion builds a question with one correct and three incorrect answers.
func stubQuestion(id, category, difficulty string) *types.Question {
	return &types.Question{
		Id:               id,
		Category:         category,
		Difficulty:       difficulty,
		Text:             "What is the answer?",
		CorrectAnswer:    "42",
		IncorrectAnswers: []string{"7", "12", "99"},
	}
}

// newTestDispatcher builds a dispatcher over a fresh registry and the given
// source. The provider timeout is generous enough to never fire in tests
// that do not ask for it.
func newTestDispatcher(source types.QuestionSource) *Dispatcher {
	if source == nil {
		source = &StubSource{}
	}
	return NewDispatcher(NewRegistry(source), 2*time.Second)
}

// newTestRoom creates a room directly, bypassing the registry, for tests
// that exercise Room methods in isolation.
func newTestRoom(onEmpty func(types.RoomCodeType)) *Room {
	return NewRoom("GAME", "top-secret-host", onEmpty)
}

// joinPlayers joins the named players and returns their ids in order.
func joinPlayers(t *testing.T, room *Room, names ...string) []types.PlayerIdType {
	t.Helper()
	ids := make([]types.PlayerIdType, 0, len(names))
	for _, name := range names {
		id, err := room.Join(context.Background(), name)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

// activateStub drives a full activation through the room's two phases with
// the given question, the way the dispatcher does.
func activateStub(t *testing.T, room *Room, q *types.Question, category, difficulty string) {
	t.Helper()
	prep, err := room.prepareActivation(category, difficulty)
	require.NoError(t, err)
	require.NoError(t, room.commitActivation(context.Background(), prep, q))
}
