package transport

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/alex-gusto/buzzer/internal/v1/game"
	"github.com/alex-gusto/buzzer/internal/v1/types"
)

// MockConnection implements wsConnection with scripted inbound frames and
// recorded outbound ones.
type MockConnection struct {
	reads chan []byte

	mu         sync.Mutex
	writes     [][]byte
	writeTypes []int
	writeErr   error
	closed     bool
}

func newMockConnection() *MockConnection {
	return &MockConnection{reads: make(chan []byte, 16)}
}

// queue schedules an inbound frame for ReadMessage to return.
func (m *MockConnection) queue(frame string) {
	m.reads <- []byte(frame)
}

// finish makes the next ReadMessage fail, as a dropped peer would.
func (m *MockConnection) finish() {
	close(m.reads)
}

func (m *MockConnection) ReadMessage() (int, []byte, error) {
	data, ok := <-m.reads
	if !ok {
		return 0, nil, errors.New("use of closed network connection")
	}
	return websocket.TextMessage, data, nil
}

func (m *MockConnection) WriteMessage(messageType int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.writeTypes = append(m.writeTypes, messageType)
	m.writes = append(m.writes, append([]byte(nil), data...))
	return nil
}

func (m *MockConnection) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MockConnection) SetWriteDeadline(time.Time) error { return nil }

func (m *MockConnection) SetReadDeadline(time.Time) error { return nil }

func (m *MockConnection) SetReadLimit(int64) {}

func (m *MockConnection) SetPongHandler(func(appData string) error) {}

func (m *MockConnection) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// textFrames returns the recorded TextMessage payloads.
func (m *MockConnection) textFrames() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	var frames [][]byte
	for i, typ := range m.writeTypes {
		if typ == websocket.TextMessage {
			frames = append(frames, m.writes[i])
		}
	}
	return frames
}

// lastWriteType returns the most recent frame type, or 0 when none.
func (m *MockConnection) lastWriteType() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.writeTypes) == 0 {
		return 0
	}
	return m.writeTypes[len(m.writeTypes)-1]
}

// stubSource serves one fixed question so activation flows work without
// the trivia package.
type stubSource struct{}

func (stubSource) FetchCategories(context.Context) (map[string][]string, error) {
	return map[string][]string{"science": {"science"}}, nil
}

func (stubSource) FetchQuestion(_ context.Context, req types.QuestionRequest) (*types.Question, error) {
	return &types.Question{
		Id:               "q-1",
		Category:         "science",
		Difficulty:       req.Difficulty,
		Text:             "Which planet is known as the Red Planet?",
		CorrectAnswer:    "Mars",
		IncorrectAnswers: []string{"Venus", "Jupiter", "Mercury"},
	}, nil
}

func newTestDispatcher() *game.Dispatcher {
	return game.NewDispatcher(game.NewRegistry(stubSource{}), time.Second)
}

// drainOutbound empties the client's send channel and decodes each queued
// frame. Used by tests that call protocol handlers directly, without pumps.
func drainOutbound(t *testing.T, c *Client) []map[string]any {
	t.Helper()
	var frames []map[string]any
	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return frames
			}
			var decoded map[string]any
			require.NoError(t, json.Unmarshal(data, &decoded))
			frames = append(frames, decoded)
		default:
			return frames
		}
	}
}
