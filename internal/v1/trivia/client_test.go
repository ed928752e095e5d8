package trivia

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alex-gusto/buzzer/internal/v1/game"
	"github.com/alex-gusto/buzzer/internal/v1/types"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, 2*time.Second)
	t.Cleanup(c.http.CloseIdleConnections)
	return c
}

func serveJSON(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	})
}

func serveStatus(code int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
	})
}

func TestNewClient(t *testing.T) {
	c := NewClient("https://example.test/api/v2/", time.Second)
	assert.Equal(t, "https://example.test/api/v2", c.baseURL, "trailing slash is trimmed")
	assert.True(t, c.Ready(), "a fresh breaker accepts calls")
	assert.NotEmpty(t, c.bank.questions)
}

func TestFetchCategories_SlugifiesGroupNames(t *testing.T) {
	c := newTestClient(t, serveJSON(`{
		"Arts & Literature": ["arts_and_literature"],
		"Film & TV": ["film", "tv"]
	}`))

	groups, err := c.FetchCategories(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[string][]string{
		"arts_and_literature": {"arts_and_literature"},
		"film_and_tv":         {"film", "tv"},
	}, groups)
}

func TestFetchCategories_UpstreamDownServesBankGroups(t *testing.T) {
	c := newTestClient(t, serveStatus(http.StatusInternalServerError))

	groups, err := c.FetchCategories(context.Background())
	require.NoError(t, err)

	require.Contains(t, groups, "science")
	assert.Equal(t, []string{"science"}, groups["science"],
		"bank categories are their own single-member groups")
}

func TestFetchQuestion_MapsUpstreamShape(t *testing.T) {
	var gotQuery atomic.Value
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery.Store(r.URL.Query())
		_, _ = w.Write([]byte(`[{
			"id": "q-1",
			"category": "Arts & Literature",
			"difficulty": "medium",
			"question": {"text": "Who wrote 'Dune'?"},
			"correctAnswer": "Frank Herbert",
			"incorrectAnswers": ["Isaac Asimov", "Arthur C. Clarke", "Ray Bradbury"]
		}]`))
	}))

	q, err := c.FetchQuestion(context.Background(), types.QuestionRequest{
		Category:   "arts_and_literature",
		Difficulty: "medium",
	})
	require.NoError(t, err)

	query := gotQuery.Load().(url.Values)
	assert.Equal(t, "1", query.Get("limit"))
	assert.Equal(t, "arts_and_literature", query.Get("categories"))
	assert.Equal(t, "medium", query.Get("difficulties"))

	assert.Equal(t, "q-1", q.Id)
	assert.Equal(t, "arts_and_literature", q.Category, "display name is slugified")
	assert.Equal(t, "medium", q.Difficulty)
	assert.Equal(t, "Who wrote 'Dune'?", q.Text, "prompt is lifted out of the nested object")
	assert.Equal(t, "Frank Herbert", q.CorrectAnswer)
	assert.Len(t, q.IncorrectAnswers, 3)
}

func TestFetchQuestion_OmitsEmptyFilters(t *testing.T) {
	var gotQuery atomic.Value
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery.Store(r.URL.Query())
		_, _ = w.Write([]byte(`[{"id": "q-2", "category": "Science", "difficulty": "easy",
			"question": {"text": "?"}, "correctAnswer": "x", "incorrectAnswers": []}]`))
	}))

	_, err := c.FetchQuestion(context.Background(), types.QuestionRequest{})
	require.NoError(t, err)

	query := gotQuery.Load().(url.Values)
	assert.Equal(t, "1", query.Get("limit"))
	assert.NotContains(t, query, "categories")
	assert.NotContains(t, query, "difficulties")
}

func TestFetchQuestion_RetriesDuplicatesThenServesBank(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`[{"id": "dup-1", "category": "Science", "difficulty": "hard",
			"question": {"text": "?"}, "correctAnswer": "x", "incorrectAnswers": []}]`))
	}))

	q, err := c.FetchQuestion(context.Background(), types.QuestionRequest{
		Category:   "science",
		Difficulty: "hard",
		ExcludeIds: []string{"dup-1"},
	})
	require.NoError(t, err)

	assert.Equal(t, int32(fetchAttempts), hits.Load(), "every attempt drew the same duplicate")
	assert.True(t, strings.HasPrefix(q.Id, "bank-"), "question came from the embedded bank, got %q", q.Id)
	assert.Equal(t, "science", q.Category)
	assert.Equal(t, "hard", q.Difficulty)
}

func TestFetchQuestion_HealthyUpstreamNothingFresh(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`[{"id": "dup-1", "category": "Horology", "difficulty": "easy",
			"question": {"text": "?"}, "correctAnswer": "x", "incorrectAnswers": []}]`))
	}))

	// The bank has no horology questions either, so nothing fresh exists
	// anywhere. The upstream itself was healthy throughout.
	_, err := c.FetchQuestion(context.Background(), types.QuestionRequest{
		Category:   "horology",
		ExcludeIds: []string{"dup-1"},
	})
	assert.ErrorIs(t, err, game.ErrUniqueQuestionUnavailable)
	assert.Equal(t, int32(fetchAttempts), hits.Load())
}

func TestFetchQuestion_EmptyBatchCountsAsNoMatch(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`[]`))
	}))

	_, err := c.FetchQuestion(context.Background(), types.QuestionRequest{Category: "horology"})
	assert.ErrorIs(t, err, game.ErrUniqueQuestionUnavailable,
		"an empty 200 means no match, not an outage")
	assert.Equal(t, int32(fetchAttempts), hits.Load())
}

func TestFetchQuestion_UpstreamDownServesBank(t *testing.T) {
	c := newTestClient(t, serveStatus(http.StatusInternalServerError))

	q, err := c.FetchQuestion(context.Background(), types.QuestionRequest{
		Category:   "science",
		Difficulty: "easy",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(q.Id, "bank-"))
	assert.Equal(t, "science", q.Category)
	assert.Equal(t, "easy", q.Difficulty)
}

func TestFetchQuestion_UpstreamDownExhaustedBank(t *testing.T) {
	c := newTestClient(t, serveStatus(http.StatusInternalServerError))

	_, err := c.FetchQuestion(context.Background(), types.QuestionRequest{Category: "horology"})
	assert.ErrorIs(t, err, game.ErrQuestionProviderUnavailable)
}

func TestFetchQuestion_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	req := types.QuestionRequest{Category: "horology"}

	// Two fetches make five upstream attempts; the fifth consecutive
	// failure trips the breaker, so the sixth attempt is rejected without
	// reaching the server.
	_, err := c.FetchQuestion(context.Background(), req)
	assert.ErrorIs(t, err, game.ErrQuestionProviderUnavailable)
	_, err = c.FetchQuestion(context.Background(), req)
	assert.ErrorIs(t, err, game.ErrQuestionProviderUnavailable)

	assert.Equal(t, int32(5), hits.Load())
	assert.False(t, c.Ready(), "an open breaker reports not ready")

	// Short-circuited calls never touch the upstream.
	_, err = c.FetchQuestion(context.Background(), req)
	assert.ErrorIs(t, err, game.ErrQuestionProviderUnavailable)
	assert.Equal(t, int32(5), hits.Load())

	// The bank still keeps known categories playable while the breaker
	// is open.
	q, err := c.FetchQuestion(context.Background(), types.QuestionRequest{
		Category:   "science",
		Difficulty: "easy",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(q.Id, "bank-"))
}
