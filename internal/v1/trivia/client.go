// Package trivia is the upstream question provider client. It speaks the
// the-trivia-api.com v2 surface, guards every call with a circuit breaker,
// and degrades to an embedded question bank when the upstream cannot serve.
package trivia

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"k8s.io/utils/set"

	"github.com/alex-gusto/buzzer/internal/v1/game"
	"github.com/alex-gusto/buzzer/internal/v1/logging"
	"github.com/alex-gusto/buzzer/internal/v1/metrics"
	"github.com/alex-gusto/buzzer/internal/v1/types"
)

// fetchAttempts bounds how many upstream draws one FetchQuestion makes
// before falling back to the embedded bank. Each draw asks for a single
// question, so a duplicate costs one round trip.
const fetchAttempts = 3

const breakerName = "trivia"

// Client implements types.QuestionSource against a the-trivia-api.com
// compatible upstream. All calls run through a circuit breaker so a dead
// provider fails fast instead of holding room locks callers are waiting on.
type Client struct {
	baseURL string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker
	bank    *bank
}

// NewClient builds a provider client. timeout bounds each HTTP round trip;
// callers additionally bound the whole fetch with their context.
func NewClient(baseURL string, timeout time.Duration) *Client {
	st := gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
			logging.Warn(context.Background(), "Trivia circuit breaker changed state",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		cb:      gobreaker.NewCircuitBreaker(st),
		bank:    loadBank(),
	}
}

// Ready reports whether the breaker is accepting upstream calls. The
// readiness probe uses this; an open breaker marks the dependency unhealthy.
func (c *Client) Ready() bool {
	return c.cb.State() != gobreaker.StateOpen
}

// FetchCategories returns the provider's category groups keyed by slug,
// each value listing the sub-slugs the questions endpoint accepts. The
// upstream keys groups by display name ("Arts & Literature"); keys are
// slugified so rooms can match them against question categories. When the
// upstream is unreachable the embedded bank supplies a degraded answer.
func (c *Client) FetchCategories(ctx context.Context) (map[string][]string, error) {
	var raw map[string][]string
	if err := c.getJSON(ctx, c.baseURL+"/categories", &raw); err != nil {
		if fallback := c.bank.categories(); len(fallback) > 0 {
			logging.Warn(ctx, "Serving categories from embedded bank", zap.Error(err))
			return fallback, nil
		}
		return nil, err
	}

	groups := make(map[string][]string, len(raw))
	for display, subs := range raw {
		groups[Slugify(display)] = subs
	}
	return groups, nil
}

// FetchQuestion draws one question honoring req. It tries the upstream up
// to fetchAttempts times, discarding ids the room has already used, then
// falls back to the embedded bank. The two failure modes stay distinct: an
// unreachable provider surfaces ErrQuestionProviderUnavailable, a healthy
// provider with nothing fresh left surfaces ErrUniqueQuestionUnavailable.
func (c *Client) FetchQuestion(ctx context.Context, req types.QuestionRequest) (*types.Question, error) {
	exclude := set.New(req.ExcludeIds...)

	upstreamErred := false
	for attempt := 0; attempt < fetchAttempts; attempt++ {
		q, err := c.fetchOnce(ctx, req)
		if err != nil {
			upstreamErred = true
			// Retrying is pointless once the breaker rejects us or the
			// caller's deadline is gone.
			if errors.Is(err, gobreaker.ErrOpenState) ||
				errors.Is(err, gobreaker.ErrTooManyRequests) ||
				ctx.Err() != nil {
				break
			}
			continue
		}
		if q == nil || exclude.Has(q.Id) {
			continue
		}
		return q, nil
	}

	if q, ok := c.bank.pick(req); ok {
		logging.Warn(ctx, "Serving question from embedded bank",
			zap.String("category", req.Category),
			zap.String("difficulty", req.Difficulty))
		return q, nil
	}

	if upstreamErred {
		return nil, game.ErrQuestionProviderUnavailable
	}
	return nil, game.ErrUniqueQuestionUnavailable
}

// fetchOnce asks the upstream for a single question. A healthy response
// with an empty batch returns (nil, nil): the provider is up but has
// nothing for this category/difficulty combination.
func (c *Client) fetchOnce(ctx context.Context, req types.QuestionRequest) (*types.Question, error) {
	u, err := url.Parse(c.baseURL + "/questions")
	if err != nil {
		return nil, fmt.Errorf("failed to build questions URL: %w", err)
	}
	query := u.Query()
	query.Set("limit", "1")
	if req.Category != "" {
		query.Set("categories", req.Category)
	}
	if req.Difficulty != "" {
		query.Set("difficulties", req.Difficulty)
	}
	u.RawQuery = query.Encode()

	var batch []apiQuestion
	if err := c.getJSON(ctx, u.String(), &batch); err != nil {
		return nil, err
	}
	if len(batch) == 0 {
		return nil, nil
	}
	return batch[0].toQuestion(), nil
}

// getJSON performs one GET through the circuit breaker and decodes the
// 200 response body into out.
func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	start := time.Now()
	_, err := c.cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("trivia provider returned %s", resp.Status)
		}
		return nil, json.NewDecoder(resp.Body).Decode(out)
	})
	metrics.TriviaRequestDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.TriviaRequests.WithLabelValues("error").Inc()
		metrics.CircuitBreakerFailures.WithLabelValues(breakerName).Inc()
		return err
	}
	metrics.TriviaRequests.WithLabelValues("success").Inc()
	return nil
}

// apiQuestion is the upstream v2 question shape. The prompt nests under
// question.text and category arrives as a display name.
type apiQuestion struct {
	Id         string `json:"id"`
	Category   string `json:"category"`
	Difficulty string `json:"difficulty"`
	Question   struct {
		Text string `json:"text"`
	} `json:"question"`
	CorrectAnswer    string   `json:"correctAnswer"`
	IncorrectAnswers []string `json:"incorrectAnswers"`
}

func (q apiQuestion) toQuestion() *types.Question {
	return &types.Question{
		Id:               q.Id,
		Category:         Slugify(q.Category),
		Difficulty:       q.Difficulty,
		Text:             q.Question.Text,
		CorrectAnswer:    q.CorrectAnswer,
		IncorrectAnswers: q.IncorrectAnswers,
	}
}

// breakerStateValue converts a breaker state to the gauge encoding
// (0 closed, 1 half-open, 2 open).
func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
