package httpapi

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/alex-gusto/buzzer/internal/v1/game"
	"github.com/alex-gusto/buzzer/internal/v1/types"
)

// stubSource hands out sequentially numbered questions so repeated
// activations never collide with the room's used-question dedupe.
type stubSource struct {
	counter atomic.Int64
}

func (s *stubSource) FetchCategories(ctx context.Context) (map[string][]string, error) {
	return map[string][]string{
		"science": {"science"},
		"history": {"history"},
	}, nil
}

func (s *stubSource) FetchQuestion(ctx context.Context, req types.QuestionRequest) (*types.Question, error) {
	category := req.Category
	if category == "" {
		category = "general_knowledge"
	}
	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = "medium"
	}
	return &types.Question{
		Id:               fmt.Sprintf("q-%d", s.counter.Add(1)),
		Category:         category,
		Difficulty:       difficulty,
		Text:             "Which planet is known as the Red Planet?",
		CorrectAnswer:    "Mars",
		IncorrectAnswers: []string{"Venus", "Jupiter", "Mercury"},
	}, nil
}

// failingSource simulates a dead provider with an exhausted fallback.
type failingSource struct{}

func (failingSource) FetchCategories(ctx context.Context) (map[string][]string, error) {
	return nil, errors.New("categories upstream down")
}

func (failingSource) FetchQuestion(ctx context.Context, req types.QuestionRequest) (*types.Question, error) {
	return nil, game.ErrQuestionProviderUnavailable
}
