package trivia

import (
	"context"
	_ "embed"
	"encoding/json"
	"math/rand/v2"

	"go.uber.org/zap"
	"k8s.io/utils/set"

	"github.com/alex-gusto/buzzer/internal/v1/logging"
	"github.com/alex-gusto/buzzer/internal/v1/types"
)

//go:embed questions.json
var bankJSON []byte

// bank is the embedded offline question set. It keeps rooms playable when
// the upstream provider is down or keeps serving questions the room has
// already used.
type bank struct {
	questions []types.Question
}

// loadBank parses the embedded question set. A parse failure degrades to an
// empty bank rather than failing startup; the client then simply has no
// offline fallback.
func loadBank() *bank {
	var qs []types.Question
	if err := json.Unmarshal(bankJSON, &qs); err != nil {
		logging.Error(context.Background(), "Embedded question bank failed to parse", zap.Error(err))
		return &bank{}
	}
	return &bank{questions: qs}
}

// pick returns a random bank question matching the request, or false when
// every matching question has already been used. Empty Category or
// Difficulty matches anything, mirroring the upstream query semantics.
func (b *bank) pick(req types.QuestionRequest) (*types.Question, bool) {
	exclude := set.New(req.ExcludeIds...)

	var candidates []types.Question
	for _, q := range b.questions {
		if req.Category != "" && q.Category != req.Category {
			continue
		}
		if req.Difficulty != "" && q.Difficulty != req.Difficulty {
			continue
		}
		if exclude.Has(q.Id) {
			continue
		}
		candidates = append(candidates, q)
	}
	if len(candidates) == 0 {
		return nil, false
	}

	q := candidates[rand.IntN(len(candidates))]
	return &q, true
}

// categories returns the bank's category slugs as a group map in the same
// shape FetchCategories produces. Each bank category is its own group.
func (b *bank) categories() map[string][]string {
	groups := make(map[string][]string)
	for _, q := range b.questions {
		if q.Category == "" {
			continue
		}
		if _, ok := groups[q.Category]; !ok {
			groups[q.Category] = []string{q.Category}
		}
	}
	return groups
}
