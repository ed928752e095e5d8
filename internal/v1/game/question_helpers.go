package game

import (
	"math/rand/v2"

	"github.com/alex-gusto/buzzer/internal/v1/types"
)

// pointsForDifficulty maps a difficulty to its score value. Unknown
// difficulties from the provider are worth the default weight.
func pointsForDifficulty(difficulty string) int {
	switch difficulty {
	case types.DifficultyEasy:
		return 150
	case types.DifficultyMedium:
		return 250
	case types.DifficultyHard:
		return 400
	default:
		return 200
	}
}

// slotKey builds the used-slot key for a category and difficulty pair.
func slotKey(category, difficulty string) string {
	return category + "|" + difficulty
}

// shuffledChoices returns the correct and incorrect answers in random order.
func shuffledChoices(correct string, incorrect []string) []string {
	choices := make([]string, 0, len(incorrect)+1)
	choices = append(choices, correct)
	choices = append(choices, incorrect...)
	rand.Shuffle(len(choices), func(i, j int) {
		choices[i], choices[j] = choices[j], choices[i]
	})
	return choices
}

// indexOfPlayer returns the position of id in order, or -1.
func indexOfPlayer(order []types.PlayerIdType, id types.PlayerIdType) int {
	for i, pid := range order {
		if pid == id {
			return i
		}
	}
	return -1
}

// splicePlayer removes id from order preserving the relative order of the rest.
func splicePlayer(order []types.PlayerIdType, id types.PlayerIdType) []types.PlayerIdType {
	idx := indexOfPlayer(order, id)
	if idx < 0 {
		return order
	}
	return append(order[:idx], order[idx+1:]...)
}

// advanceTurnFrom walks forward from the captured index, one step first,
// and returns the index and id of the next present player. Returns -1 and
// empty id when the order is empty.
func advanceTurnFrom(order []types.PlayerIdType, players map[types.PlayerIdType]*Player, fromIndex int) (int, types.PlayerIdType) {
	n := len(order)
	if n == 0 {
		return -1, ""
	}

	start := 0
	if fromIndex >= 0 {
		start = (fromIndex + 1) % n
	}
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		if _, ok := players[order[idx]]; ok {
			return idx, order[idx]
		}
	}
	return -1, ""
}
