package trivia

import (
	"testing"

	"go.uber.org/goleak"
)

// Transport keep-alive goroutines must drain once each test's server and
// idle connections close; a leak here would accumulate per activation in
// production.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
