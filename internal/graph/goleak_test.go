package graph

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain ensures no goroutine leaks across this package's tests; the
// graph's single RWMutex is meant to serialize writers without ever
// parking a goroutine past the end of a test.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("sync.runtime_Semacquire"),
	)
}
