package indexer

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain ensures no goroutine leaks across this package's tests --
// the watcher's processEvents goroutine and the cold-start errgroup
// pool are exactly the kind of background work a leak here would hide.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("sync.runtime_Semacquire"),
	)
}
