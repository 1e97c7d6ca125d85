package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs returns a session id generator yielding prefix1, prefix2, ...
//
// Store sessions normally get UUIDv7 ids; deterministic ids keep log output
// and golden reports stable.
//
// Thread-safety: the returned function is safe for concurrent use.
func SequentialIDs(prefix string) func() string {
	if prefix == "" {
		prefix = "session-"
	}
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}
