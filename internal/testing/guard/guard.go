// Package guard flips binaries into test mode when imported by a test, so
// calling main does not dial Postgres or Redis.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("SHELFBOARD_TEST_MODE") == "" {
			_ = os.Setenv("SHELFBOARD_TEST_MODE", "1")
		}
	})
}
