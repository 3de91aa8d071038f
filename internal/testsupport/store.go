package testsupport

import (
	"testing"

	"stockmeta/internal/config"
	"stockmeta/internal/session"
)

// MustOpenSession opens the session store under the config state directory
// and registers cleanup.
func MustOpenSession(t testing.TB, cfg *config.Config) *session.Store {
	t.Helper()

	store, err := session.Open(cfg.SessionDBPath())
	if err != nil {
		t.Fatalf("session.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
