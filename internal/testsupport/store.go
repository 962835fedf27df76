package testsupport

import (
	"testing"

	"coldstakepool/internal/pool"
)

// MustOpenStore opens a pool.Store in a temp directory and registers cleanup.
func MustOpenStore(t testing.TB) *pool.Store {
	t.Helper()

	store, err := pool.OpenStore(t.TempDir())
	if err != nil {
		t.Fatalf("pool.OpenStore: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
