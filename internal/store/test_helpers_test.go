package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/xiaowei-guan/pigeon/internal/testutil"
)

// createTestStore opens a store in a temporary directory with sequential
// run IDs.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithIDGenerator(testutil.NewSequentialIDs("run")))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// beginTestRun starts a generate run against the search fixture.
func beginTestRun(t *testing.T, s *Store) Run {
	t.Helper()
	run, err := s.BeginRun(context.Background(), testutil.SearchDocument(), Run{
		Kind:   RunGenerate,
		Label:  "pigeons",
		Prefix: "dev.flutter.pigeon",
	})
	if err != nil {
		t.Fatalf("BeginRun() failed: %v", err)
	}
	return run
}
