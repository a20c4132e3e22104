package personalization

import (
	"path/filepath"
	"testing"

	"github.com/yungbote/senseboard-backend/internal/db"
	"github.com/yungbote/senseboard-backend/internal/logger"
)

func mustStore(t *testing.T, maxLines int) *Store {
	t.Helper()
	log, err := logger.New("quiet")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)

	sqlite, err := db.NewSQLiteService(filepath.Join(t.TempDir(), "personalization.db"), log)
	if err != nil {
		t.Fatalf("NewSQLiteService: %v", err)
	}
	if err := sqlite.AutoMigrateAll(); err != nil {
		t.Fatalf("AutoMigrateAll: %v", err)
	}
	return NewStore(sqlite.DB(), maxLines, log)
}

func TestNameKeyNormalizes(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"  Avery   Smith ", "avery smith"},
		{"AVERY", "avery"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NameKey(tc.in); got != tc.want {
			t.Fatalf("NameKey(%q): want=%q got=%q", tc.in, tc.want, got)
		}
	}
}

func TestAppendContextCreatesAndAccumulates(t *testing.T) {
	store := mustStore(t, 40)

	if view, err := store.GetProfile("Avery"); err != nil || view != nil {
		t.Fatalf("fresh name should have no profile: view=%+v err=%v", view, err)
	}

	view, err := store.AppendContext("Avery", "prefers tree diagrams")
	if err != nil {
		t.Fatalf("AppendContext: %v", err)
	}
	if view.NameKey != "avery" || len(view.ContextLines) != 1 {
		t.Fatalf("unexpected view: %+v", view)
	}

	view, err = store.AppendContext("  AVERY ", "asked about BFS")
	if err != nil {
		t.Fatalf("AppendContext: %v", err)
	}
	if len(view.ContextLines) != 2 {
		t.Fatalf("lines should accumulate under one key, got %v", view.ContextLines)
	}
	if got := store.PromptLines("avery"); len(got) != 2 || got[1] != "asked about BFS" {
		t.Fatalf("PromptLines: %v", got)
	}
}

func TestAppendContextKeepsMostRecentLines(t *testing.T) {
	store := mustStore(t, 3)

	for _, line := range []string{"one", "two", "three", "four", "five"} {
		if _, err := store.AppendContext("Sam", line); err != nil {
			t.Fatalf("AppendContext(%q): %v", line, err)
		}
	}
	got := store.PromptLines("Sam")
	if len(got) != 3 {
		t.Fatalf("retention cap: want 3 lines, got %v", got)
	}
	if got[0] != "three" || got[2] != "five" {
		t.Fatalf("should keep the most recent lines: %v", got)
	}
}

func TestAppendContextIgnoresBlankLines(t *testing.T) {
	store := mustStore(t, 40)
	view, err := store.AppendContext("Robin", "   ", "")
	if err != nil {
		t.Fatalf("AppendContext: %v", err)
	}
	if view != nil {
		t.Fatalf("blank-only append should not create a profile, got %+v", view)
	}
}
