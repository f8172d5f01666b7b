package sqlite

import (
	"strings"
	"testing"
	"time"
)

func TestBuildDSN(t *testing.T) {
	t.Run("appends connection defaults", func(t *testing.T) {
		got := buildDSN("/tmp/matches.db", 5*time.Second)
		for _, want := range []string{
			"file:/tmp/matches.db?",
			"_busy_timeout=5000",
			"_journal_mode=WAL",
			"_foreign_keys=on",
			"_txlock=immediate",
		} {
			if !strings.Contains(got, want) {
				t.Fatalf("expected %q in dsn, got %q", want, got)
			}
		}
	})

	t.Run("keeps explicit value", func(t *testing.T) {
		got := buildDSN("/tmp/matches.db?_journal_mode=DELETE", time.Second)
		if !strings.Contains(got, "_journal_mode=DELETE") || strings.Contains(got, "_journal_mode=WAL") {
			t.Fatalf("expected explicit journal mode kept, got %q", got)
		}
	})
}

func TestMigrateURL(t *testing.T) {
	got := migrateURL("/tmp/matches.db?_journal_mode=WAL", 2*time.Second)
	want := "sqlite3:///tmp/matches.db?_busy_timeout=2000"
	if got != want {
		t.Fatalf("unexpected migrate url: %q", got)
	}
}

func TestDBNameFromPath(t *testing.T) {
	if got := dbNameFromPath("data/football_matches.db"); got != "football_matches" {
		t.Fatalf("unexpected db name: %q", got)
	}
	if got := dbNameFromPath(""); got != "" {
		t.Fatalf("expected empty db name, got %q", got)
	}
}

func TestFormatQueryForTrace(t *testing.T) {
	got := formatQueryForTrace(" SELECT   *\nFROM matches \t WHERE external_id = ? ")
	want := "SELECT * FROM matches WHERE external_id = ?"
	if got != want {
		t.Fatalf("unexpected formatted query: %q", got)
	}

	long := formatQueryForTrace(strings.Repeat("x", maxTracedQueryLength+10))
	if len(long) != maxTracedQueryLength+3 || !strings.HasSuffix(long, "...") {
		t.Fatalf("expected truncated query, got length %d", len(long))
	}
}
