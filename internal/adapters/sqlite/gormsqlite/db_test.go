package gormsqlite

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuildDSNIncludesPerConnectionPragmas(t *testing.T) {
	reader := buildDSN("./db.sqlite", true)
	writer := buildDSN("./db.sqlite", false)

	checks := []string{
		"_pragma=journal_mode(WAL)",
		"_pragma=synchronous(NORMAL)",
		"_pragma=foreign_keys(1)",
		"_pragma=busy_timeout(5000)",
		"_pragma=trusted_schema(OFF)",
	}
	for _, c := range checks {
		if !strings.Contains(reader, c) {
			t.Fatalf("reader dsn missing %q: %s", c, reader)
		}
		if !strings.Contains(writer, c) {
			t.Fatalf("writer dsn missing %q: %s", c, writer)
		}
	}

	if !strings.Contains(reader, "_pragma=query_only(1)") {
		t.Fatalf("reader dsn missing query_only(1): %s", reader)
	}
	if !strings.Contains(writer, "_pragma=query_only(0)") {
		t.Fatalf("writer dsn missing query_only(0): %s", writer)
	}
}

func TestBuildDSNKeepsExistingQuery(t *testing.T) {
	dsn := buildDSN("file:db.sqlite?cache=shared", false)
	if !strings.HasPrefix(dsn, "file:db.sqlite?cache=shared&_pragma=") {
		t.Fatalf("unexpected dsn: %s", dsn)
	}
}

func TestOpenAndPing(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "ping.sqlite"), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
