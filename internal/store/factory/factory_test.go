package factory

import (
	"context"
	"path/filepath"
	"testing"
)

func TestEmptyDSNRejected(t *testing.T) {
	if _, err := NewFromDSN("   "); err == nil {
		t.Fatal("expected error for empty DSN")
	}
}

func TestSQLitePrefix(t *testing.T) {
	p := filepath.Join(t.TempDir(), "runs.db")
	st, err := NewFromDSN("sqlite://" + p)
	if err != nil {
		t.Fatalf("NewFromDSN: %v", err)
	}
	defer func() { _ = st.Close() }()
	if err := st.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
}

func TestBarePathTreatedAsSQLite(t *testing.T) {
	p := filepath.Join(t.TempDir(), "runs.db")
	st, err := NewFromDSN(p)
	if err != nil {
		t.Fatalf("NewFromDSN: %v", err)
	}
	_ = st.Close()
}

func TestPostgresPrefixSelectsPostgres(t *testing.T) {
	// sql.Open does not dial, so constructing the store succeeds without a server.
	st, err := NewFromDSN("postgres://user:pw@127.0.0.1:5/db")
	if err != nil {
		t.Fatalf("NewFromDSN: %v", err)
	}
	_ = st.Close()
}
