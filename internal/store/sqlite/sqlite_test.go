package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/loykin/botherd/internal/store"
)

func newDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return db
}

func TestRecordStartAndStop(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()
	started := time.Now().Add(-time.Minute)
	rec := store.Record{PID: 4242, StartedAt: started}
	if err := db.RecordStart(ctx, rec); err != nil {
		t.Fatalf("RecordStart: %v", err)
	}
	got, err := db.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 || got[0].PID != 4242 || !got[0].Running {
		t.Fatalf("unexpected records %+v", got)
	}

	if err := db.RecordStop(ctx, rec.Key(), time.Now(), errors.New("exit status 1")); err != nil {
		t.Fatalf("RecordStop: %v", err)
	}
	got, _ = db.Recent(ctx, 10)
	if got[0].Running {
		t.Fatal("run still marked running after stop")
	}
	if !got[0].ExitErr.Valid || got[0].ExitErr.String != "exit status 1" {
		t.Fatalf("exit error not recorded: %+v", got[0].ExitErr)
	}
	if !got[0].StoppedAt.Valid {
		t.Fatal("stopped_at not recorded")
	}
}

func TestRecentOrderAndLimit(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		rec := store.Record{PID: 100 + i, StartedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := db.RecordStart(ctx, rec); err != nil {
			t.Fatalf("RecordStart %d: %v", i, err)
		}
	}
	got, err := db.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len=%d want 3", len(got))
	}
	// newest first
	if got[0].PID != 104 || got[2].PID != 102 {
		t.Fatalf("wrong order: %+v", got)
	}
}

func TestStartIsUpsertByRunKey(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()
	rec := store.Record{PID: 7, StartedAt: time.Now()}
	if err := db.RecordStart(ctx, rec); err != nil {
		t.Fatalf("first RecordStart: %v", err)
	}
	if err := db.RecordStart(ctx, rec); err != nil {
		t.Fatalf("second RecordStart: %v", err)
	}
	got, _ := db.Recent(ctx, 10)
	if len(got) != 1 {
		t.Fatalf("duplicate run rows: %+v", got)
	}
}

func TestEmptyPathRejected(t *testing.T) {
	if _, err := New("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
