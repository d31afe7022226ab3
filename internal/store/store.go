package store

import (
	"context"
	"database/sql"
	"strconv"
	"time"
)

// Record is one supervised run of the bot process. A run is uniquely
// identified by its PID and start time, which survives restarts of the
// launcher itself.
type Record struct {
	PID       int
	StartedAt time.Time
	StoppedAt sql.NullTime
	Running   bool
	ExitErr   sql.NullString
	UpdatedAt time.Time
}

// Key returns the unique identity of this run.
func (r Record) Key() string { return UniqueKey(r.PID, r.StartedAt) }

// UniqueKey derives a stable run identity from PID and start time.
func UniqueKey(pid int, startedAt time.Time) string {
	return strconv.Itoa(pid) + "@" + strconv.FormatInt(startedAt.UTC().UnixNano(), 10)
}

// Store persists the run history consumed by the /history endpoint and by
// post-mortem inspection of crashed bot sessions.
type Store interface {
	EnsureSchema(ctx context.Context) error
	RecordStart(ctx context.Context, rec Record) error
	RecordStop(ctx context.Context, uniq string, stoppedAt time.Time, exitErr error) error
	Recent(ctx context.Context, limit int) ([]Record, error)
	Close() error
}
