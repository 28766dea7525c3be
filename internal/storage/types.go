package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrMalformed means the stored value exists but is not a float.
	ErrMalformed = errors.New("storage: malformed score")
	ErrClosed    = errors.New("storage: closed")
)

// Store is the best-score persistence API used by the poll cycle.
type Store interface {
	// Load returns (0, false, nil) when nothing has been stored yet.
	Load(ctx context.Context) (score float64, ok bool, err error)
	// Save overwrites the stored score.
	Save(ctx context.Context, score float64) error
	Close() error
}

// Config configures storage.
//
// Driver values:
//   - "file" (default): plain text file at Path
//   - "sqlite": SQLite database file at Path
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}
