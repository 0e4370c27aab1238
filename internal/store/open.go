// ABOUTME: Backend factory that builds a DocumentStore from driver options
// ABOUTME: Verifies connectivity so callers fail fast at startup

package store

import (
	"context"
	"fmt"
)

// Driver names accepted by Open.
const (
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// Options selects and configures a backend.
type Options struct {
	Driver string // sqlite, sqlite3, redis, memory
	Path   string // SQLite database file
	Redis  RedisOptions
}

// Open creates the backend named by opts.Driver and pings it.
func Open(ctx context.Context, opts Options) (DocumentStore, error) {
	var (
		s   DocumentStore
		err error
	)
	switch opts.Driver {
	case "", DriverModernc, DriverCgo:
		s, err = NewSQLiteStore(opts.Driver, opts.Path)
	case DriverRedis:
		s, err = NewRedisStore(ctx, opts.Redis)
	case DriverMemory:
		s = NewMockStore()
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := s.Ping(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
