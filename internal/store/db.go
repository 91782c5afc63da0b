package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"
)

const memoryPath = ":memory:"

type DB struct {
	Pool *sql.DB
	lock *flock.Flock
}

// Open opens the SQLite dataset at path and takes an exclusive lock beside it
// (path + ".lock"), so two runs never write the same dataset at once. Use
// ":memory:" for a throwaway database.
func Open(path string) (*DB, error) {
	var lock *flock.Flock
	if path != memoryPath {
		lock = flock.New(path + ".lock")
		ok, err := lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("lock %s: %w", path, err)
		}
		if !ok {
			return nil, fmt.Errorf("dataset %s is in use by another run", path)
		}
	}

	// modernc sqlite uses DSN like: file:foo.db?_pragma=busy_timeout(5000)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)

	pool, err := sql.Open("sqlite", dsn)
	if err != nil {
		unlock(lock)
		return nil, err
	}

	// one writer; also keeps a :memory: database alive on a single connection
	pool.SetMaxOpenConns(1)
	pool.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		unlock(lock)
		return nil, err
	}

	return &DB{Pool: pool, lock: lock}, nil
}

func (d *DB) Close() error {
	if d == nil || d.Pool == nil {
		return nil
	}
	err := d.Pool.Close()
	unlock(d.lock)
	return err
}

func unlock(l *flock.Flock) {
	if l != nil {
		_ = l.Unlock()
	}
}
