// Package store is the durable record of processed posting identifiers.
//
// Every implementation acknowledges Record only after the identifier is
// durable, and Record of a known identifier is a no-op.
package store

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"go-outreach-automation/internal/config"
)

// ErrLocked is returned by Open when another process holds the store.
var ErrLocked = errors.New("store is locked by another process")

type Store interface {
	Contains(ctx context.Context, id string) (bool, error)
	// Record inserts id; it must not fail when id is already present.
	Record(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	Close() error
}

// Open creates the store selected by cfg.Driver. Local stores (sqlite,
// file) are guarded by a lock file so that only one agent writes them.
// When cfg.ImportFile is set, its identifiers are recorded before Open
// returns.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "sqlite", "":
		s, err = openLocked(cfg.Path, func() (Store, error) { return NewSQLite(ctx, cfg.Path) })
	case "file":
		s, err = openLocked(cfg.Path, func() (Store, error) { return NewFile(cfg.Path) })
	case "postgres":
		s, err = NewPostgres(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if cfg.ImportFile != "" {
		if _, err := ImportFile(ctx, s, cfg.ImportFile); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

type lockedStore struct {
	Store
	lock *flock.Flock
}

func openLocked(path string, open func() (Store, error)) (Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock store: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrLocked)
	}

	s, err := open()
	if err != nil {
		lock.Unlock()
		return nil, err
	}
	return &lockedStore{Store: s, lock: lock}, nil
}

func (l *lockedStore) Close() error {
	err := l.Store.Close()
	if uerr := l.lock.Unlock(); uerr != nil && err == nil {
		err = uerr
	}
	return err
}

// Import records every identifier read from r, one per line. Blank lines
// and lines starting with '#' are ignored. It returns how many identifiers
// were new.
func Import(ctx context.Context, s Store, r io.Reader) (int, error) {
	added := 0
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		id := strings.TrimSpace(sc.Text())
		if id == "" || strings.HasPrefix(id, "#") {
			continue
		}
		known, err := s.Contains(ctx, id)
		if err != nil {
			return added, err
		}
		if known {
			continue
		}
		if err := s.Record(ctx, id); err != nil {
			return added, err
		}
		added++
	}
	if err := sc.Err(); err != nil {
		return added, fmt.Errorf("failed to read import: %w", err)
	}
	return added, nil
}

// ImportFile is Import over the file at path. A missing file imports nothing.
func ImportFile(ctx context.Context, s Store, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()
	return Import(ctx, s, f)
}
