package store

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// File is an append-only text file with one identifier per line. Each
// Record appends and fsyncs before returning.
type File struct {
	mu   sync.Mutex
	f    *os.File
	seen map[string]struct{}
}

// NewFile opens or creates the file at path and loads the identifiers it
// already holds. A last line without a newline is the remains of an
// interrupted append; it is cut off before any new record is written.
func NewFile(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open store file: %w", err)
	}

	data, err := io.ReadAll(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}
	complete := bytes.LastIndexByte(data, '\n') + 1
	if complete < len(data) {
		if err := f.Truncate(int64(complete)); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to drop partial record: %w", err)
		}
		if err := f.Sync(); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to sync store file: %w", err)
		}
	}

	seen := make(map[string]struct{})
	sc := bufio.NewScanner(bytes.NewReader(data[:complete]))
	for sc.Scan() {
		if id := strings.TrimSpace(sc.Text()); id != "" {
			seen[id] = struct{}{}
		}
	}
	if err := sc.Err(); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}

	return &File{f: f, seen: seen}, nil
}

func (s *File) Contains(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[id]
	return ok, nil
}

func (s *File) Record(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[id]; ok {
		return nil
	}
	if _, err := s.f.WriteString(id + "\n"); err != nil {
		return fmt.Errorf("failed to append posting %s: %w", id, err)
	}
	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("failed to sync store file: %w", err)
	}
	s.seen[id] = struct{}{}
	return nil
}

func (s *File) Count(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen), nil
}

func (s *File) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}
