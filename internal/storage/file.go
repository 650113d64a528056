package storage

import (
	"bufio"
	logx "carebot/pkg/logx"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// fileStore is a dependency-free persistence backend.
//
// Files:
//   - <prefix>.runs.jsonl (append-only JSON Lines)
//
// PruneRuns rewrites the file through a temp file + rename.
type fileStore struct {
	log logx.Logger

	mu     sync.Mutex
	path   string
	f      *os.File
	rename func(oldpath, newpath string) error
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}

	dir := filepath.Dir(path)
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	runsPath := filepath.Join(dir, base) + ".runs.jsonl"
	f, err := os.OpenFile(runsPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	return &fileStore{log: log, path: runsPath, f: f, rename: os.Rename}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

func (s *fileStore) AppendRun(ctx context.Context, e RunEntry) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return ErrDisabled
	}
	return json.NewEncoder(s.f).Encode(e)
}

func (s *fileStore) RecentRuns(ctx context.Context, activity string, limit int) ([]RunEntry, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil, ErrDisabled
	}

	all, err := s.readLocked()
	if err != nil {
		return nil, err
	}
	out := make([]RunEntry, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if activity != "" && all[i].Activity != activity {
			continue
		}
		out = append(out, all[i])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Started.After(out[j].Started) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fileStore) PruneRuns(ctx context.Context, before time.Time) (int, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return 0, ErrDisabled
	}

	all, err := s.readLocked()
	if err != nil {
		return 0, err
	}
	keep := all[:0]
	for _, e := range all {
		if !e.Started.Before(before) {
			keep = append(keep, e)
		}
	}
	removed := len(all) - len(keep)
	if removed == 0 {
		return 0, nil
	}

	tmp := s.path + ".tmp"
	tf, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return 0, err
	}
	enc := json.NewEncoder(tf)
	for _, e := range keep {
		if err := enc.Encode(e); err != nil {
			_ = tf.Close()
			return 0, err
		}
	}
	if err := tf.Close(); err != nil {
		return 0, err
	}

	// The append handle stays open until the new file is in place, so a
	// failed prune leaves the store writable.
	if err := s.rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return 0, err
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return 0, err
	}
	_ = s.f.Close()
	s.f = f
	s.log.Debug("run history pruned", logx.Int("removed", removed), logx.Int("kept", len(keep)))
	return removed, nil
}

func (s *fileStore) readLocked() ([]RunEntry, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []RunEntry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		var e RunEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			// Skip torn lines from a crash mid-append.
			continue
		}
		out = append(out, e)
	}
	return out, sc.Err()
}
