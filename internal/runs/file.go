package runs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	runDirPrefix = "run_"
	recordFile   = "run.json"
	indexFile    = "index.json"
)

// FileStore keeps one directory per run under dir plus a newest-first
// index.json. Old run directories beyond maxRuns are pruned on save.
type FileStore struct {
	dir        string
	indexLimit int
	maxRuns    int

	mu sync.Mutex
}

func NewFileStore(dir string, indexLimit, maxRuns int) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create runs dir: %w", err)
	}
	return &FileStore{dir: dir, indexLimit: indexLimit, maxRuns: maxRuns}, nil
}

func (s *FileStore) runPath(runID string) string {
	return filepath.Join(s.dir, runDirPrefix+runID)
}

func (s *FileStore) Save(ctx context.Context, r Record) error {
	if !ValidID(r.RunID) {
		return fmt.Errorf("invalid run id %q", r.RunID)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	path := s.runPath(r.RunID)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create run dir: %w", err)
	}
	if err := saveJSON(filepath.Join(path, recordFile), r); err != nil {
		return fmt.Errorf("write run record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.updateIndex(r.Entry()); err != nil {
		return fmt.Errorf("update runs index: %w", err)
	}
	if err := pruneRuns(s.dir, s.maxRuns); err != nil {
		return fmt.Errorf("prune runs: %w", err)
	}
	return nil
}

func (s *FileStore) Get(ctx context.Context, runID string) (Record, error) {
	if !ValidID(runID) {
		return Record{}, ErrNotFound
	}
	b, err := os.ReadFile(filepath.Join(s.runPath(runID), recordFile))
	if err != nil {
		if os.IsNotExist(err) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("read run record: %w", err)
	}
	var r Record
	if err := json.Unmarshal(b, &r); err != nil {
		return Record{}, fmt.Errorf("decode run record: %w", err)
	}
	return r, nil
}

// Index returns the newest-first run summaries.
func (s *FileStore) Index() ([]IndexEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readIndex()
}

// Ping checks that the runs directory still exists and is writable.
func (s *FileStore) Ping(ctx context.Context) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("runs dir not writable: %w", err)
	}
	f, err := os.CreateTemp(s.dir, ".ping-*")
	if err != nil {
		return fmt.Errorf("runs dir not writable: %w", err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) readIndex() ([]IndexEntry, error) {
	b, err := os.ReadFile(filepath.Join(s.dir, indexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return []IndexEntry{}, nil
		}
		return nil, err
	}
	var entries []IndexEntry
	if err := json.Unmarshal(b, &entries); err != nil {
		return []IndexEntry{}, nil
	}
	return entries, nil
}

func (s *FileStore) updateIndex(entry IndexEntry) error {
	if s.indexLimit <= 0 {
		return nil
	}
	entries, err := s.readIndex()
	if err != nil {
		return err
	}
	kept := []IndexEntry{entry}
	for _, e := range entries {
		if e.RunID != entry.RunID {
			kept = append(kept, e)
		}
	}
	if len(kept) > s.indexLimit {
		kept = kept[:s.indexLimit]
	}
	return saveJSON(filepath.Join(s.dir, indexFile), kept)
}

func saveJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

type runEntry struct {
	path    string
	modTime time.Time
}

// pruneRuns keeps the maxRuns most recently modified run directories.
// Other directories and files are left alone.
func pruneRuns(runsDir string, maxRuns int) error {
	if maxRuns <= 0 {
		return nil
	}
	entries, err := os.ReadDir(runsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var found []runEntry
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), runDirPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		found = append(found, runEntry{path: filepath.Join(runsDir, entry.Name()), modTime: info.ModTime()})
	}
	if len(found) <= maxRuns {
		return nil
	}

	sort.Slice(found, func(i, j int) bool {
		return found[i].modTime.After(found[j].modTime)
	})
	for i := maxRuns; i < len(found); i++ {
		if err := os.RemoveAll(found[i].path); err != nil {
			return err
		}
	}
	return nil
}
