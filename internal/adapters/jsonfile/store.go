// Package jsonfile persiste le feed et les snapshots de timetable dans des fichiers JSON.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Guilhem-Bonnet/dubfeed/internal/domain"
	"github.com/Guilhem-Bonnet/dubfeed/internal/ports"
	"github.com/spf13/afero"
)

const (
	FeedFile        = "episodeFeed.json"
	ScheduleFile    = "scheduleSnapshot.json"
	RawScheduleFile = "dubSchedule.json"
	TitleCacheFile  = "titleCache.json"
)

// Store implémente ports.FeedStore et ports.TitleCache sur un répertoire.
// Les écritures passent par un fichier temporaire puis un rename.
type Store struct {
	fs  afero.Fs
	dir string

	// Readable écrit aussi une copie indentée "<nom>-readable.json" (jamais relue).
	Readable bool

	mu     sync.Mutex
	titles map[string]domain.SeriesIdentity
}

func New(fsys afero.Fs, dir string) *Store {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}
	return &Store{fs: fsys, dir: dir, Readable: true}
}

func (s *Store) LoadFeed(ctx context.Context) ([]domain.FeedEpisode, error) {
	out := []domain.FeedEpisode{}
	if err := s.load(FeedFile, "[]", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) SaveFeed(ctx context.Context, feed []domain.FeedEpisode) error {
	if feed == nil {
		feed = []domain.FeedEpisode{}
	}
	return s.save(FeedFile, feed)
}

func (s *Store) LoadSchedule(ctx context.Context) ([]domain.ScheduleEntry, error) {
	out := []domain.ScheduleEntry{}
	if err := s.load(ScheduleFile, "[]", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) SaveSchedule(ctx context.Context, schedule []domain.ScheduleEntry) error {
	if schedule == nil {
		schedule = []domain.ScheduleEntry{}
	}
	return s.save(ScheduleFile, schedule)
}

func (s *Store) SaveRawSchedule(ctx context.Context, records []domain.RawBroadcast) error {
	if records == nil {
		records = []domain.RawBroadcast{}
	}
	return s.save(RawScheduleFile, records)
}

func (s *Store) Get(ctx context.Context, key string) (domain.SeriesIdentity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadTitlesLocked(); err != nil {
		return domain.SeriesIdentity{}, err
	}
	id, ok := s.titles[key]
	if !ok {
		return domain.SeriesIdentity{}, ports.ErrNotFound
	}
	return id, nil
}

func (s *Store) Put(ctx context.Context, key string, id domain.SeriesIdentity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadTitlesLocked(); err != nil {
		return err
	}
	s.titles[key] = id
	b, err := json.Marshal(s.titles)
	if err != nil {
		return err
	}
	return s.writeAtomic(filepath.Join(s.dir, TitleCacheFile), b)
}

func (s *Store) loadTitlesLocked() error {
	if s.titles != nil {
		return nil
	}
	titles := map[string]domain.SeriesIdentity{}
	if err := s.load(TitleCacheFile, "{}", &titles); err != nil {
		return err
	}
	s.titles = titles
	return nil
}

// load lit name; s'il n'existe pas, le crée avec empty.
func (s *Store) load(name, empty string, out any) error {
	path := filepath.Join(s.dir, name)
	b, err := afero.ReadFile(s.fs, path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := s.writeAtomic(path, []byte(empty)); err != nil {
			return err
		}
		b = []byte(empty)
	} else if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

func (s *Store) save(name string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := s.writeAtomic(filepath.Join(s.dir, name), b); err != nil {
		return err
	}
	if !s.Readable {
		return nil
	}
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return s.writeAtomic(filepath.Join(s.dir, readableName(name)), pretty)
}

func readableName(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + "-readable" + ext
}

func (s *Store) writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	tmp, err := afero.TempFile(s.fs, dir, ".dubfeed-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := s.fs.Chmod(tmpName, 0o644); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := s.fs.Rename(tmpName, path); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
