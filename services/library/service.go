package library

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/mozillazg/go-unidecode"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"mediastream/models"
)

// ErrNotFound is returned when a requested entry is not part of the library.
var ErrNotFound = errors.New("media not found")

// Config tunes a library Service.
type Config struct {
	// Root is the directory scanned for media.
	Root string
	// Formats lists servable extensions (dot-prefixed, lower case).
	Formats []string
	// StatWorkers bounds the concurrent stat calls during a scan.
	StatWorkers int
}

// Service is the content resolver: it scans the media root and maps
// validated entry names to absolute paths and sizes. Handlers never touch
// the filesystem layout directly.
type Service struct {
	fs       afero.Fs
	root     string
	formats  map[string]struct{}
	workers  int
	collator *collate.Collator

	mu      sync.RWMutex
	entries []models.MediaEntry
	byName  map[string]models.MediaEntry
}

// NewService builds a Service over the given filesystem and performs an
// initial scan.
func NewService(fsys afero.Fs, cfg Config) (*Service, error) {
	formats := make(map[string]struct{}, len(cfg.Formats))
	for _, f := range cfg.Formats {
		formats[strings.ToLower(f)] = struct{}{}
	}
	workers := cfg.StatWorkers
	if workers <= 0 {
		workers = 8
	}

	s := &Service{
		fs:       fsys,
		root:     cfg.Root,
		formats:  formats,
		workers:  workers,
		collator: collate.New(language.Und, collate.IgnoreCase, collate.Numeric),
		byName:   make(map[string]models.MediaEntry),
	}
	if err := s.Rescan(); err != nil {
		return nil, err
	}
	return s, nil
}

// Rescan walks the media root and rebuilds the listing.
func (s *Service) Rescan() error {
	var names []string
	err := afero.Walk(s.fs, s.root, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			// Hidden directories (and their contents) are never listed.
			if base := filepath.Base(p); p != s.root && strings.HasPrefix(base, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		base := filepath.Base(p)
		if strings.HasPrefix(base, ".") {
			return nil
		}
		if _, ok := s.formats[strings.ToLower(filepath.Ext(base))]; !ok {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return fmt.Errorf("library: scan %q: %w", s.root, err)
	}

	// Stat concurrently; large libraries sit on slow network mounts.
	results := make([]models.MediaEntry, len(names))
	p := pool.New().WithMaxGoroutines(s.workers).WithErrors()
	for i, name := range names {
		i, name := i, name
		p.Go(func() error {
			info, err := s.fs.Stat(filepath.Join(s.root, filepath.FromSlash(name)))
			if err != nil {
				return fmt.Errorf("library: stat %q: %w", name, err)
			}
			results[i] = models.MediaEntry{
				Name:  name,
				Title: displayTitle(name),
				Size:  info.Size(),
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return err
	}

	sort.Slice(results, func(i, j int) bool {
		return s.collator.CompareString(results[i].Name, results[j].Name) < 0
	})

	byName := make(map[string]models.MediaEntry, len(results))
	for _, e := range results {
		byName[e.Name] = e
	}

	s.mu.Lock()
	s.entries = results
	s.byName = byName
	s.mu.Unlock()

	slog.Info("library.scanned", "root", s.root, "entries", len(results))
	return nil
}

// List returns the current listing in display order.
func (s *Service) List() []models.MediaEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.MediaEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Resolve validates an entry name against the scanned set and returns its
// absolute path and size. Names that escape the root or were never scanned
// yield ErrNotFound.
func (s *Service) Resolve(name string) (absPath string, size int64, err error) {
	cleaned := path.Clean(strings.TrimPrefix(name, "/"))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", 0, ErrNotFound
	}

	s.mu.RLock()
	entry, ok := s.byName[cleaned]
	s.mu.RUnlock()
	if !ok {
		return "", 0, ErrNotFound
	}
	return filepath.Join(s.root, filepath.FromSlash(entry.Name)), entry.Size, nil
}

// Neighbors returns the previous and next entries around name in listing
// order, for the player's previous/next navigation. Empty strings mean no
// neighbor on that side.
func (s *Service) Neighbors(name string) (prev, next string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, e := range s.entries {
		if e.Name != name {
			continue
		}
		if i > 0 {
			prev = s.entries[i-1].Name
		}
		if i < len(s.entries)-1 {
			next = s.entries[i+1].Name
		}
		return prev, next
	}
	return "", ""
}

// displayTitle derives an ASCII display title from a file name: extension
// dropped, separators spaced, non-ASCII transliterated.
func displayTitle(name string) string {
	base := path.Base(name)
	base = strings.TrimSuffix(base, path.Ext(base))
	base = strings.NewReplacer("_", " ", ".", " ").Replace(base)
	return strings.Join(strings.Fields(unidecode.Unidecode(base)), " ")
}
