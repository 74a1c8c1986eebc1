// Package store keeps pipeline artifacts as flat files, one directory per area.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Area is a top-level directory under the data dir.
type Area string

const (
	Uploads          Area = "uploads"
	Processed        Area = "processed"
	OCRResults       Area = "ocr_results"
	AttributeResults Area = "attribute_results"
	Reports          Area = "reports"
)

// Areas lists every area in a fixed order.
var Areas = []Area{Uploads, Processed, OCRResults, AttributeResults, Reports}

// ErrNotFound is returned when no file in an area matches an id.
var ErrNotFound = errors.New("not found")

// Entry describes one stored file.
type Entry struct {
	Area    Area      `json:"-"`
	Name    string    `json:"filename"`
	Size    int64     `json:"file_size"`
	ModTime time.Time `json:"modified_time"`
}

// Store is a thread-safe flat-file store rooted at a data directory.
type Store struct {
	root string
	mu   sync.RWMutex
}

func New(root string) *Store {
	return &Store{root: root}
}

// Root returns the data directory.
func (s *Store) Root() string {
	return s.root
}

// NewFileID returns a fresh identifier for an uploaded file.
func NewFileID() string {
	return uuid.NewString()
}

// Ensure creates the data directory and every area under it.
func (s *Store) Ensure() error {
	for _, a := range Areas {
		if err := os.MkdirAll(s.dir(a), 0o755); err != nil {
			return fmt.Errorf("create %s: %w", a, err)
		}
	}
	return nil
}

// Check reports whether each area directory exists.
func (s *Store) Check() map[Area]bool {
	out := make(map[Area]bool, len(Areas))
	for _, a := range Areas {
		info, err := os.Stat(s.dir(a))
		out[a] = err == nil && info.IsDir()
	}
	return out
}

// Put writes data under name in area, replacing any file of that name.
func (s *Store) Put(area Area, name string, data []byte) (Entry, error) {
	if err := validName(name); err != nil {
		return Entry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir(area), 0o755); err != nil {
		return Entry{}, fmt.Errorf("create %s: %w", area, err)
	}
	path := filepath.Join(s.dir(area), name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return Entry{}, fmt.Errorf("write %s/%s: %w", area, name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return Entry{}, fmt.Errorf("rename %s/%s: %w", area, name, err)
	}
	return Entry{Area: area, Name: name, Size: int64(len(data)), ModTime: time.Now()}, nil
}

// List returns the files in area sorted by name. A missing area is empty.
func (s *Store) List(area Area) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list(area)
}

func (s *Store) list(area Area) ([]Entry, error) {
	des, err := os.ReadDir(s.dir(area))
	if errors.Is(err, os.ErrNotExist) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", area, err)
	}
	out := make([]Entry, 0, len(des))
	for _, de := range des {
		if de.IsDir() || strings.HasSuffix(de.Name(), ".tmp") {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		out = append(out, Entry{Area: area, Name: de.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Find returns the first file in area, by name order, whose name contains id.
func (s *Store) Find(area Area, id string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.find(area, id)
}

// FindLatest is like Find but returns the most recently modified match.
// Result files carry a timestamp, so repeated runs leave several matches.
func (s *Store) FindLatest(area Area, id string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id == "" {
		return Entry{}, ErrNotFound
	}
	entries, err := s.list(area)
	if err != nil {
		return Entry{}, err
	}
	var best Entry
	found := false
	for _, e := range entries {
		if !strings.Contains(e.Name, id) {
			continue
		}
		if !found || e.ModTime.After(best.ModTime) || (e.ModTime.Equal(best.ModTime) && e.Name > best.Name) {
			best = e
			found = true
		}
	}
	if !found {
		return Entry{}, fmt.Errorf("%s %q: %w", area, id, ErrNotFound)
	}
	return best, nil
}

func (s *Store) find(area Area, id string) (Entry, error) {
	if id == "" {
		return Entry{}, ErrNotFound
	}
	entries, err := s.list(area)
	if err != nil {
		return Entry{}, err
	}
	for _, e := range entries {
		if strings.Contains(e.Name, id) {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("%s %q: %w", area, id, ErrNotFound)
}

// Read returns the contents of the file Find selects.
func (s *Store) Read(area Area, id string) ([]byte, Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, err := s.find(area, id)
	if err != nil {
		return nil, Entry{}, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir(area), e.Name))
	if err != nil {
		return nil, Entry{}, fmt.Errorf("read %s/%s: %w", area, e.Name, err)
	}
	return data, e, nil
}

// ReadEntry returns the contents of a file already located by Find or List.
func (s *Store) ReadEntry(e Entry) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, err := os.ReadFile(filepath.Join(s.dir(e.Area), e.Name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s/%s: %w", e.Area, e.Name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", e.Area, e.Name, err)
	}
	return data, nil
}

// Delete removes the file Find selects and returns its entry.
func (s *Store) Delete(area Area, id string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.find(area, id)
	if err != nil {
		return Entry{}, err
	}
	if err := os.Remove(filepath.Join(s.dir(area), e.Name)); err != nil {
		return Entry{}, fmt.Errorf("delete %s/%s: %w", area, e.Name, err)
	}
	return e, nil
}

func (s *Store) dir(area Area) string {
	return filepath.Join(s.root, string(area))
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid file name %q", name)
	}
	return nil
}
