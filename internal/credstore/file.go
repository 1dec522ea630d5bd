package credstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
)

// FileStore keeps tokens in a TOML file with one table per origin, so a
// single file can hold sessions for several backends:
//
//	[origins."https://api.clinic.example"]
//	access_token = "..."
//	refresh_token = "..."
type FileStore struct {
	path   string
	origin string
	mu     sync.Mutex
}

type fileDocument struct {
	Origins map[string]fileEntry `toml:"origins"`
}

type fileEntry struct {
	AccessToken  string `toml:"access_token,omitempty"`
	RefreshToken string `toml:"refresh_token,omitempty"`
}

// NewFileStore returns a store backed by path, scoped to origin. The file is
// created lazily on the first write.
func NewFileStore(path, origin string) *FileStore {
	return &FileStore{path: path, origin: origin}
}

// Path returns the backing file.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Save(access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.update(func(e *fileEntry) {
		e.AccessToken = access
		e.RefreshToken = refresh
	})
}

func (s *FileStore) SaveAccess(access string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.update(func(e *fileEntry) {
		e.AccessToken = access
	})
}

func (s *FileStore) Read() (Tokens, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return Tokens{}, err
	}
	entry := doc.Origins[s.origin]
	return Tokens{Access: entry.AccessToken, Refresh: entry.RefreshToken}, nil
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := doc.Origins[s.origin]; !ok {
		return nil
	}
	delete(doc.Origins, s.origin)
	return s.write(doc)
}

func (s *FileStore) update(mutate func(*fileEntry)) error {
	doc, err := s.load()
	if err != nil {
		return err
	}
	entry := doc.Origins[s.origin]
	mutate(&entry)
	if entry.AccessToken == "" && entry.RefreshToken == "" {
		delete(doc.Origins, s.origin)
	} else {
		doc.Origins[s.origin] = entry
	}
	return s.write(doc)
}

func (s *FileStore) load() (fileDocument, error) {
	doc := fileDocument{Origins: make(map[string]fileEntry)}

	bytes, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return doc, nil
		}
		return doc, fmt.Errorf("read credentials: %w", err)
	}
	if err := toml.Unmarshal(bytes, &doc); err != nil {
		return doc, fmt.Errorf("parse credentials: %w", err)
	}
	if doc.Origins == nil {
		doc.Origins = make(map[string]fileEntry)
	}
	return doc, nil
}

// write replaces the file atomically: temp file in the same directory, then
// rename over the original.
func (s *FileStore) write(doc fileDocument) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}

	bytes, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp credentials: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp credentials: %w", err)
	}
	if _, err := tmp.Write(bytes); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp credentials: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace credentials: %w", err)
	}
	return nil
}
