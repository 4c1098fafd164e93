package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type MemoryFile struct {
	Name     string
	FolderID string
	Versions [][]byte
}

// MemoryStore is an in-process Store used by tests and local runs.
type MemoryStore struct {
	mu    sync.Mutex
	files map[string]*MemoryFile

	// Per-operation failure hooks; nil means succeed.
	FailDownload func(id string) error
	FailDelete   func(id string) error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{files: make(map[string]*MemoryFile)}
}

// Add seeds a file with a fixed ID.
func (s *MemoryStore) Add(id, folderID, name string, data []byte) {
	s.mu.Lock()
	s.files[id] = &MemoryFile{Name: name, FolderID: folderID, Versions: [][]byte{data}}
	s.mu.Unlock()
}

// File returns a copy of the file with the given ID.
func (s *MemoryStore) File(id string) (MemoryFile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[id]
	if !ok {
		return MemoryFile{}, false
	}
	versions := make([][]byte, len(f.Versions))
	for i, v := range f.Versions {
		versions[i] = append([]byte(nil), v...)
	}
	return MemoryFile{Name: f.Name, FolderID: f.FolderID, Versions: versions}, true
}

// Len returns the number of files in the store.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

func (s *MemoryStore) Find(ctx context.Context, folderID, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, f := range s.files {
		if f.FolderID == folderID && f.Name == name {
			return id, nil
		}
	}
	return "", ErrNoObject
}

func (s *MemoryStore) Download(ctx context.Context, id string) ([]byte, error) {
	if s.FailDownload != nil {
		if err := s.FailDownload(id); err != nil {
			return nil, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[id]
	if !ok {
		return nil, ErrNoObject
	}
	return append([]byte(nil), f.Versions[len(f.Versions)-1]...), nil
}

func (s *MemoryStore) Upload(ctx context.Context, folderID, name string, data []byte) (string, error) {
	id := uuid.NewString()
	s.Add(id, folderID, name, data)
	return id, nil
}

func (s *MemoryStore) UploadVersion(ctx context.Context, id, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[id]
	if !ok {
		return ErrNoObject
	}
	f.Name = name
	f.Versions = append(f.Versions, data)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if s.FailDelete != nil {
		if err := s.FailDelete(id); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[id]; !ok {
		return errors.Wrap(ErrNoObject, id)
	}
	delete(s.files, id)
	return nil
}

func (s *MemoryStore) Move(ctx context.Context, id, folderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[id]
	if !ok {
		return errors.Wrap(ErrNoObject, id)
	}
	f.FolderID = folderID
	return nil
}
