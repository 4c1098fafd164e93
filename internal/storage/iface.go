package storage

import (
	"context"

	"github.com/pkg/errors"
)

var ErrNoObject = errors.New("storage: no object")

// Store is a folder-oriented file store that keeps a version history for
// every file. IDs are opaque to callers.
type Store interface {
	// Find returns the ID of the file called name directly inside folderID,
	// or ErrNoObject.
	Find(ctx context.Context, folderID, name string) (string, error)
	Download(ctx context.Context, id string) ([]byte, error)
	// Upload creates a new file and returns its ID.
	Upload(ctx context.Context, folderID, name string, data []byte) (string, error)
	// UploadVersion stores data as the newest version of an existing file.
	UploadVersion(ctx context.Context, id, name string, data []byte) error
	Delete(ctx context.Context, id string) error
	// Move changes the parent folder of a file without creating a new one.
	Move(ctx context.Context, id, folderID string) error
}

// Put writes data to name in folderID, adding a version when the file
// already exists and creating it otherwise. It returns the file ID.
func Put(ctx context.Context, s Store, folderID, name string, data []byte) (string, error) {
	id, err := s.Find(ctx, folderID, name)
	if err == nil {
		return id, errors.Wrapf(s.UploadVersion(ctx, id, name, data), "upload version of %s", name)
	}
	if errors.Cause(err) != ErrNoObject {
		return "", errors.Wrapf(err, "find %s", name)
	}
	id, err = s.Upload(ctx, folderID, name, data)
	return id, errors.Wrapf(err, "upload %s", name)
}
