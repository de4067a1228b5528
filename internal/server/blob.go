package server

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/aldenvall/inkpress/internal/apperr"
)

var blobIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// BlobStore keeps uploaded PDFs on the local filesystem, one file per
// storage ID.
type BlobStore struct {
	root string // absolute path to the blob directory
}

// NewBlobStore creates a blob store rooted at the given directory, creating
// it if needed.
func NewBlobStore(root string) (*BlobStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("server: resolve blob root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("server: create blob root: %w", err)
	}
	return &BlobStore{root: abs}, nil
}

// NewID returns a fresh random storage ID.
func (b *BlobStore) NewID() string {
	var buf [16]byte
	_, _ = rand.Read(buf[:])
	return hex.EncodeToString(buf[:])
}

// safePath validates the ID and resolves it under the blob root. IDs are a
// flat namespace; anything that could name a path is rejected.
func (b *BlobStore) safePath(id string) (string, error) {
	if !blobIDRe.MatchString(id) {
		return "", fmt.Errorf("server: invalid blob id: %q", id)
	}
	return filepath.Join(b.root, id), nil
}

// Put atomically writes content under id: tmp file → fsync → rename.
func (b *BlobStore) Put(id string, content []byte) error {
	abs, err := b.safePath(id)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(b.root, ".inkpress-tmp-*")
	if err != nil {
		return fmt.Errorf("server: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("server: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("server: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("server: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("server: rename: %w", err)
	}
	success = true
	return nil
}

// Get returns the stored bytes for id, or apperr.ErrNotFound.
func (b *BlobStore) Get(id string) ([]byte, error) {
	abs, err := b.safePath(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("server: blob %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("server: read blob %s: %w", id, err)
	}
	return data, nil
}

// Delete removes the blob for id, or returns apperr.ErrNotFound.
func (b *BlobStore) Delete(id string) error {
	abs, err := b.safePath(id)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("server: blob %s: %w", id, apperr.ErrNotFound)
		}
		return fmt.Errorf("server: delete blob %s: %w", id, err)
	}
	return nil
}
