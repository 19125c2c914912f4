// Package blob abstracts the object store documents and templates live in.
//
// The core consumes the Store interface; construction and credentials for a
// real object store belong to the embedding service. DirStore implements
// Store over a billy.Filesystem so local deployments and tests run against
// a plain directory (osfs) or memory (memfs).
package blob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/go-git/go-billy/v5"
)

var (
	// ErrPersist marks document persistence failures.
	ErrPersist = errors.New("document persistence failed")
	// ErrNotFound marks missing objects.
	ErrNotFound = errors.New("object not found")
)

// ObjectMeta carries per-object metadata recorded at Put time.
type ObjectMeta struct {
	ContentType string            `json:"content_type,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// Store is a minimal object store: buckets of keyed byte streams.
type Store interface {
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	Put(ctx context.Context, bucket, key string, r io.Reader, meta ObjectMeta) error
}

// DirStore lays objects out as <root>/<bucket>/<key>, with metadata in a
// ".meta" JSON sidecar next to each object.
type DirStore struct {
	fs billy.Filesystem
}

// NewDirStore returns a DirStore over fs.
func NewDirStore(fs billy.Filesystem) *DirStore {
	return &DirStore{fs: fs}
}

// Get opens the object for reading.
func (s *DirStore) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	f, err := s.fs.Open(path.Join(bucket, key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s/%s: %w", bucket, key, ErrNotFound)
		}
		return nil, fmt.Errorf("open object %s/%s: %w", bucket, key, err)
	}
	return f, nil
}

// Put writes the object and its metadata sidecar.
func (s *DirStore) Put(ctx context.Context, bucket, key string, r io.Reader, meta ObjectMeta) error {
	full := path.Join(bucket, key)
	if err := s.fs.MkdirAll(path.Dir(full), 0o755); err != nil {
		return fmt.Errorf("mkdir for %s: %w", full, err)
	}

	f, err := s.fs.Create(full)
	if err != nil {
		return fmt.Errorf("create object %s: %w", full, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = s.fs.Remove(full) // no partial objects
		return fmt.Errorf("write object %s: %w", full, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close object %s: %w", full, err)
	}

	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode meta for %s: %w", full, err)
	}
	mf, err := s.fs.Create(full + ".meta")
	if err != nil {
		return fmt.Errorf("create meta for %s: %w", full, err)
	}
	if _, err := mf.Write(raw); err != nil {
		_ = mf.Close()
		return fmt.Errorf("write meta for %s: %w", full, err)
	}
	return mf.Close()
}

// Meta reads an object's metadata sidecar.
func (s *DirStore) Meta(bucket, key string) (ObjectMeta, error) {
	f, err := s.fs.Open(path.Join(bucket, key) + ".meta")
	if err != nil {
		if os.IsNotExist(err) {
			return ObjectMeta{}, fmt.Errorf("%s/%s: %w", bucket, key, ErrNotFound)
		}
		return ObjectMeta{}, fmt.Errorf("open meta %s/%s: %w", bucket, key, err)
	}
	defer func() { _ = f.Close() }()

	var meta ObjectMeta
	if err := json.NewDecoder(f).Decode(&meta); err != nil {
		return ObjectMeta{}, fmt.Errorf("decode meta %s/%s: %w", bucket, key, err)
	}
	return meta, nil
}
