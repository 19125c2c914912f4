package blob

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DocumentStore uploads generated documents under dated keys:
//
//	<prefix>/<yyyy>/<mm>/<dd>/<artifactBase>-<uuid><ext>
//
// and returns canonical blob@<bucket>:<key> locations, which round-trip
// through address.Parse.
type DocumentStore struct {
	store  Store
	bucket string
	prefix string

	now func() time.Time // test hook
}

// NewDocumentStore returns a DocumentStore writing to bucket under prefix.
func NewDocumentStore(store Store, bucket, prefix string) *DocumentStore {
	return &DocumentStore{
		store:  store,
		bucket: bucket,
		prefix: prefix,
		now:    time.Now,
	}
}

// Persist uploads the artifact at artifactPath and returns its remote
// location. Failures wrap ErrPersist and never invalidate the local
// artifact.
func (d *DocumentStore) Persist(ctx context.Context, artifactPath, contentType string) (string, error) {
	base := filepath.Base(artifactPath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	now := d.now().UTC()

	key := path.Join(
		d.prefix,
		now.Format("2006/01/02"),
		fmt.Sprintf("%s-%s%s", stem, uuid.NewString(), ext),
	)

	f, err := os.Open(artifactPath)
	if err != nil {
		return "", fmt.Errorf("open artifact %s: %w: %w", artifactPath, ErrPersist, err)
	}
	defer func() { _ = f.Close() }()

	meta := ObjectMeta{
		ContentType: contentType,
		Attributes: map[string]string{
			"artifact":     base,
			"generated_at": now.Format(time.RFC3339),
		},
	}
	if err := d.store.Put(ctx, d.bucket, key, f, meta); err != nil {
		return "", fmt.Errorf("upload %s as %s/%s: %w: %w", base, d.bucket, key, ErrPersist, err)
	}

	return "blob@" + d.bucket + ":" + key, nil
}
