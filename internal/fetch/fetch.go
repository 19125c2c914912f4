// Package fetch downloads template bytes into local files.
//
// Each Downloader owns one protocol's transport specifics; the Registry is
// built explicitly at startup and dispatches by scheme. Every variant
// shares one side-effect contract: exactly one file at dst on success, and
// on failure dst is never left partially written and readable. Bytes land
// in a temp file in the same directory and are renamed into place.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/agentic-research/docforge/internal/address"
)

var (
	// ErrUnsupportedScheme marks addresses no downloader handles.
	ErrUnsupportedScheme = errors.New("unsupported address scheme")
	// ErrDownload marks transport failures.
	ErrDownload = errors.New("template download failed")
)

// Downloader fetches one address's bytes into a target file.
type Downloader interface {
	// Scheme is the protocol tag this variant handles.
	Scheme() string
	// Fetch writes the addressed bytes to dst.
	Fetch(ctx context.Context, addr address.Address, dst string) error
}

// Registry dispatches addresses to downloaders by scheme.
type Registry struct {
	byScheme map[string]Downloader
}

// NewRegistry builds a registry from an explicit downloader list. A later
// downloader with the same scheme replaces an earlier one.
func NewRegistry(downloaders ...Downloader) *Registry {
	r := &Registry{byScheme: make(map[string]Downloader, len(downloaders))}
	for _, d := range downloaders {
		r.byScheme[d.Scheme()] = d
	}
	return r
}

// Lookup returns the downloader for scheme.
func (r *Registry) Lookup(scheme string) (Downloader, error) {
	d, ok := r.byScheme[scheme]
	if !ok {
		return nil, fmt.Errorf("scheme %q: %w", scheme, ErrUnsupportedScheme)
	}
	return d, nil
}

// Fetch dispatches addr to its downloader and fetches into dst.
func (r *Registry) Fetch(ctx context.Context, addr address.Address, dst string) error {
	d, err := r.Lookup(addr.Scheme)
	if err != nil {
		return err
	}
	return d.Fetch(ctx, addr, dst)
}

// writeAtomic streams r to dst via a temp file in the same directory.
func writeAtomic(dst string, r io.Reader) error {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".docforge-fetch-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName) // best-effort cleanup
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName) // best-effort cleanup
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		_ = os.Remove(tmpName) // best-effort cleanup
		return fmt.Errorf("rename temp to %s: %w", dst, err)
	}
	return nil
}
