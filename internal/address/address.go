// Package address classifies template addresses.
//
// A tagged address carries a protocol scheme before the first "@"
// (blob@bucket:key, http@https://host/t.odt, file@/opt/t.odt). An address
// with no "@" is local: it is never cached or downloaded and is handed to
// the render engine's own lookup unchanged.
package address

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrInvalid marks addresses rejected by validation.
	ErrInvalid = errors.New("invalid template address")
	// ErrEmpty marks blank addresses.
	ErrEmpty = errors.New("empty template address")
)

// Address is one parsed template address.
type Address struct {
	Raw     string // the original string, verbatim
	Scheme  string // protocol tag; empty for local addresses
	Payload string // everything after the scheme tag, or Raw when local
}

// Parse classifies and validates raw. The scheme tag is lowercased;
// payloads are kept verbatim.
//
// ".." anywhere rejects the address, scheme notwithstanding. Local
// addresses additionally reject rooted paths: a bare name is relative by
// contract, never an absolute escape.
func Parse(raw string) (Address, error) {
	if strings.TrimSpace(raw) == "" {
		return Address{}, ErrEmpty
	}
	if strings.Contains(raw, "..") {
		return Address{}, fmt.Errorf("address %q: traversal segment: %w", raw, ErrInvalid)
	}

	at := strings.Index(raw, "@")
	if at < 0 {
		if rooted(raw) {
			return Address{}, fmt.Errorf("address %q: rooted local path: %w", raw, ErrInvalid)
		}
		return Address{Raw: raw, Payload: raw}, nil
	}

	return Address{
		Raw:     raw,
		Scheme:  strings.ToLower(raw[:at]),
		Payload: raw[at+1:],
	}, nil
}

// Local reports whether the address bypasses caching and download.
func (a Address) Local() bool { return !strings.Contains(a.Raw, "@") }

// String returns the original address string.
func (a Address) String() string { return a.Raw }

// SplitAuthority splits the payload on its first ":" into an authority and
// the remainder. Payloads without ":" have no authority.
func (a Address) SplitAuthority() (authority, rest string) {
	if i := strings.Index(a.Payload, ":"); i >= 0 {
		return a.Payload[:i], a.Payload[i+1:]
	}
	return "", a.Payload
}

// Ext returns the extension (with dot) of the payload's final path
// element, or "" when it has none. Cache files keep this extension so
// format sniffing still works on the cached copy.
func (a Address) Ext() string {
	name := a.Payload
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if j := strings.LastIndex(name, "."); j > 0 {
		return name[j:]
	}
	return ""
}

func rooted(p string) bool {
	if filepath.IsAbs(p) || strings.HasPrefix(p, "/") || strings.HasPrefix(p, `\`) {
		return true
	}
	// Windows drive prefix, e.g. C:\templates.
	if len(p) >= 2 && p[1] == ':' &&
		(('a' <= p[0] && p[0] <= 'z') || ('A' <= p[0] && p[0] <= 'Z')) {
		return true
	}
	return false
}
