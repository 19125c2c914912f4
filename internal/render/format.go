package render

import "strings"

// Format is one of the fixed supported output formats.
type Format string

const (
	PDF  Format = "pdf"
	HTML Format = "html"
	TXT  Format = "txt"
)

// ParseFormat matches s against the supported set case-insensitively.
// Empty or unrecognized values fall back to fallback rather than failing,
// tolerating minor client inconsistencies.
func ParseFormat(s string, fallback Format) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pdf":
		return PDF
	case "html":
		return HTML
	case "txt":
		return TXT
	default:
		return fallback
	}
}

// Ext returns the artifact extension for the format.
func (f Format) Ext() string {
	switch f {
	case HTML:
		return ".html"
	case TXT:
		return ".txt"
	default:
		return ".pdf"
	}
}

// MIME returns the content type recorded on persisted documents.
func (f Format) MIME() string {
	switch f {
	case HTML:
		return "text/html"
	case TXT:
		return "text/plain"
	default:
		return "application/pdf"
	}
}
