package render

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
)

// TextEngine renders plain-text output with text/template. Embedded
// assets have no text representation and are ignored.
type TextEngine struct{}

// NewTextEngine returns the text/template engine.
func NewTextEngine() TextEngine { return TextEngine{} }

// Render implements Engine.
func (TextEngine) Render(ctx context.Context, templatePath string, b Bindings) ([]byte, error) {
	tpl, err := template.ParseFiles(templatePath)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", ErrRender, templatePath, err)
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, b.Data); err != nil {
		return nil, fmt.Errorf("%w: execute %s: %w", ErrRender, templatePath, err)
	}
	return buf.Bytes(), nil
}
