package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"html/template"
	"net/http"
)

// HTMLEngine renders HTML output with html/template.
//
// Embedded assets are exposed to the template as image_<name> values
// holding data:<mime>;base64,<payload> URIs, MIME sniffed from the
// decoded bytes, so templates reference <img src="{{.image_logo}}">.
type HTMLEngine struct{}

// NewHTMLEngine returns the html/template engine.
func NewHTMLEngine() HTMLEngine { return HTMLEngine{} }

// Render implements Engine.
func (HTMLEngine) Render(ctx context.Context, templatePath string, b Bindings) ([]byte, error) {
	tpl, err := template.ParseFiles(templatePath)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", ErrRender, templatePath, err)
	}

	data := make(map[string]any, len(b.Data)+len(b.Assets))
	for k, v := range b.Data {
		data[k] = v
	}
	for name, payload := range b.Assets {
		// template.URL keeps html/template from rejecting the data:
		// scheme as unsafe.
		data["image_"+name] = template.URL(dataURI(payload))
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("%w: execute %s: %w", ErrRender, templatePath, err)
	}
	return buf.Bytes(), nil
}

func dataURI(payload []byte) string {
	mime := http.DetectContentType(payload)
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(payload)
}
