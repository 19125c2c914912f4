package render

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ExecEngine shells out to an external converter command, the usual route
// for PDF output (headless office suite, HTML-to-PDF tool, and so on).
//
// The configured argv may reference three placeholders, substituted per
// run:
//
//	{{template}}  resolved template path
//	{{bindings}}  path of a JSON file {"data": …, "assets": {name: base64}}
//	{{output}}    path the converter must write the document to
type ExecEngine struct {
	argv []string
}

// NewExecEngine returns an engine running argv. An empty argv yields an
// engine whose Render fails, so a missing converter is a per-job error
// rather than a startup crash.
func NewExecEngine(argv []string) *ExecEngine {
	return &ExecEngine{argv: argv}
}

// Render implements Engine.
func (e *ExecEngine) Render(ctx context.Context, templatePath string, b Bindings) ([]byte, error) {
	if len(e.argv) == 0 {
		return nil, fmt.Errorf("%w: no converter configured", ErrRender)
	}

	work, err := os.MkdirTemp("", "docforge-render-*")
	if err != nil {
		return nil, fmt.Errorf("%w: workdir: %w", ErrRender, err)
	}
	defer func() { _ = os.RemoveAll(work) }() // best-effort cleanup

	bindingsPath := filepath.Join(work, "bindings.json")
	if err := writeBindingsFile(bindingsPath, b); err != nil {
		return nil, err
	}
	outputPath := filepath.Join(work, "output.bin")

	argv := make([]string, len(e.argv))
	for i, arg := range e.argv {
		arg = strings.ReplaceAll(arg, "{{template}}", templatePath)
		arg = strings.ReplaceAll(arg, "{{bindings}}", bindingsPath)
		arg = strings.ReplaceAll(arg, "{{output}}", outputPath)
		argv[i] = arg
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("%w: converter %s: %w: %s", ErrRender, argv[0], err, firstLine(out))
	}

	doc, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: converter %s produced no output: %w", ErrRender, argv[0], err)
	}
	return doc, nil
}

func writeBindingsFile(path string, b Bindings) error {
	assets := make(map[string]string, len(b.Assets))
	for name, payload := range b.Assets {
		assets[name] = base64.StdEncoding.EncodeToString(payload)
	}
	raw, err := json.Marshal(map[string]any{"data": b.Data, "assets": assets})
	if err != nil {
		return fmt.Errorf("%w: encode bindings: %w", ErrRender, err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("%w: write bindings: %w", ErrRender, err)
	}
	return nil
}

func firstLine(out []byte) string {
	s := strings.TrimSpace(string(out))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}
