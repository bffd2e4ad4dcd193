package creation

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"text/template"
)

// DefaultTemplate is used when a corpus has no template file of its own.
//
//go:embed template.md
var DefaultTemplate string

// Renderer turns a template and a flat context into document text.
type Renderer interface {
	Render(tmpl string, data map[string]any) (string, error)
}

// TextTemplateRenderer renders with text/template. Missing keys are errors.
type TextTemplateRenderer struct{}

var funcs = template.FuncMap{
	"join": strings.Join,
}

// Render parses tmpl and executes it against data.
func (TextTemplateRenderer) Render(tmpl string, data map[string]any) (string, error) {
	t, err := template.New("proposal").Funcs(funcs).Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("creation: parse template: %w", err)
	}
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("creation: render template: %w", err)
	}
	return b.String(), nil
}

// Escape makes s safe inside a double-quoted YAML scalar.
func Escape(s string) string {
	q := strconv.Quote(s)
	return q[1 : len(q)-1]
}

func escapeAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = Escape(v)
	}
	return out
}
