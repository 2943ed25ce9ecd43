package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"text/template"
)

// Renderer renders notification templates with strict missing-key semantics.
type Renderer struct{}

// Text renders a plain-text template.
func (Renderer) Text(name, tmpl string, data any) (string, error) {
	if tmpl == "" {
		return "", fmt.Errorf("notify: template text required")
	}
	t, err := template.New(name).Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("notify: parse %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("notify: execute %s: %w", name, err)
	}
	return buf.String(), nil
}

// HTML renders an HTML template, escaping every interpolated value.
func (Renderer) HTML(name, tmpl string, data any) (string, error) {
	if tmpl == "" {
		return "", fmt.Errorf("notify: template text required")
	}
	t, err := htmltemplate.New(name).Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("notify: parse %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("notify: execute %s: %w", name, err)
	}
	return buf.String(), nil
}
