package templates

import (
	"bytes"
	"fmt"
	"path/filepath"
	"text/template"
)

// Renderer interface for template rendering (for dependency injection)
type Renderer interface {
	ExecuteTemplate(name string, data any) (string, error)
	TemplateExists(name string) bool
}

// Manager loads and renders templates from a directory
type Manager struct {
	templates *template.Template
	directory string
}

// funcMap returns common template helper functions
func funcMap() template.FuncMap {
	return template.FuncMap{
		"mul": func(a, b float64) float64 { return a * b },
		"div": func(a, b float64) float64 {
			if b == 0 {
				return 0
			}
			return a / b
		},
		"add":    func(a, b int) int { return a + b },
		"printf": fmt.Sprintf,
		"pct":    func(v float64) string { return fmt.Sprintf("%.2f%%", v) },
		"usd":    func(v float64) string { return fmt.Sprintf("$%.2f", v) },
	}
}

// NewManager creates and loads all templates from directory (one level of
// subdirectories included)
func NewManager(templatesDir string) (*Manager, error) {
	tmpl := template.New("root").Funcs(funcMap())

	pattern := filepath.Join(templatesDir, "*.tmpl")
	if result, err := tmpl.ParseGlob(pattern); err == nil && result != nil {
		tmpl = result
	}

	subPattern := filepath.Join(templatesDir, "*", "*.tmpl")
	if result, err := tmpl.ParseGlob(subPattern); err == nil && result != nil {
		tmpl = result
	}

	if tmpl.Templates() == nil || len(tmpl.Templates()) <= 1 {
		return nil, fmt.Errorf("no templates found in %s", templatesDir)
	}

	return &Manager{
		templates: tmpl,
		directory: templatesDir,
	}, nil
}

// ExecuteTemplate renders named template with data
func (m *Manager) ExecuteTemplate(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := m.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return buf.String(), nil
}

// TemplateExists reports whether named template was loaded
func (m *Manager) TemplateExists(name string) bool {
	return m.templates.Lookup(name) != nil
}
