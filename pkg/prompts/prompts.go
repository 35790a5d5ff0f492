// Package prompts loads the prompt templates used by the orchestration graph.
//
// Templates are Go text/templates named after their file (without the
// .tmpl extension). Built-in templates are embedded; a directory may
// override any of them.
package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"
	"text/template"
)

// Template names.
const (
	System       = "system"
	Classify     = "classify"
	DirectAnswer = "direct_answer"
	RAGAnswer    = "rag_answer"
)

const ext = ".tmpl"

//go:embed templates/*.tmpl
var embedded embed.FS

// ErrNotFound is returned when no template exists under a name.
var ErrNotFound = errors.New("prompt not found")

// Set resolves and caches templates.
type Set struct {
	layers []fs.FS

	mu    sync.Mutex
	cache map[string]*template.Template
}

// Default returns a Set backed by the embedded templates only.
func Default() *Set {
	return New("")
}

// New returns a Set whose templates in dir take precedence over the embedded ones.
func New(dir string) *Set {
	builtin, _ := fs.Sub(embedded, "templates")
	layers := []fs.FS{builtin}
	if dir != "" {
		layers = append([]fs.FS{os.DirFS(dir)}, layers...)
	}
	return &Set{layers: layers, cache: make(map[string]*template.Template)}
}

// Render executes the named template with data.
// Referencing a variable missing from data is an error.
func (s *Set) Render(name string, data map[string]any) (string, error) {
	tmpl, err := s.lookup(name)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt %q: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// Names lists the available template names.
func (s *Set) Names() []string {
	seen := make(map[string]struct{})
	for _, layer := range s.layers {
		matches, _ := fs.Glob(layer, "*"+ext)
		for _, m := range matches {
			seen[strings.TrimSuffix(m, ext)] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (s *Set) lookup(name string) (*template.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tmpl, ok := s.cache[name]; ok {
		return tmpl, nil
	}

	for _, layer := range s.layers {
		raw, err := fs.ReadFile(layer, name+ext)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read prompt %q: %w", name, err)
		}

		tmpl, err := template.New(name).
			Option("missingkey=error").
			Funcs(template.FuncMap{"inc": func(i int) int { return i + 1 }}).
			Parse(string(raw))
		if err != nil {
			return nil, fmt.Errorf("parse prompt %q: %w", name, err)
		}
		s.cache[name] = tmpl
		return tmpl, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}
