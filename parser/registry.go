package parser

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Registry maps file formats to parsers.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry creates a registry with the built-in parsers registered.
func NewRegistry() *Registry {
	r := &Registry{parsers: make(map[string]Parser)}
	for _, p := range []Parser{
		&TextParser{},
		&PDFParser{},
		&XLSXParser{},
	} {
		for _, f := range p.SupportedFormats() {
			r.parsers[f] = p
		}
	}
	return r
}

// Get returns the parser for a format, like "pdf".
func (r *Registry) Get(format string) (Parser, error) {
	p, ok := r.parsers[strings.ToLower(format)]
	if !ok {
		return nil, fmt.Errorf("no parser for format: %s", format)
	}
	return p, nil
}

// ForPath returns the parser for a file path based on its extension.
func (r *Registry) ForPath(path string) (Parser, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return nil, fmt.Errorf("no file extension in path: %s", path)
	}
	return r.Get(ext)
}

// Register adds or replaces the parser for a format.
func (r *Registry) Register(format string, p Parser) {
	r.parsers[strings.ToLower(format)] = p
}

// Formats returns the registered format names.
func (r *Registry) Formats() []string {
	formats := make([]string, 0, len(r.parsers))
	for f := range r.parsers {
		formats = append(formats, f)
	}
	return formats
}
