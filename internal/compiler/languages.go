package compiler

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Language describes one compilable language: its source suffix and a pair
// of shell-like command templates, compile and run. {{src}} and {{exe}} are
// substituted with the concrete source and output paths before tokenizing.
// Languages are defined in a single embedded TOML document rather than one
// file per language, since there is no per-OJ filesystem layout to load
// them from.
type Language struct {
	ID      string `toml:"id"`
	Name    string `toml:"name"`
	Suffix  string `toml:"suffix"`
	Compile string `toml:"compile"`
	Run     string `toml:"run"`
}

//go:embed languages.toml
var defaultLanguagesTOML []byte

// Registry resolves a source file's suffix to its Language.
type Registry struct {
	bySuffix map[string]Language
}

type languageFile struct {
	Languages []Language `toml:"language"`
}

// DefaultRegistry parses the embedded languages.toml document.
func DefaultRegistry() (*Registry, error) {
	return NewRegistry(defaultLanguagesTOML)
}

// NewRegistry parses a languages TOML document in the shape of
// languages.toml.
func NewRegistry(data []byte) (*Registry, error) {
	var file languageFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse language registry: %w", err)
	}
	r := &Registry{bySuffix: make(map[string]Language, len(file.Languages))}
	for _, lang := range file.Languages {
		r.bySuffix[lang.Suffix] = lang
	}
	return r, nil
}

// Lookup resolves a source path's suffix to its Language.
func (r *Registry) Lookup(sourcePath string) (Language, bool) {
	for suffix, lang := range r.bySuffix {
		if strings.HasSuffix(sourcePath, suffix) {
			return lang, true
		}
	}
	return Language{}, false
}
