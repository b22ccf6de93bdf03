// Package loader reads declarative flow documents (JSON or YAML) and
// applies them to a builder.
package loader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/rendis/authflow/internal/validation"
	"github.com/rendis/authflow/pkg/schema"
	"gopkg.in/yaml.v3"
)

// Loader parses, validates and decodes flow documents.
type Loader struct {
	validator *validation.DocumentValidator
}

// New creates a Loader. validator must not be nil.
func New(validator *validation.DocumentValidator) *Loader {
	return &Loader{validator: validator}
}

// IsDocument reports whether path has a flow document extension.
func IsDocument(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// LoadDir loads every document in dir (not recursive), sorted by file name.
func (l *Loader) LoadDir(dir string) ([]*schema.FlowDocument, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read flows dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && IsDocument(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	docs := make([]*schema.FlowDocument, 0, len(names))
	for _, name := range names {
		doc, err := l.LoadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// LoadFile loads a single document.
func (l *Loader) LoadFile(path string) (*schema.FlowDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read flow document: %w", err)
	}
	doc, err := l.Decode(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return doc, nil
}

// Decode parses data (format ".json", ".yaml" or ".yml"), validates it and
// decodes it into a FlowDocument.
func (l *Loader) Decode(data []byte, format string) (*schema.FlowDocument, error) {
	raw, err := Parse(data, format)
	if err != nil {
		return nil, err
	}

	if result := l.validator.ValidateRaw(raw); !result.Valid() {
		return nil, result.ToError()
	}

	doc, err := DecodeMap(raw)
	if err != nil {
		return nil, err
	}

	if result := l.validator.Validate(doc); !result.Valid() {
		return nil, result.ToError()
	}
	return doc, nil
}

// Parse decodes JSON or YAML into a generic map.
func Parse(data []byte, format string) (map[string]any, error) {
	var raw map[string]any
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "json":
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, schema.NewError(schema.ErrCodeValidation, "invalid JSON flow document").WithCause(err)
		}
	default:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, schema.NewError(schema.ErrCodeValidation, "invalid YAML flow document").WithCause(err)
		}
	}
	if raw == nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "flow document is empty")
	}
	return raw, nil
}

// DecodeMap converts a generic map into a FlowDocument. Unknown keys are errors.
func DecodeMap(raw map[string]any) (*schema.FlowDocument, error) {
	var doc schema.FlowDocument
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "mapstructure",
		Result:      &doc,
		ErrorUnused: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "cannot decode flow document").WithCause(err)
	}
	return &doc, nil
}

// Marshal encodes doc as YAML.
func Marshal(doc *schema.FlowDocument) ([]byte, error) {
	return yaml.Marshal(doc)
}
