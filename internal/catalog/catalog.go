// Package catalog holds the lesson document tree.
//
// The default catalog is embedded in the binary as YAML and decoded lazily,
// exactly once, on first use. Alternative catalogs can be loaded from disk
// with Load. Either way the resulting Tree is checked for structural
// invariants (unique, non-empty ids) and is never modified afterwards, so it
// is safe to share between goroutines without locking.
package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"sync"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	apperrors "github.com/conneroisu/luatutor/internal/errors"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

var (
	defaultOnce sync.Once
	defaultTree *Tree
	defaultErr  error
)

// Default returns the embedded catalog. The result is cached for the
// lifetime of the process.
func Default() (*Tree, error) {
	defaultOnce.Do(func() {
		defaultTree, defaultErr = Parse(defaultCatalog)
	})
	return defaultTree, defaultErr
}

// MustDefault is Default for callers that cannot continue without content.
func MustDefault() *Tree {
	tree, err := Default()
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded catalog is invalid: %v", err))
	}
	return tree
}

// Load reads and parses a catalog file.
func Load(path string) (*Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewIOError(apperrors.ErrCodeFileNotFound, "catalog file not found", err).
				WithContext("path", path)
		}
		return nil, apperrors.NewIOError(apperrors.ErrCodeCatalogInvalid, "failed to read catalog", err).
			WithContext("path", path)
	}

	tree, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return tree, nil
}

// Parse decodes YAML catalog data and checks it.
func Parse(data []byte) (*Tree, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var tree Tree
	if err := dec.Decode(&tree); err != nil {
		return nil, apperrors.NewIOError(apperrors.ErrCodeCatalogInvalid, "failed to parse catalog", err)
	}

	tree.normalize()

	if err := Check(&tree); err != nil {
		return nil, &apperrors.AppError{
			Type:    apperrors.ErrorTypeValidation,
			Code:    apperrors.ErrCodeCatalogInvalid,
			Message: "catalog failed integrity checks",
			Cause:   err,
		}
	}
	return &tree, nil
}

// Resolve picks the catalog for a configured path: the embedded default when
// path is empty, the file otherwise.
func Resolve(path string) (*Tree, error) {
	if path == "" {
		return Default()
	}
	return Load(path)
}

// Section looks up a section by id.
func (t *Tree) Section(id string) (*Section, error) {
	for i := range t.Sections {
		if t.Sections[i].ID == id {
			return &t.Sections[i], nil
		}
	}
	return nil, apperrors.NewNotFoundError(fmt.Sprintf("unknown section %q", id)).
		WithContext("section", id)
}

// Subsection looks up a subsection by its section and subsection ids.
func (t *Tree) Subsection(sectionID, subsectionID string) (*Section, *Subsection, error) {
	sec, err := t.Section(sectionID)
	if err != nil {
		return nil, nil, err
	}
	for i := range sec.Subsections {
		if sec.Subsections[i].ID == subsectionID {
			return sec, &sec.Subsections[i], nil
		}
	}
	return nil, nil, apperrors.NewNotFoundError(fmt.Sprintf("unknown subsection %q in section %q", subsectionID, sectionID)).
		WithContext("section", sectionID).
		WithContext("subsection", subsectionID)
}

// First returns the first section that has at least one subsection, and that
// subsection. It is the default page of the site.
func (t *Tree) First() (*Section, *Subsection, bool) {
	for i := range t.Sections {
		if len(t.Sections[i].Subsections) > 0 {
			return &t.Sections[i], &t.Sections[i].Subsections[0], true
		}
	}
	return nil, nil, false
}

// Walk calls fn for every subsection in catalog order. It stops early when fn
// returns false.
func (t *Tree) Walk(fn func(sec *Section, sub *Subsection) bool) {
	for i := range t.Sections {
		sec := &t.Sections[i]
		for j := range sec.Subsections {
			if !fn(sec, &sec.Subsections[j]) {
				return
			}
		}
	}
}

// Stats summarises the catalog.
type Stats struct {
	Sections    int `json:"sections" yaml:"sections"`
	Subsections int `json:"subsections" yaml:"subsections"`
	Exercises   int `json:"exercises" yaml:"exercises"`
	Examples    int `json:"examples" yaml:"examples"`
}

// Stats counts sections, subsections, exercises and code examples.
func (t *Tree) Stats() Stats {
	st := Stats{Sections: len(t.Sections)}
	t.Walk(func(_ *Section, sub *Subsection) bool {
		st.Subsections++
		st.Examples += len(sub.CodeExamples)
		if sub.FillInBlank != nil {
			st.Exercises++
		}
		return true
	})
	return st
}

func (t *Tree) normalize() {
	for i := range t.Sections {
		sec := &t.Sections[i]
		sec.Title = norm.NFC.String(sec.Title)
		sec.Content = norm.NFC.String(sec.Content)
		for j := range sec.Subsections {
			sub := &sec.Subsections[j]
			sub.Title = norm.NFC.String(sub.Title)
			sub.Content = norm.NFC.String(sub.Content)
			sub.Note = norm.NFC.String(sub.Note)
		}
	}
}
