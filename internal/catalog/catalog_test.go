package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/conneroisu/luatutor/internal/errors"
)

func TestDefaultCatalogLoads(t *testing.T) {
	tree, err := Default()
	require.NoError(t, err)
	require.NotEmpty(t, tree.Sections)

	again, err := Default()
	require.NoError(t, err)
	assert.Same(t, tree, again, "default catalog should be decoded once")

	st := tree.Stats()
	assert.Equal(t, 6, st.Sections)
	assert.Equal(t, 12, st.Subsections)
	assert.Equal(t, 1, st.Exercises)
}

func TestDefaultCatalogContent(t *testing.T) {
	tree := MustDefault()

	sec, sub, err := tree.Subsection("variables", "variable-declaration")
	require.NoError(t, err)
	assert.Equal(t, "变量", sec.Title)
	assert.Equal(t, "变量声明", sub.Title)
	require.NotNil(t, sub.FillInBlank)
	assert.True(t, sub.HasEditor)
	assert.True(t, sub.Editable())
	assert.Equal(t, "local level = 5\nprint(\"我的等级是\" .. level)", sub.Solution())
	assert.Equal(t, sub.FillInBlank.Template, sub.StarterCode())
	assert.Len(t, sub.FillInBlank.Placeholders, 2)
	assert.Contains(t, sub.FillInBlank.Placeholders, "variableName")
	assert.Len(t, sub.Steps, 2)
	assert.Len(t, sub.CommonErrors, 3)
}

func TestFirst(t *testing.T) {
	sec, sub, ok := MustDefault().First()
	require.True(t, ok)
	assert.Equal(t, "introduction", sec.ID)
	assert.Equal(t, "what-is-roblox-lua", sub.ID)

	_, _, ok = (&Tree{Sections: []Section{{ID: "empty", Title: "Empty"}}}).First()
	assert.False(t, ok)
}

func TestLookupNotFound(t *testing.T) {
	tree := MustDefault()

	_, err := tree.Section("nope")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))

	_, _, err = tree.Subsection("variables", "nope")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
	assert.Contains(t, err.Error(), `unknown subsection "nope"`)
}

func TestWalkOrderAndEarlyStop(t *testing.T) {
	tree := MustDefault()

	var ids []string
	tree.Walk(func(sec *Section, sub *Subsection) bool {
		ids = append(ids, sec.ID+"/"+sub.ID)
		return len(ids) < 3
	})
	assert.Equal(t, []string{
		"introduction/what-is-roblox-lua",
		"introduction/setting-up-environment",
		"variables/variable-declaration",
	}, ids)
}

func TestParseRejectsDuplicates(t *testing.T) {
	data := `
sections:
  - id: a
    title: A
    content: first
    subsections:
      - id: x
        title: X
        content: body
      - id: x
        title: X again
        content: body
  - id: a
    title: ""
    content: dup
`
	_, err := Parse([]byte(data))
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, `duplicate subsection id "x"`)
	assert.Contains(t, msg, `duplicate section id "a"`)
	assert.Contains(t, msg, "title: must not be empty")
	assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.TypeOf(err))
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("sections:\n  - id: a\n    title: A\n    bogus: 1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), apperrors.ErrCodeCatalogInvalid)
}

func TestParseEmpty(t *testing.T) {
	_, err := Parse([]byte("sections: []\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog has no sections")
}

func TestParseNormalizesToNFC(t *testing.T) {
	// "e" followed by a combining acute accent.
	decomposed := "Cafe\u0301"
	data := "sections:\n  - id: a\n    title: " + decomposed + "\n    content: x\n"

	tree, err := Parse([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, "Caf\u00e9", tree.Sections[0].Title)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(strings.TrimSpace(`
sections:
  - id: basics
    title: Basics
    content: Getting started
    subsections:
      - id: hello
        title: Hello
        content: Print something
        has_editor: true
`)), 0o644))

	tree, err := Load(path)
	require.NoError(t, err)
	_, sub, err := tree.Subsection("basics", "hello")
	require.NoError(t, err)
	assert.True(t, sub.Editable())
	assert.Empty(t, sub.Solution())

	resolved, err := Resolve(path)
	require.NoError(t, err)
	assert.Equal(t, tree.Sections, resolved.Sections)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), apperrors.ErrCodeFileNotFound)
}

func TestResolveEmptyPathUsesDefault(t *testing.T) {
	tree, err := Resolve("")
	require.NoError(t, err)
	assert.Same(t, MustDefault(), tree)
}
