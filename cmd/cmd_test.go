package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/luatutor/internal/catalog"
	apperrors "github.com/conneroisu/luatutor/internal/errors"
	"github.com/conneroisu/luatutor/internal/exercise"
	"github.com/conneroisu/luatutor/internal/logging"
	"github.com/conneroisu/luatutor/internal/sandbox"
)

const lintableCatalog = `sections:
- id: basics
  title: Basics
  content: Start here.
  subsections:
  - id: blanks
    title: Blanks
    content: Fill them in.
    fill_in_blank:
      template: local {{name}} = 1
      placeholders:
        name: pick a name
      solution: local a = 1
`

// newTestCommand returns a command writing to a buffer, with the global
// viper reset so tests do not see each other's settings.
func newTestCommand(t *testing.T) (*cobra.Command, *bytes.Buffer) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("log.level", "error")
	viper.Set("sandbox.run_delay", time.Duration(0))

	cmd := &cobra.Command{}
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	return cmd, buf
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func setFlag(t *testing.T, target *string, value string) {
	t.Helper()
	old := *target
	*target = value
	t.Cleanup(func() { *target = old })
}

func defaultExercise(t *testing.T) *catalog.Subsection {
	t.Helper()
	_, sub, err := catalog.MustDefault().Subsection("variables", "variable-declaration")
	require.NoError(t, err)
	require.NotNil(t, sub.FillInBlank)
	return sub
}

func TestCommandsRegistered(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "search", "check", "run", "list", "lint", "version"} {
		assert.True(t, names[want], "missing command %q", want)
	}
	assert.Equal(t, "LUATUTOR_CONFIG_FILE", ConfigFileEnv)
}

func TestChoiceValue(t *testing.T) {
	var format string
	v := &choiceValue{target: &format, allowed: []string{"table", "json"}}

	require.NoError(t, v.Set(" JSON "))
	assert.Equal(t, "json", format)
	assert.Equal(t, "json", v.String())

	err := v.Set("xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "table, json")
	assert.Equal(t, "json", format)
}

func TestParseExerciseRef(t *testing.T) {
	sec, sub, err := parseExerciseRef("variables/variable-declaration")
	require.NoError(t, err)
	assert.Equal(t, "variables", sec)
	assert.Equal(t, "variable-declaration", sub)

	sec, sub, err = parseExerciseRef("/a/b/")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, []string{sec, sub})

	for _, bad := range []string{"", "variables", "a/", "/b", "a/b/c"} {
		_, _, err := parseExerciseRef(bad)
		assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.TypeOf(err), bad)
	}
}

func TestListTable(t *testing.T) {
	cmd, buf := newTestCommand(t)
	setFlag(t, &listFormat, "table")

	require.NoError(t, runList(cmd, nil))
	out := buf.String()
	assert.Contains(t, out, "SECTION")
	assert.Contains(t, out, "variable-declaration")
	assert.Contains(t, out, "变量声明")
	assert.Contains(t, out, "Total: 6 sections")
}

func TestListJSON(t *testing.T) {
	cmd, buf := newTestCommand(t)
	setFlag(t, &listFormat, "json")

	require.NoError(t, runList(cmd, nil))

	var got listOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 6, got.Stats.Sections)
	require.NotEmpty(t, got.Lessons)
	assert.Equal(t, "introduction", got.Lessons[0].Section)

	var exercises int
	for _, l := range got.Lessons {
		assert.True(t, strings.HasPrefix(l.Path, "/docs/"+l.Section+"/"), l.Path)
		if l.Exercise {
			exercises++
			assert.True(t, l.Editor)
		}
	}
	assert.Equal(t, got.Stats.Exercises, exercises)
}

func TestListYAML(t *testing.T) {
	cmd, buf := newTestCommand(t)
	setFlag(t, &listFormat, "yaml")

	require.NoError(t, runList(cmd, nil))

	var got listOutput
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, catalog.MustDefault().Stats(), got.Stats)
}

func TestListCustomCatalog(t *testing.T) {
	cmd, buf := newTestCommand(t)
	setFlag(t, &listFormat, "json")
	viper.Set("catalog.path", writeFile(t, "lessons.yaml", lintableCatalog))

	require.NoError(t, runList(cmd, nil))

	var got listOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got.Lessons, 1)
	assert.Equal(t, "blanks", got.Lessons[0].Subsection)
}

func TestListMissingCatalog(t *testing.T) {
	cmd, _ := newTestCommand(t)
	viper.Set("catalog.path", filepath.Join(t.TempDir(), "missing.yaml"))

	err := runList(cmd, nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeIO, apperrors.TypeOf(err))
}

func TestSearchText(t *testing.T) {
	cmd, buf := newTestCommand(t)
	setFlag(t, &searchFormat, "text")

	require.NoError(t, runSearch(cmd, []string{"变量"}))
	out := buf.String()
	assert.Contains(t, out, "变量声明")
	assert.Contains(t, out, "(/docs/variables/variable-declaration)")
	assert.Contains(t, out, "Title: ")
	assert.Contains(t, out, "result(s)")
}

func TestSearchNoMatch(t *testing.T) {
	cmd, buf := newTestCommand(t)
	setFlag(t, &searchFormat, "text")

	require.NoError(t, runSearch(cmd, []string{"zzzz", "qqqq"}))
	assert.Equal(t, "No lessons match \"zzzz qqqq\"\n", buf.String())
}

func TestSearchBlank(t *testing.T) {
	cmd, buf := newTestCommand(t)
	setFlag(t, &searchFormat, "text")

	require.NoError(t, runSearch(cmd, []string{"   "}))
	assert.Equal(t, "Nothing to search for\n", buf.String())
}

func TestSearchJSON(t *testing.T) {
	cmd, buf := newTestCommand(t)
	setFlag(t, &searchFormat, "json")

	require.NoError(t, runSearch(cmd, []string{"local"}))

	var got struct {
		Query       string `json:"query"`
		IsSearching bool   `json:"is_searching"`
		Results     []struct {
			SectionID string `json:"section_id"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "local", got.Query)
	assert.True(t, got.IsSearching)
	assert.NotEmpty(t, got.Results)
}

func TestCheckCorrectAnswer(t *testing.T) {
	cmd, buf := newTestCommand(t)
	setFlag(t, &checkFormat, "text")
	sub := defaultExercise(t)

	path := writeFile(t, "answer.lua", sub.Solution())
	require.NoError(t, runCheck(cmd, []string{"variables/variable-declaration", path}))
	assert.Equal(t, "PASS "+exercise.SuccessMessage+"\n", buf.String())
}

func TestCheckUnfilledTemplate(t *testing.T) {
	cmd, buf := newTestCommand(t)
	setFlag(t, &checkFormat, "text")
	sub := defaultExercise(t)

	cmd.SetIn(strings.NewReader(sub.StarterCode()))
	err := runCheck(cmd, []string{"variables/variable-declaration", "-"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.TypeOf(err))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "FAIL "), out)
	assert.Contains(t, out, "line 1:")
}

func TestCheckJSONWithHints(t *testing.T) {
	cmd, buf := newTestCommand(t)
	setFlag(t, &checkFormat, "json")
	sub := defaultExercise(t)

	cmd.SetIn(strings.NewReader(sub.Solution()))
	require.NoError(t, runCheck(cmd, []string{"variables/variable-declaration", "-"}))

	var v exercise.Verdict
	require.NoError(t, json.Unmarshal(buf.Bytes(), &v))
	assert.True(t, v.Correct)
	assert.Empty(t, v.Errors)
}

func TestCheckPrintsHints(t *testing.T) {
	cmd, buf := newTestCommand(t)
	setFlag(t, &checkFormat, "text")
	checkHints = true
	t.Cleanup(func() { checkHints = false })
	sub := defaultExercise(t)

	cmd.SetIn(strings.NewReader(sub.Solution()))
	require.NoError(t, runCheck(cmd, []string{"variables/variable-declaration", "-"}))
	assert.Contains(t, buf.String(), "hint {{variableName}}: ")
	assert.Contains(t, buf.String(), "hint {{value}}: ")
}

func TestCheckLessonWithoutExercise(t *testing.T) {
	cmd, _ := newTestCommand(t)
	tree := catalog.MustDefault()
	ref := tree.Sections[0].ID + "/" + tree.Sections[0].Subsections[0].ID

	err := runCheck(cmd, []string{ref, writeFile(t, "a.lua", "x")})
	assert.True(t, apperrors.IsNotFound(err), "got %v", err)

	err = runCheck(cmd, []string{"nope/nothing", writeFile(t, "a.lua", "x")})
	assert.True(t, apperrors.IsNotFound(err), "got %v", err)
}

func TestCheckMissingFile(t *testing.T) {
	cmd, _ := newTestCommand(t)

	err := runCheck(cmd, []string{"variables/variable-declaration", filepath.Join(t.TempDir(), "none.lua")})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeIO, apperrors.TypeOf(err))
}

func TestRunPrintsLiteral(t *testing.T) {
	cmd, buf := newTestCommand(t)
	setFlag(t, &runFormat, "text")
	setFlag(t, &runExercise, "")

	require.NoError(t, runRun(cmd, []string{writeFile(t, "hello.lua", `print("hi")`)}))
	assert.Equal(t, "Output: hi\n", buf.String())
}

func TestRunExerciseFailureStopsRun(t *testing.T) {
	cmd, buf := newTestCommand(t)
	setFlag(t, &runFormat, "text")
	setFlag(t, &runExercise, "variables/variable-declaration")
	sub := defaultExercise(t)

	cmd.SetIn(strings.NewReader(sub.StarterCode()))
	err := runRun(cmd, []string{"-"})
	require.Error(t, err)
	assert.Contains(t, buf.String(), "FAIL ")
}

func TestRunExerciseJSON(t *testing.T) {
	cmd, buf := newTestCommand(t)
	setFlag(t, &runFormat, "json")
	setFlag(t, &runExercise, "variables/variable-declaration")
	sub := defaultExercise(t)

	cmd.SetIn(strings.NewReader(sub.Solution()))
	require.NoError(t, runRun(cmd, []string{"-"}))

	var res sandbox.Result
	require.NoError(t, json.Unmarshal(buf.Bytes(), &res))
	assert.Equal(t, sandbox.StatusSuccess, res.Status)
	require.NotNil(t, res.Verdict)
	assert.True(t, res.Verdict.Correct)
}

func TestLintDefaultCatalog(t *testing.T) {
	cmd, buf := newTestCommand(t)

	require.NoError(t, runLint(cmd, nil))
	assert.Contains(t, buf.String(), "built-in catalog: ok (6 sections")
}

func TestLintReportsProblems(t *testing.T) {
	cmd, buf := newTestCommand(t)
	bad := strings.Replace(lintableCatalog, "name: pick a name", "other: unused hint", 1)
	path := writeFile(t, "lessons.yaml", bad)

	err := runLint(cmd, []string{path})
	require.Error(t, err)
	out := buf.String()
	assert.Contains(t, out, "basics/blanks: placeholder {{name}} has no hint")
	assert.Contains(t, out, "other")
}

func TestLintBrokenCatalog(t *testing.T) {
	var buf bytes.Buffer
	path := writeFile(t, "lessons.yaml", "sections:\n- id: a\n  title: A\n- id: a\n  title: B\n")

	assert.Equal(t, 1, lintCatalog(&buf, path))
	assert.Contains(t, buf.String(), path+": ")
}

func TestLintWatchNeedsFile(t *testing.T) {
	cmd, _ := newTestCommand(t)
	lintWatch = true
	t.Cleanup(func() { lintWatch = false })

	err := runLint(cmd, nil)
	assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.TypeOf(err))
}

// syncBuffer is a bytes.Buffer safe for the watcher goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchCatalogRelints(t *testing.T) {
	path := writeFile(t, "lessons.yaml", lintableCatalog)
	out := &syncBuffer{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- watchCatalog(ctx, out, path, logging.Nop()) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Watching")
	}, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, out.String(), path+": ok")

	bad := strings.Replace(lintableCatalog, "name: pick a name", "other: unused hint", 1)
	require.NoError(t, os.WriteFile(path, []byte(bad), 0o644))

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "placeholder {{name}} has no hint")
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watchCatalog did not return after cancel")
	}
}

func TestVersionCommand(t *testing.T) {
	cmd, buf := newTestCommand(t)
	setFlag(t, &versionFormat, "text")

	require.NoError(t, runVersionCommand(cmd, nil))
	assert.True(t, strings.HasPrefix(buf.String(), "luatutor "))
	assert.Contains(t, buf.String(), "Go: ")

	buf.Reset()
	versionShort = true
	t.Cleanup(func() { versionShort = false })
	require.NoError(t, runVersionCommand(cmd, nil))
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
}

func TestVersionJSON(t *testing.T) {
	cmd, buf := newTestCommand(t)
	setFlag(t, &versionFormat, "json")

	require.NoError(t, runVersionCommand(cmd, nil))

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Contains(t, got, "version")
	assert.Contains(t, got, "go_version")
	assert.Contains(t, got, "is_release")
}

func TestVersionYAML(t *testing.T) {
	cmd, buf := newTestCommand(t)
	setFlag(t, &versionFormat, "yaml")

	require.NoError(t, runVersionCommand(cmd, nil))

	var got map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Contains(t, got, "version")
	assert.Contains(t, got, "platform")
}
