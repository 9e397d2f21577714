package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/luatutor/internal/catalog"
	"github.com/conneroisu/luatutor/internal/navigation"
)

var listFormat string

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"l", "toc"},
	Short:   "Show the table of contents",
	Long: `List every lesson in catalog order with its page path and whether it has
an exercise or an editor.

Examples:
  luatutor list              # Table
  luatutor list -f json      # JSON
  luatutor list -f yaml      # YAML`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
	addFormatFlag(listCmd, &listFormat, "table", "json", "yaml")
}

// lessonEntry is one row of the table of contents.
type lessonEntry struct {
	Section    string `json:"section" yaml:"section"`
	Subsection string `json:"subsection" yaml:"subsection"`
	Title      string `json:"title" yaml:"title"`
	Path       string `json:"path" yaml:"path"`
	Exercise   bool   `json:"exercise" yaml:"exercise"`
	Editor     bool   `json:"editor" yaml:"editor"`
	Examples   int    `json:"examples" yaml:"examples"`
}

type listOutput struct {
	Lessons []lessonEntry `json:"lessons" yaml:"lessons"`
	Stats   catalog.Stats `json:"stats" yaml:"stats"`
}

func runList(cmd *cobra.Command, args []string) error {
	_, tree, _, err := loadRuntime(cmd)
	if err != nil {
		return err
	}

	output := listOutput{Lessons: lessonEntries(tree), Stats: tree.Stats()}
	out := cmd.OutOrStdout()

	switch listFormat {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(output)
	case "yaml":
		encoder := yaml.NewEncoder(out)
		defer encoder.Close()
		return encoder.Encode(output)
	default:
		return outputTable(out, output)
	}
}

func lessonEntries(tree *catalog.Tree) []lessonEntry {
	var entries []lessonEntry
	tree.Walk(func(sec *catalog.Section, sub *catalog.Subsection) bool {
		entries = append(entries, lessonEntry{
			Section:    sec.ID,
			Subsection: sub.ID,
			Title:      sub.Title,
			Path:       navigation.PagePath(sec.ID, sub.ID),
			Exercise:   sub.FillInBlank != nil,
			Editor:     sub.Editable(),
			Examples:   len(sub.CodeExamples),
		})
		return true
	})
	return entries
}

func outputTable(out io.Writer, output listOutput) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "SECTION\tSUBSECTION\tTITLE\tEXERCISE\tEDITOR\tEXAMPLES")
	fmt.Fprintln(w, strings.Join([]string{
		strings.Repeat("-", 7), strings.Repeat("-", 10), strings.Repeat("-", 5),
		strings.Repeat("-", 8), strings.Repeat("-", 6), strings.Repeat("-", 8),
	}, "\t"))

	for _, e := range output.Lessons {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n",
			e.Section, e.Subsection, e.Title, yesNo(e.Exercise), yesNo(e.Editor), e.Examples)
	}

	st := output.Stats
	fmt.Fprintf(w, "\nTotal: %d sections, %d subsections, %d exercises, %d examples\n",
		st.Sections, st.Subsections, st.Exercises, st.Examples)
	return w.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "-"
}
