package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/conneroisu/luatutor/internal/navigation"
	"github.com/conneroisu/luatutor/internal/search"
)

var searchFormat string

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search lesson titles and text",
	Long: `Search every lesson title and body for a case-insensitive substring.
Results follow catalog order. Body matches show the surrounding text.

Examples:
  luatutor search closure
  luatutor search "local variable"
  luatutor search 变量 -f json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	addFormatFlag(searchCmd, &searchFormat, "text", "json")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, tree, _, err := loadRuntime(cmd)
	if err != nil {
		return err
	}

	index := search.NewIndex(tree, search.WithPreviewRadius(cfg.Search.PreviewRadius))
	resp := index.Search(strings.Join(args, " "))

	out := cmd.OutOrStdout()
	if searchFormat == "json" {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(resp)
	}
	writeSearchText(out, resp)
	return nil
}

func writeSearchText(out io.Writer, resp search.Response) {
	if !resp.IsSearching {
		fmt.Fprintln(out, "Nothing to search for")
		return
	}
	if len(resp.Results) == 0 {
		fmt.Fprintf(out, "No lessons match %q\n", resp.Query)
		return
	}

	title := cases.Title(language.English)
	for _, r := range resp.Results {
		fmt.Fprintf(out, "%s > %s  (%s)\n", r.Section.Title, r.Subsection.Title,
			navigation.PagePath(r.Section.ID, r.Subsection.ID))
		for _, m := range r.Matches {
			fmt.Fprintf(out, "  %s: %s\n", title.String(string(m.Kind)), m.Text)
		}
	}
	fmt.Fprintf(out, "\n%d result(s)\n", len(resp.Results))
}
