package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/conneroisu/luatutor/internal/catalog"
	apperrors "github.com/conneroisu/luatutor/internal/errors"
	"github.com/conneroisu/luatutor/internal/exercise"
	"github.com/conneroisu/luatutor/internal/logging"
	"github.com/conneroisu/luatutor/internal/watcher"
)

var lintWatch bool

var lintCmd = &cobra.Command{
	Use:   "lint [catalog.yaml]",
	Short: "Check a lesson catalog for mistakes",
	Long: `Load a catalog and report structural problems (empty or duplicate ids)
and exercise problems (placeholders without hints, unused hints, solutions that
still contain placeholders). Without an argument the configured catalog, or
the built-in course, is checked.

With --watch the file is checked again every time it changes.

Examples:
  luatutor lint
  luatutor lint lessons.yaml
  luatutor lint lessons.yaml --watch`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLint,
}

func init() {
	rootCmd.AddCommand(lintCmd)
	lintCmd.Flags().BoolVarP(&lintWatch, "watch", "w", false, "Re-check the catalog whenever it changes")
}

func runLint(cmd *cobra.Command, args []string) error {
	cfg, _, logger, err := loadRuntime(cmd)
	if err != nil {
		return err
	}

	path := cfg.Catalog.Path
	if len(args) == 1 {
		path = args[0]
	}
	out := cmd.OutOrStdout()

	if !lintWatch {
		if n := lintCatalog(out, path); n > 0 {
			return apperrors.NewValidationError(apperrors.ErrCodeCatalogInvalid,
				fmt.Sprintf("%d problem(s) found", n))
		}
		return nil
	}

	if path == "" {
		return apperrors.NewValidationError(apperrors.ErrCodeValidationFailed,
			"--watch needs a catalog file")
	}
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return watchCatalog(ctx, out, path, logger)
}

// watchCatalog lints path once and then after every change until ctx ends.
func watchCatalog(ctx context.Context, out io.Writer, path string, logger logging.Logger) error {
	w, err := watcher.New(watcher.DefaultDelay, logger)
	if err != nil {
		return err
	}
	defer w.Stop()

	if err := w.WatchFile(path); err != nil {
		return err
	}
	w.AddHandler(func(ctx context.Context, events []watcher.Event) error {
		for _, ev := range events {
			logger.Debug(ctx, "Catalog changed", "path", ev.Path, "op", ev.Op.String())
		}
		fmt.Fprintln(out)
		done := logging.Timed(ctx, logger, "lint")
		done("problems", lintCatalog(out, path))
		return nil
	})

	lintCatalog(out, path)
	fmt.Fprintf(out, "Watching %s for changes (Ctrl+C to stop)\n", path)

	w.Start(ctx)
	<-ctx.Done()
	return nil
}

// lintCatalog prints every problem found in the catalog at path, or in the
// built-in catalog when path is empty, and returns how many there were.
func lintCatalog(out io.Writer, path string) int {
	name := path
	if name == "" {
		name = "built-in catalog"
	}

	tree, err := catalog.Resolve(path)
	if err != nil {
		fmt.Fprintf(out, "%s: %v\n", name, err)
		return 1
	}

	problems := 0
	tree.Walk(func(sec *catalog.Section, sub *catalog.Subsection) bool {
		for _, p := range exercise.Lint(sub.FillInBlank) {
			fmt.Fprintf(out, "%s: %s/%s: %s\n", name, sec.ID, sub.ID, p)
			problems++
		}
		return true
	})

	if problems == 0 {
		st := tree.Stats()
		fmt.Fprintf(out, "%s: ok (%d sections, %d subsections, %d exercises)\n",
			name, st.Sections, st.Subsections, st.Exercises)
	}
	return problems
}
