package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	apperrors "github.com/conneroisu/luatutor/internal/errors"
	"github.com/conneroisu/luatutor/internal/sandbox"
)

var (
	runFormat   string
	runExercise string
)

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Run a snippet in the simulated playground",
	Long: `Run Lua code the way the in-page editor does. The playground does not
execute Lua: it reports the first printed string literal. With --exercise the
code is first checked against that exercise's solution and a failed check
stops the run.

Examples:
  luatutor run hello.lua
  luatutor run answer.lua --exercise variables/variable-declaration
  echo 'print("hi")' | luatutor run - --delay 0`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	addFormatFlag(runCmd, &runFormat, "text", "json")
	runCmd.Flags().StringVarP(&runExercise, "exercise", "e", "", "Validate against <section>/<subsection> before running")
	runCmd.Flags().Duration("delay", sandbox.DefaultDelay, "Simulated run time")

	bindFlags(runCmd.Flags(), map[string]string{
		"sandbox.run_delay": "delay",
	})
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, tree, logger, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	code, err := readSource(cmd, args[0])
	if err != nil {
		return err
	}

	var solution string
	if runExercise != "" {
		sub, err := lookupExercise(tree, runExercise)
		if err != nil {
			return err
		}
		solution = sub.Solution()
	}

	ctx := commandContext(cmd)
	runner := sandbox.NewRunner(sandbox.WithDelay(cfg.Sandbox.RunDelay))
	logger.Debug(ctx, "Running snippet", "delay", runner.Delay(), "exercise", runExercise)

	res, err := runner.Run(ctx, code, solution)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if runFormat == "json" {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(res); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(out, res.Output)
		if res.Verdict != nil {
			writeVerdict(out, *res.Verdict)
		}
	}

	if !res.Succeeded() {
		return apperrors.NewValidationError(apperrors.ErrCodeValidationFailed, "run failed")
	}
	return nil
}
