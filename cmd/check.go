package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/conneroisu/luatutor/internal/catalog"
	apperrors "github.com/conneroisu/luatutor/internal/errors"
	"github.com/conneroisu/luatutor/internal/exercise"
)

var (
	checkFormat string
	checkHints  bool
)

var checkCmd = &cobra.Command{
	Use:   "check <section>/<subsection> <file>",
	Short: "Check an exercise answer against the reference solution",
	Long: `Compare a filled-in exercise with the lesson's reference solution, line by
line. Use "-" as the file to read the answer from stdin. The command exits
with an error when the answer is not correct.

Examples:
  luatutor check variables/variable-declaration answer.lua
  cat answer.lua | luatutor check variables/variable-declaration -
  luatutor check variables/variable-declaration answer.lua --hints`,
	Args: cobra.ExactArgs(2),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	addFormatFlag(checkCmd, &checkFormat, "text", "json")
	checkCmd.Flags().BoolVar(&checkHints, "hints", false, "Print the exercise hints before the verdict")
}

func runCheck(cmd *cobra.Command, args []string) error {
	_, tree, _, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	sub, err := lookupExercise(tree, args[0])
	if err != nil {
		return err
	}
	code, err := readSource(cmd, args[1])
	if err != nil {
		return err
	}

	verdict := exercise.Validate(code, sub.Solution())

	out := cmd.OutOrStdout()
	if checkFormat == "json" {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(verdict); err != nil {
			return err
		}
	} else {
		if checkHints {
			for _, h := range exercise.Hints(sub.FillInBlank) {
				fmt.Fprintf(out, "hint {{%s}}: %s\n", h.Name, h.Text)
			}
		}
		writeVerdict(out, verdict)
	}

	if !verdict.Correct {
		return apperrors.NewValidationError(apperrors.ErrCodeValidationFailed, "answer is not correct")
	}
	return nil
}

func writeVerdict(out io.Writer, v exercise.Verdict) {
	if v.Correct {
		fmt.Fprintf(out, "PASS %s\n", v.Message)
		return
	}
	fmt.Fprintf(out, "FAIL %s\n", v.Message)
	for _, le := range v.Errors {
		fmt.Fprintf(out, "  line %d: %s\n", le.Line, le.Message)
	}
}

// lookupExercise resolves ref to a subsection with a checkable exercise.
func lookupExercise(tree *catalog.Tree, ref string) (*catalog.Subsection, error) {
	sectionID, subsectionID, err := parseExerciseRef(ref)
	if err != nil {
		return nil, err
	}
	_, sub, err := tree.Subsection(sectionID, subsectionID)
	if err != nil {
		return nil, err
	}
	if !exercise.Enabled(sub.Solution()) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("%s has no exercise", ref))
	}
	return sub, nil
}

// readSource reads a file, or stdin when path is "-".
func readSource(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", apperrors.NewIOError(apperrors.ErrCodeInternalError, "failed to read stdin", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", apperrors.NewIOError(apperrors.ErrCodeFileNotFound, "source file not found", err).
				WithContext("path", path)
		}
		return "", apperrors.NewIOError(apperrors.ErrCodeInternalError, "failed to read source file", err).
			WithContext("path", path)
	}
	return string(data), nil
}
