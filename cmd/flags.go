package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	apperrors "github.com/conneroisu/luatutor/internal/errors"
)

// choiceValue is a string flag restricted to a fixed set of values.
type choiceValue struct {
	target  *string
	allowed []string
}

var _ pflag.Value = (*choiceValue)(nil)

func (c *choiceValue) String() string {
	if c.target == nil {
		return ""
	}
	return *c.target
}

func (c *choiceValue) Set(val string) error {
	val = strings.ToLower(strings.TrimSpace(val))
	if !slices.Contains(c.allowed, val) {
		return fmt.Errorf("invalid value %q (supported: %s)", val, strings.Join(c.allowed, ", "))
	}
	*c.target = val
	return nil
}

func (c *choiceValue) Type() string {
	return "string"
}

// addFormatFlag registers --format/-f on cmd, limited to allowed. The first
// allowed value is the default.
func addFormatFlag(cmd *cobra.Command, target *string, allowed ...string) {
	*target = allowed[0]
	cmd.Flags().VarP(&choiceValue{target: target, allowed: allowed}, "format", "f",
		"Output format ("+strings.Join(allowed, ", ")+")")
}

// bindFlags binds viper keys to flags in fs.
func bindFlags(fs *pflag.FlagSet, bindings map[string]string) {
	for key, name := range bindings {
		if err := viper.BindPFlag(key, fs.Lookup(name)); err != nil {
			panic(fmt.Sprintf("cmd: bind %s to --%s: %v", key, name, err))
		}
	}
}

// parseExerciseRef splits "section/subsection".
func parseExerciseRef(ref string) (string, string, error) {
	section, subsection, ok := strings.Cut(strings.Trim(ref, "/"), "/")
	if !ok || section == "" || subsection == "" || strings.Contains(subsection, "/") {
		return "", "", apperrors.NewValidationError(apperrors.ErrCodeValidationFailed,
			fmt.Sprintf("expected <section>/<subsection>, got %q", ref))
	}
	return section, subsection, nil
}
