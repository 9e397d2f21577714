package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/luatutor/internal/version"
)

var (
	versionFormat string
	versionShort  bool
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Display the version, git commit, build time, Go version and platform.

Examples:
  luatutor version
  luatutor version --short
  luatutor version -f json`,
	Args: cobra.NoArgs,
	RunE: runVersionCommand,
}

func init() {
	rootCmd.AddCommand(versionCmd)
	addFormatFlag(versionCmd, &versionFormat, "text", "json", "yaml")
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Show short version only")
}

func runVersionCommand(cmd *cobra.Command, args []string) error {
	info := version.Get()
	out := cmd.OutOrStdout()

	switch versionFormat {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(versionOutput{Info: info, IsRelease: info.IsRelease()})
	case "yaml":
		encoder := yaml.NewEncoder(out)
		defer encoder.Close()
		return encoder.Encode(versionOutput{Info: info, IsRelease: info.IsRelease()})
	}

	if versionShort {
		fmt.Fprintln(out, info.Short())
		return nil
	}
	fmt.Fprintf(out, "luatutor %s\n", info.Short())
	fmt.Fprintln(out, info.String())
	return nil
}

type versionOutput struct {
	version.Info `yaml:",inline"`
	IsRelease    bool `json:"is_release" yaml:"is_release"`
}
