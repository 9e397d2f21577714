// Package cmd provides the luatutor command-line interface.
//
// Configuration is layered, highest priority first:
//
//  1. Command-line flags (--port, --catalog, --log-level, ...)
//  2. LUATUTOR_* environment variables (LUATUTOR_SERVER_PORT, ...)
//  3. The configuration file: --config, then LUATUTOR_CONFIG_FILE, then
//     .luatutor.yml in the working directory
//  4. Built-in defaults
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/luatutor/internal/catalog"
	"github.com/conneroisu/luatutor/internal/config"
	"github.com/conneroisu/luatutor/internal/logging"
)

// ConfigFileEnv names the environment variable holding a config file path.
const ConfigFileEnv = config.EnvPrefix + "_CONFIG_FILE"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "luatutor",
	Short: "An interactive Lua tutorial in the browser",
	Long: `luatutor serves a browsable Lua course: a collapsible table of contents,
lessons with notes, diagrams and step-by-step walkthroughs, live search, and
fill-in-the-blank exercises checked against a reference solution.

Quick Start:
  luatutor serve                  Start the tutorial server
  luatutor list                   Show the table of contents
  luatutor search closure         Search lesson titles and text
  luatutor check variables/variable-declaration answer.lua
  luatutor lint lessons.yaml      Check a custom catalog

Documentation: https://github.com/conneroisu/luatutor`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is .luatutor.yml, can also use "+ConfigFileEnv+")")
	flags.StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	flags.String("catalog", "", "lesson catalog YAML file (default is the built-in course)")

	bindFlags(flags, map[string]string{
		"log.level":    "log-level",
		"log.format":   "log-format",
		"catalog.path": "catalog",
	})
}

// initConfig points viper at the config file and enables env overrides.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv(ConfigFileEnv); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".luatutor")
	}

	config.BindEnv(viper.GetViper())

	// A missing or unreadable file leaves the defaults in place.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the process logger from the log section of cfg.
func newLogger(cfg *config.Config, out io.Writer) logging.Logger {
	return logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: out,
	})
}

// loadRuntime loads the configuration, the catalog it names and a logger
// writing to the command's stderr.
func loadRuntime(cmd *cobra.Command) (*config.Config, *catalog.Tree, logging.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	tree, err := catalog.Resolve(cfg.Catalog.Path)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, tree, newLogger(cfg, cmd.ErrOrStderr()), nil
}
