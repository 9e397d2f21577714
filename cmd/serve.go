package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/conneroisu/luatutor/internal/metrics"
	"github.com/conneroisu/luatutor/internal/server"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Start the tutorial server",
	Long: `Start the HTTP server hosting the tutorial pages, the search and exercise
APIs, the live search WebSocket and the Prometheus metrics endpoint.

Examples:
  luatutor serve                        # Serve on localhost:8080
  luatutor serve -p 3000                # Serve on another port
  luatutor serve --catalog lessons.yaml # Serve a custom catalog`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "Port to serve on")
	serveCmd.Flags().String("host", "localhost", "Host to bind to")

	bindFlags(serveCmd.Flags(), map[string]string{
		"server.port": "port",
		"server.host": "host",
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, tree, logger, err := loadRuntime(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats := tree.Stats()
	logger.Info(ctx, "Catalog loaded",
		"sections", stats.Sections,
		"subsections", stats.Subsections,
		"exercises", stats.Exercises)

	srv := server.New(cfg, tree, logger, metrics.New())
	fmt.Fprintf(cmd.OutOrStdout(), "Serving the Lua tutorial at http://%s\n", cfg.Server.Addr())

	if err := srv.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Server stopped")
	return nil
}

// commandContext returns the command's context, or Background when the
// command is invoked outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
