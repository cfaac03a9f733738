package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/docket/internal/server"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard views as a read-only JSON API",
	Long: `Serve loads the dataset once and answers every dashboard view over HTTP:

  GET /health
  GET /api/v1/overview
  GET /api/v1/justices
  GET /api/v1/agreement
  GET /api/v1/splits
  GET /api/v1/decision-types
  GET /api/v1/cases?justice=A&justice=B&mode=all&exclude_unanimous=true
  GET /api/v1/integrity
  GET /metrics

Example:
  docket serve
  docket serve --addr :9090 --dataset https://example.com/scData.json`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: server.addr from config)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	snap, err := loadSnapshot(ctx)
	if err != nil {
		return err
	}

	srv, err := server.New(snap, cfg.RosterValue(), cfg, logger)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "✓ Serving %d cases from %s on %s\n", len(snap.Records), snap.Source, cfg.Server.Addr)
	return srv.Serve(ctx)
}
