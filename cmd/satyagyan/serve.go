package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/satyagyan/internal/config"
	"github.com/nao1215/satyagyan/internal/log"
	"github.com/nao1215/satyagyan/internal/server"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the SatyaGyan web interface and JSON API",
		Long: `Serve starts an HTTP server with a web form for fact checks and a JSON API.

Routes:
  GET  /                          web form
  POST /check                     run a check from the form
  POST /api/check                 run a check (JSON, form or multipart upload)
  GET  /api/checks                list stored checks
  GET  /api/checks/{id}           get a stored report
  GET  /api/checks/{id}/report.txt  download a stored report
  DELETE /api/checks/{id}         delete a stored report
  GET  /healthz                   health check
  GET  /metrics                   Prometheus metrics

Examples:
  # Listen on the default address
  satyagyan serve

  # Listen on localhost only, with JSON logs
  satyagyan serve --addr 127.0.0.1:9000 --log-json`,
		RunE: runServe,
	}

	addEngineFlags(cmd)
	flags := cmd.Flags()
	flags.String("addr", config.DefaultListenAddr, "Address to listen on")
	flags.Int64("max-upload", config.DefaultMaxUploadSize, "Maximum request body size in bytes")
	flags.Bool("log-json", false, "Write logs as JSON")

	return cmd
}

// runServe executes the serve command.
func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("max-upload") {
		cfg.MaxUploadSize, _ = cmd.Flags().GetInt64("max-upload")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	var logger *slog.Logger
	if logJSON, _ := cmd.Flags().GetBool("log-json"); logJSON {
		logger = log.NewSecureJSONLogger(os.Stderr, cfg.Verbose)
	} else {
		logger = setupLogger(cfg.Verbose)
	}

	a, err := newApp(cmd.Context(), cfg, logger, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("failed to release resources", "error", err)
		}
	}()

	opts := []server.Option{
		server.WithLogger(logger),
		server.WithMaxUploadSize(cfg.MaxUploadSize),
		server.WithVersion(getVersion()),
	}
	if a.store != nil {
		opts = append(opts, server.WithStore(a.store))
	}
	srv := server.New(a.checker, opts...)

	fmt.Fprintf(cmd.ErrOrStderr(), "SatyaGyan listening on %s\n", cfg.ListenAddr)
	return srv.ListenAndServe(cmd.Context(), cfg.ListenAddr)
}
