package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pishield/pishield/internal/pipeline"
	"github.com/pishield/pishield/internal/queue"
	"github.com/pishield/pishield/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis HTTP API",
	Long: `Serve exposes the analysis pipeline and stored results over HTTP.
When Redis is reachable, POST ?async=1 enqueues jobs for the worker and
failed result writes are queued for retry; without Redis the API still
serves synchronous analyses.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8080)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig()
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Address = addr
	}
	logger := newLogger(os.Stderr)

	qc, err := queue.NewClient(cmd.Context(), cfg.Queue)
	if err != nil {
		logger.Warn("redis unavailable, async analysis disabled", "error", err)
		qc = nil
	} else {
		defer qc.Close()
	}

	// Assign through typed checks so a nil *queue.Client never becomes a
	// non-nil interface value.
	var retry pipeline.RetryEnqueuer
	var jobs server.JobEnqueuer
	if qc != nil {
		retry = qc
		jobs = qc
	}

	orch, st, err := newOrchestrator(cfg, retry, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	srv := server.New(orch, st, jobs, logger)

	addr := cfg.Server.Address
	if addr == "" {
		addr = ":8080"
	}
	fmt.Fprintf(os.Stderr, "Serving on %s\n", addr)
	return srv.Run(cfg.Server)
}
