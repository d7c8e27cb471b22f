package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pishield/pishield/internal/queue"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume the Redis job queue",
	Long: `Worker blocks on the Redis job queue and runs the analysis pipeline
for each queued request. It also drains the retry queue, replaying result
writes that failed in the API process. Stop it with SIGINT; in-flight jobs
finish first.`,
	RunE: runWorker,
}

func init() {
	workerCmd.Flags().Int("workers", 0, "number of concurrent consumers (default 2)")

	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig()
	if n, _ := cmd.Flags().GetInt("workers"); n > 0 {
		cfg.Queue.Workers = n
	}
	if cfg.Queue.Workers <= 0 {
		cfg.Queue.Workers = 2
	}
	logger := newLogger(os.Stderr)

	qc, err := queue.NewClient(cmd.Context(), cfg.Queue)
	if err != nil {
		return err
	}
	defer qc.Close()

	orch, st, err := newOrchestrator(cfg, qc, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	w := &queue.Worker{
		Queue:    qc,
		Pipeline: orch,
		Store:    st,
		Workers:  cfg.Queue.Workers,
		Logger:   logger,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "Consuming jobs with %d worker(s)\n", cfg.Queue.Workers)
	return w.Run(ctx)
}
