package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pishield/pishield/internal/extract"
	"github.com/pishield/pishield/internal/pipeline"
	"github.com/pishield/pishield/pkg/types"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <url>",
	Short: "Analyze one artifact for signs of AI generation",
	Long: `Analyze fetches the artifact at the given URL, runs the modality's
signal extractor, scores the signals, stores the result, and prints the
record. The media type must be declared with --type; the pipeline trusts
the declaration rather than sniffing content.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().String("type", "", "declared media type (e.g. image/png, video/mp4, text/plain)")
	analyzeCmd.Flags().String("owner", "cli", "owner ID the result is stored under")
	analyzeCmd.Flags().String("name", "", "display file name for the record")
	analyzeCmd.Flags().String("output", "json", "output format: json or yaml")
	analyzeCmd.MarkFlagRequired("type")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	declaredType, _ := cmd.Flags().GetString("type")
	owner, _ := cmd.Flags().GetString("owner")
	name, _ := cmd.Flags().GetString("name")
	output, _ := cmd.Flags().GetString("output")

	cfg := pipelineConfig()
	logger := newLogger(os.Stderr)

	orch, st, err := newOrchestrator(cfg, nil, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	artifact := types.Artifact{
		ID:           uuid.NewString(),
		OwnerID:      owner,
		URL:          args[0],
		DeclaredType: declaredType,
		FileName:     name,
		SubmittedAt:  time.Now().UTC(),
	}

	record, err := orch.Analyze(cmd.Context(), artifact)

	var perr *pipeline.PersistenceError
	switch {
	case errors.Is(err, extract.ErrAnalysisPending):
		fmt.Fprintln(os.Stderr, "Upstream analysis has not finished; retry later with the same URL.")
		return err
	case errors.As(err, &perr):
		// The verdict is still worth printing.
		fmt.Fprintf(os.Stderr, "Warning: result was not stored (%v)\n", perr.Cause)
	case err != nil:
		return err
	}

	return printRecord(record, output)
}

func printRecord(record *types.AnalysisRecord, format string) error {
	switch format {
	case "yaml":
		out, err := yaml.Marshal(record)
		if err != nil {
			return fmt.Errorf("encoding record: %w", err)
		}
		fmt.Print(string(out))
	default:
		out, err := json.MarshalIndent(record, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding record: %w", err)
		}
		fmt.Println(string(out))
	}
	return nil
}
