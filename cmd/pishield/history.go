package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pishield/pishield/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored analysis results, newest first",
	RunE:  runHistory,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <analysis-id>",
	Short: "Delete one stored analysis result",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

var historyPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete every stored result for the owner",
	RunE:  runHistoryPurge,
}

func init() {
	historyCmd.PersistentFlags().String("owner", "cli", "owner ID to operate on")
	historyCmd.Flags().Int("limit", 0, "page size (default from config)")
	historyCmd.Flags().Int("offset", 0, "number of records to skip")
	historyCmd.Flags().String("output", "json", "output format: json or yaml")

	historyCmd.AddCommand(historyDeleteCmd)
	historyCmd.AddCommand(historyPurgeCmd)
	rootCmd.AddCommand(historyCmd)
}

func openStore() (*store.SQLite, error) {
	return store.Open(pipelineConfig().Store)
}

func runHistory(cmd *cobra.Command, args []string) error {
	owner, _ := cmd.Flags().GetString("owner")
	limit, _ := cmd.Flags().GetInt("limit")
	offset, _ := cmd.Flags().GetInt("offset")
	output, _ := cmd.Flags().GetString("output")

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.ListByOwner(cmd.Context(), owner, limit, offset)
	if err != nil {
		return err
	}

	switch output {
	case "yaml":
		out, err := yaml.Marshal(records)
		if err != nil {
			return fmt.Errorf("encoding records: %w", err)
		}
		fmt.Print(string(out))
	default:
		out, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding records: %w", err)
		}
		fmt.Println(string(out))
	}
	return nil
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	owner, _ := cmd.Flags().GetString("owner")

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.DeleteByOwner(cmd.Context(), owner, args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted %s\n", args[0])
	return nil
}

func runHistoryPurge(cmd *cobra.Command, args []string) error {
	owner, _ := cmd.Flags().GetString("owner")

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	deleted, err := st.PurgeOwner(cmd.Context(), owner)
	if err != nil {
		return err
	}
	fmt.Printf("Deleted %d record(s) for %s\n", deleted, owner)
	return nil
}
