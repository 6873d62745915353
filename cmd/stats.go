package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/prasanthmj/inboxtriage/pkg/config"
	"github.com/prasanthmj/inboxtriage/pkg/storage"
	"github.com/spf13/cobra"
)

var statsSince time.Duration

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarise indexed outcomes (needs HISTORY_DB)",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().DurationVar(&statsSince, "since", 7*24*time.Hour, "look back this far")
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.HistoryDB == "" {
		return fmt.Errorf("HISTORY_DB is not set in %s", cfg.Path)
	}

	idx, err := storage.OpenIndex(cfg.HistoryDB)
	if err != nil {
		return err
	}
	defer idx.Close()

	stats, err := idx.Stats(cmd.Context(), time.Now().Add(-statsSince))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Since %s\n", stats.Since.Local().Format("2006-01-02 15:04"))
	fmt.Fprintf(out, "  runs:        %d\n", stats.Runs)
	fmt.Fprintf(out, "  messages:    %d\n", stats.Total)
	fmt.Fprintf(out, "  escalations: %d\n", stats.Escalations)
	printCounts(cmd, "By action", stats.ByAction)
	printCounts(cmd, "By category", stats.ByCategory)
	return nil
}

func printCounts(cmd *cobra.Command, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(out, "  %-13s%d\n", k+":", counts[k])
	}
}
