package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/prasanthmj/inboxtriage/pkg/config"
	"github.com/prasanthmj/inboxtriage/pkg/storage"
	"github.com/spf13/cobra"
)

var (
	historyDate string
	historyJSON bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the outcomes logged for one day",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().StringVarP(&historyDate, "date", "d", "", "day to show as YYYY-MM-DD (default today)")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "print the raw outcomes as JSON")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	date := time.Now()
	if historyDate != "" {
		if date, err = time.ParseInLocation("2006-01-02", historyDate, time.Local); err != nil {
			return fmt.Errorf("invalid --date %q: want YYYY-MM-DD", historyDate)
		}
	}

	outcomes, err := storage.NewRunLog(cfg.LogDir, logger).Load(date)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if historyJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(outcomes)
	}
	if len(outcomes) == 0 {
		fmt.Fprintf(out, "No outcomes logged for %s\n", date.Format("2006-01-02"))
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tACTION\tCATEGORY\tPRIO\tFROM\tSUBJECT")
	for _, o := range outcomes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%s\t%s\n",
			o.Timestamp.Local().Format("15:04:05"), o.Action, o.Category, o.Priority, o.From, o.Subject)
	}
	return tw.Flush()
}
