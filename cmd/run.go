package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/prasanthmj/inboxtriage/pkg/config"
	"github.com/prasanthmj/inboxtriage/pkg/email"
	"github.com/prasanthmj/inboxtriage/pkg/storage"
	"github.com/prasanthmj/inboxtriage/pkg/triage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runMode string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Triage the unread messages once",
	Long: `Runs one triage pass over the unread messages of the inbox.

Modes:
  monitor  classify and log only, never reply (default)
  hybrid   accepted, currently behaves like monitor
  auto     send templated replies during working hours`,
	Args: cobra.NoArgs,
	RunE: runTriage,
}

func init() {
	runCmd.Flags().StringVarP(&runMode, "mode", "m", string(triage.ModeMonitor), "monitor, hybrid or auto")
}

func runTriage(cmd *cobra.Command, args []string) error {
	mode, err := triage.ParseMode(runMode)
	if err != nil {
		return err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	report, logPath, err := triageOnce(cmd.Context(), cfg, mode, logger)
	if report != nil {
		printReport(cmd.OutOrStdout(), report, logPath)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("run interrupted: %w", err)
	}
	return err
}

// triageOnce opens a mail session, runs the engine and closes everything
// again. It returns the run log path the outcomes went to.
func triageOnce(ctx context.Context, cfg *config.Config, mode triage.Mode, logger *zap.Logger) (*triage.Report, string, error) {
	session, err := email.NewIMAPClient(cfg).Open(ctx)
	if err != nil {
		return nil, "", err
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Debug("imap logout failed", zap.Error(err))
		}
	}()

	runLog := storage.NewRunLog(cfg.LogDir, logger)
	opts := []triage.Option{
		triage.WithRuleset(cfg.Rules),
		triage.WithDelay(cfg.MessageDelay),
		triage.WithLogger(logger),
	}
	if cfg.HistoryDB != "" {
		idx, err := storage.OpenIndex(cfg.HistoryDB)
		if err != nil {
			logger.Warn("history index unavailable", zap.String("path", cfg.HistoryDB), zap.Error(err))
		} else {
			defer idx.Close()
			opts = append(opts, triage.WithIndex(idx))
		}
	}

	engine := triage.NewEngine(session, email.NewSMTPClient(cfg), email.ParseMessage, runLog, cfg.Policy, opts...)
	report, err := engine.Run(ctx, mode)
	if report == nil {
		return nil, "", err
	}
	return report, runLog.Path(report.StartedAt), err
}

func printReport(w io.Writer, r *triage.Report, logPath string) {
	fmt.Fprintf(w, "Run %s (%s", r.RunID, r.Mode)
	if r.EffectiveMode != r.Mode {
		fmt.Fprintf(w, ", %s outside working hours", r.EffectiveMode)
	}
	fmt.Fprintln(w, ")")
	fmt.Fprintf(w, "  processed:    %d\n", len(r.Outcomes))
	fmt.Fprintf(w, "  auto-replied: %d\n", r.Count(triage.ActionAutoReplied))
	fmt.Fprintf(w, "  escalated:    %d\n", r.Count(triage.ActionEscalated))
	fmt.Fprintf(w, "  spam:         %d\n", r.Count(triage.ActionSpam))
	fmt.Fprintf(w, "  categorized:  %d\n", r.Count(triage.ActionCategorized))
	if len(r.Failures) > 0 {
		fmt.Fprintf(w, "  failed:       %d\n", len(r.Failures))
		for _, f := range r.Failures {
			fmt.Fprintf(w, "    - %v\n", f)
		}
	}
	if logPath != "" {
		fmt.Fprintf(w, "Log: %s\n", logPath)
	}
}
