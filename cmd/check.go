package main

import (
	"context"
	"fmt"
	"io"
	"net"

	"github.com/prasanthmj/inboxtriage/pkg/config"
	"github.com/prasanthmj/inboxtriage/pkg/email"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Test DNS, IMAP and SMTP access without touching any message",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	w := cmd.OutOrStdout()

	failed := 0
	step := func(name string, fn func() (string, error)) {
		detail, err := fn()
		if err != nil {
			failed++
			fmt.Fprintf(w, "FAIL  %s: %v\n", name, err)
			logger.Debug("check failed", zap.String("step", name), zap.Error(err))
			return
		}
		fmt.Fprintf(w, "ok    %s %s\n", name, detail)
	}

	for _, host := range []string{cfg.IMAPServer, cfg.SMTPServer} {
		step("dns "+host, func() (string, error) { return lookup(ctx, host) })
	}
	step("imap", func() (string, error) { return checkIMAP(ctx, cfg) })
	step("smtp", func() (string, error) {
		if err := email.NewSMTPClient(cfg).Verify(ctx); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s:%d authenticated", cfg.SMTPServer, cfg.SMTPPort), nil
	})

	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	printConfigSummary(w, cfg)
	return nil
}

func lookup(ctx context.Context, host string) (string, error) {
	addrs, err := net.DefaultResolver.LookupHost(ctx, host)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("-> %v", addrs), nil
}

func checkIMAP(ctx context.Context, cfg *config.Config) (string, error) {
	session, err := email.NewIMAPClient(cfg).Open(ctx)
	if err != nil {
		return "", err
	}
	defer session.Close()

	total, unread, err := session.MailboxCounts(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d INBOX has %d messages, %d unread", cfg.IMAPServer, cfg.IMAPPort, total, unread), nil
}

func printConfigSummary(w io.Writer, cfg *config.Config) {
	p := cfg.Policy
	fmt.Fprintf(w, "\nAccount:     %s\n", cfg.EmailAddress)
	fmt.Fprintf(w, "Auto-reply:  %v (max %d per run, threshold %.2f)\n",
		p.AutoReplyEnabled, p.MaxAutoReplies, p.EscalationThreshold)
	if p.WorkingHours.Restricted() {
		fmt.Fprintf(w, "Hours:       %s-%s\n", p.WorkingHours.Start, p.WorkingHours.End)
	} else {
		fmt.Fprintln(w, "Hours:       unrestricted")
	}
	fmt.Fprintf(w, "Language:    %s\n", p.Language)
	fmt.Fprintf(w, "Log dir:     %s\n", cfg.LogDir)
}
