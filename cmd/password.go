package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/prasanthmj/inboxtriage/pkg/credential"
	"github.com/spf13/cobra"
)

var passwordCmd = &cobra.Command{
	Use:   "password",
	Short: "Manage the mailbox password in the system keyring",
	Long: `Stores the mailbox password in the system keyring. When EMAIL_PASSWORD
is empty in the config file, the password is looked up there by
EMAIL_USERNAME.`,
}

var passwordSetCmd = &cobra.Command{
	Use:   "set <account>",
	Short: "Read a password from stdin and store it for account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.ErrOrStderr(), "Password for %s: ", args[0])
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password := strings.TrimRight(line, "\r\n")
		if password == "" {
			return fmt.Errorf("empty password")
		}
		if err := credential.Set(args[0], password); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Stored password for %s\n", args[0])
		return nil
	},
}

var passwordDeleteCmd = &cobra.Command{
	Use:   "delete <account>",
	Short: "Remove the stored password for account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := credential.Delete(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted password for %s\n", args[0])
		return nil
	},
}

func init() {
	passwordCmd.AddCommand(passwordSetCmd, passwordDeleteCmd)
}
