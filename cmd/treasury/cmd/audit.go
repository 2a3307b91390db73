package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/treasury/audit"
	"github.com/spf13/cobra"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Print the decision audit log",
	Long: `Print every retained limit decision from the audit log.

The log is written by propose when audit.enabled is set in the config.`,
	Args: cobra.NoArgs,
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if a.audit == nil {
		return fmt.Errorf("audit log is disabled (set audit.enabled)")
	}
	entries, err := a.audit.Entries()
	if errors.Is(err, audit.ErrNoData) {
		fmt.Fprintln(cmd.OutOrStdout(), "no decisions recorded")
		return nil
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, e := range entries {
		verdict := "ALLOWED"
		if !e.Allowed {
			verdict = "DENIED"
		}
		fmt.Fprintf(out, "%s %-7s %s %s/%s/%s %s %s", e.At.Format(time.RFC3339), verdict, e.TransactionID,
			e.CounterpartyID, e.CounterpartyType, e.Currency, e.Product, e.Amount)
		if e.Reason != "" {
			fmt.Fprintf(out, "  %s", e.Reason)
		}
		fmt.Fprintln(out)
	}
	return nil
}
