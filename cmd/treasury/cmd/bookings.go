package cmd

import (
	"fmt"

	"github.com/rustyeddy/treasury/journal"
	"github.com/rustyeddy/treasury/risk"
	"github.com/spf13/cobra"
)

var bookingsCmd = &cobra.Command{
	Use:   "bookings",
	Short: "List, inspect and authorize booked transactions",
	Long: `Query booked transactions and record their authorization.

Subcommands:
  list    - List bookings for a counterparty (org or csv)
  show    - Show one booking
  approve - Approve an accepted booking
  reject  - Reject an accepted booking (comment required)

Rejected bookings no longer count towards exposure.

Examples:
  treasury bookings list --counterparty 101 --format csv
  treasury bookings reject 01J0... --comment "wrong ISIN" --by checker`,
}

var bookingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List bookings for a counterparty",
	Args:  cobra.NoArgs,
	RunE:  runBookingsList,
}

var bookingsShowCmd = &cobra.Command{
	Use:   "show <transaction-id>",
	Short: "Show one booking",
	Args:  cobra.ExactArgs(1),
	RunE:  runBookingsShow,
}

var bookingsApproveCmd = &cobra.Command{
	Use:   "approve <transaction-id>",
	Short: "Approve an accepted booking",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBookingStatus(cmd, args[0], risk.StatusApproved)
	},
}

var bookingsRejectCmd = &cobra.Command{
	Use:   "reject <transaction-id>",
	Short: "Reject an accepted booking",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBookingStatus(cmd, args[0], risk.StatusRejected)
	},
}

var (
	bookingsFormat  string
	bookingsComment string
	bookingsBy      string
)

func init() {
	rootCmd.AddCommand(bookingsCmd)
	bookingsCmd.AddCommand(bookingsListCmd)
	bookingsCmd.AddCommand(bookingsShowCmd)
	bookingsCmd.AddCommand(bookingsApproveCmd)
	bookingsCmd.AddCommand(bookingsRejectCmd)

	bookingsListCmd.Flags().StringVar(&limCounterparty, "counterparty", "", "counterparty id (required)")
	bookingsListCmd.Flags().StringVar(&limType, "type", "individual", "counterparty type: individual or joint")
	bookingsListCmd.Flags().StringVar(&limCurrency, "currency", "", "currency (default from config)")
	bookingsListCmd.Flags().StringVar(&bookingsFormat, "format", "org", "output format: org or csv")
	bookingsListCmd.MarkFlagRequired("counterparty")

	for _, c := range []*cobra.Command{bookingsApproveCmd, bookingsRejectCmd} {
		c.Flags().StringVar(&bookingsComment, "comment", "", "authorization comment")
		c.Flags().StringVar(&bookingsBy, "by", "", "authorizing user")
	}
}

func runBookingsList(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	key, err := limitKey(a)
	if err != nil {
		return err
	}
	recs, err := a.store.ListRecords(cmd.Context(), key)
	if err != nil {
		return fmt.Errorf("query bookings: %w", err)
	}

	switch bookingsFormat {
	case "csv":
		return journal.WriteCSV(cmd.OutOrStdout(), recs)
	case "org":
		fmt.Fprintln(cmd.OutOrStdout(), journal.FormatRecordsOrg(recs))
		return nil
	default:
		return fmt.Errorf("%w: unknown format %q", risk.ErrInvalidInput, bookingsFormat)
	}
}

func runBookingsShow(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	rec, err := a.store.GetRecord(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("get booking: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatRecordOrg(rec))
	return nil
}

func runBookingStatus(cmd *cobra.Command, txID string, st risk.Status) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	err = a.store.UpdateStatus(cmd.Context(), journal.StatusUpdate{
		TransactionID: txID,
		Status:        st,
		Comment:       bookingsComment,
		AuthorizedBy:  bookingsBy,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s %s\n", txID, st)
	return nil
}
