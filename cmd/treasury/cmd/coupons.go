package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/treasury/coupon"
	"github.com/rustyeddy/treasury/journal"
	"github.com/rustyeddy/treasury/risk"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var couponsCmd = &cobra.Command{
	Use:   "coupons",
	Short: "Generate and store bond coupon schedules",
	Long: `Generate semi-annual coupon schedules and maintain the ISIN master.

Subcommands:
  generate - Print a schedule without storing anything
  create   - Store an instrument and its schedule
  show     - Print a stored schedule
  around   - Print the coupon dates bracketing a value date

Examples:
  treasury coupons generate --isin LK0412A28106 --issue 2024-01-01 --maturity 2026-01-01 --rate 10
  treasury coupons around LK0412A28106 2025-02-10`,
}

var couponsGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Print a coupon schedule",
	Args:  cobra.NoArgs,
	RunE:  runCouponsGenerate,
}

var couponsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Store an instrument and its coupon schedule",
	Args:  cobra.NoArgs,
	RunE:  runCouponsCreate,
}

var couponsShowCmd = &cobra.Command{
	Use:   "show <isin>",
	Short: "Print a stored coupon schedule",
	Args:  cobra.ExactArgs(1),
	RunE:  runCouponsShow,
}

var couponsAroundCmd = &cobra.Command{
	Use:   "around <isin> <YYYY-MM-DD>",
	Short: "Print the previous and next coupon dates for a value date",
	Args:  cobra.ExactArgs(2),
	RunE:  runCouponsAround,
}

var (
	cpnISIN     string
	cpnIssue    string
	cpnMaturity string
	cpnRate     string
	cpnIssuer   string
	cpnSeries   string
	cpnDayBasis string
	cpnCurrency string
)

func init() {
	rootCmd.AddCommand(couponsCmd)
	couponsCmd.AddCommand(couponsGenerateCmd)
	couponsCmd.AddCommand(couponsCreateCmd)
	couponsCmd.AddCommand(couponsShowCmd)
	couponsCmd.AddCommand(couponsAroundCmd)

	for _, c := range []*cobra.Command{couponsGenerateCmd, couponsCreateCmd} {
		c.Flags().StringVar(&cpnISIN, "isin", "", "ISIN (required)")
		c.Flags().StringVar(&cpnIssue, "issue", "", "issue date YYYY-MM-DD (required)")
		c.Flags().StringVar(&cpnMaturity, "maturity", "", "maturity date YYYY-MM-DD (required)")
		c.Flags().StringVar(&cpnRate, "rate", "", "annual coupon rate in percent (required)")
		for _, name := range []string{"isin", "issue", "maturity", "rate"} {
			c.MarkFlagRequired(name)
		}
	}
	f := couponsCreateCmd.Flags()
	f.StringVar(&cpnIssuer, "issuer", "", "issuer name (required)")
	f.StringVar(&cpnSeries, "series", "", "series")
	f.StringVar(&cpnDayBasis, "day-basis", "act/act", "day count basis")
	f.StringVar(&cpnCurrency, "currency", "", "currency (default from config)")
	couponsCreateCmd.MarkFlagRequired("issuer")
}

func instrumentFromFlags() (coupon.Instrument, error) {
	issue, err := time.Parse(time.DateOnly, cpnIssue)
	if err != nil {
		return coupon.Instrument{}, fmt.Errorf("%w: issue date: %v", risk.ErrInvalidInput, err)
	}
	maturity, err := time.Parse(time.DateOnly, cpnMaturity)
	if err != nil {
		return coupon.Instrument{}, fmt.Errorf("%w: maturity date: %v", risk.ErrInvalidInput, err)
	}
	rate, err := decimal.NewFromString(cpnRate)
	if err != nil {
		return coupon.Instrument{}, fmt.Errorf("%w: coupon rate %q", risk.ErrInvalidInput, cpnRate)
	}
	return coupon.Instrument{
		Issuer:     cpnIssuer,
		ISIN:       strings.ToUpper(cpnISIN),
		IssueDate:  issue,
		Maturity:   maturity,
		CouponRate: rate,
		Series:     cpnSeries,
		DayBasis:   cpnDayBasis,
		Currency:   strings.ToUpper(cpnCurrency),
	}, nil
}

func runCouponsGenerate(cmd *cobra.Command, args []string) error {
	in, err := instrumentFromFlags()
	if err != nil {
		return err
	}
	s, err := in.Schedule()
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), journal.FormatScheduleOrg(s))
	return nil
}

func runCouponsCreate(cmd *cobra.Command, args []string) error {
	in, err := instrumentFromFlags()
	if err != nil {
		return err
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if in.Currency == "" {
		in.Currency = a.cfg.Enforcement.DefaultCurrency
	}
	// The MM/DD anniversaries fill coupon_date_1 and coupon_date_2.
	if s, err := in.Schedule(); err == nil {
		months := s.Months()
		if len(months) > 0 {
			in.CouponDate1 = months[0]
		}
		if len(months) > 1 {
			in.CouponDate2 = months[1]
		}
	}

	rowID, s, err := a.store.CreateInstrument(cmd.Context(), in)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Stored %s (id %d, %d coupons)\n", in.ISIN, rowID, len(s.Entries))
	fmt.Fprint(out, journal.FormatScheduleOrg(s))
	return nil
}

func runCouponsShow(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.store.CouponSchedule(cmd.Context(), strings.ToUpper(args[0]))
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), journal.FormatScheduleOrg(s))
	return nil
}

func runCouponsAround(cmd *cobra.Command, args []string) error {
	value, err := time.Parse(time.DateOnly, args[1])
	if err != nil {
		return fmt.Errorf("%w: value date: %v", risk.ErrInvalidInput, err)
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.store.CouponSchedule(cmd.Context(), strings.ToUpper(args[0]))
	if err != nil {
		return err
	}
	prev, next, err := s.Around(value)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s previous %s next %s\n", s.ISIN, prev.Format(time.DateOnly), next.Format(time.DateOnly))
	return nil
}
