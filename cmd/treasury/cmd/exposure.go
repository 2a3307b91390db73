package cmd

import (
	"fmt"

	"github.com/rustyeddy/treasury/exposure"
	"github.com/rustyeddy/treasury/risk"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var exposureCmd = &cobra.Command{
	Use:   "exposure",
	Short: "Report booked exposure and headroom for a counterparty",
	Long: `Report booked exposure (accepted and approved bookings) against the
configured limits, overall and per product.

Example:
  treasury exposure --counterparty 101 --type individual --currency LKR`,
	Args: cobra.NoArgs,
	RunE: runExposure,
}

func init() {
	rootCmd.AddCommand(exposureCmd)

	exposureCmd.Flags().StringVar(&limCounterparty, "counterparty", "", "counterparty id (required)")
	exposureCmd.Flags().StringVar(&limType, "type", "individual", "counterparty type: individual or joint")
	exposureCmd.Flags().StringVar(&limCurrency, "currency", "", "currency (default from config)")
	exposureCmd.MarkFlagRequired("counterparty")
}

func runExposure(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	key, err := limitKey(a)
	if err != nil {
		return err
	}
	row, err := a.store.GetLimits(ctx, key)
	if err != nil {
		return err
	}
	agg := exposure.New(a.store, a.cfg.EnforceConfig().Breaker)

	out := cmd.OutOrStdout()
	overall, err := agg.Current(ctx, key, nil)
	if err != nil {
		return err
	}
	overallLimit := decimal.Zero
	if row != nil {
		overallLimit = row.OverallExposure
	}
	fmt.Fprintf(out, "Exposure for %s\n", key)
	fmt.Fprintf(out, "  %-18s %s\n", "overall", describe(overall, overallLimit))

	for _, p := range risk.Products {
		cur, err := agg.Current(ctx, key, &p)
		if err != nil {
			return err
		}
		lim := row.ProductLimit(p)
		if cur.IsZero() && !lim.IsPositive() {
			continue
		}
		fmt.Fprintf(out, "  %-18s %s\n", p, describe(cur, lim))
	}
	if row == nil {
		fmt.Fprintf(out, "  (%s)\n", risk.ReasonNoLimits)
	}
	return nil
}

func describe(current, limit decimal.Decimal) string {
	room, bounded := risk.Headroom(current, limit)
	if !bounded {
		return fmt.Sprintf("%s (unbounded)", current)
	}
	util := risk.Utilization(current, limit).Mul(decimal.NewFromInt(100))
	return fmt.Sprintf("%s / %s  headroom %s  (%s%%)", current, limit, room, util.StringFixed(1))
}
