package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rustyeddy/treasury/enforce"
	"github.com/rustyeddy/treasury/pkg/id"
	"github.com/rustyeddy/treasury/risk"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var proposeCmd = &cobra.Command{
	Use:   "propose",
	Short: "Check a proposed transaction against limits and book it",
	Long: `Check a proposed transaction against the counterparty's product and
overall limits. An allowed proposal is booked with status accepted.

Exit status is non-zero when the check could not be completed (invalid
input, timeout, store unavailable, indeterminate booking). A plain limit
breach is reported and exits zero.

Example:
  treasury propose --counterparty 101 --type individual --product gsec --amount 50000`,
	Args: cobra.NoArgs,
	RunE: runPropose,
}

var (
	propID           string
	propCounterparty string
	propType         string
	propProduct      string
	propAmount       string
	propCurrency     string
	propISIN         string
	propTradeDate    string
)

func init() {
	rootCmd.AddCommand(proposeCmd)

	f := proposeCmd.Flags()
	f.StringVar(&propID, "id", "", "transaction id (generated when empty)")
	f.StringVar(&propCounterparty, "counterparty", "", "counterparty id (required)")
	f.StringVar(&propType, "type", "individual", "counterparty type: individual or joint")
	f.StringVar(&propProduct, "product", "", "product type (required): "+productNames())
	f.StringVar(&propAmount, "amount", "", "amount (required)")
	f.StringVar(&propCurrency, "currency", "", "currency (default from config)")
	f.StringVar(&propISIN, "isin", "", "ISIN for securities products")
	f.StringVar(&propTradeDate, "trade-date", "", "trade date YYYY-MM-DD")
	proposeCmd.MarkFlagRequired("counterparty")
	proposeCmd.MarkFlagRequired("product")
	proposeCmd.MarkFlagRequired("amount")
}

func productNames() string {
	names := make([]string, len(risk.Products))
	for i, p := range risk.Products {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}

func runPropose(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	amount, err := risk.ParseAmount(propAmount)
	if err != nil {
		return err
	}
	p := risk.Proposal{
		TransactionID:    propID,
		CounterpartyID:   strings.TrimSpace(propCounterparty),
		CounterpartyType: risk.CounterpartyType(strings.ToLower(propType)),
		Product:          risk.ProductType(strings.ToLower(propProduct)),
		Amount:           amount,
		Currency:         strings.ToUpper(propCurrency),
		ISIN:             propISIN,
	}
	if p.Currency == "" {
		p.Currency = a.cfg.Enforcement.DefaultCurrency
	}
	if p.TransactionID == "" {
		p.TransactionID = id.New()
	}
	if propTradeDate != "" {
		if p.TradeDate, err = time.Parse(time.DateOnly, propTradeDate); err != nil {
			return fmt.Errorf("%w: trade date: %v", risk.ErrInvalidInput, err)
		}
	}

	opts := []enforce.Option{
		enforce.WithLogger(a.log),
		enforce.WithMetrics(enforce.NewMetrics(prometheus.NewRegistry())),
	}
	if a.audit != nil {
		opts = append(opts, enforce.WithRecorder(a.audit))
	}
	coord := enforce.New(a.store, a.store, a.cfg.EnforceConfig(), opts...)

	d, err := coord.Evaluate(ctx, p)
	out := cmd.OutOrStdout()
	if err != nil {
		a.log.Error("proposal not decided", zap.String("transaction_id", p.TransactionID), zap.Error(err))
		fmt.Fprintf(out, "DENIED %s: %s\n", p.TransactionID, d.Reason)
		return fmt.Errorf("%s: %w", enforce.Outcome(d, err), err)
	}
	if !d.Allowed {
		fmt.Fprintf(out, "DENIED %s: %s\n", p.TransactionID, d.Reason)
		if d.Dimension != "" {
			fmt.Fprintf(out, "  %s exposure %s, limit %s, exceeded by %s\n", d.Dimension, d.CurrentExposure, d.Limit, d.Exceeded)
		}
		return nil
	}
	fmt.Fprintf(out, "ALLOWED %s: %s %s %s booked for %s\n", p.TransactionID, p.Product, p.Amount, p.Currency, p.Key())
	return nil
}
