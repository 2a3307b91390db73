package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rustyeddy/treasury/journal"
	"github.com/rustyeddy/treasury/risk"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var limitsCmd = &cobra.Command{
	Use:   "limits",
	Short: "Configure and inspect counterparty limits",
	Long: `Configure and inspect counterparty limits.

Subcommands:
  set      - Create or replace the limit row for a counterparty
  show     - Show the limits that apply to a counterparty
  parties  - List known counterparties

Examples:
  treasury limits set --counterparty 101 --type individual --overall 1000000 --product gsec=250000
  treasury limits show --counterparty 101 --type individual --currency LKR`,
}

var limitsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Create or replace a counterparty limit row",
	Args:  cobra.NoArgs,
	RunE:  runLimitsSet,
}

var limitsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the limit row that applies to a counterparty",
	Args:  cobra.NoArgs,
	RunE:  runLimitsShow,
}

var limitsPartiesCmd = &cobra.Command{
	Use:   "parties",
	Short: "List counterparties",
	Args:  cobra.NoArgs,
	RunE:  runLimitsParties,
}

var (
	limCounterparty string
	limType         string
	limCurrency     string
	limAnyCurrency  bool
	limName         string
	limOverall      string
	limCurrencyCap  string
	limProducts     map[string]string
	limTenor        string
	limSettlement   string
	limCountry      string
	limGroup        string
	limIntraday     string
)

func init() {
	rootCmd.AddCommand(limitsCmd)
	limitsCmd.AddCommand(limitsSetCmd)
	limitsCmd.AddCommand(limitsShowCmd)
	limitsCmd.AddCommand(limitsPartiesCmd)

	for _, c := range []*cobra.Command{limitsSetCmd, limitsShowCmd} {
		c.Flags().StringVar(&limCounterparty, "counterparty", "", "counterparty id (required)")
		c.Flags().StringVar(&limType, "type", "individual", "counterparty type: individual or joint")
		c.Flags().StringVar(&limCurrency, "currency", "", "currency (default from config)")
		c.MarkFlagRequired("counterparty")
	}

	f := limitsSetCmd.Flags()
	f.BoolVar(&limAnyCurrency, "any-currency", false, "store a currency-agnostic row")
	f.StringVar(&limName, "name", "", "counterparty short name to record")
	f.StringVar(&limOverall, "overall", "0", "overall exposure limit (0 = unbounded)")
	f.StringVar(&limCurrencyCap, "currency-limit", "0", "currency limit")
	f.StringToStringVar(&limProducts, "product", nil, "per-product limit, e.g. gsec=250000 (repeatable)")
	f.StringVar(&limTenor, "tenor", "0", "tenor limit")
	f.StringVar(&limSettlement, "settlement", "0", "settlement risk limit")
	f.StringVar(&limCountry, "country", "0", "country limit")
	f.StringVar(&limGroup, "group", "0", "group limit")
	f.StringVar(&limIntraday, "intraday", "0", "intraday limit")
}

func limitKey(a *app) (risk.Key, error) {
	typ, err := risk.ParseCounterpartyType(limType)
	if err != nil {
		return risk.Key{}, err
	}
	cur := strings.ToUpper(limCurrency)
	if cur == "" {
		cur = a.cfg.Enforcement.DefaultCurrency
	}
	return risk.Key{CounterpartyID: limCounterparty, CounterpartyType: typ, Currency: cur}, nil
}

func parseLimit(name, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s %q is not a number", risk.ErrInvalidInput, name, s)
	}
	return d, nil
}

func runLimitsSet(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	key, err := limitKey(a)
	if err != nil {
		return err
	}
	row := risk.CounterpartyLimit{
		CounterpartyID:   key.CounterpartyID,
		CounterpartyType: key.CounterpartyType,
		Currency:         key.Currency,
		Product:          map[risk.ProductType]decimal.Decimal{},
	}
	if limAnyCurrency {
		row.Currency = ""
	}

	for _, v := range []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"overall", limOverall, &row.OverallExposure},
		{"currency-limit", limCurrencyCap, &row.CurrencyLimit},
		{"tenor", limTenor, &row.Tenor},
		{"settlement", limSettlement, &row.SettlementRisk},
		{"country", limCountry, &row.Country},
		{"group", limGroup, &row.Group},
		{"intraday", limIntraday, &row.Intraday},
	} {
		if *v.dst, err = parseLimit(v.name, v.raw); err != nil {
			return err
		}
	}
	for name, raw := range limProducts {
		p, err := risk.ParseProductType(name)
		if err != nil {
			return err
		}
		if row.Product[p], err = parseLimit(name, raw); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	if limName != "" {
		if err := a.store.AddCounterparty(ctx, journal.Counterparty{ID: key.CounterpartyID, Type: key.CounterpartyType, ShortName: limName}); err != nil {
			return fmt.Errorf("save counterparty: %w", err)
		}
	}
	if err := a.store.SaveLimits(ctx, row); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Saved limits for %s/%s/%s\n", row.CounterpartyID, row.CounterpartyType, displayCurrency(row.Currency))
	return nil
}

func runLimitsShow(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	key, err := limitKey(a)
	if err != nil {
		return err
	}
	row, err := a.store.GetLimits(cmd.Context(), key)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if row == nil {
		fmt.Fprintf(out, "%s: %s\n", key, risk.ReasonNoLimits)
		return nil
	}
	fmt.Fprintf(out, "Limits for %s (row currency %s)\n", key, displayCurrency(row.Currency))
	fmt.Fprintf(out, "  overall:  %s\n", displayLimit(row.OverallExposure))
	fmt.Fprintf(out, "  currency: %s\n", displayLimit(row.CurrencyLimit))

	names := make([]string, 0, len(row.Product))
	for p := range row.Product {
		names = append(names, string(p))
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(out, "  %s: %s\n", n, displayLimit(row.Product[risk.ProductType(n)]))
	}
	if row.Intraday.IsPositive() {
		fmt.Fprintf(out, "  intraday: %s\n", row.Intraday)
	}
	return nil
}

func runLimitsParties(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	parties, err := a.store.ListCounterparties(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, p := range parties {
		fmt.Fprintf(out, "%-10s %-10s %s\n", p.ID, p.Type, p.ShortName)
	}
	return nil
}

func displayLimit(d decimal.Decimal) string {
	if !d.IsPositive() {
		return "unbounded"
	}
	return d.String()
}

func displayCurrency(c string) string {
	if c == "" {
		return "*"
	}
	return c
}
