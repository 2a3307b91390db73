package risk

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when a limit row or proposal does not name one.
const DefaultCurrency = "LKR"

type CounterpartyType string

const (
	Individual CounterpartyType = "individual"
	Joint      CounterpartyType = "joint"
)

func ParseCounterpartyType(s string) (CounterpartyType, error) {
	switch t := CounterpartyType(strings.ToLower(strings.TrimSpace(s))); t {
	case Individual, Joint:
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown counterparty type %q", ErrInvalidInput, s)
}

type ProductType string

const (
	MoneyMarket    ProductType = "money_market"
	FX             ProductType = "fx"
	Derivative     ProductType = "derivative"
	Repo           ProductType = "repo"
	ReverseRepo    ProductType = "reverse_repo"
	GSec           ProductType = "gsec"
	SellAndBuyBack ProductType = "sell_and_buy_back"
	BuyAndSellBack ProductType = "buy_and_sell_back"
	Transaction    ProductType = "transaction"
)

// Products lists every product type that carries its own limit.
var Products = []ProductType{
	MoneyMarket, FX, Derivative, Repo, ReverseRepo,
	GSec, SellAndBuyBack, BuyAndSellBack, Transaction,
}

func (p ProductType) Valid() bool {
	for _, known := range Products {
		if p == known {
			return true
		}
	}
	return false
}

func ParseProductType(s string) (ProductType, error) {
	p := ProductType(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %s %q", ErrInvalidInput, ReasonUnknownProduct, s)
	}
	return p, nil
}

// Key identifies the scope under which limits are configured, exposure is
// aggregated and proposals are serialized.
type Key struct {
	CounterpartyID   string
	CounterpartyType CounterpartyType
	Currency         string
}

func (k Key) String() string {
	return k.CounterpartyID + "/" + string(k.CounterpartyType) + "/" + k.Currency
}

// CounterpartyLimit is one configured limit row. A zero value in any field
// means that dimension is unbounded.
type CounterpartyLimit struct {
	CounterpartyID   string           `json:"counterparty_id" yaml:"counterparty_id"`
	CounterpartyType CounterpartyType `json:"counterparty_type" yaml:"counterparty_type"`
	// Currency is empty for a currency-agnostic row.
	Currency string `json:"currency" yaml:"currency"`

	OverallExposure decimal.Decimal                 `json:"overall_exposure_limit" yaml:"overall_exposure_limit"`
	CurrencyLimit   decimal.Decimal                 `json:"currency_limit" yaml:"currency_limit"`
	Product         map[ProductType]decimal.Decimal `json:"product_limits" yaml:"product_limits"`

	Tenor          decimal.Decimal `json:"tenor_limit" yaml:"tenor_limit"`
	SettlementRisk decimal.Decimal `json:"settlement_risk_limit" yaml:"settlement_risk_limit"`
	Country        decimal.Decimal `json:"country_limit" yaml:"country_limit"`
	Group          decimal.Decimal `json:"group_limit" yaml:"group_limit"`
	Intraday       decimal.Decimal `json:"intraday_limit" yaml:"intraday_limit"`
}

// ProductLimit returns the limit for p, zero when none is set.
func (l *CounterpartyLimit) ProductLimit(p ProductType) decimal.Decimal {
	if l == nil || l.Product == nil {
		return decimal.Zero
	}
	return l.Product[p]
}

func (l *CounterpartyLimit) Validate() error {
	if l.CounterpartyID == "" {
		return fmt.Errorf("%w: counterparty id is required", ErrInvalidInput)
	}
	if _, err := ParseCounterpartyType(string(l.CounterpartyType)); err != nil {
		return err
	}
	check := func(name string, v decimal.Decimal) error {
		if v.IsNegative() {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidInput, name)
		}
		return checkRange(name, v)
	}
	if err := check("overall_exposure_limit", l.OverallExposure); err != nil {
		return err
	}
	for p, v := range l.Product {
		if !p.Valid() {
			return fmt.Errorf("%w: %s %q", ErrInvalidInput, ReasonUnknownProduct, p)
		}
		if err := check(string(p)+"_limit", v); err != nil {
			return err
		}
	}
	for name, v := range map[string]decimal.Decimal{
		"currency_limit":        l.CurrencyLimit,
		"tenor_limit":           l.Tenor,
		"settlement_risk_limit": l.SettlementRisk,
		"country_limit":         l.Country,
		"group_limit":           l.Group,
		"intraday_limit":        l.Intraday,
	} {
		if err := check(name, v); err != nil {
			return err
		}
	}
	return nil
}

// Store looks up configured limits. Implementations return (nil, nil) when
// neither a currency-specific nor a currency-agnostic row exists.
type Store interface {
	GetLimits(ctx context.Context, k Key) (*CounterpartyLimit, error)
}
