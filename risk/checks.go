package risk

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	ReasonNoLimits       = "no limits configured"
	ReasonInvalidInput   = "invalid input"
	ReasonUnknownProduct = "unknown product type"
	ReasonUndetermined   = "undetermined"
	ReasonTimeout        = "timeout"
	ReasonIndeterminate  = "indeterminate"
)

type Dimension string

const (
	DimensionProduct Dimension = "product"
	DimensionOverall Dimension = "overall"
)

// Decision is the outcome of a limit check. When Allowed is false and the
// denial came from a breach, Dimension names the limit that was exceeded.
type Decision struct {
	Allowed   bool
	Reason    string
	Dimension Dimension

	CurrentExposure decimal.Decimal
	Limit           decimal.Decimal
	Exceeded        decimal.Decimal
}

func Allow() Decision { return Decision{Allowed: true} }

func Deny(reason string) Decision { return Decision{Reason: reason} }

// Limits carries the two limits Decide checks, for a single product.
type Limits struct {
	Product    ProductType
	ProductCap decimal.Decimal
	OverallCap decimal.Decimal
}

// LimitsFor picks the limits that apply to product p from a configured row.
func LimitsFor(l *CounterpartyLimit, p ProductType) Limits {
	return Limits{Product: p, ProductCap: l.ProductLimit(p), OverallCap: l.OverallExposure}
}

// Decide checks the product limit first and the overall limit second, so a
// proposal breaching both always reports the product limit. Exposure equal
// to a limit is allowed; a zero limit is unbounded.
func Decide(curProduct, curOverall, amount decimal.Decimal, lim Limits) Decision {
	newProduct := curProduct.Add(amount)
	newOverall := curOverall.Add(amount)

	if over, by := exceeds(newProduct, lim.ProductCap); over {
		return Decision{
			Reason:          fmt.Sprintf("exceeds %s limit (%s > %s)", lim.Product, newProduct, lim.ProductCap),
			Dimension:       DimensionProduct,
			CurrentExposure: curProduct,
			Limit:           lim.ProductCap,
			Exceeded:        by,
		}
	}
	if over, by := exceeds(newOverall, lim.OverallCap); over {
		return Decision{
			Reason:          fmt.Sprintf("exceeds overall exposure limit (%s > %s)", newOverall, lim.OverallCap),
			Dimension:       DimensionOverall,
			CurrentExposure: curOverall,
			Limit:           lim.OverallCap,
			Exceeded:        by,
		}
	}
	return Allow()
}
