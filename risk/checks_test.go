package risk

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestDecide(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		curProduct string
		curOverall string
		amount     string
		productCap string
		overallCap string

		allowed   bool
		dimension Dimension
		current   string
		limit     string
		exceeded  string
	}{
		{"both unbounded", "1e12", "1e12", "5e11", "0", "0", true, "", "0", "0", "0"},
		{"product exactly at limit", "60", "60", "40", "100", "0", true, "", "0", "0", "0"},
		{"overall exactly at limit", "10", "90", "10", "0", "100", true, "", "0", "0", "0"},
		{"product breach", "60", "60", "41", "100", "0", false, DimensionProduct, "60", "100", "1"},
		{"overall breach", "0", "95", "10", "0", "100", false, DimensionOverall, "95", "100", "5"},
		{"product wins tie-break", "90", "190", "20", "100", "200", false, DimensionProduct, "90", "100", "10"},
		{"product unbounded overall enforced", "500", "500", "1", "0", "500", false, DimensionOverall, "500", "500", "1"},
		{"overall unbounded product enforced", "0", "9999", "1.5", "1", "0", false, DimensionProduct, "0", "1", "0.5"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Decide(d(tt.curProduct), d(tt.curOverall), d(tt.amount), Limits{
				Product:    GSec,
				ProductCap: d(tt.productCap),
				OverallCap: d(tt.overallCap),
			})

			assert.Equal(t, tt.allowed, got.Allowed)
			assert.Equal(t, tt.dimension, got.Dimension)
			assert.True(t, d(tt.current).Equal(got.CurrentExposure), "current %s", got.CurrentExposure)
			assert.True(t, d(tt.limit).Equal(got.Limit), "limit %s", got.Limit)
			assert.True(t, d(tt.exceeded).Equal(got.Exceeded), "exceeded %s", got.Exceeded)
			if tt.allowed {
				assert.Empty(t, got.Reason)
			} else {
				assert.NotEmpty(t, got.Reason)
			}
		})
	}
}

func TestDecideDeniesIffAboveLimit(t *testing.T) {
	t.Parallel()

	limit := d("1000")
	for cur := int64(0); cur <= 1000; cur += 50 {
		for amt := int64(1); amt <= 500; amt += 37 {
			got := Decide(decimal.Zero, decimal.NewFromInt(cur), decimal.NewFromInt(amt), Limits{Product: FX, OverallCap: limit})
			want := cur+amt <= 1000
			assert.Equal(t, want, got.Allowed, "cur=%d amt=%d", cur, amt)
		}
	}
}

func TestDecideReasonMentionsProduct(t *testing.T) {
	t.Parallel()

	got := Decide(d("0"), d("0"), d("11"), Limits{Product: Repo, ProductCap: d("10")})
	assert.Contains(t, got.Reason, "repo limit")

	got = Decide(d("0"), d("0"), d("11"), Limits{Product: Repo, OverallCap: d("10")})
	assert.Contains(t, got.Reason, "overall exposure limit")
}

func TestHeadroom(t *testing.T) {
	t.Parallel()

	room, ok := Headroom(d("30"), d("100"))
	assert.True(t, ok)
	assert.True(t, d("70").Equal(room))

	room, ok = Headroom(d("130"), d("100"))
	assert.True(t, ok)
	assert.True(t, room.IsZero())

	_, ok = Headroom(d("30"), decimal.Zero)
	assert.False(t, ok)
}

func TestUtilization(t *testing.T) {
	t.Parallel()

	assert.True(t, d("0.25").Equal(Utilization(d("25"), d("100"))))
	assert.True(t, Utilization(d("25"), decimal.Zero).IsZero())
}
