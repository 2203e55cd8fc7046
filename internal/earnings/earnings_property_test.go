package earnings

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"

	"github.com/playmix/creatorpay/internal/rates"
)

// ============================================
// Property Tests for Earnings Pricing
// ============================================

// TestProperty_ComputeAmounts_NonNegative tests that priced amounts are never negative
// *For any* non-negative event counts and rates, every priced amount SHALL be non-negative.
func TestProperty_ComputeAmounts_NonNegative(t *testing.T) {
	snapshot := rates.DefaultRates()

	rapid.Check(t, func(rt *rapid.T) {
		counts := SourceCounts{
			Views:               rapid.Int64Range(0, 10_000_000).Draw(rt, "views"),
			Engagements:         rapid.Int64Range(0, 1_000_000).Draw(rt, "engagements"),
			SubscriptionRevenue: decimal.NewFromFloat(rapid.Float64Range(0, 100000.0).Draw(rt, "subRevenue")).Round(2),
			AdImpressions:       rapid.Int64Range(0, 10_000_000).Draw(rt, "adImpressions"),
			AdClicks:            rapid.Int64Range(0, 1_000_000).Draw(rt, "adClicks"),
		}

		amounts := ComputeAmounts(counts, snapshot)

		for name, amount := range map[string]decimal.Decimal{
			"views":          amounts.Views,
			"engagements":    amounts.Engagements,
			"subscriptions":  amounts.Subscriptions,
			"ad_impressions": amounts.AdImpressions,
			"ad_clicks":      amounts.AdClicks,
			"total":          amounts.Total,
		} {
			if amount.LessThan(decimal.Zero) {
				t.Fatalf("PROPERTY VIOLATION: %s amount should be non-negative, got $%s",
					name, amount.String())
			}
		}
	})
}

// TestProperty_ComputeAmounts_TotalIsSumOfSources tests the rollup invariant
// *For any* event counts, the total SHALL equal the sum of the five source amounts.
func TestProperty_ComputeAmounts_TotalIsSumOfSources(t *testing.T) {
	snapshot := rates.DefaultRates()

	rapid.Check(t, func(rt *rapid.T) {
		counts := SourceCounts{
			Views:               rapid.Int64Range(0, 10_000_000).Draw(rt, "views"),
			Engagements:         rapid.Int64Range(0, 1_000_000).Draw(rt, "engagements"),
			SubscriptionRevenue: decimal.NewFromFloat(rapid.Float64Range(0, 100000.0).Draw(rt, "subRevenue")).Round(2),
			AdImpressions:       rapid.Int64Range(0, 10_000_000).Draw(rt, "adImpressions"),
			AdClicks:            rapid.Int64Range(0, 1_000_000).Draw(rt, "adClicks"),
		}

		amounts := ComputeAmounts(counts, snapshot)

		sum := amounts.Views.
			Add(amounts.Engagements).
			Add(amounts.Subscriptions).
			Add(amounts.AdImpressions).
			Add(amounts.AdClicks)

		if !amounts.Total.Equal(sum) {
			t.Fatalf("PROPERTY VIOLATION: Total ($%s) should equal sum of sources ($%s)",
				amounts.Total.String(), sum.String())
		}
	})
}

// TestProperty_ComputeAmounts_MonotoneInViews tests that more views never earn less
// *For any* two view counts where A > B with other sources equal, the total for A SHALL be >= the total for B.
func TestProperty_ComputeAmounts_MonotoneInViews(t *testing.T) {
	snapshot := rates.DefaultRates()

	rapid.Check(t, func(rt *rapid.T) {
		lower := rapid.Int64Range(0, 1_000_000).Draw(rt, "lowerViews")
		higher := rapid.Int64Range(lower, 2_000_000).Draw(rt, "higherViews")

		base := SourceCounts{
			Engagements:         rapid.Int64Range(0, 10_000).Draw(rt, "engagements"),
			SubscriptionRevenue: decimal.NewFromFloat(rapid.Float64Range(0, 1000.0).Draw(rt, "subRevenue")).Round(2),
		}

		lowCounts := base
		lowCounts.Views = lower
		highCounts := base
		highCounts.Views = higher

		lowTotal := ComputeAmounts(lowCounts, snapshot).Total
		highTotal := ComputeAmounts(highCounts, snapshot).Total

		if highTotal.LessThan(lowTotal) {
			t.Fatalf("PROPERTY VIOLATION: Total for %d views ($%s) should not be less than total for %d views ($%s)",
				higher, highTotal.String(), lower, lowTotal.String())
		}
	})
}

// TestComputeAmounts_DefaultRateScenario checks the documented pricing example:
// 10,000 views, 200 engagements and $100 subscription revenue at default rates
// earn $10.00 + $2.00 + $70.00 = $82.00.
func TestComputeAmounts_DefaultRateScenario(t *testing.T) {
	counts := SourceCounts{
		Views:               10000,
		Engagements:         200,
		SubscriptionRevenue: decimal.NewFromInt(100),
	}

	amounts := ComputeAmounts(counts, rates.DefaultRates())

	checks := []struct {
		name     string
		got      decimal.Decimal
		expected string
	}{
		{"views", amounts.Views, "10"},
		{"engagements", amounts.Engagements, "2"},
		{"subscriptions", amounts.Subscriptions, "70"},
		{"ad_impressions", amounts.AdImpressions, "0"},
		{"ad_clicks", amounts.AdClicks, "0"},
		{"total", amounts.Total, "82"},
	}
	for _, check := range checks {
		expected, _ := decimal.NewFromString(check.expected)
		if !check.got.Equal(expected) {
			t.Errorf("%s amount = $%s, expected $%s", check.name, check.got.String(), expected.String())
		}
	}
}

// ============================================
// Property Tests for Window Selection
// ============================================

// TestProperty_NextWindowStart_StrictlyFollowsByOneDay tests window continuity
// *For any* finalized period end date, the next window SHALL start exactly one day later.
func TestProperty_NextWindowStart_StrictlyFollowsByOneDay(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
		end := base.AddDate(0, 0, rapid.IntRange(0, 3650).Draw(rt, "dayOffset"))

		start := NextWindowStart(end)

		if got := start.Sub(end); got != 24*time.Hour {
			t.Fatalf("PROPERTY VIOLATION: Next window start should follow period end by exactly one day, got %v", got)
		}
		if !start.After(end) {
			t.Fatalf("PROPERTY VIOLATION: Next window start (%v) should be strictly after period end (%v)", start, end)
		}
	})
}

// TestNextWindowStart_MonthBoundary pins the documented month rollover:
// a period ending 2024-01-31 is followed by a window starting 2024-02-01.
func TestNextWindowStart_MonthBoundary(t *testing.T) {
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	start := NextWindowStart(end)

	expected := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	if !start.Equal(expected) {
		t.Fatalf("Window after period ending %v should start %v, got %v", end, expected, start)
	}
}

// ============================================
// Property Tests for the Balance Ledger
// ============================================

// TestProperty_AvailableBalance_NeverNegative tests the zero floor
// *For any* finalized and committed totals, the available balance SHALL be >= 0.
func TestProperty_AvailableBalance_NeverNegative(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		finalized := decimal.NewFromFloat(rapid.Float64Range(0, 100000.0).Draw(rt, "finalized")).Round(2)
		committed := decimal.NewFromFloat(rapid.Float64Range(0, 200000.0).Draw(rt, "committed")).Round(2)

		available := AvailableFrom(finalized, committed)

		if available.LessThan(decimal.Zero) {
			t.Fatalf("PROPERTY VIOLATION: Available balance should never be negative, got $%s (finalized $%s, committed $%s)",
				available.String(), finalized.String(), committed.String())
		}
	})
}

// TestProperty_AvailableBalance_ExactWhenSolvent tests the uncapped case
// *For any* finalized total >= committed total, the balance SHALL equal their difference.
func TestProperty_AvailableBalance_ExactWhenSolvent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		committed := decimal.NewFromFloat(rapid.Float64Range(0, 50000.0).Draw(rt, "committed")).Round(2)
		extra := decimal.NewFromFloat(rapid.Float64Range(0, 50000.0).Draw(rt, "extra")).Round(2)
		finalized := committed.Add(extra)

		available := AvailableFrom(finalized, committed)

		if !available.Equal(extra) {
			t.Fatalf("PROPERTY VIOLATION: Available balance ($%s) should equal finalized - committed ($%s)",
				available.String(), extra.String())
		}
	})
}
