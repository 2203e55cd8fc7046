package rates

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/playmix/creatorpay/internal/models"
)

// TestDefaultRates_ExactValues pins the fallback rate table used when no
// active rows are configured.
func TestDefaultRates_ExactValues(t *testing.T) {
	expected := map[models.RateType]string{
		models.RateTypeView:         "0.001",
		models.RateTypeEngagement:   "0.01",
		models.RateTypeSubscription: "0.7",
		models.RateTypeAdImpression: "0.001",
		models.RateTypeAdClick:      "0.1",
	}

	snapshot := DefaultRates()

	if len(snapshot) != len(expected) {
		t.Fatalf("Default snapshot has %d entries, expected %d", len(snapshot), len(expected))
	}
	for rateType, want := range expected {
		wantDec, _ := decimal.NewFromString(want)
		got, ok := snapshot[rateType]
		if !ok {
			t.Errorf("Default snapshot missing rate type %q", rateType)
			continue
		}
		if !got.Equal(wantDec) {
			t.Errorf("Default rate for %q = %s, expected %s", rateType, got.String(), wantDec.String())
		}
	}
}

// TestDefaultRates_ReturnsCopy verifies callers cannot mutate the shared defaults
func TestDefaultRates_ReturnsCopy(t *testing.T) {
	first := DefaultRates()
	first[models.RateTypeView] = decimal.NewFromInt(999)

	second := DefaultRates()
	if !second[models.RateTypeView].Equal(decimal.NewFromFloat(0.001)) {
		t.Fatal("Mutating a returned snapshot leaked into the shared defaults")
	}
}

func TestRateType_Valid(t *testing.T) {
	for _, rateType := range models.AllRateTypes {
		if !rateType.Valid() {
			t.Errorf("Rate type %q should be valid", rateType)
		}
	}
	if models.RateType("tip").Valid() {
		t.Error("Unknown rate type should not be valid")
	}
}
