package scheduler

import (
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/playmix/creatorpay/internal/models"
)

// ============================================
// Calendar window computation
// ============================================

func TestLastCalendarMonth(t *testing.T) {
	cases := []struct {
		now           time.Time
		expectedStart time.Time
		expectedEnd   time.Time
	}{
		{
			time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
			time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			time.Date(2023, 3, 31, 23, 59, 0, 0, time.UTC),
			time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, c := range cases {
		start, end := LastCalendarMonth(c.now)
		if !start.Equal(c.expectedStart) || !end.Equal(c.expectedEnd) {
			t.Errorf("LastCalendarMonth(%v) = [%v, %v], expected [%v, %v]",
				c.now, start, end, c.expectedStart, c.expectedEnd)
		}
	}
}

// TestProperty_LastCalendarMonth_CoversWholeMonth tests window shape
// *For any* date, the computed window SHALL start on day 1 and end on the
// last day of the previous month.
func TestProperty_LastCalendarMonth_CoversWholeMonth(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
		now := base.AddDate(0, 0, rapid.IntRange(0, 3650).Draw(rt, "dayOffset"))

		start, end := LastCalendarMonth(now)

		if start.Day() != 1 {
			t.Fatalf("PROPERTY VIOLATION: Window start %v is not the first of a month", start)
		}
		if end.AddDate(0, 0, 1).Day() != 1 {
			t.Fatalf("PROPERTY VIOLATION: Window end %v is not the last day of a month", end)
		}
		if !end.After(start) {
			t.Fatalf("PROPERTY VIOLATION: Window end %v should follow start %v", end, start)
		}
		if start.Month() == now.Month() && start.Year() == now.Year() {
			t.Fatalf("PROPERTY VIOLATION: Window %v should be in the month before %v", start, now)
		}
	})
}

// ============================================
// Payout schedule evaluation
// ============================================

func TestPayoutDue_Monthly(t *testing.T) {
	day15 := time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC)

	if !PayoutDue(models.PayoutFrequencyMonthly, 15, day15) {
		t.Error("Monthly payout on day 15 should be due on the 15th")
	}
	if PayoutDue(models.PayoutFrequencyMonthly, 1, day15) {
		t.Error("Monthly payout on day 1 should not be due on the 15th")
	}
}

func TestPayoutDue_Weekly(t *testing.T) {
	// 2024-05-13 is a Monday
	monday := time.Date(2024, 5, 13, 9, 0, 0, 0, time.UTC)

	if !PayoutDue(models.PayoutFrequencyWeekly, int(time.Monday), monday) {
		t.Error("Weekly Monday payout should be due on a Monday")
	}
	if PayoutDue(models.PayoutFrequencyWeekly, int(time.Friday), monday) {
		t.Error("Weekly Friday payout should not be due on a Monday")
	}
}

func TestPayoutDue_Biweekly(t *testing.T) {
	// 2024-05-06 is a Monday in the first week of May (even parity),
	// 2024-05-13 is a Monday in the second week (odd parity).
	evenWeekMonday := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)
	oddWeekMonday := time.Date(2024, 5, 13, 9, 0, 0, 0, time.UTC)

	if !PayoutDue(models.PayoutFrequencyBiweekly, int(time.Monday), evenWeekMonday) {
		t.Error("Biweekly Monday payout should fire on an even week Monday")
	}
	if PayoutDue(models.PayoutFrequencyBiweekly, int(time.Monday), oddWeekMonday) {
		t.Error("Biweekly Monday payout should not fire on an odd week Monday")
	}
}

func TestPayoutDue_UnknownFrequency(t *testing.T) {
	if PayoutDue(models.PayoutFrequency("daily"), 1, time.Now()) {
		t.Error("Unknown frequency should never be due")
	}
}

// TestProperty_PayoutDue_WeekdayMismatchNeverFires tests the weekday gate
// *For any* weekly or biweekly schedule, a day whose weekday differs from
// the configured payout day SHALL never be due.
func TestProperty_PayoutDue_WeekdayMismatchNeverFires(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
		now := base.AddDate(0, 0, rapid.IntRange(0, 3650).Draw(rt, "dayOffset"))
		payoutDay := rapid.IntRange(0, 6).Draw(rt, "payoutDay")

		if int(now.Weekday()) == payoutDay {
			return
		}

		for _, frequency := range []models.PayoutFrequency{
			models.PayoutFrequencyWeekly,
			models.PayoutFrequencyBiweekly,
		} {
			if PayoutDue(frequency, payoutDay, now) {
				t.Fatalf("PROPERTY VIOLATION: %s schedule for weekday %d fired on %v (%v)",
					frequency, payoutDay, now, now.Weekday())
			}
		}
	})
}

// TestProperty_PayoutDue_MonthlyFiresOnceAMonth tests monthly cadence
// *For any* month and valid payout day, the monthly schedule SHALL be due
// on exactly one day of that month.
func TestProperty_PayoutDue_MonthlyFiresOnceAMonth(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		year := rapid.IntRange(2020, 2030).Draw(rt, "year")
		month := time.Month(rapid.IntRange(1, 12).Draw(rt, "month"))
		payoutDay := rapid.IntRange(1, 28).Draw(rt, "payoutDay")

		dueDays := 0
		for day := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC); day.Month() == month; day = day.AddDate(0, 0, 1) {
			if PayoutDue(models.PayoutFrequencyMonthly, payoutDay, day) {
				dueDays++
			}
		}

		if dueDays != 1 {
			t.Fatalf("PROPERTY VIOLATION: Monthly schedule for day %d fired %d times in %v %d",
				payoutDay, dueDays, month, year)
		}
	})
}
