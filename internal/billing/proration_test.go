package billing

import (
	"testing"
	"time"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
}

func TestProratedChargeCutoff(t *testing.T) {
	const fee = int64(2500)

	for day := 1; day <= 15; day++ {
		if got := ProratedCharge(fee, date(2024, time.March, day)); got != fee {
			t.Fatalf("day %d: got %d, want full fee %d", day, got, fee)
		}
	}
	for day := 16; day <= 31; day++ {
		if got := ProratedCharge(fee, date(2024, time.March, day)); got != 1250 {
			t.Fatalf("day %d: got %d, want half fee 1250", day, got)
		}
	}
}

func TestProratedChargeEveryDayOfEveryMonth(t *testing.T) {
	const fee = int64(2500)

	// 2024 is a leap year, 2023 is not; walk every real day of both.
	for _, year := range []int{2023, 2024} {
		for month := time.January; month <= time.December; month++ {
			for day := 1; day <= 31; day++ {
				d := date(year, month, day)
				if d.Month() != month {
					continue // normalized past month end
				}
				want := fee
				if day > 15 {
					want = 1250
				}
				if got := ProratedCharge(fee, d); got != want {
					t.Fatalf("%s: got %d, want %d", d.Format("2006-01-02"), got, want)
				}
			}
		}
	}
}

func TestProratedChargeRoundsHalfAwayFromZero(t *testing.T) {
	tests := []struct {
		fee  int64
		want int64
	}{
		{fee: 2500, want: 1250},
		{fee: 2501, want: 1251}, // 1250.5 rounds up
		{fee: 999, want: 500},   // 499.5 rounds up
		{fee: 1, want: 1},       // 0.5 rounds up
		{fee: 0, want: 0},
	}

	after := date(2024, time.June, 20)
	for _, tt := range tests {
		if got := ProratedCharge(tt.fee, after); got != tt.want {
			t.Fatalf("ProratedCharge(%d) = %d, want %d", tt.fee, got, tt.want)
		}
	}
}
