package plan

import (
	"testing"
	"time"
)

func TestDurationAddTo(t *testing.T) {
	base := time.Date(2021, time.January, 15, 10, 30, 0, 0, time.UTC)

	t.Run("minutes", func(t *testing.T) {
		d := Duration{Value: 5, Unit: UnitMinutes}
		got := d.AddTo(base)
		want := base.Add(5 * time.Minute)
		if !got.Equal(want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("months use calendar arithmetic", func(t *testing.T) {
		d := Duration{Value: 1, Unit: UnitMonths}
		got := d.AddTo(time.Date(2021, time.January, 31, 0, 0, 0, 0, time.UTC))
		// Jan 31 + 1 month normalizes to Mar 3 in a non-leap year
		want := time.Date(2021, time.March, 3, 0, 0, 0, 0, time.UTC)
		if !got.Equal(want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("years", func(t *testing.T) {
		d := Duration{Value: 2, Unit: UnitYears}
		got := d.AddTo(base)
		want := time.Date(2023, time.January, 15, 10, 30, 0, 0, time.UTC)
		if !got.Equal(want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("unknown unit is a no-op", func(t *testing.T) {
		d := Duration{Value: 3, Unit: DurationUnit("fortnights")}
		if got := d.AddTo(base); !got.Equal(base) {
			t.Errorf("got %v, want %v", got, base)
		}
	})
}

func TestChargeAmount(t *testing.T) {
	cases := []struct {
		name     string
		price    int64
		discount int64
		want     int64
	}{
		{"no discount", 2000, 0, 2000},
		{"quarter off", 2000, 25, 1500},
		{"full discount", 2000, 100, 0},
		{"rounds down", 999, 50, 499},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p := &Plan{PriceInCents: c.price, DiscountPercent: c.discount}
			if got := p.ChargeAmount(); got != c.want {
				t.Errorf("got %d, want %d", got, c.want)
			}
		})
	}
}
