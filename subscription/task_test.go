package subscription

import (
	"testing"
	"time"
)

func TestContinueSweep(t *testing.T) {
	const batch = 100

	cases := []struct {
		name         string
		pageSize     int
		transitioned int
		want         bool
	}{
		{"partial page stops", 40, 40, false},
		{"full productive page continues", batch, batch, true},
		{"full page with partial progress continues", batch, 1, true},
		{"full page with zero progress yields until next tick", batch, 0, false},
		{"empty page stops", 0, 0, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := continueSweep(c.pageSize, batch, c.transitioned); got != c.want {
				t.Errorf("got %t, want %t", got, c.want)
			}
		})
	}
}

func TestTimersToArm(t *testing.T) {
	now := time.Date(2021, time.July, 1, 12, 0, 0, 0, time.UTC)

	t.Run("future end dates get their remaining delay", func(t *testing.T) {
		subs := []Subscription{
			{ID: "a", EndDate: now.Add(10 * time.Second)},
			{ID: "b", EndDate: now.Add(45 * time.Second)},
		}
		delays := timersToArm(subs, now, map[string]bool{})
		if len(delays) != 2 {
			t.Fatalf("got %d timers, want 2", len(delays))
		}
		if delays["a"] != 10*time.Second {
			t.Errorf("a: got %v, want 10s", delays["a"])
		}
		if delays["b"] != 45*time.Second {
			t.Errorf("b: got %v, want 45s", delays["b"])
		}
	})

	t.Run("already armed subscriptions are skipped", func(t *testing.T) {
		subs := []Subscription{
			{ID: "a", EndDate: now.Add(10 * time.Second)},
			{ID: "b", EndDate: now.Add(20 * time.Second)},
		}
		delays := timersToArm(subs, now, map[string]bool{"a": true})
		if _, ok := delays["a"]; ok {
			t.Error("a should not get a second timer")
		}
		if _, ok := delays["b"]; !ok {
			t.Error("b should get a timer")
		}
	})

	t.Run("past due fires immediately", func(t *testing.T) {
		subs := []Subscription{
			{ID: "a", EndDate: now.Add(-time.Minute)},
		}
		delays := timersToArm(subs, now, map[string]bool{})
		if delays["a"] != 0 {
			t.Errorf("got %v, want 0", delays["a"])
		}
	})
}
