package subscription

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/quayside/bazaar/spec"

	"go.uber.org/zap"
)

// TaskOptions contains the configuration for the expiration scheduler
type TaskOptions struct {
	SubscriptionManager *Manager
	Logger              *zap.Logger
	// Interval between sweeps; also the lookahead for just-in-time timers
	Interval time.Duration
}

// Task expires subscriptions with two complementary mechanisms: a periodic
// sweep that catches anything past due (including subscriptions that lapsed
// while the process was down), and per-subscription timers armed for end
// dates landing inside the next sweep interval so that short-lived plans
// expire close to their actual deadline. Expire re-checks state under a row
// lock, so the two firing for the same subscription is harmless.
type Task struct {
	TaskOptions

	mu    sync.Mutex
	armed map[string]bool
}

// NewTask returns a background task expiring due subscriptions
func NewTask(option TaskOptions) (*Task, error) {
	if option.SubscriptionManager == nil {
		return nil, fmt.Errorf("nil SubscriptionManager is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	if option.Interval == 0 {
		option.Interval = spec.SweepInterval
	}
	return &Task{
		TaskOptions: option,
		armed:       make(map[string]bool),
	}, nil
}

// timersToArm returns the delay until expiry for each subscription not
// already carrying a timer. Past-due end dates get a zero delay so the timer
// fires immediately.
func timersToArm(subs []Subscription, now time.Time, armed map[string]bool) map[string]time.Duration {
	delays := make(map[string]time.Duration)
	for _, sub := range subs {
		if armed[sub.ID] {
			continue
		}
		delay := sub.EndDate.Sub(now)
		if delay < 0 {
			delay = 0
		}
		delays[sub.ID] = delay
	}
	return delays
}

func (t *Task) expire(ctx context.Context, subscriptionID string) bool {
	expired, err := t.SubscriptionManager.Expire(ctx, subscriptionID)
	if err != nil {
		t.Logger.Error("Unable to expire subscription",
			zap.Error(err),
			zap.String("SubscriptionID", subscriptionID),
		)
	}
	return expired
}

// continueSweep reports whether the sweep should fetch another page. A full
// page with zero successful transitions would come back unchanged on the next
// query, so the sweep yields until the next tick instead of spinning.
func continueSweep(pageSize, batchSize, transitioned int) bool {
	return pageSize == batchSize && transitioned > 0
}

// sweep expires everything past due, in bounded batches so a large backlog
// after downtime cannot hold a single query open for long
func (t *Task) sweep(ctx context.Context) {
	for {
		due, err := t.SubscriptionManager.ListDue(ctx, time.Now(), spec.SweepBatchSize)
		if err != nil {
			t.Logger.Error("Unable to list due subscriptions",
				zap.Error(err),
			)
			return
		}
		transitioned := 0
		for _, sub := range due {
			if t.expire(ctx, sub.ID) {
				transitioned++
			}
		}
		if !continueSweep(len(due), spec.SweepBatchSize, transitioned) {
			return
		}
	}
}

// armTimers schedules just-in-time expirations for subscriptions ending
// before the next sweep
func (t *Task) armTimers(ctx context.Context) {
	now := time.Now()
	expiring, err := t.SubscriptionManager.ListExpiringWithin(ctx, now, t.Interval)
	if err != nil {
		t.Logger.Error("Unable to list expiring subscriptions",
			zap.Error(err),
		)
		return
	}

	t.mu.Lock()
	delays := timersToArm(expiring, now, t.armed)
	for id := range delays {
		t.armed[id] = true
	}
	t.mu.Unlock()

	for id, delay := range delays {
		subscriptionID := id
		time.AfterFunc(delay, func() {
			t.expire(ctx, subscriptionID)
			t.mu.Lock()
			delete(t.armed, subscriptionID)
			t.mu.Unlock()
		})
	}
}

// Start runs the scheduler until ctx is cancelled
func (t *Task) Start(ctx context.Context) error {
	go func() {
		t.sweep(ctx)
		t.armTimers(ctx)

		ticker := time.NewTicker(t.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.sweep(ctx)
				t.armTimers(ctx)
			}
		}
	}()
	return nil
}
