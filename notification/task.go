package notification

import (
	"context"
	"fmt"

	"github.com/quayside/bazaar/spec/broker"

	extErrors "github.com/pkg/errors"
	"go.uber.org/zap"
)

// TaskOptions contains the configuration for the notification store task
type TaskOptions struct {
	NotificationManager *Manager
	Consumer            broker.Consumer
	Logger              *zap.Logger
}

// Task persists broker events so users can list their notifications later
type Task struct {
	TaskOptions
}

// NewTask returns a background task persisting notification events
func NewTask(option TaskOptions) (*Task, error) {
	if option.NotificationManager == nil {
		return nil, fmt.Errorf("nil NotificationManager is invalid")
	}
	if option.Consumer == nil {
		return nil, fmt.Errorf("nil Consumer is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	return &Task{
		TaskOptions: option,
	}, nil
}

func (t *Task) handleEvent(ctx context.Context, evt *broker.Event) {
	if evt == nil {
		t.Logger.Error("Received nil event when processing notification")
		return
	}
	n := &Notification{
		ID:        evt.ID,
		UserID:    evt.UserID,
		Role:      evt.Role,
		Kind:      evt.Kind,
		Module:    evt.Module,
		Message:   evt.Message,
		Link:      evt.Link,
		CreatedAt: evt.EmittedAt,
	}
	if err := t.NotificationManager.Create(ctx, n); err != nil {
		t.Logger.Error("Cannot persist notification event",
			zap.Error(err),
			zap.String("EventID", evt.ID),
		)
	}
}

// HandleEvents will consume notification events until ctx is cancelled
func (t *Task) HandleEvents(ctx context.Context) error {
	eChan, err := t.Consumer.ReceiveEvents(ctx)
	if err != nil {
		return extErrors.Wrap(err, "Cannot get notification event channel")
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case evt := <-eChan:
				t.handleEvent(ctx, evt)
			}
		}
	}()
	return nil
}
