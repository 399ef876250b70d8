package notification

import (
	"fmt"
	"time"

	"github.com/quayside/bazaar/spec/broker"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Sink publishes fire-and-forget notification events. Publish failures are
// logged and swallowed; state transitions never fail because a notification
// could not be delivered.
type Sink struct {
	Producer broker.Producer
	Logger   *zap.Logger
}

// NewSink returns a notification sink backed by the message broker
func NewSink(producer broker.Producer, logger *zap.Logger) (*Sink, error) {
	if producer == nil {
		return nil, fmt.Errorf("nil Producer is invalid")
	}
	if logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	return &Sink{
		Producer: producer,
		Logger:   logger,
	}, nil
}

// Notify emits a notification event for the given user
func (s *Sink) Notify(userID, role, kind, module, message, link string) {
	evt := &broker.Event{
		ID:        uuid.New().String(),
		UserID:    userID,
		Role:      role,
		Kind:      kind,
		Module:    module,
		Message:   message,
		Link:      link,
		EmittedAt: time.Now(),
	}
	if err := s.Producer.PublishEvent(evt); err != nil {
		s.Logger.Error("Unable to publish notification event",
			zap.Error(err),
			zap.String("UserID", userID),
		)
	}
}
