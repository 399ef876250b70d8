package broker

// Producer defines a producer publishing notification events via message broker
type Producer interface {
	Close()
	PublishEvent(e *Event) error
}
