package repository

// MessageBus carries charge events to whoever keeps the journal.
type MessageBus interface {
	Publish(topic string, data []byte) error
}
