package nats

import "github.com/nats-io/nats.go"

// Bus publishes charge events as plain NATS messages. Delivery is at most
// once; the journal is an audit trail, not the source of balances.
type Bus struct {
	nc *nats.Conn
}

func NewBus(nc *nats.Conn) *Bus {
	return &Bus{nc: nc}
}

func (b *Bus) Publish(topic string, data []byte) error {
	return b.nc.Publish(topic, data)
}
