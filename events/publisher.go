package events

import "context"

// BusPublisher adapts Bus to the fire-and-forget publisher used outside
// a unit of work, e.g. for batch-level settlement notifications.
type BusPublisher struct {
	bus *Bus
}

// NewBusPublisher creates a publisher over the given bus
func NewBusPublisher(bus *Bus) *BusPublisher {
	return &BusPublisher{bus: bus}
}

// Publish emits the event immediately
func (p *BusPublisher) Publish(e Event) {
	p.bus.Emit(context.Background(), e)
}
