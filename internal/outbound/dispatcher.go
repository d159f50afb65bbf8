package outbound

import (
	"context"
	"log"
)

// Sender delivers one message to a destination channel.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// Dispatcher is the single consumer of the outbound queue. Delivery is
// best-effort and at-most-once: unknown channels are dropped with a warning,
// sender failures are logged and the loop continues. Messages still queued
// when the context is cancelled are discarded.
type Dispatcher struct {
	queue   *Queue
	senders map[string]Sender
}

func NewDispatcher(queue *Queue, senders map[string]Sender) *Dispatcher {
	if senders == nil {
		senders = map[string]Sender{}
	}
	return &Dispatcher{queue: queue, senders: senders}
}

func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		m, err := d.queue.Pop(ctx)
		if err != nil {
			return err
		}
		sender, ok := d.senders[m.Channel]
		if !ok {
			log.Printf("outbound: no sender for channel %q, dropping message for %s", m.Channel, m.ChatID)
			continue
		}
		if err := sender.Send(ctx, m); err != nil {
			log.Printf("outbound: deliver to %s/%s failed: %v", m.Channel, m.ChatID, err)
		}
	}
}
