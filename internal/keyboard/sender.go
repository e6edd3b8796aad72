package keyboard

import (
	"context"

	"github.com/scheerer/keyboard-indicators/internal/lights"
)

// Message asks the controller to change one LED, or every LED when All is set.
// Urgent messages shorten the batching window so they reach the device with
// little delay.
type Message struct {
	Index  uint32
	All    bool
	Color  lights.Color
	Urgent bool
}

// Sender is the producer side of a Controller. Sends block while the queue is
// full.
type Sender struct {
	ch chan<- Message
}

// NewSender wraps a channel. It is mostly useful to tests of producers.
func NewSender(ch chan<- Message) Sender {
	return Sender{ch: ch}
}

func (s Sender) Send(ctx context.Context, m Message) error {
	select {
	case s.ch <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s Sender) SetLED(ctx context.Context, index uint32, color lights.Color) error {
	return s.Send(ctx, Message{Index: index, Color: color})
}

func (s Sender) SetLEDUrgent(ctx context.Context, index uint32, color lights.Color) error {
	return s.Send(ctx, Message{Index: index, Color: color, Urgent: true})
}

func (s Sender) SetAll(ctx context.Context, color lights.Color) error {
	return s.Send(ctx, Message{All: true, Color: color})
}

func (s Sender) SetAllUrgent(ctx context.Context, color lights.Color) error {
	return s.Send(ctx, Message{All: true, Color: color, Urgent: true})
}

// SetSlots sets every valid slot of a layout to color.
func (s Sender) SetSlots(ctx context.Context, slots []Slot, color lights.Color, urgent bool) error {
	for _, slot := range slots {
		if !slot.Valid {
			continue
		}
		if err := s.Send(ctx, Message{Index: slot.LED, Color: color, Urgent: urgent}); err != nil {
			return err
		}
	}
	return nil
}
