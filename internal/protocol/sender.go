package protocol

// Delivery is the outcome of handing one operation to a transport.
//
// Delivery is best effort: a skipped delivery never aborts or alters the
// algorithm, but it is reported so the engine can count it.
type Delivery int

const (
	// Delivered means the operation was queued for the consumer.
	Delivered Delivery = iota
	// DeliverySkipped means no consumer will ever see the operation, because
	// the receiving half was dropped or the stream was already closed.
	DeliverySkipped
)

func (d Delivery) String() string {
	switch d {
	case Delivered:
		return "delivered"
	case DeliverySkipped:
		return "delivery_skipped"
	default:
		return "unknown"
	}
}

// Sender is the producer half of an operation transport.
//
// Send must not block and must preserve submission order.
type Sender interface {
	Send(op Operation) Delivery
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(op Operation) Delivery

// Send calls f(op).
func (f SenderFunc) Send(op Operation) Delivery {
	return f(op)
}

// Discard is a Sender that skips every operation.
var Discard Sender = SenderFunc(func(Operation) Delivery { return DeliverySkipped })
