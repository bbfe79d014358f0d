// Package transport carries operations from one producer to one consumer.
//
// A transport is an unbounded FIFO split into two halves. The engine holds
// the Producer, the renderer holds the Receiver, and neither touches the
// other's state except through the queue.
//
// Delivery contract:
//   - Order is preserved end to end; nothing is reordered or duplicated.
//   - Send never blocks. If the Receiver was dropped or the Producer was
//     closed, Send reports protocol.DeliverySkipped and the caller carries on.
//   - The queue is unbounded. A stalled consumer lets operations accumulate
//     without limit, which is acceptable for bounded-length sorts; hosts
//     that accept unbounded input must cap it themselves.
package transport
