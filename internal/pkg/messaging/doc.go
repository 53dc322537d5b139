// Package messaging provides a broker-agnostic API for publishing and
// consuming messages.
//
// Business code depends on Publisher and Consumer only. Kafka, NATS and NSQ
// back the production drivers; the memory driver keeps everything in process
// for a single node and for tests.
//
// A handler that returns nil acknowledges the message. Any other error asks
// the broker to redeliver, unless it wraps ErrDrop, in which case the message
// is acknowledged and discarded.
package messaging
