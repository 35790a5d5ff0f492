// Package progress delivers progress events to external sinks without
// blocking the executions that produce them.
//
// A Dispatcher owns a bounded queue and a single worker goroutine, so events
// reach every sink in the order they were published. When the queue is full
// new events are dropped and logged. Each delivery is bounded by a timeout.
package progress
