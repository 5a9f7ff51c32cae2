// Package events defines the plan event types and the bus that fans
// them out to observers such as UI clients.
//
// Publishing is non-blocking: each subscriber owns a buffered channel,
// and events are dropped per-subscriber when a buffer is full. Events
// for a single session are published while the plan manager holds that
// session's state lock, so the order in which they enter a subscriber's
// channel matches the order of the underlying state transitions.
package events
