// Package queue defines the domain events published to the message broker
// and the consumer that records them in the activity log.
package queue

import "time"

// Event types.  NATS publishes each on subject "tasks.<type>"; RabbitMQ
// routes all of them to the TaskEventsQueue.
const (
	UserRegistered = "user.registered"
	TaskCreated    = "task.created"
	TaskUpdated    = "task.updated"
	TaskDeleted    = "task.deleted"
)

// TaskEventsQueue is the durable RabbitMQ queue carrying every event.
const TaskEventsQueue = "task.events"

// Event is published after a successful write.  It carries enough context
// for downstream consumers to log or notify without querying the database.
type Event struct {
	Type       string `json:"type"`
	UserID     uint64 `json:"user_id"`
	Email      string `json:"email,omitempty"`
	TaskID     uint64 `json:"task_id,omitempty"`
	Title      string `json:"title,omitempty"`
	Status     string `json:"status,omitempty"`
	OccurredAt string `json:"occurred_at"`
}

// Stamp sets OccurredAt to now in RFC 3339 UTC unless already set.
func (e Event) Stamp() Event {
	if e.OccurredAt == "" {
		e.OccurredAt = time.Now().UTC().Format(time.RFC3339)
	}
	return e
}
