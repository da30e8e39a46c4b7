// Package events re-exports the platform event bus for convenience.
// Internal modules import events from here while the implementation lives in
// platform/events.
package events

import (
	platformevents "leadflow_backend/platform/events"
	"leadflow_backend/platform/logger"
)

// InMemoryBus is a type alias to the platform InMemoryBus
type InMemoryBus = platformevents.InMemoryBus

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return platformevents.NewInMemoryBus(log)
}
