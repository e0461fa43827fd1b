package handlers

import (
	"fmt"
	"time"

	"github.com/cinvymoe/ai-system-sub001/internal/broker"
	"github.com/cinvymoe/ai-system-sub001/internal/pipeline"
)

// EventStore is the write-only storage sink the core hands finalized events
// to. Satisfied by the SQLite layer and the discard storage variant.
type EventStore interface {
	StoreEvent(event pipeline.Event) error
}

// StorageSubscriber returns a broker callback that persists each routed
// message as a domain event. A store failure surfaces through the publish
// result's error list; it never stops delivery to other subscribers.
func StorageSubscriber(store EventStore) broker.Callback {
	return func(msg broker.Message) error {
		event := pipeline.Event{
			Type:      msg.Type,
			Payload:   msg.Payload,
			Timestamp: msg.Timestamp,
		}
		if ts, ok := msg.Payload["timestamp"].(string); ok {
			if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
				event.Timestamp = parsed
			}
		}
		if err := store.StoreEvent(event); err != nil {
			return fmt.Errorf("failed to store %s event: %w", msg.Type, err)
		}
		return nil
	}
}
