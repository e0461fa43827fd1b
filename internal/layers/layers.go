// Package layers assembles the collection, processing, and storage layers
// from configuration. The three implementations are chosen together through
// a single factory entry point so an incompatible combination can never be
// constructed.
package layers

import (
	"context"

	"github.com/cinvymoe/ai-system-sub001/internal/imu"
	"github.com/cinvymoe/ai-system-sub001/internal/pipeline"
)

// CollectionManager is the device-facing layer: it owns the connection and
// produces the reading stream.
type CollectionManager interface {
	// Connect opens the device; failures are returned for the caller to
	// retry.
	Connect() error
	// Stream returns the restartable sequence of parsed readings. It fails
	// fast when the manager is not connected.
	Stream(ctx context.Context) (<-chan imu.Reading, error)
	// Disconnect releases the device; safe to call more than once.
	Disconnect() error
}

// ProcessingManager turns one reading into zero or one finalized event.
type ProcessingManager interface {
	// Process runs the reading through the configured pipeline. A nil event
	// with nil error means a stage dropped the reading.
	Process(reading imu.Reading) (*pipeline.Event, error)
	// StageNames lists the configured stages in execution order.
	StageNames() []string
}

// StorageManager is the write-only sink for finalized events.
type StorageManager interface {
	StoreEvent(event pipeline.Event) error
	Close() error
}

// Set is one compatible triple of layer implementations.
type Set struct {
	Collection CollectionManager
	Processing ProcessingManager
	Storage    StorageManager
}

// Close releases the collection and storage resources. Processing holds no
// long-lived state beyond its stages.
func (s *Set) Close() error {
	err := s.Collection.Disconnect()
	if cerr := s.Storage.Close(); err == nil {
		err = cerr
	}
	return err
}
