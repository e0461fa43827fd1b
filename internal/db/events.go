package db

import (
	"fmt"

	"github.com/cinvymoe/ai-system-sub001/internal/pipeline"
)

// StoreEvent persists one finalized domain event. Failures are recoverable:
// the caller logs and keeps processing, it never aborts the pipeline.
func (db *DB) StoreEvent(event pipeline.Event) error {
	switch event.Type {
	case pipeline.EventTypeAngle:
		angle, ok := event.Payload["angle"].(float64)
		if !ok {
			return fmt.Errorf("angle event missing numeric angle payload")
		}
		if _, err := db.Exec(`
			INSERT INTO angle_events (angle, timestamp) VALUES (?, ?)
		`, angle, event.Timestamp.UTC()); err != nil {
			return fmt.Errorf("failed to record angle event: %w", err)
		}
		return nil

	case pipeline.EventTypeDirection:
		command, ok := event.Payload["command"].(string)
		if !ok {
			return fmt.Errorf("direction event missing command payload")
		}
		intensity, ok := event.Payload["intensity"].(float64)
		if !ok {
			return fmt.Errorf("direction event missing numeric intensity payload")
		}
		if _, err := db.Exec(`
			INSERT INTO direction_events (command, intensity, timestamp) VALUES (?, ?, ?)
		`, command, intensity, event.Timestamp.UTC()); err != nil {
			return fmt.Errorf("failed to record direction event: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("unknown event type %q", event.Type)
	}
}

// CountEvents returns how many events of each kind have been stored. Used by
// tests and the startup log line.
func (db *DB) CountEvents() (angles int64, directions int64, err error) {
	if err = db.QueryRow(`SELECT COUNT(*) FROM angle_events`).Scan(&angles); err != nil {
		return 0, 0, fmt.Errorf("failed to count angle events: %w", err)
	}
	if err = db.QueryRow(`SELECT COUNT(*) FROM direction_events`).Scan(&directions); err != nil {
		return 0, 0, fmt.Errorf("failed to count direction events: %w", err)
	}
	return angles, directions, nil
}
