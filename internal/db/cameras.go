package db

import (
	"fmt"

	"github.com/cinvymoe/ai-system-sub001/internal/camera"
)

// ListEnabledAngleRanges returns every enabled angle range with its bound
// camera IDs. This is the read side of the mapper's configuration source.
func (db *DB) ListEnabledAngleRanges() ([]camera.AngleRange, error) {
	rows, err := db.Query(`
		SELECT id, name, min_angle, max_angle
		FROM angle_ranges
		WHERE enabled = 1
		ORDER BY min_angle ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query angle ranges: %w", err)
	}
	defer rows.Close()

	var ranges []camera.AngleRange
	for rows.Next() {
		r := camera.AngleRange{Enabled: true}
		if err := rows.Scan(&r.ID, &r.Name, &r.MinAngle, &r.MaxAngle); err != nil {
			return nil, fmt.Errorf("failed to scan angle range: %w", err)
		}
		ranges = append(ranges, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating angle ranges: %w", err)
	}

	for i := range ranges {
		ids, err := db.rangeCameraIDs(ranges[i].ID)
		if err != nil {
			return nil, err
		}
		ranges[i].CameraIDs = ids
	}
	return ranges, nil
}

func (db *DB) rangeCameraIDs(rangeID int64) ([]string, error) {
	rows, err := db.Query(`
		SELECT camera_id FROM range_cameras
		WHERE range_id = ?
		ORDER BY camera_id ASC
	`, rangeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query range cameras: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan range camera: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListEnabledCameras returns the enabled cameras with their direction
// bindings.
func (db *DB) ListEnabledCameras() ([]camera.Camera, error) {
	rows, err := db.Query(`
		SELECT id, name FROM cameras
		WHERE enabled = 1
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cameras: %w", err)
	}
	defer rows.Close()

	var cameras []camera.Camera
	for rows.Next() {
		var cam camera.Camera
		if err := rows.Scan(&cam.ID, &cam.Name); err != nil {
			return nil, fmt.Errorf("failed to scan camera: %w", err)
		}
		cameras = append(cameras, cam)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cameras: %w", err)
	}

	for i := range cameras {
		rows, err := db.Query(`
			SELECT direction FROM camera_directions
			WHERE camera_id = ?
			ORDER BY direction ASC
		`, cameras[i].ID)
		if err != nil {
			return nil, fmt.Errorf("failed to query camera directions: %w", err)
		}
		for rows.Next() {
			var direction string
			if err := rows.Scan(&direction); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan camera direction: %w", err)
			}
			cameras[i].Directions = append(cameras[i].Directions, camera.Direction(direction))
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("error iterating camera directions: %w", err)
		}
		rows.Close()
	}
	return cameras, nil
}

// UpsertCamera inserts or replaces a camera and its direction bindings.
// Directions are validated before anything is written.
func (db *DB) UpsertCamera(cam camera.Camera) error {
	for _, d := range cam.Directions {
		if _, err := camera.ParseDirection(string(d)); err != nil {
			return err
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO cameras (id, name, enabled) VALUES (?, ?, 1)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, enabled = 1
	`, cam.ID, cam.Name); err != nil {
		return fmt.Errorf("failed to upsert camera: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM camera_directions WHERE camera_id = ?`, cam.ID); err != nil {
		return fmt.Errorf("failed to clear camera directions: %w", err)
	}
	for _, d := range cam.Directions {
		if _, err := tx.Exec(`
			INSERT INTO camera_directions (camera_id, direction) VALUES (?, ?)
		`, cam.ID, string(d)); err != nil {
			return fmt.Errorf("failed to insert camera direction: %w", err)
		}
	}
	return tx.Commit()
}

// InsertAngleRange validates and stores an angle range with its camera
// bindings, returning the new range ID.
func (db *DB) InsertAngleRange(r camera.AngleRange) (int64, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	enabled := 0
	if r.Enabled {
		enabled = 1
	}
	res, err := tx.Exec(`
		INSERT INTO angle_ranges (name, min_angle, max_angle, enabled)
		VALUES (?, ?, ?, ?)
	`, r.Name, r.MinAngle, r.MaxAngle, enabled)
	if err != nil {
		return 0, fmt.Errorf("failed to insert angle range: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read angle range id: %w", err)
	}
	for _, cameraID := range r.CameraIDs {
		if _, err := tx.Exec(`
			INSERT INTO range_cameras (range_id, camera_id) VALUES (?, ?)
		`, id, cameraID); err != nil {
			return 0, fmt.Errorf("failed to bind camera %s to range: %w", cameraID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// SetAngleRangeEnabled flips a range without touching its camera bindings.
func (db *DB) SetAngleRangeEnabled(id int64, enabled bool) error {
	value := 0
	if enabled {
		value = 1
	}
	res, err := db.Exec(`UPDATE angle_ranges SET enabled = ? WHERE id = ?`, value, id)
	if err != nil {
		return fmt.Errorf("failed to update angle range: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("angle range not found: %d", id)
	}
	return nil
}
