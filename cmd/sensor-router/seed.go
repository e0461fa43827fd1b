package main

import (
	"fmt"

	"github.com/cinvymoe/ai-system-sub001/internal/camera"
	"github.com/cinvymoe/ai-system-sub001/internal/db"
)

// seedDefaults installs a starter camera layout the first time the database
// is used: four cameras on the compass quadrants, with deliberately
// overlapping angle ranges at the seams so coverage is additive.
func seedDefaults(database *db.DB) error {
	existing, err := database.ListEnabledCameras()
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	cams := []camera.Camera{
		{ID: "cam-front", Name: "Front", Directions: []camera.Direction{camera.DirectionForward, camera.DirectionStationary}},
		{ID: "cam-rear", Name: "Rear", Directions: []camera.Direction{camera.DirectionBackward}},
		{ID: "cam-left", Name: "Left", Directions: []camera.Direction{camera.DirectionTurnLeft}},
		{ID: "cam-right", Name: "Right", Directions: []camera.Direction{camera.DirectionTurnRight}},
	}
	for _, cam := range cams {
		if err := database.UpsertCamera(cam); err != nil {
			return fmt.Errorf("failed to seed camera %s: %w", cam.ID, err)
		}
	}

	ranges := []camera.AngleRange{
		{Name: "north", MinAngle: 315, MaxAngle: 360, Enabled: true, CameraIDs: []string{"cam-front"}},
		{Name: "north-east", MinAngle: 0, MaxAngle: 60, Enabled: true, CameraIDs: []string{"cam-front", "cam-right"}},
		{Name: "east", MinAngle: 45, MaxAngle: 135, Enabled: true, CameraIDs: []string{"cam-right"}},
		{Name: "south", MinAngle: 120, MaxAngle: 240, Enabled: true, CameraIDs: []string{"cam-rear"}},
		{Name: "west", MinAngle: 225, MaxAngle: 330, Enabled: true, CameraIDs: []string{"cam-left"}},
	}
	for _, r := range ranges {
		if _, err := database.InsertAngleRange(r); err != nil {
			return fmt.Errorf("failed to seed angle range %s: %w", r.Name, err)
		}
	}
	return nil
}
