package handlers

import (
	"fmt"

	"github.com/cinvymoe/ai-system-sub001/internal/broker"
	"github.com/cinvymoe/ai-system-sub001/internal/camera"
	"github.com/cinvymoe/ai-system-sub001/internal/monitoring"
)

// CameraController is the external collaborator that actually activates
// cameras (the RTSP/streaming side, out of scope here). It receives the
// resolved set on every routed event.
type CameraController interface {
	SetActiveCameras(ids []string) error
}

// Switcher resolves routed events through the camera mapper and forwards
// the resulting camera set to the controller.
type Switcher struct {
	mapper     *camera.Mapper
	controller CameraController
}

// NewSwitcher wires a mapper to a controller.
func NewSwitcher(mapper *camera.Mapper, controller CameraController) *Switcher {
	return &Switcher{mapper: mapper, controller: controller}
}

// HandleAngle is the broker callback for angle_value messages: resolve the
// heading against the configured angle ranges and activate the union.
func (s *Switcher) HandleAngle(msg broker.Message) error {
	angle, ok := payloadFloat(msg.Payload, "angle")
	if !ok {
		return fmt.Errorf("angle message missing numeric angle field")
	}
	ids, err := s.mapper.ResolveAngle(angle)
	if err != nil {
		return err
	}
	monitoring.Logf("switcher: angle %.1f resolved to cameras %v", angle, ids)
	return s.controller.SetActiveCameras(ids)
}

// HandleDirection is the broker callback for direction_result messages.
func (s *Switcher) HandleDirection(msg broker.Message) error {
	cmd, err := DecodeDirectionCommand(msg.Payload)
	if err != nil {
		return err
	}
	ids, err := s.mapper.ResolveDirection(cmd)
	if err != nil {
		return err
	}
	monitoring.Logf("switcher: direction %s resolved to cameras %v", cmd.Command, ids)
	return s.controller.SetActiveCameras(ids)
}
