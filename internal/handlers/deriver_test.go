package handlers

import (
	"testing"

	"github.com/cinvymoe/ai-system-sub001/internal/broker"
	"github.com/cinvymoe/ai-system-sub001/internal/pipeline"
)

// routedBroker builds a broker with both message types registered, returning
// the direction payloads that reach a capture subscriber.
func routedBroker(t *testing.T) (*broker.Broker, *[]map[string]any) {
	t.Helper()
	hub := broker.New()
	if err := hub.RegisterMessageType(pipeline.EventTypeAngle, AngleHandler()); err != nil {
		t.Fatal(err)
	}
	if err := hub.RegisterMessageType(pipeline.EventTypeDirection, DirectionHandler()); err != nil {
		t.Fatal(err)
	}
	var captured []map[string]any
	if _, err := hub.Subscribe(pipeline.EventTypeDirection, func(msg broker.Message) error {
		captured = append(captured, msg.Payload)
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	return hub, &captured
}

func publishAngle(t *testing.T, hub *broker.Broker, angle float64) {
	t.Helper()
	result := hub.Publish(pipeline.EventTypeAngle, map[string]any{"angle": angle})
	if !result.Success {
		t.Fatalf("angle publish failed: %+v", result)
	}
	for _, err := range result.Errors {
		t.Fatalf("subscriber error: %v", err)
	}
}

func subscribeDeriver(t *testing.T, hub *broker.Broker, threshold float64) {
	t.Helper()
	deriver, err := NewDirectionDeriver(hub, threshold)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := hub.Subscribe(pipeline.EventTypeAngle, deriver.HandleAngle); err != nil {
		t.Fatal(err)
	}
}

func TestDeriverFirstAngleEmitsNothing(t *testing.T) {
	hub, captured := routedBroker(t)
	subscribeDeriver(t, hub, 3)

	publishAngle(t, hub, 100)
	if len(*captured) != 0 {
		t.Errorf("first angle must not produce a direction, got %v", *captured)
	}
}

func TestDeriverTurnRight(t *testing.T) {
	hub, captured := routedBroker(t)
	subscribeDeriver(t, hub, 3)

	publishAngle(t, hub, 100)
	publishAngle(t, hub, 145)

	if len(*captured) != 1 {
		t.Fatalf("expected one direction, got %v", *captured)
	}
	payload := (*captured)[0]
	if payload["command"] != "turn_right" {
		t.Errorf("command = %v, want turn_right", payload["command"])
	}
	if got := payload["intensity"].(float64); got != 0.5 {
		t.Errorf("intensity = %v, want 0.5 (45 degrees over a quarter turn)", got)
	}
}

func TestDeriverTurnLeftAcrossWrap(t *testing.T) {
	hub, captured := routedBroker(t)
	subscribeDeriver(t, hub, 3)

	publishAngle(t, hub, 5)
	publishAngle(t, hub, 350) // 15 degrees counter-clockwise, not 345 clockwise

	if len(*captured) != 1 {
		t.Fatalf("expected one direction, got %v", *captured)
	}
	payload := (*captured)[0]
	if payload["command"] != "turn_left" {
		t.Errorf("command = %v, want turn_left", payload["command"])
	}
}

func TestDeriverStationaryInsideThreshold(t *testing.T) {
	hub, captured := routedBroker(t)
	subscribeDeriver(t, hub, 3)

	publishAngle(t, hub, 100)
	publishAngle(t, hub, 101)

	if len(*captured) != 1 {
		t.Fatalf("expected one direction, got %v", *captured)
	}
	payload := (*captured)[0]
	if payload["command"] != "stationary" {
		t.Errorf("command = %v, want stationary", payload["command"])
	}
	if got := payload["intensity"].(float64); got != 0 {
		t.Errorf("stationary intensity = %v, want 0", got)
	}
}

func TestDeriverIntensitySaturates(t *testing.T) {
	hub, captured := routedBroker(t)
	subscribeDeriver(t, hub, 3)

	publishAngle(t, hub, 0)
	publishAngle(t, hub, 170)

	payload := (*captured)[0]
	if got := payload["intensity"].(float64); got != 1 {
		t.Errorf("intensity = %v, want saturated 1", got)
	}
}

func TestNewDirectionDeriverValidatesThreshold(t *testing.T) {
	hub := broker.New()
	if _, err := NewDirectionDeriver(hub, -1); err == nil {
		t.Error("negative threshold must be rejected")
	}
	if _, err := NewDirectionDeriver(hub, 181); err == nil {
		t.Error("threshold above 180 must be rejected")
	}
}
