package broker

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func passThrough(payload map[string]any) (map[string]any, error) {
	return payload, nil
}

func TestRegisterMessageType(t *testing.T) {
	b := New()

	if err := b.RegisterMessageType("test_type", passThrough); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	if !b.IsTypeRegistered("test_type") {
		t.Error("type should be registered")
	}

	// second registration is a configuration error, first handler stays
	err := b.RegisterMessageType("test_type", func(map[string]any) (map[string]any, error) {
		return nil, errors.New("should never run")
	})
	if !errors.Is(err, ErrTypeRegistered) {
		t.Fatalf("expected ErrTypeRegistered, got %v", err)
	}

	result := b.Publish("test_type", map[string]any{"x": 1})
	if !result.Success {
		t.Errorf("original handler should still be in place: %+v", result)
	}
}

func TestRegisterMessageTypeRejectsBadInput(t *testing.T) {
	b := New()
	if err := b.RegisterMessageType("", passThrough); err == nil {
		t.Error("empty name should be rejected")
	}
	if err := b.RegisterMessageType("x", nil); err == nil {
		t.Error("nil handler should be rejected")
	}
}

func TestPublishDeliversToAllSubscribers(t *testing.T) {
	b := New()
	if err := b.RegisterMessageType("test_type", passThrough); err != nil {
		t.Fatal(err)
	}

	var got1, got2 map[string]any
	if _, err := b.Subscribe("test_type", func(msg Message) error {
		got1 = msg.Payload
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Subscribe("test_type", func(msg Message) error {
		got2 = msg.Payload
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	payload := map[string]any{"x": 1}
	result := b.Publish("test_type", payload)

	if !result.Success {
		t.Errorf("expected success, got %+v", result)
	}
	if result.SubscribersNotified != 2 {
		t.Errorf("expected 2 subscribers notified, got %d", result.SubscribersNotified)
	}
	if len(result.Errors) != 0 {
		t.Errorf("expected no errors, got %v", result.Errors)
	}
	if result.MessageID == "" {
		t.Error("expected a message ID")
	}
	if diff := cmp.Diff(payload, got1); diff != "" {
		t.Errorf("first subscriber payload mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(payload, got2); diff != "" {
		t.Errorf("second subscriber payload mismatch (-want +got):\n%s", diff)
	}
}

func TestPublishUnregisteredType(t *testing.T) {
	b := New()
	handlerRan := false
	if err := b.RegisterMessageType("other", func(p map[string]any) (map[string]any, error) {
		handlerRan = true
		return p, nil
	}); err != nil {
		t.Fatal(err)
	}

	result := b.Publish("missing", map[string]any{"x": 1})

	if result.Success {
		t.Error("publish to unregistered type must not succeed")
	}
	if result.SubscribersNotified != 0 {
		t.Errorf("expected zero notifications, got %d", result.SubscribersNotified)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected exactly one error, got %v", result.Errors)
	}
	var unregistered *UnregisteredTypeError
	if !errors.As(result.Errors[0], &unregistered) {
		t.Errorf("expected UnregisteredTypeError, got %T", result.Errors[0])
	}
	if handlerRan {
		t.Error("no handler may run for an unregistered type")
	}
}

func TestPublishValidationFailure(t *testing.T) {
	b := New()
	if err := b.RegisterMessageType("strict", func(map[string]any) (map[string]any, error) {
		return nil, errors.New("bad payload")
	}); err != nil {
		t.Fatal(err)
	}
	notified := false
	if _, err := b.Subscribe("strict", func(Message) error {
		notified = true
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	result := b.Publish("strict", map[string]any{})

	if result.Success {
		t.Error("validation failure must not succeed")
	}
	if result.SubscribersNotified != 0 || notified {
		t.Error("no delivery may be attempted after validation failure")
	}
	var validation *ValidationError
	if len(result.Errors) != 1 || !errors.As(result.Errors[0], &validation) {
		t.Errorf("expected one ValidationError, got %v", result.Errors)
	}
}

func TestSubscriberErrorDoesNotAbortDelivery(t *testing.T) {
	b := New()
	if err := b.RegisterMessageType("test_type", passThrough); err != nil {
		t.Fatal(err)
	}

	var order []string
	if _, err := b.Subscribe("test_type", func(Message) error {
		order = append(order, "first")
		return errors.New("boom")
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Subscribe("test_type", func(Message) error {
		order = append(order, "second")
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	result := b.Publish("test_type", map[string]any{"x": 1})

	if !result.Success {
		t.Error("subscriber failure must not flip success")
	}
	if result.SubscribersNotified != 2 {
		t.Errorf("expected both callbacks attempted, got %d", result.SubscribersNotified)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected one error, got %v", result.Errors)
	}
	var subErr *SubscriberError
	if !errors.As(result.Errors[0], &subErr) {
		t.Errorf("expected SubscriberError, got %T", result.Errors[0])
	}
	if diff := cmp.Diff([]string{"first", "second"}, order); diff != "" {
		t.Errorf("delivery order mismatch (-want +got):\n%s", diff)
	}
}

func TestSingleFailingSubscriber(t *testing.T) {
	b := New()
	if err := b.RegisterMessageType("test_type", passThrough); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Subscribe("test_type", func(Message) error {
		panic("subscriber blew up")
	}); err != nil {
		t.Fatal(err)
	}

	result := b.Publish("test_type", map[string]any{"x": 1})

	if !result.Success {
		t.Error("handler validated fine, success must hold")
	}
	if result.SubscribersNotified != 1 {
		t.Errorf("expected 1 notification attempt, got %d", result.SubscribersNotified)
	}
	if len(result.Errors) != 1 {
		t.Errorf("expected 1 error, got %v", result.Errors)
	}
}

func TestSubscribeUnregisteredType(t *testing.T) {
	b := New()
	_, err := b.Subscribe("missing", func(Message) error { return nil })
	var unregistered *UnregisteredTypeError
	if !errors.As(err, &unregistered) {
		t.Fatalf("expected UnregisteredTypeError, got %v", err)
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	if err := b.RegisterMessageType("test_type", passThrough); err != nil {
		t.Fatal(err)
	}
	calls := 0
	sub, err := b.Subscribe("test_type", func(Message) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	b.Publish("test_type", map[string]any{})
	b.Unsubscribe(sub)
	b.Publish("test_type", map[string]any{})

	if calls != 1 {
		t.Errorf("expected one call before unsubscribe, got %d", calls)
	}
	if n := b.SubscriberCount("test_type"); n != 0 {
		t.Errorf("expected no remaining subscribers, got %d", n)
	}

	// unknown handles are a no-op
	b.Unsubscribe(Subscription{ID: "nope", TypeName: "test_type"})
	b.Unsubscribe(Subscription{ID: "nope", TypeName: "missing"})
}

func TestHandlerTransformReachesSubscribers(t *testing.T) {
	b := New()
	if err := b.RegisterMessageType("normalized", func(p map[string]any) (map[string]any, error) {
		return map[string]any{"value": p["value"], "normalized": true}, nil
	}); err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if _, err := b.Subscribe("normalized", func(msg Message) error {
		got = msg.Payload
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	b.Publish("normalized", map[string]any{"value": 7})

	want := map[string]any{"value": 7, "normalized": true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("transformed payload mismatch (-want +got):\n%s", diff)
	}
}

func TestReentrantPublishFromSubscriber(t *testing.T) {
	b := New()
	if err := b.RegisterMessageType("outer", passThrough); err != nil {
		t.Fatal(err)
	}
	if err := b.RegisterMessageType("inner", passThrough); err != nil {
		t.Fatal(err)
	}

	innerDelivered := false
	if _, err := b.Subscribe("inner", func(Message) error {
		innerDelivered = true
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Subscribe("outer", func(Message) error {
		// publishing from inside a callback must not deadlock
		result := b.Publish("inner", map[string]any{"nested": true})
		if !result.Success {
			return fmt.Errorf("nested publish failed: %v", result.Errors)
		}
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	result := b.Publish("outer", map[string]any{})
	if !result.Success || len(result.Errors) != 0 {
		t.Fatalf("outer publish failed: %+v", result)
	}
	if !innerDelivered {
		t.Error("nested publish never reached the inner subscriber")
	}
}

func TestRegisteredTypes(t *testing.T) {
	b := New()
	for _, name := range []string{"charlie", "alpha", "bravo"} {
		if err := b.RegisterMessageType(name, passThrough); err != nil {
			t.Fatal(err)
		}
	}
	want := []string{"alpha", "bravo", "charlie"}
	if diff := cmp.Diff(want, b.RegisteredTypes()); diff != "" {
		t.Errorf("registered types mismatch (-want +got):\n%s", diff)
	}
	if b.IsTypeRegistered("delta") {
		t.Error("delta was never registered")
	}
}

func TestConcurrentPublishAndSubscribe(t *testing.T) {
	b := New()
	if err := b.RegisterMessageType("busy", passThrough); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				b.Publish("busy", map[string]any{"n": j})
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				sub, err := b.Subscribe("busy", func(Message) error { return nil })
				if err != nil {
					t.Error(err)
					return
				}
				b.Unsubscribe(sub)
			}
		}()
	}
	wg.Wait()
}
