// Package broker implements the typed in-process publish/subscribe hub that
// routes sensor events between the processing pipeline and its consumers.
//
// Each message type is registered once with a validating handler. Publish
// runs the handler, then delivers the (possibly transformed) payload to every
// subscriber in registration order, accounting for per-subscriber failures
// without aborting delivery.
package broker

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrTypeRegistered is returned when a message type name is registered twice.
// The first registration always wins; the caller has a configuration error.
var ErrTypeRegistered = fmt.Errorf("message type already registered")

// Handler validates and optionally transforms a payload before delivery.
// Returning an error rejects the publish with no subscriber notified.
type Handler func(payload map[string]any) (map[string]any, error)

// Callback receives each successfully published message of a subscribed type.
type Callback func(msg Message) error

// Message is one published event. Immutable once created by Publish.
type Message struct {
	Type      string
	Payload   map[string]any
	MessageID string
	Timestamp time.Time
}

// PublishResult reports the outcome of one Publish call. Success reflects
// handler validation only; subscriber failures land in Errors without
// flipping Success.
type PublishResult struct {
	Success             bool
	MessageID           string
	SubscribersNotified int
	Errors              []error
}

// UnregisteredTypeError reports a publish or subscribe against a type name
// that was never registered.
type UnregisteredTypeError struct {
	TypeName string
}

func (e *UnregisteredTypeError) Error() string {
	return fmt.Sprintf("unregistered message type %q", e.TypeName)
}

// ValidationError reports a payload the registered handler rejected.
type ValidationError struct {
	TypeName string
	Err      error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid payload for %q: %v", e.TypeName, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// SubscriberError reports one subscriber callback that failed during
// delivery. Remaining subscribers are still notified.
type SubscriberError struct {
	TypeName       string
	SubscriptionID string
	Err            error
}

func (e *SubscriberError) Error() string {
	return fmt.Sprintf("subscriber %s for %q failed: %v", e.SubscriptionID, e.TypeName, e.Err)
}

func (e *SubscriberError) Unwrap() error { return e.Err }

// Subscription identifies one registered callback for later unsubscribe.
type Subscription struct {
	ID       string
	TypeName string
}

type subscriber struct {
	id       string
	callback Callback
}

type registration struct {
	handler     Handler
	subscribers []subscriber // delivery happens in append order
}

// Broker is the process-wide message hub. Construct one with New at startup
// and pass it by reference to every component that publishes or subscribes;
// there is no ambient global instance.
type Broker struct {
	mu    sync.Mutex
	types map[string]*registration
}

// New returns an empty broker with no registered message types.
func New() *Broker {
	return &Broker{types: make(map[string]*registration)}
}

// randomID generates a random subscription ID (8 byte random hex encoded value)
func randomID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// RegisterMessageType registers a named message type with its validating
// handler. A second registration for the same name returns ErrTypeRegistered
// and leaves the original handler in place.
func (b *Broker) RegisterMessageType(name string, handler Handler) error {
	if name == "" {
		return fmt.Errorf("message type name must not be empty")
	}
	if handler == nil {
		return fmt.Errorf("handler for %q must not be nil", name)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.types[name]; exists {
		return fmt.Errorf("%w: %q", ErrTypeRegistered, name)
	}
	b.types[name] = &registration{handler: handler}
	return nil
}

// Subscribe adds a callback for the named type. The callback is invoked for
// every successful publish, in registration order relative to other
// subscribers. Subscribing to an unregistered type fails.
func (b *Broker) Subscribe(name string, callback Callback) (Subscription, error) {
	if callback == nil {
		return Subscription{}, fmt.Errorf("callback for %q must not be nil", name)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	reg, ok := b.types[name]
	if !ok {
		return Subscription{}, &UnregisteredTypeError{TypeName: name}
	}
	sub := subscriber{id: randomID(), callback: callback}
	reg.subscribers = append(reg.subscribers, sub)
	return Subscription{ID: sub.id, TypeName: name}, nil
}

// Unsubscribe removes a previously returned subscription. Unknown handles are
// a no-op.
func (b *Broker) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	reg, ok := b.types[sub.TypeName]
	if !ok {
		return
	}
	for i, s := range reg.subscribers {
		if s.id == sub.ID {
			reg.subscribers = append(reg.subscribers[:i], reg.subscribers[i+1:]...)
			return
		}
	}
}

// Publish validates the payload through the type's handler and delivers it to
// every current subscriber. The result is always returned, never panicked:
// an unregistered type or failed validation yields Success=false with zero
// notifications, while individual subscriber failures are recorded in Errors
// with Success still true.
func (b *Broker) Publish(name string, payload map[string]any) PublishResult {
	b.mu.Lock()
	reg, ok := b.types[name]
	if !ok {
		b.mu.Unlock()
		return PublishResult{
			Success: false,
			Errors:  []error{&UnregisteredTypeError{TypeName: name}},
		}
	}
	handler := reg.handler
	// snapshot so delivery happens outside the lock: a callback may publish
	// or subscribe re-entrantly without deadlocking
	subscribers := make([]subscriber, len(reg.subscribers))
	copy(subscribers, reg.subscribers)
	b.mu.Unlock()

	transformed, err := handler(payload)
	if err != nil {
		return PublishResult{
			Success: false,
			Errors:  []error{&ValidationError{TypeName: name, Err: err}},
		}
	}

	msg := Message{
		Type:      name,
		Payload:   transformed,
		MessageID: uuid.NewString(),
		Timestamp: time.Now().UTC(),
	}

	result := PublishResult{Success: true, MessageID: msg.MessageID}
	for _, sub := range subscribers {
		result.SubscribersNotified++
		if err := b.deliver(sub, msg); err != nil {
			result.Errors = append(result.Errors, &SubscriberError{
				TypeName:       name,
				SubscriptionID: sub.id,
				Err:            err,
			})
		}
	}
	return result
}

// deliver invokes one callback, converting a panic into an error so a broken
// subscriber cannot take down the publish path.
func (b *Broker) deliver(sub subscriber, msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("callback panicked: %v", r)
		}
	}()
	return sub.callback(msg)
}

// RegisteredTypes returns the names of all registered message types in sorted
// order.
func (b *Broker) RegisteredTypes() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, 0, len(b.types))
	for name := range b.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsTypeRegistered reports whether the named type has been registered.
func (b *Broker) IsTypeRegistered(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.types[name]
	return ok
}

// SubscriberCount returns the number of current subscribers for a type.
// Unknown types have zero subscribers.
func (b *Broker) SubscriberCount(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	reg, ok := b.types[name]
	if !ok {
		return 0
	}
	return len(reg.subscribers)
}
