// Package source owns the serial connection to the IMU and turns its raw
// line frames into a restartable stream of parsed readings.
package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cinvymoe/ai-system-sub001/internal/imu"
	"github.com/cinvymoe/ai-system-sub001/internal/monitoring"
)

// ErrNotConnected is returned when streaming is requested before a
// successful Connect. Callers get a fast failure, never an indefinite block.
var ErrNotConnected = errors.New("device source is not connected")

// ConnectionError reports a failed attempt to open the device. The caller
// decides whether and how to retry; the source never retries internally.
type ConnectionError struct {
	Path string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to device %s: %v", e.Path, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// connection pairs an open port with a close guard so the port is released
// exactly once regardless of which path (cancellation, read failure,
// explicit Disconnect) gets there first.
type connection struct {
	port SerialPorter
	once sync.Once
	err  error
}

func (c *connection) close() error {
	c.once.Do(func() { c.err = c.port.Close() })
	return c.err
}

// Source is the collection-layer device source. It owns the underlying port
// handle exclusively: Connect opens it, Stream reads from it, Disconnect
// releases it.
type Source struct {
	path string
	opts PortOptions
	open Opener

	mu   sync.Mutex
	conn *connection
}

// New creates a source backed by a real serial port at the given path.
func New(path string, opts PortOptions) *Source {
	return NewWithOpener(path, opts, OpenSerial)
}

// NewWithOpener creates a source with a custom port opener. Tests and replay
// mode inject fake ports this way.
func NewWithOpener(path string, opts PortOptions, open Opener) *Source {
	return &Source{path: path, opts: opts, open: open}
}

// Connect opens the device. Failures come back as a ConnectionError value so
// the caller can retry with backoff. Connecting while already connected is a
// no-op.
func (s *Source) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return nil
	}
	port, err := s.open(s.path, s.opts)
	if err != nil {
		return &ConnectionError{Path: s.path, Err: err}
	}
	s.conn = &connection{port: port}
	return nil
}

// Connected reports whether the source currently holds an open port.
func (s *Source) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Disconnect releases the port. It is safe to call repeatedly and from any
// goroutine; the underlying close happens once per connection.
func (s *Source) Disconnect() error {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.close()
}

// release closes a specific connection and clears it from the source if it
// is still the current one. A reconnect that happened in the meantime keeps
// its own fresh connection.
func (s *Source) release(conn *connection) {
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.mu.Unlock()
	if err := conn.close(); err != nil {
		monitoring.Logf("device source: close failed: %v", err)
	}
}

// Stream starts reading frames and returns a channel of parsed readings.
// The channel holds at most one pending reading: when the consumer lags, a
// newer reading replaces the unconsumed one rather than queueing behind it.
//
// Malformed frames are logged and skipped. The channel closes when the
// context is cancelled, Disconnect is called, or the port fails
// unrecoverably; in every case the port is released exactly once. A fresh
// Stream after reconnecting starts a new sequence.
func (s *Source) Stream(ctx context.Context) (<-chan imu.Reading, error) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return nil, ErrNotConnected
	}

	out := make(chan imu.Reading, 1)
	go s.run(ctx, conn, out)
	return out, nil
}

func (s *Source) run(ctx context.Context, conn *connection, out chan imu.Reading) {
	defer close(out)
	defer s.release(conn)

	scan := bufio.NewScanner(conn.port)
	frameChan := make(chan imu.RawFrame)
	scanErrChan := make(chan error, 1)

	// the blocking scan.Scan runs in its own goroutine so the outer loop can
	// await frames and cancellation together; closing the port on release
	// unblocks the pending Read
	go func() {
		defer close(frameChan)
		for scan.Scan() {
			frame := imu.RawFrame{
				Line: append([]byte(nil), scan.Bytes()...),
				At:   time.Now(),
			}
			select {
			case frameChan <- frame:
			case <-ctx.Done():
				return
			}
		}
		if err := scan.Err(); err != nil {
			select {
			case scanErrChan <- err:
			case <-ctx.Done():
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case err := <-scanErrChan:
			// surfaced once, then the sequence ends
			monitoring.Logf("device source: unrecoverable read failure: %v", err)
			return

		case frame, ok := <-frameChan:
			if !ok {
				select {
				case err := <-scanErrChan:
					monitoring.Logf("device source: unrecoverable read failure: %v", err)
				default:
				}
				return
			}

			reading, err := imu.Parse(frame)
			if err != nil {
				monitoring.Logf("device source: skipping frame: %v", err)
				continue
			}
			s.offer(out, reading)
		}
	}
}

// offer delivers with latest-value semantics: at most one reading is
// buffered, and a superseded reading is dropped in favour of the new one.
// Staleness is preferred over unbounded queue growth.
func (s *Source) offer(out chan imu.Reading, reading imu.Reading) {
	select {
	case out <- reading:
		return
	default:
	}
	select {
	case <-out:
	default:
	}
	select {
	case out <- reading:
	default:
	}
}
