package source

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// ReplayPort replays recorded frames at a fixed interval, standing in for
// real hardware in dev mode and tests. It loops over its fixture lines until
// closed.
type ReplayPort struct {
	reader *io.PipeReader
	writer *io.PipeWriter

	mu     sync.Mutex
	closed bool
	wrote  []byte
}

// NewReplayPort starts replaying the given frames, one every interval.
func NewReplayPort(lines []string, interval time.Duration) *ReplayPort {
	r, w := io.Pipe()
	p := &ReplayPort{reader: r, writer: w}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		i := 0
		for range ticker.C {
			if len(lines) == 0 {
				continue
			}
			line := lines[i%len(lines)]
			i++
			if _, err := w.Write([]byte(line + "\n")); err != nil {
				// reader side closed, replay is over
				return
			}
		}
	}()

	return p
}

// NewReplayPortFromFile loads fixture frames from a file, one frame per line.
func NewReplayPortFromFile(path string, interval time.Duration) (*ReplayPort, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures file: %w", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) == 0 || (len(lines) == 1 && lines[0] == "") {
		return nil, fmt.Errorf("fixtures file %s contains no frames", path)
	}
	return NewReplayPort(lines, interval), nil
}

func (p *ReplayPort) Read(buf []byte) (int, error) {
	return p.reader.Read(buf)
}

// Write captures commands sent to the device so tests can assert on them.
func (p *ReplayPort) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.wrote = append(p.wrote, data...)
	return len(data), nil
}

// Written returns everything written to the port so far.
func (p *ReplayPort) Written() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.wrote...)
}

func (p *ReplayPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.writer.Close()
	return p.reader.Close()
}

// ReplayOpener adapts a replay fixture set into an Opener so the layer
// factory can treat replay and real serial collection uniformly.
func ReplayOpener(lines []string, interval time.Duration) Opener {
	return func(string, PortOptions) (SerialPorter, error) {
		return NewReplayPort(lines, interval), nil
	}
}

// ReplayFileOpener is ReplayOpener backed by a fixtures file; the file is
// re-read on every open so a reconnect picks up edited fixtures.
func ReplayFileOpener(path string, interval time.Duration) Opener {
	return func(string, PortOptions) (SerialPorter, error) {
		return NewReplayPortFromFile(path, interval)
	}
}
