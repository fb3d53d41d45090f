package session

import (
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/terraguard/terraguard-go/internal/errors"
	"github.com/terraguard/terraguard-go/internal/observability/metrics"
	"github.com/terraguard/terraguard-go/internal/telemetry"
)

// ConnectionState is the lifecycle phase of a sensor session.
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateScanning
	StateConnecting
	StateConnected
	StateError
)

// String returns the state name used in logs and metrics labels.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateScanning:
		return "scanning"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Status is a snapshot of the controller's current state.
type Status struct {
	State   ConnectionState
	Device  string
	Session string
	Err     error
}

const readBufferSize = 512

// Controller drives a single sensor session. One read loop goroutine
// exists at most; Connect and Disconnect serialize through mu.
type Controller struct {
	mu       sync.Mutex
	state    ConnectionState
	device   string
	session  string
	lastErr  error
	conn     Transport
	done     chan struct{}
	stopping atomic.Bool

	open transportOpener
	scan portScanner

	log     *slog.Logger
	metrics *metrics.SessionMetrics
	telem   *metrics.TelemetryMetrics

	// OnReading is invoked from the read loop goroutine for every line
	// that parses as a valid record. OnParseError fires for every
	// discarded line. OnState is invoked under mu on every state
	// transition. All may be nil.
	OnReading    func(r *telemetry.Reading)
	OnParseError func(line string, err error)
	OnState      func(s Status)
}

type transportOpener func(device string, baudRate int) (Transport, error)
type portScanner func() ([]string, error)

// NewController builds a controller using the real serial transport.
func NewController(log *slog.Logger, sm *metrics.SessionMetrics, tm *metrics.TelemetryMetrics) *Controller {
	return &Controller{
		state:   StateDisconnected,
		open:    OpenSerial,
		scan:    ScanPorts,
		log:     log,
		metrics: sm,
		telem:   tm,
	}
}

// Status returns a snapshot of the controller state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{State: c.state, Device: c.device, Session: c.session, Err: c.lastErr}
}

// setState must be called with mu held.
func (c *Controller) setState(s ConnectionState, err error) {
	c.state = s
	c.lastErr = err
	c.metrics.ObserveTransition(s.String(), int(s))
	if c.OnState != nil {
		c.OnState(Status{State: s, Device: c.device, Session: c.session, Err: err})
	}
}

// Connect scans for a port (unless device pins one), opens it, and
// starts the read loop. On failure the controller is left in
// Disconnected or Error and the error is returned; there is no retry.
func (c *Controller) Connect(device string, baudRate int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateConnected || c.state == StateConnecting {
		return errors.Newf("session already active on %s", c.device).
			Component("session").
			Category(errors.CategoryState).
			Build()
	}

	c.setState(StateScanning, nil)
	if device == "" {
		ports, err := c.scan()
		if err != nil {
			c.setState(StateDisconnected, err)
			return err
		}
		if len(ports) == 0 {
			err := errors.Newf("no serial ports found").
				Component("session").
				Category(errors.CategorySerialPort).
				Build()
			c.setState(StateDisconnected, err)
			return err
		}
		device = ports[0]
	}

	c.device = device
	c.setState(StateConnecting, nil)

	conn, err := c.open(device, baudRate)
	if err != nil {
		c.setState(StateError, err)
		return err
	}

	c.conn = conn
	c.session = uuid.New().String()
	c.stopping.Store(false)
	c.done = make(chan struct{})
	c.setState(StateConnected, nil)
	c.log.Info("sensor connected", "device", device, "session", c.session)

	go c.readLoop(conn, c.done)
	return nil
}

// ConnectTransport attaches an already-open transport, bypassing port
// discovery. File mode uses this to replay captured telemetry.
func (c *Controller) ConnectTransport(t Transport, label string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateConnected || c.state == StateConnecting {
		return errors.Newf("session already active on %s", c.device).
			Component("session").
			Category(errors.CategoryState).
			Build()
	}

	c.device = label
	c.conn = t
	c.session = uuid.New().String()
	c.stopping.Store(false)
	c.done = make(chan struct{})
	c.setState(StateConnected, nil)

	go c.readLoop(t, c.done)
	return nil
}

// Disconnect tears the session down. The transport is closed first to
// force any pending read to resolve, then the loop exit is awaited.
// Close errors are ignored; the session is considered ended either way.
func (c *Controller) Disconnect() {
	c.mu.Lock()
	if c.conn == nil {
		c.mu.Unlock()
		return
	}
	c.stopping.Store(true)
	conn := c.conn
	done := c.done
	c.conn = nil
	c.mu.Unlock()

	_ = conn.Close()
	if done != nil {
		<-done
	}

	c.mu.Lock()
	c.setState(StateDisconnected, nil)
	c.log.Info("sensor disconnected", "device", c.device, "session", c.session)
	c.mu.Unlock()
}

// Wait blocks until the read loop exits, whether by Disconnect or by a
// transport failure.
func (c *Controller) Wait() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}

// readLoop is the only goroutine touching the assembler. It checks the
// stop flag exactly once per iteration, after the read resolves, so a
// teardown during a blocked read takes effect as soon as Close unblocks
// it.
func (c *Controller) readLoop(t Transport, done chan struct{}) {
	defer close(done)

	assembler := &telemetry.LineAssembler{}
	buf := make([]byte, readBufferSize)

	for {
		n, err := t.Read(buf)

		if c.stopping.Load() {
			return
		}

		if n > 0 {
			for _, line := range assembler.Push(string(buf[:n])) {
				c.handleLine(line)
			}
		}

		if err != nil {
			// End of stream: a final unterminated record may still be
			// pending in the assembler.
			if tail := assembler.Flush(); tail != "" {
				c.handleLine(tail)
			}

			c.mu.Lock()
			switch {
			case c.stopping.Load():
				// Teardown in progress, Disconnect owns the state.
			case errors.Is(err, io.EOF):
				c.conn = nil
				c.setState(StateDisconnected, nil)
				c.log.Info("sensor stream ended", "device", c.device, "session", c.session)
			default:
				c.metrics.ObserveReadError()
				c.conn = nil
				c.setState(StateError, errors.New(err).
					Component("session").
					Category(errors.CategorySerialPort).
					Context("device", c.device).
					Build())
				c.log.Error("sensor read failed", "device", c.device, "error", err)
			}
			c.mu.Unlock()
			_ = t.Close()
			return
		}
	}
}

// handleLine parses one reassembled line. Malformed lines are logged at
// debug and counted; they never end the session.
func (c *Controller) handleLine(line string) {
	if line == "" {
		return
	}
	c.telem.ObserveLine()

	reading, err := telemetry.ParseLine(line)
	if err != nil {
		c.telem.ObserveParseError()
		c.log.Debug("discarding malformed line", "line", line, "error", err)
		if c.OnParseError != nil {
			c.OnParseError(line, err)
		}
		return
	}

	c.telem.ObserveReading(reading.Risk)
	if c.OnReading != nil {
		c.OnReading(reading)
	}
}
