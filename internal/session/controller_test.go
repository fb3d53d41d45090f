package session

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terraguard/terraguard-go/internal/aggregator"
	"github.com/terraguard/terraguard-go/internal/observability/metrics"
	"github.com/terraguard/terraguard-go/internal/errors"
	"github.com/terraguard/terraguard-go/internal/telemetry"
)

type readResult struct {
	data string
	err  error
}

// fakeTransport feeds scripted chunks to the read loop. Close unblocks
// a pending Read, mirroring the behavior the controller expects from a
// serial port.
type fakeTransport struct {
	chunks    chan readResult
	closed    chan struct{}
	closeOnce sync.Once
	closeErr  error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		chunks: make(chan readResult, 64),
		closed: make(chan struct{}),
	}
}

func (t *fakeTransport) Read(buf []byte) (int, error) {
	select {
	case r, ok := <-t.chunks:
		if !ok {
			return 0, io.EOF
		}
		n := copy(buf, r.data)
		return n, r.err
	case <-t.closed:
		return 0, io.ErrClosedPipe
	}
}

func (t *fakeTransport) Close() error {
	t.closeOnce.Do(func() { close(t.closed) })
	return t.closeErr
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestController(t *fakeTransport) *Controller {
	c := NewController(testLogger(), nil, nil)
	c.open = func(device string, baudRate int) (Transport, error) { return t, nil }
	c.scan = func() ([]string, error) { return []string{"/dev/ttyUSB0"}, nil }
	return c
}

func sensorLine(mn, tn, vn, risk float64, level string) string {
	return fmt.Sprintf("Moisture: %.0f  Mn=%.2f | Tilt: %.1f  Tn=%.2f | Vibration: %.0f  Vn=%.2f | Risk=%.2f | LEVEL: %s\n",
		mn*1023, mn, tn*45, tn, vn*1023, vn, risk, level)
}

func waitForState(t *testing.T, c *Controller, want ConnectionState) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if c.Status().State == want {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for state %v, got %v", want, c.Status().State)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestConnectDeliversReadings(t *testing.T) {
	ft := newFakeTransport()
	c := newTestController(ft)

	readings := make(chan *telemetry.Reading, 8)
	c.OnReading = func(r *telemetry.Reading) { readings <- r }

	require.NoError(t, c.Connect("", 0))
	assert.Equal(t, StateConnected, c.Status().State)
	assert.Equal(t, "/dev/ttyUSB0", c.Status().Device)
	assert.NotEmpty(t, c.Status().Session)

	ft.chunks <- readResult{data: sensorLine(0.5, 0.2, 0.1, 0.295, "LOW")}

	select {
	case r := <-readings:
		assert.InDelta(t, 0.5, r.Mn, 1e-9)
		assert.Equal(t, telemetry.RiskLow, r.Level)
	case <-time.After(2 * time.Second):
		t.Fatal("no reading delivered")
	}

	c.Disconnect()
	assert.Equal(t, StateDisconnected, c.Status().State)
}

func TestConnectPinnedDeviceSkipsScan(t *testing.T) {
	ft := newFakeTransport()
	c := newTestController(ft)
	c.scan = func() ([]string, error) {
		t.Fatal("scan called despite pinned device")
		return nil, nil
	}

	require.NoError(t, c.Connect("/dev/ttyACM3", 9600))
	assert.Equal(t, "/dev/ttyACM3", c.Status().Device)
	c.Disconnect()
}

func TestConnectNoPortsFound(t *testing.T) {
	c := NewController(testLogger(), nil, nil)
	c.scan = func() ([]string, error) { return nil, nil }

	err := c.Connect("", 0)
	require.Error(t, err)
	assert.Equal(t, StateDisconnected, c.Status().State)

	var ee *errors.EnhancedError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, errors.CategorySerialPort, ee.Category)
}

func TestConnectOpenFailure(t *testing.T) {
	c := NewController(testLogger(), nil, nil)
	c.scan = func() ([]string, error) { return []string{"/dev/ttyUSB0"}, nil }
	c.open = func(device string, baudRate int) (Transport, error) {
		return nil, errors.Newf("permission denied opening %s", device).
			Component("session").
			Category(errors.CategorySerialPort).
			Build()
	}

	err := c.Connect("", 0)
	require.Error(t, err)
	assert.Equal(t, StateError, c.Status().State)
	assert.Error(t, c.Status().Err)
}

func TestConnectWhileActive(t *testing.T) {
	ft := newFakeTransport()
	c := newTestController(ft)
	require.NoError(t, c.Connect("", 0))

	err := c.Connect("", 0)
	require.Error(t, err)

	var ee *errors.EnhancedError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, errors.CategoryState, ee.Category)

	c.Disconnect()
}

func TestDisconnectUnblocksPendingRead(t *testing.T) {
	ft := newFakeTransport()
	ft.closeErr = io.ErrUnexpectedEOF // swallowed by teardown
	c := newTestController(ft)
	require.NoError(t, c.Connect("", 0))

	// No chunks queued, so the loop is blocked in Read.
	done := make(chan struct{})
	go func() {
		c.Disconnect()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Disconnect did not return; pending read was not released")
	}
	assert.Equal(t, StateDisconnected, c.Status().State)
}

func TestReadErrorEndsSession(t *testing.T) {
	ft := newFakeTransport()
	c := newTestController(ft)

	readings := make(chan *telemetry.Reading, 8)
	c.OnReading = func(r *telemetry.Reading) { readings <- r }

	require.NoError(t, c.Connect("", 0))

	// Final chunk carries data and the error together; the data must
	// still be processed before the session ends.
	ft.chunks <- readResult{
		data: sensorLine(0.9, 0.8, 0.7, 0.815, "HIGH"),
		err:  io.ErrUnexpectedEOF,
	}

	select {
	case r := <-readings:
		assert.Equal(t, telemetry.RiskHigh, r.Level)
	case <-time.After(2 * time.Second):
		t.Fatal("reading before failure was dropped")
	}

	waitForState(t, c, StateError)
	assert.Error(t, c.Status().Err)
	c.Wait()

	// No auto-retry: the state stays Error until a new Connect.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StateError, c.Status().State)
}

func TestFragmentedChunksReassemble(t *testing.T) {
	ft := newFakeTransport()
	c := newTestController(ft)

	readings := make(chan *telemetry.Reading, 8)
	c.OnReading = func(r *telemetry.Reading) { readings <- r }

	require.NoError(t, c.Connect("", 0))

	line := sensorLine(0.3, 0.3, 0.3, 0.3, "MEDIUM")
	for i := 0; i < len(line); i += 7 {
		end := i + 7
		if end > len(line) {
			end = len(line)
		}
		ft.chunks <- readResult{data: line[i:end]}
	}

	select {
	case r := <-readings:
		assert.InDelta(t, 0.3, r.Risk, 1e-9)
	case <-time.After(2 * time.Second):
		t.Fatal("fragmented line never completed")
	}

	c.Disconnect()
}

func TestMalformedLinesSkipped(t *testing.T) {
	ft := newFakeTransport()
	c := newTestController(ft)

	readings := make(chan *telemetry.Reading, 8)
	c.OnReading = func(r *telemetry.Reading) { readings <- r }

	require.NoError(t, c.Connect("", 0))

	ft.chunks <- readResult{data: "boot garbage\x00\xff\n"}
	ft.chunks <- readResult{data: "Moisture: 512\n"}
	ft.chunks <- readResult{data: sensorLine(0.1, 0.1, 0.1, 0.1, "LOW")}

	select {
	case r := <-readings:
		assert.Equal(t, telemetry.RiskLow, r.Level)
	case <-time.After(2 * time.Second):
		t.Fatal("valid line after garbage was not delivered")
	}
	assert.Empty(t, readings)

	c.Disconnect()
}

func TestFileTransportReplay(t *testing.T) {
	var payload string
	for i := 0; i < 5; i++ {
		payload += sensorLine(float64(i)/10, 0.1, 0.1, float64(i)/10, "LOW")
	}

	c := NewController(testLogger(), nil, nil)
	readings := make(chan *telemetry.Reading, 8)
	c.OnReading = func(r *telemetry.Reading) { readings <- r }

	rc := io.NopCloser(strings.NewReader(payload))
	require.NoError(t, c.ConnectTransport(NewReaderTransport(rc), "capture.log"))
	c.Wait()

	// Running out of input is a normal end of stream, not a failure.
	waitForState(t, c, StateDisconnected)
	assert.NoError(t, c.Status().Err)
	assert.Len(t, readings, 5)
}

// A capture file whose final record lacks a trailing newline must still
// deliver that record when the stream ends.
func TestReplayParsesUnterminatedFinalRecord(t *testing.T) {
	payload := sensorLine(0.1, 0.1, 0.1, 0.1, "LOW") +
		strings.TrimSuffix(sensorLine(0.9, 0.8, 0.7, 0.815, "HIGH"), "\n")

	c := NewController(testLogger(), nil, nil)
	readings := make(chan *telemetry.Reading, 8)
	c.OnReading = func(r *telemetry.Reading) { readings <- r }

	rc := io.NopCloser(strings.NewReader(payload))
	require.NoError(t, c.ConnectTransport(NewReaderTransport(rc), "capture.log"))
	c.Wait()

	require.Len(t, readings, 2)
	<-readings
	last := <-readings
	assert.Equal(t, telemetry.RiskHigh, last.Level)
}

// Sixty-five sequential readings must leave the rolling chart holding
// exactly the last sixty, oldest first.
func TestChartWindowAfterLongSession(t *testing.T) {
	ft := newFakeTransport()
	c := newTestController(ft)

	agg := aggregator.New()
	delivered := make(chan struct{}, 128)
	c.OnReading = func(r *telemetry.Reading) {
		agg.Add(r)
		delivered <- struct{}{}
	}

	require.NoError(t, c.Connect("", 0))

	for i := 1; i <= 65; i++ {
		mn := float64(i) / 100
		ft.chunks <- readResult{data: sensorLine(mn, 0, 0, mn*0.40, "LOW")}
	}
	for i := 0; i < 65; i++ {
		select {
		case <-delivered:
		case <-time.After(2 * time.Second):
			t.Fatalf("reading %d never arrived", i+1)
		}
	}

	series := agg.ChartSeries()
	require.Len(t, series, aggregator.ChartCapacity)
	assert.InDelta(t, 0.06, series[0].Mn, 1e-9)
	assert.InDelta(t, 0.65, series[len(series)-1].Mn, 1e-9)

	activity := agg.Activity()
	require.Len(t, activity, aggregator.ActivityCapacity)
	assert.InDelta(t, 0.65, activity[0].Reading.Mn, 1e-9)

	c.Disconnect()
}

// The connection state gauge carries the numeric state its help text
// documents, not just a connected/not-connected bit.
func TestConnectionStateGaugeTracksState(t *testing.T) {
	registry := prometheus.NewRegistry()
	sm, err := metrics.NewSessionMetrics(registry)
	require.NoError(t, err)

	ft := newFakeTransport()
	c := NewController(testLogger(), sm, nil)
	c.open = func(device string, baudRate int) (Transport, error) { return ft, nil }
	c.scan = func() ([]string, error) { return []string{"/dev/ttyUSB0"}, nil }

	require.NoError(t, c.Connect("", 0))
	assert.Equal(t, float64(StateConnected), testutil.ToFloat64(sm.ConnectionState))

	c.Disconnect()
	assert.Equal(t, float64(StateDisconnected), testutil.ToFloat64(sm.ConnectionState))
}
