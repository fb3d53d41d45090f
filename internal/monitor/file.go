package monitor

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/terraguard/terraguard-go/internal/conf"
	"github.com/terraguard/terraguard-go/internal/errors"
	"github.com/terraguard/terraguard-go/internal/inference"
	"github.com/terraguard/terraguard-go/internal/observability"
	"github.com/terraguard/terraguard-go/internal/session"
	"github.com/terraguard/terraguard-go/internal/telemetry"
)

// RunFile replays a captured telemetry file through the pipeline and
// prints a summary. The file holds the raw byte stream as read off the
// serial port, so fragmentation and malformed lines are handled the
// same way as in realtime mode.
func RunFile(settings *conf.Settings, path string) error {
	log := serviceLogger("file")

	f, err := os.Open(path)
	if err != nil {
		return errors.New(err).
			Component("monitor").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}

	metrics, err := observability.NewMetrics()
	if err != nil {
		_ = f.Close()
		return err
	}

	engine := inference.NewEngine(settings.Model.Source)
	ctx, cancel := context.WithTimeout(context.Background(), modelLoadTimeout)
	if loadErr := engine.Load(ctx); loadErr != nil {
		log.Warn("model load failed, running with linear scoring only", "error", loadErr)
		engine = nil
	}
	cancel()

	pipeline := New(settings, engine, nil, metrics)
	pipeline.SetSink(func(e *Event) {
		fmt.Println(FormatEvent(e))
	})

	var processed, parseErrors atomic.Int64

	controller := session.NewController(serviceLogger("session"), metrics.Session, metrics.Telemetry)
	controller.OnReading = func(r *telemetry.Reading) {
		processed.Add(1)
		pipeline.ProcessReading(r)
	}
	controller.OnParseError = func(line string, err error) {
		parseErrors.Add(1)
	}

	if err := controller.ConnectTransport(session.NewReaderTransport(f), path); err != nil {
		return err
	}
	controller.Wait()

	latest := pipeline.Aggregator().Latest()
	fmt.Print(FormatSummary(int(processed.Load()), int(parseErrors.Load()), latest))
	return nil
}
