package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/terraguard/terraguard-go/internal/conf"
	"github.com/terraguard/terraguard-go/internal/inference"
	"github.com/terraguard/terraguard-go/internal/logging"
	"github.com/terraguard/terraguard-go/internal/mqtt"
	"github.com/terraguard/terraguard-go/internal/observability"
	"github.com/terraguard/terraguard-go/internal/session"
	"github.com/terraguard/terraguard-go/internal/telemetry"
)

// modelLoadTimeout bounds the initial model fetch at startup.
const modelLoadTimeout = 30 * time.Second

// RunRealtime connects to the sensor and processes readings until a
// termination signal arrives or the session fails.
func RunRealtime(settings *conf.Settings) error {
	log := serviceLogger("realtime")

	metrics, err := observability.NewMetrics()
	if err != nil {
		return err
	}

	var endpoint *observability.Endpoint
	if settings.Realtime.Telemetry.Enabled {
		endpoint = observability.NewEndpoint(settings.Realtime.Telemetry.Listen, metrics, log)
		endpoint.Start()
		defer endpoint.Shutdown()
	}

	engine := inference.NewEngine(settings.Model.Source)
	loadCtx, cancelLoad := context.WithTimeout(context.Background(), modelLoadTimeout)
	loadErr := engine.Load(loadCtx)
	cancelLoad()
	metrics.Inference.ObserveModelLoad(loadErr)
	if loadErr != nil {
		// The linear scorer keeps working without the model; inference
		// resumes if a later Load succeeds.
		log.Warn("model load failed, running with linear scoring only",
			"source", settings.Model.Source, "error", loadErr)
	} else {
		log.Info("model loaded", "source", settings.Model.Source,
			"version", engine.Descriptor().ModelVersion)
	}

	var mqttClient mqtt.Client
	if settings.Realtime.MQTT.Enabled {
		mqttClient = mqtt.NewClient(settings)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := mqttClient.Connect(ctx); err != nil {
			log.Warn("mqtt connect failed, publishing disabled", "error", err)
			mqttClient = nil
		} else {
			defer mqttClient.Disconnect()
		}
		cancel()
	}

	var readingsLog *slog.Logger
	if settings.Realtime.Log.Enabled {
		fileLog, closeLog, logErr := logging.NewFileLogger(settings.Realtime.Log.Path, "readings", slog.LevelInfo)
		if logErr != nil {
			log.Warn("readings log disabled", "path", settings.Realtime.Log.Path, "error", logErr)
		} else {
			readingsLog = fileLog
			defer func() { _ = closeLog() }()
		}
	}

	pipeline := New(settings, engine, mqttClient, metrics)
	pipeline.SetSink(func(e *Event) {
		fmt.Println(FormatEvent(e))
		if readingsLog != nil {
			readingsLog.Info("reading",
				"level", string(e.Level), "risk", e.Risk,
				"moisture", e.Mn, "tilt", e.Tn, "vibration", e.Vn)
		}
	})

	controller := session.NewController(serviceLogger("session"), metrics.Session, metrics.Telemetry)
	controller.OnReading = func(r *telemetry.Reading) {
		pipeline.ProcessReading(r)
	}
	controller.OnState = func(s session.Status) {
		log.Info("session state changed", "state", s.State.String(), "device", s.Device)
	}

	if err := controller.Connect(settings.Sensor.Port, settings.Sensor.BaudRate); err != nil {
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	sessionDone := make(chan struct{})
	go func() {
		controller.Wait()
		close(sessionDone)
	}()

	select {
	case <-quit:
		log.Info("received termination signal, shutting down")
		controller.Disconnect()
	case <-sessionDone:
		if status := controller.Status(); status.Err != nil {
			return status.Err
		}
	}
	return nil
}
