package conf

import (
	"fmt"
	"strings"

	"github.com/terraguard/terraguard-go/internal/errors"
)

// ValidateSettings checks the loaded settings for obvious mistakes. It
// collects all problems rather than stopping at the first one.
func ValidateSettings(settings *Settings) error {
	var problems []string

	if settings.Sensor.BaudRate <= 0 {
		problems = append(problems, fmt.Sprintf("sensor.baudrate must be positive, got %d", settings.Sensor.BaudRate))
	}

	if settings.Model.Source == "" {
		problems = append(problems, "model.source must not be empty")
	}

	if settings.Realtime.Telemetry.Enabled && settings.Realtime.Telemetry.Listen == "" {
		problems = append(problems, "realtime.telemetry.listen must be set when telemetry is enabled")
	}

	if settings.Realtime.MQTT.Enabled {
		if settings.Realtime.MQTT.Broker == "" {
			problems = append(problems, "realtime.mqtt.broker must be set when MQTT is enabled")
		}
		if settings.Realtime.MQTT.Topic == "" {
			problems = append(problems, "realtime.mqtt.topic must be set when MQTT is enabled")
		}
	}

	if len(problems) > 0 {
		return errors.Newf("invalid configuration: %s", strings.Join(problems, "; ")).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}

	return nil
}
