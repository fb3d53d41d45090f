// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "TerraGuard-Go")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "terraguard.log")

	viper.SetDefault("sensor.port", "")
	viper.SetDefault("sensor.baudrate", 9600)

	viper.SetDefault("model.source", "model_weights.json")

	viper.SetDefault("realtime.log.enabled", false)
	viper.SetDefault("realtime.log.path", "readings.txt")

	viper.SetDefault("realtime.telemetry.enabled", false)
	viper.SetDefault("realtime.telemetry.listen", "0.0.0.0:8090")

	viper.SetDefault("realtime.mqtt.enabled", false)
	viper.SetDefault("realtime.mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("realtime.mqtt.topic", "terraguard/readings")
	viper.SetDefault("realtime.mqtt.username", "")
	viper.SetDefault("realtime.mqtt.password", "")
	viper.SetDefault("realtime.mqtt.retain", false)
}
