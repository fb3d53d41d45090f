package realtime

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/terraguard/terraguard-go/internal/conf"
	"github.com/terraguard/terraguard-go/internal/monitor"
)

// Command creates a new command for real-time sensor monitoring.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "realtime",
		Short: "Monitor sensor telemetry in realtime mode",
		Long:  "Connect to the sensor over the serial port and score incoming readings until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return monitor.RunRealtime(settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

// setupFlags configures flags specific to the realtime command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().BoolVar(&settings.Realtime.Telemetry.Enabled, "telemetry", viper.GetBool("realtime.telemetry.enabled"), "Enable Prometheus telemetry endpoint")
	cmd.Flags().StringVar(&settings.Realtime.Telemetry.Listen, "listen", viper.GetString("realtime.telemetry.listen"), "Listen address and port of telemetry endpoint")
	cmd.Flags().BoolVar(&settings.Realtime.MQTT.Enabled, "mqtt", viper.GetBool("realtime.mqtt.enabled"), "Enable MQTT publishing of readings")
	cmd.Flags().StringVar(&settings.Realtime.MQTT.Broker, "broker", viper.GetString("realtime.mqtt.broker"), "MQTT broker URL")
	cmd.Flags().StringVar(&settings.Realtime.MQTT.Topic, "topic", viper.GetString("realtime.mqtt.topic"), "MQTT topic for accepted readings")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}

	return nil
}
