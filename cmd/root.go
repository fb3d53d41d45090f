package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/terraguard/terraguard-go/cmd/file"
	"github.com/terraguard/terraguard-go/cmd/predict"
	"github.com/terraguard/terraguard-go/cmd/realtime"
	"github.com/terraguard/terraguard-go/internal/conf"
	"github.com/terraguard/terraguard-go/internal/logging"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "terraguard",
		Short: "TerraGuard landslide monitor CLI",
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, settings); err != nil {
		cobra.CheckErr(err)
	}

	subcommands := []*cobra.Command{
		realtime.Command(settings),
		file.Command(settings),
		predict.Command(settings),
	}
	rootCmd.AddCommand(subcommands...)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if settings.Debug {
			logging.SetLevel(slog.LevelDebug)
		}
		return conf.ValidateSettings(settings)
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().StringVarP(&settings.Sensor.Port, "port", "p", viper.GetString("sensor.port"), "Serial device path, empty to scan available ports")
	rootCmd.PersistentFlags().IntVar(&settings.Sensor.BaudRate, "baudrate", viper.GetInt("sensor.baudrate"), "Serial baud rate")
	rootCmd.PersistentFlags().StringVarP(&settings.Model.Source, "model", "m", viper.GetString("model.source"), "Path or URL of the model weights JSON")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}

	return nil
}
