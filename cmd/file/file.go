package file

import (
	"github.com/spf13/cobra"

	"github.com/terraguard/terraguard-go/internal/conf"
	"github.com/terraguard/terraguard-go/internal/monitor"
)

// Command creates a command replaying a captured telemetry file.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "file [capture.log]",
		Short: "Replay a captured telemetry file",
		Long:  "Run a raw serial capture through the same pipeline as realtime mode and print a summary.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return monitor.RunFile(settings, args[0])
		},
	}
}
