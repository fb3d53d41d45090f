package predict

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/terraguard/terraguard-go/internal/conf"
	"github.com/terraguard/terraguard-go/internal/inference"
)

// Command creates a command running a single inference from the CLI.
func Command(settings *conf.Settings) *cobra.Command {
	var mn, tn, vn float64

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Run one model inference on normalized sensor values",
		Long:  "Load the model weights and print the risk prediction for the given normalized moisture, tilt and vibration values.",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine := inference.NewEngine(settings.Model.Source)

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := engine.Load(ctx); err != nil {
				return err
			}

			prediction, err := engine.Predict(mn, tn, vn)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(prediction, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.Flags().Float64Var(&mn, "moisture", 0, "Normalized moisture in [0,1]")
	cmd.Flags().Float64Var(&tn, "tilt", 0, "Normalized tilt in [0,1]")
	cmd.Flags().Float64Var(&vn, "vibration", 0, "Normalized vibration in [0,1]")

	return cmd
}
