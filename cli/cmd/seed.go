package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/awsford/deeplens-maze-solver/cli/internal/generator"
	"github.com/awsford/deeplens-maze-solver/cli/pkg/output"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Publish generated maze events",
	Long: `Publish a series of generated maze events, keyed the way the solver
uploads its images, so the feed can be exercised without the solver.`,
	Example: `  mazectl seed --count 20 --interval 500ms
  mazectl seed --count 5 --seed 42 --prefix mazes/`,
	RunE: func(cmd *cobra.Command, args []string) error {
		count, _ := cmd.Flags().GetInt("count")
		interval, _ := cmd.Flags().GetDuration("interval")
		seed, _ := cmd.Flags().GetInt64("seed")
		prefix, _ := cmd.Flags().GetString("prefix")
		bare, _ := cmd.Flags().GetBool("bare")

		if count <= 0 {
			return fmt.Errorf("--count must be positive")
		}
		if seed == 0 {
			seed = time.Now().UnixNano()
		}

		pub, subject, err := connect(cmd)
		if err != nil {
			return err
		}
		defer pub.Close()

		ctx := cmd.Context()
		gen := generator.New(seed, prefix)

		for i := 0; i < count; i++ {
			if i > 0 && interval > 0 {
				select {
				case <-ctx.Done():
					output.Warn("Interrupted after %d of %d events", i, count)
					return pub.Flush(ctx)
				case <-time.After(interval):
				}
			}

			ev := gen.Event()
			payload, err := generator.Encode(ev, bare)
			if err != nil {
				return fmt.Errorf("failed to encode event: %w", err)
			}
			if err := pub.Publish(ctx, subject, payload); err != nil {
				return fmt.Errorf("failed to publish event %d: %w", i+1, err)
			}
			output.Info("%3d  %s", i+1, ev.Raw)
		}

		if err := pub.Flush(ctx); err != nil {
			return fmt.Errorf("failed to flush: %w", err)
		}

		output.Success("Published %d maze events to %s", count, subject)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().IntP("count", "c", 10, "number of events to publish")
	seedCmd.Flags().Duration("interval", 0, "delay between events (e.g. 500ms, 2s)")
	seedCmd.Flags().Int64("seed", 0, "random seed for reproducible keys (0 = time based)")
	seedCmd.Flags().String("prefix", "", "key prefix prepended to every generated key")
	seedCmd.Flags().Bool("bare", false, "publish bare event objects instead of the {\"value\": ...} envelope")
	seedCmd.Flags().String("topic", "", "topic to publish to (overrides config)")
}
