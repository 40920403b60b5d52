package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/awsford/deeplens-maze-solver/cli/internal/generator"
	"github.com/awsford/deeplens-maze-solver/cli/pkg/output"
	"github.com/awsford/deeplens-maze-solver/common/messaging"
	natsclient "github.com/awsford/deeplens-maze-solver/common/messaging/nats"
)

type publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
	Flush(ctx context.Context) error
	Close() error
}

// newPublisher is swapped out in tests.
var newPublisher = func(url, token string) (publisher, error) {
	natsCfg := natsclient.DefaultConfig()
	natsCfg.URL = url
	natsCfg.Token = token
	natsCfg.Name = "mazectl"
	natsCfg.MaxReconnects = 0

	client, err := natsclient.NewClient(natsCfg)
	if err != nil {
		return nil, err
	}
	return client, nil
}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish a maze event",
	Long:  "Publish a single maze event, the four storage keys of one solved maze, to the message bus",
	Example: `  mazectl publish --raw 2026-10-19/abc/raw.jpg --processed 2026-10-19/abc/processed.jpg \
    --skeleton 2026-10-19/abc/skeleton.jpg --solved 2026-10-19/abc/solved.jpg`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ev := generator.MazeEvent{}
		ev.Raw, _ = cmd.Flags().GetString("raw")
		ev.Processed, _ = cmd.Flags().GetString("processed")
		ev.Skeleton, _ = cmd.Flags().GetString("skeleton")
		ev.Solved, _ = cmd.Flags().GetString("solved")
		bare, _ := cmd.Flags().GetBool("bare")

		required := []struct{ name, key string }{
			{"raw", ev.Raw}, {"processed", ev.Processed}, {"skeleton", ev.Skeleton}, {"solved", ev.Solved},
		}
		for _, r := range required {
			if r.key == "" {
				return fmt.Errorf("--%s is required", r.name)
			}
		}

		payload, err := generator.Encode(ev, bare)
		if err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}

		pub, subject, err := connect(cmd)
		if err != nil {
			return err
		}
		defer pub.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		if err := pub.Publish(ctx, subject, payload); err != nil {
			return fmt.Errorf("failed to publish event: %w", err)
		}
		if err := pub.Flush(ctx); err != nil {
			return fmt.Errorf("failed to flush: %w", err)
		}

		output.Success("Published maze event to %s", subject)
		return nil
	},
}

// connect opens a publisher against the configured broker and resolves the target subject.
func connect(cmd *cobra.Command) (publisher, string, error) {
	url := flagOr(cmd, "nats-url", cfg.NATS.URL)
	topic := flagOr(cmd, "topic", cfg.NATS.Topic)
	if topic == "" {
		topic = messaging.TopicMazeEvents
	}

	pub, err := newPublisher(url, cfg.NATS.Token)
	if err != nil {
		return nil, "", fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	return pub, messaging.TopicToSubject(topic), nil
}

func init() {
	rootCmd.AddCommand(publishCmd)

	publishCmd.Flags().String("raw", "", "storage key of the raw image")
	publishCmd.Flags().String("processed", "", "storage key of the processed image")
	publishCmd.Flags().String("skeleton", "", "storage key of the skeleton image")
	publishCmd.Flags().String("solved", "", "storage key of the solved image")
	publishCmd.Flags().Bool("bare", false, "publish the bare event object instead of the {\"value\": ...} envelope")
	publishCmd.Flags().String("topic", "", "topic to publish to (overrides config)")
}
