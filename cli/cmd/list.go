package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/awsford/deeplens-maze-solver/cli/internal/client"
	"github.com/awsford/deeplens-maze-solver/cli/pkg/output"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List mazes in the feed",
	Long:  "List the mazes currently held by the feed service, newest first",
	Example: `  mazectl list --limit 5
  mazectl list -o json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		format, _ := cmd.Flags().GetString("output")
		token := flagOr(cmd, "token", cfg.Feed.Token)

		feedClient := client.NewFeedClient(flagOr(cmd, "feed-url", cfg.Feed.URL))
		resp, err := feedClient.List(token, limit)
		if err != nil {
			return fmt.Errorf("failed to list mazes: %w", err)
		}

		table := output.NewTable([]string{"Seq", "ID", "Received", "Raw", "Solved"})
		for _, rec := range resp.Data {
			table.AddRow([]string{
				strconv.FormatUint(rec.Sequence, 10),
				rec.ID,
				rec.ReceivedAt.Local().Format(time.DateTime),
				rec.Source.Raw,
				rec.Source.Solved,
			})
		}

		if err := output.Print(format, resp, table); err != nil {
			return err
		}
		if format == output.FormatTable {
			output.Info("\nShowing %d of %d mazes", len(resp.Data), resp.Meta.Total)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().IntP("limit", "n", 20, "maximum number of mazes to show (0 = all)")
	listCmd.Flags().String("token", "", "bearer token for the feed service (overrides config)")
}
