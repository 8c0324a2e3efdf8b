package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/wangchlxt/Swarm-sub001/internal/app"
)

// queueCmd is the parent command for task queue subcommands.
var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect the task queue",
	Long: `Inspect the durable task queue that swarmd drains. Tasks are review
events, change events, comments, mail deliveries and description syncs.`,
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List undelivered tasks",
	Args:  cobra.NoArgs,
	RunE:  runQueueList,
}

var queueStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show queue statistics",
	Args:  cobra.NoArgs,
	RunE:  runQueueStats,
}

var queuePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired and old delivered tasks",
	Args:  cobra.NoArgs,
	RunE:  runQueuePurge,
}

var queueLimit int

func init() {
	queueListCmd.Flags().IntVarP(&queueLimit, "limit", "n", 50,
		"Maximum number of tasks")

	queueCmd.AddCommand(queueListCmd)
	queueCmd.AddCommand(queueStatsCmd)
	queueCmd.AddCommand(queuePurgeCmd)
}

func runQueueList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	return withApp(ctx, func(a *app.App) error {
		tasks, err := a.Queue.List(ctx, queueLimit)
		if err != nil {
			return fmt.Errorf("list tasks: %w", err)
		}

		if outputFormat == "json" {
			return outputJSON(tasks)
		}

		if len(tasks) == 0 {
			fmt.Println("Queue is empty.")
			return nil
		}

		fmt.Printf("%d undelivered task(s):\n\n", len(tasks))
		for _, t := range tasks {
			fmt.Printf("  [%d] %s %s\n", t.ID, t.Type, t.EntityID)
			fmt.Printf("       Status: %s, attempts: %d\n", t.Status,
				t.Attempts)
			if t.NotBefore.After(time.Now()) {
				fmt.Printf("       Not before: %s\n",
					t.NotBefore.Format(time.RFC3339))
			}
			if t.LastError != "" {
				fmt.Printf("       Last error: %s\n",
					badStyle.Render(t.LastError))
			}
		}

		return nil
	})
}

func runQueueStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	return withApp(ctx, func(a *app.App) error {
		stats, err := a.Queue.Stats(ctx)
		if err != nil {
			return fmt.Errorf("queue stats: %w", err)
		}

		if outputFormat == "json" {
			return outputJSON(stats)
		}

		fmt.Println(headingStyle.Render("Queue Statistics"))
		fmt.Println(strings.Repeat("-", 24))
		field("Pending", stats.PendingCount)
		field("Delivering", stats.DeliveringCount)
		field("Delivered", stats.DeliveredCount)
		field("Failed", stats.FailedCount)
		if stats.OldestPending != nil {
			age := time.Since(*stats.OldestPending).Truncate(
				time.Second,
			)
			field("Oldest", fmt.Sprintf("%s ago", age))
		}

		return nil
	})
}

func runQueuePurge(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	return withApp(ctx, func(a *app.App) error {
		n, err := a.Queue.PurgeExpired(ctx)
		if err != nil {
			return fmt.Errorf("purge tasks: %w", err)
		}

		if outputFormat == "json" {
			return outputJSON(map[string]int64{"purged": n})
		}
		fmt.Printf("Purged %d task(s)\n", n)

		return nil
	})
}
