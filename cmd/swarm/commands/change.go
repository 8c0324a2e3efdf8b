package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/wangchlxt/Swarm-sub001/internal/app"
	"github.com/wangchlxt/Swarm-sub001/internal/review"
)

// changeCmd queues a change event, as a version control trigger would.
var changeCmd = &cobra.Command{
	Use:   "change <change-id>",
	Short: "Queue a change for review processing",
	Long: `Queue a change event for swarmd. A change whose description carries
#review, #review-<id> or [review] is put up for review; a change already
in a review updates it.`,
	Args: cobra.ExactArgs(1),
	RunE: runChange,
}

var commentCmd = &cobra.Command{
	Use:   "comment <review-id> <body>...",
	Short: "Comment on a review",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runComment,
}

func runChange(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	change, err := parseID("change", args[0])
	if err != nil {
		return err
	}

	// Without an explicit user the change owner requests the review.
	user := userName
	if user == "" {
		user = os.Getenv("SWARM_USER")
	}

	return withApp(ctx, func(a *app.App) error {
		taskID, err := a.Publisher.PublishChange(ctx, change, user)
		if err != nil {
			return err
		}

		if outputFormat == "json" {
			return outputJSON(map[string]int64{"task": taskID})
		}
		fmt.Printf("Queued change %d as task %d\n", change, taskID)

		return nil
	})
}

func runComment(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	id, err := parseID("review", args[0])
	if err != nil {
		return err
	}
	user, err := currentUser()
	if err != nil {
		return err
	}
	body := strings.Join(args[1:], " ")

	return withApp(ctx, func(a *app.App) error {
		// Fail early on unknown reviews rather than in the worker.
		if _, err := review.AskGet(ctx, a.ReviewActor, id); err != nil {
			return err
		}

		taskID, err := a.Publisher.PublishComment(ctx, id, user, body)
		if err != nil {
			return err
		}

		if outputFormat == "json" {
			return outputJSON(map[string]int64{"task": taskID})
		}
		fmt.Printf("Queued comment on review %d as task %d\n", id,
			taskID)

		return nil
	})
}
