package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wangchlxt/Swarm-sub001/internal/activity"
	"github.com/wangchlxt/Swarm-sub001/internal/actorutil"
	"github.com/wangchlxt/Swarm-sub001/internal/app"
)

// activityCmd is the parent command for activity subcommands.
var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Read the activity stream",
}

var activityListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent activity",
	Long: `List recent activity, newest first. --stream restricts the list to
one stream: review-<id>, user-<id>, personal-<id> or project-<id>.`,
	Args: cobra.NoArgs,
	RunE: runActivityList,
}

var (
	activityStream string
	activityLimit  int
)

func init() {
	activityListCmd.Flags().StringVarP(&activityStream, "stream", "s", "",
		"Stream to list")
	activityListCmd.Flags().IntVarP(&activityLimit, "limit", "n", 20,
		"Maximum number of records")

	activityCmd.AddCommand(activityListCmd)
}

func runActivityList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var req activity.ActivityRequest = activity.ListRecentRequest{
		Limit: activityLimit,
	}
	if activityStream != "" {
		req = activity.ListStreamRequest{
			Stream: activityStream,
			Limit:  activityLimit,
		}
	}

	return withApp(ctx, func(a *app.App) error {
		resp, err := actorutil.AskAwait(ctx, a.Activity, req)
		if err != nil {
			return err
		}

		list, ok := resp.(activity.ListResponse)
		if !ok {
			return fmt.Errorf("unexpected response %T", resp)
		}
		if list.Error != nil {
			return list.Error
		}

		if outputFormat == "json" {
			return outputJSON(list.Records)
		}

		if len(list.Records) == 0 {
			fmt.Println("No activity.")
			return nil
		}

		for _, rec := range list.Records {
			fmt.Printf("%s  %s\n",
				mutedStyle.Render(rec.Time.Format("2006-01-02 15:04")),
				rec.Text())
			if rec.Description != "" {
				fmt.Printf("                  %s\n",
					mutedStyle.Render(firstLine(rec.Description)))
			}
		}

		return nil
	})
}
