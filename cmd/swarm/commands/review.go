package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/spf13/cobra"
	"github.com/wangchlxt/Swarm-sub001/internal/app"
	"github.com/wangchlxt/Swarm-sub001/internal/review"
)

// reviewCmd is the parent command for review subcommands.
var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Inspect and edit reviews",
}

var reviewListCmd = &cobra.Command{
	Use:   "list",
	Short: "List reviews, newest first",
	Args:  cobra.NoArgs,
	RunE:  runReviewList,
}

var reviewShowCmd = &cobra.Command{
	Use:   "show <review-id>...",
	Short: "Show one or more reviews",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runReviewShow,
}

var reviewAttachCmd = &cobra.Command{
	Use:   "attach <change-id>",
	Short: "Put a change up for review",
	Long: `Attach a change to a review. Without --review the change joins the
review already holding it, or a new review is started.

Reviewers are given as user or group ids with an optional suffix:
":required" for a required vote, ":one" for a group where one up vote is
enough.`,
	Args: cobra.ExactArgs(1),
	RunE: runReviewAttach,
}

var reviewVoteCmd = &cobra.Command{
	Use:   "vote <review-id> up|down|clear",
	Short: "Vote on a review",
	Args:  cobra.ExactArgs(2),
	RunE:  runReviewVote,
}

var reviewStateCmd = &cobra.Command{
	Use:   "state <review-id> <state>",
	Short: "Move a review to a new state",
	Long: `Move a review to needsReview, needsRevision, approved, rejected or
archived. approved:commit approves and commits the head version.`,
	Args: cobra.ExactArgs(2),
	RunE: runReviewState,
}

var reviewJoinCmd = &cobra.Command{
	Use:   "join <review-id>",
	Short: "Join a review as a reviewer",
	Args:  cobra.ExactArgs(1),
	RunE:  runReviewJoin,
}

var reviewLeaveCmd = &cobra.Command{
	Use:   "leave <review-id>",
	Short: "Leave a review",
	Args:  cobra.ExactArgs(1),
	RunE:  runReviewLeave,
}

var reviewReadCmd = &cobra.Command{
	Use:   "read <review-id>",
	Short: "Mark the head version of a review read",
	Args:  cobra.ExactArgs(1),
	RunE:  runReviewRead,
}

var reviewRemoveVersionCmd = &cobra.Command{
	Use:   "remove-version <review-id> <version>",
	Short: "Remove a version from a review",
	Long: `Remove one version, numbered from 1, from a review. The last
remaining version cannot be removed.`,
	Args: cobra.ExactArgs(2),
	RunE: runReviewRemoveVersion,
}

var reviewTransitionsCmd = &cobra.Command{
	Use:   "transitions <review-id>",
	Short: "List the states you may move a review to",
	Args:  cobra.ExactArgs(1),
	RunE:  runReviewTransitions,
}

var reviewFilesCmd = &cobra.Command{
	Use:   "files <review-id>",
	Short: "List the files affected by a review version",
	Args:  cobra.ExactArgs(1),
	RunE:  runReviewFiles,
}

var reviewCommitCmd = &cobra.Command{
	Use:   "commit <review-id>",
	Short: "Commit the head version of a review",
	Args:  cobra.ExactArgs(1),
	RunE:  runReviewCommit,
}

var reviewStatusCmd = &cobra.Command{
	Use:   "status <review-id> tests|deploy pass|fail|running",
	Short: "Report a test or deploy result",
	Args:  cobra.ExactArgs(3),
	RunE:  runReviewStatus,
}

var (
	listLimit  int
	listOffset int

	attachReview      int64
	attachReviewers   []string
	attachDescription string

	stateDescription string
	commitJobs       []string
	commitFixStatus  string

	filesRight   int64
	filesLeft    int64
	filesVersion int
	filesAgainst int
	filesMax     int

	statusToken string
	statusURL   string

	quietEdit  bool
	markUnread bool
)

func init() {
	reviewListCmd.Flags().IntVarP(&listLimit, "limit", "n", 20,
		"Maximum number of reviews to list")
	reviewListCmd.Flags().IntVar(&listOffset, "offset", 0,
		"Number of reviews to skip")

	reviewAttachCmd.Flags().Int64Var(&attachReview, "review", 0,
		"Review to attach the change to")
	reviewAttachCmd.Flags().StringSliceVarP(&attachReviewers, "reviewer",
		"r", nil, "Reviewer id[:required|:one], repeatable")
	reviewAttachCmd.Flags().StringVar(&attachDescription, "description",
		"", "Description for a new review")

	for _, c := range []*cobra.Command{reviewStateCmd, reviewCommitCmd} {
		c.Flags().StringVar(&stateDescription, "description", "",
			"Commit description (default: review description)")
		c.Flags().StringSliceVar(&commitJobs, "job", nil,
			"Job to fix on commit, repeatable")
		c.Flags().StringVar(&commitFixStatus, "fix-status", "",
			"Job status to set on commit")
	}

	for _, c := range []*cobra.Command{
		reviewVoteCmd, reviewStateCmd, reviewJoinCmd, reviewLeaveCmd,
	} {
		c.Flags().BoolVarP(&quietEdit, "quiet", "q", false,
			"Record activity without sending mail")
	}

	reviewFilesCmd.Flags().Int64Var(&filesRight, "right", 0,
		"Change of the version to list (default: head)")
	reviewFilesCmd.Flags().Int64Var(&filesLeft, "left", 0,
		"Change of an earlier version to diff against")
	reviewFilesCmd.Flags().IntVar(&filesVersion, "version", 0,
		"Version number to list, overrides --right")
	reviewFilesCmd.Flags().IntVar(&filesAgainst, "against", 0,
		"Earlier version number to diff against, overrides --left")
	reviewFilesCmd.Flags().IntVar(&filesMax, "max", 0,
		"Maximum number of files (default: config)")

	reviewStatusCmd.Flags().StringVar(&statusToken, "token", "",
		"Review token passed to the webhook")
	reviewStatusCmd.Flags().StringVar(&statusURL, "url", "",
		"Link to the job output")
	_ = reviewStatusCmd.MarkFlagRequired("token")

	reviewReadCmd.Flags().BoolVar(&markUnread, "unread", false,
		"Mark the head version unread instead")

	reviewCmd.AddCommand(reviewListCmd)
	reviewCmd.AddCommand(reviewShowCmd)
	reviewCmd.AddCommand(reviewAttachCmd)
	reviewCmd.AddCommand(reviewVoteCmd)
	reviewCmd.AddCommand(reviewStateCmd)
	reviewCmd.AddCommand(reviewJoinCmd)
	reviewCmd.AddCommand(reviewLeaveCmd)
	reviewCmd.AddCommand(reviewReadCmd)
	reviewCmd.AddCommand(reviewRemoveVersionCmd)
	reviewCmd.AddCommand(reviewTransitionsCmd)
	reviewCmd.AddCommand(reviewFilesCmd)
	reviewCmd.AddCommand(reviewCommitCmd)
	reviewCmd.AddCommand(reviewStatusCmd)
}

// reviewView is the JSON form of a review. The callback token is left out.
type reviewView struct {
	ID int64 `json:"id"`
	review.Snapshot

	Type         review.Type         `json:"type"`
	Pending      bool                `json:"pending"`
	Changes      []int64             `json:"changes"`
	Commits      []int64             `json:"commits"`
	CommitStatus review.CommitStatus `json:"commitStatus"`
	Created      time.Time           `json:"created"`
	Updated      time.Time           `json:"updated"`
}

func newReviewView(r *review.Review) reviewView {
	return reviewView{
		ID:           r.ID,
		Snapshot:     r.Snapshot(),
		Type:         r.Type,
		Pending:      r.Pending,
		Changes:      r.Changes,
		Commits:      r.Commits,
		CommitStatus: r.CommitStatus,
		Created:      r.Created,
		Updated:      r.Updated,
	}
}

func runReviewList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	return withApp(ctx, func(a *app.App) error {
		reviews, err := review.AskList(
			ctx, a.ReviewActor, listLimit, listOffset,
		)
		if err != nil {
			return err
		}

		if outputFormat == "json" {
			views := make([]reviewView, 0, len(reviews))
			for _, r := range reviews {
				views = append(views, newReviewView(r))
			}

			return outputJSON(views)
		}

		if len(reviews) == 0 {
			fmt.Println("No reviews.")
			return nil
		}

		for _, r := range reviews {
			fmt.Printf("%-6d %-14s %-10s tests:%s  %s\n", r.ID,
				r.State, r.Author, statusText(r.TestStatus),
				firstLine(r.Description))
		}

		return nil
	})
}

func runReviewShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	ids := make([]int64, len(args))
	for i, arg := range args {
		id, err := parseID("review", arg)
		if err != nil {
			return err
		}
		ids[i] = id
	}

	return withApp(ctx, func(a *app.App) error {
		reviews, err := review.AskGetMany(ctx, a.ReviewActor, ids)
		if err != nil {
			return err
		}

		if outputFormat == "json" && len(reviews) > 1 {
			views := make([]reviewView, len(reviews))
			for i, r := range reviews {
				views[i] = newReviewView(r)
			}

			return outputJSON(views)
		}

		for i, r := range reviews {
			if i > 0 {
				fmt.Println()
			}
			if err := printReview(r); err != nil {
				return err
			}
		}

		return nil
	})
}

func printReview(r *review.Review) error {
	if outputFormat == "json" {
		return outputJSON(newReviewView(r))
	}

	fmt.Println(headingStyle.Render(fmt.Sprintf("Review %d", r.ID)))
	field("State", r.State)
	field("Author", r.Author)
	field("Changes", joinIDs(r.Changes))
	if len(r.Commits) > 0 {
		field("Commits", joinIDs(r.Commits))
	}
	field("Tests", statusText(r.TestStatus))
	field("Deploy", statusText(r.DeployStatus))
	if r.CommitStatus.Error != "" {
		field("Commit", badStyle.Render(r.CommitStatus.Error))
	}

	fmt.Println()
	fmt.Println(headingStyle.Render("Participants"))
	for _, p := range r.Participants {
		fmt.Printf("  %-20s %s\n", p.ID, participantText(p))
	}

	fmt.Println()
	fmt.Println(headingStyle.Render("Versions"))
	for i, v := range r.Versions {
		kind := "committed"
		if v.Pending {
			kind = "shelved"
		}
		fmt.Printf("  #%-3d change %-8d %-9s %s\n", i+1, v.Change,
			kind, mutedStyle.Render(v.User))
	}

	fmt.Println()
	fmt.Println(renderMarkdown(r.Description, 80))

	return nil
}

func participantText(p review.Participant) string {
	var parts []string
	switch p.Data.Required {
	case review.RequiredAll:
		parts = append(parts, "required")
	case review.RequiredQuorumOne:
		parts = append(parts, "required (one)")
	}

	p.Data.Vote.WhenSome(func(v review.Vote) {
		switch v.Value {
		case review.VoteUp:
			parts = append(parts, okStyle.Render(
				fmt.Sprintf("+1 on #%d", v.Version)))
		case review.VoteDown:
			parts = append(parts, badStyle.Render(
				fmt.Sprintf("-1 on #%d", v.Version)))
		}
	})

	if p.Data.NotificationsDisabled {
		parts = append(parts, mutedStyle.Render("muted"))
	}

	return strings.Join(parts, ", ")
}

// parseReviewers parses "id[:required|:one]" reviewer flags.
func parseReviewers(specs []string) (map[string]review.RequiredFlag, error) {
	if len(specs) == 0 {
		return nil, nil
	}

	out := make(map[string]review.RequiredFlag, len(specs))
	for _, spec := range specs {
		id, suffix, _ := strings.Cut(spec, ":")
		if id == "" {
			return nil, fmt.Errorf("invalid reviewer %q", spec)
		}

		switch suffix {
		case "":
			out[id] = review.RequiredNone
		case "required":
			out[id] = review.RequiredAll
		case "one":
			out[id] = review.RequiredQuorumOne
		default:
			return nil, fmt.Errorf("invalid reviewer %q: unknown "+
				"suffix %q", spec, suffix)
		}
	}

	return out, nil
}

func runReviewAttach(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	change, err := parseID("change", args[0])
	if err != nil {
		return err
	}
	user, err := currentUser()
	if err != nil {
		return err
	}
	reviewers, err := parseReviewers(attachReviewers)
	if err != nil {
		return err
	}

	req := review.AttachRequest{
		Change:    change,
		Reviewers: reviewers,
		User:      user,
	}
	if attachReview > 0 {
		req.Review = fn.Some(attachReview)
	}
	if attachDescription != "" {
		req.Description = fn.Some(attachDescription)
	}

	return withApp(ctx, func(a *app.App) error {
		r, err := review.AskAttach(ctx, a.ReviewActor, req)
		if err != nil {
			return err
		}

		return printReview(r)
	})
}

// runEdit applies an edit as the current user and prints the result.
func runEdit(ctx context.Context, idArg string,
	build func(req *review.EditRequest)) error {

	id, err := parseID("review", idArg)
	if err != nil {
		return err
	}
	user, err := currentUser()
	if err != nil {
		return err
	}

	req := review.EditRequest{ID: id, User: user, Quiet: quietEdit}
	build(&req)

	return withApp(ctx, func(a *app.App) error {
		res, err := review.AskEdit(ctx, a.ReviewActor, req)
		if err != nil {
			return err
		}

		res.Committed.WhenSome(func(change int64) {
			if outputFormat != "json" {
				fmt.Printf("Committed as change %d\n", change)
			}
		})

		return printReview(res.Review)
	})
}

func runReviewVote(cmd *cobra.Command, args []string) error {
	var vote int
	switch args[1] {
	case "up":
		vote = review.VoteUp
	case "down":
		vote = review.VoteDown
	case "clear":
		vote = review.VoteClear
	default:
		return fmt.Errorf("invalid vote %q: use up, down or clear",
			args[1])
	}

	return runEdit(cmd.Context(), args[0], func(req *review.EditRequest) {
		req.Vote = fn.Some(vote)
	})
}

func runReviewState(cmd *cobra.Command, args []string) error {
	state := review.State(args[1])
	if !state.Valid() && state != review.StateApprovedCommit {
		return fmt.Errorf("invalid state %q", args[1])
	}

	return runEdit(cmd.Context(), args[0], func(req *review.EditRequest) {
		req.State = fn.Some(state)
		req.Commit = commitOptions()
	})
}

func runReviewJoin(cmd *cobra.Command, args []string) error {
	return runEdit(cmd.Context(), args[0], func(req *review.EditRequest) {
		req.Join = true
	})
}

func runReviewLeave(cmd *cobra.Command, args []string) error {
	return runEdit(cmd.Context(), args[0], func(req *review.EditRequest) {
		req.Leave = true
	})
}

func runReviewRead(cmd *cobra.Command, args []string) error {
	return runEdit(cmd.Context(), args[0], func(req *review.EditRequest) {
		req.MarkRead = fn.Some(!markUnread)
	})
}

func runReviewRemoveVersion(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	id, err := parseID("review", args[0])
	if err != nil {
		return err
	}
	version, err := strconv.Atoi(args[1])
	if err != nil || version < 1 {
		return fmt.Errorf("invalid version %q", args[1])
	}
	user, err := currentUser()
	if err != nil {
		return err
	}

	return withApp(ctx, func(a *app.App) error {
		r, err := review.AskRemoveVersion(
			ctx, a.ReviewActor, review.RemoveVersionRequest{
				ID:      id,
				Version: version,
				User:    user,
			},
		)
		if err != nil {
			return err
		}

		return printReview(r)
	})
}

func commitOptions() review.CommitOptions {
	return review.CommitOptions{
		Description: stateDescription,
		Jobs:        commitJobs,
		FixStatus:   commitFixStatus,
	}
}

func runReviewTransitions(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	id, err := parseID("review", args[0])
	if err != nil {
		return err
	}
	user, err := currentUser()
	if err != nil {
		return err
	}

	return withApp(ctx, func(a *app.App) error {
		r, err := review.AskGet(ctx, a.ReviewActor, id)
		if err != nil {
			return err
		}

		states, allowed := a.Reviews.Transitions(user, r)
		if outputFormat == "json" {
			return outputJSON(map[string]any{
				"transitions":   states,
				"canTransition": allowed,
			})
		}

		if !allowed || len(states) == 0 {
			fmt.Println("No transitions available.")
			return nil
		}
		for _, s := range states {
			fmt.Println(s)
		}

		return nil
	})
}

func runReviewFiles(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	id, err := parseID("review", args[0])
	if err != nil {
		return err
	}

	return withApp(ctx, func(a *app.App) error {
		r, err := review.AskGet(ctx, a.ReviewActor, id)
		if err != nil {
			return err
		}

		right := filesRight
		if right == 0 {
			head, ok := r.HeadVersion()
			if !ok {
				return fmt.Errorf("review %d has no versions", id)
			}
			right = head.Change
		}

		left := fn.None[int64]()
		if filesLeft > 0 {
			left = fn.Some(filesLeft)
		}

		// Version numbers pick archived revisions, which change ids
		// cannot tell apart once a shelf is re-shelved.
		if filesVersion > 0 {
			v, err := versionAt(r, filesVersion)
			if err != nil {
				return err
			}
			right = v.DiffChange()
		}
		if filesAgainst > 0 {
			v, err := versionAt(r, filesAgainst)
			if err != nil {
				return err
			}
			left = fn.Some(v.DiffChange())
		}

		limit := filesMax
		if limit == 0 {
			limit = a.Config().Review.MaxFiles
		}

		files, err := a.Reconcile.AffectedFiles(ctx, r, right, left,
			limit)
		if err != nil {
			return err
		}

		truncated := limit > 0 && len(files) > limit
		if truncated {
			files = files[:limit]
		}

		if outputFormat == "json" {
			return outputJSON(map[string]any{
				"files":     files,
				"truncated": truncated,
			})
		}

		for _, f := range files {
			fmt.Printf("%-7s %s %s\n", f.Action, f.DepotFile,
				mutedStyle.Render(f.LeftAnchor+" "+f.RightAnchor))
		}
		if truncated {
			fmt.Println(mutedStyle.Render(fmt.Sprintf(
				"(showing first %d files)", limit)))
		}

		return nil
	})
}

func runReviewCommit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	id, err := parseID("review", args[0])
	if err != nil {
		return err
	}
	user, err := currentUser()
	if err != nil {
		return err
	}

	return withApp(ctx, func(a *app.App) error {
		res, err := review.AskCommit(ctx, a.ReviewActor,
			review.CommitRequest{
				ID:            id,
				User:          user,
				CommitOptions: commitOptions(),
			},
		)
		if err != nil {
			return err
		}

		if outputFormat != "json" {
			fmt.Printf("Committed as change %d\n", res.Change)
		}

		return printReview(res.Review)
	})
}

func runReviewStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	id, err := parseID("review", args[0])
	if err != nil {
		return err
	}

	status := args[2]
	switch status {
	case review.StatusPass, review.StatusFail, review.StatusRunning:
	default:
		return fmt.Errorf("invalid status %q", status)
	}

	msg := review.StatusMsg{
		ID:      id,
		Token:   statusToken,
		Status:  status,
		Details: review.StatusDetails{URL: statusURL},
	}
	switch args[1] {
	case "tests":
		msg.Kind = review.StatusKindTest
	case "deploy":
		msg.Kind = review.StatusKindDeploy
	default:
		return fmt.Errorf("invalid status kind %q: use tests or deploy",
			args[1])
	}

	return withApp(ctx, func(a *app.App) error {
		r, err := review.AskStatus(ctx, a.ReviewActor, msg)
		if err != nil {
			return err
		}

		return printReview(r)
	})
}

// versionAt returns version n, numbered from 1, of r.
func versionAt(r *review.Review, n int) (review.Version, error) {
	if n < 1 || n > len(r.Versions) {
		return review.Version{}, fmt.Errorf("review %d has no version "+
			"%d", r.ID, n)
	}

	return r.Versions[n-1], nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	if len(line) > 60 {
		line = line[:57] + "..."
	}

	return line
}

func joinIDs(ids []int64) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprint(id))
	}

	return strings.Join(parts, ", ")
}
