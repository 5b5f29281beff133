package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/reviewbot/internal/models"
	"github.com/joescharf/reviewbot/internal/output"
	"github.com/joescharf/reviewbot/internal/review"
	"github.com/joescharf/reviewbot/internal/store"
)

var (
	reviewTitle     string
	reviewDesc      string
	reviewReviewers []string
	reviewChannel   string
	reviewInChannel string
	reviewClient    string
	reviewURL       string
	reviewDeadline  string
	reviewStatus    string
	reviewComment   string
	reviewMine      bool
	reviewSince     time.Duration
	reviewChanges   bool
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Create reviews and record feedback",
	Long:  "Request reviews, record reviewer verdicts and move reviews through their statuses.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewListRun()
	},
}

var reviewCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Request a review",
	Long: `Request a review from one or more reviewers.

Reviewers are given as --reviewer id or --reviewer id:Name (repeatable).
Without --deadline the review is due in three days at the end of the workday.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewCreateRun()
	},
}

var reviewListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List reviews",
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewListRun()
	},
}

var reviewShowCmd = &cobra.Command{
	Use:   "show <review-id>",
	Short: "Show review details and feedback history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewShowRun(args[0])
	},
}

var reviewFeedbackCmd = &cobra.Command{
	Use:   "feedback <review-id>",
	Short: "Record your verdict on a review",
	Long:  "Record feedback as an assigned reviewer. Use --changes to request changes; the default verdict is approved.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		status := models.FeedbackApproved
		if reviewChanges {
			status = models.FeedbackRequestedChanges
		}
		return reviewFeedbackRun(args[0], status)
	},
}

var reviewApproveCmd = &cobra.Command{
	Use:   "approve <review-id>",
	Short: "Approve a review",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewApproveRun(args[0])
	},
}

var reviewStatusCmd = &cobra.Command{
	Use:   "status <review-id> <status>",
	Short: "Manually set a review's status",
	Long:  "Move a review to draft, design, in_review, approved or published. Only the creator or an assigned reviewer may do this.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewStatusRun(args[0], args[1])
	},
}

func init() {
	reviewCreateCmd.Flags().StringVar(&reviewTitle, "title", "", "Review title (required)")
	reviewCreateCmd.Flags().StringVar(&reviewDesc, "desc", "", "What should be reviewed")
	reviewCreateCmd.Flags().StringSliceVarP(&reviewReviewers, "reviewer", "r", nil, "Reviewer as id or id:Name (repeatable, required)")
	reviewCreateCmd.Flags().StringVar(&reviewChannel, "channel", "cli", "Origin channel id")
	reviewCreateCmd.Flags().StringVar(&reviewClient, "client", "", "Client label")
	reviewCreateCmd.Flags().StringVar(&reviewURL, "url", "", "Link to the material under review")
	reviewCreateCmd.Flags().StringVar(&reviewDeadline, "deadline", "", "Deadline: YYYY-MM-DD or YYYY-MM-DD HH:MM")
	reviewCreateCmd.Flags().StringVar(&reviewStatus, "status", "", "Initial status (default in_review)")
	_ = reviewCreateCmd.MarkFlagRequired("title")
	_ = reviewCreateCmd.MarkFlagRequired("reviewer")

	reviewListCmd.Flags().StringVar(&reviewStatus, "status", "", "Filter by status")
	reviewListCmd.Flags().StringVar(&reviewClient, "client", "", "Filter by client")
	reviewListCmd.Flags().StringVar(&reviewInChannel, "channel", "", "Filter by origin channel")
	reviewListCmd.Flags().BoolVar(&reviewMine, "mine", false, "Only reviews assigned to you")
	reviewListCmd.Flags().DurationVar(&reviewSince, "since", 0, "Only reviews with activity within this window (e.g. 168h)")

	reviewFeedbackCmd.Flags().StringVarP(&reviewComment, "comment", "m", "", "Feedback comment")
	reviewFeedbackCmd.Flags().BoolVar(&reviewChanges, "changes", false, "Request changes instead of approving")

	reviewApproveCmd.Flags().StringVarP(&reviewComment, "comment", "m", "", "Approval comment")

	reviewCmd.AddCommand(reviewCreateCmd)
	reviewCmd.AddCommand(reviewListCmd)
	reviewCmd.AddCommand(reviewShowCmd)
	reviewCmd.AddCommand(reviewFeedbackCmd)
	reviewCmd.AddCommand(reviewApproveCmd)
	reviewCmd.AddCommand(reviewStatusCmd)
	rootCmd.AddCommand(reviewCmd)
}

// parseParty reads "id" or "id:Name".
func parseParty(raw string) models.Party {
	id, name, _ := strings.Cut(strings.TrimSpace(raw), ":")
	return models.Party{ID: strings.TrimSpace(id), Name: strings.TrimSpace(name)}
}

func reviewCreateRun() error {
	reviews, _, err := getServices()
	if err != nil {
		return err
	}
	creator, err := currentActor()
	if err != nil {
		return err
	}

	in := review.CreateInput{
		Title:       reviewTitle,
		Description: reviewDesc,
		Creator:     creator,
		Channel:     models.Party{ID: reviewChannel},
		Client:      reviewClient,
		URL:         reviewURL,
		Status:      reviewStatus,
	}
	for _, raw := range reviewReviewers {
		in.Reviewers = append(in.Reviewers, parseParty(raw))
	}
	if reviewDeadline != "" {
		due, err := reviews.Policy().Parse(reviewDeadline)
		if err != nil {
			return err
		}
		in.Deadline = &due
	}

	if dryRun {
		ui.DryRunMsg("Would request review %q from %d reviewer(s)", reviewTitle, len(in.Reviewers))
		return nil
	}

	ctx, cancel := dbContext()
	defer cancel()
	r, err := reviews.CreateReview(ctx, in)
	if err != nil {
		return err
	}
	reviews.Announce(ctx, r)

	ui.Success("Created review %s: %s (due %s)", output.Cyan(shortID(r.ReviewID)), r.Title, output.Due(r.Deadline, time.Now()))
	return nil
}

func reviewListRun() error {
	reviews, _, err := getServices()
	if err != nil {
		return err
	}

	filter := store.ReviewListFilter{
		Client:    reviewClient,
		ChannelID: reviewInChannel,
	}
	if reviewStatus != "" {
		status, err := models.ParseReviewStatus(reviewStatus)
		if err != nil {
			return err
		}
		filter.Status = status
	}
	if reviewMine {
		me, err := currentActor()
		if err != nil {
			return err
		}
		filter.ReviewerID = me.ID
	}
	if reviewSince > 0 {
		since := time.Now().Add(-reviewSince)
		filter.ActiveSince = &since
	}

	ctx, cancel := dbContext()
	defer cancel()
	list, err := reviews.ListReviews(ctx, filter)
	if err != nil {
		return err
	}

	if len(list) == 0 {
		ui.Info("No reviews found.")
		return nil
	}

	now := time.Now()
	table := ui.Table([]string{"ID", "Title", "Client", "Status", "Approvals", "Due"})
	for _, r := range list {
		_ = table.Append([]string{
			shortID(r.ReviewID),
			r.Title,
			r.Client,
			output.StatusColor(string(r.Status)),
			approvalSummary(r),
			output.Due(r.Deadline, now),
		})
	}
	_ = table.Render()
	return nil
}

// approvalSummary renders "approved/total" from each reviewer's latest verdict.
func approvalSummary(r *models.Review) string {
	latest := review.LatestByReviewer(r.Feedbacks)
	approved := 0
	for _, id := range r.ReviewerIDs() {
		if fb, ok := latest[id]; ok && fb.Status == models.FeedbackApproved {
			approved++
		}
	}
	return fmt.Sprintf("%d/%d", approved, len(r.Reviewers))
}

func displayName(p models.Party) string {
	if p.Name != "" {
		return fmt.Sprintf("%s (%s)", p.Name, p.ID)
	}
	return p.ID
}

func reviewShowRun(ref string) error {
	reviews, _, err := getServices()
	if err != nil {
		return err
	}
	ctx, cancel := dbContext()
	defer cancel()

	r, err := reviews.GetReview(ctx, ref)
	if err != nil {
		return err
	}

	names := make([]string, len(r.Reviewers))
	for i, p := range r.Reviewers {
		names[i] = displayName(p)
	}

	fmt.Fprintf(ui.Out, "%s  %s\n", output.Cyan(shortID(r.ReviewID)), r.Title)
	fmt.Fprintf(ui.Out, "  Status:     %s\n", output.StatusColor(string(r.Status)))
	fmt.Fprintf(ui.Out, "  Creator:    %s\n", displayName(r.Creator))
	fmt.Fprintf(ui.Out, "  Reviewers:  %s\n", strings.Join(names, ", "))
	fmt.Fprintf(ui.Out, "  Channel:    %s\n", displayName(r.Channel))
	if r.Client != "" {
		fmt.Fprintf(ui.Out, "  Client:     %s\n", r.Client)
	}
	if r.URL != "" {
		fmt.Fprintf(ui.Out, "  URL:        %s\n", r.URL)
	}
	if r.Description != "" {
		fmt.Fprintf(ui.Out, "  Desc:       %s\n", r.Description)
	}
	fmt.Fprintf(ui.Out, "  Due:        %s\n", output.Due(r.Deadline, time.Now()))
	fmt.Fprintf(ui.Out, "  Created:    %s\n", r.CreatedAt.Local().Format(time.RFC3339))
	if r.CompletedAt != nil {
		fmt.Fprintf(ui.Out, "  Completed:  %s\n", r.CompletedAt.Local().Format(time.RFC3339))
	}
	fmt.Fprintf(ui.Out, "  Full ID:    %s\n", r.ReviewID)

	if len(r.Feedbacks) == 0 {
		return nil
	}
	fmt.Fprintln(ui.Out)
	table := ui.Table([]string{"When", "Reviewer", "Verdict", "Comment"})
	for _, fb := range r.Feedbacks {
		_ = table.Append([]string{
			fb.CreatedAt.Local().Format("Jan 2 15:04"),
			displayName(fb.Reviewer),
			output.StatusColor(string(fb.Status)),
			fb.Comment,
		})
	}
	_ = table.Render()
	return nil
}

func reviewFeedbackRun(ref string, status models.FeedbackStatus) error {
	reviews, _, err := getServices()
	if err != nil {
		return err
	}
	me, err := currentActor()
	if err != nil {
		return err
	}
	ctx, cancel := dbContext()
	defer cancel()

	r, err := reviews.GetReview(ctx, ref)
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would record %s on %s", status, shortID(r.ReviewID))
		return nil
	}

	r, err = reviews.RecordFeedback(ctx, r.ReviewID, me, reviewComment, status)
	if err != nil {
		return err
	}
	ui.Success("Recorded %s on %s, status is now %s", status, output.Cyan(shortID(r.ReviewID)), output.StatusColor(string(r.Status)))
	return nil
}

func reviewApproveRun(ref string) error {
	reviews, _, err := getServices()
	if err != nil {
		return err
	}
	me, err := currentActor()
	if err != nil {
		return err
	}
	ctx, cancel := dbContext()
	defer cancel()

	r, err := reviews.GetReview(ctx, ref)
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would approve %s", shortID(r.ReviewID))
		return nil
	}

	r, err = reviews.Approve(ctx, r.ReviewID, me, reviewComment)
	if err != nil {
		return err
	}
	ui.Success("Approved %s (%s), status is now %s", output.Cyan(shortID(r.ReviewID)), approvalSummary(r), output.StatusColor(string(r.Status)))
	return nil
}

func reviewStatusRun(ref, status string) error {
	reviews, _, err := getServices()
	if err != nil {
		return err
	}
	me, err := currentActor()
	if err != nil {
		return err
	}
	ctx, cancel := dbContext()
	defer cancel()

	r, err := reviews.GetReview(ctx, ref)
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would move %s from %s to %s", shortID(r.ReviewID), r.Status, status)
		return nil
	}

	r, err = reviews.SetStatusManually(ctx, r.ReviewID, status, me)
	if err != nil {
		return err
	}
	ui.Success("Review %s is now %s", output.Cyan(shortID(r.ReviewID)), output.StatusColor(string(r.Status)))
	return nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
