package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/reviewbot/internal/apperrors"
	"github.com/joescharf/reviewbot/internal/models"
	"github.com/joescharf/reviewbot/internal/review"
	"github.com/joescharf/reviewbot/internal/store"
	"github.com/joescharf/reviewbot/internal/task"
)

// Server exposes the review lifecycle and task tracking as MCP tools.
type Server struct {
	reviews *review.Service
	tasks   *task.Service
	version string
	now     func() time.Time
}

// NewServer creates the MCP server wrapper.
func NewServer(reviews *review.Service, tasks *task.Service, version string) *Server {
	if version == "" {
		version = "dev"
	}
	return &Server{reviews: reviews, tasks: tasks, version: version, now: time.Now}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("reviewbot", s.version, server.WithToolCapabilities(true))

	srv.AddTool(s.createReviewTool())
	srv.AddTool(s.listReviewsTool())
	srv.AddTool(s.getReviewTool())
	srv.AddTool(s.feedbackTool())
	srv.AddTool(s.approveTool())
	srv.AddTool(s.setStatusTool())
	srv.AddTool(s.listTasksTool())
	srv.AddTool(s.createTaskTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// errorResult renders an operation error with its kind so agents can react.
func errorResult(op string, err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("%s failed (%s): %v", op, apperrors.KindOf(err), err))
}

// parseParties reads "id" or "id:Display Name" entries separated by commas.
func parseParties(raw string) []models.Party {
	var out []models.Party
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		id, name, _ := strings.Cut(item, ":")
		out = append(out, models.Party{ID: strings.TrimSpace(id), Name: strings.TrimSpace(name)})
	}
	return out
}

func actorFrom(request mcp.CallToolRequest, prefix string) (models.Party, error) {
	id, err := request.RequireString(prefix + "_id")
	if err != nil || strings.TrimSpace(id) == "" {
		return models.Party{}, fmt.Errorf("missing required parameter: %s_id", prefix)
	}
	return models.Party{ID: id, Name: request.GetString(prefix+"_name", "")}, nil
}

// ---------------------------------------------------------------------------
// Reviews
// ---------------------------------------------------------------------------

// review_create
func (s *Server) createReviewTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("review_create",
		mcp.WithDescription("Create a review request and notify its reviewers and origin channel. Returns the created review as JSON."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Review title")),
		mcp.WithString("description", mcp.Description("What should be reviewed")),
		mcp.WithString("creator_id", mcp.Required(), mcp.Description("User id of the requester")),
		mcp.WithString("creator_name", mcp.Description("Display name of the requester")),
		mcp.WithString("reviewers", mcp.Required(), mcp.Description("Comma-separated reviewers, each 'id' or 'id:Name'")),
		mcp.WithString("channel_id", mcp.Required(), mcp.Description("Channel the request came from")),
		mcp.WithString("channel_name", mcp.Description("Channel display name")),
		mcp.WithString("client", mcp.Description("Client label")),
		mcp.WithString("url", mcp.Description("Link to the reviewed material")),
		mcp.WithString("deadline", mcp.Description("YYYY-MM-DD or YYYY-MM-DD HH:MM; defaults to 3 days out at end of workday")),
		mcp.WithString("status", mcp.Description("Initial status; unknown values become in_review"),
			mcp.Enum("draft", "design", "in_review", "approved", "published")),
	)
	return tool, s.handleCreateReview
}

func (s *Server) handleCreateReview(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := request.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: title"), nil
	}
	creator, err := actorFrom(request, "creator")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	in := review.CreateInput{
		Title:       title,
		Description: request.GetString("description", ""),
		Creator:     creator,
		Reviewers:   parseParties(request.GetString("reviewers", "")),
		Channel:     models.Party{ID: request.GetString("channel_id", ""), Name: request.GetString("channel_name", "")},
		Client:      request.GetString("client", ""),
		URL:         request.GetString("url", ""),
		Status:      request.GetString("status", ""),
	}
	if raw := request.GetString("deadline", ""); raw != "" {
		due, err := s.reviews.Policy().Parse(raw)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		in.Deadline = &due
	}

	r, err := s.reviews.CreateReview(ctx, in)
	if err != nil {
		return errorResult("review_create", err), nil
	}
	s.reviews.Announce(ctx, r)
	return jsonResult(r)
}

// review_list
func (s *Server) listReviewsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("review_list",
		mcp.WithDescription("List reviews ordered by status then newest first. Returns a JSON array including reviewers and feedback."),
		mcp.WithString("client", mcp.Description("Filter by client")),
		mcp.WithString("channel_id", mcp.Description("Filter by origin channel")),
		mcp.WithString("creator_id", mcp.Description("Filter by requester")),
		mcp.WithString("reviewer_id", mcp.Description("Only reviews assigned to this reviewer")),
		mcp.WithString("status", mcp.Description("Filter by status"),
			mcp.Enum("draft", "design", "in_review", "approved", "published")),
		mcp.WithString("since", mcp.Description("Only reviews with activity within this duration, e.g. 24h or 168h")),
	)
	return tool, s.handleListReviews
}

func (s *Server) handleListReviews(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := store.ReviewListFilter{
		Client:     request.GetString("client", ""),
		ChannelID:  request.GetString("channel_id", ""),
		CreatorID:  request.GetString("creator_id", ""),
		ReviewerID: request.GetString("reviewer_id", ""),
	}
	if raw := request.GetString("status", ""); raw != "" {
		status, err := models.ParseReviewStatus(raw)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		filter.Status = status
	}
	if raw := request.GetString("since", ""); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return mcp.NewToolResultError(fmt.Sprintf("invalid since duration: %q", raw)), nil
		}
		since := s.now().Add(-d)
		filter.ActiveSince = &since
	}

	reviews, err := s.reviews.ListReviews(ctx, filter)
	if err != nil {
		return errorResult("review_list", err), nil
	}
	if reviews == nil {
		reviews = []*models.Review{}
	}
	return jsonResult(reviews)
}

// review_get
func (s *Server) getReviewTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("review_get",
		mcp.WithDescription("Get one review with its reviewers and full feedback history. Accepts a unique id prefix."),
		mcp.WithString("review_id", mcp.Required(), mcp.Description("Review id or unique prefix")),
	)
	return tool, s.handleGetReview
}

func (s *Server) handleGetReview(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("review_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: review_id"), nil
	}
	r, err := s.reviews.GetReview(ctx, id)
	if err != nil {
		return errorResult("review_get", err), nil
	}
	return jsonResult(r)
}

// review_feedback
func (s *Server) feedbackTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("review_feedback",
		mcp.WithDescription("Record an assigned reviewer's verdict. The review status is recomputed from each reviewer's latest verdict."),
		mcp.WithString("review_id", mcp.Required(), mcp.Description("Review id or unique prefix")),
		mcp.WithString("reviewer_id", mcp.Required(), mcp.Description("User id of the reviewer")),
		mcp.WithString("reviewer_name", mcp.Description("Display name of the reviewer")),
		mcp.WithString("status", mcp.Required(), mcp.Description("Verdict"),
			mcp.Enum("approved", "requested_changes")),
		mcp.WithString("comment", mcp.Description("Free-text feedback")),
	)
	return tool, s.handleFeedback
}

func (s *Server) handleFeedback(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := request.RequireString("review_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: review_id"), nil
	}
	reviewer, err := actorFrom(request, "reviewer")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rawStatus, err := request.RequireString("status")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: status"), nil
	}
	status, err := models.ParseFeedbackStatus(rawStatus)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	r, err := s.resolve(ctx, ref)
	if err != nil {
		return errorResult("review_feedback", err), nil
	}
	r, err = s.reviews.RecordFeedback(ctx, r.ReviewID, reviewer, request.GetString("comment", ""), status)
	if err != nil {
		return errorResult("review_feedback", err), nil
	}
	return jsonResult(r)
}

// review_approve
func (s *Server) approveTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("review_approve",
		mcp.WithDescription("Approve a review as an assigned reviewer. Non-text or blank comments are stored as \"Approved\"."),
		mcp.WithString("review_id", mcp.Required(), mcp.Description("Review id or unique prefix")),
		mcp.WithString("approver_id", mcp.Required(), mcp.Description("User id of the approving reviewer")),
		mcp.WithString("approver_name", mcp.Description("Display name of the approver")),
		mcp.WithString("comment", mcp.Description("Optional approval comment")),
	)
	return tool, s.handleApprove
}

func (s *Server) handleApprove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := request.RequireString("review_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: review_id"), nil
	}
	approver, err := actorFrom(request, "approver")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	r, err := s.resolve(ctx, ref)
	if err != nil {
		return errorResult("review_approve", err), nil
	}
	// Pass the raw argument through; the service decides what counts as text.
	r, err = s.reviews.Approve(ctx, r.ReviewID, approver, request.GetArguments()["comment"])
	if err != nil {
		return errorResult("review_approve", err), nil
	}
	return jsonResult(r)
}

// review_set_status
func (s *Server) setStatusTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("review_set_status",
		mcp.WithDescription("Manually move a review to any status. Only the creator or an assigned reviewer may do this."),
		mcp.WithString("review_id", mcp.Required(), mcp.Description("Review id or unique prefix")),
		mcp.WithString("actor_id", mcp.Required(), mcp.Description("User id of the person changing the status")),
		mcp.WithString("actor_name", mcp.Description("Display name of the actor")),
		mcp.WithString("status", mcp.Required(), mcp.Description("Target status"),
			mcp.Enum("draft", "design", "in_review", "approved", "published")),
	)
	return tool, s.handleSetStatus
}

func (s *Server) handleSetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := request.RequireString("review_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: review_id"), nil
	}
	actor, err := actorFrom(request, "actor")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	status, err := request.RequireString("status")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: status"), nil
	}

	r, err := s.resolve(ctx, ref)
	if err != nil {
		return errorResult("review_set_status", err), nil
	}
	r, err = s.reviews.SetStatusManually(ctx, r.ReviewID, status, actor)
	if err != nil {
		return errorResult("review_set_status", err), nil
	}
	return jsonResult(r)
}

// resolve expands a review id prefix to the full review.
func (s *Server) resolve(ctx context.Context, ref string) (*models.Review, error) {
	return s.reviews.GetReview(ctx, strings.TrimSpace(ref))
}

// ---------------------------------------------------------------------------
// Tasks
// ---------------------------------------------------------------------------

// task_list
func (s *Server) listTasksTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("task_list",
		mcp.WithDescription("List tasks, open first and then by deadline. Returns a JSON array."),
		mcp.WithString("client", mcp.Description("Filter by client")),
		mcp.WithString("assignee_id", mcp.Description("Filter by assignee")),
		mcp.WithString("status", mcp.Description("Filter by status"), mcp.Enum("open", "done")),
	)
	return tool, s.handleListTasks
}

func (s *Server) handleListTasks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := store.TaskListFilter{
		Client:     request.GetString("client", ""),
		AssigneeID: request.GetString("assignee_id", ""),
		Status:     models.TaskStatus(request.GetString("status", "")),
	}
	tasks, err := s.tasks.List(ctx, filter)
	if err != nil {
		return errorResult("task_list", err), nil
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	return jsonResult(tasks)
}

// task_create
func (s *Server) createTaskTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("task_create",
		mcp.WithDescription("Create a task. Priority is derived from the deadline when omitted."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Task title")),
		mcp.WithString("description", mcp.Description("Task details")),
		mcp.WithString("client", mcp.Description("Client label")),
		mcp.WithString("creator_id", mcp.Required(), mcp.Description("User id of the creator")),
		mcp.WithString("creator_name", mcp.Description("Display name of the creator")),
		mcp.WithString("assignee", mcp.Description("Assignee as 'id' or 'id:Name'; defaults to the creator")),
		mcp.WithString("deadline", mcp.Description("YYYY-MM-DD or YYYY-MM-DD HH:MM")),
		mcp.WithString("priority", mcp.Description("Override the derived priority"), mcp.Enum("low", "medium", "high")),
	)
	return tool, s.handleCreateTask
}

func (s *Server) handleCreateTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := request.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: title"), nil
	}
	creator, err := actorFrom(request, "creator")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	in := task.CreateInput{
		Title:       title,
		Description: request.GetString("description", ""),
		Client:      request.GetString("client", ""),
		Creator:     creator,
		Priority:    models.TaskPriority(request.GetString("priority", "")),
	}
	if assignees := parseParties(request.GetString("assignee", "")); len(assignees) > 0 {
		in.Assignee = assignees[0]
	}
	if raw := request.GetString("deadline", ""); raw != "" {
		due, err := s.reviews.Policy().Parse(raw)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		in.Deadline = &due
	}

	t, err := s.tasks.Create(ctx, in)
	if err != nil {
		return errorResult("task_create", err), nil
	}
	return jsonResult(t)
}
