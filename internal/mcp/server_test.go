package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/reviewbot/internal/deadline"
	"github.com/joescharf/reviewbot/internal/models"
	"github.com/joescharf/reviewbot/internal/notify"
	"github.com/joescharf/reviewbot/internal/review"
	"github.com/joescharf/reviewbot/internal/store"
	"github.com/joescharf/reviewbot/internal/task"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func newTestServer(t *testing.T) *Server {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })

	policy := deadline.Policy{Days: 3, Hour: 17, Location: time.UTC}
	reviews := review.NewService(st, notify.NewLog(zerolog.Nop()),
		review.WithLogger(zerolog.Nop()), review.WithDeadlinePolicy(policy))
	return NewServer(reviews, task.NewService(st, policy, nil), "test")
}

// callToolReq builds a mcpgo.CallToolRequest with the given name and arguments.
func callToolReq(name string, args map[string]any) mcpgo.CallToolRequest {
	return mcpgo.CallToolRequest{
		Params: mcpgo.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// resultText extracts the concatenated text from a CallToolResult.
func resultText(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	var b strings.Builder
	for _, c := range result.Content {
		tc, ok := c.(mcpgo.TextContent)
		if ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

// resultJSON parses the text result as JSON into the provided target.
func resultJSON(t *testing.T, result *mcpgo.CallToolResult, target any) {
	t.Helper()
	text := resultText(t, result)
	err := json.Unmarshal([]byte(text), target)
	require.NoError(t, err, "failed to parse result JSON: %s", text)
}

func seedReview(t *testing.T, srv *Server) models.Review {
	t.Helper()
	result, err := srv.handleCreateReview(context.Background(), callToolReq("review_create", map[string]any{
		"title":      "Homepage hero",
		"creator_id": "U-casey",
		"reviewers":  "U-alice:Alice, U-bob",
		"channel_id": "C-acme",
		"client":     "acme",
		"deadline":   "2026-05-04",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	var r models.Review
	resultJSON(t, result, &r)
	return r
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestNewServer(t *testing.T) {
	srv := newTestServer(t)
	require.NotNil(t, srv.MCPServer(), "MCPServer() should return non-nil")
}

func TestParseParties(t *testing.T) {
	got := parseParties(" U1:Alice Smith, U2 ,, ")
	assert.Equal(t, []models.Party{{ID: "U1", Name: "Alice Smith"}, {ID: "U2"}}, got)
	assert.Empty(t, parseParties(""))
}

func TestHandleCreateReview(t *testing.T) {
	srv := newTestServer(t)
	r := seedReview(t, srv)

	assert.NotEmpty(t, r.ReviewID)
	assert.Equal(t, models.ReviewStatusInReview, r.Status)
	require.Len(t, r.Reviewers, 2)
	assert.Equal(t, "Alice", r.Reviewers[0].Name)
	assert.True(t, time.Date(2026, 5, 4, 17, 0, 0, 0, time.UTC).Equal(r.Deadline))
}

func TestHandleCreateReview_MissingArgs(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	result, err := srv.handleCreateReview(ctx, callToolReq("review_create", nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = srv.handleCreateReview(ctx, callToolReq("review_create", map[string]any{
		"title": "x", "creator_id": "U-casey", "channel_id": "C", "reviewers": "",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "invalid_argument")
}

func TestHandleFeedbackAndApprove(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	r := seedReview(t, srv)
	prefix := r.ReviewID[:8]

	result, err := srv.handleApprove(ctx, callToolReq("review_approve", map[string]any{
		"review_id": prefix, "approver_id": "U-alice", "comment": 42,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))
	var got models.Review
	resultJSON(t, result, &got)
	assert.Equal(t, models.ReviewStatusInReview, got.Status)
	require.Len(t, got.Feedbacks, 1)
	assert.Equal(t, review.DefaultApprovalComment, got.Feedbacks[0].Comment)

	result, err = srv.handleFeedback(ctx, callToolReq("review_feedback", map[string]any{
		"review_id": r.ReviewID, "reviewer_id": "U-bob", "status": "approved", "comment": "great",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))
	resultJSON(t, result, &got)
	assert.Equal(t, models.ReviewStatusApproved, got.Status)
	assert.NotNil(t, got.CompletedAt)
}

func TestHandleFeedback_Errors(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	r := seedReview(t, srv)

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"stranger", map[string]any{"review_id": r.ReviewID, "reviewer_id": "U-mallory", "status": "approved"}, "not_authorized"},
		{"unknown review", map[string]any{"review_id": "zzz", "reviewer_id": "U-alice", "status": "approved"}, "not_found"},
		{"bad verdict", map[string]any{"review_id": r.ReviewID, "reviewer_id": "U-alice", "status": "maybe"}, "maybe"},
		{"no reviewer", map[string]any{"review_id": r.ReviewID, "status": "approved"}, "reviewer_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := srv.handleFeedback(ctx, callToolReq("review_feedback", tt.args))
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, resultText(t, result), tt.want)
		})
	}
}

func TestHandleSetStatus(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	r := seedReview(t, srv)

	result, err := srv.handleSetStatus(ctx, callToolReq("review_set_status", map[string]any{
		"review_id": r.ReviewID, "actor_id": "U-mallory", "status": "published",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "not_authorized")

	result, err = srv.handleSetStatus(ctx, callToolReq("review_set_status", map[string]any{
		"review_id": r.ReviewID, "actor_id": "U-casey", "status": "published",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))
	var got models.Review
	resultJSON(t, result, &got)
	assert.Equal(t, models.ReviewStatusPublished, got.Status)
}

func TestHandleListAndGetReviews(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	r := seedReview(t, srv)

	result, err := srv.handleListReviews(ctx, callToolReq("review_list", map[string]any{"reviewer_id": "U-bob", "since": "1h"}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))
	var list []models.Review
	resultJSON(t, result, &list)
	assert.Len(t, list, 1)

	result, err = srv.handleListReviews(ctx, callToolReq("review_list", map[string]any{"client": "globex"}))
	require.NoError(t, err)
	assert.Equal(t, "[]", resultText(t, result))

	result, err = srv.handleListReviews(ctx, callToolReq("review_list", map[string]any{"since": "soon"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = srv.handleGetReview(ctx, callToolReq("review_get", map[string]any{"review_id": r.ReviewID}))
	require.NoError(t, err)
	var got models.Review
	resultJSON(t, result, &got)
	assert.Equal(t, "Homepage hero", got.Title)
}

func TestHandleTasks(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	result, err := srv.handleCreateTask(ctx, callToolReq("task_create", map[string]any{
		"title": "Write alt text", "creator_id": "U-casey", "assignee": "U-alice:Alice", "client": "acme",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))
	var created models.Task
	resultJSON(t, result, &created)
	assert.Equal(t, "U-alice", created.Assignee.ID)
	assert.Equal(t, models.TaskStatusOpen, created.Status)

	result, err = srv.handleListTasks(ctx, callToolReq("task_list", map[string]any{"assignee_id": "U-alice"}))
	require.NoError(t, err)
	var tasks []models.Task
	resultJSON(t, result, &tasks)
	require.Len(t, tasks, 1)
	assert.Equal(t, created.ID, tasks[0].ID)

	result, err = srv.handleCreateTask(ctx, callToolReq("task_create", map[string]any{"title": "x"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}
