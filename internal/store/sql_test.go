package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/reviewbot/internal/apperrors"
	"github.com/joescharf/reviewbot/internal/models"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	err = s.Migrate(context.Background())
	require.NoError(t, err)

	t.Cleanup(func() { s.Close() })
	return s
}

func newReview(title string, reviewers ...string) *models.Review {
	r := &models.Review{
		Title:   title,
		Creator: models.Party{ID: "U-creator", Name: "Casey"},
		Channel: models.Party{ID: "C-acme", Name: "acme-content"},
		Client:  "acme",
		Status:  models.ReviewStatusInReview,
	}
	for _, id := range reviewers {
		r.Reviewers = append(r.Reviewers, models.Party{ID: id, Name: "name-" + id})
	}
	return r
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "subdir", "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(filepath.Join(dir, "subdir"))
	assert.NoError(t, err, "should create parent directory")
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t)

	// Running migrate again should be a no-op
	assert.NoError(t, s.Migrate(context.Background()))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("oracle", "x")
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	pg := &SQLStore{dialect: DialectPostgres}
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", pg.rebind("SELECT * FROM t WHERE a = ? AND b = ?"))

	lite := &SQLStore{dialect: DialectSQLite}
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
}

// --- Reviews ---

func TestReviewCreateAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := newReview("Homepage copy", "U-a", "U-b")
	r.Description = "Spring campaign"
	r.URL = "https://docs.example.com/x"
	require.NoError(t, s.CreateReview(ctx, r))
	assert.NotEmpty(t, r.ID)
	assert.NotEmpty(t, r.ReviewID)
	assert.NotEqual(t, r.ID, r.ReviewID)
	assert.False(t, r.Deadline.IsZero())

	got, err := s.GetReview(ctx, r.ReviewID)
	require.NoError(t, err)
	assert.Equal(t, "Homepage copy", got.Title)
	assert.Equal(t, "Spring campaign", got.Description)
	assert.Equal(t, models.Party{ID: "U-creator", Name: "Casey"}, got.Creator)
	assert.Equal(t, []string{"U-a", "U-b"}, got.ReviewerIDs())
	assert.Equal(t, "acme-content", got.Channel.Name)
	assert.Equal(t, models.ReviewStatusInReview, got.Status)
	assert.Nil(t, got.CompletedAt)
	assert.Empty(t, got.Feedbacks)
	assert.True(t, r.Deadline.Equal(got.Deadline))
}

func TestReviewCreate_CoercesUnknownStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := newReview("x", "U-a")
	r.Status = models.ReviewStatus("shipped")
	require.NoError(t, s.CreateReview(ctx, r))

	got, err := s.GetReview(ctx, r.ReviewID)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusInReview, got.Status)
}

func TestReviewCreate_RequiresReviewer(t *testing.T) {
	s := newTestStore(t)

	err := s.CreateReview(context.Background(), newReview("lonely"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	reviews, err := s.ListReviews(context.Background(), ReviewListFilter{})
	require.NoError(t, err)
	assert.Empty(t, reviews)
}

func TestGetReview_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetReview(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestFindReview_Prefix(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := newReview("x", "U-a")
	r.ReviewID = "rev-aaaa-1111"
	require.NoError(t, s.CreateReview(ctx, r))
	r2 := newReview("y", "U-a")
	r2.ReviewID = "rev-aaaa-2222"
	require.NoError(t, s.CreateReview(ctx, r2))

	got, err := s.FindReview(ctx, "rev-aaaa-1")
	require.NoError(t, err)
	assert.Equal(t, "rev-aaaa-1111", got.ReviewID)

	_, err = s.FindReview(ctx, "rev-aaaa")
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	_, err = s.FindReview(ctx, "nope")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestFindReview_WildcardsMatchLiterally(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := newReview("x", "U-a")
	r.ReviewID = "rev_1111"
	require.NoError(t, s.CreateReview(ctx, r))
	r2 := newReview("y", "U-a")
	r2.ReviewID = "revX2222"
	require.NoError(t, s.CreateReview(ctx, r2))

	for _, ref := range []string{"%", "_", "rev%", `\`, "re_X"} {
		_, err := s.FindReview(ctx, ref)
		assert.ErrorIs(t, err, apperrors.ErrNotFound, ref)
	}

	got, err := s.FindReview(ctx, "rev_")
	require.NoError(t, err, "underscore is not a single-character wildcard")
	assert.Equal(t, "rev_1111", got.ReviewID)
}

func TestAddFeedback(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := newReview("x", "U-a", "U-b")
	require.NoError(t, s.CreateReview(ctx, r))

	fb1 := &models.Feedback{Reviewer: models.Party{ID: "U-a", Name: "Ana"}, Comment: "tweak headline", Status: models.FeedbackRequestedChanges}
	require.NoError(t, s.AddFeedback(ctx, r.ReviewID, fb1))
	fb2 := &models.Feedback{Reviewer: models.Party{ID: "U-a", Name: "Ana"}, Comment: "", Status: models.FeedbackApproved}
	require.NoError(t, s.AddFeedback(ctx, r.ReviewID, fb2))

	got, err := s.GetReview(ctx, r.ReviewID)
	require.NoError(t, err)
	require.Len(t, got.Feedbacks, 2)
	assert.Equal(t, models.FeedbackRequestedChanges, got.Feedbacks[0].Status)
	assert.Equal(t, "tweak headline", got.Feedbacks[0].Comment)
	assert.Equal(t, models.FeedbackApproved, got.Feedbacks[1].Status)
	assert.Equal(t, "", got.Feedbacks[1].Comment)
}

func TestAddFeedback_NotAuthorizedWritesNothing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := newReview("x", "U-a")
	require.NoError(t, s.CreateReview(ctx, r))

	err := s.AddFeedback(ctx, r.ReviewID, &models.Feedback{Reviewer: models.Party{ID: "U-stranger"}, Status: models.FeedbackApproved})
	assert.ErrorIs(t, err, apperrors.ErrNotAuthorized)

	got, err := s.GetReview(ctx, r.ReviewID)
	require.NoError(t, err)
	assert.Empty(t, got.Feedbacks)
}

func TestAddFeedback_ReviewNotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.AddFeedback(context.Background(), "missing", &models.Feedback{Reviewer: models.Party{ID: "U-a"}, Status: models.FeedbackApproved})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUpdateReviewStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := newReview("x", "U-a")
	require.NoError(t, s.CreateReview(ctx, r))

	stamp := time.Date(2026, 2, 3, 9, 30, 0, 0, time.UTC)
	got, err := s.UpdateReviewStatus(ctx, r.ReviewID, models.ReviewStatusApproved, stamp, true)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusApproved, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, stamp.Equal(*got.CompletedAt), "completed_at is the instant passed in")
	completed := *got.CompletedAt

	// Reopening keeps the completion timestamp.
	got, err = s.UpdateReviewStatus(ctx, r.ReviewID, models.ReviewStatusInReview, stamp.Add(time.Hour), false)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusInReview, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, completed.Equal(*got.CompletedAt))

	_, err = s.UpdateReviewStatus(ctx, "missing", models.ReviewStatusDraft, time.Time{}, false)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestListReviews_FiltersAndOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)

	mk := func(title, client string, status models.ReviewStatus, offset time.Duration, reviewers ...string) *models.Review {
		r := newReview(title, reviewers...)
		r.Client = client
		r.Status = status
		r.CreatedAt = base.Add(offset)
		require.NoError(t, s.CreateReview(ctx, r))
		return r
	}

	mk("older in review", "acme", models.ReviewStatusInReview, 0, "U-a")
	mk("newer in review", "acme", models.ReviewStatusInReview, time.Hour, "U-b")
	mk("draft", "acme", models.ReviewStatusDraft, 2*time.Hour, "U-a")
	mk("approved", "globex", models.ReviewStatusApproved, 3*time.Hour, "U-a")

	all, err := s.ListReviews(ctx, ReviewListFilter{})
	require.NoError(t, err)
	var titles []string
	for _, r := range all {
		titles = append(titles, r.Title)
	}
	assert.Equal(t, []string{"approved", "draft", "newer in review", "older in review"}, titles)

	acme, err := s.ListReviews(ctx, ReviewListFilter{Client: "acme"})
	require.NoError(t, err)
	assert.Len(t, acme, 3)

	byReviewer, err := s.ListReviews(ctx, ReviewListFilter{ReviewerID: "U-b"})
	require.NoError(t, err)
	require.Len(t, byReviewer, 1)
	assert.Equal(t, "newer in review", byReviewer[0].Title)

	byStatus, err := s.ListReviews(ctx, ReviewListFilter{Status: models.ReviewStatusDraft, Client: "acme"})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)

	none, err := s.ListReviews(ctx, ReviewListFilter{CreatorID: "U-nobody"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListReviews_ActiveSince(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	old := time.Now().Add(-30 * 24 * time.Hour)
	since := time.Now().Add(-24 * time.Hour)

	stale := newReview("stale", "U-a")
	stale.CreatedAt = old
	require.NoError(t, s.CreateReview(ctx, stale))

	commented := newReview("old but commented", "U-a")
	commented.CreatedAt = old
	require.NoError(t, s.CreateReview(ctx, commented))
	require.NoError(t, s.AddFeedback(ctx, commented.ReviewID, &models.Feedback{
		Reviewer: models.Party{ID: "U-a"}, Status: models.FeedbackRequestedChanges,
	}))

	completed := newReview("old but completed", "U-a")
	completed.CreatedAt = old
	require.NoError(t, s.CreateReview(ctx, completed))
	_, err := s.UpdateReviewStatus(ctx, completed.ReviewID, models.ReviewStatusApproved, time.Now(), true)
	require.NoError(t, err)

	fresh := newReview("fresh", "U-a")
	require.NoError(t, s.CreateReview(ctx, fresh))

	got, err := s.ListReviews(ctx, ReviewListFilter{ActiveSince: &since})
	require.NoError(t, err)
	var titles []string
	for _, r := range got {
		titles = append(titles, r.Title)
	}
	assert.ElementsMatch(t, []string{"old but commented", "old but completed", "fresh"}, titles)
}

// --- Tasks ---

func TestTaskCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	task := &models.Task{
		Title:    "Draft Q3 newsletter",
		Client:   "acme",
		Assignee: models.Party{ID: "U-a", Name: "Ana"},
		Priority: models.TaskPriorityHigh,
	}
	require.NoError(t, s.CreateTask(ctx, task))
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, models.TaskStatusOpen, task.Status)

	got, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Draft Q3 newsletter", got.Title)
	assert.Equal(t, models.TaskPriorityHigh, got.Priority)

	now := time.Now().UTC()
	got.Status = models.TaskStatusDone
	got.CompletedAt = &now
	require.NoError(t, s.UpdateTask(ctx, got))

	done, err := s.ListTasks(ctx, TaskListFilter{Status: models.TaskStatusDone})
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.NotNil(t, done[0].CompletedAt)

	require.NoError(t, s.DeleteTask(ctx, task.ID))
	_, err = s.GetTask(ctx, task.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.ErrorIs(t, s.DeleteTask(ctx, task.ID), apperrors.ErrNotFound)
}

func TestListTasks_OpenFirstThenDeadline(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.CreateTask(ctx, &models.Task{Title: "later", Deadline: now.Add(72 * time.Hour), Priority: models.TaskPriorityLow}))
	require.NoError(t, s.CreateTask(ctx, &models.Task{Title: "sooner", Deadline: now.Add(2 * time.Hour), Priority: models.TaskPriorityHigh}))
	require.NoError(t, s.CreateTask(ctx, &models.Task{Title: "finished", Deadline: now, Status: models.TaskStatusDone, Priority: models.TaskPriorityLow}))

	tasks, err := s.ListTasks(ctx, TaskListFilter{})
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, "sooner", tasks[0].Title)
	assert.Equal(t, "later", tasks[1].Title)
	assert.Equal(t, "finished", tasks[2].Title)
}
