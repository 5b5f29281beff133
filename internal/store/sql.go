package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/oklog/ulid/v2"

	"github.com/joescharf/reviewbot/internal/apperrors"
	"github.com/joescharf/reviewbot/internal/deadline"
	"github.com/joescharf/reviewbot/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations
var migrationsFS embed.FS

// Dialect selects SQL flavor and migration set.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// SQLStore implements Store over database/sql. SQLite uses modernc.org/sqlite
// (pure Go, no CGO); PostgreSQL uses the pgx stdlib driver.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// Open opens a store for the given dialect. For SQLite, dsn is a file path.
func Open(dialect Dialect, dsn string) (*SQLStore, error) {
	switch dialect {
	case DialectSQLite, "":
		return NewSQLiteStore(dsn)
	case DialectPostgres:
		return NewPostgresStore(dsn)
	}
	return nil, fmt.Errorf("unsupported database driver: %s", dialect)
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLStore, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one concurrent writer. A single connection
	// serializes all access and avoids "database is locked" under
	// concurrent feedback submissions.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	return &SQLStore{db: db, dialect: DialectSQLite}, nil
}

// NewPostgresStore connects to PostgreSQL using a pgx connection string.
func NewPostgresStore(dsn string) (*SQLStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &SQLStore{db: db, dialect: DialectPostgres}, nil
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

// newULID generates a new ULID string. IDs from one process sort in creation order.
func newULID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// rebind rewrites ? placeholders for dialects that use numbered parameters.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Ping verifies the database is reachable.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate runs all embedded SQL migration files for the dialect in order.
func (s *SQLStore) Migrate(ctx context.Context) error {
	// Create migrations tracking table
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	dir := "migrations/" + string(s.dialect)
	entries, err := migrationsFS.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	// Sort by filename
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		// Check if already applied
		var count int
		err := s.db.QueryRowContext(ctx, s.rebind("SELECT COUNT(*) FROM schema_migrations WHERE filename = ?"), name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile(dir + "/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, s.rebind("INSERT INTO schema_migrations (filename) VALUES (?)"), name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

// --- Reviews ---

const reviewColumns = `r.id, r.review_id, r.title, r.description, r.creator_id, r.creator_name,
	r.channel_id, r.channel_name, r.client, r.url, r.status, r.created_at, r.updated_at, r.deadline, r.completed_at`

func scanReview(row interface{ Scan(...any) error }) (*models.Review, error) {
	r := &models.Review{}
	var status string
	var completedAt sql.NullTime
	err := row.Scan(&r.ID, &r.ReviewID, &r.Title, &r.Description, &r.Creator.ID, &r.Creator.Name,
		&r.Channel.ID, &r.Channel.Name, &r.Client, &r.URL, &status,
		&r.CreatedAt, &r.UpdatedAt, &r.Deadline, &completedAt)
	if err != nil {
		return nil, err
	}
	r.Status = models.ReviewStatus(status)
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	r.Deadline = r.Deadline.UTC()
	r.CompletedAt = timePtr(completedAt)
	return r, nil
}

// CreateReview persists a new review with its reviewer list. A missing
// ReviewID is generated; an unknown status becomes in_review; a zero
// deadline gets the standard default.
func (s *SQLStore) CreateReview(ctx context.Context, r *models.Review) error {
	if len(r.Reviewers) == 0 {
		return apperrors.InvalidArgument("review requires at least one reviewer")
	}
	if r.ID == "" {
		r.ID = newULID()
	}
	if r.ReviewID == "" {
		r.ReviewID = uuid.NewString()
	}
	if !r.Status.Valid() {
		r.Status = models.ReviewStatusInReview
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.CreatedAt
	if r.Deadline.IsZero() {
		r.Deadline = deadline.Standard.Default(r.CreatedAt)
	}
	r.Deadline = r.Deadline.UTC()
	if r.Status.IsCompletion() && r.CompletedAt == nil {
		completed := r.CreatedAt
		r.CompletedAt = &completed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, s.rebind(
		`INSERT INTO reviews (id, review_id, title, description, creator_id, creator_name, channel_id, channel_name, client, url, status, created_at, updated_at, deadline, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		r.ID, r.ReviewID, r.Title, r.Description, r.Creator.ID, r.Creator.Name,
		r.Channel.ID, r.Channel.Name, r.Client, r.URL, string(r.Status),
		r.CreatedAt, r.UpdatedAt, r.Deadline, nullableTime(r.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("create review: %w", err)
	}

	for i, p := range r.Reviewers {
		_, err := tx.ExecContext(ctx, s.rebind(
			`INSERT INTO review_reviewers (review_pk, position, reviewer_id, reviewer_name) VALUES (?, ?, ?, ?)`),
			r.ID, i, p.ID, p.Name)
		if err != nil {
			return fmt.Errorf("add reviewer %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	r.Feedbacks = []*models.Feedback{}
	return nil
}

// GetReview returns the review with the given public id, including its
// reviewers and full feedback history.
func (s *SQLStore) GetReview(ctx context.Context, reviewID string) (*models.Review, error) {
	r, err := scanReview(s.db.QueryRowContext(ctx, s.rebind(
		`SELECT `+reviewColumns+` FROM reviews r WHERE r.review_id = ?`), reviewID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("review", reviewID)
	}
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	if err := s.loadReviewChildren(ctx, s.db, r); err != nil {
		return nil, err
	}
	return r, nil
}

// likeEscaper makes a user-supplied prefix match literally under ESCAPE '\'.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// FindReview resolves a full review id or a unique prefix of one.
func (s *SQLStore) FindReview(ctx context.Context, ref string) (*models.Review, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, apperrors.InvalidArgument("empty review id")
	}
	r, err := s.GetReview(ctx, ref)
	if err == nil || !errors.Is(err, apperrors.ErrNotFound) {
		return r, err
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT review_id FROM reviews WHERE review_id LIKE ? ESCAPE '\' ORDER BY created_at DESC LIMIT 2`),
		likeEscaper.Replace(ref)+"%")
	if err != nil {
		return nil, fmt.Errorf("find review: %w", err)
	}
	var matches []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan review id: %w", err)
		}
		matches = append(matches, id)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find review: %w", err)
	}

	switch len(matches) {
	case 0:
		return nil, apperrors.NotFound("review", ref)
	case 1:
		return s.GetReview(ctx, matches[0])
	}
	return nil, apperrors.InvalidArgument("review id prefix %q is ambiguous", ref)
}

// ListReviews returns reviews matching filter, ordered by status then newest first.
func (s *SQLStore) ListReviews(ctx context.Context, filter ReviewListFilter) ([]*models.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews r`
	var conditions []string
	var args []any

	if filter.Client != "" {
		conditions = append(conditions, "r.client = ?")
		args = append(args, filter.Client)
	}
	if filter.ChannelID != "" {
		conditions = append(conditions, "r.channel_id = ?")
		args = append(args, filter.ChannelID)
	}
	if filter.CreatorID != "" {
		conditions = append(conditions, "r.creator_id = ?")
		args = append(args, filter.CreatorID)
	}
	if filter.ReviewerID != "" {
		conditions = append(conditions, "EXISTS (SELECT 1 FROM review_reviewers rr WHERE rr.review_pk = r.id AND rr.reviewer_id = ?)")
		args = append(args, filter.ReviewerID)
	}
	if filter.Status != "" {
		conditions = append(conditions, "r.status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.ActiveSince != nil {
		since := filter.ActiveSince.UTC()
		conditions = append(conditions, `(r.created_at >= ? OR r.completed_at >= ?
			OR EXISTS (SELECT 1 FROM feedbacks f WHERE f.review_pk = r.id AND f.created_at >= ?))`)
		args = append(args, since, since, since)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY r.status ASC, r.created_at DESC"

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	var reviews []*models.Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, r)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	// Children are loaded after the cursor is closed: SQLite runs on a
	// single connection.
	for _, r := range reviews {
		if err := s.loadReviewChildren(ctx, s.db, r); err != nil {
			return nil, err
		}
	}
	return reviews, nil
}

func (s *SQLStore) loadReviewChildren(ctx context.Context, q querier, r *models.Review) error {
	rows, err := q.QueryContext(ctx, s.rebind(
		`SELECT reviewer_id, reviewer_name FROM review_reviewers WHERE review_pk = ? ORDER BY position`), r.ID)
	if err != nil {
		return fmt.Errorf("list reviewers: %w", err)
	}
	r.Reviewers = nil
	for rows.Next() {
		var p models.Party
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			_ = rows.Close()
			return fmt.Errorf("scan reviewer: %w", err)
		}
		r.Reviewers = append(r.Reviewers, p)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("list reviewers: %w", err)
	}

	rows, err = q.QueryContext(ctx, s.rebind(
		`SELECT id, reviewer_id, reviewer_name, comment, status, created_at
		FROM feedbacks WHERE review_pk = ? ORDER BY created_at ASC, id ASC`), r.ID)
	if err != nil {
		return fmt.Errorf("list feedback: %w", err)
	}
	defer func() { _ = rows.Close() }()

	r.Feedbacks = []*models.Feedback{}
	for rows.Next() {
		fb := &models.Feedback{}
		var status string
		if err := rows.Scan(&fb.ID, &fb.Reviewer.ID, &fb.Reviewer.Name, &fb.Comment, &status, &fb.CreatedAt); err != nil {
			return fmt.Errorf("scan feedback: %w", err)
		}
		fb.Status = models.FeedbackStatus(status)
		fb.CreatedAt = fb.CreatedAt.UTC()
		r.Feedbacks = append(r.Feedbacks, fb)
	}
	return rows.Err()
}

// AddFeedback appends feedback to a review. Only assigned reviewers may
// author feedback; nothing is written otherwise.
func (s *SQLStore) AddFeedback(ctx context.Context, reviewID string, fb *models.Feedback) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var pk string
	err = tx.QueryRowContext(ctx, s.rebind(`SELECT id FROM reviews WHERE review_id = ?`), reviewID).Scan(&pk)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFound("review", reviewID)
	}
	if err != nil {
		return fmt.Errorf("get review: %w", err)
	}

	var assigned int
	err = tx.QueryRowContext(ctx, s.rebind(
		`SELECT COUNT(*) FROM review_reviewers WHERE review_pk = ? AND reviewer_id = ?`),
		pk, fb.Reviewer.ID).Scan(&assigned)
	if err != nil {
		return fmt.Errorf("check reviewer: %w", err)
	}
	if assigned == 0 {
		return fmt.Errorf("%s is not a reviewer on %s: %w", fb.Reviewer.ID, reviewID, apperrors.ErrNotAuthorized)
	}

	if fb.ID == "" {
		fb.ID = newULID()
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now()
	}
	fb.CreatedAt = fb.CreatedAt.UTC()

	_, err = tx.ExecContext(ctx, s.rebind(
		`INSERT INTO feedbacks (id, review_pk, reviewer_id, reviewer_name, comment, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		fb.ID, pk, fb.Reviewer.ID, fb.Reviewer.Name, fb.Comment, string(fb.Status), fb.CreatedAt)
	if err != nil {
		return fmt.Errorf("add feedback: %w", err)
	}

	if _, err := tx.ExecContext(ctx, s.rebind(`UPDATE reviews SET updated_at = ? WHERE id = ?`), fb.CreatedAt, pk); err != nil {
		return fmt.Errorf("touch review: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// UpdateReviewStatus persists a new status as of at (zero means now).
// completed_at is set to at only when markCompleted is true and is never
// cleared. Returns the updated review.
func (s *SQLStore) UpdateReviewStatus(ctx context.Context, reviewID string, status models.ReviewStatus, at time.Time, markCompleted bool) (*models.Review, error) {
	if at.IsZero() {
		at = time.Now()
	}
	now := at.UTC()
	var (
		result sql.Result
		err    error
	)
	if markCompleted {
		result, err = s.db.ExecContext(ctx, s.rebind(
			`UPDATE reviews SET status = ?, updated_at = ?, completed_at = ? WHERE review_id = ?`),
			string(status), now, now, reviewID)
	} else {
		result, err = s.db.ExecContext(ctx, s.rebind(
			`UPDATE reviews SET status = ?, updated_at = ? WHERE review_id = ?`),
			string(status), now, reviewID)
	}
	if err != nil {
		return nil, fmt.Errorf("update review status: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return nil, apperrors.NotFound("review", reviewID)
	}
	return s.GetReview(ctx, reviewID)
}

// --- Tasks ---

const taskColumns = `id, title, description, client, channel_id, creator_id, creator_name,
	assignee_id, assignee_name, status, priority, deadline, created_at, updated_at, completed_at`

func scanTask(row interface{ Scan(...any) error }) (*models.Task, error) {
	t := &models.Task{}
	var status, priority string
	var completedAt sql.NullTime
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Client, &t.ChannelID, &t.Creator.ID, &t.Creator.Name,
		&t.Assignee.ID, &t.Assignee.Name, &status, &priority, &t.Deadline, &t.CreatedAt, &t.UpdatedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	t.Status = models.TaskStatus(status)
	t.Priority = models.TaskPriority(priority)
	t.Deadline = t.Deadline.UTC()
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	t.CompletedAt = timePtr(completedAt)
	return t, nil
}

func (s *SQLStore) CreateTask(ctx context.Context, t *models.Task) error {
	if t.ID == "" {
		t.ID = newULID()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.CreatedAt
	if t.Status == "" {
		t.Status = models.TaskStatusOpen
	}
	if t.Deadline.IsZero() {
		t.Deadline = deadline.Standard.Default(t.CreatedAt)
	}
	t.Deadline = t.Deadline.UTC()

	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		t.ID, t.Title, t.Description, t.Client, t.ChannelID, t.Creator.ID, t.Creator.Name,
		t.Assignee.ID, t.Assignee.Name, string(t.Status), string(t.Priority),
		t.Deadline, t.CreatedAt, t.UpdatedAt, nullableTime(t.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (s *SQLStore) GetTask(ctx context.Context, id string) (*models.Task, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx, s.rebind(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("task", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (s *SQLStore) ListTasks(ctx context.Context, filter TaskListFilter) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	var conditions []string
	var args []any

	if filter.Client != "" {
		conditions = append(conditions, "client = ?")
		args = append(args, filter.Client)
	}
	if filter.ChannelID != "" {
		conditions = append(conditions, "channel_id = ?")
		args = append(args, filter.ChannelID)
	}
	if filter.AssigneeID != "" {
		conditions = append(conditions, "assignee_id = ?")
		args = append(args, filter.AssigneeID)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY
		CASE status WHEN 'open' THEN 0 ELSE 1 END,
		deadline ASC`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *SQLStore) UpdateTask(ctx context.Context, t *models.Task) error {
	t.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx, s.rebind(
		`UPDATE tasks SET title=?, description=?, client=?, channel_id=?, assignee_id=?, assignee_name=?, status=?, priority=?, deadline=?, updated_at=?, completed_at=?
		WHERE id=?`),
		t.Title, t.Description, t.Client, t.ChannelID, t.Assignee.ID, t.Assignee.Name,
		string(t.Status), string(t.Priority), t.Deadline.UTC(), t.UpdatedAt, nullableTime(t.CompletedAt), t.ID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return apperrors.NotFound("task", t.ID)
	}
	return nil
}

func (s *SQLStore) DeleteTask(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM tasks WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return apperrors.NotFound("task", id)
	}
	return nil
}
