package datetime

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Task is one stored to-do item. Priority runs 1 (default) to 4 (highest),
// matching common task-app conventions.
type Task struct {
	ID        int64
	Content   string
	Due       string
	Priority  int
	CreatedAt time.Time
}

// TaskStore persists tasks in a local SQLite database.
type TaskStore struct {
	db *sql.DB
}

// NewTaskStore opens (or creates) the task database at dbPath and runs
// the schema migration.
func NewTaskStore(dbPath string) (*TaskStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open task db: %w", err)
	}
	// WAL mode for better concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS tasks (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			content    TEXT NOT NULL,
			due        TEXT NOT NULL DEFAULT '',
			priority   INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate task db: %w", err)
	}
	return &TaskStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *TaskStore) Close() error { return s.db.Close() }

// Add inserts a task and returns it with its assigned id.
func (s *TaskStore) Add(ctx context.Context, content, due string, priority int) (Task, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO tasks (content, due, priority, created_at) VALUES (?, ?, ?, ?)",
		content, due, priority, now.Format(time.RFC3339),
	)
	if err != nil {
		return Task{}, fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Task{}, fmt.Errorf("task id: %w", err)
	}
	return Task{ID: id, Content: content, Due: due, Priority: priority, CreatedAt: now}, nil
}

// List returns tasks, optionally filtered on the due string, highest
// priority first.
func (s *TaskStore) List(ctx context.Context, dueFilter string) ([]Task, error) {
	query := "SELECT id, content, due, priority, created_at FROM tasks"
	args := []any{}
	if dueFilter != "" {
		query += " WHERE due LIKE ?"
		args = append(args, "%"+dueFilter+"%")
	}
	query += " ORDER BY priority DESC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		var t Task
		var created string
		if err := rows.Scan(&t.ID, &t.Content, &t.Due, &t.Priority, &created); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.CreatedAt, _ = time.Parse(time.RFC3339, created)
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

var (
	duePatternRe      = regexp.MustCompile(`(?i)(?:due |on |for )?(tomorrow|today|tonight|next \w+)(?:\s+at\s+(\d+(?::\d+)?(?:am|pm)?))?`)
	priorityPatternRe = regexp.MustCompile(`(?i)(?:with |at )?(?:priority|p)\s*(\d)`)
	leadingVerbRe     = regexp.MustCompile(`(?i)^(add|create|new)\s+(a\s+)?(task|todo|reminder)?\s*(to\s+)?`)
)

// extractTaskDetails pulls the due string and priority out of free-form
// task phrasing, returning the cleaned content. "add a task to buy milk
// tomorrow at 5pm with high priority" yields ("buy milk", "tomorrow at
// 5pm", 4).
func extractTaskDetails(input string) (content, due string, priority int) {
	content = strings.TrimSpace(input)
	priority = 1

	content = leadingVerbRe.ReplaceAllString(content, "")

	if m := duePatternRe.FindString(content); m != "" {
		due = strings.TrimSpace(m)
		due = strings.TrimPrefix(due, "due ")
		due = strings.TrimPrefix(due, "on ")
		due = strings.TrimPrefix(due, "for ")
		content = strings.Replace(content, m, "", 1)
	}

	if m := priorityPatternRe.FindStringSubmatch(content); m != nil {
		if p, err := strconv.Atoi(m[1]); err == nil && p >= 1 && p <= 4 {
			priority = p
		}
		content = strings.Replace(content, m[0], "", 1)
	} else {
		lower := strings.ToLower(content)
		switch {
		case strings.Contains(lower, "high priority"):
			priority = 4
			content = removeFold(content, "high priority")
		case strings.Contains(lower, "medium priority"):
			priority = 3
			content = removeFold(content, "medium priority")
		case strings.Contains(lower, "low priority"):
			priority = 2
			content = removeFold(content, "low priority")
		}
	}

	content = strings.Join(strings.Fields(content), " ")
	return content, due, priority
}

// listFilter extracts a due filter from list phrasing.
func listFilter(input string) string {
	lower := strings.ToLower(input)
	switch {
	case strings.Contains(lower, "today"):
		return "today"
	case strings.Contains(lower, "tomorrow"):
		return "tomorrow"
	default:
		return ""
	}
}

func removeFold(s, phrase string) string {
	idx := strings.Index(strings.ToLower(s), phrase)
	if idx < 0 {
		return s
	}
	return s[:idx] + s[idx+len(phrase):]
}
