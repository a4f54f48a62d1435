package datetime

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"agentos/internal/domain"
)

func newTestAgent(t *testing.T) *Agent {
	t.Helper()
	a := New(filepath.Join(t.TempDir(), "tasks.db"), slog.New(slog.DiscardHandler))
	if a.tasks == nil {
		t.Fatal("task store failed to open")
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestTimeCommand(t *testing.T) {
	a := newTestAgent(t)
	a.now = func() time.Time {
		return time.Date(2026, 3, 1, 14, 30, 0, 0, time.UTC)
	}

	env := a.Process(context.Background(), "time")
	if env.Status != domain.StatusSuccess {
		t.Fatalf("status = %q", env.Status)
	}
	if env.Message != "Current time: 2:30 PM" {
		t.Errorf("message = %q", env.Message)
	}
	if env.Data["hour"] != 14 {
		t.Errorf("hour = %v", env.Data["hour"])
	}
}

func TestDateCommand(t *testing.T) {
	a := newTestAgent(t)
	a.now = func() time.Time {
		return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	}

	env := a.Process(context.Background(), "date")
	if env.Status != domain.StatusSuccess {
		t.Fatalf("status = %q", env.Status)
	}
	if env.Data["weekday"] != "Sunday" {
		t.Errorf("weekday = %v", env.Data["weekday"])
	}
}

func TestWeatherIsInfoStub(t *testing.T) {
	a := newTestAgent(t)
	env := a.Process(context.Background(), "weather")
	if env.Status != domain.StatusInfo {
		t.Errorf("status = %q, want info", env.Status)
	}
}

func TestUnrecognizedCommand(t *testing.T) {
	a := newTestAgent(t)
	env := a.Process(context.Background(), "frobnicate")
	if env.Status != domain.StatusError {
		t.Errorf("status = %q, want error", env.Status)
	}
	if env.Message == "" {
		t.Error("expected non-empty message")
	}
}

func TestAddAndListTasks(t *testing.T) {
	a := newTestAgent(t)
	ctx := context.Background()

	env := a.Process(ctx, "add buy milk tomorrow at 5pm with high priority")
	if env.Status != domain.StatusSuccess {
		t.Fatalf("add: status = %q, message = %q", env.Status, env.Message)
	}
	if env.Data["content"] != "buy milk" {
		t.Errorf("content = %v", env.Data["content"])
	}
	if env.Data["due"] != "tomorrow at 5pm" {
		t.Errorf("due = %v", env.Data["due"])
	}
	if env.Data["priority"] != 4 {
		t.Errorf("priority = %v", env.Data["priority"])
	}

	env = a.Process(ctx, "list tasks")
	if env.Status != domain.StatusSuccess {
		t.Fatalf("list: status = %q", env.Status)
	}
	if env.Data["count"] != 1 {
		t.Errorf("count = %v", env.Data["count"])
	}
}

func TestListFilterByDue(t *testing.T) {
	a := newTestAgent(t)
	ctx := context.Background()

	a.Process(ctx, "add water plants today")
	a.Process(ctx, "add call dentist tomorrow")

	env := a.Process(ctx, "list tasks for today")
	if env.Data["count"] != 1 {
		t.Errorf("count = %v, want 1", env.Data["count"])
	}
}

func TestExtractTaskDetails(t *testing.T) {
	cases := []struct {
		input        string
		wantContent  string
		wantDue      string
		wantPriority int
	}{
		{"add a task to buy milk tomorrow at 5pm", "buy milk", "tomorrow at 5pm", 1},
		{"add buy milk p1", "buy milk", "", 1},
		{"add file taxes with priority 4", "file taxes", "", 4},
		{"create a reminder to stretch low priority", "stretch", "", 2},
		{"add walk the dog today", "walk the dog", "today", 1},
	}

	for _, tc := range cases {
		content, due, priority := extractTaskDetails(tc.input)
		if content != tc.wantContent || due != tc.wantDue || priority != tc.wantPriority {
			t.Errorf("extractTaskDetails(%q) = (%q, %q, %d), want (%q, %q, %d)",
				tc.input, content, due, priority, tc.wantContent, tc.wantDue, tc.wantPriority)
		}
	}
}
