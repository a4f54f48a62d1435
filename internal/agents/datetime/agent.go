// Package datetime implements the scheduling agent: current time and
// date, a weather stub, and a small task manager backed by SQLite.
package datetime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"agentos/internal/domain"
)

const helpText = `Datetime Agent Commands:
- time: show the current time
- date: show the current date
- weather: show weather information (not yet implemented)

Task Management:
- add <description> [due time/date] [priority]: add a new task
- list tasks [today|tomorrow]: show your current tasks`

// Agent handles date, time, and task commands.
type Agent struct {
	tasks  *TaskStore
	logger *slog.Logger
	now    func() time.Time
}

// New creates the datetime agent. A task store failure is non-fatal:
// time/date commands keep working and task commands report the store
// problem.
func New(taskDBPath string, logger *slog.Logger) *Agent {
	log := logger.With("agent", domain.AgentDatetime)

	tasks, err := NewTaskStore(taskDBPath)
	if err != nil {
		log.Error("task store unavailable", "error", err)
		tasks = nil
	}

	return &Agent{tasks: tasks, logger: log, now: time.Now}
}

// Close releases the task store.
func (a *Agent) Close() error {
	if a.tasks == nil {
		return nil
	}
	return a.tasks.Close()
}

func (a *Agent) Capabilities() []string {
	return []string{
		"Tell the current time and date",
		"Add tasks with due dates and priorities",
		"List pending tasks",
	}
}

func (a *Agent) Process(ctx context.Context, command string) domain.Envelope {
	lower := strings.ToLower(strings.TrimSpace(command))

	// Task phrasing takes precedence over the simple time/date commands.
	if containsAny(lower, "task", "todo", "reminder", "add", "list", "show") {
		return a.handleTasks(ctx, command, lower)
	}

	switch {
	case strings.HasPrefix(lower, "time"):
		return a.handleTime()
	case strings.HasPrefix(lower, "date"):
		return a.handleDate()
	case strings.HasPrefix(lower, "weather"):
		return domain.Info("Weather functionality is not yet implemented.").
			WithSpoken("I don't have weather information available yet.")
	case strings.HasPrefix(lower, "help"):
		return domain.Success(helpText).
			WithSpoken("I can help with time, date, and task management. For tasks, try 'add' or 'list tasks'.")
	default:
		return domain.Error("Unrecognized datetime command. Try 'datetime help' for available commands.").
			WithSpoken("I'm not sure what you want me to do with that datetime command. Try asking for 'datetime help'.")
	}
}

func (a *Agent) handleTime() domain.Envelope {
	now := a.now()
	timeStr := now.Format("3:04 PM")
	return domain.Success("Current time: " + timeStr).
		WithSpoken(fmt.Sprintf("The current time is %s.", timeStr)).
		WithData(map[string]any{
			"time":   timeStr,
			"hour":   now.Hour(),
			"minute": now.Minute(),
		})
}

func (a *Agent) handleDate() domain.Envelope {
	now := a.now()
	dateStr := now.Format("Monday, January 2, 2006")
	return domain.Success("Current date: " + dateStr).
		WithSpoken(fmt.Sprintf("Today is %s.", dateStr)).
		WithData(map[string]any{
			"date":    dateStr,
			"year":    now.Year(),
			"month":   int(now.Month()),
			"day":     now.Day(),
			"weekday": now.Weekday().String(),
		})
}

func (a *Agent) handleTasks(ctx context.Context, command, lower string) domain.Envelope {
	if a.tasks == nil {
		return domain.Error("Task storage is not available. Please check the data directory.").
			WithSpoken("I couldn't process your task because task storage is not configured correctly.")
	}

	if containsAny(lower, "list", "show") {
		return a.listTasks(ctx, lower)
	}
	if strings.Contains(lower, "help") && !containsAny(lower, "add", "create", "new") {
		return domain.Success(helpText)
	}
	return a.addTask(ctx, command)
}

func (a *Agent) addTask(ctx context.Context, command string) domain.Envelope {
	content, due, priority := extractTaskDetails(command)
	if content == "" {
		return domain.Error("I couldn't find a task description in that command.").
			WithSpoken("What should the task say?")
	}

	task, err := a.tasks.Add(ctx, content, due, priority)
	if err != nil {
		a.logger.Error("add task failed", "error", err)
		return domain.Error("Failed to add the task.").
			WithSpoken("Sorry, I couldn't save that task.")
	}

	spoken := fmt.Sprintf("Added task: %s", task.Content)
	if task.Due != "" {
		spoken += " due " + task.Due
	}
	return domain.Success(fmt.Sprintf("Added task #%d: %s", task.ID, task.Content)).
		WithSpoken(spoken + ".").
		WithData(map[string]any{
			"task_id":  task.ID,
			"content":  task.Content,
			"due":      task.Due,
			"priority": task.Priority,
		})
}

func (a *Agent) listTasks(ctx context.Context, lower string) domain.Envelope {
	tasks, err := a.tasks.List(ctx, listFilter(lower))
	if err != nil {
		a.logger.Error("list tasks failed", "error", err)
		return domain.Error("Failed to list tasks.").
			WithSpoken("Sorry, I couldn't read your tasks.")
	}

	if len(tasks) == 0 {
		return domain.Success("You have no pending tasks.").
			WithSpoken("Your task list is empty.")
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("You have %d task(s):\n", len(tasks)))
	for i, t := range tasks {
		due := t.Due
		if due == "" {
			due = "no date"
		}
		sb.WriteString(fmt.Sprintf("%d. %s (due: %s, priority: %d)\n", i+1, t.Content, due, t.Priority))
	}

	return domain.Success(strings.TrimRight(sb.String(), "\n")).
		WithSpoken(fmt.Sprintf("You have %d tasks.", len(tasks))).
		WithData(map[string]any{"count": len(tasks)})
}

// SummarizeResult produces a terse spoken form for results that carry
// none of their own, like the multi-line task help text.
func (a *Agent) SummarizeResult(env domain.Envelope) string {
	if count, ok := env.Data["count"]; ok {
		return fmt.Sprintf("You have %v tasks.", count)
	}
	first, _, _ := strings.Cut(env.Message, "\n")
	return first
}

func containsAny(s string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
