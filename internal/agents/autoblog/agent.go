// Package autoblog implements the content-publishing agent: it generates
// short blog posts with the shared LLM provider, writes them to a blog
// directory, and tracks its settings in a small JSON state record. The
// blog directory doubles as the source the social agent threads from.
package autoblog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"agentos/internal/domain"
)

const helpText = `Autoblog Agent Commands:
- generate: generate and save a new blog post
- blog-repo <name>: set the repository posts are written about
- setdate YYYY-MM-DD: set the publish date for the next post
- status: show current settings and post count
- help: show this help`

var dateTokenRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// state is the persisted settings record.
type state struct {
	Repo        string `json:"repo"`
	PublishDate string `json:"publish_date"`
	Generated   int    `json:"generated"`
	LastTitle   string `json:"last_title"`
}

// Agent is the content-publishing agent.
type Agent struct {
	provider  domain.LLMProvider // nil when no model is available
	statePath string
	blogDir   string
	logger    *slog.Logger
	now       func() time.Time

	mu sync.Mutex
	st state
}

// New creates the agent and loads any persisted state. A missing or
// corrupt state file starts fresh.
func New(provider domain.LLMProvider, statePath, blogDir string, logger *slog.Logger) (*Agent, error) {
	if err := os.MkdirAll(blogDir, 0o755); err != nil {
		return nil, fmt.Errorf("create blog dir: %w", err)
	}

	a := &Agent{
		provider:  provider,
		statePath: statePath,
		blogDir:   blogDir,
		logger:    logger.With("agent", domain.AgentAutoblog),
		now:       time.Now,
	}
	a.loadState()
	return a, nil
}

func (a *Agent) Capabilities() []string {
	return []string{
		"Generate blog posts about a repository",
		"Configure the target repository and publish date",
	}
}

func (a *Agent) Process(ctx context.Context, command string) domain.Envelope {
	lower := strings.ToLower(strings.TrimSpace(command))

	switch {
	case strings.HasPrefix(lower, "generate"):
		return a.handleGenerate(ctx)
	case strings.HasPrefix(lower, "blog-repo"):
		return a.handleSetRepo(strings.TrimSpace(command[len("blog-repo"):]))
	case strings.HasPrefix(lower, "setdate"):
		return a.handleSetDate(strings.TrimSpace(command[len("setdate"):]))
	case strings.HasPrefix(lower, "status"):
		return a.handleStatus()
	case strings.HasPrefix(lower, "help") || lower == "":
		return domain.Success(helpText).
			WithSpoken("I can generate blog posts and manage publishing settings.")
	default:
		return domain.Error("Unrecognized autoblog command. Try 'autoblog help'.").
			WithSpoken("I'm not sure what you want me to do with the blog. Try asking for autoblog help.")
	}
}

func (a *Agent) handleGenerate(ctx context.Context) domain.Envelope {
	if a.provider == nil {
		return domain.Error("No language model is available for blog generation.").
			WithSpoken("I can't generate posts without a language model.")
	}

	a.mu.Lock()
	repo := a.st.Repo
	publishDate := a.st.PublishDate
	a.mu.Unlock()
	if publishDate == "" {
		publishDate = a.now().Format("2006-01-02")
	}

	topic := "recent progress"
	if repo != "" {
		topic = "recent work in the " + repo + " repository"
	}
	resp, err := a.provider.Generate(ctx, domain.GenerateRequest{
		Prompt: fmt.Sprintf(
			"Write a short, friendly blog post about %s. Start with a one-line title, then the body. Keep it under 300 words.",
			topic,
		),
		Temperature: 0.7,
		MaxTokens:   512,
	})
	if err != nil {
		a.logger.Error("generation failed", "error", err)
		return domain.Error("Blog generation failed.").
			WithSpoken("Sorry, I couldn't generate a post right now.")
	}

	title, body := splitPost(resp.Text)
	if title == "" {
		title = "Blog post " + publishDate
	}

	path := filepath.Join(a.blogDir, publishDate+"-"+slugify(title)+".md")
	content := "# " + title + "\n\n" + body + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		a.logger.Error("write post failed", "path", path, "error", err)
		return domain.Error("Failed to save the generated post.").
			WithSpoken("I generated a post but couldn't save it.")
	}

	a.mu.Lock()
	a.st.Generated++
	a.st.LastTitle = title
	a.saveStateLocked()
	a.mu.Unlock()

	a.logger.Info("blog post generated", "title", title, "path", path)
	return domain.Success(fmt.Sprintf("Generated blog post %q (%s).", title, filepath.Base(path))).
		WithSpoken(fmt.Sprintf("I've written a new post titled %s.", title)).
		WithData(map[string]any{"title": title, "path": path})
}

func (a *Agent) handleSetRepo(name string) domain.Envelope {
	if name == "" {
		return domain.Success(helpText).
			WithSpoken("Which repository should I write about?")
	}

	a.mu.Lock()
	a.st.Repo = name
	a.saveStateLocked()
	a.mu.Unlock()

	return domain.Success(fmt.Sprintf("Blog repository set to %q.", name)).
		WithSpoken(fmt.Sprintf("I'll write about the %s repository.", name))
}

func (a *Agent) handleSetDate(date string) domain.Envelope {
	if !dateTokenRe.MatchString(date) {
		return domain.Error("Invalid date. Usage: setdate YYYY-MM-DD").
			WithSpoken("Please give me a date in year-month-day form.")
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return domain.Error("Invalid date. Usage: setdate YYYY-MM-DD").
			WithSpoken("That date doesn't exist.")
	}

	a.mu.Lock()
	a.st.PublishDate = date
	a.saveStateLocked()
	a.mu.Unlock()

	return domain.Success("Publish date set to " + date + ".").
		WithSpoken("Publish date updated.")
}

func (a *Agent) handleStatus() domain.Envelope {
	a.mu.Lock()
	st := a.st
	a.mu.Unlock()

	repo := st.Repo
	if repo == "" {
		repo = "(not set)"
	}
	date := st.PublishDate
	if date == "" {
		date = "(today)"
	}
	return domain.Success(fmt.Sprintf(
		"Repository: %s. Publish date: %s. Posts generated: %d.",
		repo, date, st.Generated,
	)).
		WithSpoken(fmt.Sprintf("I've generated %d posts so far.", st.Generated)).
		WithData(map[string]any{
			"repo":      st.Repo,
			"date":      st.PublishDate,
			"generated": st.Generated,
		})
}

// LatestPost returns the newest post in the blog directory. Satisfies the
// social agent's blog source contract. Lexical order works because
// filenames lead with the YYYY-MM-DD date.
func (a *Agent) LatestPost() (string, string, error) {
	entries, err := os.ReadDir(a.blogDir)
	if err != nil {
		return "", "", fmt.Errorf("read blog dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", "", nil
	}
	sort.Strings(names)
	newest := names[len(names)-1]

	data, err := os.ReadFile(filepath.Join(a.blogDir, newest))
	if err != nil {
		return "", "", fmt.Errorf("read post: %w", err)
	}

	title, body := splitPost(strings.TrimPrefix(strings.TrimSpace(string(data)), "# "))
	return title, body, nil
}

func (a *Agent) loadState() {
	data, err := os.ReadFile(a.statePath)
	if err != nil {
		return
	}
	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		a.logger.Warn("corrupt autoblog state, starting fresh", "error", err)
		return
	}
	a.st = st
}

func (a *Agent) saveStateLocked() {
	data, err := json.MarshalIndent(a.st, "", "  ")
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(a.statePath), 0o755); err != nil {
		a.logger.Warn("save state failed", "error", err)
		return
	}
	if err := os.WriteFile(a.statePath, data, 0o644); err != nil {
		a.logger.Warn("save state failed", "error", err)
	}
}

// splitPost separates a generated post into its first-line title and the
// remaining body.
func splitPost(text string) (string, string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ""
	}
	title, body, found := strings.Cut(text, "\n")
	title = strings.TrimSpace(strings.Trim(title, "# "))
	if !found {
		return title, ""
	}
	return title, strings.TrimSpace(body)
}

var nonSlugRe = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(s string) string {
	s = nonSlugRe.ReplaceAllString(strings.ToLower(s), "-")
	s = strings.Trim(s, "-")
	if len(s) > 48 {
		s = s[:48]
	}
	return s
}
