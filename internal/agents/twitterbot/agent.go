// Package twitterbot implements the social-posting agent: single tweets,
// blog-post threads, timeline reads, and a scheduled blog monitor that
// threads new posts automatically.
package twitterbot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"agentos/internal/domain"
)

// maxTweetLen is the platform's character budget per post. Thread chunks
// reserve room for the "(i/n)" suffix.
const maxTweetLen = 280

const helpText = `TwitterBot Agent Commands:
- tweet <message>: post a single tweet
- post blog thread: publish the latest blog post as a thread
- timeline: show recent posts
- status: show posting and monitor state
- monitor blog: start watching the blog for new posts
- stop monitor: stop the blog watch`

// BlogSource supplies the latest blog post for threading. The autoblog
// agent's output directory is the usual backing; tests inject a fake.
type BlogSource interface {
	LatestPost() (title, body string, err error)
}

// Options configures the agent.
type Options struct {
	Poster          Poster
	Blog            BlogSource // may be nil
	Bus             domain.EventBus
	PostsPerMinute  int
	MonitorSchedule string // cron spec, e.g. "@every 5m"
	Logger          *slog.Logger
}

// Agent is the social-posting agent.
type Agent struct {
	poster  Poster
	blog    BlogSource
	bus     domain.EventBus
	limiter *rate.Limiter
	logger  *slog.Logger

	schedule string

	mu           sync.Mutex
	cron         *cron.Cron
	lastSeenPost string
	posted       int
}

// New creates the agent. Poster is required; everything else is optional.
func New(opts Options) (*Agent, error) {
	if opts.Poster == nil {
		return nil, fmt.Errorf("%w: twitterbot requires a poster", domain.ErrInvalidInput)
	}

	perMinute := opts.PostsPerMinute
	if perMinute <= 0 {
		perMinute = 5
	}
	schedule := opts.MonitorSchedule
	if schedule == "" {
		schedule = "@every 5m"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Agent{
		poster:   opts.Poster,
		blog:     opts.Blog,
		bus:      opts.Bus,
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
		logger:   logger.With("agent", domain.AgentTwitterBot),
		schedule: schedule,
	}, nil
}

func (a *Agent) Capabilities() []string {
	return []string{
		"Post tweets and blog-post threads",
		"Show the recent timeline",
		"Monitor the blog and thread new posts automatically",
	}
}

// Process matches keywords anywhere in the input. Voice-corrected
// commands arrive as whole sentences ("send a tweet saying hello"), so
// prefix matching would miss them.
func (a *Agent) Process(ctx context.Context, command string) domain.Envelope {
	command = strings.TrimSpace(command)
	lower := strings.ToLower(command)

	switch {
	case strings.Contains(lower, "tweet"):
		return a.handleTweet(ctx, tweetMessage(command, lower))
	case strings.Contains(lower, "post blog thread"):
		return a.handleBlogThread(ctx)
	case strings.Contains(lower, "timeline"):
		return a.handleTimeline(ctx)
	case strings.Contains(lower, "stop") && strings.Contains(lower, "monitor"):
		return a.stopMonitor(ctx)
	case strings.Contains(lower, "monitor"):
		return a.startMonitor(ctx)
	case strings.Contains(lower, "status"):
		return a.handleStatus()
	case strings.Contains(lower, "help"):
		return domain.Success(helpText).
			WithSpoken("I can post tweets, publish blog threads, and watch the blog for new posts.")
	default:
		return domain.Error("Unrecognized twitterbot command. Try 'twitterbot help'.").
			WithSpoken("I'm not sure what you want me to post. Try asking for twitterbot help.")
	}
}

// tweetMessage extracts the text after the first "tweet" keyword,
// preserving the original casing.
func tweetMessage(command, lower string) string {
	idx := strings.Index(lower, "tweet")
	return strings.TrimSpace(command[idx+len("tweet"):])
}

func (a *Agent) handleTweet(ctx context.Context, message string) domain.Envelope {
	if message == "" {
		return domain.Error("Nothing to tweet. Usage: tweet <message>").
			WithSpoken("What would you like me to tweet?")
	}
	if runes := []rune(message); len(runes) > maxTweetLen {
		message = string(runes[:maxTweetLen])
	}

	tweet, err := a.post(ctx, message)
	if err != nil {
		a.logger.Error("tweet failed", "error", err)
		return domain.Error("Failed to post the tweet.").
			WithSpoken("Sorry, I couldn't post that tweet.")
	}

	return domain.Success("Tweet posted: " + tweet.Text).
		WithSpoken("Tweet posted.").
		WithData(map[string]any{"tweet_id": tweet.ID})
}

func (a *Agent) handleBlogThread(ctx context.Context) domain.Envelope {
	if a.blog == nil {
		return domain.Error("No blog source is configured.").
			WithSpoken("I don't have a blog to thread from.")
	}

	title, body, err := a.blog.LatestPost()
	if err != nil {
		a.logger.Error("blog source failed", "error", err)
		return domain.Error("Could not read the latest blog post.").
			WithSpoken("Sorry, I couldn't read the blog.")
	}
	if title == "" && body == "" {
		return domain.Error("There is no blog post to thread yet.").
			WithSpoken("There's nothing in the blog to post yet.")
	}

	chunks := threadChunks(title, body)
	var firstID string
	for _, chunk := range chunks {
		tweet, err := a.post(ctx, chunk)
		if err != nil {
			a.logger.Error("thread post failed", "error", err)
			return domain.Error("Failed partway through posting the thread.").
				WithSpoken("Sorry, the thread didn't finish posting.")
		}
		if firstID == "" {
			firstID = tweet.ID
		}
	}

	a.mu.Lock()
	a.lastSeenPost = title
	a.mu.Unlock()

	return domain.Success(fmt.Sprintf("Posted blog thread %q in %d tweets.", title, len(chunks))).
		WithSpoken("Blog thread posted.").
		WithData(map[string]any{"thread_id": firstID, "tweets": len(chunks)})
}

func (a *Agent) handleTimeline(ctx context.Context) domain.Envelope {
	tweets, err := a.poster.Timeline(ctx)
	if err != nil {
		a.logger.Error("timeline failed", "error", err)
		return domain.Error("Failed to fetch the timeline.").
			WithSpoken("Sorry, I couldn't fetch the timeline.")
	}
	if len(tweets) == 0 {
		return domain.Success("The timeline is empty.").
			WithSpoken("There's nothing on the timeline.")
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Recent posts (%d):\n", len(tweets)))
	for i, t := range tweets {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, t.Text))
	}
	return domain.Success(strings.TrimRight(sb.String(), "\n")).
		WithSpoken(fmt.Sprintf("You have %d recent posts.", len(tweets)))
}

func (a *Agent) handleStatus() domain.Envelope {
	a.mu.Lock()
	running := a.cron != nil
	posted := a.posted
	a.mu.Unlock()

	monitor := "stopped"
	if running {
		monitor = "running (" + a.schedule + ")"
	}
	return domain.Success(fmt.Sprintf("Posted %d tweet(s) this session. Blog monitor: %s.", posted, monitor)).
		WithSpoken(fmt.Sprintf("I've posted %d tweets this session.", posted)).
		WithData(map[string]any{"posted": posted, "monitor_running": running})
}

func (a *Agent) startMonitor(ctx context.Context) domain.Envelope {
	if a.blog == nil {
		return domain.Error("No blog source is configured to monitor.").
			WithSpoken("I don't have a blog to monitor.")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cron != nil {
		return domain.Info("The blog monitor is already running.").
			WithSpoken("I'm already watching the blog.")
	}

	c := cron.New()
	if _, err := c.AddFunc(a.schedule, a.checkBlog); err != nil {
		a.logger.Error("invalid monitor schedule", "schedule", a.schedule, "error", err)
		return domain.Error("The monitor schedule is invalid.").
			WithSpoken("The monitor schedule is misconfigured.")
	}
	c.Start()
	a.cron = c

	publishEvent(ctx, a.bus, domain.EventMonitorStarted)
	a.logger.Info("blog monitor started", "schedule", a.schedule)
	return domain.Success("Blog monitor started (" + a.schedule + ").").
		WithSpoken("I'm now watching the blog for new posts.")
}

func (a *Agent) stopMonitor(ctx context.Context) domain.Envelope {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cron == nil {
		return domain.Info("The blog monitor is not running.").
			WithSpoken("I wasn't watching the blog.")
	}

	a.cron.Stop()
	a.cron = nil

	publishEvent(ctx, a.bus, domain.EventMonitorStopped)
	a.logger.Info("blog monitor stopped")
	return domain.Success("Blog monitor stopped.").
		WithSpoken("I've stopped watching the blog.")
}

// Close stops the monitor if it is running.
func (a *Agent) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cron != nil {
		a.cron.Stop()
		a.cron = nil
	}
}

// checkBlog is the cron tick: thread the latest post if it is new.
func (a *Agent) checkBlog() {
	title, _, err := a.blog.LatestPost()
	if err != nil {
		a.logger.Warn("blog check failed", "error", err)
		return
	}

	a.mu.Lock()
	seen := a.lastSeenPost
	a.mu.Unlock()
	if title == "" || title == seen {
		return
	}

	a.logger.Info("new blog post detected", "title", title)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	env := a.handleBlogThread(ctx)
	if env.IsError() {
		a.logger.Warn("automatic thread failed", "message", env.Message)
	}
}

// post applies the rate limit before publishing.
func (a *Agent) post(ctx context.Context, text string) (Tweet, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return Tweet{}, fmt.Errorf("rate limit wait: %w", err)
	}
	tweet, err := a.poster.PostTweet(ctx, text)
	if err != nil {
		return Tweet{}, err
	}
	a.mu.Lock()
	a.posted++
	a.mu.Unlock()
	return tweet, nil
}

// threadChunks splits a blog post into tweet-sized pieces with "(i/n)"
// markers. The title leads the first tweet.
func threadChunks(title, body string) []string {
	text := strings.TrimSpace(title)
	if body != "" {
		text += "\n\n" + strings.TrimSpace(body)
	}

	const budget = maxTweetLen - 8 // room for the " (nn/nn)" suffix
	words := strings.Fields(text)

	var chunks []string
	var current strings.Builder
	for _, word := range words {
		if current.Len() > 0 && current.Len()+1+len(word) > budget {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}

	if len(chunks) > 1 {
		for i := range chunks {
			chunks[i] = fmt.Sprintf("%s (%d/%d)", chunks[i], i+1, len(chunks))
		}
	}
	return chunks
}

func publishEvent(ctx context.Context, bus domain.EventBus, typ domain.EventType) {
	if bus == nil {
		return
	}
	bus.Publish(ctx, domain.Event{
		Type:      typ,
		Timestamp: time.Now(),
		AgentID:   domain.AgentTwitterBot,
	})
}
