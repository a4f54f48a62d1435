// Package spotiauto implements the music agent. Playback goes through
// an injected Player so the agent stays testable without a live
// Spotify session.
package spotiauto

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"agentos/internal/domain"
)

const helpText = `Spotiauto Agent Commands:
- play <query>: search and play a track
- pause: pause playback
- status: show what is currently playing
- help: show this help`

// NowPlaying describes the current playback state.
type NowPlaying struct {
	Track   string
	Artist  string
	Playing bool
}

// Player is the playback backend.
type Player interface {
	Play(ctx context.Context, query string) (NowPlaying, error)
	Pause(ctx context.Context) error
	Status(ctx context.Context) (NowPlaying, error)
}

// Agent handles music commands.
type Agent struct {
	player Player
	logger *slog.Logger
}

func New(player Player, logger *slog.Logger) *Agent {
	return &Agent{
		player: player,
		logger: logger.With("agent", domain.AgentSpotiauto),
	}
}

func (a *Agent) Capabilities() []string {
	return []string{
		"Play music by track, artist, or mood",
		"Pause playback",
		"Report the currently playing track",
	}
}

func (a *Agent) Process(ctx context.Context, command string) domain.Envelope {
	cmd := strings.TrimSpace(command)
	lower := strings.ToLower(cmd)

	switch {
	case strings.HasPrefix(lower, "play"):
		return a.handlePlay(ctx, strings.TrimSpace(cmd[len("play"):]))
	case lower == "pause" || lower == "stop":
		return a.handlePause(ctx)
	case lower == "status":
		return a.handleStatus(ctx)
	case lower == "help" || lower == "":
		return domain.Success(helpText).
			WithSpoken("I can play, pause, and tell you what's on.")
	default:
		return domain.Error("Unrecognized spotiauto command. Try 'spotiauto help'.").
			WithSpoken("I didn't understand that music command.")
	}
}

func (a *Agent) handlePlay(ctx context.Context, query string) domain.Envelope {
	if a.player == nil {
		return domain.Error("Spotify is not configured.").
			WithSpoken("Music playback isn't set up yet.")
	}
	if query == "" {
		return domain.Error("Nothing to play. Usage: play <query>").
			WithSpoken("What would you like to hear?")
	}

	np, err := a.player.Play(ctx, query)
	if err != nil {
		a.logger.Error("play failed", "query", query, "error", err)
		if errors.Is(err, domain.ErrAuthInvalid) {
			return domain.Error("Spotify authorization failed. Please re-link your account.").
				WithSpoken("I can't reach Spotify. Your account may need re-linking.")
		}
		return domain.Error("Could not start playback.").
			WithSpoken("Sorry, I couldn't play that.")
	}

	msg := fmt.Sprintf("Now playing: %s by %s", np.Track, np.Artist)
	return domain.Success(msg).
		WithSpoken(fmt.Sprintf("Playing %s by %s.", np.Track, np.Artist)).
		WithData(map[string]any{"track": np.Track, "artist": np.Artist})
}

func (a *Agent) handlePause(ctx context.Context) domain.Envelope {
	if a.player == nil {
		return domain.Error("Spotify is not configured.").
			WithSpoken("Music playback isn't set up yet.")
	}
	if err := a.player.Pause(ctx); err != nil {
		a.logger.Error("pause failed", "error", err)
		return domain.Error("Could not pause playback.").
			WithSpoken("Sorry, I couldn't pause the music.")
	}
	return domain.Success("Playback paused.").WithSpoken("Paused.")
}

func (a *Agent) handleStatus(ctx context.Context) domain.Envelope {
	if a.player == nil {
		return domain.Error("Spotify is not configured.").
			WithSpoken("Music playback isn't set up yet.")
	}

	np, err := a.player.Status(ctx)
	if err != nil {
		a.logger.Error("status failed", "error", err)
		return domain.Error("Could not read playback status.").
			WithSpoken("Sorry, I couldn't check what's playing.")
	}
	if !np.Playing || np.Track == "" {
		return domain.Info("Nothing is playing right now.").
			WithSpoken("Nothing is playing.")
	}
	return domain.Success(fmt.Sprintf("Currently playing: %s by %s", np.Track, np.Artist)).
		WithSpoken(fmt.Sprintf("You're listening to %s by %s.", np.Track, np.Artist)).
		WithData(map[string]any{"track": np.Track, "artist": np.Artist})
}
