// Package filemanage implements the file agent: listing, opening, and
// organizing files. All operations are confined to a sandbox root;
// traversal outside it is rejected.
package filemanage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"agentos/internal/domain"
)

const helpText = `Filemanage Agent Commands:
- list [dir]: list files in the sandbox (or a subdirectory)
- open <file>: open a file with the system default application
- organize [dir]: sort loose files into folders by extension
- help: show this help`

// extension buckets for organize.
var buckets = map[string]string{
	".jpg": "images", ".jpeg": "images", ".png": "images", ".gif": "images",
	".mp4": "videos", ".mov": "videos", ".mkv": "videos",
	".mp3": "audio", ".wav": "audio", ".flac": "audio",
	".pdf": "documents", ".doc": "documents", ".docx": "documents",
	".txt": "documents", ".md": "documents",
	".zip": "archives", ".tar": "archives", ".gz": "archives",
}

// Agent handles file commands within root.
type Agent struct {
	root   string
	logger *slog.Logger
	// opener launches the platform file opener; tests stub it.
	opener func(path string) error
}

// New creates the agent rooted at root, creating the directory if needed.
func New(root string, logger *slog.Logger) (*Agent, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create root: %w", err)
	}
	return &Agent{
		root:   abs,
		logger: logger.With("agent", domain.AgentFilemanage),
		opener: systemOpen,
	}, nil
}

func (a *Agent) Capabilities() []string {
	return []string{
		"List files in the managed directory",
		"Open files with the default application",
		"Organize loose files into folders by type",
	}
}

func (a *Agent) Process(ctx context.Context, command string) domain.Envelope {
	fields := strings.Fields(strings.TrimSpace(command))
	if len(fields) == 0 {
		return domain.Success(helpText)
	}

	verb := strings.ToLower(fields[0])
	arg := strings.Join(fields[1:], " ")

	switch verb {
	case "list", "ls":
		return a.handleList(arg)
	case "open":
		return a.handleOpen(arg)
	case "organize", "organise", "sort":
		return a.handleOrganize(arg)
	case "help":
		return domain.Success(helpText).
			WithSpoken("I can list, open, and organize files for you.")
	default:
		return domain.Error("Unrecognized filemanage command. Try 'filemanage help'.").
			WithSpoken("I'm not sure what you want me to do with your files.")
	}
}

// resolve joins rel onto the sandbox root and rejects escapes.
func (a *Agent) resolve(rel string) (string, error) {
	path := filepath.Join(a.root, filepath.Clean("/"+rel))
	if path != a.root && !strings.HasPrefix(path, a.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: path escapes the managed directory", domain.ErrInvalidInput)
	}
	return path, nil
}

func (a *Agent) handleList(rel string) domain.Envelope {
	dir, err := a.resolve(rel)
	if err != nil {
		return domain.Error("That path is outside the managed directory.").
			WithSpoken("I can only work inside my managed directory.")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return domain.Error("Could not list that directory.").
			WithSpoken("Sorry, I couldn't list that directory.")
	}
	if len(entries) == 0 {
		return domain.Success("The directory is empty.").
			WithSpoken("There are no files there.")
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d item(s):\n", len(entries)))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		sb.WriteString("  " + name + "\n")
	}
	return domain.Success(strings.TrimRight(sb.String(), "\n")).
		WithSpoken(fmt.Sprintf("There are %d items.", len(entries))).
		WithData(map[string]any{"count": len(entries)})
}

func (a *Agent) handleOpen(rel string) domain.Envelope {
	if rel == "" {
		return domain.Error("Nothing to open. Usage: open <file>").
			WithSpoken("Which file should I open?")
	}

	path, err := a.resolve(rel)
	if err != nil {
		return domain.Error("That path is outside the managed directory.").
			WithSpoken("I can only open files inside my managed directory.")
	}
	if _, err := os.Stat(path); err != nil {
		return domain.Error(fmt.Sprintf("File not found: %s", rel)).
			WithSpoken("I couldn't find that file.")
	}

	if err := a.opener(path); err != nil {
		a.logger.Error("open failed", "path", path, "error", err)
		return domain.Error("Failed to open the file.").
			WithSpoken("Sorry, I couldn't open that file.")
	}
	return domain.Success("Opened " + rel + ".").
		WithSpoken("Opening " + filepath.Base(rel) + ".")
}

func (a *Agent) handleOrganize(rel string) domain.Envelope {
	dir, err := a.resolve(rel)
	if err != nil {
		return domain.Error("That path is outside the managed directory.").
			WithSpoken("I can only organize inside my managed directory.")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return domain.Error("Could not read that directory.").
			WithSpoken("Sorry, I couldn't read that directory.")
	}

	moved := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		bucket, ok := buckets[strings.ToLower(filepath.Ext(e.Name()))]
		if !ok {
			continue
		}
		dest := filepath.Join(dir, bucket)
		if err := os.MkdirAll(dest, 0o755); err != nil {
			continue
		}
		if err := os.Rename(filepath.Join(dir, e.Name()), filepath.Join(dest, e.Name())); err != nil {
			a.logger.Warn("move failed", "file", e.Name(), "error", err)
			continue
		}
		moved++
	}

	return domain.Success(fmt.Sprintf("Organized %d file(s) into folders.", moved)).
		WithSpoken(fmt.Sprintf("I sorted %d files.", moved)).
		WithData(map[string]any{"moved": moved})
}

func systemOpen(path string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", path).Start()
	case "windows":
		return exec.Command("cmd", "/c", "start", "", path).Start()
	default:
		return exec.Command("xdg-open", path).Start()
	}
}
