package filemanage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestAgent(t *testing.T) *Agent {
	t.Helper()
	a, err := New(t.TempDir(), slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestListEmptyAndPopulated(t *testing.T) {
	a := newTestAgent(t)
	ctx := context.Background()

	env := a.Process(ctx, "list")
	if env.IsError() {
		t.Fatalf("list empty dir: %s", env.Message)
	}

	touch(t, filepath.Join(a.root, "notes.txt"))
	touch(t, filepath.Join(a.root, "photo.png"))

	env = a.Process(ctx, "list")
	if env.IsError() {
		t.Fatalf("list: %s", env.Message)
	}
	if got := env.Data["count"]; got != 2 {
		t.Fatalf("count = %v, want 2", got)
	}
}

func TestResolveNeverEscapesRoot(t *testing.T) {
	a := newTestAgent(t)

	for _, rel := range []string{"..", "../..", "../../etc/passwd", "sub/../../..", "/abs/path"} {
		path, err := a.resolve(rel)
		if err != nil {
			continue
		}
		if path != a.root && !strings.HasPrefix(path, a.root+string(filepath.Separator)) {
			t.Errorf("resolve(%q) = %q escapes root %q", rel, path, a.root)
		}
	}
}

func TestOpenFile(t *testing.T) {
	a := newTestAgent(t)
	touch(t, filepath.Join(a.root, "doc.pdf"))

	var opened string
	a.opener = func(path string) error {
		opened = path
		return nil
	}

	env := a.Process(context.Background(), "open doc.pdf")
	if env.IsError() {
		t.Fatalf("open: %s", env.Message)
	}
	if opened != filepath.Join(a.root, "doc.pdf") {
		t.Fatalf("opened %q", opened)
	}
}

func TestOpenMissingFile(t *testing.T) {
	a := newTestAgent(t)
	env := a.Process(context.Background(), "open nope.txt")
	if !env.IsError() {
		t.Fatal("expected error for missing file")
	}
}

func TestOpenWithoutArgument(t *testing.T) {
	a := newTestAgent(t)
	env := a.Process(context.Background(), "open")
	if !env.IsError() {
		t.Fatal("expected error for open without argument")
	}
}

func TestOrganizeBucketsByExtension(t *testing.T) {
	a := newTestAgent(t)
	touch(t, filepath.Join(a.root, "a.png"))
	touch(t, filepath.Join(a.root, "b.mp3"))
	touch(t, filepath.Join(a.root, "c.pdf"))
	touch(t, filepath.Join(a.root, "d.xyz"))

	env := a.Process(context.Background(), "organize")
	if env.IsError() {
		t.Fatalf("organize: %s", env.Message)
	}
	if got := env.Data["moved"]; got != 3 {
		t.Fatalf("moved = %v, want 3", got)
	}

	for _, want := range []string{
		filepath.Join("images", "a.png"),
		filepath.Join("audio", "b.mp3"),
		filepath.Join("documents", "c.pdf"),
	} {
		if _, err := os.Stat(filepath.Join(a.root, want)); err != nil {
			t.Errorf("missing %s: %v", want, err)
		}
	}
	// unknown extension stays put
	if _, err := os.Stat(filepath.Join(a.root, "d.xyz")); err != nil {
		t.Errorf("d.xyz should not move: %v", err)
	}
}

func TestUnknownCommand(t *testing.T) {
	a := newTestAgent(t)
	env := a.Process(context.Background(), "frobnicate")
	if !env.IsError() {
		t.Fatal("expected error for unknown command")
	}
}

func TestHelpAndEmpty(t *testing.T) {
	a := newTestAgent(t)
	if env := a.Process(context.Background(), "help"); env.IsError() {
		t.Fatalf("help: %s", env.Message)
	}
	if env := a.Process(context.Background(), "  "); env.IsError() {
		t.Fatalf("empty: %s", env.Message)
	}
}
