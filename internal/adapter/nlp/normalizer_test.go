package nlp

import "testing"

func TestNormalizeDatetimeIdempotent(t *testing.T) {
	got := Normalize(AgentDatetime, "add buy milk", "add buy milk")
	if got != "add buy milk" {
		t.Errorf("Normalize = %q, want %q", got, "add buy milk")
	}
}

func TestNormalizeDatetime(t *testing.T) {
	cases := []struct {
		query string
		want  string
	}{
		{"add buy milk tomorrow at 5pm", "add buy milk tomorrow at 5pm"},
		{"remind me to call mom", "add remind me to call mom"},
		// "task" is a create keyword, so it wins over "show".
		{"show my tasks", "add show my tasks"},
		{"show me everything", "list show me everything"},
		{"something unclear entirely", "add something unclear entirely"},
	}
	for _, tc := range cases {
		got := Normalize(AgentDatetime, tc.query, tc.query)
		if got != tc.want {
			t.Errorf("Normalize(datetime, %q) = %q, want %q", tc.query, got, tc.want)
		}
	}
}

func TestNormalizeTwitterBot(t *testing.T) {
	cases := []struct {
		command string
		query   string
		want    string
	}{
		{"tweet hello world", "tweet hello world", "tweet hello world"},
		{"tweet", "say something nice", "tweet say something nice"},
		{"publish the thread", "publish my blog as a thread", "post blog thread"},
		{"check status", "how is twitter doing", "status"},
		{"timeline", "show my timeline", "timeline"},
		{"stop monitor", "stop monitoring the blog", "stop monitor"},
		{"monitor the blog", "watch the blog", "monitor blog"},
	}
	for _, tc := range cases {
		got := Normalize(AgentTwitterBot, tc.command, tc.query)
		if got != tc.want {
			t.Errorf("Normalize(twitterbot, %q) = %q, want %q", tc.command, got, tc.want)
		}
	}
}

func TestNormalizeAutoblog(t *testing.T) {
	cases := []struct {
		command string
		want    string
	}{
		{"generate a post", "generate"},
		{"process repo myblog", "blog-repo myblog"},
		{"repo", "help"},
		{"set date 2026-03-01", "setdate 2026-03-01"},
		{"set the date", "help"},
		{"status", "status"},
		{"do something weird", "help"},
	}
	for _, tc := range cases {
		got := Normalize(AgentAutoblog, tc.command, tc.command)
		if got != tc.want {
			t.Errorf("Normalize(autoblog, %q) = %q, want %q", tc.command, got, tc.want)
		}
	}
}

func TestNormalizePassthroughForUnknownAgent(t *testing.T) {
	got := Normalize(AgentSpotiauto, "play some jazz", "play some jazz")
	if got != "play some jazz" {
		t.Errorf("Normalize = %q, want passthrough", got)
	}
}

func TestCanonicalAgent(t *testing.T) {
	cases := map[string]string{
		"todoist":     AgentDatetime,
		"twitter_bot": AgentTwitterBot,
		"Twitter":     AgentTwitterBot,
		"datetime":    AgentDatetime,
		"spotify":     AgentSpotiauto,
		"unknown":     "unknown",
	}
	for in, want := range cases {
		if got := CanonicalAgent(in); got != want {
			t.Errorf("CanonicalAgent(%q) = %q, want %q", in, got, want)
		}
	}
}
