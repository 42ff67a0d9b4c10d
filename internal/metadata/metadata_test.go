package metadata

import (
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		path     string
		category string
		priority int
	}{
		{"docs/getting-started/install.md", "tutorial", 90},
		{"docs/API/endpoints.md", "api", 80},
		{"docs/reference/cli.md", "reference", 75},
		{"docs/Troubleshooting.md", "troubleshooting", 85},
		{"CHANGELOG.md", "release-notes", 50},
		{"docs/misc/notes.md", "general", 60},
	}
	for _, tc := range cases {
		cat, prio := Classify(tc.path)
		if cat != tc.category || prio != tc.priority {
			t.Errorf("Classify(%q) = (%q,%d), want (%q,%d)", tc.path, cat, prio, tc.category, tc.priority)
		}
	}
}

func TestClassifyFirstMatchWins(t *testing.T) {
	// Path contains both "tutorial" and "api"; rule order decides.
	cat, prio := Classify("docs/tutorial/api-basics.md")
	if cat != "tutorial" || prio != 90 {
		t.Errorf("expected first rule to win, got (%q,%d)", cat, prio)
	}
}

func TestTitleFromHeading(t *testing.T) {
	content := "Some preamble.\n\n# Install Guide\n\n## Details\n"
	if got := Title(content, "docs/install.md"); got != "Install Guide" {
		t.Errorf("Title = %q, want %q", got, "Install Guide")
	}
}

func TestTitleHumanized(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"docs/getting_started-guide.md", "Getting Started Guide"},
		{"api-reference.md", "Api Reference"},
	}
	for _, tc := range cases {
		if got := Title("no heading here", tc.path); got != tc.want {
			t.Errorf("Title(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestFlattenAny(t *testing.T) {
	raw := map[string]any{
		"tags":     []any{"a", "b"},
		"title":    "Setup",
		"priority": 80,
		"draft":    false,
		"nested":   map[string]any{"x": 1},
		"empty":    nil,
	}
	flat := FlattenAny(raw)
	if flat["tags"] != "a,b" {
		t.Errorf("tags = %v, want %q", flat["tags"], "a,b")
	}
	if flat["title"] != "Setup" {
		t.Errorf("title = %v", flat["title"])
	}
	if flat["priority"] != float64(80) {
		t.Errorf("priority = %v, want 80", flat["priority"])
	}
	if flat["draft"] != false {
		t.Errorf("draft = %v", flat["draft"])
	}
	if _, ok := flat["nested"]; ok {
		t.Error("nested object should be dropped")
	}
	if _, ok := flat["empty"]; ok {
		t.Error("nil value should be dropped")
	}
}

func TestFlattenTimestamp(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	m := Map{"lastModified": Timestamp(ts)}
	flat := m.Flatten()
	if flat["lastModified"] != "2026-03-14T09:26:53Z" {
		t.Errorf("lastModified = %v", flat["lastModified"])
	}
}

func TestFromAnyRejectsComposites(t *testing.T) {
	for _, v := range []any{
		map[string]any{"a": 1},
		[]any{"a", map[string]any{}},
		struct{ X int }{1},
		nil,
	} {
		if _, ok := FromAny(v); ok {
			t.Errorf("FromAny(%#v) should be rejected", v)
		}
	}
}
