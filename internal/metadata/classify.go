// Package metadata classifies documents from their path and content and
// flattens arbitrary metadata into the scalar shape the vector store accepts.
package metadata

import (
	"path/filepath"
	"regexp"
	"strings"
)

// DefaultCategory and DefaultPriority apply when no classification rule
// matches the file path.
const (
	DefaultCategory = "general"
	DefaultPriority = 60
)

// Classification rules are checked in order against the lowercased path;
// the first matching substring wins.
var classificationRules = []struct {
	substr   string
	category string
	priority int
}{
	{"getting-started", "tutorial", 90},
	{"tutorial", "tutorial", 90},
	{"quickstart", "tutorial", 90},
	{"troubleshooting", "troubleshooting", 85},
	{"faq", "troubleshooting", 85},
	{"api", "api", 80},
	{"reference", "reference", 75},
	{"guide", "guide", 70},
	{"example", "examples", 65},
	{"changelog", "release-notes", 50},
	{"release", "release-notes", 50},
}

// Classify infers a category and priority from the document's file path.
func Classify(path string) (category string, priority int) {
	lower := strings.ToLower(path)
	for _, r := range classificationRules {
		if strings.Contains(lower, r.substr) {
			return r.category, r.priority
		}
	}
	return DefaultCategory, DefaultPriority
}

var headingRe = regexp.MustCompile(`(?m)^#[ \t]+(.+)$`)

// Title extracts the first level-1 markdown heading from content, falling
// back to a humanized form of the file name.
func Title(content, path string) string {
	if m := headingRe.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1])
	}
	return humanize(path)
}

func humanize(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.ReplaceAll(name, "-", " ")
	name = strings.ReplaceAll(name, "_", " ")
	words := strings.Fields(name)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
