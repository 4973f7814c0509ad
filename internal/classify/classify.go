// Package classify assigns category, priority, effort and tags to free text
// using fixed keyword tables.
package classify

import (
	"strings"

	"taskflow/internal/domain"
)

// MaxTags caps the number of tags returned.
const MaxTags = 5

type keywordSet struct {
	name     string
	keywords []string
}

type estimateTier struct {
	hours    float64
	keywords []string
}

// Tables are ordered: earlier entries win ties and earlier tiers win matches.
var (
	categories = []keywordSet{
		{"development", []string{"code", "develop", "programming", "build", "implement", "feature", "bug", "fix", "debug", "api", "backend", "frontend", "database", "deploy", "release", "refactor", "test", "unit test", "integration"}},
		{"design", []string{"design", "ui", "ux", "mockup", "wireframe", "prototype", "figma", "sketch", "layout", "visual", "brand", "logo", "icon", "style", "color", "typography"}},
		{"marketing", []string{"marketing", "campaign", "social", "content", "seo", "analytics", "ads", "promotion", "email", "newsletter", "launch", "audience", "engagement"}},
		{"planning", []string{"plan", "strategy", "roadmap", "scope", "requirements", "kickoff", "meeting", "review", "retrospective", "sprint", "milestone", "deadline", "schedule"}},
		{"research", []string{"research", "analyze", "study", "explore", "investigate", "evaluate", "compare", "benchmark", "survey", "interview", "data"}},
		{"documentation", []string{"document", "write", "documentation", "readme", "guide", "tutorial", "manual", "specs", "wiki"}},
		{"operations", []string{"deploy", "server", "infrastructure", "devops", "ci/cd", "monitoring", "backup", "security", "performance", "scaling"}},
		{"communication", []string{"call", "meeting", "sync", "present", "demo", "stakeholder", "client", "feedback", "report", "update"}},
	}

	priorities = []struct {
		priority domain.Priority
		keywords []string
	}{
		{domain.PriorityCritical, []string{"urgent", "critical", "asap", "emergency", "blocker", "production", "outage", "security", "immediately", "hotfix"}},
		{domain.PriorityHigh, []string{"important", "priority", "deadline", "release", "launch", "demo", "client", "key", "essential", "must"}},
		{domain.PriorityMedium, []string{"should", "needed", "planned", "scheduled", "next", "upcoming", "regular"}},
		{domain.PriorityLow, []string{"nice to have", "optional", "later", "backlog", "someday", "minor", "consider", "idea", "explore"}},
	}

	estimates = []estimateTier{
		{1, []string{"quick", "simple", "small", "minor", "typo", "update", "tweak"}},
		{4, []string{"add", "create", "implement", "basic", "standard"}},
		{16, []string{"feature", "develop", "build", "integrate", "design"}},
		{40, []string{"complex", "major", "refactor", "overhaul", "redesign", "architecture"}},
		{80, []string{"epic", "project", "initiative", "platform", "system"}},
	}

	tagPatterns = []keywordSet{
		{"bug", []string{"bug", "fix", "issue", "error", "broken"}},
		{"feature", []string{"feature", "new", "add", "implement"}},
		{"improvement", []string{"improve", "enhance", "optimize", "refactor"}},
		{"urgent", []string{"urgent", "asap", "critical", "blocker"}},
		{"review", []string{"review", "feedback", "check"}},
		{"testing", []string{"test", "qa", "verify", "validate"}},
		{"documentation", []string{"doc", "readme", "guide", "wiki"}},
		{"meeting", []string{"meeting", "call", "sync", "standup"}},
	}
)

// Classify runs every classifier over name and description.
func Classify(name, description string) domain.Classification {
	text := searchText(name, description)
	return domain.Classification{
		Category:       category(text),
		Priority:       priority(text),
		EstimatedHours: estimate(text),
		Tags:           tags(text),
	}
}

// Category returns the best-scoring category or "general".
func Category(name, description string) string {
	return category(searchText(name, description))
}

// Priority returns the first matching priority tier, defaulting to medium.
func Priority(name, description string) domain.Priority {
	return priority(searchText(name, description))
}

// EstimateHours returns the first matching effort tier, defaulting to 8h.
func EstimateHours(name, description string) float64 {
	return estimate(searchText(name, description))
}

// Tags returns up to MaxTags matching tags in table order.
func Tags(name, description string) []string {
	return tags(searchText(name, description))
}

func searchText(name, description string) string {
	return strings.ToLower(name + " " + description)
}

func category(text string) string {
	best, bestScore := domain.DefaultCategory, 0
	for _, c := range categories {
		if score := countMatches(text, c.keywords); score > bestScore {
			best, bestScore = c.name, score
		}
	}
	return best
}

func priority(text string) domain.Priority {
	for _, tier := range priorities {
		if countMatches(text, tier.keywords) > 0 {
			return tier.priority
		}
	}
	return domain.PriorityMedium
}

func estimate(text string) float64 {
	for _, tier := range estimates {
		if countMatches(text, tier.keywords) > 0 {
			return tier.hours
		}
	}
	return domain.DefaultEstimatedHours
}

func tags(text string) []string {
	out := []string{}
	for _, p := range tagPatterns {
		if len(out) == MaxTags {
			break
		}
		if countMatches(text, p.keywords) > 0 {
			out = append(out, p.name)
		}
	}
	return out
}

func countMatches(text string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			n++
		}
	}
	return n
}
