// Package classify assigns inbound text to one category from a closed
// taxonomy using ordered rule evaluation: first match wins, and no category
// is reconsidered once a higher-priority rule has matched.
package classify

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/savenote/savenote/internal/domain"
)

// ErrEmptyContent reports a caller precondition violation: upstream stages
// guarantee non-blank text before classification runs.
var ErrEmptyContent = errors.New("classify: content is empty")

// passwordPattern matches key:value credential shapes like "pass: hunter2"
// or "pin=1234".
const passwordPattern = `(pass|pwd|pin|clave|contraseña|password|código|codigo)\s*[:=]\s*\S+`

// urlPattern extracts the first URL from link-classified content.
const urlPattern = `https?://\S+`

// Rules holds the keyword and pattern tables the classifier evaluates.
// Loaded once at startup and read-only afterwards; override via config or
// use Defaults.
type Rules struct {
	PasswordKeywords []string `yaml:"password_keywords,omitempty"`
	FilmKeywords     []string `yaml:"film_keywords,omitempty"`
	TaskKeywords     []string `yaml:"task_keywords,omitempty"`
	LinkPatterns     []string `yaml:"link_patterns,omitempty"`
}

// DefaultRules returns the built-in keyword tables (Spanish and English).
func DefaultRules() Rules {
	return Rules{
		PasswordKeywords: []string{
			"password", "contraseña", "clave", "pass:", "pwd:", "pin:",
			"código", "codigo", "secret", "credential",
		},
		FilmKeywords: []string{
			"película", "pelicula", "film", "movie", "serie", "series",
			"watch", "ver", "netflix", "hbo", "disney", "amazon prime", "prime video",
		},
		TaskKeywords: []string{
			"todo", "tarea", "task", "hacer", "recordar", "reminder",
			"pendiente", "buy", "comprar", "call", "llamar",
		},
		LinkPatterns: []string{
			`https?://`, `www\.`, `\.com`, `\.es`, `\.org`, `\.net`,
		},
	}
}

// merged fills any empty table in r from the defaults, so a config that
// overrides only one table keeps the rest.
func (r Rules) merged() Rules {
	def := DefaultRules()
	if len(r.PasswordKeywords) == 0 {
		r.PasswordKeywords = def.PasswordKeywords
	}
	if len(r.FilmKeywords) == 0 {
		r.FilmKeywords = def.FilmKeywords
	}
	if len(r.TaskKeywords) == 0 {
		r.TaskKeywords = def.TaskKeywords
	}
	if len(r.LinkPatterns) == 0 {
		r.LinkPatterns = def.LinkPatterns
	}
	return r
}

// Classifier evaluates the rule tables against lower-cased content. Safe
// for concurrent use; it holds no mutable state after New.
type Classifier struct {
	rules      Rules
	linkRes    []*regexp.Regexp
	passwordRe *regexp.Regexp
	urlRe      *regexp.Regexp
	logger     *slog.Logger
}

// New compiles the rule tables into a ready classifier. Empty tables fall
// back to the defaults.
func New(rules Rules, logger *slog.Logger) (*Classifier, error) {
	rules = rules.merged()

	linkRes := make([]*regexp.Regexp, 0, len(rules.LinkPatterns))
	for _, p := range rules.LinkPatterns {
		re, err := regexp.Compile(`(?i)` + p)
		if err != nil {
			return nil, fmt.Errorf("compile link pattern %q: %w", p, err)
		}
		linkRes = append(linkRes, re)
	}

	return &Classifier{
		rules:      rules,
		linkRes:    linkRes,
		passwordRe: regexp.MustCompile(`(?i)` + passwordPattern),
		urlRe:      regexp.MustCompile(`(?i)` + urlPattern),
		logger:     logger,
	}, nil
}

// Classify assigns exactly one category to content. Pure apart from reading
// the clock for ProcessedAt: identical input always yields the same category
// and extracted data.
func (c *Classifier) Classify(content, senderID string) (domain.ClassifiedMessage, error) {
	if strings.TrimSpace(content) == "" {
		return domain.ClassifiedMessage{}, ErrEmptyContent
	}

	category := c.categorize(strings.ToLower(content))

	if c.logger != nil {
		preview := content
		if len(preview) > 50 {
			preview = preview[:50]
		}
		c.logger.Info("message classified", "category", category, "content", preview)
	}

	return domain.ClassifiedMessage{
		OriginalContent: content,
		Category:        category,
		ExtractedData:   c.extract(content, category),
		ProcessedAt:     time.Now().UTC(),
		SenderID:        senderID,
	}, nil
}

// categorize runs the rules in strict priority order. Password is evaluated
// first: security-sensitive content must never be reclassified as Film or
// Task just because it also contains those keywords.
func (c *Classifier) categorize(lower string) domain.Category {
	if containsAny(lower, c.rules.PasswordKeywords) || c.passwordRe.MatchString(lower) {
		return domain.CategoryPassword
	}
	for _, re := range c.linkRes {
		if re.MatchString(lower) {
			return domain.CategoryLink
		}
	}
	if containsAny(lower, c.rules.FilmKeywords) {
		return domain.CategoryFilm
	}
	if containsAny(lower, c.rules.TaskKeywords) {
		return domain.CategoryTask
	}
	return domain.CategoryNote
}

// extract returns the category-specific data: the first URL for links, the
// verbatim content for everything else.
func (c *Classifier) extract(content string, category domain.Category) string {
	if category == domain.CategoryLink {
		if m := c.urlRe.FindString(content); m != "" {
			return m
		}
	}
	return content
}

func containsAny(content string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(content, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
