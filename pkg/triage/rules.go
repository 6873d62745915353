package triage

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// CategoryRule maps subject keywords to a category
type CategoryRule struct {
	Category Category `yaml:"category"`
	Keywords []string `yaml:"keywords"`
}

// Ruleset holds the static keyword tables the classifier matches against.
// A Ruleset is not modified after it is built; share it freely.
type Ruleset struct {
	// Spam keywords are matched against sender and subject.
	Spam []string `yaml:"spam"`
	// Urgency keywords are matched against subject and body.
	Urgency []string `yaml:"urgency"`
	// Categories are tested against the subject in order, first match wins.
	Categories []CategoryRule `yaml:"categories"`
	// Complaint keywords in the body force escalation.
	Complaint []string `yaml:"complaint"`
	// MaxBodyLen is the body length above which a message escalates.
	MaxBodyLen int `yaml:"max_body_len"`
}

// DefaultRuleset returns the built-in English and German keyword tables.
func DefaultRuleset() *Ruleset {
	return &Ruleset{
		Spam: []string{"unsubscribe", "newsletter", "no-reply", "noreply", "promo", "discount"},
		Urgency: []string{
			"urgent", "asap", "dringend", "sofort", "critical",
			"emergency", "down", "broken", "failed", "immediately",
		},
		Categories: []CategoryRule{
			{Category: CategoryBooking, Keywords: []string{"meeting", "termin", "calendly", "appointment", "schedule", "call"}},
			{Category: CategorySupport, Keywords: []string{"support", "problem", "error", "issue", "bug", "help", "broken", "hilfe"}},
			{Category: CategoryInquiry, Keywords: []string{"quote", "pricing", "inquiry", "partnership", "angebot", "anfrage"}},
			{Category: CategoryBilling, Keywords: []string{"invoice", "payment", "billing", "rechnung", "zahlung"}},
			{Category: CategoryLegal, Keywords: []string{"legal", "gdpr", "dsgvo", "complaint", "beschwerde"}},
		},
		Complaint:  []string{"complaint"},
		MaxBodyLen: 3000,
	}
}

// LoadRuleset reads a YAML keyword table. Sections left out of the file
// keep the built-in defaults.
func LoadRuleset(path string) (*Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ruleset: %w", err)
	}

	rs := DefaultRuleset()
	var override Ruleset
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("failed to parse ruleset %s: %w", path, err)
	}

	if override.Spam != nil {
		rs.Spam = override.Spam
	}
	if override.Urgency != nil {
		rs.Urgency = override.Urgency
	}
	if override.Categories != nil {
		rs.Categories = override.Categories
	}
	if override.Complaint != nil {
		rs.Complaint = override.Complaint
	}
	if override.MaxBodyLen > 0 {
		rs.MaxBodyLen = override.MaxBodyLen
	}

	rs.normalize()
	if err := rs.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ruleset %s: %w", path, err)
	}
	return rs, nil
}

// Validate checks that every category rule names a routable category.
func (rs *Ruleset) Validate() error {
	seen := make(map[Category]bool)
	for i, rule := range rs.Categories {
		if !rule.Category.Valid() {
			return fmt.Errorf("categories[%d]: unknown category %q", i, rule.Category)
		}
		if rule.Category == CategorySpam || rule.Category == CategoryGeneral {
			return fmt.Errorf("categories[%d]: %s is not assigned by subject keywords", i, rule.Category)
		}
		if seen[rule.Category] {
			return fmt.Errorf("categories[%d]: duplicate category %s", i, rule.Category)
		}
		if len(rule.Keywords) == 0 {
			return fmt.Errorf("categories[%d]: %s has no keywords", i, rule.Category)
		}
		seen[rule.Category] = true
	}
	if rs.MaxBodyLen <= 0 {
		return fmt.Errorf("max_body_len must be positive")
	}
	return nil
}

// normalize lower-cases keywords so matching only has to fold the input.
func (rs *Ruleset) normalize() {
	lower := func(words []string) []string {
		out := make([]string, 0, len(words))
		for _, w := range words {
			if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
				out = append(out, w)
			}
		}
		return out
	}
	rs.Spam = lower(rs.Spam)
	rs.Urgency = lower(rs.Urgency)
	rs.Complaint = lower(rs.Complaint)
	for i := range rs.Categories {
		rs.Categories[i].Category = Category(strings.ToLower(string(rs.Categories[i].Category)))
		rs.Categories[i].Keywords = lower(rs.Categories[i].Keywords)
	}
}
