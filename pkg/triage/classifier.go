package triage

import (
	"math"
	"strings"
	"unicode/utf8"
)

const (
	basePriority  = 0.3
	urgencyWeight = 0.7
	// urgency above this share of keywords escalates on its own
	urgencyEscalation = 0.5
)

// Classify files a message under a category and scores its priority.
// Matching is plain substring search on lower-cased text, so a keyword
// inside a longer word still counts.
func (rs *Ruleset) Classify(subject, body, sender string) Classification {
	subject = strings.ToLower(subject)
	lowerBody := strings.ToLower(body)
	sender = strings.ToLower(sender)

	for _, k := range rs.Spam {
		if strings.Contains(sender, k) || strings.Contains(subject, k) {
			return Classification{Category: CategorySpam}
		}
	}

	urgency := rs.UrgencyScore(subject, lowerBody)

	category := CategoryGeneral
	for _, rule := range rs.Categories {
		if containsAny(subject, rule.Keywords) {
			category = rule.Category
			break
		}
	}

	return Classification{
		Category: category,
		Priority: math.Min(basePriority+urgency*urgencyWeight, 1.0),
		Escalate: urgency > urgencyEscalation ||
			category == CategoryLegal ||
			containsAny(lowerBody, rs.Complaint) ||
			utf8.RuneCountInString(body) > rs.MaxBodyLen,
	}
}

// UrgencyScore is the fraction of urgency keywords found in either the
// subject or the body. Inputs are expected lower-cased.
func (rs *Ruleset) UrgencyScore(subject, body string) float64 {
	if len(rs.Urgency) == 0 {
		return 0
	}
	matched := 0
	for _, k := range rs.Urgency {
		if strings.Contains(subject, k) || strings.Contains(body, k) {
			matched++
		}
	}
	return float64(matched) / float64(len(rs.Urgency))
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
