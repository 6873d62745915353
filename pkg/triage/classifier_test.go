package triage

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifySpam(t *testing.T) {
	rs := DefaultRuleset()

	tests := []struct {
		name    string
		subject string
		body    string
		sender  string
	}{
		{"newsletter subject", "Newsletter: 20% off", "", "promo@shop.com"},
		{"noreply sender", "Your order", "urgent asap critical", "noreply@shop.com"},
		{"keyword case folded", "Big DISCOUNT inside", "", "a@b.com"},
		{"legal words ignored once spam", "unsubscribe from legal notices", "complaint", "x@y.z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := rs.Classify(tt.subject, tt.body, tt.sender)
			assert.Equal(t, Classification{Category: CategorySpam}, c)
		})
	}
}

func TestClassifyUrgentServerDown(t *testing.T) {
	rs := DefaultRuleset()

	c := rs.Classify("URGENT: server down", "asap please help, this is critical and broken", "ops@corp.com")

	// urgent, asap, critical, broken, down: 5 of 10
	assert.Equal(t, CategoryGeneral, c.Category)
	assert.InDelta(t, 0.65, c.Priority, 1e-9)
	assert.False(t, c.Escalate, "urgency of exactly 0.5 does not escalate")
}

func TestClassifyCategories(t *testing.T) {
	rs := DefaultRuleset()

	tests := []struct {
		subject string
		want    Category
	}{
		{"Meeting next week?", CategoryBooking},
		{"Terminanfrage", CategoryBooking},
		{"Help with my account", CategorySupport},
		{"Pricing for 10 seats", CategoryInquiry},
		{"Invoice #1234", CategoryBilling},
		{"GDPR request", CategoryLegal},
		{"Hello there", CategoryGeneral},
		// booking is tested before support
		{"Call about a bug", CategoryBooking},
		// keywords in the body never pick the category
		{"Question", CategoryGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			c := rs.Classify(tt.subject, "please see the invoice and schedule", "someone@example.com")
			assert.Equal(t, tt.want, c.Category)
		})
	}
}

func TestClassifySubstringMatching(t *testing.T) {
	rs := DefaultRuleset()

	// "recall" contains "call"
	c := rs.Classify("Product recall notice", "", "someone@example.com")
	assert.Equal(t, CategoryBooking, c.Category)

	// "download" contains "down"
	assert.InDelta(t, 0.1, rs.UrgencyScore("download link", ""), 1e-9)
}

func TestClassifyEscalation(t *testing.T) {
	rs := DefaultRuleset()

	tests := []struct {
		name    string
		subject string
		body    string
		want    bool
	}{
		{"legal category", "Legal notice", "", true},
		{"complaint in body", "Order 42", "I want to file a Complaint", true},
		{"long body", "Hello", strings.Repeat("a", 3001), true},
		{"body at limit", "Hello", strings.Repeat("a", 3000), false},
		{"six urgency keywords", "urgent asap", "critical emergency down broken", true},
		{"plain", "Hello", "Nothing special here", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := rs.Classify(tt.subject, tt.body, "someone@example.com")
			assert.Equal(t, tt.want, c.Escalate)
		})
	}
}

func TestClassifyBodyLengthCountsRunes(t *testing.T) {
	rs := DefaultRuleset()

	// 3000 two-byte runes stay within the limit
	c := rs.Classify("Hallo", strings.Repeat("ü", 3000), "someone@example.com")
	assert.False(t, c.Escalate)
}

func TestClassifyPriorityRange(t *testing.T) {
	rs := DefaultRuleset()
	all := strings.Join(rs.Urgency, " ")

	inputs := []struct{ subject, body string }{
		{"", ""},
		{"hello", "world"},
		{all, all},
		{"URGENT", ""},
	}
	for _, in := range inputs {
		c := rs.Classify(in.subject, in.body, "someone@example.com")
		assert.GreaterOrEqual(t, c.Priority, 0.3)
		assert.LessOrEqual(t, c.Priority, 1.0)
	}

	c := rs.Classify(all, "", "someone@example.com")
	assert.InDelta(t, 1.0, c.Priority, 1e-9)
	assert.True(t, c.Escalate)
}

func TestClassifyIsDeterministic(t *testing.T) {
	rs := DefaultRuleset()
	first := rs.Classify("Invoice overdue, urgent", "payment failed", "billing@corp.com")
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, rs.Classify("Invoice overdue, urgent", "payment failed", "billing@corp.com"))
	}
}

func TestUrgencyScoreEmptyList(t *testing.T) {
	rs := &Ruleset{MaxBodyLen: 10}
	assert.Zero(t, rs.UrgencyScore("urgent", "asap"))

	c := rs.Classify("urgent", "asap", "a@b.c")
	require.Equal(t, CategoryGeneral, c.Category)
	assert.InDelta(t, 0.3, c.Priority, 1e-9)
}

func TestClassifyPriorityGrowsWithUrgencyKeywords(t *testing.T) {
	rs := DefaultRuleset()
	n := len(rs.Urgency)

	prev := -1.0
	for k := 0; k <= n; k++ {
		body := strings.Join(rs.Urgency[:k], " ")
		c := rs.Classify("Status", body, "someone@example.com")

		want := math.Min(0.3+0.7*float64(k)/float64(n), 1)
		assert.InDelta(t, want, c.Priority, 1e-9, "k=%d", k)
		assert.GreaterOrEqual(t, c.Priority, prev, "k=%d", k)
		prev = c.Priority
	}
}
