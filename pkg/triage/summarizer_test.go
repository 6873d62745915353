package triage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	long := strings.Repeat("x", 250)

	tests := []struct {
		name    string
		subject string
		body    string
		want    string
	}{
		{
			name:    "first substantial line",
			subject: "Hi",
			body:    "Hello,\n\nI would like to know more about your enterprise plan.\nThanks",
			want:    "I would like to know more about your enterprise plan.",
		},
		{
			name:    "skips quoted and signature lines",
			subject: "Re: plan",
			body:    "> this quoted line is long enough to count otherwise\n-- signature line that is long enough too\nThe actual answer is in this line of the reply.",
			want:    "The actual answer is in this line of the reply.",
		},
		{
			name:    "line of exactly thirty runes is too short",
			subject: "Subject fallback",
			body:    strings.Repeat("a", 30),
			want:    "Subject fallback",
		},
		{
			name:    "trims surrounding whitespace",
			subject: "s",
			body:    "   \t  This sentence is padded with leading whitespace.   ",
			want:    "This sentence is padded with leading whitespace.",
		},
		{
			name:    "empty body",
			subject: "Only a subject",
			body:    "",
			want:    "Only a subject",
		},
		{
			name:    "long line truncated with ellipsis",
			subject: "s",
			body:    long,
			want:    strings.Repeat("x", 200) + "...",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Summarize(tt.subject, tt.body))
		})
	}
}

func TestNewRunOutcomeTruncates(t *testing.T) {
	msg := Message{
		ID:      "7",
		Subject: strings.Repeat("ä", 100),
		Sender:  "a@b.c",
	}
	summary := Summarize("s", strings.Repeat("y", 300))

	o := NewRunOutcome(msg, Classification{Category: CategoryGeneral, Priority: 0.65000001}, summary, fixedTime)

	assert.Equal(t, strings.Repeat("ä", 80), o.Subject)
	assert.Equal(t, strings.Repeat("y", 200), o.Summary)
	assert.Equal(t, 0.65, o.Priority)
	assert.Equal(t, ActionNone, o.Action)
	assert.Equal(t, "7", o.MessageID)
	assert.Equal(t, fixedTime, o.Timestamp)
}
