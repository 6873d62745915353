package triage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2)
	assert.True(t, rl.HasCapacity())
	rl.Consume()
	rl.Consume()
	assert.False(t, rl.HasCapacity())
	rl.Consume()
	assert.Equal(t, 2, rl.Used())
	assert.Equal(t, 0, rl.Remaining())

	assert.False(t, NewRateLimiter(0).HasCapacity())
	assert.False(t, NewRateLimiter(-3).HasCapacity())
	assert.Equal(t, 0, NewRateLimiter(-3).Remaining())
}

func TestEffectiveMode(t *testing.T) {
	assert.Equal(t, ModeAuto, EffectiveMode(ModeAuto, true))
	assert.Equal(t, ModeMonitor, EffectiveMode(ModeAuto, false))
	assert.Equal(t, ModeHybrid, EffectiveMode(ModeHybrid, true))
	assert.Equal(t, ModeMonitor, EffectiveMode(ModeHybrid, false))
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode(" AUTO ")
	assert.NoError(t, err)
	assert.Equal(t, ModeAuto, m)

	_, err = ParseMode("aggressive")
	assert.Error(t, err)
}

func TestShouldAutoReply(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name string
		c    Classification
		p    func(Policy) Policy
		want bool
	}{
		{"eligible", Classification{Category: CategoryInquiry, Priority: 0.4}, nil, true},
		{"at threshold", Classification{Category: CategoryGeneral, Priority: 0.7}, nil, true},
		{"above threshold", Classification{Category: CategoryGeneral, Priority: 0.71}, nil, false},
		{"escalated", Classification{Category: CategorySupport, Priority: 0.4, Escalate: true}, nil, false},
		{"spam", Classification{Category: CategorySpam}, nil, false},
		{"disabled", Classification{Category: CategoryInquiry, Priority: 0.4},
			func(p Policy) Policy { p.AutoReplyEnabled = false; return p }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := p
			if tt.p != nil {
				policy = tt.p(p)
			}
			assert.Equal(t, tt.want, ShouldAutoReply(tt.c, policy))
		})
	}
}

func TestDecideActionAutoReply(t *testing.T) {
	p := DefaultPolicy()
	p.FromName = "Acme Support"
	rl := NewRateLimiter(p.MaxAutoReplies)

	d := DecideAction(Classification{Category: CategoryInquiry, Priority: 0.4}, true, ModeAuto, rl, p)

	assert.Equal(t, ActionAutoReplied, d.Action)
	assert.Contains(t, d.Reply, "within 24 hours")
	assert.True(t, strings.HasSuffix(d.Reply, "Acme Support"))
	assert.Equal(t, 1, rl.Used())
}

func TestDecideActionNeverRepliesOutsideHours(t *testing.T) {
	p := DefaultPolicy()
	rl := NewRateLimiter(p.MaxAutoReplies)

	for _, c := range []Classification{
		{Category: CategoryInquiry, Priority: 0.4},
		{Category: CategoryGeneral, Priority: 0.3},
		{Category: CategoryBooking, Priority: 0.5},
	} {
		d := DecideAction(c, false, ModeAuto, rl, p)
		assert.Equal(t, ActionCategorized, d.Action)
		assert.Empty(t, d.Reply)
	}
	assert.Equal(t, 0, rl.Used())
}

func TestDecideActionFallbacks(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name string
		c    Classification
		mode Mode
		want Action
	}{
		{"escalate flag", Classification{Category: CategoryLegal, Priority: 0.3, Escalate: true}, ModeAuto, ActionEscalated},
		{"priority over threshold", Classification{Category: CategoryGeneral, Priority: 0.8}, ModeAuto, ActionEscalated},
		{"spam", Classification{Category: CategorySpam}, ModeAuto, ActionSpam},
		{"monitor", Classification{Category: CategoryInquiry, Priority: 0.4}, ModeMonitor, ActionCategorized},
		{"hybrid behaves like monitor", Classification{Category: CategoryInquiry, Priority: 0.4}, ModeHybrid, ActionCategorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := NewRateLimiter(p.MaxAutoReplies)
			assert.Equal(t, tt.want, DecideAction(tt.c, true, tt.mode, rl, p).Action)
			assert.Equal(t, 0, rl.Used())
		})
	}
}

func TestDecideActionRespectsCeiling(t *testing.T) {
	p := DefaultPolicy()
	rl := NewRateLimiter(2)
	c := Classification{Category: CategoryGeneral, Priority: 0.3}

	var actions []Action
	for i := 0; i < 4; i++ {
		actions = append(actions, DecideAction(c, true, ModeAuto, rl, p).Action)
	}
	assert.Equal(t, []Action{ActionAutoReplied, ActionAutoReplied, ActionCategorized, ActionCategorized}, actions)
}

func TestRenderReply(t *testing.T) {
	data := TemplateData{FromName: "Ada"}

	booking := RenderReply(CategoryBooking, "en", data)
	assert.Contains(t, booking, "I will get back to you shortly.")
	assert.NotContains(t, booking, "Book directly")

	data.SchedulingLink = "https://calendly.com/ada"
	booking = RenderReply(CategoryBooking, "en", data)
	assert.Contains(t, booking, "Book directly here: https://calendly.com/ada")

	de := RenderReply(CategoryBooking, "DE", TemplateData{})
	assert.Contains(t, de, "Ich melde mich in Kürze bei Ihnen.")
	assert.True(t, strings.HasSuffix(de, DefaultFromName))

	// legal and spam have no template of their own
	assert.Equal(t, RenderReply(CategoryGeneral, "en", data), RenderReply(CategoryLegal, "en", data))
	// unknown language falls back to English
	assert.Equal(t, RenderReply(CategorySupport, "en", data), RenderReply(CategorySupport, "fr", data))

	assert.True(t, SupportedLanguage("de"))
	assert.False(t, SupportedLanguage("fr"))
}
