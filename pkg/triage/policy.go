package triage

// Policy is the reply policy in force for one run. Build it with
// DefaultPolicy and override fields; a zero Policy sends nothing.
type Policy struct {
	AutoReplyEnabled    bool
	EscalationThreshold float64
	MaxAutoReplies      int
	WorkingHours        WorkingHours
	FromName            string
	Language            string
	SchedulingLink      string
	AutoArchive         bool
}

// Policy defaults
const (
	DefaultEscalationThreshold = 0.7
	DefaultMaxAutoReplies      = 20
	DefaultFromName            = "Your Team"
	DefaultLanguage            = "en"
)

// DefaultPolicy returns the documented defaults: replies enabled, threshold
// 0.7, at most 20 replies per run, no working-hours restriction, English
// templates signed "Your Team", and archiving after a reply.
func DefaultPolicy() Policy {
	return Policy{
		AutoReplyEnabled:    true,
		EscalationThreshold: DefaultEscalationThreshold,
		MaxAutoReplies:      DefaultMaxAutoReplies,
		WorkingHours:        WorkingHours{Days: DefaultWorkdays()},
		FromName:            DefaultFromName,
		Language:            DefaultLanguage,
		AutoArchive:         true,
	}
}

// Decision is the reply policy's verdict for one message.
type Decision struct {
	Action Action
	// Reply is the rendered body, set only for ActionAutoReplied.
	Reply string
}

// EffectiveMode downgrades the requested mode to monitor outside working hours.
func EffectiveMode(requested Mode, scheduleOpen bool) Mode {
	if !scheduleOpen {
		return ModeMonitor
	}
	return requested
}

// ShouldAutoReply reports whether a classification is eligible for an
// automatic answer at all, before mode and capacity are considered.
func ShouldAutoReply(c Classification, p Policy) bool {
	switch {
	case !p.AutoReplyEnabled:
		return false
	case c.Escalate, c.Category == CategorySpam:
		return false
	case c.Priority > p.EscalationThreshold:
		return false
	}
	return true
}

// DecideAction picks exactly one action for a classified message. An
// auto-reply consumes one unit of rl. Only ModeAuto can send; hybrid is
// accepted but behaves like monitor.
func DecideAction(c Classification, scheduleOpen bool, mode Mode, rl *RateLimiter, p Policy) Decision {
	if EffectiveMode(mode, scheduleOpen) == ModeAuto && ShouldAutoReply(c, p) && rl.HasCapacity() {
		rl.Consume()
		return Decision{
			Action: ActionAutoReplied,
			Reply: RenderReply(c.Category, p.Language, TemplateData{
				FromName:       p.FromName,
				SchedulingLink: p.SchedulingLink,
			}),
		}
	}
	if c.Escalate || c.Priority > p.EscalationThreshold {
		return Decision{Action: ActionEscalated}
	}
	if c.Category == CategorySpam {
		return Decision{Action: ActionSpam}
	}
	return Decision{Action: ActionCategorized}
}
