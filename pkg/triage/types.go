package triage

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Category is the topic a message is filed under
type Category string

const (
	CategorySpam    Category = "spam"
	CategoryBooking Category = "booking"
	CategorySupport Category = "support"
	CategoryInquiry Category = "inquiry"
	CategoryBilling Category = "billing"
	CategoryLegal   Category = "legal"
	CategoryGeneral Category = "general"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategorySpam, CategoryBooking, CategorySupport, CategoryInquiry,
		CategoryBilling, CategoryLegal, CategoryGeneral:
		return true
	}
	return false
}

// Action is what the engine did with a message
type Action string

const (
	ActionNone        Action = "none"
	ActionAutoReplied Action = "auto_replied"
	ActionEscalated   Action = "escalated"
	ActionSpam        Action = "spam"
	ActionCategorized Action = "categorized"
)

// Mode is the requested auto-reply mode of a run
type Mode string

const (
	ModeMonitor Mode = "monitor"
	ModeHybrid  Mode = "hybrid"
	ModeAuto    Mode = "auto"
)

// ParseMode validates a mode given on the command line.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeMonitor, ModeHybrid, ModeAuto:
		return m, nil
	}
	return "", fmt.Errorf("invalid mode %q: must be monitor, hybrid or auto", s)
}

// Message is one fetched email, immutable once parsed
type Message struct {
	ID          string // transport id (IMAP UID)
	Subject     string
	Body        string
	Sender      string
	InReplyToID string // Message-ID header the reply threads onto
}

// Classification is the classifier's verdict for a message
type Classification struct {
	Category Category
	Priority float64
	Escalate bool
}

// RunOutcome is the audit record written for each processed message.
// The JSON keys are the on-disk log format.
type RunOutcome struct {
	MessageID  string    `json:"id"`
	From       string    `json:"from"`
	Subject    string    `json:"subject"`
	Category   Category  `json:"category"`
	Priority   float64   `json:"priority"`
	Escalation bool      `json:"escalation"`
	Summary    string    `json:"summary"`
	Action     Action    `json:"action"`
	Timestamp  time.Time `json:"timestamp"`
}

const (
	maxSubjectLen = 80
	maxSummaryLen = 200
)

// NewRunOutcome builds the log record for msg. Action starts as none and is
// set once by the engine after the decision.
func NewRunOutcome(msg Message, c Classification, summary string, now time.Time) RunOutcome {
	return RunOutcome{
		MessageID:  msg.ID,
		From:       msg.Sender,
		Subject:    truncateRunes(msg.Subject, maxSubjectLen),
		Category:   c.Category,
		Priority:   math.Round(c.Priority*100) / 100,
		Escalation: c.Escalate,
		Summary:    truncateRunes(summary, maxSummaryLen),
		Action:     ActionNone,
		Timestamp:  now,
	}
}

// ErrConnection marks adapter failures that make the whole run pointless:
// the server cannot be reached or rejects the credentials.
var ErrConnection = errors.New("mail connection failed")

// Stage names the step at which a message failed
type Stage string

const (
	StageFetch    Stage = "fetch"
	StageParse    Stage = "parse"
	StageSend     Stage = "send"
	StageMarkSeen Stage = "mark_seen"
)

// MessageError is a failure scoped to one message.
type MessageError struct {
	MessageID string
	Stage     Stage
	Err       error
}

func (e *MessageError) Error() string {
	return fmt.Sprintf("message %s: %s: %v", e.MessageID, e.Stage, e.Err)
}

func (e *MessageError) Unwrap() error {
	return e.Err
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
