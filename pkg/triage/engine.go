package triage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultMessageDelay is the pause between messages that keeps the run
// under typical provider rate limits.
const DefaultMessageDelay = 500 * time.Millisecond

// Inbox is the inbound mail adapter. The engine never opens or closes it.
type Inbox interface {
	ListUnread(ctx context.Context) ([]string, error)
	FetchRaw(ctx context.Context, id string) ([]byte, error)
	MarkSeen(ctx context.Context, id string) error
}

// Reply is an outgoing automatic answer.
type Reply struct {
	To        string
	Subject   string
	Body      string
	InReplyTo string
}

// Mailer is the outbound mail adapter. Sending is a single attempt.
type Mailer interface {
	SendReply(ctx context.Context, r Reply) error
}

// ParseFunc turns raw transport bytes into a Message.
type ParseFunc func(id string, raw []byte) (Message, error)

// RunLog persists a run's outcomes under its calendar date.
type RunLog interface {
	Append(date time.Time, outcomes []RunOutcome) error
}

// OutcomeIndex is an optional secondary, queryable copy of the run log.
type OutcomeIndex interface {
	Record(ctx context.Context, runID string, outcomes []RunOutcome) error
}

// Report summarises one run.
type Report struct {
	RunID         string
	Mode          Mode
	EffectiveMode Mode
	StartedAt     time.Time
	Outcomes      []RunOutcome
	Failures      []*MessageError
}

// Count returns how many outcomes ended in action a.
func (r *Report) Count(a Action) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Action == a {
			n++
		}
	}
	return n
}

// Result is the product of triaging one message: exactly one of Outcome
// and Err is set. A message that failed at any stage has no outcome.
type Result struct {
	Outcome *RunOutcome
	Err     *MessageError
}

// Engine runs one triage pass over the unread messages of an inbox.
type Engine struct {
	inbox  Inbox
	mailer Mailer
	parse  ParseFunc
	runLog RunLog
	policy Policy

	rules  *Ruleset
	index  OutcomeIndex
	logger *zap.Logger
	delay  time.Duration
	now    func() time.Time
}

// Option customises an Engine.
type Option func(*Engine)

func WithRuleset(rs *Ruleset) Option { return func(e *Engine) { e.rules = rs } }

func WithIndex(idx OutcomeIndex) Option { return func(e *Engine) { e.index = idx } }

func WithLogger(l *zap.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithDelay sets the pause between messages.
func WithDelay(d time.Duration) Option { return func(e *Engine) { e.delay = d } }

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// NewEngine wires the adapters and policy for a run.
func NewEngine(inbox Inbox, mailer Mailer, parse ParseFunc, runLog RunLog, policy Policy, opts ...Option) *Engine {
	e := &Engine{
		inbox:  inbox,
		mailer: mailer,
		parse:  parse,
		runLog: runLog,
		policy: policy,
		rules:  DefaultRuleset(),
		logger: zap.NewNop(),
		delay:  DefaultMessageDelay,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	return e
}

// Run triages every unread message in listing order and appends the
// outcomes to the run log. Connection failures abort the run before the
// log is written. Cancelling ctx stops between messages; outcomes gathered
// so far are still logged and ctx's error is returned with the report.
func (e *Engine) Run(ctx context.Context, mode Mode) (*Report, error) {
	started := e.now()
	open := e.policy.WorkingHours.Contains(started)
	report := &Report{
		RunID:         uuid.NewString(),
		Mode:          mode,
		EffectiveMode: EffectiveMode(mode, open),
		StartedAt:     started,
	}
	log := e.logger.With(zap.String("run_id", report.RunID))
	log.Info("starting triage run",
		zap.String("mode", string(mode)),
		zap.String("effective_mode", string(report.EffectiveMode)),
		zap.Bool("within_working_hours", open))

	ids, err := e.inbox.ListUnread(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list unread messages: %w", err)
	}
	log.Info("unread messages", zap.Int("count", len(ids)))

	limiter := NewRateLimiter(e.policy.MaxAutoReplies)
	var stopErr error
	for i, id := range ids {
		if i > 0 {
			if err := e.pause(ctx); err != nil {
				stopErr = err
				log.Warn("run interrupted", zap.Int("remaining", len(ids)-i), zap.Error(err))
				break
			}
		}

		res := e.Process(ctx, id, mode, open, limiter)
		if res.Err != nil {
			if errors.Is(res.Err, ErrConnection) {
				return nil, fmt.Errorf("aborting run: %w", res.Err)
			}
			report.Failures = append(report.Failures, res.Err)
			log.Warn("message failed",
				zap.String("message_id", res.Err.MessageID),
				zap.String("stage", string(res.Err.Stage)),
				zap.Error(res.Err.Err))
		}
		if res.Outcome != nil {
			report.Outcomes = append(report.Outcomes, *res.Outcome)
			log.Info("message triaged",
				zap.String("message_id", res.Outcome.MessageID),
				zap.String("action", string(res.Outcome.Action)),
				zap.String("category", string(res.Outcome.Category)),
				zap.Float64("priority", res.Outcome.Priority),
				zap.String("subject", truncateRunes(res.Outcome.Subject, 50)))
		}
	}

	if err := e.runLog.Append(started, report.Outcomes); err != nil {
		return report, fmt.Errorf("failed to write run log: %w", err)
	}
	if e.index != nil {
		if err := e.index.Record(ctx, report.RunID, report.Outcomes); err != nil {
			log.Warn("failed to index outcomes", zap.Error(err))
		}
	}

	log.Info("triage run finished",
		zap.Int("processed", len(report.Outcomes)),
		zap.Int("failed", len(report.Failures)),
		zap.Int("auto_replied", report.Count(ActionAutoReplied)),
		zap.Int("escalated", report.Count(ActionEscalated)))
	return report, stopErr
}

// Process takes one message from Fetched to Dispatched.
func (e *Engine) Process(ctx context.Context, id string, mode Mode, scheduleOpen bool, limiter *RateLimiter) Result {
	fail := func(stage Stage, err error) Result {
		return Result{Err: &MessageError{MessageID: id, Stage: stage, Err: err}}
	}

	raw, err := e.inbox.FetchRaw(ctx, id)
	if err != nil {
		return fail(StageFetch, err)
	}
	msg, err := e.parse(id, raw)
	if err != nil {
		return fail(StageParse, err)
	}

	c := e.rules.Classify(msg.Subject, msg.Body, msg.Sender)
	outcome := NewRunOutcome(msg, c, Summarize(msg.Subject, msg.Body), e.now())

	decision := DecideAction(c, scheduleOpen, mode, limiter, e.policy)

	switch decision.Action {
	case ActionAutoReplied:
		err := e.mailer.SendReply(ctx, Reply{
			To:        msg.Sender,
			Subject:   ReplySubject(msg.Subject),
			Body:      decision.Reply,
			InReplyTo: msg.InReplyToID,
		})
		if err != nil {
			return fail(StageSend, err)
		}
		if e.policy.AutoArchive {
			if err := e.inbox.MarkSeen(ctx, id); err != nil {
				return fail(StageMarkSeen, err)
			}
		}
	case ActionSpam:
		if err := e.inbox.MarkSeen(ctx, id); err != nil {
			return fail(StageMarkSeen, err)
		}
	}

	outcome.Action = decision.Action
	return Result{Outcome: &outcome}
}

func (e *Engine) pause(ctx context.Context) error {
	if e.delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(e.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ReplySubject prefixes "Re: " unless the subject already carries it.
func ReplySubject(subject string) string {
	if strings.HasPrefix(subject, "Re:") {
		return subject
	}
	return "Re: " + subject
}
