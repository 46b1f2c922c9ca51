// Package tracker runs the polling cycle: fetch review statuses, detect a
// change in the most recent homework, and notify the recipient once per change.
package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"

	"homeworkbot/internal/homework"
	logx "homeworkbot/pkg/logx"
)

// Fetcher requests review statuses changed since a Unix timestamp.
type Fetcher interface {
	FetchSince(ctx context.Context, since int64) (homework.Payload, error)
}

// Deliverer sends a message to the recipient and reports whether it was accepted.
type Deliverer interface {
	Deliver(ctx context.Context, text string) bool
}

type Config struct {
	// RetryInterval is the constant pause after every cycle.
	RetryInterval time.Duration
	// Lookback is how far back from now each cycle asks for changes.
	Lookback time.Duration
}

const (
	DefaultRetryInterval = 10 * time.Minute
	DefaultLookback      = time.Hour
)

// KindUnclassified marks a notified failure that carried no homework.Kind.
const KindUnclassified homework.Kind = -1

// State is what has been delivered so far. Fields change only after a
// successful delivery, except the error fields which an error-free cycle clears.
//
// Errors are deduplicated by LastErrorKind; LastError keeps the delivered text.
type State struct {
	LastMessage   string
	LastError     string
	LastErrorKind homework.Kind
}

type Outcome int

const (
	// OutcomeNoUpdates: the API returned no homeworks in the window.
	OutcomeNoUpdates Outcome = iota
	// OutcomeUnchanged: the latest status equals the last delivered message.
	OutcomeUnchanged
	// OutcomeNotified: a new status message was delivered.
	OutcomeNotified
	// OutcomeNotifyFailed: a new status message could not be delivered.
	OutcomeNotifyFailed
	// OutcomeError: the cycle failed. Err is set; Notified tells whether the
	// error notification went out.
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoUpdates:
		return "no_updates"
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeNotified:
		return "notified"
	case OutcomeNotifyFailed:
		return "notify_failed"
	case OutcomeError:
		return "error"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// CycleResult describes one finished cycle.
type CycleResult struct {
	Outcome  Outcome
	Message  string
	Err      error
	Notified bool
}

type Option func(*Tracker)

// WithClock overrides the time source used for the lookback window.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// WithCycleHook registers fn to be called after every cycle.
func WithCycleHook(fn func(CycleResult)) Option {
	return func(t *Tracker) { t.hook = fn }
}

// Tracker owns the polling state. Cycle and Run must not be called concurrently.
type Tracker struct {
	cfg     Config
	fetcher Fetcher
	out     Deliverer
	log     logx.Logger

	now  func() time.Time
	hook func(CycleResult)

	state State
}

func New(cfg Config, fetcher Fetcher, out Deliverer, log logx.Logger, opts ...Option) *Tracker {
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = DefaultLookback
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	t := &Tracker{cfg: cfg, fetcher: fetcher, out: out, log: log, now: time.Now}
	for _, o := range opts {
		if o != nil {
			o(t)
		}
	}
	return t
}

// State returns a copy of the delivered-state.
func (t *Tracker) State() State { return t.state }

// Run repeats Cycle with a constant pause until ctx is canceled.
// It returns ctx.Err().
func (t *Tracker) Run(ctx context.Context) error {
	t.log.Info("polling started",
		logx.Duration("retry_interval", t.cfg.RetryInterval),
		logx.Duration("lookback", t.cfg.Lookback),
	)
	for {
		if err := ctx.Err(); err != nil {
			t.log.Info("polling stopped")
			return err
		}

		t.Cycle(ctx)

		select {
		case <-ctx.Done():
			t.log.Info("polling stopped")
			return ctx.Err()
		case <-time.After(t.cfg.RetryInterval):
		}
	}
}

// Cycle runs one poll. It never fails: every error is logged, best-effort
// notified and reported in the result.
//
// Cancellation of ctx does not interrupt an in-flight cycle.
func (t *Tracker) Cycle(ctx context.Context) CycleResult {
	ctx = context.WithoutCancel(ctx)
	res := t.cycle(ctx)
	t.log.Debug("cycle finished", logx.String("outcome", res.Outcome.String()))
	if t.hook != nil {
		t.hook(res)
	}
	return res
}

func (t *Tracker) cycle(ctx context.Context) CycleResult {
	since := t.now().Add(-t.cfg.Lookback).Unix()

	payload, err := t.fetcher.FetchSince(ctx, since)
	if err != nil {
		return t.fail(ctx, err)
	}
	items, err := homework.Validate(payload)
	if err != nil {
		return t.fail(ctx, err)
	}

	if len(items) == 0 {
		t.clearError()
		t.log.Debug("no status changes in window", logx.Int64("from_date", since))
		return CycleResult{Outcome: OutcomeNoUpdates}
	}

	msg, err := homework.Describe(items[0])
	if err != nil {
		return t.fail(ctx, err)
	}
	t.clearError()

	if msg == t.state.LastMessage {
		t.log.Debug("homework status unchanged", logx.String("message", msg))
		return CycleResult{Outcome: OutcomeUnchanged, Message: msg}
	}

	t.log.Info("homework status changed", logx.String("message", msg))
	if !t.out.Deliver(ctx, msg) {
		return CycleResult{Outcome: OutcomeNotifyFailed, Message: msg}
	}
	t.state.LastMessage = msg
	return CycleResult{Outcome: OutcomeNotified, Message: msg, Notified: true}
}

func (t *Tracker) clearError() {
	t.state.LastError = ""
	t.state.LastErrorKind = 0
}

// fail logs err and notifies the recipient unless an error of the same kind
// was already delivered.
func (t *Tracker) fail(ctx context.Context, err error) CycleResult {
	msg := t.describeError(err)
	kind := homework.KindOf(err)
	if kind == 0 {
		kind = KindUnclassified
	}
	res := CycleResult{Outcome: OutcomeError, Message: msg, Err: err}

	if kind == t.state.LastErrorKind {
		t.log.Debug("error of this kind already notified",
			logx.String("kind", kind.String()), logx.String("message", msg))
		return res
	}
	if t.out.Deliver(ctx, msg) {
		t.state.LastError = msg
		t.state.LastErrorKind = kind
		res.Notified = true
	}
	return res
}

// describeError logs err and returns the text sent to the recipient.
func (t *Tracker) describeError(err error) string {
	var de *homework.Error
	if !errors.As(err, &de) {
		t.log.Error("unexpected failure in poll cycle", logx.Err(err))
		return fmt.Sprintf("Сбой в работе программы: %v", err)
	}

	log := t.log.With(logx.String("kind", de.Kind().String()), logx.Err(err))
	switch de.Kind() {
	case homework.KindUnauthorized:
		log.Error("review api rejected the token")
	case homework.KindServerFault:
		log.Error("review api failed")
	case homework.KindNotFound:
		log.Error("review api endpoint not found")
	case homework.KindTimeout:
		log.Error("review api did not answer")
	case homework.KindMalformedPayload:
		log.Error("review api returned invalid json")
	case homework.KindUnexpectedShape:
		log.Error("review api response has unexpected shape")
	case homework.KindUnknownStatus:
		log.Error("homework has unknown review status")
	default:
		log.Error("unclassified review error")
	}
	return de.Message()
}
