package notifier

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"golang.org/x/time/rate"

	kit "homeworkbot/internal/transport"
	logx "homeworkbot/pkg/logx"
)

type Config struct {
	ChatID   int64
	ThreadID int
	// RatePerSec caps outbound sends. Defaults to 1.
	RatePerSec int
	// SendTimeout bounds a single send. Defaults to 10s.
	SendTimeout time.Duration
}

// Service sends one message per Deliver call. It does not retry: the caller's
// polling cadence is the retry mechanism.
//
// It is safe for concurrent use.
type Service struct {
	mu sync.Mutex

	log    logx.Logger
	sender kit.Sender

	cfg     Config
	limiter *rate.Limiter
}

func New(cfg Config, sender kit.Sender, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{sender: sender, log: log}
	s.applyLocked(cfg)
	return s
}

// Apply swaps the rate and timeout settings. The recipient is kept as well.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.applyLocked(cfg)
	s.mu.Unlock()
}

func (s *Service) applyLocked(cfg Config) {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	s.cfg = cfg
	// Token bucket: burst = rate per sec, so short spikes don't block too hard.
	s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
}

// Deliver sends text to the configured recipient and reports whether the
// messaging API accepted it.
func (s *Service) Deliver(ctx context.Context, text string) bool {
	if ctx == nil {
		ctx = context.Background()
	}

	// config snapshot for this send
	s.mu.Lock()
	cfg := s.cfg
	lim := s.limiter
	sender := s.sender
	log := s.log
	s.mu.Unlock()

	if strings.TrimSpace(text) == "" {
		log.Warn("refusing to send empty notification")
		return false
	}
	if sender == nil {
		log.Error("no messaging channel configured")
		return false
	}

	if err := lim.Wait(ctx); err != nil {
		log.Warn("notification dropped while waiting for send slot", logx.Err(err))
		return false
	}

	callCtx, cancel := context.WithTimeout(ctx, cfg.SendTimeout)
	defer cancel()

	to := kit.ChatTarget{ChatID: cfg.ChatID, ThreadID: cfg.ThreadID}
	ref, err := sender.SendText(callCtx, to, text, &kit.SendOptions{DisablePreview: true})
	if err != nil {
		s.logFailure(log, to, err)
		return false
	}

	log.Info("notification delivered",
		logx.Int64("chat_id", to.ChatID),
		logx.Int("message_id", ref.MessageID),
		logx.String("text", text),
	)
	return true
}

func (s *Service) logFailure(log logx.Logger, to kit.ChatTarget, err error) {
	class := kit.FailureTransient
	var se *kit.SendError
	if errors.As(err, &se) {
		class = se.Class
	}

	fields := []logx.Field{
		logx.Int64("chat_id", to.ChatID),
		logx.String("class", class.String()),
		logx.Err(err),
	}
	switch class {
	case kit.FailureBadRequest:
		log.Error("messaging api rejected the request, check the recipient id", fields...)
	case kit.FailureUnauthorized:
		log.Error("messaging api rejected the bot token, check the bot token", fields...)
	default:
		log.Error("failed to deliver notification", fields...)
	}
}
