package adapter

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	tele "gopkg.in/telebot.v4"

	kit "homeworkbot/internal/transport"
	logx "homeworkbot/pkg/logx"
)

type Config struct {
	Token string
	// Timeout bounds a single Bot API call.
	Timeout time.Duration
}

// Adapter sends messages through the Telegram Bot API. It never polls for
// updates: the bot only talks, it does not listen.
type Adapter struct {
	cfg Config
	log logx.Logger

	bot *tele.Bot
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	// Offline skips getMe, so a network outage at startup is not fatal.
	b, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		Offline: true,
		Client:  &http.Client{Timeout: timeout},
	})
	if err != nil {
		return nil, errors.Wrap(err, "create telegram bot")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Adapter{cfg: cfg, log: log, bot: b}, nil
}

const telegramTextLimit = 4000

// splitTelegramText splits long messages into chunks that are safe to send to Telegram.
// It prefers newline boundaries.
func splitTelegramText(s string, limit int) []string {
	if limit <= 0 {
		limit = telegramTextLimit
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return []string{s}
	}

	out := make([]string, 0, (len(rs)+limit-1)/limit)
	start := 0
	for start < len(rs) {
		end := start + limit
		if end > len(rs) {
			end = len(rs)
		}

		// Prefer splitting on a newline near the end of the window.
		if end < len(rs) {
			for i := end - 1; i > start; i-- {
				// Avoid extremely small chunks.
				if rs[i] == '\n' && i-start >= limit/3 {
					end = i + 1
					break
				}
			}
		}

		out = append(out, strings.TrimRight(string(rs[start:end]), "\n"))

		start = end
		for start < len(rs) && rs[start] == '\n' {
			start++
		}
	}
	return out
}

// SendText delivers text to the target chat. Failures are returned as
// *kit.SendError carrying a failure class.
//
// Long texts go out as several messages. Once the first chunk is accepted the
// text counts as delivered: a later chunk failure is logged, not returned, so
// a retry never repeats chunks the recipient already has.
func (a *Adapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	if opt == nil {
		opt = &kit.SendOptions{}
	}

	chat := &tele.Chat{ID: to.ChatID}
	send := func(chunk string) (int, error) {
		msg, err := a.bot.Send(chat, chunk, &tele.SendOptions{
			ParseMode:             opt.ParseMode,
			DisableWebPagePreview: opt.DisablePreview,
			ThreadID:              to.ThreadID,
		})
		if err != nil || msg == nil {
			return 0, err
		}
		return msg.ID, nil
	}

	id, err := a.sendChunks(ctx, splitTelegramText(text, telegramTextLimit), send)
	if err != nil {
		return kit.MessageRef{}, err
	}
	first := kit.MessageRef{ChatID: to.ChatID, ThreadID: to.ThreadID, MessageID: id}
	a.log.Trace("telegram message sent", logx.Int64("chat_id", to.ChatID), logx.Int("message_id", first.MessageID))
	return first, nil
}

// sendChunks sends chunks in order and returns the id of the first message.
// Only a failure before the first chunk is accepted is an error.
func (a *Adapter) sendChunks(ctx context.Context, chunks []string, send func(string) (int, error)) (int, error) {
	first := 0
	for i, chunk := range chunks {
		if ctx != nil {
			if err := ctx.Err(); err != nil {
				if i == 0 {
					return 0, &kit.SendError{Class: kit.FailureTransient, Err: err}
				}
				a.log.Warn("telegram message truncated", logx.Int("sent_chunks", i), logx.Int("chunks", len(chunks)), logx.Err(err))
				return first, nil
			}
		}

		id, err := send(chunk)
		if err != nil {
			if i == 0 {
				return 0, classify(err)
			}
			a.log.Warn("telegram message truncated", logx.Int("sent_chunks", i), logx.Int("chunks", len(chunks)), logx.Err(err))
			return first, nil
		}
		if i == 0 {
			first = id
		}
	}
	return first, nil
}

// classify maps telebot failures to a transport failure class.
//
// Bot API errors unknown to telebot are plain formatted errors ending in
// "(<code>)", so the code is also matched textually.
func classify(err error) error {
	if err == nil {
		return nil
	}
	class := kit.FailureTransient

	var te *tele.Error
	if errors.As(err, &te) {
		class = classForCode(te.Code)
	} else {
		s := err.Error()
		switch {
		case strings.Contains(s, "(401)"), strings.Contains(s, "(404)"):
			class = kit.FailureUnauthorized
		case strings.Contains(s, "(400)"), strings.Contains(s, "(403)"):
			class = kit.FailureBadRequest
		}
	}
	return &kit.SendError{Class: class, Err: err}
}

func classForCode(code int) kit.FailureClass {
	switch code {
	case http.StatusUnauthorized, http.StatusNotFound:
		return kit.FailureUnauthorized
	case http.StatusBadRequest, http.StatusForbidden:
		return kit.FailureBadRequest
	default:
		return kit.FailureTransient
	}
}
