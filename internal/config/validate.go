package config

import (
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"homeworkbot/internal/tracker"
)

// ValidationError lists every rejected field, one readable problem each.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid config: " + strings.Join(e.Problems, "; ")
}

var (
	vOnce  sync.Once
	vInst  *validator.Validate
	vTrans ut.Translator
)

func instance() (*validator.Validate, ut.Translator) {
	vOnce.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		trans, _ := uni.GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())

		// Name fields after the variable an operator sets: env first, then json.
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			if tag := fld.Tag.Get("env"); tag != "" {
				return strings.Split(tag, ",")[0]
			}
			tag := fld.Tag.Get("json")
			if tag == "-" || tag == "" {
				return fld.Name
			}
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			return tag
		})

		_ = en_translations.RegisterDefaultTranslations(v, trans)
		vInst, vTrans = v, trans
	})
	return vInst, vTrans
}

// Validate checks required fields and value formats, then resolves the typed
// values. Every problem found is reported at once.
func Validate(cfg *Config) (Resolved, error) {
	if cfg == nil {
		return Resolved{}, errors.New("config is nil")
	}
	v, trans := instance()

	var problems []string
	if err := v.Struct(cfg); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			return Resolved{}, errors.Wrap(err, "validate config")
		}
		for _, fe := range ve {
			problems = append(problems, fe.Translate(trans))
		}
	}

	res, perr := resolve(cfg)
	problems = append(problems, perr...)
	if len(problems) > 0 {
		return Resolved{}, &ValidationError{Problems: problems}
	}
	return res, nil
}

// resolve parses the string-typed fields. Fields already rejected by the
// validator (empty chat id) are skipped.
func resolve(cfg *Config) (Resolved, []string) {
	var (
		res      Resolved
		problems []string
		err      error
	)
	if s := strings.TrimSpace(cfg.Telegram.ChatID); s != "" {
		if res.ChatID, err = strconv.ParseInt(s, 10, 64); err != nil {
			problems = append(problems, "TELEGRAM_CHAT_ID must be an integer chat id")
		}
	}

	durations := []struct {
		path string
		raw  string
		def  time.Duration
		dst  *time.Duration
	}{
		{path: "PRACTICUM_TIMEOUT", raw: cfg.Practicum.Timeout, def: 30 * time.Second, dst: &res.PracticumTimeout},
		{path: "TELEGRAM_TIMEOUT", raw: cfg.Telegram.Timeout, def: 10 * time.Second, dst: &res.TelegramTimeout},
		{path: "RETRY_INTERVAL", raw: cfg.Poll.RetryInterval, def: tracker.DefaultRetryInterval, dst: &res.RetryInterval},
		{path: "LOOKBACK", raw: cfg.Poll.Lookback, def: tracker.DefaultLookback, dst: &res.Lookback},
	}
	for _, d := range durations {
		if *d.dst, err = ParseDurationOrDefault(d.path, d.raw, d.def); err != nil {
			problems = append(problems, err.Error())
		}
	}
	return res, problems
}
