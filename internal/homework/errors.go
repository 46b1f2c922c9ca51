package homework

import (
	"github.com/go-faster/errors"
)

// Kind is a semantic category of a failed poll. Kinds are sentinels and
// match through *Error with errors.Is.
type Kind int

const (
	KindUnauthorized Kind = iota + 1
	KindServerFault
	KindNotFound
	KindTimeout
	KindMalformedPayload
	KindUnexpectedShape
	KindUnknownStatus
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "UNAUTHORIZED"
	case KindServerFault:
		return "SERVER_FAULT"
	case KindNotFound:
		return "NOT_FOUND"
	case KindTimeout:
		return "TIMEOUT"
	case KindMalformedPayload:
		return "MALFORMED_PAYLOAD"
	case KindUnexpectedShape:
		return "UNEXPECTED_SHAPE"
	case KindUnknownStatus:
		return "UNKNOWN_STATUS"
	default:
		return "UNKNOWN"
	}
}

// Error implements error so a Kind can be used as an errors.Is target.
func (k Kind) Error() string { return k.String() }

// Error is a domain error: a kind, a display message meant for the end user,
// and an optional wrapped cause.
//
// Matching semantics:
//   - errors.Is(err, KindX) matches the kind.
//   - errors.Is/As also traverse the wrapped cause.
type Error struct {
	kind  Kind
	msg   string
	cause error
}

// New constructs a domain error of kind k with a display message.
func New(k Kind, msg string) *Error { return &Error{kind: k, msg: msg} }

// Wrap constructs a domain error of kind k carrying cause.
func Wrap(k Kind, cause error, msg string) *Error { return &Error{kind: k, msg: msg, cause: cause} }

func (e *Error) Error() string {
	switch {
	case e == nil:
		return "<nil>"
	case e.msg != "" && e.cause != nil:
		return e.kind.String() + ": " + e.msg + ": " + e.cause.Error()
	case e.msg != "":
		return e.kind.String() + ": " + e.msg
	case e.cause != nil:
		return e.kind.String() + ": " + e.cause.Error()
	default:
		return e.kind.String()
	}
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Is(target error) bool {
	if e == nil || target == nil {
		return e == nil && target == nil
	}
	if k, ok := target.(Kind); ok {
		return e.kind == k
	}
	return false
}

// Kind returns the error's semantic kind.
func (e *Error) Kind() Kind { return e.kind }

// Message returns the display message, falling back to the kind's default text.
func (e *Error) Message() string {
	if e.msg != "" {
		return e.msg
	}
	return DefaultMessage(e.kind)
}

// KindOf returns the kind of err, or 0 when err is not a domain error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.kind
	}
	return 0
}

// Display messages shown to the end user. Shape variants are one kind with
// several texts so each variant is deduplicated on its own.
const (
	MsgUnauthorized   = "Ошибка авторизации. Ошибка в токене"
	MsgServerFault    = "Внутренняя ошибка сервера."
	MsgNotFound       = "Сервер не может найти запрашиваемый ресурс"
	MsgTimeout        = "Сервер хотел бы отключить это неиспользуемое соединение"
	MsgNoAnswer       = "Сервер API не ответил вовремя"
	MsgUnreachable    = "Не удалось связаться с сервером API"
	MsgMalformed      = "Ответ API не удалось разобрать"
	MsgNotMapping     = "Объект не является словарем"
	MsgMissingKey     = "Ошибка обращения по ключу."
	MsgNotList        = "Объект не является списком"
	MsgNotObjectItem  = "Домашняя работа не является словарем"
	MsgUnknownStatusF = "Неизвестный статус проверки работы: %q"
)

// DefaultMessage is the display text for a kind when the error carries none.
func DefaultMessage(k Kind) string {
	switch k {
	case KindUnauthorized:
		return MsgUnauthorized
	case KindServerFault:
		return MsgServerFault
	case KindNotFound:
		return MsgNotFound
	case KindTimeout:
		return MsgTimeout
	case KindMalformedPayload:
		return MsgMalformed
	case KindUnexpectedShape:
		return MsgNotMapping
	case KindUnknownStatus:
		return "Неизвестный статус проверки работы"
	default:
		return "Неизвестная ошибка"
	}
}
