package transport

import (
	"context"
	"fmt"
)

type ChatTarget struct {
	ChatID   int64
	ThreadID int // telegram forum topic thread id (0 if none)
}

type MessageRef struct {
	ChatID    int64
	ThreadID  int
	MessageID int
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

// Sender delivers plain text to one chat.
type Sender interface {
	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
}

// FailureClass groups messaging failures by what the operator has to fix.
type FailureClass int

const (
	// FailureTransient covers network errors, flood control and unknown API errors.
	FailureTransient FailureClass = iota
	// FailureBadRequest means the request was rejected (usually a wrong recipient id).
	FailureBadRequest
	// FailureUnauthorized means the bot token was rejected.
	FailureUnauthorized
)

func (c FailureClass) String() string {
	switch c {
	case FailureBadRequest:
		return "bad_request"
	case FailureUnauthorized:
		return "unauthorized"
	default:
		return "transient"
	}
}

// SendError is returned by adapters for failed sends.
type SendError struct {
	Class FailureClass
	Err   error
}

func (e *SendError) Error() string {
	if e.Err == nil {
		return "send failed (" + e.Class.String() + ")"
	}
	return fmt.Sprintf("send failed (%s): %v", e.Class, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }
