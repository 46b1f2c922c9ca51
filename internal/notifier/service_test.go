package notifier

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	kit "homeworkbot/internal/transport"
	logx "homeworkbot/pkg/logx"
)

type sent struct {
	to   kit.ChatTarget
	text string
}

type fakeSender struct {
	mu   sync.Mutex
	err  error
	sent []sent
}

func (f *fakeSender) SendText(_ context.Context, to kit.ChatTarget, text string, _ *kit.SendOptions) (kit.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return kit.MessageRef{}, f.err
	}
	f.sent = append(f.sent, sent{to: to, text: text})
	return kit.MessageRef{ChatID: to.ChatID, MessageID: len(f.sent)}, nil
}

func TestDeliverSuccess(t *testing.T) {
	t.Parallel()
	fs := &fakeSender{}
	var buf bytes.Buffer
	s := New(Config{ChatID: 42, RatePerSec: 100}, fs, logx.NewJSON(&buf, "info"))

	if !s.Deliver(context.Background(), "hello") {
		t.Fatalf("Deliver should succeed")
	}
	if len(fs.sent) != 1 || fs.sent[0].to.ChatID != 42 || fs.sent[0].text != "hello" {
		t.Fatalf("unexpected sends: %+v", fs.sent)
	}
	if !strings.Contains(buf.String(), "notification delivered") {
		t.Fatalf("missing confirmation log: %s", buf.String())
	}
}

func TestDeliverFailureClasses(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "bad request", err: &kit.SendError{Class: kit.FailureBadRequest, Err: errors.New("chat not found")}, want: "check the recipient id"},
		{name: "unauthorized", err: &kit.SendError{Class: kit.FailureUnauthorized, Err: errors.New("Unauthorized")}, want: "check the bot token"},
		{name: "transient", err: &kit.SendError{Class: kit.FailureTransient, Err: errors.New("timeout")}, want: "failed to deliver notification"},
		{name: "unclassified", err: errors.New("boom"), want: "failed to deliver notification"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			s := New(Config{ChatID: 1, RatePerSec: 100}, &fakeSender{err: tt.err}, logx.NewJSON(&buf, "info"))
			if s.Deliver(context.Background(), "hello") {
				t.Fatalf("Deliver should report failure")
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Fatalf("log %q does not contain %q", buf.String(), tt.want)
			}
		})
	}
}

func TestDeliverRejectsEmptyAndMissingSender(t *testing.T) {
	t.Parallel()
	fs := &fakeSender{}
	s := New(Config{ChatID: 1}, fs, logx.Nop())
	if s.Deliver(context.Background(), "   ") {
		t.Fatalf("empty text should not be delivered")
	}
	if len(fs.sent) != 0 {
		t.Fatalf("sender was called for empty text")
	}
	if New(Config{ChatID: 1}, nil, logx.Logger{}).Deliver(context.Background(), "x") {
		t.Fatalf("nil sender should fail")
	}
}

func TestDeliverCanceledWhileWaiting(t *testing.T) {
	t.Parallel()
	fs := &fakeSender{}
	s := New(Config{ChatID: 1, RatePerSec: 1}, fs, logx.Nop())
	if !s.Deliver(context.Background(), "first") {
		t.Fatalf("first send should pass the limiter")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if s.Deliver(ctx, "second") {
		t.Fatalf("canceled wait should fail")
	}
	if len(fs.sent) != 1 {
		t.Fatalf("expected one send, got %d", len(fs.sent))
	}
}
