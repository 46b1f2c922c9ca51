package adapter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	tele "gopkg.in/telebot.v4"

	kit "homeworkbot/internal/transport"
	logx "homeworkbot/pkg/logx"
)

func TestSplitTelegramText(t *testing.T) {
	t.Parallel()
	if got := splitTelegramText("short", 10); len(got) != 1 || got[0] != "short" {
		t.Fatalf("short text split: %q", got)
	}

	text := strings.Repeat("a", 8) + "\n" + strings.Repeat("b", 8)
	got := splitTelegramText(text, 10)
	if len(got) != 2 || got[0] != strings.Repeat("a", 8) || got[1] != strings.Repeat("b", 8) {
		t.Fatalf("newline split: %q", got)
	}

	long := strings.Repeat("я", 25)
	parts := splitTelegramText(long, 10)
	if len(parts) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(parts))
	}
	if strings.Join(parts, "") != long {
		t.Fatalf("chunks lost runes")
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want kit.FailureClass
	}{
		{name: "chat not found", err: tele.NewError(400, "Bad Request: chat not found"), want: kit.FailureBadRequest},
		{name: "blocked", err: tele.NewError(403, "Forbidden: bot was blocked by the user"), want: kit.FailureBadRequest},
		{name: "unauthorized", err: tele.NewError(401, "Unauthorized"), want: kit.FailureUnauthorized},
		{name: "wrapped unauthorized", err: fmt.Errorf("send: %w", tele.NewError(401, "Unauthorized")), want: kit.FailureUnauthorized},
		{name: "unknown bad request", err: errors.New("telegram: Bad Request: message text is empty (400)"), want: kit.FailureBadRequest},
		{name: "unknown token", err: errors.New("telegram: Not Found (404)"), want: kit.FailureUnauthorized},
		{name: "network", err: errors.New("dial tcp: connection refused"), want: kit.FailureTransient},
		{name: "flood", err: tele.NewError(429, "Too Many Requests"), want: kit.FailureTransient},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := classify(tt.err)
			var se *kit.SendError
			if !errors.As(err, &se) {
				t.Fatalf("expected *SendError, got %T", err)
			}
			if se.Class != tt.want {
				t.Fatalf("Class = %v, want %v", se.Class, tt.want)
			}
			if !errors.Is(err, tt.err) {
				t.Fatalf("SendError should wrap the original error")
			}
		})
	}
	if classify(nil) != nil {
		t.Fatalf("classify(nil) should be nil")
	}
}

func TestNewRequiresToken(t *testing.T) {
	t.Parallel()
	if _, err := New(Config{Token: "  "}, logx.Nop()); err == nil {
		t.Fatalf("expected error for empty token")
	}
	a, err := New(Config{Token: "123:abc"}, logx.Nop())
	if err != nil || a == nil {
		t.Fatalf("New offline bot: %v", err)
	}
}

func TestSendChunksPartialFailure(t *testing.T) {
	t.Parallel()
	a := &Adapter{log: logx.Nop()}
	boom := tele.NewError(400, "Bad Request: message is too long")
	tests := []struct {
		name    string
		failAt  int
		wantID  int
		wantErr bool
		sent    int
	}{
		{name: "all chunks", failAt: -1, wantID: 100, sent: 3},
		{name: "first chunk fails", failAt: 0, wantErr: true, sent: 0},
		{name: "later chunk fails", failAt: 1, wantID: 100, sent: 1},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var sent []string
			send := func(chunk string) (int, error) {
				if len(sent) == tt.failAt {
					return 0, boom
				}
				sent = append(sent, chunk)
				return 100 + len(sent) - 1, nil
			}
			id, err := a.sendChunks(context.Background(), []string{"a", "b", "c"}, send)
			if tt.wantErr {
				var se *kit.SendError
				if !errors.As(err, &se) || se.Class != kit.FailureBadRequest {
					t.Fatalf("err = %v, want bad request SendError", err)
				}
			} else if err != nil {
				t.Fatalf("sendChunks: %v", err)
			}
			if id != tt.wantID {
				t.Fatalf("id = %d, want %d", id, tt.wantID)
			}
			if len(sent) != tt.sent {
				t.Fatalf("sent %d chunks, want %d", len(sent), tt.sent)
			}
		})
	}
}
