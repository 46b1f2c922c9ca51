package app

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"

	"homeworkbot/internal/config"
	kit "homeworkbot/internal/transport"
)

type rtFunc func(*http.Request) (*http.Response, error)

func (f rtFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

type recordingSender struct {
	mu   sync.Mutex
	got  []string
	sent chan struct{}
}

func (s *recordingSender) SendText(_ context.Context, to kit.ChatTarget, text string, _ *kit.SendOptions) (kit.MessageRef, error) {
	s.mu.Lock()
	s.got = append(s.got, text)
	s.mu.Unlock()
	select {
	case s.sent <- struct{}{}:
	default:
	}
	return kit.MessageRef{ChatID: to.ChatID, MessageID: 1}, nil
}

func (s *recordingSender) messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.got...)
}

func setEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	for _, k := range []string{
		"PRACTICUM_TOKEN", "PRACTICUM_ENDPOINT", "PRACTICUM_TIMEOUT",
		"TELEGRAM_TOKEN", "TELEGRAM_CHAT_ID", "TELEGRAM_THREAD_ID", "TELEGRAM_RATE_PER_SEC", "TELEGRAM_TIMEOUT",
		"RETRY_INTERVAL", "LOOKBACK", "LOG_LEVEL", "LOG_CONSOLE", "LOG_FILE_ENABLED", "LOG_FILE_PATH",
		"NOTIFY_SOCKET", "WATCHDOG_USEC",
	} {
		t.Setenv(k, "")
		_ = os.Unsetenv(k)
	}
	for k, v := range kv {
		t.Setenv(k, v)
	}
}

func validEnv() map[string]string {
	return map[string]string{
		"PRACTICUM_TOKEN":  "p-token",
		"TELEGRAM_TOKEN":   "123:abc",
		"TELEGRAM_CHAT_ID": "42",
		"RETRY_INTERVAL":   "20ms",
		"LOG_LEVEL":        "error",
	}
}

func TestNewFailsWithoutSecrets(t *testing.T) {
	setEnv(t, map[string]string{"TELEGRAM_TOKEN": "123:abc"})
	_, err := New("", WithEnvFile(""))
	var ve *config.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !strings.Contains(err.Error(), "PRACTICUM_TOKEN") {
		t.Fatalf("error should name the missing variable: %v", err)
	}
}

func TestNewWithTelegramAdapter(t *testing.T) {
	setEnv(t, validEnv())
	a, err := New("", WithEnvFile(""))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Stop(context.Background(), StopSignal); err != nil {
		t.Fatalf("Stop before Start: %v", err)
	}
}

func TestRunNotifiesStatusChangeOnce(t *testing.T) {
	setEnv(t, validEnv())

	var polls atomic.Int32
	secondPoll := make(chan struct{})
	client := &http.Client{Transport: rtFunc(func(r *http.Request) (*http.Response, error) {
		if r.Header.Get("Authorization") != "OAuth p-token" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		if polls.Add(1) == 2 {
			close(secondPoll)
		}
		body := `{"homeworks": [{"homework_name": "hw1", "status": "approved"}], "current_date": 1}`
		return &http.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: io.NopCloser(strings.NewReader(body))}, nil
	})}

	sender := &recordingSender{sent: make(chan struct{}, 4)}
	a, err := New("", WithEnvFile(""), WithSender(sender), WithHTTPClient(client))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case <-sender.sent:
	case <-time.After(3 * time.Second):
		t.Fatalf("no notification sent")
	}

	// Let at least one more cycle run.
	select {
	case <-secondPoll:
	case <-time.After(3 * time.Second):
		t.Fatalf("second poll did not happen")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer stopCancel()
	if err := a.Stop(stopCtx, StopSignal); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	want := `Изменился статус проверки работы "hw1". Работа проверена: ревьюеру всё понравилось. Ура!`
	if got := sender.messages(); len(got) != 1 || got[0] != want {
		t.Fatalf("messages = %q", got)
	}
}

func TestRestartRequired(t *testing.T) {
	setEnv(t, validEnv())
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"poll": {"retry_interval": "5m"}, "logging": {"level": "info"}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	prev, res, err := config.Load(path, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	a := config.Snapshot{Config: prev, Resolved: res}

	next := *prev
	next.Logging.Level = "debug"
	b := config.Snapshot{Config: &next, Resolved: res}
	if got := restartRequired(a, b); len(got) != 0 {
		t.Fatalf("logging change should apply live, got %v", got)
	}

	b.Resolved.RetryInterval = time.Minute
	b.Resolved.TelegramTimeout = time.Minute
	got := restartRequired(a, b)
	if len(got) != 2 || got[0] != "poll" || got[1] != "telegram" {
		t.Fatalf("restartRequired = %v", got)
	}
}
