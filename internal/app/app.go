// Package app wires configuration, logging and the polling components and
// runs them under one supervisor.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-faster/errors"

	"homeworkbot/internal/config"
	"homeworkbot/internal/notifier"
	"homeworkbot/internal/practicum"
	"homeworkbot/internal/runtime/supervisor"
	"homeworkbot/internal/runtime/watchdog"
	"homeworkbot/internal/tracker"
	kit "homeworkbot/internal/transport"
	telegram "homeworkbot/internal/transport/telegram/adapter"
	logx "homeworkbot/pkg/logx"
)

type App struct {
	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service

	wd      *watchdog.Notifier
	notif   *notifier.Service
	tracker *tracker.Tracker
}

type options struct {
	envFile    string
	sender     kit.Sender
	httpClient *http.Client
}

type Option func(*options)

// WithEnvFile sets the .env file read at startup and on reload.
func WithEnvFile(path string) Option { return func(o *options) { o.envFile = path } }

// WithSender replaces the Telegram adapter.
func WithSender(s kit.Sender) Option { return func(o *options) { o.sender = s } }

// WithHTTPClient sets the client used for the review API.
func WithHTTPClient(c *http.Client) Option { return func(o *options) { o.httpClient = c } }

// New loads and validates the configuration and builds every component.
// Any error here is a fatal misconfiguration.
func New(cfgPath string, opts ...Option) (*App, error) {
	o := options{envFile: config.DefaultEnvFile}
	for _, fn := range opts {
		fn(&o)
	}

	cfgm := config.NewManager(cfgPath, o.envFile)
	snap, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLoggingConfig(snap.Config))

	gw, err := practicum.New(mapPracticumConfig(snap), o.httpClient, log.With(logx.String("comp", "practicum")))
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}

	sender := o.sender
	if sender == nil {
		ad, err := telegram.New(mapTelegramConfig(snap), log.With(logx.String("comp", "telegram")))
		if err != nil {
			_ = logSvc.Close()
			return nil, err
		}
		sender = ad
	}

	a := &App{
		cfgm: cfgm,
		log:  log.With(logx.String("comp", "app")),
		logs: logSvc,
		wd:   watchdog.New(log.With(logx.String("comp", "watchdog"))),
	}
	a.notif = notifier.New(mapNotifierConfig(snap), sender, log.With(logx.String("comp", "notifier")))
	a.tracker = tracker.New(mapTrackerConfig(snap), gw, a.notif, log.With(logx.String("comp", "tracker")),
		tracker.WithCycleHook(a.onCycle),
	)
	return a, nil
}

// Logger is the app logger. It follows logging config reloads.
func (a *App) Logger() logx.Logger { return a.log }

// Done is closed when the app stops running on its own (fatal error) or is stopped.
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		return nil
	}
	return a.sup.Context().Done()
}

func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// Start launches the poll loop and, when a config file is used, the config
// watcher. It does not block.
func (a *App) Start(ctx context.Context) error {
	if a.sup != nil {
		return errors.New("app already started")
	}
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))

	snap := a.cfgm.Get()

	// The loop is restarted after a panic; its state lives on the tracker.
	a.sup.GoRestart("tracker", a.tracker.Run, supervisor.WithRestartBackoff(time.Second, time.Minute))

	if iv := a.wd.Interval(); iv > 0 {
		if iv <= snap.Resolved.RetryInterval {
			// One cycle may take a fetch and a delivery on top of the pause.
			staleAfter := snap.Resolved.RetryInterval + snap.Resolved.PracticumTimeout + snap.Resolved.TelegramTimeout
			a.log.Warn("systemd watchdog is shorter than the poll interval; pinging on a timer",
				logx.Duration("watchdog", iv), logx.Duration("retry_interval", snap.Resolved.RetryInterval),
				logx.Duration("stale_after", staleAfter))
			a.wd.MarkProgress()
			a.sup.Go0("watchdog.keepalive", func(c context.Context) { a.wd.Keepalive(c, staleAfter) })
		}
	}

	if a.cfgm.Path() != "" {
		sub := a.cfgm.Subscribe(4)
		a.sup.Go0("config.reload", func(c context.Context) {
			defer a.cfgm.Unsubscribe(sub)
			a.reloadLoop(c, sub, snap)
		})
		a.sup.GoRestart("config.watch", a.cfgm.Watch)
	}

	a.wd.Ready()
	a.wd.Status("polling")
	a.log.Info("app started",
		logx.Int64("chat_id", snap.Resolved.ChatID),
		logx.String("endpoint", snap.Config.Practicum.Endpoint),
		logx.Bool("config_watch", a.cfgm.Path() != ""),
		logx.Bool("watchdog", a.wd.Interval() > 0),
	)
	return nil
}

func (a *App) onCycle(res tracker.CycleResult) {
	a.wd.MarkProgress()
	a.wd.Ping()
	a.wd.Status(fmt.Sprintf("last poll: %s at %s", res.Outcome, time.Now().Format(time.RFC3339)))
}

func (a *App) reloadLoop(ctx context.Context, sub chan config.Snapshot, last config.Snapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-sub:
			if !ok {
				return
			}
			a.apply(last, snap)
			last = snap
		}
	}
}

// apply pushes the live-reloadable parts of a new config.
func (a *App) apply(prev, next config.Snapshot) {
	a.logs.Apply(mapLoggingConfig(next.Config))
	a.notif.Apply(mapNotifierConfig(next))
	if changed := restartRequired(prev, next); len(changed) > 0 {
		a.log.Warn("config change needs a restart to take effect", logx.Any("sections", changed))
	}
	a.log.Info("config applied")
}

// Stop cancels every goroutine and waits for them, bounded by ctx.
func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		_ = a.logs.Close()
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	a.wd.Stopping()

	err := a.sup.Stop(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		a.log.Warn("shutdown deadline reached; some goroutines are still running", logx.Int64("active", a.sup.Active()))
	}

	a.log.Info("stopped", logx.Int64("restarts", int64(a.sup.Restarts())))
	_ = a.logs.Close()
	return err
}
