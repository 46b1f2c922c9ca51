// Package watchdog reports service state to systemd via sd_notify.
//
// Outside systemd (no NOTIFY_SOCKET) every call is a no-op.
package watchdog

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	logx "homeworkbot/pkg/logx"
)

type Notifier struct {
	log      logx.Logger
	interval time.Duration

	progress atomic.Int64 // unix nanos of the last MarkProgress
}

// New reads the watchdog interval configured by systemd (WATCHDOG_USEC).
func New(log logx.Logger) *Notifier {
	if log.IsZero() {
		log = logx.Nop()
	}
	n := &Notifier{log: log}
	iv, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		log.Warn("invalid systemd watchdog settings", logx.Err(err))
	}
	n.interval = iv
	return n
}

// Interval is the systemd watchdog timeout, or 0 when the watchdog is off.
func (n *Notifier) Interval() time.Duration { return n.interval }

func (n *Notifier) Ready() bool    { return n.notify(daemon.SdNotifyReady) }
func (n *Notifier) Stopping() bool { return n.notify(daemon.SdNotifyStopping) }

// Ping resets the watchdog timer. It is a no-op when the watchdog is off.
func (n *Notifier) Ping() bool {
	if n.interval <= 0 {
		return false
	}
	return n.notify(daemon.SdNotifyWatchdog)
}

// Status sets the free-form status line shown by systemctl status.
func (n *Notifier) Status(text string) bool { return n.notify("STATUS=" + text) }

// MarkProgress records that the service finished a unit of work.
func (n *Notifier) MarkProgress() { n.progress.Store(time.Now().UnixNano()) }

// alive reports whether progress was marked within staleAfter before now.
func (n *Notifier) alive(now time.Time, staleAfter time.Duration) bool {
	last := n.progress.Load()
	if last == 0 {
		return false
	}
	return now.Sub(time.Unix(0, last)) <= staleAfter
}

// Keepalive pings at half the watchdog interval until ctx is done, as long as
// MarkProgress was called within staleAfter. It is used when polls are less
// frequent than the watchdog timeout. A stuck poll stops the pings and lets
// systemd restart the service.
func (n *Notifier) Keepalive(ctx context.Context, staleAfter time.Duration) {
	if n.interval <= 0 {
		return
	}
	t := time.NewTicker(n.interval / 2)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if !n.alive(now, staleAfter) {
				n.log.Warn("no poll progress; withholding watchdog ping", logx.Duration("stale_after", staleAfter))
				continue
			}
			n.Ping()
		}
	}
}

func (n *Notifier) notify(state string) bool {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		n.log.Warn("sd_notify failed", logx.String("state", state), logx.Err(err))
		return false
	}
	return sent
}
