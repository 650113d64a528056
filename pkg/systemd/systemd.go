// Package systemd wraps the sd_notify protocol. Every call is a no-op
// outside a systemd unit (NOTIFY_SOCKET unset).
package systemd

import (
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

const (
	Ready    = daemon.SdNotifyReady
	Stopping = daemon.SdNotifyStopping
	Watchdog = daemon.SdNotifyWatchdog
)

// Notifier sends one sd_notify state. sent is false when not running
// under systemd.
type Notifier func(state string) (sent bool, err error)

// Notify is the real Notifier.
func Notify(state string) (bool, error) {
	return daemon.SdNotify(false, state)
}

// Status builds a STATUS= line shown by `systemctl status`.
func Status(msg string) string {
	msg = strings.ReplaceAll(strings.TrimSpace(msg), "\n", " ")
	return "STATUS=" + msg
}

// WatchdogInterval returns WatchdogSec for this process, or 0 when the
// watchdog is off.
func WatchdogInterval() time.Duration {
	d, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		return 0
	}
	return d
}
