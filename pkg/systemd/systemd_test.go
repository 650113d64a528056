package systemd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusIsSingleLine(t *testing.T) {
	assert.Equal(t, "STATUS=3 activities, 0 failing", Status(" 3 activities,\n0 failing "))
}

func TestNotifyOutsideSystemd(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")
	sent, err := Notify(Ready)
	assert.NoError(t, err)
	assert.False(t, sent)
	assert.Zero(t, WatchdogInterval())
}
