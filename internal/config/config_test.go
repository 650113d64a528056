package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
telegram:
  token: "123:abc"
  owner_user_ids: [42]
  group_log: "-100200300"
  poll_timeout: 10s
logging:
  level: info
  console: true
  telegram:
    enabled: true
    min_level: warn
    rate_per_sec: 2
metrics:
  enabled: true
  addr: "127.0.0.1:9464"
storage:
  driver: sqlite
  path: ./data/carebot.db
history:
  retention: 72h
activities:
  - name: heartbeat
    kind: heartbeat
    every: 30s
  - name: history.prune
    kind: history_prune
    every: "@every 1h"
    failure_backoff:
      initial: 30s
      max: 10m
  - name: status
    kind: status_report
    every: "01:00"
    enabled: false
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()
	m := NewConfigManager(writeFile(t, "config.yaml", sampleYAML))
	cfg, err := m.Load()
	require.NoError(t, err)
	require.Same(t, cfg, m.Get())

	assert.Equal(t, []int64{42}, cfg.Telegram.OwnerUserIDs)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	require.Len(t, cfg.Activities, 3)
	assert.True(t, cfg.Activities[0].IsEnabled())
	assert.False(t, cfg.Activities[2].IsEnabled())
	require.NotNil(t, cfg.Activities[1].FailureBackoff)
	assert.Equal(t, "30s", cfg.Activities[1].FailureBackoff.Initial)
}

func TestLoadJSONStrict(t *testing.T) {
	t.Parallel()
	_, err := NewConfigManager(writeFile(t, "config.json", `{"logging":{"level":"info"},"bogus":1}`)).Load()
	require.Error(t, err)

	_, err = NewConfigManager(writeFile(t, "config.json", `{"logging":{}}{"logging":{}}`)).Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()
	base := func() *Config {
		return &Config{
			Logging: LoggingConfig{Level: "info"},
			Storage: &StorageConfig{Driver: "file", Path: "/tmp/carebot"},
			Activities: []ActivityConfig{
				{Name: "heartbeat", Kind: KindHeartbeat, Every: "30s"},
			},
		}
	}
	require.NoError(t, Validate(base()))

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "unknown kind", mutate: func(c *Config) { c.Activities[0].Kind = "reboot" }},
		{name: "missing every", mutate: func(c *Config) { c.Activities[0].Every = "" }},
		{name: "bad every", mutate: func(c *Config) { c.Activities[0].Every = "*/5 * * * *" }},
		{name: "zero every", mutate: func(c *Config) { c.Activities[0].Every = "0s" }},
		{name: "duplicate name", mutate: func(c *Config) {
			c.Activities = append(c.Activities, ActivityConfig{Name: "heartbeat", Kind: KindHeartbeat, Every: "1m"})
		}},
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "loud" }},
		{name: "telegram log without chat", mutate: func(c *Config) { c.Logging.Telegram.Enabled = true }},
		{name: "prune without storage", mutate: func(c *Config) {
			c.Storage = nil
			c.Activities[0].Kind = KindHistoryPrune
		}},
		{name: "storage without path", mutate: func(c *Config) { c.Storage.Path = "" }},
		{name: "bad retention", mutate: func(c *Config) { c.History.Retention = "forever" }},
		{name: "bad metrics addr", mutate: func(c *Config) { c.Metrics.Addr = "nope" }},
		{name: "bad backoff multiplier", mutate: func(c *Config) {
			c.Activities[0].FailureBackoff = &BackoffConfig{Initial: "1s", Multiplier: 0.5}
		}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := base()
			tt.mutate(c)
			require.Error(t, Validate(c))
		})
	}
}

func TestReloadPublishesOnlyChanges(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "config.yaml", sampleYAML)
	m := NewConfigManager(path)
	_, err := m.Load()
	require.NoError(t, err)

	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	changed, err := m.Reload(context.Background())
	require.NoError(t, err)
	assert.False(t, changed)

	updated := sampleYAML + "\nfacebook:\n  app_id: \"12345\"\n"
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))
	changed, err = m.Reload(context.Background())
	require.NoError(t, err)
	require.True(t, changed)

	select {
	case got := <-ch:
		assert.Equal(t, "12345", got.Facebook.AppID)
	case <-time.After(time.Second):
		t.Fatal("no config published")
	}

	// Invalid content is rejected and the committed config stays.
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: loud\n"), 0o600))
	_, err = m.Reload(context.Background())
	require.Error(t, err)
	assert.Equal(t, "12345", m.Get().Facebook.AppID)
}

func TestWatchReloadsOnWrite(t *testing.T) {
	path := writeFile(t, "config.yaml", sampleYAML)
	m := NewConfigManager(path)
	_, err := m.Load()
	require.NoError(t, err)

	ch := m.Subscribe(1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- m.Watch(ctx) }()

	updated := sampleYAML + "\nfacebook:\n  app_id: \"777\"\n"
	require.Eventually(t, func() bool {
		// Rewrite until the watcher is up and has seen it.
		_ = os.WriteFile(path, []byte(updated), 0o600)
		select {
		case got := <-ch:
			return got.Facebook.AppID == "777"
		default:
			return false
		}
	}, 5*time.Second, 300*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestSummarizeConfigChange(t *testing.T) {
	t.Parallel()
	oldCfg := &Config{
		Logging: LoggingConfig{Level: "info"},
		Activities: []ActivityConfig{
			{Name: "heartbeat", Kind: KindHeartbeat, Every: "30s"},
			{Name: "status", Kind: KindStatusReport, Every: "1h"},
		},
	}
	off := false
	newCfg := &Config{
		Logging: LoggingConfig{Level: "debug"},
		Telegram: TelegramConfig{Token: "secret"},
		Activities: []ActivityConfig{
			{Name: "heartbeat", Kind: KindHeartbeat, Every: "30s"},
			{Name: "status", Kind: KindStatusReport, Every: "1h", Enabled: &off},
			{Name: "prune", Kind: KindHistoryPrune, Every: "1h"},
		},
	}

	sections, attrs, acts := SummarizeConfigChange(oldCfg, newCfg)
	assert.Equal(t, []string{"activities", "logging", "telegram"}, sections)
	assert.Equal(t, []string{"prune", "status"}, acts)
	assert.NotEmpty(t, attrs)
}
