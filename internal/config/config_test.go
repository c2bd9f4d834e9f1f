package config

import (
	"os"
	"testing"
	"time"

	"mihomoctl/internal/env"
)

func TestLoadDefaults(t *testing.T) {
	home := env.New(t.TempDir())

	cfg, err := Load(home)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("log.level = %s", cfg.Log.Level)
	}
	if cfg.Log.Path != home.LogFile() {
		t.Errorf("log.path = %s", cfg.Log.Path)
	}
	if cfg.Monitor.Policy != MonitorPolicyRestart {
		t.Errorf("monitor.policy = %s", cfg.Monitor.Policy)
	}
	if cfg.Monitor.PollInterval() != 10*time.Second {
		t.Errorf("monitor interval = %s", cfg.Monitor.PollInterval())
	}
	if cfg.Control.RequestTimeout() != 10*time.Second {
		t.Errorf("control timeout = %s", cfg.Control.RequestTimeout())
	}
	if cfg.Server.Address != "127.0.0.1:9091" {
		t.Errorf("server.address = %s", cfg.Server.Address)
	}
}

func TestLoadFile(t *testing.T) {
	home := env.New(t.TempDir())
	content := `[log]
level = "debug"

[monitor]
policy = "never"
interval = 3

[server]
address = "0.0.0.0:8080"
`
	if err := os.WriteFile(home.ConfigFile(), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(home)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log.level = %s", cfg.Log.Level)
	}
	if cfg.Monitor.Policy != MonitorPolicyNever {
		t.Errorf("monitor.policy = %s", cfg.Monitor.Policy)
	}
	if cfg.Monitor.PollInterval() != 3*time.Second {
		t.Errorf("monitor interval = %s", cfg.Monitor.PollInterval())
	}
	// 未覆盖的键保持默认
	if cfg.Monitor.MaxAttempts != 5 {
		t.Errorf("monitor.max_attempts = %d", cfg.Monitor.MaxAttempts)
	}
	if cfg.Server.Address != "0.0.0.0:8080" {
		t.Errorf("server.address = %s", cfg.Server.Address)
	}
}

func TestLoadBadFile(t *testing.T) {
	home := env.New(t.TempDir())
	if err := os.WriteFile(home.ConfigFile(), []byte("not [valid toml"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(home); err == nil {
		t.Error("malformed config file should fail loudly, not fall back to defaults")
	}
}
