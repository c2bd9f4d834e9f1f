package config

import (
	"os"
	"time"

	"github.com/spf13/viper"

	"mihomoctl/internal/env"
)

// Monitor restart policies
const (
	MonitorPolicyNever   = "never"
	MonitorPolicyRestart = "restart"
)

/**
 * Logging configuration
 * @property {string} level - Log level (debug/info/warn/error)
 * @property {string} path - Log file path, "console" for stdout only
 * @property {int} max_size - Max size of one log file in MB before rotation
 */
type LogConfig struct {
	Level   string `mapstructure:"level"`
	Path    string `mapstructure:"path"`
	MaxSize int    `mapstructure:"max_size"`
}

/**
 * Release host configuration
 * @property {string} base_url - Base URL of the release host
 * @property {int} timeout - Download request timeout in seconds
 */
type ReleaseConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"`
}

func (r ReleaseConfig) RequestTimeout() time.Duration {
	return time.Duration(r.Timeout) * time.Second
}

/**
 * Monitor configuration
 * @property {int} interval - Poll interval in seconds
 * @property {string} policy - Restart policy: never/restart
 * @property {int} max_attempts - Restart attempts before giving up
 * @property {int} base_delay - Base delay in seconds for restart backoff
 * @property {int} healthy_reset - Sustained healthy seconds before the attempt counter resets
 */
type MonitorConfig struct {
	Interval     int    `mapstructure:"interval"`
	Policy       string `mapstructure:"policy"`
	MaxAttempts  int    `mapstructure:"max_attempts"`
	BaseDelay    int    `mapstructure:"base_delay"`
	HealthyReset int    `mapstructure:"healthy_reset"`
}

func (m MonitorConfig) PollInterval() time.Duration {
	return time.Duration(m.Interval) * time.Second
}

func (m MonitorConfig) RestartBaseDelay() time.Duration {
	return time.Duration(m.BaseDelay) * time.Second
}

func (m MonitorConfig) HealthyResetWindow() time.Duration {
	return time.Duration(m.HealthyReset) * time.Second
}

/**
 * Control-plane client configuration
 * @property {int} timeout - Request timeout in seconds
 * @property {int} reconnect_attempts - Max reconnect attempts per subscription
 * @property {int} reconnect_max_delay - Backoff cap in seconds
 */
type ControlConfig struct {
	Timeout           int `mapstructure:"timeout"`
	ReconnectAttempts int `mapstructure:"reconnect_attempts"`
	ReconnectMaxDelay int `mapstructure:"reconnect_max_delay"`
}

func (c ControlConfig) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

func (c ControlConfig) ReconnectCap() time.Duration {
	return time.Duration(c.ReconnectMaxDelay) * time.Second
}

/**
 * Daemon server configuration
 * @property {string} address - Listen address (e.g. "127.0.0.1:9091")
 * @property {string} mode - Gin mode (debug/release/test)
 */
type ServerConfig struct {
	Address string `mapstructure:"address"`
	Mode    string `mapstructure:"mode"`
}

type AppConfig struct {
	Log     LogConfig     `mapstructure:"log"`
	Release ReleaseConfig `mapstructure:"release"`
	Monitor MonitorConfig `mapstructure:"monitor"`
	Control ControlConfig `mapstructure:"control"`
	Server  ServerConfig  `mapstructure:"server"`
}

func setDefaults(v *viper.Viper, home env.Home) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.path", home.LogFile())
	v.SetDefault("log.max_size", 10)
	v.SetDefault("release.base_url", "https://github.com/MetaCubeX/mihomo/releases")
	v.SetDefault("release.timeout", 120)
	v.SetDefault("monitor.interval", 10)
	v.SetDefault("monitor.policy", "restart")
	v.SetDefault("monitor.max_attempts", 5)
	v.SetDefault("monitor.base_delay", 2)
	v.SetDefault("monitor.healthy_reset", 120)
	v.SetDefault("control.timeout", 10)
	v.SetDefault("control.reconnect_attempts", 6)
	v.SetDefault("control.reconnect_max_delay", 30)
	v.SetDefault("server.address", "127.0.0.1:9091")
	v.SetDefault("server.mode", "release")
}

/**
 * Load manager settings from <home>/config.toml
 * @param {env.Home} home - Resolved home context
 * @returns {*AppConfig} Settings with defaults applied
 * @returns {error} Error if the file exists but cannot be parsed
 * @description
 * - 文件不存在时按默认值工作，不报错
 */
func Load(home env.Home) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(home.ConfigFile())
	v.SetConfigType("toml")
	setDefaults(v, home)

	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(home.ConfigFile()); !os.IsNotExist(statErr) {
			return nil, err
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
