// Package config loads gateway configuration from TOML with environment
// overrides for deployment-specific values.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/fleetdesk/notify/internal/session"
)

const (
	EnvAddr      = "NOTIFY_ADDR"
	EnvAuthToken = "NOTIFY_AUTH_TOKEN"
	EnvStoreDSN  = "NOTIFY_STORE_DSN"
	EnvProxyURL  = "NOTIFY_PROXY_URL"
)

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Delivery  DeliveryConfig  `toml:"delivery"`
	Transport TransportConfig `toml:"transport"`
}

type ServerConfig struct {
	Addr        string   `toml:"addr"`
	AuthToken   string   `toml:"auth_token"`
	CorsOrigins []string `toml:"cors_origins"`
}

type DeliveryConfig struct {
	AddressSuffix string `toml:"address_suffix"`
	MaxRetries    int    `toml:"max_retries"`
	QueueCap      int    `toml:"queue_cap"`
	SendTimeoutMS int    `toml:"send_timeout_ms"`
	DrainDelayMS  int    `toml:"drain_delay_ms"`
	BulkDelayMS   int    `toml:"bulk_delay_ms"`
}

type TransportConfig struct {
	StoreDSN   string `toml:"store_dsn"`
	DeviceName string `toml:"device_name"`
	ProxyURL   string `toml:"proxy_url"`
	QRTerminal bool   `toml:"qr_terminal"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr: ":8090",
		},
		Transport: TransportConfig{
			StoreDSN:   "file:notify.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)",
			DeviceName: "notify-gateway",
		},
	}
}

// Load reads the TOML file at path when it is non-empty, applies env
// overrides, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
		}
	}
	applyEnvOverrides(&cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvAddr)); v != "" {
		cfg.Server.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAuthToken)); v != "" {
		cfg.Server.AuthToken = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvStoreDSN)); v != "" {
		cfg.Transport.StoreDSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvProxyURL)); v != "" {
		cfg.Transport.ProxyURL = v
	}
}

func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Server.Addr) == "" {
		return fmt.Errorf("config missing server.addr")
	}
	if strings.TrimSpace(cfg.Transport.StoreDSN) == "" {
		return fmt.Errorf("config missing transport.store_dsn")
	}
	if cfg.Delivery.MaxRetries < 0 {
		return fmt.Errorf("delivery.max_retries must not be negative")
	}
	if cfg.Delivery.QueueCap < 0 {
		return fmt.Errorf("delivery.queue_cap must not be negative")
	}
	return nil
}

// SessionConfig converts the delivery section into session.Config; zero
// fields fall back to the session package defaults.
func (d DeliveryConfig) SessionConfig() session.Config {
	return session.Config{
		AddressSuffix: d.AddressSuffix,
		MaxRetries:    d.MaxRetries,
		QueueCap:      d.QueueCap,
		SendTimeout:   time.Duration(d.SendTimeoutMS) * time.Millisecond,
		DrainDelay:    time.Duration(d.DrainDelayMS) * time.Millisecond,
		BulkDelay:     time.Duration(d.BulkDelayMS) * time.Millisecond,
	}.WithDefaults()
}
