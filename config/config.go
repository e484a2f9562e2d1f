package config

import (
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type HTTP struct {
	Addr string `yaml:"addr"`
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|prod
	Service   string `yaml:"service"`   // chat-service
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

type Postgres struct {
	DSN     string `yaml:"dsn"`
	Migrate bool   `yaml:"migrate"` // прогонять миграции на старте
}

type Presence struct {
	SweepInterval string `yaml:"sweepInterval"` // период свипера, например 10s
	TypingTimeout string `yaml:"typingTimeout"` // сколько живёт флаг «печатает», например 5s
}

type Notifications struct {
	ProbeInterval string `yaml:"probeInterval"` // минимум между пингами базы в degraded-режиме, например 30s
}

type Config struct {
	HTTP          HTTP          `yaml:"http"`
	Logging       Logging       `yaml:"logging"`
	Postgres      Postgres      `yaml:"postgres"`
	Presence      Presence      `yaml:"presence"`
	Notifications Notifications `yaml:"notifications"`
}

func LoadConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}
	if c.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	// установка дефолтов, если значения не указаны
	if c.Logging.Service == "" {
		c.Logging.Service = "chat-service"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}
	return nil
}

func (c *Config) SweepInterval() time.Duration {
	return parseDurationOr(10*time.Second, c.Presence.SweepInterval)
}

func (c *Config) TypingTimeout() time.Duration {
	return parseDurationOr(5*time.Second, c.Presence.TypingTimeout)
}

func (c *Config) ProbeInterval() time.Duration {
	return parseDurationOr(30*time.Second, c.Notifications.ProbeInterval)
}

// helper для парсинга timeout-ов
func parseDurationOr(def time.Duration, s string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return def
}
