package config

import (
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type HTTP struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|prod
	Service   string `yaml:"service"`   // session-service
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

type Postgres struct {
	DSN string `yaml:"dsn"` // empty selects the in-memory store
}

type Limits struct {
	Unit      string `yaml:"unit"`      // cost of one action, e.g. "1s"
	Grace     string `yaml:"grace"`     // burst window, e.g. "3s"
	IdleAfter string `yaml:"idleAfter"` // actor idle shutdown, e.g. "5m"
}

type Game struct {
	BacklogSize     int    `yaml:"backlogSize"`
	ConfirmTimeout  string `yaml:"confirmTimeout"`
	RevealDelay     string `yaml:"revealDelay"`
	SolvedThreshold int    `yaml:"solvedThreshold"`
}

type Narrator struct {
	BaseURL    string `yaml:"baseUrl"`
	Timeout    string `yaml:"timeout"`
	MaxRetries int    `yaml:"maxRetries"`
}

type Config struct {
	HTTP     HTTP     `yaml:"http"`
	Logging  Logging  `yaml:"logging"`
	Postgres Postgres `yaml:"postgres"`
	Limits   Limits   `yaml:"limits"`
	Game     Game     `yaml:"game"`
	Narrator Narrator `yaml:"narrator"`
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
	if c.Narrator.BaseURL == "" {
		return errors.New("narrator.baseUrl is required")
	}
	if c.Logging.Service == "" {
		c.Logging.Service = "session-service"
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

// ParseDurationOr parses s, falling back to def on garbage or non-positive
// values.
func ParseDurationOr(def time.Duration, s string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return def
}
