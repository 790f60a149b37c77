package config

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "config/config.yaml"

type StorageConfig struct {
	UsersFile  string `yaml:"users_file"`
	LegacyFile string `yaml:"legacy_file"`
}

type EmailConfig struct {
	SMTPHost     string `yaml:"smtp_host"`
	SMTPPort     int    `yaml:"smtp_port"`
	SMTPUser     string `yaml:"smtp_user"`
	SMTPPassword string `yaml:"smtp_password"`
	FromEmail    string `yaml:"from_email"`
	DryRun       bool   `yaml:"dry_run"`
}

// HasSMTP reports whether enough settings exist to dial a mail server.
func (e EmailConfig) HasSMTP() bool {
	return e.SMTPHost != "" && e.SMTPPort > 0
}

type GenerationConfig struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

type QuotaConfig struct {
	FreeLimit int           `yaml:"free_limit"`
	Window    time.Duration `yaml:"window"`
}

type OTPConfig struct {
	TTL             time.Duration `yaml:"ttl"`
	ResendPerMinute float64       `yaml:"resend_per_minute"`
	ResendBurst     int           `yaml:"resend_burst"`
}

type Config struct {
	Server struct {
		Port            int           `yaml:"port"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Admin   struct {
		UpgradeKey string `yaml:"upgrade_key"`
	} `yaml:"admin"`
	Email      EmailConfig      `yaml:"email"`
	Generation GenerationConfig `yaml:"generation"`
	Quota      QuotaConfig      `yaml:"quota"`
	OTP        OTPConfig        `yaml:"otp"`
	CORS       struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // text or json
	} `yaml:"log"`
}

// LoadConfig reads config/config.yaml (or CONFIG_PATH), then overlays secrets
// from .env and the process environment. A missing file leaves defaults in
// place; a malformed one panics.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		logrus.Warn("[config] .env not loaded, relying on process environment")
	}

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = defaultConfigPath
	}

	cfg, err := Load(path)
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}
	return cfg
}

// Load decodes the YAML file at path on top of the defaults and applies
// environment overrides. It does not touch .env.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	f, err := os.Open(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logrus.WithField("path", path).Warn("[config] config file not found, using defaults")
	case err != nil:
		return nil, err
	default:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
	}

	cfg.applyEnv()
	cfg.fillZeroes()
	return cfg, nil
}

// LoadDefaults populates development defaults. The admin key has no default:
// admin operations stay disabled until one is configured.
func (c *Config) LoadDefaults() {
	c.Server.Port = 8080
	c.Server.ShutdownTimeout = 10 * time.Second
	c.Storage.UsersFile = "data/users.json"
	c.Storage.LegacyFile = "users.json"
	c.Email.SMTPPort = 587
	c.Email.FromEmail = "no-reply@ai-repurposer.app"
	c.Generation.Model = "gemini-1.5-flash"
	c.Generation.Timeout = 45 * time.Second
	c.Quota.FreeLimit = 3
	c.Quota.Window = 24 * time.Hour
	c.OTP.TTL = 10 * time.Minute
	c.OTP.ResendPerMinute = 1
	c.OTP.ResendBurst = 3
	c.CORS.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	c.Log.Level = "info"
	c.Log.Format = "text"
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("ADMIN_UPGRADE_KEY")); v != "" {
		c.Admin.UpgradeKey = v
	}
	if v := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); v != "" {
		c.Generation.APIKey = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		c.Email.SMTPPassword = v
	}
	if v := strings.TrimSpace(os.Getenv("USERS_FILE")); v != "" {
		c.Storage.UsersFile = v
	}
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		} else {
			logrus.WithField("port", v).Warn("[config] ignoring non-numeric PORT")
		}
	}
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		c.Log.Level = v
	}
	c.Admin.UpgradeKey = strings.TrimSpace(c.Admin.UpgradeKey)
}

// fillZeroes restores defaults for values a config file explicitly zeroed.
func (c *Config) fillZeroes() {
	if c.Storage.UsersFile == "" {
		c.Storage.UsersFile = "data/users.json"
	}
	if c.Quota.FreeLimit <= 0 {
		c.Quota.FreeLimit = 3
	}
	if c.Quota.Window <= 0 {
		c.Quota.Window = 24 * time.Hour
	}
	if c.OTP.TTL <= 0 {
		c.OTP.TTL = 10 * time.Minute
	}
	if c.Generation.Timeout <= 0 {
		c.Generation.Timeout = 45 * time.Second
	}
}
