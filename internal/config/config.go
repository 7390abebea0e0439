package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the kiosk settings read from the environment at startup.
type Config struct {
	Port         string   `env:"PORT" envDefault:"8080"`
	LogLevel     string   `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat    string   `env:"LOG_FORMAT" envDefault:"json"`
	DBPath       string   `env:"KIOSK_DB_PATH" envDefault:"data/kiosk.db"`
	PublicURL    string   `env:"KIOSK_PUBLIC_URL" envDefault:"https://joulunosaaja.fi"`
	AdminToken   string   `env:"KIOSK_ADMIN_TOKEN"`
	SessionCache int      `env:"KIOSK_SESSION_CACHE" envDefault:"64"`
	CORSOrigins  []string `env:"KIOSK_CORS_ORIGINS" envSeparator:","`

	Transform Transform
	Badge     Badge
}

// Transform configures the elf image function. An empty URL selects the
// local compositor.
type Transform struct {
	URL     string        `env:"ELF_IMAGE_URL"`
	APIKey  string        `env:"ELF_IMAGE_API_KEY"`
	Timeout time.Duration `env:"ELF_IMAGE_TIMEOUT" envDefault:"90s"`
	Rate    float64       `env:"ELF_IMAGE_RATE" envDefault:"0.5"`
	Burst   int           `env:"ELF_IMAGE_BURST" envDefault:"3"`
}

// Badge configures Open Badge Factory issuance. BadgeID and ProxyURL are
// only defaults; operators can override them at runtime from the settings page.
type Badge struct {
	BadgeID      string `env:"OBF_BADGE_ID"`
	ProxyURL     string `env:"OBF_PROXY_URL" envDefault:"https://joulun-osaaja-obf-proxy.aki-oksala.workers.dev"`
	ClientID     string `env:"OBF_CLIENT_ID"`
	ClientSecret string `env:"OBF_CLIENT_SECRET"`
	APIURL       string `env:"OBF_API_URL" envDefault:"https://openbadgefactory.com"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Port = strings.TrimPrefix(strings.TrimSpace(cfg.Port), ":")
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.SessionCache <= 0 {
		cfg.SessionCache = 64
	}
	return cfg, nil
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}

// UseRemoteTransform reports whether an elf image function is configured.
func (t Transform) UseRemoteTransform() bool {
	return strings.TrimSpace(t.URL) != ""
}

// DirectOBF reports whether client credentials for calling Open Badge
// Factory directly are present.
func (b Badge) DirectOBF() bool {
	return strings.TrimSpace(b.ClientID) != "" && strings.TrimSpace(b.ClientSecret) != ""
}
