package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
)

type Server struct {
	Port              string `json:"port" validate:"required"`
	RequestTimeoutSec int    `json:"request_timeout_sec" validate:"gt=0"`
}

type Cache struct {
	QuoteTTLSec   int `json:"quote_ttl_sec" validate:"gte=0"`
	HistoryTTLSec int `json:"history_ttl_sec" validate:"gte=0"`
	SearchTTLSec  int `json:"search_ttl_sec" validate:"gte=0"`
}

type Fallback struct {
	AttemptTimeoutSec int `json:"attempt_timeout_sec" validate:"gt=0"`
	BatchConcurrency  int `json:"batch_concurrency" validate:"gt=0"`
}

type Resolver struct {
	ExchangeSuffix string `json:"exchange_suffix" validate:"required"`
}

type FMP struct {
	Enabled     bool   `json:"enabled"`
	APIKey      string `json:"api_key"`
	Endpoint    string `json:"endpoint"`
	Currency    string `json:"currency"`
	SearchLimit int    `json:"search_limit" validate:"gte=0"`
}

type Yahoo struct {
	Enabled  bool   `json:"enabled"`
	Endpoint string `json:"endpoint"`
}

type TwelveData struct {
	Enabled    bool   `json:"enabled"`
	APIKey     string `json:"api_key"`
	Endpoint   string `json:"endpoint"`
	OutputSize int    `json:"output_size" validate:"gte=0"`
}

type Watch struct {
	PollIntervalSec   int `json:"poll_interval_sec" validate:"gt=0"`
	SearchDebounceMs  int `json:"search_debounce_ms" validate:"gt=0"`
	RecentSearchLimit int `json:"recent_search_limit" validate:"gt=0"`
}

type Config struct {
	Server     Server     `json:"server"`
	Cache      Cache      `json:"cache"`
	Fallback   Fallback   `json:"fallback"`
	Resolver   Resolver   `json:"resolver"`
	FMP        FMP        `json:"fmp"`
	Yahoo      Yahoo      `json:"yahoo"`
	TwelveData TwelveData `json:"twelvedata"`
	Watch      Watch      `json:"watch"`
}

func Default() Config {
	return Config{
		Server: Server{Port: "8080", RequestTimeoutSec: 10},
		Cache: Cache{
			QuoteTTLSec:   60,
			HistoryTTLSec: 300,
			SearchTTLSec:  3600,
		},
		Fallback: Fallback{
			AttemptTimeoutSec: 5,
			BatchConcurrency:  8,
		},
		Resolver: Resolver{ExchangeSuffix: ".LG"},
		FMP: FMP{
			Enabled:     true,
			Currency:    "USD",
			SearchLimit: 10,
		},
		Yahoo:      Yahoo{Enabled: true},
		TwelveData: TwelveData{Enabled: false, OutputSize: 300},
		Watch: Watch{
			PollIntervalSec:   30,
			SearchDebounceMs:  400,
			RecentSearchLimit: 10,
		},
	}
}

// Load reads JSON config from path. If path is empty or the file does not
// exist, it returns defaults. Environment variables override select fields
// so keys stay out of the config file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := json.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate runs struct-tag validation plus the cross-field checks tags
// cannot express.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if !c.FMP.Enabled && !c.Yahoo.Enabled && !c.TwelveData.Enabled {
		return fmt.Errorf("invalid config: no providers enabled")
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("REQUEST_TIMEOUT_SEC"); v != "" {
		setInt(&cfg.Server.RequestTimeoutSec, v)
	}
	if v := os.Getenv("QUOTE_TTL_SEC"); v != "" {
		setInt(&cfg.Cache.QuoteTTLSec, v)
	}
	if v := os.Getenv("HISTORY_TTL_SEC"); v != "" {
		setInt(&cfg.Cache.HistoryTTLSec, v)
	}
	if v := os.Getenv("SEARCH_TTL_SEC"); v != "" {
		setInt(&cfg.Cache.SearchTTLSec, v)
	}
	if v := os.Getenv("ATTEMPT_TIMEOUT_SEC"); v != "" {
		setInt(&cfg.Fallback.AttemptTimeoutSec, v)
	}
	if v := os.Getenv("BATCH_CONCURRENCY"); v != "" {
		setInt(&cfg.Fallback.BatchConcurrency, v)
	}
	if v := os.Getenv("EXCHANGE_SUFFIX"); v != "" {
		cfg.Resolver.ExchangeSuffix = v
	}
	if v := os.Getenv("FMP_ENABLED"); v != "" {
		setBool(&cfg.FMP.Enabled, v)
	}
	if v := os.Getenv("FMP_API_KEY"); v != "" {
		cfg.FMP.APIKey = v
	}
	if v := os.Getenv("FMP_ENDPOINT"); v != "" {
		cfg.FMP.Endpoint = v
	}
	if v := os.Getenv("YAHOO_ENABLED"); v != "" {
		setBool(&cfg.Yahoo.Enabled, v)
	}
	if v := os.Getenv("YAHOO_ENDPOINT"); v != "" {
		cfg.Yahoo.Endpoint = v
	}
	if v := os.Getenv("TWELVEDATA_ENABLED"); v != "" {
		setBool(&cfg.TwelveData.Enabled, v)
	}
	if v := os.Getenv("TWELVEDATA_API_KEY"); v != "" {
		cfg.TwelveData.APIKey = v
	}
	if v := os.Getenv("TWELVEDATA_ENDPOINT"); v != "" {
		cfg.TwelveData.Endpoint = v
	}
	if v := os.Getenv("POLL_INTERVAL_SEC"); v != "" {
		setInt(&cfg.Watch.PollIntervalSec, v)
	}
	if v := os.Getenv("SEARCH_DEBOUNCE_MS"); v != "" {
		setInt(&cfg.Watch.SearchDebounceMs, v)
	}
	if v := os.Getenv("RECENT_SEARCH_LIMIT"); v != "" {
		setInt(&cfg.Watch.RecentSearchLimit, v)
	}
}

func setInt(dst *int, v string) {
	var x int
	if _, err := fmt.Sscanf(v, "%d", &x); err == nil && x > 0 {
		*dst = x
	}
}

func setBool(dst *bool, v string) {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y":
		*dst = true
	case "0", "false", "no", "n":
		*dst = false
	}
}
