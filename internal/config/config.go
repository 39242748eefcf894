package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime string
}

type AuthConfig struct {
	AccessSecret string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type OrdersConfig struct {
	// PublicOrigin prefixes every deep link sent to guests, suppliers and
	// carriers.
	PublicOrigin      string
	CutOff            time.Duration
	PriceViewGrace    time.Duration
	TokenCacheTTL     time.Duration
	OutboundChecklist []string
}

type Config struct {
	Environment string
	HTTP        HTTPConfig
	DB          DBConfig
	Auth        AuthConfig
	Redis       RedisConfig
	Orders      OrdersConfig
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")
	v.AutomaticEnv()

	v.SetDefault("ORDER_CUTOFF", "24h")
	v.SetDefault("PRICE_VIEW_GRACE", "720h")
	v.SetDefault("TOKEN_CACHE_TTL", "10m")

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host:           v.GetString("HTTP_HOST"),
			Port:           v.GetInt("HTTP_PORT"),
			AllowedOrigins: parseList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetString("DB_CONN_MAX_LIFETIME"),
		},
		Auth: AuthConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Orders: OrdersConfig{
			PublicOrigin:      strings.TrimRight(v.GetString("PUBLIC_ORIGIN"), "/"),
			CutOff:            v.GetDuration("ORDER_CUTOFF"),
			PriceViewGrace:    v.GetDuration("PRICE_VIEW_GRACE"),
			TokenCacheTTL:     v.GetDuration("TOKEN_CACHE_TTL"),
			OutboundChecklist: parseList(v.GetString("OUTBOUND_CHECKLIST")),
		},
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 7090
	}
	if cfg.Orders.PublicOrigin == "" {
		cfg.Orders.PublicOrigin = "http://localhost:3000"
	}
	if cfg.Orders.CutOff <= 0 {
		cfg.Orders.CutOff = 24 * time.Hour
	}
	if len(cfg.Orders.OutboundChecklist) == 0 {
		cfg.Orders.OutboundChecklist = []string{"temperature", "packaging", "labeling", "quantity"}
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if cfg.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.Orders.PriceViewGrace < 0 {
		return fmt.Errorf("PRICE_VIEW_GRACE must not be negative")
	}
	return nil
}

func parseList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	items := strings.Split(raw, ",")
	result := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			result = append(result, item)
		}
	}
	return result
}
