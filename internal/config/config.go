package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/sirupsen/logrus"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "CIRCLES_"

type Config struct {
	HTTPPort    string `koanf:"http_port"`
	GRPCAddr    string `koanf:"grpc_addr"`
	DatabaseDSN string `koanf:"database_dsn"`

	JWTSecret string `koanf:"jwt_secret"`
	JWTIssuer string `koanf:"jwt_issuer"`

	AMQPURL         string `koanf:"amqp_url"`
	AMQPExchange    string `koanf:"amqp_exchange"`
	AuditRoutingKey string `koanf:"audit_routing_key"`
	MailRoutingKey  string `koanf:"mail_routing_key"`

	ActivityQueue      string `koanf:"activity_queue"`
	ActivityBindingKey string `koanf:"activity_binding_key"`

	RedisURL          string        `koanf:"redis_url"`
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`

	PublicBaseURL string `koanf:"public_base_url"`
	SiteName      string `koanf:"site_name"`

	OTLPEndpoint string `koanf:"otlp_endpoint"`
	ServiceName  string `koanf:"service_name"`
	Environment  string `koanf:"environment"`
	LogLevel     string `koanf:"log_level"`
	DebugRoutes  bool   `koanf:"debug_routes"`
}

func defaultConfig() Config {
	return Config{
		HTTPPort:           "8083",
		GRPCAddr:           ":9093",
		AMQPExchange:       "circles.events",
		AuditRoutingKey:    "audit.log",
		MailRoutingKey:     "mail.invitation",
		ActivityQueue:      "circles.activity",
		ActivityBindingKey: "activity.*",
		RateLimitRequests:  10,
		RateLimitWindow:    time.Minute,
		PublicBaseURL:      "http://localhost:3000",
		SiteName:           "Circles",
		ServiceName:        "circles-service",
		Environment:        "development",
		LogLevel:           "info",
	}
}

// Load reads defaults, then an optional .env file, then CIRCLES_* variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("no .env file loaded")
	}

	k := koanf.New(".")
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// CIRCLES_RATE_LIMIT_WINDOW -> rate_limit_window
func envTransformFunc(key string) string {
	return strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
}

func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("CIRCLES_DATABASE_DSN is required"))
	}
	if len(c.JWTSecret) < 32 {
		errs = append(errs, errors.New("CIRCLES_JWT_SECRET must be at least 32 characters"))
	}
	if c.HTTPPort == "" {
		errs = append(errs, errors.New("CIRCLES_HTTP_PORT is required"))
	}
	if c.RateLimitRequests <= 0 {
		errs = append(errs, errors.New("CIRCLES_RATE_LIMIT_REQUESTS must be positive"))
	}
	if c.RateLimitWindow <= 0 {
		errs = append(errs, errors.New("CIRCLES_RATE_LIMIT_WINDOW must be positive"))
	}
	if !strings.HasPrefix(c.PublicBaseURL, "http://") && !strings.HasPrefix(c.PublicBaseURL, "https://") {
		errs = append(errs, errors.New("CIRCLES_PUBLIC_BASE_URL must be an http(s) URL"))
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("CIRCLES_LOG_LEVEL: %w", err))
	}
	return errors.Join(errs...)
}

// ConfigureLogging applies the log level and picks JSON output outside development.
func (c *Config) ConfigureLogging() {
	if level, err := logrus.ParseLevel(c.LogLevel); err == nil {
		logrus.SetLevel(level)
	}
	if c.Environment == "development" {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		return
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})
}
