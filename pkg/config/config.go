package config

import (
	"encoding/base64"
	"fmt"
	"net/netip"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"unistay/pkg/client"
	"unistay/pkg/logger"

	"github.com/robfig/cron/v3"
)

type Config struct {
	AppEnv string

	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	RedisURL string

	Port string

	SessionCookieName string
	SessionJWTSecret  string
	SessionIssuer     string

	PaymentKeyID         string
	PaymentKeySecret     string
	PaymentWebhookSecret string
	PaymentGatewayURL    string
	PaymentCurrency      string
	BreakerMaxFailures   int
	BreakerOpenTimeout   time.Duration

	CloudinaryURL  string
	AvatarFolder   string
	AvatarMaxBytes int

	TwoFactorKey    string
	TwoFactorIssuer string

	ReconcileSchedule     string
	BookingLockTTL        time.Duration
	BookingEventsTopic    string
	BookingEventsDisabled bool

	RateLimitRequests int
	RateLimitWindow   time.Duration
	// TrustedProxies lists the addresses or CIDRs whose X-Forwarded-For and
	// X-Real-IP headers are believed. Empty means RemoteAddr only.
	TrustedProxies []string

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	cfg := FromEnv(serviceName)

	err := cfg.Validate()
	if err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

// LoadWorker is Load for processes that only need the database.
func LoadWorker(serviceName string) *Config {
	cfg := FromEnv(serviceName)

	if err := cfg.ValidateStore(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

// FromEnv reads the configuration without validating it.
func FromEnv(serviceName string) *Config {
	return &Config{
		AppEnv: strings.ToLower(getEnvStr(EnvAppEnv, DefaultAppEnv)),

		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		RedisURL: getEnvStr(EnvRedisURL, ""),

		Port: getEnvStr(EnvPort, DefaultPort),

		SessionCookieName: getEnvStr(EnvSessionCookieName, DefaultSessionCookieName),
		SessionJWTSecret:  getEnvStr(EnvSessionJWTSecret, ""),
		SessionIssuer:     getEnvStr(EnvSessionIssuer, DefaultSessionIssuer),

		PaymentKeyID:         getEnvStr(EnvPaymentKeyID, ""),
		PaymentKeySecret:     getEnvStr(EnvPaymentKeySecret, ""),
		PaymentWebhookSecret: getEnvStr(EnvPaymentWebhookSecret, ""),
		PaymentGatewayURL:    getEnvStr(EnvPaymentGatewayURL, ""),
		PaymentCurrency:      getEnvStr(EnvPaymentCurrency, DefaultPaymentCurrency),
		BreakerMaxFailures:   getEnvNum(EnvBreakerMaxFailures, DefaultBreakerMaxFailures),
		BreakerOpenTimeout:   getEnvDuration(EnvBreakerOpenTimeout, DefaultBreakerOpenTimeout),

		CloudinaryURL:  getEnvStr(EnvCloudinaryURL, ""),
		AvatarFolder:   getEnvStr(EnvAvatarFolder, DefaultAvatarFolder),
		AvatarMaxBytes: getEnvNum(EnvAvatarMaxBytes, DefaultAvatarMaxBytes),

		TwoFactorKey:    getEnvStr(EnvTwoFactorKey, ""),
		TwoFactorIssuer: getEnvStr(EnvTwoFactorIssuer, DefaultTwoFactorIssuer),

		ReconcileSchedule:     getEnvStr(EnvReconcileSchedule, DefaultReconcileSchedule),
		BookingLockTTL:        getEnvDuration(EnvBookingLockTTL, DefaultBookingLockTTL),
		BookingEventsTopic:    getEnvStr(EnvBookingEventsTopic, DefaultBookingEventsTopic),
		BookingEventsDisabled: getEnvBool(EnvBookingEventsDisabled, false),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),
		TrustedProxies:    getEnvList(EnvTrustedProxies),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, logger.INFO),
			Format:    getEnvStr(EnvLogFormat, logger.JSON),
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}
}

func (cfg *Config) IsProduction() bool {
	return cfg.AppEnv == EnvProduction
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetRedis() {
	if cfg.RedisURL == "" {
		cfg.Log.Info("REDIS_URL not set, rate limiting uses in-process counters")
		return
	}
	cfg.Client.SetRedis(cfg.Log, cfg.RedisURL, cfg.MongoConnTimeout)
}

// ValidateStore checks only what a worker needs to reach the database.
func (cfg *Config) ValidateStore() error {
	return joinErrors(cfg.storeErrors())
}

func (cfg *Config) storeErrors() []string {
	var errors []string

	if cfg.AppEnv != EnvProduction && cfg.AppEnv != EnvDevelopment && cfg.AppEnv != "test" {
		errors = append(errors, fmt.Sprintf("AppEnv must be one of production, development, test, got: %s", cfg.AppEnv))
	}

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if len(cfg.MongoURI) < 10 || !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
	}

	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}

	if cfg.MongoConnTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}
	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}
	return errors
}

func (cfg *Config) Validate() error {
	errors := cfg.storeErrors()

	if cfg.RedisURL != "" && !regexp.MustCompile(`^rediss?://`).MatchString(cfg.RedisURL) {
		errors = append(errors, "RedisURL must start with 'redis://' or 'rediss://'")
	}

	if cfg.SessionJWTSecret == "" {
		errors = append(errors, "SessionJWTSecret cannot be empty")
	} else if cfg.IsProduction() && len(cfg.SessionJWTSecret) < 32 {
		errors = append(errors, "SessionJWTSecret must be at least 32 characters in production")
	}
	if cfg.SessionCookieName == "" {
		errors = append(errors, "SessionCookieName cannot be empty")
	}

	if cfg.IsProduction() {
		if cfg.PaymentKeyID == "" || cfg.PaymentKeySecret == "" {
			errors = append(errors, "PaymentKeyID and PaymentKeySecret are required in production")
		}
		if cfg.PaymentGatewayURL == "" {
			errors = append(errors, "PaymentGatewayURL is required in production")
		}
		if cfg.PaymentWebhookSecret == "" {
			errors = append(errors, "PaymentWebhookSecret is required in production")
		}
		if cfg.TwoFactorKey == "" {
			errors = append(errors, "TwoFactorKey is required in production")
		}
	}
	if cfg.TwoFactorKey != "" {
		if key, err := base64.StdEncoding.DecodeString(cfg.TwoFactorKey); err != nil || len(key) != 32 {
			errors = append(errors, "TwoFactorKey must be a base64 encoded 32 byte key")
		}
	}

	if cfg.CloudinaryURL != "" && !strings.HasPrefix(cfg.CloudinaryURL, "cloudinary://") {
		errors = append(errors, "CloudinaryURL must start with 'cloudinary://'")
	}
	if cfg.AvatarMaxBytes <= 0 {
		errors = append(errors, fmt.Sprintf("AvatarMaxBytes must be positive, got: %d", cfg.AvatarMaxBytes))
	}

	if _, err := cron.ParseStandard(cfg.ReconcileSchedule); err != nil {
		errors = append(errors, fmt.Sprintf("ReconcileSchedule is not a valid cron expression: %s", cfg.ReconcileSchedule))
	}
	if cfg.BookingLockTTL <= 0 {
		errors = append(errors, fmt.Sprintf("BookingLockTTL must be positive, got: %s", cfg.BookingLockTTL))
	}
	if cfg.BreakerMaxFailures <= 0 {
		errors = append(errors, fmt.Sprintf("BreakerMaxFailures must be positive, got: %d", cfg.BreakerMaxFailures))
	}
	if cfg.BreakerOpenTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("BreakerOpenTimeout must be positive, got: %s", cfg.BreakerOpenTimeout))
	}

	if cfg.RateLimitWindow <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitWindow must be positive, got: %s", cfg.RateLimitWindow))
	}
	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.IdempotencyTTL <= 0 {
		errors = append(errors, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}

	for _, proxy := range cfg.TrustedProxies {
		if !validProxy(proxy) {
			errors = append(errors, fmt.Sprintf("TrustedProxies entry is not an IP or CIDR: %s", proxy))
		}
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	return joinErrors(errors)
}

func joinErrors(errors []string) error {
	if len(errors) == 0 {
		return nil
	}
	errMsg := "Configuration validation failed:\n"
	for i, err := range errors {
		errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
	}
	return fmt.Errorf("%s", errMsg)
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"app_env", cfg.AppEnv,
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"redis_set", cfg.RedisURL != "",
		"port", cfg.Port,
		"session_cookie", cfg.SessionCookieName,
		"session_issuer", cfg.SessionIssuer,
		"payment_key_set", cfg.PaymentKeySecret != "",
		"payment_webhook_secret_set", cfg.PaymentWebhookSecret != "",
		"payment_gateway_url", cfg.PaymentGatewayURL,
		"cloudinary_set", cfg.CloudinaryURL != "",
		"two_factor_key_set", cfg.TwoFactorKey != "",
		"reconcile_schedule", cfg.ReconcileSchedule,
		"booking_lock_ttl", cfg.BookingLockTTL,
		"booking_events_topic", cfg.BookingEventsTopic,
		"booking_events_disabled", cfg.BookingEventsDisabled,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"trusted_proxies", len(cfg.TrustedProxies),
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// getEnvList splits a comma separated variable, dropping blank entries.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func validProxy(entry string) bool {
	if _, err := netip.ParsePrefix(entry); err == nil {
		return true
	}
	_, err := netip.ParseAddr(entry)
	return err == nil
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
