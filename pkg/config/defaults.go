package config

import "time"

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"

	DefaultAppEnv = EnvDevelopment

	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "unistay"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort = "8080"

	DefaultSessionCookieName = "__session"
	DefaultSessionIssuer     = "unistay-auth"

	DefaultPaymentCurrency    = "INR"
	DefaultBreakerMaxFailures = 5
	DefaultBreakerOpenTimeout = 30 * time.Second

	DefaultAvatarFolder   = "unistay/avatars"
	DefaultAvatarMaxBytes = 5 * 1024 * 1024 // 5MB

	DefaultTwoFactorIssuer = "UniStay"

	DefaultReconcileSchedule  = "@every 15m"
	DefaultBookingLockTTL     = 30 * time.Second
	DefaultBookingEventsTopic = "booking-events"

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultPaginationLimit = 100
)
