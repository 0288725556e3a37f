package config

const (
	EnvAppEnv = "APP_ENV"

	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvRedisURL = "REDIS_URL"

	EnvPort      = "PORT"
	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"

	EnvSessionCookieName = "SESSION_COOKIE_NAME"
	EnvSessionJWTSecret  = "SESSION_JWT_SECRET"
	EnvSessionIssuer     = "SESSION_ISSUER"

	EnvPaymentKeyID          = "PAYMENT_KEY_ID"
	EnvPaymentKeySecret      = "PAYMENT_KEY_SECRET"
	EnvPaymentWebhookSecret  = "PAYMENT_WEBHOOK_SECRET"
	EnvPaymentGatewayURL     = "PAYMENT_GATEWAY_URL"
	EnvPaymentCurrency       = "PAYMENT_CURRENCY"
	EnvBreakerMaxFailures    = "BREAKER_MAX_FAILURES"
	EnvBreakerOpenTimeout    = "BREAKER_OPEN_TIMEOUT"
	EnvCloudinaryURL         = "CLOUDINARY_URL"
	EnvAvatarFolder          = "AVATAR_FOLDER"
	EnvAvatarMaxBytes        = "AVATAR_MAX_BYTES"
	EnvTwoFactorKey          = "TWO_FACTOR_KEY"
	EnvTwoFactorIssuer       = "TWO_FACTOR_ISSUER"
	EnvReconcileSchedule     = "OCCUPANCY_RECONCILE_SCHEDULE"
	EnvBookingLockTTL        = "BOOKING_LOCK_TTL"
	EnvBookingEventsTopic    = "BOOKING_EVENTS_TOPIC"
	EnvBookingEventsDisabled = "BOOKING_EVENTS_DISABLED"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"
	EnvTrustedProxies    = "TRUSTED_PROXIES"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)
