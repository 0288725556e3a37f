package main

import (
	"time"

	adminhandler "unistay/internal/admin/handler"
	adminrepo "unistay/internal/admin/repository"
	adminservice "unistay/internal/admin/service"
	audithandler "unistay/internal/audit/handler"
	auditrepo "unistay/internal/audit/repository"
	auditservice "unistay/internal/audit/service"
	bookinghandler "unistay/internal/bookings/handler"
	"unistay/internal/bookings/lifecycle"
	bookingrepo "unistay/internal/bookings/repository"
	bookingservice "unistay/internal/bookings/service"
	bookingvalidator "unistay/internal/bookings/validator"
	"unistay/internal/events"
	messagehandler "unistay/internal/messages/handler"
	messagerepo "unistay/internal/messages/repository"
	messageservice "unistay/internal/messages/service"
	messagevalidator "unistay/internal/messages/validator"
	notificationhandler "unistay/internal/notifications/handler"
	notificationrepo "unistay/internal/notifications/repository"
	notificationservice "unistay/internal/notifications/service"
	"unistay/internal/occupancy"
	occupancyrepo "unistay/internal/occupancy/repository"
	"unistay/internal/payments/gateway"
	paymenthandler "unistay/internal/payments/handler"
	propertyhandler "unistay/internal/properties/handler"
	propertyrepo "unistay/internal/properties/repository"
	propertyservice "unistay/internal/properties/service"
	propertyvalidator "unistay/internal/properties/validator"
	reviewhandler "unistay/internal/reviews/handler"
	reviewrepo "unistay/internal/reviews/repository"
	reviewservice "unistay/internal/reviews/service"
	reviewvalidator "unistay/internal/reviews/validator"
	userhandler "unistay/internal/users/handler"
	userrepo "unistay/internal/users/repository"
	userservice "unistay/internal/users/service"
	uservalidator "unistay/internal/users/validator"
	"unistay/pkg/app"
	"unistay/pkg/auth"
	"unistay/pkg/authz"
	"unistay/pkg/config"
	"unistay/pkg/kafka"
	kafka_config "unistay/pkg/kafka/config"
	kafka_middleware "unistay/pkg/kafka/middleware"
	"unistay/pkg/sealer"
	"unistay/pkg/storage"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

const ServiceName = "unistay-api"

// AvatarUploadLimit is the body limit on the avatar upload route; multipart
// framing needs headroom over the image limit itself.
const AvatarUploadLimit = 64 << 10

const ReconcileTimeout = 5 * time.Minute

func main() {
	_ = godotenv.Load()

	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting UniStay API")

	audit := auditservice.NewAuditService(auditrepo.NewMongoAuditLogRepository(cfg), cfg.Log)

	properties := propertyrepo.NewMongoPropertyRepository(cfg)
	bookings := bookingrepo.NewMongoBookingRepository(cfg)

	publisher, closePublisher := initPublisher(cfg)

	userService, twoFactorService, avatarService := initUserServices(cfg, audit)
	propertyService := propertyservice.NewPropertyService(properties, propertyvalidator.NewPropertyValidator(cfg.Log), audit, cfg.Log)
	bookingService := bookingservice.NewBookingService(bookingservice.Dependencies{
		Repo:       bookings,
		Locks:      bookingrepo.NewBookingLockRepository(cfg),
		Properties: properties,
		Validator:  bookingvalidator.NewBookingValidator(cfg.Log),
		Machine:    lifecycle.NewMachine(),
		Gateway:    gateway.New(cfg),
		Verifier:   gateway.NewVerifier(cfg.PaymentKeySecret, cfg.IsProduction() || cfg.PaymentKeySecret != ""),
		Publisher:  publisher,
		Audit:      audit,
		Config:     cfg,
	})
	reviewService := reviewservice.NewReviewService(
		reviewrepo.NewMongoReviewRepository(cfg),
		bookings,
		properties,
		reviewvalidator.NewReviewValidator(cfg.Log),
		audit,
		cfg.Log,
	)
	messageService := messageservice.NewMessageService(
		messagerepo.NewMongoMessageRepository(cfg),
		messagerepo.NewMongoConversationRepository(cfg),
		properties,
		messagevalidator.NewMessageValidator(cfg.Log),
		cfg.Log,
	)
	notificationService := notificationservice.NewNotificationService(notificationrepo.NewMongoNotificationRepository(cfg), cfg.Log)

	reconciler := occupancy.NewReconciler(occupancyrepo.NewMongoOccupancyRepository(cfg), properties, cfg.Log)
	scheduler := cron.New()
	if _, err := reconciler.Schedule(scheduler, cfg.ReconcileSchedule, ReconcileTimeout); err != nil {
		cfg.Log.Fatal("Failed to schedule occupancy reconciler", "error", err)
	}
	scheduler.Start()
	cfg.Log.Info("Occupancy reconciler scheduled", "schedule", cfg.ReconcileSchedule)

	adminService := adminservice.NewAdminService(adminrepo.NewMongoStatsRepository(cfg), reconciler, audit, cfg.Log)

	sessions, err := auth.NewSessionVerifier(cfg.SessionJWTSecret, cfg.SessionIssuer)
	if err != nil {
		cfg.Log.Fatal("Failed to initialise session verifier", "error", err)
	}
	policy, err := authz.NewEnforcer()
	if err != nil {
		cfg.Log.Fatal("Failed to load route policy", "error", err)
	}

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(app.Security{
		Sessions: sessions,
		Users:    userService,
		Policy:   policy,
		Uploads:  map[string]int64{userhandler.AvatarPath: AvatarUploadLimit + int64(cfg.AvatarMaxBytes)},
	},
		userhandler.NewUserHandler(userService, twoFactorService, avatarService, cfg.Log),
		propertyhandler.NewPropertyHandler(propertyService, cfg.Log),
		bookinghandler.NewBookingHandler(bookingService, cfg.Log),
		paymenthandler.NewWebhookHandler(bookingService, cfg.PaymentWebhookSecret, cfg.Log),
		reviewhandler.NewReviewHandler(reviewService, cfg.Log),
		messagehandler.NewMessageHandler(messageService, cfg.Log),
		notificationhandler.NewNotificationHandler(notificationService, cfg.Log),
		audithandler.NewAuditLogHandler(audit, cfg.Log),
		adminhandler.NewAdminHandler(adminService, cfg.Log),
	)
	serverApp.OnShutdown(func() {
		<-scheduler.Stop().Done()
		cfg.Log.Info("Occupancy reconciler stopped")
	})
	serverApp.OnShutdown(closePublisher)
	serverApp.Run()
}

func initUserServices(cfg *config.Config, audit auditservice.Recorder) (userservice.UserService, userservice.TwoFactorService, userservice.AvatarService) {
	users := userrepo.NewMongoUserRepository(cfg)
	validator := uservalidator.NewUserValidator(cfg.Log)

	secrets, err := sealer.New(cfg.TwoFactorKey)
	if err != nil {
		cfg.Log.Fatal("Failed to initialise two-factor sealer", "error", err)
	}
	if cfg.TwoFactorKey == "" {
		cfg.Log.Warn("TWO_FACTOR_KEY not set, two-factor secrets are sealed with the development key")
	}

	uploader, err := storage.New(cfg)
	if err != nil {
		cfg.Log.Fatal("Failed to initialise avatar storage", "error", err)
	}

	userService := userservice.NewUserService(users, userrepo.NewMongoPromotionRepository(cfg), validator, audit, cfg.Log)
	twoFactorService := userservice.NewTwoFactorService(users, validator, secrets, cfg.TwoFactorIssuer, audit, cfg.Log)
	avatarService := userservice.NewAvatarService(users, uploader, cfg.AvatarFolder, cfg.AvatarMaxBytes, audit, cfg.Log)

	cfg.Log.Info("User services initialized", "database", cfg.MongoDatabaseName)
	return userService, twoFactorService, avatarService
}

// initPublisher returns the booking event publisher and its closer. Events
// are dropped when publishing is disabled.
func initPublisher(cfg *config.Config) (events.Publisher, func()) {
	if cfg.BookingEventsDisabled {
		cfg.Log.Warn("Booking events disabled, notifications will not be produced")
		return events.Nop{}, func() {}
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.Log, cfg.BookingEventsTopic, kafkaCfg.DLQTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
		producer.Use(kafka_middleware.MetricsProducerMiddleware())
	}

	return events.NewKafkaPublisher(producer), func() {
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close Kafka producer", "error", err)
		}
	}
}
