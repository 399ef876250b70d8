package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quayside/bazaar/auth"
	"github.com/quayside/bazaar/broker"
	"github.com/quayside/bazaar/catalog"
	"github.com/quayside/bazaar/db"
	"github.com/quayside/bazaar/external"
	"github.com/quayside/bazaar/notification"
	"github.com/quayside/bazaar/plan"
	"github.com/quayside/bazaar/seller"
	"github.com/quayside/bazaar/subscription"

	"github.com/TheZeroSlave/zapsentry"
	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Build-time injected variables
var (
	Version = ""
)

func main() {
	var logger *zap.Logger
	var authEnvironment auth.Environment
	var dotFile string
	var err error

	expirationTaskCapable := flag.Bool("expiration", true, "task instance will also be responsible for expiring subscriptions")
	flag.Parse()

	// Determine running environment and initialize structural logger
	env := os.Getenv("ENV")
	if "production" == env {
		dotFile = ".env.production"
		authEnvironment = auth.EnvProduction
		logger, err = zap.NewProduction()
	} else {
		dotFile = ".env.development"
		authEnvironment = auth.EnvDevelopment
		logger, err = zap.NewDevelopment()
	}

	if err != nil {
		log.Fatalf("Cannot initialize logger: %v\n", err)
	}
	logger = logger.With(zap.String("Version", Version))

	// Initialize sentry for error reporting
	if err := sentry.Init(sentry.ClientOptions{
		Environment: string(authEnvironment),
		Debug:       authEnvironment == auth.EnvDevelopment,
	}); err != nil {
		log.Fatal("Cannot initialize sentry",
			zap.Error(err),
		)
	}
	defer sentry.Flush(time.Second * 2)

	// Attach sentry to zap so we can do automatic error capturing
	cfg := zapsentry.Configuration{
		Level: zapcore.ErrorLevel,
		Tags: map[string]string{
			"component": "task",
		},
	}
	core, err := zapsentry.NewCore(cfg, zapsentry.NewSentryClientFromClient(sentry.CurrentHub().Client()))
	logger = zapsentry.AttachCoreToLogger(core, logger)

	defer logger.Sync()

	// Load configurations from dotFile
	if err := godotenv.Load(dotFile); err != nil {
		logger.Fatal("Cannot load configurations from .env",
			zap.Error(err),
		)
	}

	stripeClient := external.NewStripeClient(os.Getenv("STRIPE_KEY"))

	// Initialize backend connections
	db, err := db.New(db.Options{
		URI:    os.Getenv("POSTGRES_URI"),
		Logger: logger,
	})
	if err != nil {
		logger.Fatal("Cannot connect to Postgres",
			zap.Error(err),
		)
	}

	amqpBroker, err := broker.NewAMQPBroker(os.Getenv("AMQP_URI"))
	if err != nil {
		logger.Fatal("Cannot connect to Broker",
			zap.Error(err),
		)
	}
	defer amqpBroker.Close()

	notifier, err := notification.NewSink(amqpBroker, logger)
	if err != nil {
		logger.Fatal("Cannot initialize notification sink",
			zap.Error(err),
		)
	}

	planManager, err := plan.NewManager(logger, db)
	if err != nil {
		logger.Fatal("Cannot initialize PlanManager",
			zap.Error(err),
		)
	}

	sellerManager, err := seller.NewManager(seller.ManagerOptions{
		StripeClient: stripeClient,
		DB:           db,
		Logger:       logger,
	})
	if err != nil {
		logger.Fatal("Cannot initialize SellerManager",
			zap.Error(err),
		)
	}

	catalogManager, err := catalog.NewManager(logger, db)
	if err != nil {
		logger.Fatal("Cannot initialize CatalogManager",
			zap.Error(err),
		)
	}

	notificationManager, err := notification.NewManager(logger, db)
	if err != nil {
		logger.Fatal("Cannot initialize NotificationManager",
			zap.Error(err),
		)
	}

	subscriptionManager, err := subscription.NewManager(subscription.ManagerOptions{
		StripeClient:   stripeClient,
		DB:             db,
		Logger:         logger,
		PlanManager:    planManager,
		SellerManager:  sellerManager,
		CatalogManager: catalogManager,
		Notifier:       notifier,
	})
	if err != nil {
		logger.Fatal("Cannot initialize SubscriptionManager",
			zap.Error(err),
		)
	}

	notificationTask, err := notification.NewTask(notification.TaskOptions{
		NotificationManager: notificationManager,
		Consumer:            amqpBroker,
		Logger:              logger,
	})
	if err != nil {
		logger.Fatal("Cannot get notification task",
			zap.Error(err),
		)
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())

	if err := notificationTask.HandleEvents(ctx); err != nil {
		logger.Fatal("Cannot handle notification events",
			zap.Error(err),
		)
	}

	if *expirationTaskCapable {
		expirationTask, err := subscription.NewTask(subscription.TaskOptions{
			SubscriptionManager: subscriptionManager,
			Logger:              logger,
		})
		if err != nil {
			logger.Fatal("Cannot get expiration task",
				zap.Error(err),
			)
		}
		if err := expirationTask.Start(ctx); err != nil {
			logger.Fatal("Cannot start expiration task",
				zap.Error(err),
			)
		}
		logger.Info("Task instance will expire due subscriptions")
	}

	logger.Info("Task runner started")

	<-c
	cancel()

}
