package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"net/smtp"
	"os"
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
	"github.com/go-chi/chi"
	"github.com/go-chi/cors"
	"github.com/go-redis/redis/v7"
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

	// Determine running environment and initialize structural logger
	env := os.Getenv("API_ENV")
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
			"component": "api",
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

	rdb := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{os.Getenv("REDIS_URI")},
		Password: os.Getenv("REDIS_PW"),
		DB:       0,
	})
	if _, err := rdb.Ping().Result(); err != nil {
		logger.Fatal("Cannot connect to Redis",
			zap.Error(err),
		)
	}
	defer rdb.Close()

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

	smtpAuth := smtp.PlainAuth("", os.Getenv("SMTP_USERNAME"), os.Getenv("SMTP_PASSWORD"), os.Getenv("SMTP_HOST"))

	authManager, err := auth.New(auth.Options{
		Redis:  rdb,
		Logger: logger,

		JWTSigningKey: os.Getenv("JWT_SIGNING_KEY"),

		Environment: authEnvironment,
		SMTPAuth:    smtpAuth,
		From:        os.Getenv("SMTP_FROM"),
		Hostname:    os.Getenv("SMTP_HOST") + ":" + os.Getenv("SMTP_PORT"),
		EmailOption: auth.EmailOption{
			Name: os.Getenv("SITE_NAME"),
			LinkGenerator: func(uid, token string) string {
				return fmt.Sprintf("%s/seller/%s/%s", os.Getenv("SITE_URL"), uid, token)
			},
		},
	})
	if err != nil {
		logger.Fatal("Cannot initialize AuthManager",
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

	// Keep every seller's basic fallback in sync with the free plan
	bootCtx, bootCancel := context.WithTimeout(context.Background(), time.Second*30)
	defer bootCancel()
	if freePlan, err := planManager.FreePlan(bootCtx); err != nil {
		logger.Fatal("Cannot look up free plan",
			zap.Error(err),
		)
	} else if freePlan != nil {
		if err := sellerManager.RefreshBasicConditions(bootCtx, freePlan.Conditions); err != nil {
			logger.Fatal("Cannot refresh basic conditions",
				zap.Error(err),
			)
		}
	}

	planRouter, err := plan.NewService(plan.ServiceOptions{
		Auth:        authManager,
		PlanManager: planManager,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatal("Cannot initialize Plan Service Router",
			zap.Error(err),
		)
	}

	sellerRouter, err := seller.NewService(seller.ServiceOptions{
		Auth:          authManager,
		SellerManager: sellerManager,
		PlanManager:   planManager,
		Logger:        logger,
	})
	if err != nil {
		logger.Fatal("Cannot initialize Seller Service Router",
			zap.Error(err),
		)
	}

	catalogRouter, err := catalog.NewService(catalog.ServiceOptions{
		Auth:           authManager,
		SellerManager:  sellerManager,
		CatalogManager: catalogManager,
		Logger:         logger,
	})
	if err != nil {
		logger.Fatal("Cannot initialize Catalog Service Router",
			zap.Error(err),
		)
	}

	subscriptionRouter, err := subscription.NewService(subscription.ServiceOptions{
		Auth:                authManager,
		SubscriptionManager: subscriptionManager,
		Logger:              logger,
	})
	if err != nil {
		logger.Fatal("Cannot initialize Subscription Service Router",
			zap.Error(err),
		)
	}

	notificationRouter, err := notification.NewService(notification.ServiceOptions{
		Auth:                authManager,
		NotificationManager: notificationManager,
		Logger:              logger,
	})
	if err != nil {
		logger.Fatal("Cannot initialize Notification Service Router",
			zap.Error(err),
		)
	}

	rootRouter := chi.NewRouter()

	rootRouter.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{os.Getenv("SITE_URL")},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	rootRouter.Mount("/packages", planRouter.Router())
	rootRouter.Mount("/sellers", sellerRouter.Router())
	rootRouter.Mount("/catalogs", catalogRouter.Router())
	rootRouter.Mount("/subscriptions", subscriptionRouter.Router())
	rootRouter.Mount("/notifications", notificationRouter.Router())

	rootRouter.HandleFunc("/pprof/*", pprof.Index)
	rootRouter.HandleFunc("/pprof/cmdline", pprof.Cmdline)
	rootRouter.HandleFunc("/pprof/profile", pprof.Profile)
	rootRouter.HandleFunc("/pprof/symbol", pprof.Symbol)
	rootRouter.HandleFunc("/pprof/trace", pprof.Trace)

	addr := os.Getenv("API_ADDR")
	if addr == "" {
		addr = ":42069"
	}

	srv := &http.Server{
		Handler: rootRouter,
		Addr:    addr,
	}

	logger.Info("API started",
		zap.String("Addr", addr),
	)

	log.Fatalln(srv.ListenAndServe())
}
