package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-licensing/internal/analytics"
	analytics_api "ms-licensing/internal/analytics/api"
	"ms-licensing/internal/auth"
	"ms-licensing/internal/cart"
	"ms-licensing/internal/cart/cart_api"
	cart_db "ms-licensing/internal/cart/db"
	"ms-licensing/internal/catalog"
	"ms-licensing/internal/catalog/catalog_api"
	catalog_db "ms-licensing/internal/catalog/db"
	"ms-licensing/internal/config"
	"ms-licensing/internal/database/migrations"
	"ms-licensing/internal/kafka"
	"ms-licensing/internal/licenses"
	"ms-licensing/internal/licenses/cert"
	license_db "ms-licensing/internal/licenses/db"
	"ms-licensing/internal/licenses/license_api"
	"ms-licensing/internal/logger"
	"ms-licensing/internal/order"
	order_db "ms-licensing/internal/order/db"
	"ms-licensing/internal/order/order_api"
	"ms-licensing/internal/payment"
	payment_db "ms-licensing/internal/payment/db"
	"ms-licensing/internal/payment/payment_api"
	"ms-licensing/internal/redislock"
	"ms-licensing/internal/support"
	support_db "ms-licensing/internal/support/db"
	"ms-licensing/internal/support/support_api"
)

func verifyConnections(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*bun.DB, *redis.Client) {
	if cfg.Database.DSN == "" {
		logger.Fatal("CONFIG", "POSTGRES_DSN not set")
	}

	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		logger.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			logger.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.Ping()
		if err == nil {
			break
		}

		logger.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}

	if err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	logger.Info("DATABASE", "✅ PostgreSQL connection successful")

	bunDB := bun.NewDB(sqldb, pgdialect.New())

	if cfg.Redis.Addr == "" {
		logger.Fatal("CONFIG", "REDIS_ADDR not set")
	}
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}

	logger.Info("DATABASE", fmt.Sprintf("✅ Redis connection successful to %s", cfg.Redis.Addr))
	return bunDB, redisClient
}

func main() {
	logger := logger.NewLogger()
	defer logger.Close()

	logger.Info("APP", "Starting Licensing Service initialization")

	if err := godotenv.Load(); err != nil {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		logger.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	ctx := context.Background()

	logger.Info("APP", "Verifying database connections")
	bunDB, redisClient := verifyConnections(ctx, cfg, logger)
	defer bunDB.Close()
	defer redisClient.Close()

	if cfg.Database.AutoMigrate {
		runner := migrations.NewRunner(bunDB, migrations.Options{
			MigrationsDir: cfg.Database.MigrationsDir,
			SeedData:      false,
		})
		if err := runner.Up(); err != nil {
			logger.Fatal("DATABASE", fmt.Sprintf("Migration failed: %v", err))
		}
		logger.Info("DATABASE", "Schema migrations applied")
	}

	logger.Info("KAFKA", fmt.Sprintf("Using Kafka brokers: %v", cfg.Kafka.Brokers))
	kafkaProducer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer kafkaProducer.Close()
	logger.Info("KAFKA", "Kafka producer initialized successfully")

	if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, kafka.AllTopics()); err != nil {
		logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
	} else {
		logger.Info("KAFKA", "Required topics ensured successfully")
	}

	payment.InitStripe(cfg.Gateway.StripeKey)

	locks := redislock.New(redisClient)

	catalogService := catalog.NewCatalogService(&catalog_db.DB{Bun: bunDB}, locks, kafkaProducer, logger)

	certGen := cert.NewGenerator(os.Getenv("CERT_SECRET_KEY"))
	licenseService := licenses.NewLicenseService(&license_db.DB{Bun: bunDB}, certGen, kafkaProducer, logger)

	orderService := order.NewOrderService(&order_db.DB{Bun: bunDB}, locks, kafkaProducer, licenseService, logger)

	paymentDB := &payment_db.DB{Bun: bunDB}
	gateway := payment.NewStripeGateway(paymentDB, logger)

	pricer := cart.NewPricer(cfg.Pricing.VATRate)
	cartService := cart.NewCartService(
		&cart_db.DB{Bun: bunDB},
		catalogService,
		orderService,
		gateway,
		licenseService,
		kafkaProducer,
		pricer,
		logger,
		cfg.Pricing.Currency,
		cfg.Gateway.ChargeTimeout,
	)

	supportService := support.NewSupportService(&support_db.DB{Bun: bunDB}, kafkaProducer, logger)
	analyticsService := analytics.NewService(bunDB)

	catalogHandler := catalog_api.NewHandler(catalogService, logger)
	orderHandler := order_api.NewHandler(orderService, logger)
	cartHandler := cart_api.NewHandler(cartService, logger)
	licenseHandler := license_api.NewHandler(licenseService, logger)
	supportHandler := support_api.NewHandler(supportService, logger)
	analyticsHandler := analytics_api.NewHandler(analyticsService, logger)
	paymentHandler := payment_api.NewHandler(paymentDB, logger)

	logger.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()

	// --- Public Routes ---
	r.Get("/api/music", catalogHandler.Search)
	r.Get("/api/music/{musicId}", catalogHandler.GetMusic)
	r.Post("/api/music/{musicId}/play", catalogHandler.Play)
	r.Get("/api/licenses/count", licenseHandler.Count)
	r.Post("/api/licenses/verify", licenseHandler.VerifyCertificate)
	logger.Info("ROUTER", "Public catalog and license count endpoints registered")

	// --- Protected Routes ---
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware())
		logger.Info("AUTH", "OIDC middleware applied to protected API routes")

		r.Get("/api/cart/items", cartHandler.ListItems)
		r.Post("/api/cart/items", cartHandler.AddItem)
		r.Delete("/api/cart/items/{itemId}", cartHandler.RemoveItem)
		r.Get("/api/cart/quote", cartHandler.Quote)
		r.Post("/api/cart/checkout", cartHandler.Checkout)
		logger.Info("ROUTER", "Cart routes registered under /api/cart")

		r.Get("/api/invoices", cartHandler.ListInvoices)
		r.Get("/api/invoices/{invoiceId}", cartHandler.GetInvoice)
		r.Post("/api/invoices/{invoiceId}/retry", cartHandler.RetryInvoice)

		r.Post("/api/orders", orderHandler.PlaceOrder)
		r.Get("/api/orders/mine", orderHandler.ListMine)
		r.Get("/api/orders/{orderId}", orderHandler.GetOrder)
		r.Post("/api/orders/{orderId}/accept-offer", orderHandler.AcceptOffer)
		r.Post("/api/orders/{orderId}/revision", orderHandler.RequestRevision)
		r.Post("/api/orders/{orderId}/cancel", orderHandler.Cancel)
		r.Post("/api/orders/{orderId}/dispute", orderHandler.OpenDispute)
		logger.Info("ROUTER", "Order routes registered under /api/orders")

		r.Get("/api/licenses", licenseHandler.ListMine)
		r.Get("/api/licenses/{licenseId}", licenseHandler.GetLicense)
		r.Get("/api/licenses/{licenseId}/certificate", licenseHandler.Certificate)

		r.Post("/api/support", supportHandler.CreateTicket)
		r.Get("/api/support/mine", supportHandler.ListMine)
		r.Get("/api/support/{ticketId}", supportHandler.GetTicket)
		r.Post("/api/support/{ticketId}/messages", supportHandler.PostMessage)
		logger.Info("ROUTER", "License and support routes registered")

		// --- Director Routes ---
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(auth.RoleDirector, auth.RoleAdmin))

			r.Post("/api/music", catalogHandler.CreateMusic)
			r.Put("/api/music/{musicId}", catalogHandler.UpdateMusic)
			r.Get("/api/music/mine", catalogHandler.ListMine)

			r.Get("/api/orders/open", orderHandler.ListOpen)
			r.Post("/api/orders/{orderId}/offer", orderHandler.SubmitOffer)
			r.Post("/api/orders/{orderId}/resume", orderHandler.ResumeWork)
			r.Post("/api/orders/{orderId}/ready", orderHandler.MarkReadyForPayment)

			r.Get("/api/analytics/summary", analyticsHandler.DirectorSummary)
			r.Get("/api/analytics/top-music", analyticsHandler.TopMusic)
			r.Get("/api/analytics/orders", analyticsHandler.DirectorOrderCounts)
			logger.Info("ROUTER", "Director routes registered")
		})

		// --- Admin Routes ---
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(auth.RoleAdmin))

			r.Route("/api/admin", func(r chi.Router) {
				r.Get("/music/pending", catalogHandler.ListPendingReview)
				r.Post("/music/{musicId}/approve", catalogHandler.Approve)
				r.Post("/music/{musicId}/reject", catalogHandler.Reject)
				r.Post("/music/{musicId}/flag", catalogHandler.Flag)
				r.Post("/music/{musicId}/unflag", catalogHandler.Unflag)

				r.Get("/orders/disputed", orderHandler.ListDisputed)
				r.Post("/orders/{orderId}/resolve", orderHandler.ResolveDispute)
				r.Post("/orders/{orderId}/complete-issuance", orderHandler.CompleteIssuance)

				r.Get("/music/{musicId}/licenses", licenseHandler.ListByMusic)
				r.Post("/licenses/{licenseId}/revoke", licenseHandler.Revoke)

				r.Get("/tickets", supportHandler.ListByStatus)
				r.Put("/tickets/{ticketId}/status", supportHandler.SetStatus)

				r.Get("/invoices/{invoiceId}/payments", paymentHandler.ListForInvoice)
				r.Get("/payments/{paymentId}", paymentHandler.GetPayment)

				r.Get("/analytics/platform", analyticsHandler.PlatformSummary)
			})
			logger.Info("ROUTER", "Admin routes registered under /api/admin")
		})
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("HTTP", fmt.Sprintf("🚀 Licensing Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	logger.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		logger.Info("HTTP", "✅ Licensing Service shutdown complete")
	}
}
