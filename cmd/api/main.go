package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace-delivery/internal/api"
	"marketplace-delivery/internal/config"
	"marketplace-delivery/internal/metrics"
	"marketplace-delivery/internal/modules/delivery"
	"marketplace-delivery/internal/modules/earnings"
	"marketplace-delivery/internal/modules/ledger"
	"marketplace-delivery/internal/modules/orders"
	"marketplace-delivery/internal/modules/tracking"
	"marketplace-delivery/pkg/notify"
	"marketplace-delivery/pkg/utils"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	// 1. --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	e := echo.New()
	e.Validator = utils.GetValidator()

	// 2. --- Middleware ---
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: []string{cfg.ClientOrigin},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	metrics.Register()

	// 3. --- Database Connection ---
	dbConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to parse database configuration: %v", err)
	}

	dbPool, err := pgxpool.NewWithConfig(context.Background(), dbConfig)
	if err != nil {
		log.Fatalf("Unable to create connection pool: %v\n", err)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(context.Background()); err != nil {
		log.Fatalf("Unable to ping database: %v\n", err)
	}
	e.Logger.Info("Successfully connected to the database!")

	// 4. --- Dependency Injection (Wiring everything up) ---
	// --- Notifications ---
	templates, err := notify.NewTemplateManager()
	if err != nil {
		log.Fatalf("Failed to parse notification templates: %v", err)
	}
	var receiptNotifier ledger.ReceiptNotifierInterface
	if cfg.SESFromEmail != "" {
		sender, err := notify.NewSESV2Sender(context.Background(), cfg.AWSRegion, cfg.SESFromEmail)
		if err != nil {
			log.Fatalf("Failed to initialize SES sender: %v", err)
		}
		receiptNotifier = notify.NewReceiptService(sender, templates)
	}

	// --- Orders View (external order/payment service data) ---
	orderRepo := orders.NewRepository(dbPool)

	// --- Ledger Module ---
	deliveryRepo := delivery.NewRepository(dbPool)
	ledgerRepo := ledger.NewRepository(dbPool)
	ledgerService := ledger.NewService(ledgerRepo, receiptNotifier, nil, cfg.OperationTimeout)
	ledgerHandler := ledger.NewHandler(ledgerService)

	// --- Earnings Module (read side over deliveries + ledger) ---
	earningsService := earnings.NewService(deliveryRepo, ledgerService)
	earningsHandler := earnings.NewHandler(earningsService)
	ledgerService.SetEarningsInvalidator(earningsService)

	// --- Tracking Module ---
	capability := tracking.NewClientReportedCapability()
	sessionRepo := tracking.NewSessionRepository(dbPool)
	var routingClient tracking.RoutingClientInterface
	if cfg.RoutingAPIKey != "" {
		routingClient = tracking.NewDirectionsClient(cfg.RoutingAPIKey)
	}
	trackingService := tracking.NewService(sessionRepo, capability, routingClient,
		cfg.FallbackSpeedKmph, cfg.TrackingMinInterval, cfg.TrackingMinDistanceM)
	trackingHandler := tracking.NewHandler(trackingService, capability)

	// --- Delivery Module ---
	deliveryService := delivery.NewService(deliveryRepo, orderRepo, ledgerService,
		earningsService, trackingService, cfg.OperationTimeout)
	deliveryHandler := delivery.NewHandler(deliveryService)

	// 5. --- Initialize Router ---
	api.SetupRoutes(e, cfg.JWTSecret,
		deliveryHandler,
		ledgerHandler,
		trackingHandler,
		earningsHandler,
	)

	// 6. --- Start Server with graceful shutdown logic ---
	go func() {
		if err := e.Start(":" + cfg.ServerPort); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server an error occurred:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Fatal("Server forced to shutdown:", err)
	}
	log.Println("Server exiting")
}
