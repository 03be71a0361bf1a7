package api

import (
	"net/http"

	"marketplace-delivery/internal/api/middleware"
	"marketplace-delivery/internal/modules/delivery"
	"marketplace-delivery/internal/modules/earnings"
	"marketplace-delivery/internal/modules/ledger"
	"marketplace-delivery/internal/modules/tracking"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes sets up all the API endpoints for the application.
func SetupRoutes(
	e *echo.Echo,
	jwtSecret string,
	deliveryHandler *delivery.Handler,
	ledgerHandler *ledger.Handler,
	trackingHandler *tracking.Handler,
	earningsHandler *earnings.Handler,
) {
	// Initialize the JWT authentication middleware
	authMiddleware := middleware.JWTAuth(jwtSecret)
	// Initialize an Admin role authorization middleware
	adminRequired := middleware.AdminRequired()

	// --- Public Routes ---
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"message": "Delivery and settlement core is up"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// --- Delivery Routes ---
	deliveryGroup := e.Group("/deliveries", authMiddleware)
	{
		deliveryGroup.POST("", deliveryHandler.CreateDelivery, adminRequired)
		deliveryGroup.GET("/:deliveryId", deliveryHandler.GetDelivery)
		deliveryGroup.POST("/:deliveryId/transition", deliveryHandler.RequestTransition)
		deliveryGroup.POST("/:deliveryId/reject", deliveryHandler.Reject)
	}

	// --- Partner (self-service) Routes ---
	partnerGroup := e.Group("/partners/me", authMiddleware)
	{
		partnerGroup.GET("/deliveries", deliveryHandler.ListMyDeliveries)
		partnerGroup.GET("/earnings", earningsHandler.GetMySummary)
		partnerGroup.GET("/cod/summary", ledgerHandler.GetSummary)
		partnerGroup.GET("/cod/collections", ledgerHandler.ListCollections)
		partnerGroup.POST("/tracking/start", trackingHandler.StartTracking)
		partnerGroup.POST("/tracking/stop", trackingHandler.StopTracking)
		partnerGroup.POST("/location", trackingHandler.ReportLocation)
	}

	// --- COD Ledger Routes ---
	codGroup := e.Group("/cod", authMiddleware)
	{
		codGroup.POST("/collections", ledgerHandler.RecordCollection)
		codGroup.POST("/settlements", ledgerHandler.RecordSettlement)
	}

	// --- Location Read Routes ---
	e.GET("/partners/:partnerId/location", trackingHandler.GetLatestLocation, authMiddleware)
	e.GET("/partners/:partnerId/eta", trackingHandler.EstimateETA, authMiddleware)
	e.GET("/ws/partners/:partnerId/location", trackingHandler.StreamLocation, authMiddleware)
}
