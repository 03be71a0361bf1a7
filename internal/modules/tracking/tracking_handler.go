package tracking

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"marketplace-delivery/internal/models"
	"marketplace-delivery/pkg/utils"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// Handler exposes HTTP endpoints for partner location tracking.
type Handler struct {
	svc        ServiceInterface
	capability *ClientReportedCapability
}

// NewHandler creates a new tracking handler.
func NewHandler(svc ServiceInterface, capability *ClientReportedCapability) *Handler {
	return &Handler{svc: svc, capability: capability}
}

// StartTrackingRequest carries the device-reported permission state.
type StartTrackingRequest struct {
	PermissionGranted bool `json:"permission_granted"`
}

// StartTracking handles POST /partners/me/tracking/start.
func (h *Handler) StartTracking(c echo.Context) error {
	partnerID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}

	var req StartTrackingRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "invalid request body")
	}
	h.capability.SetGranted(partnerID, req.PermissionGranted)

	if err := h.svc.Start(c.Request().Context(), partnerID); err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// StopTracking handles POST /partners/me/tracking/stop.
func (h *Handler) StopTracking(c echo.Context) error {
	partnerID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}
	if err := h.svc.Stop(c.Request().Context(), partnerID); err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ReportLocation handles POST /partners/me/location.
func (h *Handler) ReportLocation(c echo.Context) error {
	partnerID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}

	var req models.LocationReportRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	if err := h.svc.Report(c.Request().Context(), partnerID, req); err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.NoContent(http.StatusAccepted)
}

// GetLatestLocation handles GET /partners/:partnerId/location.
func (h *Handler) GetLatestLocation(c echo.Context) error {
	sample, err := h.svc.Sample(c.Request().Context(), c.Param("partnerId"))
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, sample)
}

// EstimateETA handles GET /partners/:partnerId/eta?dest_lat=..&dest_lng=..
func (h *Handler) EstimateETA(c echo.Context) error {
	destLat, err := strconv.ParseFloat(c.QueryParam("dest_lat"), 64)
	if err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "invalid dest_lat")
	}
	destLng, err := strconv.ParseFloat(c.QueryParam("dest_lng"), 64)
	if err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "invalid dest_lng")
	}

	est, err := h.svc.EstimateETA(c.Request().Context(), c.Param("partnerId"), destLat, destLng)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, est)
}

// upgrader is used to upgrade HTTP connections to WebSocket connections.
var upgrader = websocket.Upgrader{}

// StreamLocation upgrades GET /ws/partners/:partnerId/location to a WebSocket
// and pushes the latest sample at a steady cadence until the client leaves.
func (h *Handler) StreamLocation(c echo.Context) error {
	partnerID := c.Param("partnerId")

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			sample, err := h.svc.Sample(ctx, partnerID)
			if err != nil {
				if errors.Is(err, models.ErrNotTracking) {
					continue // partner may come online later
				}
				return nil
			}
			if err := conn.WriteJSON(sample); err != nil {
				return nil // client went away
			}
		}
	}
}
