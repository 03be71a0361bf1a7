package delivery

import (
	"net/http"

	"marketplace-delivery/internal/models"
	"marketplace-delivery/pkg/utils"

	"github.com/labstack/echo/v4"
)

// Handler handles HTTP requests for deliveries.
type Handler struct {
	svc ServiceInterface
}

// NewHandler creates a new delivery handler.
func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{svc: svc}
}

// CreateDelivery handles POST /deliveries (dispatch collaborator / admin).
func (h *Handler) CreateDelivery(c echo.Context) error {
	var req models.CreateDeliveryRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	d, err := h.svc.CreateDelivery(c.Request().Context(), req)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusCreated, d)
}

// GetDelivery handles GET /deliveries/:deliveryId.
func (h *Handler) GetDelivery(c echo.Context) error {
	d, err := h.svc.GetDelivery(c.Request().Context(), c.Param("deliveryId"))
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, d)
}

// ListMyDeliveries handles GET /partners/me/deliveries.
func (h *Handler) ListMyDeliveries(c echo.Context) error {
	partnerID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}

	page, limit := utils.GetPageLimit(c)
	deliveries, total, err := h.svc.ListPartnerDeliveries(c.Request().Context(), partnerID, page, limit)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, map[string]interface{}{"deliveries": deliveries, "total": total})
}

// RequestTransition handles POST /deliveries/:deliveryId/transition.
// An InvalidTransition answer indicates a client bug and is logged server
// side; CollectionRequired is an actionable prompt for the partner app.
func (h *Handler) RequestTransition(c echo.Context) error {
	var req models.TransitionRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	resp, err := h.svc.RequestTransition(c.Request().Context(), c.Param("deliveryId"), req)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, resp)
}

// Reject handles POST /deliveries/:deliveryId/reject.
func (h *Handler) Reject(c echo.Context) error {
	var req models.RejectRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	resp, err := h.svc.Reject(c.Request().Context(), c.Param("deliveryId"), req)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, resp)
}
