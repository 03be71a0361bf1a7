package ledger

import (
	"net/http"

	"marketplace-delivery/internal/models"
	"marketplace-delivery/pkg/utils"

	"github.com/labstack/echo/v4"
)

// Handler handles HTTP requests for the COD ledger.
type Handler struct {
	svc ServiceInterface
}

// NewHandler creates a new ledger handler.
func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{svc: svc}
}

// RecordCollection handles POST /cod/collections. The authenticated partner
// is the collector.
func (h *Handler) RecordCollection(c echo.Context) error {
	partnerID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}

	var req models.RecordCollectionRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	ev, err := h.svc.RecordCollection(c.Request().Context(), partnerID, req)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusCreated, ev)
}

// RecordSettlement handles POST /cod/settlements.
func (h *Handler) RecordSettlement(c echo.Context) error {
	partnerID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}
	partnerEmail := utils.ExtractUserEmail(c)

	var req models.RecordSettlementRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	ev, err := h.svc.RecordSettlement(c.Request().Context(), partnerID, partnerEmail, req)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusCreated, ev)
}

// GetSummary handles GET /partners/me/cod/summary.
func (h *Handler) GetSummary(c echo.Context) error {
	partnerID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}

	var r models.DateRange
	if err := c.Bind(&r); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid date range")
	}

	summary, err := h.svc.Summary(c.Request().Context(), partnerID, r)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}

	balance, err := h.svc.OutstandingBalance(c.Request().Context(), partnerID)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, map[string]interface{}{
		"summary":             summary,
		"outstanding_balance": balance,
	})
}

// ListCollections handles GET /partners/me/cod/collections.
func (h *Handler) ListCollections(c echo.Context) error {
	partnerID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}

	var r models.DateRange
	if err := c.Bind(&r); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid date range")
	}

	events, err := h.svc.ListCollections(c.Request().Context(), partnerID, r)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, events)
}
