package earnings

import (
	"net/http"

	"marketplace-delivery/internal/models"
	"marketplace-delivery/pkg/utils"

	"github.com/labstack/echo/v4"
)

// Handler handles HTTP requests for partner earnings.
type Handler struct {
	svc ServiceInterface
}

// NewHandler creates a new earnings handler.
func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{svc: svc}
}

// GetMySummary handles GET /partners/me/earnings.
func (h *Handler) GetMySummary(c echo.Context) error {
	partnerID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}

	var r models.DateRange
	if err := c.Bind(&r); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid date range")
	}

	summary, err := h.svc.Summarize(c.Request().Context(), partnerID, r)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, summary)
}
