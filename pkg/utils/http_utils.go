package utils

import (
	"errors"
	"net/http"
	"strconv"
	"sync"

	"marketplace-delivery/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// RequestValidator wraps go-playground/validator so it can be plugged into
// echo as e.Validator and reused directly by handlers.
type RequestValidator struct {
	validate *validator.Validate
}

var (
	validatorOnce sync.Once
	validatorInst *RequestValidator
)

// GetValidator returns the process-wide request validator.
func GetValidator() *RequestValidator {
	validatorOnce.Do(func() {
		validatorInst = &RequestValidator{validate: validator.New()}
	})
	return validatorInst
}

// Validate implements echo.Validator.
func (v *RequestValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// RespondWithJSON writes a JSON response with the given status code.
func RespondWithJSON(c echo.Context, status int, payload interface{}) error {
	return c.JSON(status, payload)
}

// RespondWithError writes a JSON error body with the given status code.
func RespondWithError(c echo.Context, status int, message string) error {
	return c.JSON(status, models.ErrorResponse{Message: message})
}

// ExtractUserInfo pulls the authenticated user's id and role out of the echo
// context, where the JWT middleware put them.
func ExtractUserInfo(c echo.Context) (userID, role string, err error) {
	userID, _ = c.Get("userID").(string)
	role, _ = c.Get("userRole").(string)
	if userID == "" {
		return "", "", RespondWithError(c, http.StatusUnauthorized, "missing authentication")
	}
	return userID, role, nil
}

// ExtractUserEmail pulls the authenticated user's email out of the echo
// context, or empty when the token carried none.
func ExtractUserEmail(c echo.Context) string {
	email, _ := c.Get("userEmail").(string)
	return email
}

// GetPageLimit reads pagination query params with sane bounds.
func GetPageLimit(c echo.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

// HandleServiceError maps the core's sentinel errors onto HTTP status codes so
// clients can branch on the kind of failure.
func HandleServiceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return RespondWithError(c, http.StatusNotFound, "resource not found")
	case errors.Is(err, models.ErrInvalidTransition):
		return RespondWithError(c, http.StatusConflict, "illegal status transition")
	case errors.Is(err, models.ErrCollectionRequired):
		return RespondWithError(c, http.StatusPreconditionFailed, "collect cash before completing this delivery")
	case errors.Is(err, models.ErrRejectReasonRequired):
		return RespondWithError(c, http.StatusBadRequest, "a reason is required to reject an accepted delivery")
	case errors.Is(err, models.ErrDuplicateCollection):
		return RespondWithError(c, http.StatusConflict, "cash collection already recorded for this order")
	case errors.Is(err, models.ErrOversettlement):
		return RespondWithError(c, http.StatusConflict, "settlement exceeds outstanding balance")
	case errors.Is(err, models.ErrTimeout):
		return RespondWithError(c, http.StatusGatewayTimeout, "operation timed out, retry with the same idempotency key")
	case errors.Is(err, models.ErrPermissionDenied):
		return RespondWithError(c, http.StatusForbidden, "location permission denied")
	case errors.Is(err, models.ErrNotTracking):
		return RespondWithError(c, http.StatusNotFound, "partner is not being tracked")
	default:
		c.Logger().Errorf("internal error: %v", err)
		return RespondWithError(c, http.StatusInternalServerError, "internal server error")
	}
}
