package delivery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"marketplace-delivery/internal/models"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubService struct {
	listErr error
}

func (s *stubService) CreateDelivery(_ context.Context, _ models.CreateDeliveryRequest) (*models.Delivery, error) {
	return nil, nil
}

func (s *stubService) GetDelivery(_ context.Context, _ string) (*models.Delivery, error) {
	return nil, nil
}

func (s *stubService) ListPartnerDeliveries(_ context.Context, _ string, _, _ int) ([]*models.Delivery, int, error) {
	if s.listErr != nil {
		return nil, 0, s.listErr
	}
	return nil, 0, nil
}

func (s *stubService) RequestTransition(_ context.Context, _ string, _ models.TransitionRequest) (*models.TransitionResponse, error) {
	return nil, nil
}

func (s *stubService) Reject(_ context.Context, _ string, _ models.RejectRequest) (*models.TransitionResponse, error) {
	return nil, nil
}

func listDeliveriesContext(t *testing.T, svc ServiceInterface) (echo.Context, *httptest.ResponseRecorder, *Handler) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/partners/me/deliveries", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("userID", "partner-1")
	c.Set("userRole", "partner")
	return c, rec, NewHandler(svc)
}

func TestListMyDeliveriesMapsServiceErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"timeout", models.ErrTimeout, http.StatusGatewayTimeout},
		{"not found", models.ErrNotFound, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec, h := listDeliveriesContext(t, &stubService{listErr: tc.err})
			require.NoError(t, h.ListMyDeliveries(c))
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestListMyDeliveriesOK(t *testing.T) {
	c, rec, h := listDeliveriesContext(t, &stubService{})
	require.NoError(t, h.ListMyDeliveries(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}
