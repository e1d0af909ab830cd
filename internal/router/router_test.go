package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/transkin/billetterie/internal/handlers"
	"github.com/transkin/billetterie/internal/models"
	"github.com/transkin/billetterie/internal/roleguard"
	"github.com/transkin/billetterie/internal/service/mocks"
	"github.com/transkin/billetterie/internal/websocket"
)

func newTestServer(t *testing.T) (http.Handler, *mocks.MockTicketingService) {
	t.Helper()
	mockService := new(mocks.MockTicketingService)
	logger := zap.NewNop()
	h := handlers.NewHandler(mockService, logger)
	hub := websocket.NewHub(logger)
	return SetupRouter(h, hub, logger), mockService
}

func TestRouter_ReadsOpenWithoutRole(t *testing.T) {
	router, mockService := newTestServer(t)
	mockService.On("ListOperators", mock.Anything).Return([]models.Operator{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/operators", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_MutationWithoutRoleRedirectsToLogin(t *testing.T) {
	router, _ := newTestServer(t)

	body, _ := json.Marshal(handlers.SellTicketsRequest{DepartureID: "DEP-1"})
	req := httptest.NewRequest(http.MethodPost, "/api/tickets", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var response map[string]string
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, roleguard.LoginRoute, response["login"])
}

func TestRouter_ClientCannotSellAtCounter(t *testing.T) {
	router, _ := newTestServer(t)

	body, _ := json.Marshal(handlers.SellTicketsRequest{DepartureID: "DEP-1"})
	req := httptest.NewRequest(http.MethodPost, "/api/tickets", bytes.NewReader(body))
	req.Header.Set(roleguard.RoleHeader, string(roleguard.RoleClient))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRouter_AgentSellsAtCounter(t *testing.T) {
	router, mockService := newTestServer(t)
	mockService.On("SellTickets", mock.Anything, mock.Anything).
		Return([]models.Ticket{{Code: "TRA-00000001"}}, nil)

	body, _ := json.Marshal(handlers.SellTicketsRequest{DepartureID: "DEP-1", SeatCount: 1})
	req := httptest.NewRequest(http.MethodPost, "/api/tickets", bytes.NewReader(body))
	req.Header.Set(roleguard.RoleHeader, string(roleguard.RoleAgent))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestRouter_Health(t *testing.T) {
	router, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_CORSPreflight(t *testing.T) {
	router, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/operators", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
