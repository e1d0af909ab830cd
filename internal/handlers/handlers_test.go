package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/transkin/billetterie/internal/models"
	"github.com/transkin/billetterie/internal/service"
	"github.com/transkin/billetterie/internal/service/mocks"
	"github.com/transkin/billetterie/internal/store"
)

func setupTestRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/operators", h.ListOperators).Methods(http.MethodGet)
	api.HandleFunc("/operators/{id}", h.GetOperator).Methods(http.MethodGet)
	api.HandleFunc("/operators/{id}/stats", h.GetOperatorStats).Methods(http.MethodGet)
	api.HandleFunc("/departures/search", h.SearchDepartures).Methods(http.MethodGet)
	api.HandleFunc("/departures/{id}", h.GetDeparture).Methods(http.MethodGet)
	api.HandleFunc("/tickets", h.SellTickets).Methods(http.MethodPost)
	api.HandleFunc("/tickets", h.ListClientTickets).Methods(http.MethodGet)
	api.HandleFunc("/tickets/{code}", h.GetTicket).Methods(http.MethodGet)
	api.HandleFunc("/tickets/{code}/validate", h.ControlTicket).Methods(http.MethodPost)
	api.HandleFunc("/tickets/{code}/cancel", h.CancelTicket).Methods(http.MethodPost)
	api.HandleFunc("/purchases", h.StartPurchase).Methods(http.MethodPost)
	api.HandleFunc("/purchases/{id}", h.GetPurchase).Methods(http.MethodGet)
	api.HandleFunc("/purchases/{id}/pay", h.PayPurchase).Methods(http.MethodPost)
	api.HandleFunc("/roles/{role}/landing", h.GetRoleLanding).Methods(http.MethodGet)
	return r
}

func newTestHandler(t *testing.T) (*Handler, *mocks.MockTicketingService) {
	t.Helper()
	mockService := new(mocks.MockTicketingService)
	return NewHandler(mockService, zap.NewNop()), mockService
}

func TestHandler_ListOperators(t *testing.T) {
	handler, mockService := newTestHandler(t)
	router := setupTestRouter(handler)

	expected := []models.Operator{
		{ID: "OP-TSC", Name: "TRANSCO"},
		{ID: "OP-TAE", Name: "Trans Académie Express"},
	}
	mockService.On("ListOperators", mock.Anything).Return(expected, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/operators", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response []models.Operator
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, expected, response)
	mockService.AssertExpectations(t)
}

func TestHandler_GetOperator_NotFound(t *testing.T) {
	handler, mockService := newTestHandler(t)
	router := setupTestRouter(handler)

	mockService.On("GetOperator", mock.Anything, "OP-NOPE").Return(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/operators/OP-NOPE", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_GetOperatorStats(t *testing.T) {
	handler, mockService := newTestHandler(t)
	router := setupTestRouter(handler)

	stats := &models.OperatorStats{
		OperatorID:        "OP-TSC",
		TicketsSoldToday:  42,
		RevenueToday:      84000,
		DeparturesEnCours: 2,
	}
	mockService.On("OperatorStats", mock.Anything, "OP-TSC").Return(stats, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/operators/OP-TSC/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response models.OperatorStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, 42, response.TicketsSoldToday)
	assert.Equal(t, int64(84000), response.RevenueToday)
}

func TestHandler_SearchDepartures(t *testing.T) {
	handler, mockService := newTestHandler(t)
	router := setupTestRouter(handler)

	departures := []models.Departure{
		{ID: "DEP-1", BusCode: "BUS-TSC-003", TotalSeats: 40, SoldSeats: 12},
	}
	mockService.On("FindDeparturesByBusCode", mock.Anything, "BUS-TSC-003").Return(departures, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/departures/search?busCode=BUS-TSC-003", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response []models.Departure
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Len(t, response, 1)
	assert.Equal(t, "BUS-TSC-003", response[0].BusCode)
}

func TestHandler_SearchDepartures_MissingBusCode(t *testing.T) {
	handler, _ := newTestHandler(t)
	router := setupTestRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/departures/search", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_SellTickets(t *testing.T) {
	handler, mockService := newTestHandler(t)
	router := setupTestRouter(handler)

	tickets := []models.Ticket{
		{Code: "TRA-00000001", DepartureID: "DEP-1", Status: models.TicketValide},
		{Code: "TRA-00000002", DepartureID: "DEP-1", Status: models.TicketValide},
	}
	mockService.On("SellTickets", mock.Anything, mock.MatchedBy(func(p store.CreateTicketParams) bool {
		return p.DepartureID == "DEP-1" && p.SeatCount == 2 && p.Channel == models.ChannelAgentPOS
	})).Return(tickets, nil)

	body, _ := json.Marshal(SellTicketsRequest{
		DepartureID: "DEP-1",
		ClientName:  "Didier Kasongo",
		ClientPhone: "+243811234567",
		SeatCount:   2,
		PaymentMode: models.PaymentCash,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/tickets", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var response []models.Ticket
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Len(t, response, 2)
	mockService.AssertExpectations(t)
}

func TestHandler_SellTickets_InsufficientSeats(t *testing.T) {
	handler, mockService := newTestHandler(t)
	router := setupTestRouter(handler)

	mockService.On("SellTickets", mock.Anything, mock.Anything).
		Return(nil, store.ErrInsufficientSeats)

	body, _ := json.Marshal(SellTicketsRequest{DepartureID: "DEP-1", SeatCount: 5})
	req := httptest.NewRequest(http.MethodPost, "/api/tickets", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandler_SellTickets_MissingDeparture(t *testing.T) {
	handler, _ := newTestHandler(t)
	router := setupTestRouter(handler)

	body, _ := json.Marshal(SellTicketsRequest{ClientName: "X"})
	req := httptest.NewRequest(http.MethodPost, "/api/tickets", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_ControlTicket(t *testing.T) {
	handler, mockService := newTestHandler(t)
	router := setupTestRouter(handler)

	result := models.ValidationResult{
		Outcome: models.ValidationOk,
		Ticket:  &models.Ticket{Code: "TRA-00000007", Status: models.TicketUtilise},
	}
	mockService.On("ValidateTicket", mock.Anything, "TRA-00000007").Return(result, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/tickets/TRA-00000007/validate", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response models.ValidationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, models.ValidationOk, response.Outcome)
	assert.True(t, response.Valid())
}

func TestHandler_ControlTicket_AlreadyUsed(t *testing.T) {
	handler, mockService := newTestHandler(t)
	router := setupTestRouter(handler)

	result := models.ValidationResult{Outcome: models.ValidationAlreadyUsed}
	mockService.On("ValidateTicket", mock.Anything, "TRA-00000007").Return(result, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/tickets/TRA-00000007/validate", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// A rejected scan is still a 200: the outcome travels in the body.
	assert.Equal(t, http.StatusOK, rec.Code)

	var response models.ValidationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.False(t, response.Valid())
}

func TestHandler_CancelTicket_Terminal(t *testing.T) {
	handler, mockService := newTestHandler(t)
	router := setupTestRouter(handler)

	mockService.On("CancelTicket", mock.Anything, "TRA-00000003").
		Return(nil, store.ErrTicketNotCancellable)

	req := httptest.NewRequest(http.MethodPost, "/api/tickets/TRA-00000003/cancel", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandler_GetTicket(t *testing.T) {
	handler, mockService := newTestHandler(t)
	router := setupTestRouter(handler)

	ticket := &models.Ticket{Code: "TRA-00000009", ClientName: "Mamie Ilunga"}
	mockService.On("FindTicketByCode", mock.Anything, "TRA-00000009").Return(ticket, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/tickets/TRA-00000009", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response models.Ticket
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "Mamie Ilunga", response.ClientName)
}

func TestHandler_StartPurchase(t *testing.T) {
	handler, mockService := newTestHandler(t)
	router := setupTestRouter(handler)

	purchase := &service.Purchase{
		ID: "ab12cd34",
		State: models.PurchaseWorkflowState{
			PurchaseID: "ab12cd34",
			Status:     models.PurchaseAwaitingPayment,
		},
	}
	mockService.On("StartPurchase", mock.Anything, mock.MatchedBy(func(r service.StartPurchaseRequest) bool {
		return r.DepartureID == "DEP-1" && r.SeatCount == 1
	})).Return(purchase, nil)

	body, _ := json.Marshal(service.StartPurchaseRequest{
		DepartureID: "DEP-1",
		ClientName:  "Grace Mbuyi",
		ClientPhone: "+243990001122",
		SeatCount:   1,
		PaymentMode: models.PaymentMobileMoney,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/purchases", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var response service.Purchase
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "ab12cd34", response.ID)
	assert.Equal(t, models.PurchaseAwaitingPayment, response.State.Status)
}

func TestHandler_PayPurchase_MissingReference(t *testing.T) {
	handler, _ := newTestHandler(t)
	router := setupTestRouter(handler)

	body, _ := json.Marshal(PayPurchaseRequest{Reference: "  "})
	req := httptest.NewRequest(http.MethodPost, "/api/purchases/ab12cd34/pay", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_GetPurchase_NotFound(t *testing.T) {
	handler, mockService := newTestHandler(t)
	router := setupTestRouter(handler)

	mockService.On("GetPurchase", mock.Anything, "missing").
		Return(nil, assert.AnError)

	req := httptest.NewRequest(http.MethodGet, "/api/purchases/missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_GetRoleLanding(t *testing.T) {
	handler, _ := newTestHandler(t)
	router := setupTestRouter(handler)

	tests := []struct {
		role       string
		wantStatus int
		wantRoute  string
	}{
		{"CLIENT", http.StatusOK, "/client?view=search"},
		{"AGENT", http.StatusOK, "/agent?view=dashboard"},
		{"ADMIN_OPERATEUR", http.StatusOK, "/admin?view=dashboard"},
		{"MINISTERE", http.StatusOK, "/ministere?view=dashboard"},
		{"SUPERADMIN", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/roles/"+tt.role+"/landing", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, tt.wantStatus, rec.Code, tt.role)
		if tt.wantStatus == http.StatusOK {
			var response map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
			assert.Equal(t, tt.wantRoute, response["landing"])
		}
	}
}

func TestHandler_ListClientTickets(t *testing.T) {
	handler, mockService := newTestHandler(t)
	router := setupTestRouter(handler)

	tickets := []models.Ticket{{Code: "TRA-00000010", ClientPhone: "+243811234567"}}
	mockService.On("ListTicketsByClient", mock.Anything, "+243811234567").Return(tickets, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/tickets?clientPhone=%2B243811234567", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response []models.Ticket
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Len(t, response, 1)
	assert.Equal(t, "TRA-00000010", response[0].Code)
}

func TestHandler_HealthCheck(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.HealthCheck(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response["status"])
}
