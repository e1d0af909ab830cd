package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/transkin/billetterie/internal/models"
	"github.com/transkin/billetterie/internal/roleguard"
	"github.com/transkin/billetterie/internal/service"
	"github.com/transkin/billetterie/internal/store"
)

// Handler contains HTTP handlers for the API
type Handler struct {
	ticketing service.TicketingService
	logger    *zap.Logger
}

// NewHandler creates a new Handler instance
func NewHandler(ticketing service.TicketingService, logger *zap.Logger) *Handler {
	return &Handler{
		ticketing: ticketing,
		logger:    logger,
	}
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// storeErrorStatus maps domain errors to HTTP statuses.
func storeErrorStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrDepartureNotFound),
		errors.Is(err, store.ErrTicketNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInsufficientSeats),
		errors.Is(err, store.ErrDepartureNotSellable),
		errors.Is(err, store.ErrTicketNotCancellable):
		return http.StatusConflict
	case errors.Is(err, store.ErrInvalidSeatCount),
		errors.Is(err, store.ErrMissingClientInfo):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ListOperators handles GET /api/operators
func (h *Handler) ListOperators(w http.ResponseWriter, r *http.Request) {
	operators, err := h.ticketing.ListOperators(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, operators)
}

// GetOperator handles GET /api/operators/{id}
func (h *Handler) GetOperator(w http.ResponseWriter, r *http.Request) {
	operatorID := mux.Vars(r)["id"]
	operator, err := h.ticketing.GetOperator(r.Context(), operatorID)
	if err != nil {
		respondError(w, storeErrorStatus(err), err.Error())
		return
	}
	if operator == nil {
		respondError(w, http.StatusNotFound, "Operator not found")
		return
	}
	respondJSON(w, http.StatusOK, operator)
}

// ListOperatorLines handles GET /api/operators/{id}/lines
func (h *Handler) ListOperatorLines(w http.ResponseWriter, r *http.Request) {
	operatorID := mux.Vars(r)["id"]
	lines, err := h.ticketing.ListLinesByOperator(r.Context(), operatorID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, lines)
}

// ListOperatorDepartures handles GET /api/operators/{id}/departures
func (h *Handler) ListOperatorDepartures(w http.ResponseWriter, r *http.Request) {
	operatorID := mux.Vars(r)["id"]
	departures, err := h.ticketing.ListDeparturesByOperator(r.Context(), operatorID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, departures)
}

// ListOperatorTickets handles GET /api/operators/{id}/tickets
func (h *Handler) ListOperatorTickets(w http.ResponseWriter, r *http.Request) {
	operatorID := mux.Vars(r)["id"]
	tickets, err := h.ticketing.ListTicketsByOperator(r.Context(), operatorID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, tickets)
}

// GetOperatorStats handles GET /api/operators/{id}/stats
func (h *Handler) GetOperatorStats(w http.ResponseWriter, r *http.Request) {
	operatorID := mux.Vars(r)["id"]
	stats, err := h.ticketing.OperatorStats(r.Context(), operatorID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if stats == nil {
		respondError(w, http.StatusNotFound, "Operator not found")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// ListLines handles GET /api/lines
func (h *Handler) ListLines(w http.ResponseWriter, r *http.Request) {
	lines, err := h.ticketing.ListLines(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, lines)
}

// GetLine handles GET /api/lines/{id}
func (h *Handler) GetLine(w http.ResponseWriter, r *http.Request) {
	lineID := mux.Vars(r)["id"]
	line, err := h.ticketing.GetLine(r.Context(), lineID)
	if err != nil {
		respondError(w, storeErrorStatus(err), err.Error())
		return
	}
	if line == nil {
		respondError(w, http.StatusNotFound, "Line not found")
		return
	}
	respondJSON(w, http.StatusOK, line)
}

// ListLineDepartures handles GET /api/lines/{id}/departures
func (h *Handler) ListLineDepartures(w http.ResponseWriter, r *http.Request) {
	lineID := mux.Vars(r)["id"]
	departures, err := h.ticketing.ListDeparturesByLine(r.Context(), lineID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, departures)
}

// GetDeparture handles GET /api/departures/{id}
func (h *Handler) GetDeparture(w http.ResponseWriter, r *http.Request) {
	departureID := mux.Vars(r)["id"]
	departure, err := h.ticketing.GetDeparture(r.Context(), departureID)
	if err != nil {
		respondError(w, storeErrorStatus(err), err.Error())
		return
	}
	if departure == nil {
		respondError(w, http.StatusNotFound, "Departure not found")
		return
	}
	respondJSON(w, http.StatusOK, departure)
}

// SearchDepartures handles GET /api/departures/search?busCode=BUS-TSC-003
func (h *Handler) SearchDepartures(w http.ResponseWriter, r *http.Request) {
	busCode := strings.TrimSpace(r.URL.Query().Get("busCode"))
	if busCode == "" {
		respondError(w, http.StatusBadRequest, "busCode query parameter is required")
		return
	}
	departures, err := h.ticketing.FindDeparturesByBusCode(r.Context(), busCode)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, departures)
}

// SellTicketsRequest is the body of POST /api/tickets.
type SellTicketsRequest struct {
	DepartureID string             `json:"departureId"`
	ClientName  string             `json:"clientName"`
	ClientPhone string             `json:"clientPhone"`
	SeatCount   int                `json:"seatCount"`
	PaymentMode models.PaymentMode `json:"paymentMode"`
}

// SellTickets handles POST /api/tickets (agent counter sale)
func (h *Handler) SellTickets(w http.ResponseWriter, r *http.Request) {
	var req SellTicketsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.DepartureID == "" {
		respondError(w, http.StatusBadRequest, "Departure ID is required")
		return
	}
	if req.SeatCount < 1 {
		req.SeatCount = 1
	}
	if req.PaymentMode == "" {
		req.PaymentMode = models.PaymentCash
	}

	tickets, err := h.ticketing.SellTickets(r.Context(), store.CreateTicketParams{
		DepartureID: req.DepartureID,
		ClientName:  req.ClientName,
		ClientPhone: req.ClientPhone,
		SeatCount:   req.SeatCount,
		PaymentMode: req.PaymentMode,
		Channel:     models.ChannelAgentPOS,
	})
	if err != nil {
		respondError(w, storeErrorStatus(err), err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, tickets)
}

// GetTicket handles GET /api/tickets/{code}
func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	ticket, err := h.ticketing.FindTicketByCode(r.Context(), code)
	if err != nil {
		respondError(w, storeErrorStatus(err), err.Error())
		return
	}
	if ticket == nil {
		respondError(w, http.StatusNotFound, "Ticket not found")
		return
	}
	respondJSON(w, http.StatusOK, ticket)
}

// ListClientTickets handles GET /api/tickets?clientPhone=+243...
func (h *Handler) ListClientTickets(w http.ResponseWriter, r *http.Request) {
	phone := strings.TrimSpace(r.URL.Query().Get("clientPhone"))
	if phone == "" {
		respondError(w, http.StatusBadRequest, "clientPhone query parameter is required")
		return
	}
	tickets, err := h.ticketing.ListTicketsByClient(r.Context(), phone)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, tickets)
}

// ControlTicket handles POST /api/tickets/{code}/validate
func (h *Handler) ControlTicket(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	result, err := h.ticketing.ValidateTicket(r.Context(), code)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// A rejected control is still a successful request: the controller
	// device needs the outcome, not an error.
	respondJSON(w, http.StatusOK, result)
}

// CancelTicket handles POST /api/tickets/{code}/cancel
func (h *Handler) CancelTicket(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	ticket, err := h.ticketing.CancelTicket(r.Context(), code)
	if err != nil {
		respondError(w, storeErrorStatus(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, ticket)
}

// StartPurchase handles POST /api/purchases (web channel)
func (h *Handler) StartPurchase(w http.ResponseWriter, r *http.Request) {
	var req service.StartPurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.DepartureID == "" {
		respondError(w, http.StatusBadRequest, "Departure ID is required")
		return
	}
	if req.ClientName == "" || req.ClientPhone == "" {
		respondError(w, http.StatusBadRequest, "Client name and phone are required")
		return
	}
	if req.SeatCount < 1 {
		req.SeatCount = 1
	}
	if req.PaymentMode == "" {
		req.PaymentMode = models.PaymentMobileMoney
	}

	purchase, err := h.ticketing.StartPurchase(r.Context(), req)
	if err != nil {
		respondError(w, storeErrorStatus(err), err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, purchase)
}

// GetPurchase handles GET /api/purchases/{id}
func (h *Handler) GetPurchase(w http.ResponseWriter, r *http.Request) {
	purchaseID := mux.Vars(r)["id"]
	purchase, err := h.ticketing.GetPurchase(r.Context(), purchaseID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Purchase not found")
		return
	}
	respondJSON(w, http.StatusOK, purchase)
}

// PayPurchaseRequest is the body of POST /api/purchases/{id}/pay.
type PayPurchaseRequest struct {
	Reference string `json:"reference"`
}

// PayPurchase handles POST /api/purchases/{id}/pay
func (h *Handler) PayPurchase(w http.ResponseWriter, r *http.Request) {
	purchaseID := mux.Vars(r)["id"]

	var req PayPurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Reference) == "" {
		respondError(w, http.StatusBadRequest, "Payment reference is required")
		return
	}

	if err := h.ticketing.SubmitPurchasePayment(r.Context(), purchaseID, req.Reference); err != nil {
		respondError(w, http.StatusNotFound, "Purchase not found")
		return
	}

	// Give the workflow a moment to pick up the signal, then return state.
	time.Sleep(100 * time.Millisecond)
	purchase, err := h.ticketing.GetPurchase(r.Context(), purchaseID)
	if err != nil {
		respondJSON(w, http.StatusAccepted, map[string]string{"status": "payment submitted"})
		return
	}
	respondJSON(w, http.StatusOK, purchase)
}

// CancelPurchase handles DELETE /api/purchases/{id}
func (h *Handler) CancelPurchase(w http.ResponseWriter, r *http.Request) {
	purchaseID := mux.Vars(r)["id"]
	if err := h.ticketing.CancelPurchase(r.Context(), purchaseID); err != nil {
		respondError(w, http.StatusNotFound, "Purchase not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Purchase cancelled"})
}

// GetRoleLanding handles GET /api/roles/{role}/landing
func (h *Handler) GetRoleLanding(w http.ResponseWriter, r *http.Request) {
	role := roleguard.Role(mux.Vars(r)["role"])
	if !roleguard.Known(role) {
		respondError(w, http.StatusNotFound, "Unknown role")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"role":    string(role),
		"landing": roleguard.LandingRoute(role),
	})
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}
