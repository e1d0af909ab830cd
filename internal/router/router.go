package router

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/transkin/billetterie/internal/handlers"
	"github.com/transkin/billetterie/internal/roleguard"
	"github.com/transkin/billetterie/internal/websocket"
)

// SetupRouter creates and configures the HTTP router
func SetupRouter(h *handlers.Handler, hub *websocket.Hub, logger *zap.Logger) *mux.Router {
	r := mux.NewRouter()

	r.Use(corsMiddleware)
	r.Use(requestLogMiddleware(logger))

	// API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(roleMiddleware)

	// Operators
	api.HandleFunc("/operators", h.ListOperators).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/operators/{id}", h.GetOperator).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/operators/{id}/lines", h.ListOperatorLines).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/operators/{id}/departures", h.ListOperatorDepartures).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/operators/{id}/tickets", h.ListOperatorTickets).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/operators/{id}/stats", h.GetOperatorStats).Methods(http.MethodGet, http.MethodOptions)

	// Lines and departures
	api.HandleFunc("/lines", h.ListLines).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/lines/{id}", h.GetLine).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/lines/{id}/departures", h.ListLineDepartures).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/departures/search", h.SearchDepartures).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/departures/{id}", h.GetDeparture).Methods(http.MethodGet, http.MethodOptions)

	// Tickets (agent counter sales + control)
	api.HandleFunc("/tickets", h.SellTickets).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/tickets", h.ListClientTickets).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/tickets/{code}", h.GetTicket).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/tickets/{code}/validate", h.ControlTicket).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/tickets/{code}/cancel", h.CancelTicket).Methods(http.MethodPost, http.MethodOptions)

	// Web purchases (workflow backed)
	api.HandleFunc("/purchases", h.StartPurchase).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/purchases/{id}", h.GetPurchase).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/purchases/{id}", h.CancelPurchase).Methods(http.MethodDelete, http.MethodOptions)
	api.HandleFunc("/purchases/{id}/pay", h.PayPurchase).Methods(http.MethodPost, http.MethodOptions)

	// Role routing
	api.HandleFunc("/roles/{role}/landing", h.GetRoleLanding).Methods(http.MethodGet, http.MethodOptions)

	// WebSocket for real-time operator dashboards
	api.HandleFunc("/operators/{id}/ws", func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, mux.Vars(r)["id"])
	})

	// Health check
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+roleguard.RoleHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// roleMiddleware gates mutating API calls by the caller's declared role.
// Reads stay open to every known role; an absent or unknown role is pointed
// at the simulated login page.
func roleMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		role := roleguard.FromRequest(r)
		if !roleguard.Known(role) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"unknown role","login":"` + roleguard.LoginRoute + `"}`))
			return
		}
		if !roleguard.AllowedPath(role, r.URL.Path) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error":"role not allowed for this endpoint"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func requestLogMiddleware(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
			logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path))
		})
	}
}
