package store

import (
	"context"
	"errors"

	"github.com/transkin/billetterie/internal/models"
)

var (
	ErrDepartureNotFound    = errors.New("departure not found")
	ErrDepartureNotSellable = errors.New("departure is not open for sale")
	ErrInvalidSeatCount     = errors.New("seat count must be at least 1")
	ErrInsufficientSeats    = errors.New("not enough seats available")
	ErrMissingClientInfo    = errors.New("client name and phone are required")
	ErrTicketNotFound       = errors.New("ticket not found")
	ErrTicketNotCancellable = errors.New("ticket can no longer be cancelled")
)

// CreateTicketParams are the inputs of a sale, whichever channel it comes
// through.
type CreateTicketParams struct {
	ClientName  string
	ClientPhone string
	DepartureID string
	SeatCount   int
	Channel     models.PurchaseChannel
	PaymentMode models.PaymentMode
	AgentID     string
}

// Store holds the canonical collections of operators, lines, departures and
// tickets, and enforces the seat-inventory and ticket-status invariants on
// every mutation. Reads never fail on not-found; they return nil or an
// empty slice.
type Store interface {
	ListOperators(ctx context.Context) ([]models.Operator, error)
	GetOperator(ctx context.Context, id string) (*models.Operator, error)

	ListLines(ctx context.Context) ([]models.Line, error)
	GetLine(ctx context.Context, id string) (*models.Line, error)
	ListLinesByOperator(ctx context.Context, operatorID string) ([]models.Line, error)

	GetDeparture(ctx context.Context, id string) (*models.Departure, error)
	ListDeparturesByOperator(ctx context.Context, operatorID string) ([]models.Departure, error)
	ListDeparturesByLine(ctx context.Context, lineID string) ([]models.Departure, error)
	FindDeparturesByBusCode(ctx context.Context, busCode string) ([]models.Departure, error)

	// CreateTicket issues one single-seat ticket per requested seat and
	// atomically increments the departure's sold-seat count. It fails
	// without any partial effect when the departure is unknown, closed for
	// sale, or short of seats.
	CreateTicket(ctx context.Context, params CreateTicketParams) ([]models.Ticket, error)

	// ValidateTicket flips a VALIDE ticket to UTILISE. All other cases are
	// reported through the tagged outcome, never as an error.
	ValidateTicket(ctx context.Context, code string) (models.ValidationResult, error)

	// CancelTicket flips a VALIDE ticket to ANNULE and releases its seat.
	CancelTicket(ctx context.Context, code string) (*models.Ticket, error)

	FindTicketByCode(ctx context.Context, code string) (*models.Ticket, error)
	ListTicketsByOperator(ctx context.Context, operatorID string) ([]models.Ticket, error)
	ListTicketsByClient(ctx context.Context, phone string) ([]models.Ticket, error)

	OperatorStats(ctx context.Context, operatorID string) (*models.OperatorStats, error)
}

// EventSink receives notifications after successful mutations. Implementations
// must not block; the store calls them while holding no locks.
type EventSink interface {
	TicketsSold(departure models.Departure, tickets []models.Ticket)
	TicketValidated(ticket models.Ticket)
	TicketCancelled(ticket models.Ticket, departure models.Departure)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) TicketsSold(models.Departure, []models.Ticket)   {}
func (NopSink) TicketValidated(models.Ticket)                   {}
func (NopSink) TicketCancelled(models.Ticket, models.Departure) {}
