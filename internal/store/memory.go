package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/transkin/billetterie/internal/models"
)

// ticketCodePrefix is printed on every ticket and encoded in its QR code.
const ticketCodePrefix = "TRA-"

// MemoryStore is the in-memory implementation of Store. A single mutex
// guards every mutation so the no-oversell invariant holds under concurrent
// callers; state lives for the process lifetime only.
type MemoryStore struct {
	mu         sync.RWMutex
	operators  map[string]models.Operator
	lines      map[string]models.Line
	departures map[string]*models.Departure
	tickets    map[string]*models.Ticket // keyed by code
	nextCode   uint64

	events EventSink
}

// NewMemoryStore creates an empty store. Pass NopSink{} when no event
// delivery is needed.
func NewMemoryStore(events EventSink) *MemoryStore {
	if events == nil {
		events = NopSink{}
	}
	return &MemoryStore{
		operators:  make(map[string]models.Operator),
		lines:      make(map[string]models.Line),
		departures: make(map[string]*models.Departure),
		tickets:    make(map[string]*models.Ticket),
		events:     events,
	}
}

// AddOperator registers an operator. Seeding/administration only.
func (s *MemoryStore) AddOperator(op models.Operator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.operators[op.ID] = op
}

// AddLine registers a line. Seeding/administration only.
func (s *MemoryStore) AddLine(l models.Line) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines[l.ID] = l
}

// AddDeparture registers a departure. Seeding/administration only.
func (s *MemoryStore) AddDeparture(d models.Departure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dep := d
	s.departures[d.ID] = &dep
}

func (s *MemoryStore) ListOperators(ctx context.Context) ([]models.Operator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ops := make([]models.Operator, 0, len(s.operators))
	for _, op := range s.operators {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].ID < ops[j].ID })
	return ops, nil
}

func (s *MemoryStore) GetOperator(ctx context.Context, id string) (*models.Operator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	op, ok := s.operators[id]
	if !ok {
		return nil, nil
	}
	return &op, nil
}

func (s *MemoryStore) ListLines(ctx context.Context) ([]models.Line, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lines := make([]models.Line, 0, len(s.lines))
	for _, l := range s.lines {
		lines = append(lines, l)
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ID < lines[j].ID })
	return lines, nil
}

func (s *MemoryStore) GetLine(ctx context.Context, id string) (*models.Line, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.lines[id]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (s *MemoryStore) ListLinesByOperator(ctx context.Context, operatorID string) ([]models.Line, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var lines []models.Line
	for _, l := range s.lines {
		if l.OperatorID == operatorID {
			lines = append(lines, l)
		}
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ID < lines[j].ID })
	return lines, nil
}

func (s *MemoryStore) GetDeparture(ctx context.Context, id string) (*models.Departure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.departures[id]
	if !ok {
		return nil, nil
	}
	dep := *d
	return &dep, nil
}

func (s *MemoryStore) ListDeparturesByOperator(ctx context.Context, operatorID string) ([]models.Departure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var deps []models.Departure
	for _, d := range s.departures {
		if l, ok := s.lines[d.LineID]; ok && l.OperatorID == operatorID {
			deps = append(deps, *d)
		}
	}
	sortDepartures(deps)
	return deps, nil
}

func (s *MemoryStore) ListDeparturesByLine(ctx context.Context, lineID string) ([]models.Departure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var deps []models.Departure
	for _, d := range s.departures {
		if d.LineID == lineID {
			deps = append(deps, *d)
		}
	}
	sortDepartures(deps)
	return deps, nil
}

func (s *MemoryStore) FindDeparturesByBusCode(ctx context.Context, busCode string) ([]models.Departure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	code := strings.ToUpper(strings.TrimSpace(busCode))
	var deps []models.Departure
	for _, d := range s.departures {
		if d.BusCode == code {
			deps = append(deps, *d)
		}
	}
	sortDepartures(deps)
	return deps, nil
}

func (s *MemoryStore) CreateTicket(ctx context.Context, params CreateTicketParams) ([]models.Ticket, error) {
	if params.SeatCount < 1 {
		return nil, ErrInvalidSeatCount
	}
	if params.ClientName == "" || params.ClientPhone == "" {
		return nil, ErrMissingClientInfo
	}

	s.mu.Lock()
	dep, ok := s.departures[params.DepartureID]
	if !ok {
		s.mu.Unlock()
		return nil, ErrDepartureNotFound
	}
	if !dep.Sellable() {
		s.mu.Unlock()
		return nil, ErrDepartureNotSellable
	}
	if dep.AvailableSeats() < params.SeatCount {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %d requested, %d available", ErrInsufficientSeats, params.SeatCount, dep.AvailableSeats())
	}

	// All preconditions hold; issue one ticket per seat and bump the
	// inventory in the same critical section.
	now := time.Now()
	tickets := make([]models.Ticket, 0, params.SeatCount)
	for i := 0; i < params.SeatCount; i++ {
		s.nextCode++
		t := models.Ticket{
			ID:             uuid.New().String(),
			Code:           fmt.Sprintf("%s%08d", ticketCodePrefix, s.nextCode),
			DepartureID:    dep.ID,
			LineID:         dep.LineID,
			ClientName:     params.ClientName,
			ClientPhone:    params.ClientPhone,
			SeatCount:      1,
			Channel:        params.Channel,
			PaymentMode:    params.PaymentMode,
			PricePaid:      dep.Price,
			PurchasedAt:    now,
			Status:         models.TicketValide,
			SellingAgentID: params.AgentID,
		}
		stored := t
		s.tickets[t.Code] = &stored
		tickets = append(tickets, t)
	}
	dep.SoldSeats += params.SeatCount
	depCopy := *dep
	s.mu.Unlock()

	s.events.TicketsSold(depCopy, tickets)
	return tickets, nil
}

func (s *MemoryStore) ValidateTicket(ctx context.Context, code string) (models.ValidationResult, error) {
	s.mu.Lock()
	t, ok := s.tickets[normalizeCode(code)]
	if !ok {
		s.mu.Unlock()
		return models.ValidationResult{Outcome: models.ValidationNotFound}, nil
	}

	switch t.Status {
	case models.TicketUtilise:
		res := models.ValidationResult{Outcome: models.ValidationAlreadyUsed, Ticket: copyTicket(t)}
		s.mu.Unlock()
		return res, nil
	case models.TicketAnnule:
		res := models.ValidationResult{Outcome: models.ValidationCancelled, Ticket: copyTicket(t)}
		s.mu.Unlock()
		return res, nil
	}

	t.Status = models.TicketUtilise
	validated := *t
	s.mu.Unlock()

	s.events.TicketValidated(validated)
	return models.ValidationResult{Outcome: models.ValidationOk, Ticket: &validated}, nil
}

func (s *MemoryStore) CancelTicket(ctx context.Context, code string) (*models.Ticket, error) {
	s.mu.Lock()
	t, ok := s.tickets[normalizeCode(code)]
	if !ok {
		s.mu.Unlock()
		return nil, ErrTicketNotFound
	}
	if t.Status != models.TicketValide {
		s.mu.Unlock()
		return nil, ErrTicketNotCancellable
	}

	t.Status = models.TicketAnnule
	cancelled := *t

	// Release the seat so it can be sold again.
	var depCopy models.Departure
	if dep, ok := s.departures[t.DepartureID]; ok && dep.SoldSeats > 0 {
		dep.SoldSeats--
		depCopy = *dep
	}
	s.mu.Unlock()

	s.events.TicketCancelled(cancelled, depCopy)
	return &cancelled, nil
}

func (s *MemoryStore) FindTicketByCode(ctx context.Context, code string) (*models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tickets[normalizeCode(code)]
	if !ok {
		return nil, nil
	}
	return copyTicket(t), nil
}

func (s *MemoryStore) ListTicketsByOperator(ctx context.Context, operatorID string) ([]models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tickets []models.Ticket
	for _, t := range s.tickets {
		if l, ok := s.lines[t.LineID]; ok && l.OperatorID == operatorID {
			tickets = append(tickets, *t)
		}
	}
	sortTickets(tickets)
	return tickets, nil
}

func (s *MemoryStore) ListTicketsByClient(ctx context.Context, phone string) ([]models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tickets []models.Ticket
	for _, t := range s.tickets {
		if t.ClientPhone == phone {
			tickets = append(tickets, *t)
		}
	}
	sortTickets(tickets)
	return tickets, nil
}

func (s *MemoryStore) OperatorStats(ctx context.Context, operatorID string) (*models.OperatorStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &models.OperatorStats{OperatorID: operatorID}
	startOfDay := time.Now().Truncate(24 * time.Hour)

	for _, t := range s.tickets {
		l, ok := s.lines[t.LineID]
		if !ok || l.OperatorID != operatorID {
			continue
		}
		if t.Status != models.TicketAnnule && !t.PurchasedAt.Before(startOfDay) {
			stats.TicketsSoldToday++
			stats.RevenueToday += t.PricePaid
		}
	}
	for _, d := range s.departures {
		if l, ok := s.lines[d.LineID]; ok && l.OperatorID == operatorID && d.Status == models.DepartureEnCours {
			stats.DeparturesEnCours++
		}
	}
	return stats, nil
}

func sortDepartures(deps []models.Departure) {
	sort.Slice(deps, func(i, j int) bool {
		if deps[i].DepartureTime.Equal(deps[j].DepartureTime) {
			return deps[i].ID < deps[j].ID
		}
		return deps[i].DepartureTime.Before(deps[j].DepartureTime)
	})
}

func sortTickets(tickets []models.Ticket) {
	sort.Slice(tickets, func(i, j int) bool {
		if tickets[i].PurchasedAt.Equal(tickets[j].PurchasedAt) {
			return tickets[i].Code < tickets[j].Code
		}
		return tickets[i].PurchasedAt.After(tickets[j].PurchasedAt)
	})
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func copyTicket(t *models.Ticket) *models.Ticket {
	c := *t
	return &c
}
