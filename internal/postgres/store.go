package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/transkin/billetterie/internal/models"
	"github.com/transkin/billetterie/internal/store"
)

const ticketCodePrefix = "TRA-"

// Store is the Postgres-backed implementation of store.Store. The seat
// inventory invariant is enforced by a guarded UPDATE inside the sale
// transaction, backed by the departures_seats_check constraint.
type Store struct {
	pool   *pgxpool.Pool
	events store.EventSink
}

// NewStore creates a Postgres store over an existing pool.
func NewStore(pool *pgxpool.Pool, events store.EventSink) *Store {
	if events == nil {
		events = store.NopSink{}
	}
	return &Store{pool: pool, events: events}
}

// Connect opens a pgx pool for the given URL.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

func (s *Store) ListOperators(ctx context.Context) ([]models.Operator, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name FROM operators ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query operators: %w", err)
	}
	defer rows.Close()

	var operators []models.Operator
	for rows.Next() {
		var op models.Operator
		if err := rows.Scan(&op.ID, &op.Name); err != nil {
			return nil, fmt.Errorf("failed to scan operator: %w", err)
		}
		operators = append(operators, op)
	}
	return operators, rows.Err()
}

func (s *Store) GetOperator(ctx context.Context, id string) (*models.Operator, error) {
	var op models.Operator
	err := s.pool.QueryRow(ctx, `SELECT id, name FROM operators WHERE id = $1`, id).
		Scan(&op.ID, &op.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query operator: %w", err)
	}
	return &op, nil
}

const lineColumns = `id, name, operator_id, mode, line_type, origin, destination, duration_minutes`

func scanLine(row pgx.Row) (models.Line, error) {
	var l models.Line
	err := row.Scan(&l.ID, &l.Name, &l.OperatorID, &l.Mode, &l.Type,
		&l.Origin, &l.Destination, &l.DurationMinutes)
	return l, err
}

func (s *Store) queryLines(ctx context.Context, query string, args ...any) ([]models.Line, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query lines: %w", err)
	}
	defer rows.Close()

	var lines []models.Line
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (s *Store) ListLines(ctx context.Context) ([]models.Line, error) {
	return s.queryLines(ctx, `SELECT `+lineColumns+` FROM lines ORDER BY name`)
}

func (s *Store) GetLine(ctx context.Context, id string) (*models.Line, error) {
	l, err := scanLine(s.pool.QueryRow(ctx, `SELECT `+lineColumns+` FROM lines WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query line: %w", err)
	}
	return &l, nil
}

func (s *Store) ListLinesByOperator(ctx context.Context, operatorID string) ([]models.Line, error) {
	return s.queryLines(ctx, `SELECT `+lineColumns+` FROM lines WHERE operator_id = $1 ORDER BY name`, operatorID)
}

const departureColumns = `id, line_id, bus_code, departure_time, arrival_time, price, status, total_seats, sold_seats`

func scanDeparture(row pgx.Row) (models.Departure, error) {
	var d models.Departure
	err := row.Scan(&d.ID, &d.LineID, &d.BusCode, &d.DepartureTime, &d.ArrivalTime,
		&d.Price, &d.Status, &d.TotalSeats, &d.SoldSeats)
	return d, err
}

func (s *Store) queryDepartures(ctx context.Context, query string, args ...any) ([]models.Departure, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query departures: %w", err)
	}
	defer rows.Close()

	var departures []models.Departure
	for rows.Next() {
		d, err := scanDeparture(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan departure: %w", err)
		}
		departures = append(departures, d)
	}
	return departures, rows.Err()
}

func (s *Store) GetDeparture(ctx context.Context, id string) (*models.Departure, error) {
	d, err := scanDeparture(s.pool.QueryRow(ctx, `SELECT `+departureColumns+` FROM departures WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query departure: %w", err)
	}
	return &d, nil
}

func (s *Store) ListDeparturesByOperator(ctx context.Context, operatorID string) ([]models.Departure, error) {
	return s.queryDepartures(ctx, `
		SELECT d.`+strings.ReplaceAll(departureColumns, ", ", ", d.")+`
		FROM departures d
		JOIN lines l ON l.id = d.line_id
		WHERE l.operator_id = $1
		ORDER BY d.departure_time ASC`, operatorID)
}

func (s *Store) ListDeparturesByLine(ctx context.Context, lineID string) ([]models.Departure, error) {
	return s.queryDepartures(ctx, `
		SELECT `+departureColumns+` FROM departures
		WHERE line_id = $1
		ORDER BY departure_time ASC`, lineID)
}

func (s *Store) FindDeparturesByBusCode(ctx context.Context, busCode string) ([]models.Departure, error) {
	return s.queryDepartures(ctx, `
		SELECT `+departureColumns+` FROM departures
		WHERE UPPER(bus_code) = UPPER($1)
		ORDER BY departure_time ASC`, strings.TrimSpace(busCode))
}

func (s *Store) CreateTicket(ctx context.Context, params store.CreateTicketParams) ([]models.Ticket, error) {
	if params.SeatCount < 1 {
		return nil, store.ErrInvalidSeatCount
	}
	if params.ClientName == "" || params.ClientPhone == "" {
		return nil, store.ErrMissingClientInfo
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	dep, err := scanDeparture(tx.QueryRow(ctx,
		`SELECT `+departureColumns+` FROM departures WHERE id = $1 FOR UPDATE`, params.DepartureID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrDepartureNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock departure: %w", err)
	}
	if !dep.Sellable() {
		return nil, store.ErrDepartureNotSellable
	}
	if dep.AvailableSeats() < params.SeatCount {
		return nil, fmt.Errorf("%w: %d requested, %d available", store.ErrInsufficientSeats, params.SeatCount, dep.AvailableSeats())
	}

	// The guard repeats the availability check so a concurrent transaction
	// can never push sold_seats past total_seats.
	tag, err := tx.Exec(ctx, `
		UPDATE departures SET sold_seats = sold_seats + $2
		WHERE id = $1 AND total_seats - sold_seats >= $2`,
		params.DepartureID, params.SeatCount)
	if err != nil {
		return nil, fmt.Errorf("failed to update inventory: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, store.ErrInsufficientSeats
	}

	now := time.Now()
	tickets := make([]models.Ticket, 0, params.SeatCount)
	for i := 0; i < params.SeatCount; i++ {
		var seq int64
		if err := tx.QueryRow(ctx, `SELECT nextval('ticket_code_seq')`).Scan(&seq); err != nil {
			return nil, fmt.Errorf("failed to allocate ticket code: %w", err)
		}

		t := models.Ticket{
			ID:             uuid.New().String(),
			Code:           fmt.Sprintf("%s%08d", ticketCodePrefix, seq),
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
		if _, err := tx.Exec(ctx, `
			INSERT INTO tickets (id, code, departure_id, line_id, client_name, client_phone,
				seat_count, channel, payment_mode, price_paid, purchased_at, status, selling_agent_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			t.ID, t.Code, t.DepartureID, t.LineID, t.ClientName, t.ClientPhone,
			t.SeatCount, t.Channel, t.PaymentMode, t.PricePaid, t.PurchasedAt, t.Status, t.SellingAgentID,
		); err != nil {
			return nil, fmt.Errorf("failed to insert ticket: %w", err)
		}
		tickets = append(tickets, t)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit sale: %w", err)
	}

	dep.SoldSeats += params.SeatCount
	s.events.TicketsSold(dep, tickets)
	return tickets, nil
}

const ticketColumns = `id, code, departure_id, line_id, client_name, client_phone,
	seat_count, channel, payment_mode, price_paid, purchased_at, status, selling_agent_id`

func scanTicket(row pgx.Row) (models.Ticket, error) {
	var t models.Ticket
	err := row.Scan(&t.ID, &t.Code, &t.DepartureID, &t.LineID, &t.ClientName, &t.ClientPhone,
		&t.SeatCount, &t.Channel, &t.PaymentMode, &t.PricePaid, &t.PurchasedAt, &t.Status, &t.SellingAgentID)
	return t, err
}

func (s *Store) ValidateTicket(ctx context.Context, code string) (models.ValidationResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.ValidationResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	t, err := scanTicket(tx.QueryRow(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE code = $1 FOR UPDATE`, normalizeCode(code)))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ValidationResult{Outcome: models.ValidationNotFound}, nil
	}
	if err != nil {
		return models.ValidationResult{}, fmt.Errorf("failed to lock ticket: %w", err)
	}

	switch t.Status {
	case models.TicketUtilise:
		return models.ValidationResult{Outcome: models.ValidationAlreadyUsed, Ticket: &t}, nil
	case models.TicketAnnule:
		return models.ValidationResult{Outcome: models.ValidationCancelled, Ticket: &t}, nil
	}

	if _, err := tx.Exec(ctx, `UPDATE tickets SET status = $2 WHERE code = $1`,
		t.Code, models.TicketUtilise); err != nil {
		return models.ValidationResult{}, fmt.Errorf("failed to update ticket: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return models.ValidationResult{}, fmt.Errorf("failed to commit validation: %w", err)
	}

	t.Status = models.TicketUtilise
	s.events.TicketValidated(t)
	return models.ValidationResult{Outcome: models.ValidationOk, Ticket: &t}, nil
}

func (s *Store) CancelTicket(ctx context.Context, code string) (*models.Ticket, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	t, err := scanTicket(tx.QueryRow(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE code = $1 FOR UPDATE`, normalizeCode(code)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrTicketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock ticket: %w", err)
	}
	if t.Status != models.TicketValide {
		return nil, store.ErrTicketNotCancellable
	}

	if _, err := tx.Exec(ctx, `UPDATE tickets SET status = $2 WHERE code = $1`,
		t.Code, models.TicketAnnule); err != nil {
		return nil, fmt.Errorf("failed to update ticket: %w", err)
	}

	// Release the seat so it can be sold again.
	if _, err := tx.Exec(ctx, `
		UPDATE departures SET sold_seats = sold_seats - 1
		WHERE id = $1 AND sold_seats > 0`, t.DepartureID); err != nil {
		return nil, fmt.Errorf("failed to release seat: %w", err)
	}

	dep, err := scanDeparture(tx.QueryRow(ctx,
		`SELECT `+departureColumns+` FROM departures WHERE id = $1`, t.DepartureID))
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to reload departure: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit cancellation: %w", err)
	}

	t.Status = models.TicketAnnule
	s.events.TicketCancelled(t, dep)
	return &t, nil
}

func (s *Store) FindTicketByCode(ctx context.Context, code string) (*models.Ticket, error) {
	t, err := scanTicket(s.pool.QueryRow(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE code = $1`, normalizeCode(code)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query ticket: %w", err)
	}
	return &t, nil
}

func (s *Store) queryTickets(ctx context.Context, query string, args ...any) ([]models.Ticket, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickets: %w", err)
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

func (s *Store) ListTicketsByOperator(ctx context.Context, operatorID string) ([]models.Ticket, error) {
	return s.queryTickets(ctx, `
		SELECT t.`+strings.ReplaceAll(ticketColumns, ", ", ", t.")+`
		FROM tickets t
		JOIN lines l ON l.id = t.line_id
		WHERE l.operator_id = $1
		ORDER BY t.purchased_at DESC, t.code DESC`, operatorID)
}

func (s *Store) ListTicketsByClient(ctx context.Context, phone string) ([]models.Ticket, error) {
	return s.queryTickets(ctx, `
		SELECT `+ticketColumns+` FROM tickets
		WHERE client_phone = $1
		ORDER BY purchased_at DESC, code DESC`, phone)
}

func (s *Store) OperatorStats(ctx context.Context, operatorID string) (*models.OperatorStats, error) {
	stats := &models.OperatorStats{OperatorID: operatorID}

	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(t.price_paid), 0)
		FROM tickets t
		JOIN lines l ON l.id = t.line_id
		WHERE l.operator_id = $1
		  AND t.status <> 'ANNULE'
		  AND t.purchased_at >= date_trunc('day', NOW())`, operatorID).
		Scan(&stats.TicketsSoldToday, &stats.RevenueToday)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales stats: %w", err)
	}

	err = s.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM departures d
		JOIN lines l ON l.id = d.line_id
		WHERE l.operator_id = $1 AND d.status = 'EN_COURS'`, operatorID).
		Scan(&stats.DeparturesEnCours)
	if err != nil {
		return nil, fmt.Errorf("failed to query departure stats: %w", err)
	}

	return stats, nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
