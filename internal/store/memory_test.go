package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transkin/billetterie/internal/models"
)

func newTestStore() *MemoryStore {
	s := NewMemoryStore(nil)
	s.AddOperator(models.Operator{ID: "OP-1", Name: "Test Transport"})
	s.AddLine(models.Line{
		ID: "LIG-1", Name: "A - B", OperatorID: "OP-1",
		Mode: models.ModeBus, Type: models.LineUrbain,
		Origin: "A", Destination: "B", DurationMinutes: 30,
	})
	s.AddDeparture(models.Departure{
		ID: "DEP-1", LineID: "LIG-1", BusCode: "BUS-TST-001",
		DepartureTime: time.Now().Add(time.Hour),
		ArrivalTime:   time.Now().Add(90 * time.Minute),
		Price:         1500, Status: models.DeparturePlanifie,
		TotalSeats: 10, SoldSeats: 8,
	})
	return s
}

func saleParams(seats int) CreateTicketParams {
	return CreateTicketParams{
		ClientName:  "Jean Mwamba",
		ClientPhone: "+243810000001",
		DepartureID: "DEP-1",
		SeatCount:   seats,
		Channel:     models.ChannelAgentPOS,
		PaymentMode: models.PaymentCash,
		AgentID:     "AGT-1",
	}
}

func TestCreateTicket_Success(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	tickets, err := s.CreateTicket(ctx, saleParams(2))
	require.NoError(t, err)
	require.Len(t, tickets, 2)

	for _, tk := range tickets {
		assert.Equal(t, models.TicketValide, tk.Status)
		assert.Equal(t, 1, tk.SeatCount)
		assert.Equal(t, int64(1500), tk.PricePaid)
		assert.Equal(t, "DEP-1", tk.DepartureID)
		assert.Equal(t, "LIG-1", tk.LineID)
		assert.Regexp(t, `^TRA-\d{8}$`, tk.Code)
	}

	dep, err := s.GetDeparture(ctx, "DEP-1")
	require.NoError(t, err)
	assert.Equal(t, 10, dep.SoldSeats)
	assert.Equal(t, 0, dep.AvailableSeats())
}

func TestCreateTicket_InsufficientSeats(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	// 2 seats left; selling 3 must fail without touching the inventory.
	_, err := s.CreateTicket(ctx, saleParams(3))
	require.ErrorIs(t, err, ErrInsufficientSeats)

	dep, err := s.GetDeparture(ctx, "DEP-1")
	require.NoError(t, err)
	assert.Equal(t, 8, dep.SoldSeats)
}

func TestCreateTicket_SellOutThenFail(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	tickets, err := s.CreateTicket(ctx, saleParams(2))
	require.NoError(t, err)
	require.Len(t, tickets, 2)

	dep, _ := s.GetDeparture(ctx, "DEP-1")
	assert.Equal(t, 10, dep.SoldSeats)

	_, err = s.CreateTicket(ctx, saleParams(1))
	require.ErrorIs(t, err, ErrInsufficientSeats)

	dep, _ = s.GetDeparture(ctx, "DEP-1")
	assert.Equal(t, 10, dep.SoldSeats)
}

func TestCreateTicket_Validation(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*CreateTicketParams)
		wantErr error
	}{
		{
			name:    "zero seats",
			mutate:  func(p *CreateTicketParams) { p.SeatCount = 0 },
			wantErr: ErrInvalidSeatCount,
		},
		{
			name:    "unknown departure",
			mutate:  func(p *CreateTicketParams) { p.DepartureID = "DEP-MISSING" },
			wantErr: ErrDepartureNotFound,
		},
		{
			name:    "missing client name",
			mutate:  func(p *CreateTicketParams) { p.ClientName = "" },
			wantErr: ErrMissingClientInfo,
		},
		{
			name:    "missing client phone",
			mutate:  func(p *CreateTicketParams) { p.ClientPhone = "" },
			wantErr: ErrMissingClientInfo,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := saleParams(1)
			tt.mutate(&params)
			_, err := s.CreateTicket(ctx, params)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	dep, _ := s.GetDeparture(ctx, "DEP-1")
	assert.Equal(t, 8, dep.SoldSeats, "failed sales must not touch the inventory")
}

func TestCreateTicket_ClosedDeparture(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	for _, status := range []models.DepartureStatus{models.DepartureTermine, models.DepartureAnnule} {
		s.AddDeparture(models.Departure{
			ID: "DEP-CLOSED", LineID: "LIG-1", BusCode: "BUS-TST-002",
			DepartureTime: time.Now().Add(time.Hour),
			Price:         1000, Status: status, TotalSeats: 10,
		})
		params := saleParams(1)
		params.DepartureID = "DEP-CLOSED"
		_, err := s.CreateTicket(ctx, params)
		require.ErrorIs(t, err, ErrDepartureNotSellable, "status %s", status)
	}
}

func TestCreateTicket_CodesAreUnique(t *testing.T) {
	s := NewMemoryStore(nil)
	s.AddOperator(models.Operator{ID: "OP-1", Name: "Test Transport"})
	s.AddLine(models.Line{ID: "LIG-1", OperatorID: "OP-1", Mode: models.ModeBus, Type: models.LineUrbain})
	s.AddDeparture(models.Departure{
		ID: "DEP-BIG", LineID: "LIG-1", BusCode: "BUS-TST-003",
		DepartureTime: time.Now().Add(time.Hour),
		Price:         500, Status: models.DeparturePlanifie, TotalSeats: 500,
	})

	ctx := context.Background()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		params := saleParams(3)
		params.DepartureID = "DEP-BIG"
		tickets, err := s.CreateTicket(ctx, params)
		require.NoError(t, err)
		for _, tk := range tickets {
			require.False(t, seen[tk.Code], "duplicate code %s", tk.Code)
			seen[tk.Code] = true
		}
	}
	assert.Len(t, seen, 300)
}

func TestCreateTicket_ConcurrentNoOversell(t *testing.T) {
	s := NewMemoryStore(nil)
	s.AddOperator(models.Operator{ID: "OP-1", Name: "Test Transport"})
	s.AddLine(models.Line{ID: "LIG-1", OperatorID: "OP-1", Mode: models.ModeBus, Type: models.LineUrbain})
	s.AddDeparture(models.Departure{
		ID: "DEP-RACE", LineID: "LIG-1", BusCode: "BUS-TST-004",
		DepartureTime: time.Now().Add(time.Hour),
		Price:         500, Status: models.DeparturePlanifie, TotalSeats: 20,
	})

	ctx := context.Background()
	var wg sync.WaitGroup
	var mu sync.Mutex
	sold := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			params := saleParams(1)
			params.DepartureID = "DEP-RACE"
			if tickets, err := s.CreateTicket(ctx, params); err == nil {
				mu.Lock()
				sold += len(tickets)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	dep, err := s.GetDeparture(ctx, "DEP-RACE")
	require.NoError(t, err)
	assert.Equal(t, 20, sold)
	assert.Equal(t, 20, dep.SoldSeats)
	assert.LessOrEqual(t, dep.SoldSeats, dep.TotalSeats)
}

func TestValidateTicket_Lifecycle(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	tickets, err := s.CreateTicket(ctx, saleParams(1))
	require.NoError(t, err)
	code := tickets[0].Code

	res, err := s.ValidateTicket(ctx, code)
	require.NoError(t, err)
	assert.True(t, res.Valid())
	assert.Equal(t, models.ValidationOk, res.Outcome)
	require.NotNil(t, res.Ticket)
	assert.Equal(t, models.TicketUtilise, res.Ticket.Status)

	// Second scan of the same code must not succeed and must not move the
	// ticket out of UTILISE.
	res, err = s.ValidateTicket(ctx, code)
	require.NoError(t, err)
	assert.False(t, res.Valid())
	assert.Equal(t, models.ValidationAlreadyUsed, res.Outcome)

	stored, err := s.FindTicketByCode(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, models.TicketUtilise, stored.Status)
}

func TestValidateTicket_UnknownCode(t *testing.T) {
	s := NewMemoryStore(nil)
	ctx := context.Background()

	res, err := s.ValidateTicket(ctx, "TRA-00000001")
	require.NoError(t, err)
	assert.False(t, res.Valid())
	assert.Equal(t, models.ValidationNotFound, res.Outcome)
	assert.Nil(t, res.Ticket)
}

func TestValidateTicket_CancelledTicket(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	tickets, err := s.CreateTicket(ctx, saleParams(1))
	require.NoError(t, err)
	code := tickets[0].Code

	_, err = s.CancelTicket(ctx, code)
	require.NoError(t, err)

	res, err := s.ValidateTicket(ctx, code)
	require.NoError(t, err)
	assert.False(t, res.Valid())
	assert.Equal(t, models.ValidationCancelled, res.Outcome)
}

func TestValidateTicket_NormalizesCode(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	tickets, err := s.CreateTicket(ctx, saleParams(1))
	require.NoError(t, err)

	res, err := s.ValidateTicket(ctx, "  "+tickets[0].Code+" ")
	require.NoError(t, err)
	assert.True(t, res.Valid())
}

func TestCancelTicket_ReleasesSeat(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	tickets, err := s.CreateTicket(ctx, saleParams(2))
	require.NoError(t, err)

	dep, _ := s.GetDeparture(ctx, "DEP-1")
	require.Equal(t, 10, dep.SoldSeats)

	cancelled, err := s.CancelTicket(ctx, tickets[0].Code)
	require.NoError(t, err)
	assert.Equal(t, models.TicketAnnule, cancelled.Status)

	dep, _ = s.GetDeparture(ctx, "DEP-1")
	assert.Equal(t, 9, dep.SoldSeats)

	// Terminal states cannot be cancelled again.
	_, err = s.CancelTicket(ctx, tickets[0].Code)
	require.ErrorIs(t, err, ErrTicketNotCancellable)

	_, err = s.CancelTicket(ctx, "TRA-99999999")
	require.ErrorIs(t, err, ErrTicketNotFound)
}

func TestQueries_EmptyStoreNeverError(t *testing.T) {
	s := NewMemoryStore(nil)
	ctx := context.Background()

	tk, err := s.FindTicketByCode(ctx, "TRA-00000001")
	require.NoError(t, err)
	assert.Nil(t, tk)

	op, err := s.GetOperator(ctx, "OP-NONE")
	require.NoError(t, err)
	assert.Nil(t, op)

	l, err := s.GetLine(ctx, "LIG-NONE")
	require.NoError(t, err)
	assert.Nil(t, l)

	deps, err := s.FindDeparturesByBusCode(ctx, "BUS-NONE-000")
	require.NoError(t, err)
	assert.Empty(t, deps)

	tickets, err := s.ListTicketsByClient(ctx, "+243000000000")
	require.NoError(t, err)
	assert.Empty(t, tickets)
}

func TestListTickets_ByClientAndOperator(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	first, err := s.CreateTicket(ctx, saleParams(1))
	require.NoError(t, err)

	other := saleParams(1)
	other.ClientName = "Marie Kabila"
	other.ClientPhone = "+243810000002"
	_, err = s.CreateTicket(ctx, other)
	require.NoError(t, err)

	byClient, err := s.ListTicketsByClient(ctx, "+243810000001")
	require.NoError(t, err)
	require.Len(t, byClient, 1)
	assert.Equal(t, first[0].Code, byClient[0].Code)

	byOperator, err := s.ListTicketsByOperator(ctx, "OP-1")
	require.NoError(t, err)
	assert.Len(t, byOperator, 2)

	byOther, err := s.ListTicketsByOperator(ctx, "OP-2")
	require.NoError(t, err)
	assert.Empty(t, byOther)
}

func TestFindDeparturesByBusCode_CaseInsensitive(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	deps, err := s.FindDeparturesByBusCode(ctx, "bus-tst-001")
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, "DEP-1", deps[0].ID)
}

func TestOperatorStats(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	s.AddDeparture(models.Departure{
		ID: "DEP-RUN", LineID: "LIG-1", BusCode: "BUS-TST-009",
		DepartureTime: time.Now(), Price: 1000,
		Status: models.DepartureEnCours, TotalSeats: 40, SoldSeats: 5,
	})

	tickets, err := s.CreateTicket(ctx, saleParams(2))
	require.NoError(t, err)

	// A cancelled ticket no longer counts toward revenue.
	_, err = s.CancelTicket(ctx, tickets[1].Code)
	require.NoError(t, err)

	stats, err := s.OperatorStats(ctx, "OP-1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TicketsSoldToday)
	assert.Equal(t, int64(1500), stats.RevenueToday)
	assert.Equal(t, 1, stats.DeparturesEnCours)
}

func TestSeed_LoadsDemoData(t *testing.T) {
	s := NewMemoryStore(nil)
	Seed(s)
	ctx := context.Background()

	ops, err := s.ListOperators(ctx)
	require.NoError(t, err)
	require.Len(t, ops, 2)

	deps, err := s.FindDeparturesByBusCode(ctx, "BUS-TSC-003")
	require.NoError(t, err)
	assert.Len(t, deps, 2)

	for _, d := range deps {
		assert.LessOrEqual(t, d.SoldSeats, d.TotalSeats)
	}

	lines, err := s.ListLinesByOperator(ctx, "OP-TSC")
	require.NoError(t, err)
	assert.Len(t, lines, 4)
}

func TestTicketCodes_SequentialFormat(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	tickets, err := s.CreateTicket(ctx, saleParams(2))
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("TRA-%08d", 1), tickets[0].Code)
	assert.Equal(t, fmt.Sprintf("TRA-%08d", 2), tickets[1].Code)
}
