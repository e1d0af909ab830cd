package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/transkin/billetterie/internal/models"
	"github.com/transkin/billetterie/internal/service"
	"github.com/transkin/billetterie/internal/store"
)

// MockTicketingService is a mock implementation of TicketingService
type MockTicketingService struct {
	mock.Mock
}

func (m *MockTicketingService) ListOperators(ctx context.Context) ([]models.Operator, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Operator), args.Error(1)
}

func (m *MockTicketingService) GetOperator(ctx context.Context, id string) (*models.Operator, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Operator), args.Error(1)
}

func (m *MockTicketingService) ListLines(ctx context.Context) ([]models.Line, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Line), args.Error(1)
}

func (m *MockTicketingService) GetLine(ctx context.Context, id string) (*models.Line, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Line), args.Error(1)
}

func (m *MockTicketingService) ListLinesByOperator(ctx context.Context, operatorID string) ([]models.Line, error) {
	args := m.Called(ctx, operatorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Line), args.Error(1)
}

func (m *MockTicketingService) GetDeparture(ctx context.Context, id string) (*models.Departure, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Departure), args.Error(1)
}

func (m *MockTicketingService) ListDeparturesByOperator(ctx context.Context, operatorID string) ([]models.Departure, error) {
	args := m.Called(ctx, operatorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Departure), args.Error(1)
}

func (m *MockTicketingService) ListDeparturesByLine(ctx context.Context, lineID string) ([]models.Departure, error) {
	args := m.Called(ctx, lineID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Departure), args.Error(1)
}

func (m *MockTicketingService) FindDeparturesByBusCode(ctx context.Context, busCode string) ([]models.Departure, error) {
	args := m.Called(ctx, busCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Departure), args.Error(1)
}

func (m *MockTicketingService) SellTickets(ctx context.Context, params store.CreateTicketParams) ([]models.Ticket, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Ticket), args.Error(1)
}

func (m *MockTicketingService) ValidateTicket(ctx context.Context, code string) (models.ValidationResult, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(models.ValidationResult), args.Error(1)
}

func (m *MockTicketingService) CancelTicket(ctx context.Context, code string) (*models.Ticket, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ticket), args.Error(1)
}

func (m *MockTicketingService) FindTicketByCode(ctx context.Context, code string) (*models.Ticket, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ticket), args.Error(1)
}

func (m *MockTicketingService) ListTicketsByOperator(ctx context.Context, operatorID string) ([]models.Ticket, error) {
	args := m.Called(ctx, operatorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Ticket), args.Error(1)
}

func (m *MockTicketingService) ListTicketsByClient(ctx context.Context, phone string) ([]models.Ticket, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Ticket), args.Error(1)
}

func (m *MockTicketingService) OperatorStats(ctx context.Context, operatorID string) (*models.OperatorStats, error) {
	args := m.Called(ctx, operatorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OperatorStats), args.Error(1)
}

func (m *MockTicketingService) StartPurchase(ctx context.Context, req service.StartPurchaseRequest) (*service.Purchase, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Purchase), args.Error(1)
}

func (m *MockTicketingService) SubmitPurchasePayment(ctx context.Context, purchaseID, reference string) error {
	args := m.Called(ctx, purchaseID, reference)
	return args.Error(0)
}

func (m *MockTicketingService) CancelPurchase(ctx context.Context, purchaseID string) error {
	args := m.Called(ctx, purchaseID)
	return args.Error(0)
}

func (m *MockTicketingService) GetPurchase(ctx context.Context, purchaseID string) (*service.Purchase, error) {
	args := m.Called(ctx, purchaseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Purchase), args.Error(1)
}
