package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/transkin/billetterie/internal/models"
	"github.com/transkin/billetterie/internal/store"
	"github.com/transkin/billetterie/internal/workflows"
)

// StartPurchaseRequest starts a web-channel purchase.
type StartPurchaseRequest struct {
	DepartureID string             `json:"departureId"`
	ClientName  string             `json:"clientName"`
	ClientPhone string             `json:"clientPhone"`
	SeatCount   int                `json:"seatCount"`
	PaymentMode models.PaymentMode `json:"paymentMode"`
}

// Purchase is the API view of a running or finished purchase workflow.
type Purchase struct {
	ID    string                       `json:"id"`
	State models.PurchaseWorkflowState `json:"state"`
}

// TicketingService is the API-facing surface over the domain store and the
// purchase workflow.
type TicketingService interface {
	ListOperators(ctx context.Context) ([]models.Operator, error)
	GetOperator(ctx context.Context, id string) (*models.Operator, error)
	ListLines(ctx context.Context) ([]models.Line, error)
	GetLine(ctx context.Context, id string) (*models.Line, error)
	ListLinesByOperator(ctx context.Context, operatorID string) ([]models.Line, error)

	GetDeparture(ctx context.Context, id string) (*models.Departure, error)
	ListDeparturesByOperator(ctx context.Context, operatorID string) ([]models.Departure, error)
	ListDeparturesByLine(ctx context.Context, lineID string) ([]models.Departure, error)
	FindDeparturesByBusCode(ctx context.Context, busCode string) ([]models.Departure, error)

	SellTickets(ctx context.Context, params store.CreateTicketParams) ([]models.Ticket, error)
	ValidateTicket(ctx context.Context, code string) (models.ValidationResult, error)
	CancelTicket(ctx context.Context, code string) (*models.Ticket, error)
	FindTicketByCode(ctx context.Context, code string) (*models.Ticket, error)
	ListTicketsByOperator(ctx context.Context, operatorID string) ([]models.Ticket, error)
	ListTicketsByClient(ctx context.Context, phone string) ([]models.Ticket, error)
	OperatorStats(ctx context.Context, operatorID string) (*models.OperatorStats, error)

	StartPurchase(ctx context.Context, req StartPurchaseRequest) (*Purchase, error)
	SubmitPurchasePayment(ctx context.Context, purchaseID, reference string) error
	CancelPurchase(ctx context.Context, purchaseID string) error
	GetPurchase(ctx context.Context, purchaseID string) (*Purchase, error)
}

type ticketingServiceImpl struct {
	store    store.Store
	temporal client.Client
	logger   *zap.Logger
}

// NewTicketingService creates the service. The Temporal client may be nil
// only when the web purchase endpoints are not served.
func NewTicketingService(st store.Store, temporalClient client.Client, logger *zap.Logger) TicketingService {
	return &ticketingServiceImpl{
		store:    st,
		temporal: temporalClient,
		logger:   logger,
	}
}

func (s *ticketingServiceImpl) ListOperators(ctx context.Context) ([]models.Operator, error) {
	return s.store.ListOperators(ctx)
}

func (s *ticketingServiceImpl) GetOperator(ctx context.Context, id string) (*models.Operator, error) {
	return s.store.GetOperator(ctx, id)
}

func (s *ticketingServiceImpl) ListLines(ctx context.Context) ([]models.Line, error) {
	return s.store.ListLines(ctx)
}

func (s *ticketingServiceImpl) GetLine(ctx context.Context, id string) (*models.Line, error) {
	return s.store.GetLine(ctx, id)
}

func (s *ticketingServiceImpl) ListLinesByOperator(ctx context.Context, operatorID string) ([]models.Line, error) {
	return s.store.ListLinesByOperator(ctx, operatorID)
}

func (s *ticketingServiceImpl) GetDeparture(ctx context.Context, id string) (*models.Departure, error) {
	return s.store.GetDeparture(ctx, id)
}

func (s *ticketingServiceImpl) ListDeparturesByOperator(ctx context.Context, operatorID string) ([]models.Departure, error) {
	return s.store.ListDeparturesByOperator(ctx, operatorID)
}

func (s *ticketingServiceImpl) ListDeparturesByLine(ctx context.Context, lineID string) ([]models.Departure, error) {
	return s.store.ListDeparturesByLine(ctx, lineID)
}

func (s *ticketingServiceImpl) FindDeparturesByBusCode(ctx context.Context, busCode string) ([]models.Departure, error) {
	return s.store.FindDeparturesByBusCode(ctx, busCode)
}

// SellTickets is the agent counter path: a synchronous sale against the
// store, no workflow involved.
func (s *ticketingServiceImpl) SellTickets(ctx context.Context, params store.CreateTicketParams) ([]models.Ticket, error) {
	tickets, err := s.store.CreateTicket(ctx, params)
	if err != nil {
		return nil, err
	}
	s.logger.Info("tickets sold",
		zap.String("departureId", params.DepartureID),
		zap.Int("count", len(tickets)),
		zap.String("channel", string(params.Channel)))
	return tickets, nil
}

func (s *ticketingServiceImpl) ValidateTicket(ctx context.Context, code string) (models.ValidationResult, error) {
	res, err := s.store.ValidateTicket(ctx, code)
	if err != nil {
		return res, err
	}
	s.logger.Info("ticket control",
		zap.String("code", code),
		zap.String("outcome", string(res.Outcome)))
	return res, nil
}

func (s *ticketingServiceImpl) CancelTicket(ctx context.Context, code string) (*models.Ticket, error) {
	return s.store.CancelTicket(ctx, code)
}

func (s *ticketingServiceImpl) FindTicketByCode(ctx context.Context, code string) (*models.Ticket, error) {
	return s.store.FindTicketByCode(ctx, code)
}

func (s *ticketingServiceImpl) ListTicketsByOperator(ctx context.Context, operatorID string) ([]models.Ticket, error) {
	return s.store.ListTicketsByOperator(ctx, operatorID)
}

func (s *ticketingServiceImpl) ListTicketsByClient(ctx context.Context, phone string) ([]models.Ticket, error) {
	return s.store.ListTicketsByClient(ctx, phone)
}

func (s *ticketingServiceImpl) OperatorStats(ctx context.Context, operatorID string) (*models.OperatorStats, error) {
	return s.store.OperatorStats(ctx, operatorID)
}

// StartPurchase validates the departure up front, then hands the purchase to
// the workflow, which owns it until payment succeeds or the purchase dies.
func (s *ticketingServiceImpl) StartPurchase(ctx context.Context, req StartPurchaseRequest) (*Purchase, error) {
	if s.temporal == nil {
		return nil, fmt.Errorf("purchase workflow is not available")
	}

	dep, err := s.store.GetDeparture(ctx, req.DepartureID)
	if err != nil {
		return nil, err
	}
	if dep == nil {
		return nil, store.ErrDepartureNotFound
	}
	if !dep.Sellable() {
		return nil, store.ErrDepartureNotSellable
	}
	if req.SeatCount < 1 {
		return nil, store.ErrInvalidSeatCount
	}
	if dep.AvailableSeats() < req.SeatCount {
		return nil, fmt.Errorf("%w: %d requested, %d available", store.ErrInsufficientSeats, req.SeatCount, dep.AvailableSeats())
	}

	purchaseID := uuid.New().String()[:8]
	input := models.PurchaseWorkflowInput{
		PurchaseID:  purchaseID,
		DepartureID: req.DepartureID,
		ClientName:  req.ClientName,
		ClientPhone: req.ClientPhone,
		SeatCount:   req.SeatCount,
		PaymentMode: req.PaymentMode,
	}

	options := client.StartWorkflowOptions{
		ID:        workflowID(purchaseID),
		TaskQueue: workflows.TaskQueue,
	}
	if _, err := s.temporal.ExecuteWorkflow(ctx, options, "PurchaseWorkflow", input); err != nil {
		return nil, fmt.Errorf("failed to start purchase workflow: %w", err)
	}

	s.logger.Info("purchase started",
		zap.String("purchaseId", purchaseID),
		zap.String("departureId", req.DepartureID),
		zap.Int("seats", req.SeatCount))

	return &Purchase{
		ID: purchaseID,
		State: models.PurchaseWorkflowState{
			PurchaseID: purchaseID,
			Status:     models.PurchaseAwaitingPayment,
		},
	}, nil
}

func (s *ticketingServiceImpl) SubmitPurchasePayment(ctx context.Context, purchaseID, reference string) error {
	return s.temporal.SignalWorkflow(ctx, workflowID(purchaseID), "", models.SignalSubmitPayment,
		models.SubmitPaymentSignal{Reference: reference})
}

func (s *ticketingServiceImpl) CancelPurchase(ctx context.Context, purchaseID string) error {
	return s.temporal.SignalWorkflow(ctx, workflowID(purchaseID), "", models.SignalCancelPurchase, nil)
}

func (s *ticketingServiceImpl) GetPurchase(ctx context.Context, purchaseID string) (*Purchase, error) {
	response, err := s.temporal.QueryWorkflow(ctx, workflowID(purchaseID), "", models.QueryPurchaseState)
	if err != nil {
		return nil, fmt.Errorf("failed to query purchase workflow: %w", err)
	}

	var state models.PurchaseWorkflowState
	if err := response.Get(&state); err != nil {
		return nil, fmt.Errorf("failed to decode purchase state: %w", err)
	}
	return &Purchase{ID: purchaseID, State: state}, nil
}

func workflowID(purchaseID string) string {
	return "purchase-" + purchaseID
}
