package activities

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"

	"github.com/transkin/billetterie/internal/models"
	"github.com/transkin/billetterie/internal/store"
)

const (
	// PaymentDeclineRate is the simulated share of payments declined by the
	// provider.
	PaymentDeclineRate = 0.15
	// PaymentProcessingDelay stands in for the round trip to a real payment
	// provider.
	PaymentProcessingDelay = 500 * time.Millisecond
)

// Activities bundles the purchase activities around the domain store.
type Activities struct {
	store store.Store
}

// NewActivities creates the activity set backed by the given store.
func NewActivities(st store.Store) *Activities {
	return &Activities{store: st}
}

// ProcessPayment simulates the payment provider round trip for a web
// purchase. Declines are reported in the output, not as activity errors, so
// the workflow can count attempts.
func (a *Activities) ProcessPayment(ctx context.Context, input models.ProcessPaymentInput) (*models.ProcessPaymentOutput, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Processing payment", "purchaseId", input.PurchaseID, "mode", input.PaymentMode, "attempt", input.Attempt)

	// Cash is only accepted at agent counters, never on the web channel.
	if input.PaymentMode == models.PaymentCash {
		return &models.ProcessPaymentOutput{
			Success:      false,
			ErrorMessage: "cash payment is only available at agent counters",
			CanRetry:     false,
		}, nil
	}
	if input.PaymentMode != models.PaymentMobileMoney && input.PaymentMode != models.PaymentCarte {
		return &models.ProcessPaymentOutput{
			Success:      false,
			ErrorMessage: "unknown payment mode",
			CanRetry:     false,
		}, nil
	}
	if strings.TrimSpace(input.Reference) == "" {
		return &models.ProcessPaymentOutput{
			Success:      false,
			ErrorMessage: "payment reference is required",
			CanRetry:     true,
		}, nil
	}

	time.Sleep(PaymentProcessingDelay)

	if rand.Float64() < PaymentDeclineRate {
		logger.Warn("Payment declined (simulated)", "purchaseId", input.PurchaseID)
		return &models.ProcessPaymentOutput{
			Success:      false,
			ErrorMessage: "payment declined by provider",
			CanRetry:     true,
		}, nil
	}

	transactionID := "TXN-" + strings.ToUpper(uuid.New().String()[:8])
	logger.Info("Payment confirmed", "purchaseId", input.PurchaseID, "transactionId", transactionID)
	return &models.ProcessPaymentOutput{
		Success:       true,
		TransactionID: transactionID,
	}, nil
}

// IssueTickets creates the tickets for a paid purchase through the domain
// store. Store precondition failures (sold out in the meantime, departure
// withdrawn) come back as business failures, not activity errors.
func (a *Activities) IssueTickets(ctx context.Context, input models.IssueTicketsInput) (*models.IssueTicketsOutput, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Issuing tickets", "departureId", input.DepartureID, "seats", input.SeatCount)

	tickets, err := a.store.CreateTicket(ctx, store.CreateTicketParams{
		ClientName:  input.ClientName,
		ClientPhone: input.ClientPhone,
		DepartureID: input.DepartureID,
		SeatCount:   input.SeatCount,
		Channel:     models.ChannelWeb,
		PaymentMode: input.PaymentMode,
	})
	if err != nil {
		if errors.Is(err, store.ErrInsufficientSeats) ||
			errors.Is(err, store.ErrDepartureNotFound) ||
			errors.Is(err, store.ErrDepartureNotSellable) ||
			errors.Is(err, store.ErrInvalidSeatCount) ||
			errors.Is(err, store.ErrMissingClientInfo) {
			logger.Warn("Ticket issue refused", "departureId", input.DepartureID, "error", err)
			return &models.IssueTicketsOutput{
				Success:      false,
				ErrorMessage: err.Error(),
			}, nil
		}
		return nil, err
	}

	codes := make([]string, len(tickets))
	var total int64
	for i, t := range tickets {
		codes[i] = t.Code
		total += t.PricePaid
	}

	logger.Info("Tickets issued", "departureId", input.DepartureID, "count", len(codes))
	return &models.IssueTicketsOutput{
		Success:     true,
		TicketCodes: codes,
		TotalAmount: total,
	}, nil
}
