package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/transkin/billetterie/internal/models"
)

const (
	// TaskQueue is the Temporal task queue for purchase workflows.
	TaskQueue = "billetterie-purchase-queue"
	// PurchaseTimeout is how long a purchase may sit unpaid before expiring.
	PurchaseTimeout = 10 * time.Minute
	// PaymentActivityTimeout bounds one simulated provider round trip.
	PaymentActivityTimeout = 10 * time.Second
	// MaxPaymentAttempts is the number of declines before the purchase fails.
	MaxPaymentAttempts = 3
)

// PurchaseWorkflow drives a web-channel purchase: it waits for the client to
// confirm payment in the simulated dialog, charges through the payment
// activity, and issues tickets through the store once a payment clears.
// Agent counter sales never pass through here.
func PurchaseWorkflow(ctx workflow.Context, input models.PurchaseWorkflowInput) (*models.PurchaseWorkflowResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Purchase workflow started", "purchaseId", input.PurchaseID, "departureId", input.DepartureID)

	state := models.PurchaseWorkflowState{
		PurchaseID:  input.PurchaseID,
		Status:      models.PurchaseAwaitingPayment,
		ExpiresAt:   workflow.Now(ctx).Add(PurchaseTimeout),
		LastUpdated: workflow.Now(ctx),
	}
	if err := workflow.SetQueryHandler(ctx, models.QueryPurchaseState, func() (models.PurchaseWorkflowState, error) {
		return state, nil
	}); err != nil {
		return nil, err
	}

	activityCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
		},
	})
	paymentCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: PaymentActivityTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1, // attempts are counted here, not by Temporal
		},
	})

	paymentCh := workflow.GetSignalChannel(ctx, models.SignalSubmitPayment)
	cancelCh := workflow.GetSignalChannel(ctx, models.SignalCancelPurchase)
	expiryTimer := workflow.NewTimer(ctx, PurchaseTimeout)

	for {
		var submitted *models.SubmitPaymentSignal
		cancelled := false
		expired := false

		selector := workflow.NewSelector(ctx)
		selector.AddReceive(paymentCh, func(c workflow.ReceiveChannel, more bool) {
			var signal models.SubmitPaymentSignal
			c.Receive(ctx, &signal)
			submitted = &signal
		})
		selector.AddReceive(cancelCh, func(c workflow.ReceiveChannel, more bool) {
			c.Receive(ctx, nil)
			cancelled = true
		})
		selector.AddFuture(expiryTimer, func(f workflow.Future) {
			expired = true
		})
		selector.Select(ctx)

		switch {
		case cancelled:
			logger.Info("Purchase cancelled by client", "purchaseId", input.PurchaseID)
			state.Status = models.PurchaseCancelled
			state.LastUpdated = workflow.Now(ctx)
			return &models.PurchaseWorkflowResult{Success: false, FailureReason: "cancelled"}, nil

		case expired:
			logger.Info("Purchase expired before payment", "purchaseId", input.PurchaseID)
			state.Status = models.PurchaseExpired
			state.LastUpdated = workflow.Now(ctx)
			return &models.PurchaseWorkflowResult{Success: false, FailureReason: "expired"}, nil

		case submitted != nil:
			state.PaymentAttempts++
			state.Status = models.PurchaseProcessing
			state.LastUpdated = workflow.Now(ctx)

			var payment models.ProcessPaymentOutput
			err := workflow.ExecuteActivity(paymentCtx, "ProcessPayment", models.ProcessPaymentInput{
				PurchaseID:  input.PurchaseID,
				PaymentMode: input.PaymentMode,
				Reference:   submitted.Reference,
				Amount:      state.TotalAmount,
				Attempt:     state.PaymentAttempts,
			}).Get(ctx, &payment)
			if err != nil {
				logger.Error("Payment activity failed", "purchaseId", input.PurchaseID, "error", err)
				state.Status = models.PurchaseAwaitingPayment
				state.FailureReason = "payment provider unavailable"
				state.LastUpdated = workflow.Now(ctx)
				continue
			}

			if !payment.Success {
				logger.Info("Payment declined", "purchaseId", input.PurchaseID,
					"attempt", state.PaymentAttempts, "canRetry", payment.CanRetry)
				state.FailureReason = payment.ErrorMessage
				state.LastUpdated = workflow.Now(ctx)

				if !payment.CanRetry || state.PaymentAttempts >= MaxPaymentAttempts {
					state.Status = models.PurchaseFailed
					return &models.PurchaseWorkflowResult{
						Success:       false,
						FailureReason: payment.ErrorMessage,
					}, nil
				}
				state.Status = models.PurchaseAwaitingPayment
				continue
			}

			state.TransactionID = payment.TransactionID

			var issued models.IssueTicketsOutput
			err = workflow.ExecuteActivity(activityCtx, "IssueTickets", models.IssueTicketsInput{
				DepartureID: input.DepartureID,
				ClientName:  input.ClientName,
				ClientPhone: input.ClientPhone,
				SeatCount:   input.SeatCount,
				PaymentMode: input.PaymentMode,
			}).Get(ctx, &issued)
			if err != nil {
				logger.Error("Ticket issue activity failed", "purchaseId", input.PurchaseID, "error", err)
				state.Status = models.PurchaseFailed
				state.FailureReason = "ticket issue failed"
				state.LastUpdated = workflow.Now(ctx)
				return &models.PurchaseWorkflowResult{Success: false, FailureReason: state.FailureReason}, nil
			}

			if !issued.Success {
				// Paid but the seats are gone; the purchase fails. A real
				// deployment would refund here.
				logger.Warn("Tickets refused after payment", "purchaseId", input.PurchaseID, "reason", issued.ErrorMessage)
				state.Status = models.PurchaseFailed
				state.FailureReason = issued.ErrorMessage
				state.LastUpdated = workflow.Now(ctx)
				return &models.PurchaseWorkflowResult{
					Success:       false,
					FailureReason: issued.ErrorMessage,
				}, nil
			}

			state.Status = models.PurchaseCompleted
			state.TicketCodes = issued.TicketCodes
			state.TotalAmount = issued.TotalAmount
			state.FailureReason = ""
			state.LastUpdated = workflow.Now(ctx)
			logger.Info("Purchase completed", "purchaseId", input.PurchaseID, "tickets", len(issued.TicketCodes))
			return &models.PurchaseWorkflowResult{
				Success:       true,
				TicketCodes:   issued.TicketCodes,
				TransactionID: payment.TransactionID,
			}, nil
		}
	}
}
