package models

import "time"

// PurchaseStatus is the status of a web purchase workflow.
type PurchaseStatus string

const (
	PurchaseAwaitingPayment PurchaseStatus = "awaiting_payment"
	PurchaseProcessing      PurchaseStatus = "processing"
	PurchaseCompleted       PurchaseStatus = "completed"
	PurchaseFailed          PurchaseStatus = "failed"
	PurchaseExpired         PurchaseStatus = "expired"
	PurchaseCancelled       PurchaseStatus = "cancelled"
)

// PurchaseWorkflowInput starts a web-channel purchase.
type PurchaseWorkflowInput struct {
	PurchaseID  string      `json:"purchaseId"`
	DepartureID string      `json:"departureId"`
	ClientName  string      `json:"clientName"`
	ClientPhone string      `json:"clientPhone"`
	SeatCount   int         `json:"seatCount"`
	PaymentMode PaymentMode `json:"paymentMode"`
}

// PurchaseWorkflowState is the queryable state of a purchase workflow.
type PurchaseWorkflowState struct {
	PurchaseID      string         `json:"purchaseId"`
	Status          PurchaseStatus `json:"status"`
	PaymentAttempts int            `json:"paymentAttempts"`
	TicketCodes     []string       `json:"ticketCodes,omitempty"`
	TotalAmount     int64          `json:"totalAmount"`
	TransactionID   string         `json:"transactionId,omitempty"`
	FailureReason   string         `json:"failureReason,omitempty"`
	ExpiresAt       time.Time      `json:"expiresAt"`
	LastUpdated     time.Time      `json:"lastUpdated"`
}

// PurchaseWorkflowResult is the final result of a purchase workflow.
type PurchaseWorkflowResult struct {
	Success       bool     `json:"success"`
	TicketCodes   []string `json:"ticketCodes,omitempty"`
	TransactionID string   `json:"transactionId,omitempty"`
	FailureReason string   `json:"failureReason,omitempty"`
}

// Signals and queries for the purchase workflow.
const (
	SignalSubmitPayment  = "payment-submitted"
	SignalCancelPurchase = "purchase-cancelled"
	QueryPurchaseState   = "get_state"
)

// SubmitPaymentSignal is sent when the client confirms payment in the
// simulated payment dialog.
type SubmitPaymentSignal struct {
	Reference string `json:"reference"`
}

// ProcessPaymentInput is the input of the simulated payment activity.
type ProcessPaymentInput struct {
	PurchaseID  string      `json:"purchaseId"`
	PaymentMode PaymentMode `json:"paymentMode"`
	Reference   string      `json:"reference"`
	Amount      int64       `json:"amount"`
	Attempt     int         `json:"attempt"`
}

// ProcessPaymentOutput is the result of the simulated payment activity.
type ProcessPaymentOutput struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transactionId,omitempty"`
	ErrorMessage  string `json:"errorMessage,omitempty"`
	CanRetry      bool   `json:"canRetry"`
}

// IssueTicketsInput is the input of the ticket issuing activity.
type IssueTicketsInput struct {
	DepartureID string      `json:"departureId"`
	ClientName  string      `json:"clientName"`
	ClientPhone string      `json:"clientPhone"`
	SeatCount   int         `json:"seatCount"`
	PaymentMode PaymentMode `json:"paymentMode"`
}

// IssueTicketsOutput is the result of the ticket issuing activity.
type IssueTicketsOutput struct {
	Success      bool     `json:"success"`
	TicketCodes  []string `json:"ticketCodes,omitempty"`
	TotalAmount  int64    `json:"totalAmount"`
	ErrorMessage string   `json:"errorMessage,omitempty"`
}
