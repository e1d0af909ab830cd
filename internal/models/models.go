package models

import "time"

// TransportMode is the kind of vehicle serving a line.
type TransportMode string

const (
	ModeBus    TransportMode = "BUS"
	ModeTrain  TransportMode = "TRAIN"
	ModeBateau TransportMode = "BATEAU"
)

// LineType classifies the route served by a line.
type LineType string

const (
	LineUrbain        LineType = "URBAIN"
	LineInterurbain   LineType = "INTERURBAIN"
	LineInternational LineType = "INTERNATIONAL"
)

// Operator is a transport company owning lines.
type Operator struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Line is a named route between two principal locations, served by one
// operator, with a transport mode and a route classification.
type Line struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	OperatorID      string        `json:"operatorId"`
	Mode            TransportMode `json:"mode"`
	Type            LineType      `json:"type"`
	Origin          string        `json:"origin"`
	Destination     string        `json:"destination"`
	DurationMinutes int           `json:"durationMinutes"`
}

// DepartureStatus is the operational status of a scheduled departure.
type DepartureStatus string

const (
	DeparturePlanifie DepartureStatus = "PLANIFIE"
	DepartureEnCours  DepartureStatus = "EN_COURS"
	DepartureTermine  DepartureStatus = "TERMINE"
	DepartureAnnule   DepartureStatus = "ANNULE"
)

// Departure is one scheduled run of a vehicle on a line at a specific time,
// with fixed seat capacity and price.
type Departure struct {
	ID            string          `json:"id"`
	LineID        string          `json:"lineId"`
	BusCode       string          `json:"busCode"`
	DepartureTime time.Time       `json:"departureTime"`
	ArrivalTime   time.Time       `json:"arrivalTime"`
	Price         int64           `json:"price"` // FC per seat
	Status        DepartureStatus `json:"status"`
	TotalSeats    int             `json:"totalSeats"`
	SoldSeats     int             `json:"soldSeats"`
}

// AvailableSeats is always TotalSeats - SoldSeats.
func (d Departure) AvailableSeats() int {
	return d.TotalSeats - d.SoldSeats
}

// Sellable reports whether tickets can still be issued for this departure.
func (d Departure) Sellable() bool {
	return d.Status == DeparturePlanifie || d.Status == DepartureEnCours
}

// PurchaseChannel is where a ticket was sold.
type PurchaseChannel string

const (
	ChannelAgentPOS PurchaseChannel = "AGENT_POS"
	ChannelWeb      PurchaseChannel = "WEB"
)

// PaymentMode is how a ticket was paid for.
type PaymentMode string

const (
	PaymentCash        PaymentMode = "CASH"
	PaymentMobileMoney PaymentMode = "MOBILE_MONEY"
	PaymentCarte       PaymentMode = "CARTE"
)

// TicketStatus is the lifecycle status of a ticket. Transitions only move
// forward: VALIDE -> UTILISE (control) or VALIDE -> ANNULE (cancellation);
// UTILISE and ANNULE are terminal.
type TicketStatus string

const (
	TicketValide  TicketStatus = "VALIDE"
	TicketUtilise TicketStatus = "UTILISE"
	TicketAnnule  TicketStatus = "ANNULE"
)

// Ticket is proof of purchase for one seat on a departure, uniquely
// identified by a human-scannable code. One record is issued per seat sold.
type Ticket struct {
	ID             string          `json:"id"`
	Code           string          `json:"code"`
	DepartureID    string          `json:"departureId"`
	LineID         string          `json:"lineId"`
	ClientName     string          `json:"clientName"`
	ClientPhone    string          `json:"clientPhone"`
	SeatCount      int             `json:"seatCount"`
	Channel        PurchaseChannel `json:"channel"`
	PaymentMode    PaymentMode     `json:"paymentMode"`
	PricePaid      int64           `json:"pricePaid"`
	PurchasedAt    time.Time       `json:"purchasedAt"`
	Status         TicketStatus    `json:"status"`
	SellingAgentID string          `json:"sellingAgentId,omitempty"`
}

// ValidationOutcome tags the result of a control scan so the controller
// device can tell a stolen code from a reused one.
type ValidationOutcome string

const (
	ValidationOk          ValidationOutcome = "OK"
	ValidationNotFound    ValidationOutcome = "NOT_FOUND"
	ValidationAlreadyUsed ValidationOutcome = "ALREADY_USED"
	ValidationCancelled   ValidationOutcome = "CANCELLED"
)

// ValidationResult is the outcome of validating a ticket code at boarding.
type ValidationResult struct {
	Outcome ValidationOutcome `json:"outcome"`
	Ticket  *Ticket           `json:"ticket,omitempty"`
}

// Valid reports whether the scan flipped a VALIDE ticket to UTILISE.
func (r ValidationResult) Valid() bool {
	return r.Outcome == ValidationOk
}

// OperatorStats are the agent dashboard figures for one operator.
type OperatorStats struct {
	OperatorID        string `json:"operatorId"`
	TicketsSoldToday  int    `json:"ticketsSoldToday"`
	RevenueToday      int64  `json:"revenueToday"`
	DeparturesEnCours int    `json:"departuresEnCours"`
}
