// Package events carries domain events over an in-process watermill pub/sub.
// The store publishes after each successful mutation; subscribers (the
// websocket bridge, future reporting consumers) react without the store
// knowing about them.
package events

import (
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/zap"

	"github.com/transkin/billetterie/internal/models"
)

// Topics for domain events.
const (
	TopicTicketsSold     = "tickets.sold"
	TopicTicketValidated = "ticket.validated"
	TopicTicketCancelled = "ticket.cancelled"
)

// TicketsSoldEvent is published once per sale, covering every ticket the
// sale issued.
type TicketsSoldEvent struct {
	Departure models.Departure `json:"departure"`
	Tickets   []models.Ticket  `json:"tickets"`
}

// TicketValidatedEvent is published when a control scan flips a ticket to
// UTILISE.
type TicketValidatedEvent struct {
	Ticket models.Ticket `json:"ticket"`
}

// TicketCancelledEvent is published when a ticket is cancelled and its seat
// released.
type TicketCancelledEvent struct {
	Ticket    models.Ticket    `json:"ticket"`
	Departure models.Departure `json:"departure"`
}

// NewGoChannelBus creates the in-process pub/sub used by default. Publisher
// and subscriber are the same value.
func NewGoChannelBus(logger *zap.Logger) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64,
	}, NewWatermillLogger(logger))
}

// Publisher forwards store events onto the bus. It implements
// store.EventSink.
type Publisher struct {
	pub    message.Publisher
	logger *zap.Logger
}

// NewPublisher creates a Publisher over any watermill publisher.
func NewPublisher(pub message.Publisher, logger *zap.Logger) *Publisher {
	return &Publisher{pub: pub, logger: logger}
}

func (p *Publisher) TicketsSold(departure models.Departure, tickets []models.Ticket) {
	p.publish(TopicTicketsSold, TicketsSoldEvent{Departure: departure, Tickets: tickets})
}

func (p *Publisher) TicketValidated(ticket models.Ticket) {
	p.publish(TopicTicketValidated, TicketValidatedEvent{Ticket: ticket})
}

func (p *Publisher) TicketCancelled(ticket models.Ticket, departure models.Departure) {
	p.publish(TopicTicketCancelled, TicketCancelledEvent{Ticket: ticket, Departure: departure})
}

func (p *Publisher) publish(topic string, event interface{}) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("event marshal failed", zap.String("topic", topic), zap.Error(err))
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := p.pub.Publish(topic, msg); err != nil {
		p.logger.Error("event publish failed", zap.String("topic", topic), zap.Error(err))
	}
}
