package events

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"

	"github.com/transkin/billetterie/internal/store"
	"github.com/transkin/billetterie/internal/websocket"
)

// Bridge subscribes to domain events and forwards them to the websocket hub
// so operator dashboards update live. The operator owning an event is
// resolved through the store, since tickets only carry their line.
type Bridge struct {
	sub    message.Subscriber
	store  store.Store
	hub    *websocket.Hub
	logger *zap.Logger
}

// NewBridge wires a subscriber to the hub.
func NewBridge(sub message.Subscriber, st store.Store, hub *websocket.Hub, logger *zap.Logger) *Bridge {
	return &Bridge{sub: sub, store: st, hub: hub, logger: logger}
}

// Run subscribes to every topic and forwards messages until the context is
// cancelled.
func (b *Bridge) Run(ctx context.Context) error {
	sold, err := b.sub.Subscribe(ctx, TopicTicketsSold)
	if err != nil {
		return err
	}
	validated, err := b.sub.Subscribe(ctx, TopicTicketValidated)
	if err != nil {
		return err
	}
	cancelled, err := b.sub.Subscribe(ctx, TopicTicketCancelled)
	if err != nil {
		return err
	}

	go b.consume(ctx, sold, b.handleSold)
	go b.consume(ctx, validated, b.handleValidated)
	go b.consume(ctx, cancelled, b.handleCancelled)
	return nil
}

func (b *Bridge) consume(ctx context.Context, msgs <-chan *message.Message, handle func(context.Context, *message.Message)) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			handle(ctx, msg)
			msg.Ack()
		}
	}
}

func (b *Bridge) handleSold(ctx context.Context, msg *message.Message) {
	var event TicketsSoldEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		b.logger.Error("bad tickets.sold payload", zap.Error(err))
		return
	}

	operatorID := b.operatorForLine(ctx, event.Departure.LineID)
	if operatorID == "" {
		return
	}

	codes := make([]string, len(event.Tickets))
	for i, t := range event.Tickets {
		codes[i] = t.Code
	}
	b.hub.Broadcast(&websocket.Message{
		Type:           websocket.MessageTypeTicketsSold,
		OperatorID:     operatorID,
		DepartureID:    event.Departure.ID,
		BusCode:        event.Departure.BusCode,
		TicketCodes:    codes,
		SoldSeats:      event.Departure.SoldSeats,
		AvailableSeats: event.Departure.AvailableSeats(),
	})
}

func (b *Bridge) handleValidated(ctx context.Context, msg *message.Message) {
	var event TicketValidatedEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		b.logger.Error("bad ticket.validated payload", zap.Error(err))
		return
	}

	operatorID := b.operatorForLine(ctx, event.Ticket.LineID)
	if operatorID == "" {
		return
	}
	b.hub.Broadcast(&websocket.Message{
		Type:        websocket.MessageTypeTicketValidated,
		OperatorID:  operatorID,
		DepartureID: event.Ticket.DepartureID,
		TicketCodes: []string{event.Ticket.Code},
	})
}

func (b *Bridge) handleCancelled(ctx context.Context, msg *message.Message) {
	var event TicketCancelledEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		b.logger.Error("bad ticket.cancelled payload", zap.Error(err))
		return
	}

	operatorID := b.operatorForLine(ctx, event.Ticket.LineID)
	if operatorID == "" {
		return
	}
	b.hub.Broadcast(&websocket.Message{
		Type:           websocket.MessageTypeTicketCancelled,
		OperatorID:     operatorID,
		DepartureID:    event.Departure.ID,
		BusCode:        event.Departure.BusCode,
		TicketCodes:    []string{event.Ticket.Code},
		SoldSeats:      event.Departure.SoldSeats,
		AvailableSeats: event.Departure.AvailableSeats(),
	})
}

func (b *Bridge) operatorForLine(ctx context.Context, lineID string) string {
	line, err := b.store.GetLine(ctx, lineID)
	if err != nil || line == nil {
		b.logger.Warn("event for unknown line", zap.String("lineId", lineID), zap.Error(err))
		return ""
	}
	return line.OperatorID
}
