package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/transkin/billetterie/internal/models"
)

func TestPublisher_TicketsSoldRoundTrip(t *testing.T) {
	bus := NewGoChannelBus(zap.NewNop())
	defer bus.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	msgs, err := bus.Subscribe(ctx, TopicTicketsSold)
	require.NoError(t, err)

	pub := NewPublisher(bus, zap.NewNop())
	departure := models.Departure{
		ID: "DEP-1", LineID: "LIG-1", BusCode: "BUS-TSC-003",
		TotalSeats: 50, SoldSeats: 12,
	}
	tickets := []models.Ticket{
		{Code: "TRA-00000001", DepartureID: "DEP-1", LineID: "LIG-1", Status: models.TicketValide},
	}
	pub.TicketsSold(departure, tickets)

	select {
	case msg := <-msgs:
		var event TicketsSoldEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &event))
		assert.Equal(t, "DEP-1", event.Departure.ID)
		assert.Equal(t, 38, event.Departure.AvailableSeats())
		require.Len(t, event.Tickets, 1)
		assert.Equal(t, "TRA-00000001", event.Tickets[0].Code)
		msg.Ack()
	case <-ctx.Done():
		t.Fatal("no tickets.sold event received")
	}
}

func TestPublisher_TicketValidatedRoundTrip(t *testing.T) {
	bus := NewGoChannelBus(zap.NewNop())
	defer bus.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	msgs, err := bus.Subscribe(ctx, TopicTicketValidated)
	require.NoError(t, err)

	pub := NewPublisher(bus, zap.NewNop())
	pub.TicketValidated(models.Ticket{Code: "TRA-00000002", Status: models.TicketUtilise})

	select {
	case msg := <-msgs:
		var event TicketValidatedEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &event))
		assert.Equal(t, "TRA-00000002", event.Ticket.Code)
		assert.Equal(t, models.TicketUtilise, event.Ticket.Status)
		msg.Ack()
	case <-ctx.Done():
		t.Fatal("no ticket.validated event received")
	}
}
