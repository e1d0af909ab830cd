package store

import (
	"time"

	"github.com/transkin/billetterie/internal/models"
)

// Seed loads the demonstration data set: two operators with bus, train and
// boat lines, and a day of departures behind the bus codes printed on the
// vehicles. Departure/seeding is an admin concern; the demo set stands in
// for it.
func Seed(s *MemoryStore) {
	now := time.Now()

	operators := []models.Operator{
		{ID: "OP-TSC", Name: "TRANSCO - Société des Transports du Congo"},
		{ID: "OP-TAE", Name: "Trans Académie Express"},
	}
	for _, op := range operators {
		s.AddOperator(op)
	}

	lines := []models.Line{
		{
			ID: "LIG-001", Name: "Gare Centrale - UPN", OperatorID: "OP-TSC",
			Mode: models.ModeBus, Type: models.LineUrbain,
			Origin: "Gare Centrale", Destination: "UPN", DurationMinutes: 55,
		},
		{
			ID: "LIG-002", Name: "Victoire - N'djili Aéroport", OperatorID: "OP-TSC",
			Mode: models.ModeBus, Type: models.LineUrbain,
			Origin: "Rond-point Victoire", Destination: "Aéroport de N'djili", DurationMinutes: 70,
		},
		{
			ID: "LIG-003", Name: "Kinshasa - Matadi", OperatorID: "OP-TSC",
			Mode: models.ModeTrain, Type: models.LineInterurbain,
			Origin: "Kinshasa Est", Destination: "Matadi", DurationMinutes: 420,
		},
		{
			ID: "LIG-004", Name: "Beach Ngobila - Brazzaville", OperatorID: "OP-TSC",
			Mode: models.ModeBateau, Type: models.LineInternational,
			Origin: "Beach Ngobila", Destination: "Brazzaville", DurationMinutes: 25,
		},
		{
			ID: "LIG-005", Name: "Campus UNIKIN - Gombe", OperatorID: "OP-TAE",
			Mode: models.ModeBus, Type: models.LineUrbain,
			Origin: "Campus UNIKIN", Destination: "Gombe", DurationMinutes: 65,
		},
	}
	for _, l := range lines {
		s.AddLine(l)
	}

	departures := []models.Departure{
		{
			ID: "DEP-001", LineID: "LIG-001", BusCode: "BUS-TSC-003",
			DepartureTime: now.Add(2 * time.Hour), ArrivalTime: now.Add(2*time.Hour + 55*time.Minute),
			Price: 1500, Status: models.DeparturePlanifie, TotalSeats: 50,
		},
		{
			ID: "DEP-002", LineID: "LIG-001", BusCode: "BUS-TSC-003",
			DepartureTime: now.Add(5 * time.Hour), ArrivalTime: now.Add(5*time.Hour + 55*time.Minute),
			Price: 1500, Status: models.DeparturePlanifie, TotalSeats: 50,
		},
		{
			ID: "DEP-003", LineID: "LIG-002", BusCode: "BUS-TSC-004",
			DepartureTime: now.Add(3 * time.Hour), ArrivalTime: now.Add(3*time.Hour + 70*time.Minute),
			Price: 2000, Status: models.DeparturePlanifie, TotalSeats: 50,
		},
		{
			ID: "DEP-004", LineID: "LIG-002", BusCode: "BUS-TSC-102",
			DepartureTime: now.Add(30 * time.Minute), ArrivalTime: now.Add(30*time.Minute + 70*time.Minute),
			Price: 2000, Status: models.DepartureEnCours, TotalSeats: 50, SoldSeats: 42,
		},
		{
			ID: "DEP-005", LineID: "LIG-003", BusCode: "BUS-TSC-201",
			DepartureTime: now.Add(24 * time.Hour), ArrivalTime: now.Add(31 * time.Hour),
			Price: 25000, Status: models.DeparturePlanifie, TotalSeats: 320, SoldSeats: 118,
		},
		{
			ID: "DEP-006", LineID: "LIG-004", BusCode: "BAT-TSC-001",
			DepartureTime: now.Add(4 * time.Hour), ArrivalTime: now.Add(4*time.Hour + 25*time.Minute),
			Price: 18000, Status: models.DeparturePlanifie, TotalSeats: 120, SoldSeats: 37,
		},
		{
			ID: "DEP-007", LineID: "LIG-005", BusCode: "BUS-TAE-001",
			DepartureTime: now.Add(90 * time.Minute), ArrivalTime: now.Add(90*time.Minute + 65*time.Minute),
			Price: 1000, Status: models.DeparturePlanifie, TotalSeats: 60, SoldSeats: 12,
		},
	}
	for _, d := range departures {
		s.AddDeparture(d)
	}
}
