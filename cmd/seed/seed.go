package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/Domenick1991/flightbook/internal/domain"
)

var (
	airlines = []string{
		"British Airways", "Emirates", "Lufthansa", "Singapore Airlines",
		"Qatar Airways", "Air France", "American Airlines", "United Airlines",
		"Delta Air Lines", "Turkish Airlines",
	}
	cities = []string{
		"New York", "London", "Paris", "Tokyo", "Sydney",
		"Dubai", "Singapore", "Hong Kong", "Los Angeles", "Frankfurt",
		"Toronto", "Barcelona", "Rome", "Bangkok", "Istanbul",
		"Amsterdam", "San Francisco", "Chicago", "Seoul", "Mumbai",
	}
	aircraft = []string{
		"Boeing 737", "Boeing 747", "Boeing 777", "Boeing 787 Dreamliner",
		"Airbus A320", "Airbus A330", "Airbus A350", "Airbus A380",
	}
	durationMinutes = []int{0, 15, 30, 45}
)

type flightCreator interface {
	CreateFlight(ctx context.Context, spec domain.FlightSpec) (*domain.Flight, error)
}

type generator struct {
	r *rand.Rand
}

func newGenerator(r *rand.Rand) *generator {
	return &generator{r: r}
}

// between returns a value in [lo, hi].
func (g *generator) between(lo, hi int) int {
	return lo + g.r.IntN(hi-lo+1)
}

func (g *generator) pick(list []string) string {
	return list[g.r.IntN(len(list))]
}

// flight builds a random, fully available flight departing 1-60 days after now.
func (g *generator) flight(now time.Time) domain.FlightSpec {
	origin := g.pick(cities)
	destination := g.pick(cities)
	for destination == origin {
		destination = g.pick(cities)
	}

	day := now.UTC().Truncate(24*time.Hour).AddDate(0, 0, g.between(1, 60))
	departure := day.Add(time.Duration(g.between(0, 23))*time.Hour + time.Duration(g.between(0, 59))*time.Minute)
	duration := time.Duration(g.between(2, 12))*time.Hour +
		time.Duration(durationMinutes[g.r.IntN(len(durationMinutes))])*time.Minute

	airline := g.pick(airlines)
	return domain.FlightSpec{
		FlightNumber:  fmt.Sprintf("%s-%04d", airlineCode(airline), g.between(1, 9999)),
		Airline:       airline,
		Aircraft:      g.pick(aircraft),
		Origin:        origin,
		Destination:   destination,
		DepartureTime: departure,
		ArrivalTime:   departure.Add(duration),
		FareCents:     int64(g.between(50, 1000))*100 + int64(g.between(0, 99)),
		Capacity:      g.between(100, 300),
	}
}

// airlineCode turns "Singapore Airlines" into "SA".
func airlineCode(airline string) string {
	var b strings.Builder
	for _, w := range strings.Fields(airline) {
		if b.Len() == 3 {
			break
		}
		b.WriteString(strings.ToUpper(w[:1]))
	}
	return b.String()
}

func seedFlights(ctx context.Context, catalog flightCreator, g *generator, n int, now time.Time) (int, error) {
	for i := 0; i < n; i++ {
		if _, err := catalog.CreateFlight(ctx, g.flight(now)); err != nil {
			return i, fmt.Errorf("flight %d: %w", i+1, err)
		}
	}
	return n, nil
}
