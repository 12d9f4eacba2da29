package booking

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Domenick1991/flightbook/internal/domain"
	"github.com/Domenick1991/flightbook/internal/repository"
	"github.com/Domenick1991/flightbook/internal/service/flights"
	"github.com/Domenick1991/flightbook/internal/storage"
	"github.com/cucumber/godog"
	"go.uber.org/zap"
)

type lifecycleContext struct {
	store   *storage.Store
	catalog *flights.FlightService
	service *BookingService
	flight  *domain.Flight
	booking *domain.Booking
	err     error
}

func (c *lifecycleContext) reset() error {
	if c.store != nil {
		c.store.Close()
	}
	db, err := repository.OpenSQLite(":memory:", zap.NewNop())
	if err != nil {
		return err
	}
	c.store = storage.NewGormStore(db)
	c.catalog = flights.NewFlightService(c.store.Flights, nil, zap.NewNop())
	c.service = NewBookingService(c.store.Bookings, c.catalog, zap.NewNop(), WithUnitOfWork(c.store.UnitOfWork))
	c.flight, c.booking, c.err = nil, nil, nil
	return nil
}

func (c *lifecycleContext) aFlightWithSeatsAndFare(seats int, fare int64) error {
	dep := fixedNow.Add(72 * time.Hour)
	f, err := c.catalog.CreateFlight(context.Background(), domain.FlightSpec{
		FlightNumber:  "FB300",
		Origin:        "Porto",
		Destination:   "Madrid",
		DepartureTime: dep,
		ArrivalTime:   dep.Add(90 * time.Minute),
		FareCents:     fare,
		Capacity:      seats,
	})
	c.flight = f
	return err
}

func (c *lifecycleContext) onlySeatsAreLeft(seats int) error {
	_, err := c.catalog.UpdateFlight(context.Background(), c.flight.ID, domain.FlightPatch{SeatsAvailable: &seats})
	return err
}

func (c *lifecycleContext) userBooksPassengers(user string, n int) error {
	c.booking, c.err = c.service.CreateBooking(context.Background(), CreateBookingInput{
		UserID:     user,
		FlightID:   c.flight.ID,
		Passengers: passengers(n),
	})
	return nil
}

func (c *lifecycleContext) userCancelsTheBooking(user string) error {
	if c.booking == nil {
		return fmt.Errorf("no booking to cancel")
	}
	cancelled, err := c.service.CancelBooking(context.Background(), c.booking.ID, domain.Principal{UserID: user, Role: domain.RoleUser})
	c.err = err
	if err == nil {
		c.booking = cancelled
	}
	return nil
}

func (c *lifecycleContext) anAdministratorSetsSeatsAvailable(seats int) error {
	_, c.err = c.catalog.UpdateFlight(context.Background(), c.flight.ID, domain.FlightPatch{SeatsAvailable: &seats})
	return nil
}

func (c *lifecycleContext) anAdministratorDeletesTheFlight() error {
	c.err = c.catalog.DeleteFlight(context.Background(), c.flight.ID)
	return nil
}

func (c *lifecycleContext) theBookingIsConfirmedWithATotalOf(total int64) error {
	if c.err != nil {
		return c.err
	}
	if c.booking.Status != domain.BookingStatusConfirmed {
		return fmt.Errorf("expected confirmed booking, got %s", c.booking.Status)
	}
	if c.booking.TotalPriceCents != total {
		return fmt.Errorf("expected total %d, got %d", total, c.booking.TotalPriceCents)
	}
	return nil
}

func (c *lifecycleContext) theBookingIsCancelled() error {
	if c.err != nil {
		return c.err
	}
	if c.booking.Status != domain.BookingStatusCancelled {
		return fmt.Errorf("expected cancelled booking, got %s", c.booking.Status)
	}
	return nil
}

func (c *lifecycleContext) theFlightHasSeatsAvailable(seats int) error {
	f, err := c.store.Flights.GetByID(context.Background(), c.flight.ID)
	if err != nil {
		return err
	}
	if f.SeatsAvailable != seats {
		return fmt.Errorf("expected %d seats available, got %d", seats, f.SeatsAvailable)
	}
	return nil
}

func (c *lifecycleContext) theRequestFailsWith(msg string) error {
	if c.err == nil {
		return fmt.Errorf("expected failure %q, request succeeded", msg)
	}
	if !strings.Contains(c.err.Error(), msg) {
		return fmt.Errorf("expected error containing %q, got %q", msg, c.err.Error())
	}
	return nil
}

func (c *lifecycleContext) userHasBookings(user string, n int) error {
	bookings, err := c.service.ListBookingsForUser(context.Background(), user)
	if err != nil {
		return err
	}
	if len(bookings) != n {
		return fmt.Errorf("expected %d bookings, got %d", n, len(bookings))
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &lifecycleContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		return ctx, tc.reset()
	})
	ctx.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if tc.store != nil {
			tc.store.Close()
			tc.store = nil
		}
		return ctx, nil
	})

	ctx.Step(`^a flight with (\d+) seats and a fare of (\d+) cents$`, tc.aFlightWithSeatsAndFare)
	ctx.Step(`^only (\d+) seats? (?:is|are) left on the flight$`, tc.onlySeatsAreLeft)

	ctx.Step(`^user "([^"]*)" books (\d+) passengers$`, tc.userBooksPassengers)
	ctx.Step(`^user "([^"]*)" cancels the booking$`, tc.userCancelsTheBooking)
	ctx.Step(`^an administrator sets (\d+) seats available$`, tc.anAdministratorSetsSeatsAvailable)
	ctx.Step(`^an administrator deletes the flight$`, tc.anAdministratorDeletesTheFlight)

	ctx.Step(`^the booking is confirmed with a total of (\d+) cents$`, tc.theBookingIsConfirmedWithATotalOf)
	ctx.Step(`^the booking is cancelled$`, tc.theBookingIsCancelled)
	ctx.Step(`^the flight has (\d+) seats available$`, tc.theFlightHasSeatsAvailable)
	ctx.Step(`^the request fails with "([^"]*)"$`, tc.theRequestFailsWith)
	ctx.Step(`^user "([^"]*)" has (\d+) bookings$`, tc.userHasBookings)
}

func TestLifecycleFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
