package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/flightbook/api"
	"github.com/Domenick1991/flightbook/config"
	"github.com/Domenick1991/flightbook/internal/auth"
	"github.com/Domenick1991/flightbook/internal/bootstrap"
	"github.com/Domenick1991/flightbook/internal/cache"
	"github.com/Domenick1991/flightbook/internal/events"
	"github.com/Domenick1991/flightbook/internal/kafka"
	"github.com/Domenick1991/flightbook/internal/logger"
	"github.com/Domenick1991/flightbook/internal/rabbitmq"
	"github.com/Domenick1991/flightbook/internal/service/booking"
	"github.com/Domenick1991/flightbook/internal/service/flights"
	"github.com/Domenick1991/flightbook/internal/service/identity"
	"github.com/Domenick1991/flightbook/internal/storage"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	lg, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer lg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg, lg)
	if err != nil {
		lg.Fatal("open storage", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	defer store.Close()

	var flightCache flights.FlightCache
	if cfg.Redis.Enabled {
		redisCache := cache.NewRedisCache(cfg.Redis, cfg.Booking.CacheTTL())
		defer redisCache.Close()
		if err := redisCache.Ping(ctx); err != nil {
			lg.Warn("redis unavailable, flight cache disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		} else {
			flightCache = redisCache
		}
	}

	publisher, err := newPublisher(ctx, cfg, lg)
	if err != nil {
		lg.Fatal("init event publisher", zap.String("broker", cfg.Events.Broker), zap.Error(err))
	}
	defer publisher.Close()

	flightService := flights.NewFlightService(store.Flights, flightCache, lg.Named("flights"))

	opts := []booking.BookingServiceOption{
		booking.WithPublisher(publisher),
		booking.WithMaxPassengers(cfg.Booking.MaxPassengers),
	}
	if store.UnitOfWork != nil {
		opts = append(opts, booking.WithUnitOfWork(store.UnitOfWork))
	} else {
		lg.Warn("storage has no transactions, bookings use compensating writes", zap.String("driver", cfg.Storage.Driver))
	}
	bookingService := booking.NewBookingService(store.Bookings, flightService, lg.Named("booking"), opts...)

	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL())
	identityService := identity.NewIdentityService(store.Users, tokens, cfg.Auth.BcryptCost, lg.Named("identity"))

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.RouterDeps{
		Flights:    flightService,
		Bookings:   bookingService,
		Identity:   identityService,
		Health:     store.Ping,
		SwaggerDir: cfg.HTTP.SwaggerDir,
		Logger:     lg.Named("http"),
	})

	if err := bootstrap.Run(ctx, cfg, router, store.Ping, lg); err != nil {
		lg.Fatal("server error", zap.Error(err))
	}
}

// newPublisher connects the configured broker. With broker "none" events are dropped.
func newPublisher(ctx context.Context, cfg *config.Config, lg *zap.Logger) (events.Publisher, error) {
	switch cfg.Events.Broker {
	case config.BrokerKafka:
		producer := kafka.NewProducer(cfg.Kafka, lg.Named("kafka"))
		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := producer.CheckConnection(checkCtx); err != nil {
			// the writer reconnects on its own; publishing failures are logged per event
			lg.Warn("kafka not reachable at startup", zap.Strings("brokers", cfg.Kafka.Brokers), zap.Error(err))
		}
		return producer, nil
	case config.BrokerRabbitMQ:
		conn, err := rabbitmq.NewConn(cfg.RabbitMQ.URL)
		if err != nil {
			return nil, err
		}
		publisher, err := rabbitmq.NewPublisher(conn, cfg.RabbitMQ, lg.Named("rabbitmq"))
		if err != nil {
			conn.Close()
			return nil, err
		}
		return publisher, nil
	default:
		return events.NopPublisher{}, nil
	}
}
