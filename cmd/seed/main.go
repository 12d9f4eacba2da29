package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"math/rand/v2"
	"os"
	"time"

	"github.com/Domenick1991/flightbook/config"
	"github.com/Domenick1991/flightbook/internal/auth"
	"github.com/Domenick1991/flightbook/internal/domain"
	"github.com/Domenick1991/flightbook/internal/logger"
	"github.com/Domenick1991/flightbook/internal/service/flights"
	"github.com/Domenick1991/flightbook/internal/service/identity"
	"github.com/Domenick1991/flightbook/internal/storage"
	"go.uber.org/zap"
)

func main() {
	count := flag.Int("n", 30, "number of flights to create")
	adminEmail := flag.String("admin-email", "", "create an administrator with this email")
	adminPassword := flag.String("admin-password", "", "password for -admin-email")
	flag.Parse()

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

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store, err := storage.Open(ctx, cfg, lg)
	if err != nil {
		lg.Fatal("open storage", zap.Error(err))
	}
	defer store.Close()

	if *adminEmail != "" {
		tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL())
		ids := identity.NewIdentityService(store.Users, tokens, cfg.Auth.BcryptCost, lg)
		_, err := ids.Register(ctx, identity.RegisterInput{
			Name:     "Administrator",
			Email:    *adminEmail,
			Password: *adminPassword,
			Role:     domain.RoleAdmin,
		})
		switch {
		case errors.Is(err, domain.ErrEmailInUse):
			lg.Info("admin already exists", zap.String("email", *adminEmail))
		case err != nil:
			lg.Fatal("create admin", zap.Error(err))
		}
	}

	catalog := flights.NewFlightService(store.Flights, nil, lg)
	created, err := seedFlights(ctx, catalog, newGenerator(rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))), *count, time.Now())
	if err != nil {
		lg.Fatal("seed flights", zap.Int("created", created), zap.Error(err))
	}
	lg.Info("seeded flights", zap.Int("created", created))
}
