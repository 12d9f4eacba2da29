package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/Domenick1991/flightbook/config"
	"github.com/Domenick1991/flightbook/internal/email"
	"github.com/Domenick1991/flightbook/internal/events"
	"github.com/Domenick1991/flightbook/internal/kafka"
	"github.com/Domenick1991/flightbook/internal/logger"
	"github.com/Domenick1991/flightbook/internal/rabbitmq"
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

	sender := email.NewSender(lg.Named("email"))

	var wg sync.WaitGroup
	for i := 0; i < cfg.Worker.Concurrency; i++ {
		consumer, err := newConsumer(cfg, lg)
		if err != nil {
			lg.Fatal("init consumer", zap.String("broker", cfg.Events.Broker), zap.Error(err))
		}
		defer consumer.Close()

		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if err := consumer.Consume(ctx, sender.Send); err != nil {
				lg.Error("consumer stopped", zap.Int("consumer", id), zap.Error(err))
				stop()
			}
		}(i)
	}

	lg.Info("worker started", zap.String("broker", cfg.Events.Broker), zap.Int("consumers", cfg.Worker.Concurrency))
	wg.Wait()
	lg.Info("worker stopped")
}

func newConsumer(cfg *config.Config, lg *zap.Logger) (events.Consumer, error) {
	switch cfg.Events.Broker {
	case config.BrokerKafka:
		return kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic, lg.Named("kafka")), nil
	case config.BrokerRabbitMQ:
		conn, err := rabbitmq.NewConn(cfg.RabbitMQ.URL)
		if err != nil {
			return nil, err
		}
		return rabbitmq.NewConsumer(conn, cfg.RabbitMQ.NotificationsQueue, lg.Named("rabbitmq")), nil
	default:
		return nil, errors.New("events.broker is none, nothing to consume")
	}
}
