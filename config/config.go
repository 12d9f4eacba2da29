package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMongo    = "mongo"
	StorageDriverSQLite   = "sqlite"

	BrokerKafka    = "kafka"
	BrokerRabbitMQ = "rabbitmq"
	BrokerNone     = "none"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	GRPC     GRPCConfig     `yaml:"grpc"`
	Storage  StorageConfig  `yaml:"storage"`
	Database DatabaseConfig `yaml:"database"`
	Mongo    MongoConfig    `yaml:"mongo"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Redis    RedisConfig    `yaml:"redis"`
	Events   EventsConfig   `yaml:"events"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Booking  BookingConfig  `yaml:"booking"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
	Worker   WorkerConfig   `yaml:"worker"`
}

type HTTPConfig struct {
	Address         string `yaml:"address"`
	SwaggerDir      string `yaml:"swagger_dir"`
	ShutdownSeconds int    `yaml:"shutdown_seconds"`
}

type GRPCConfig struct {
	Address             string `yaml:"address"`
	HealthCheckInterval int    `yaml:"health_check_interval_seconds"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int32  `yaml:"max_conns"`
	MinConns int32  `yaml:"min_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
	// Transactions requires a replica set; without it bookings fall back to compensating writes.
	Transactions bool `yaml:"transactions"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type EventsConfig struct {
	Broker string `yaml:"broker"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	BookingTopic       string   `yaml:"booking_topic"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
}

type RabbitMQConfig struct {
	URL                string `yaml:"url"`
	BookingQueue       string `yaml:"booking_queue"`
	NotificationsQueue string `yaml:"notifications_queue"`
}

type BookingConfig struct {
	MaxPassengers   int `yaml:"max_passengers"`
	FlightsCacheTTL int `yaml:"flights_cache_ttl_seconds"`
}

func (b BookingConfig) CacheTTL() time.Duration {
	return time.Duration(b.FlightsCacheTTL) * time.Second
}

type AuthConfig struct {
	JWTSecret     string `yaml:"jwt_secret"`
	TokenTTLHours int    `yaml:"token_ttl_hours"`
	BcryptCost    int    `yaml:"bcrypt_cost"`
}

func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLHours) * time.Hour
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type WorkerConfig struct {
	Concurrency int `yaml:"concurrency"`
}

func LoadConfig(path string) (*Config, error) {
	// .env is optional; real environment variables still win over it.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		// run from defaults + environment only
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageDriverPostgres, StorageDriverMongo, StorageDriverSQLite:
	default:
		return fmt.Errorf("invalid config: unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Events.Broker {
	case BrokerKafka, BrokerRabbitMQ, BrokerNone:
	default:
		return fmt.Errorf("invalid config: unknown events broker %q", c.Events.Broker)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("invalid config: auth.jwt_secret must not be empty")
	}
	if c.Booking.MaxPassengers <= 0 {
		return errors.New("invalid config: booking.max_passengers must be positive")
	}
	return nil
}

func (c *Config) applyEnv() {
	setString(&c.HTTP.Address, "HTTP_ADDRESS")
	setString(&c.GRPC.Address, "GRPC_ADDRESS")
	setString(&c.Storage.Driver, "STORAGE_DRIVER")
	setString(&c.Database.Host, "DB_HOST")
	setInt(&c.Database.Port, "DB_PORT")
	setString(&c.Database.User, "DB_USER")
	setString(&c.Database.Password, "DB_PASSWORD")
	setString(&c.Database.Name, "DB_NAME")
	setString(&c.Mongo.URI, "MONGO_URI")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.RabbitMQ.URL, "RABBITMQ_URL")
	setString(&c.Auth.JWTSecret, "JWT_SECRET")
	setString(&c.Log.Level, "LOG_LEVEL")
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
}

func (c *Config) applyDefaults() {
	defString(&c.HTTP.Address, ":8080")
	defInt(&c.HTTP.ShutdownSeconds, 5)
	defString(&c.GRPC.Address, ":9090")
	defInt(&c.GRPC.HealthCheckInterval, 10)
	defString(&c.Storage.Driver, StorageDriverPostgres)
	defString(&c.Database.Host, "localhost")
	defInt(&c.Database.Port, 5432)
	defString(&c.Database.SSLMode, "disable")
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = 20
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = 2
	}
	defString(&c.Mongo.URI, "mongodb://localhost:27017")
	defString(&c.Mongo.Database, "flightbook")
	defString(&c.SQLite.Path, "flightbook.db")
	defString(&c.Events.Broker, BrokerNone)
	defString(&c.Kafka.BookingTopic, "booking-events")
	defString(&c.Kafka.NotificationsTopic, "booking-notifications")
	defString(&c.Kafka.GroupID, "flightbook-worker")
	defString(&c.RabbitMQ.BookingQueue, "booking.events")
	defString(&c.RabbitMQ.NotificationsQueue, "booking.notifications")
	defInt(&c.Booking.MaxPassengers, 5)
	defInt(&c.Booking.FlightsCacheTTL, 60)
	defInt(&c.Auth.TokenTTLHours, 7*24)
	defInt(&c.Auth.BcryptCost, 10)
	defString(&c.Log.Level, "info")
	defInt(&c.Worker.Concurrency, 1)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*dst = i
		}
	}
}

func defString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func defInt(dst *int, def int) {
	if *dst == 0 {
		*dst = def
	}
}
