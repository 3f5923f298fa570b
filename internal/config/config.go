package config

import (
	"errors"
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// Config stores service settings.
type Config struct {
	Port      int
	LogLevel  string
	DB        DB
	Store     Store
	Auth      Auth
	Kafka     Kafka
	Redis     Redis
	Profiles  ProfilesGateway
	RateLimit RateLimit
	Dispatch  Dispatch
	Fanout    Fanout
}

// DB stores Postgres connection settings.
type DB struct {
	Host string
	Port string
	User string
	Pass string
	Name string
}

// DSN returns a libpq-style connection URL for pgx.
func (d DB) DSN() string {
	return d.url("postgres")
}

// MigrateURL returns the same database addressed through golang-migrate's pgx v5 driver.
func (d DB) MigrateURL() string {
	return d.url("pgx5")
}

func (d DB) url(scheme string) string {
	u := url.URL{
		Scheme:   scheme,
		User:     url.UserPassword(d.User, d.Pass),
		Host:     net.JoinHostPort(d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// Store selects the persistence backend.
type Store struct {
	Driver string // "postgres" or "memory"
}

// Auth stores bearer token verification settings.
type Auth struct {
	JWTSecret string
	Issuer    string
}

// Kafka stores broker settings; empty Brokers disables Kafka.
type Kafka struct {
	Brokers     []string
	EventsTopic string
	TripsTopic  string
	GroupID     string
}

// Enabled reports whether Kafka has enough settings to start.
func (k Kafka) Enabled() bool {
	return len(k.Brokers) > 0
}

// Redis stores profile cache settings; empty Addr disables the cache.
type Redis struct {
	Addr       string
	ProfileTTL time.Duration
}

// ProfilesGateway stores driver profile service settings; empty Addr disables lookups.
type ProfilesGateway struct {
	Addr        string
	Timeout     time.Duration
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// RateLimit stores per-caller rate limiter settings.
type RateLimit struct {
	Enabled    bool
	Rate       float64
	Burst      int
	TTL        time.Duration
	MaxBuckets int
}

// Dispatch stores bidding core settings.
type Dispatch struct {
	OperationTimeout time.Duration
	StaleAfter       time.Duration
	ExpirySchedule   string
}

// Fanout stores real-time channel settings.
type Fanout struct {
	SubscriberBuffer int
}

// Load reads configuration from .env (if present), then the environment, then flags.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("warning: .env not loaded: %v", err)
	}

	cfg := &Config{
		Port:      DefaultPort(),
		LogLevel:  envOr("LOG_LEVEL", "info"),
		DB:        loadDB(),
		Store:     Store{Driver: strings.ToLower(envOr("STORE_DRIVER", defaultStoreDriver))},
		Auth:      Auth{JWTSecret: os.Getenv("JWT_SECRET"), Issuer: os.Getenv("JWT_ISSUER")},
		Kafka:     loadKafka(),
		Redis:     Redis{Addr: os.Getenv("REDIS_ADDR")},
		Profiles:  DefaultProfilesGateway(),
		RateLimit: DefaultRateLimit(),
		Dispatch:  DefaultDispatch(),
		Fanout:    DefaultFanout(),
	}
	cfg.Profiles.Addr = os.Getenv("PROFILES_ADDR")

	var err error
	if cfg.Port, err = envInt("PORT", cfg.Port); err != nil {
		return nil, err
	}
	if _, err := strconv.Atoi(cfg.DB.Port); err != nil {
		return nil, fmt.Errorf("invalid POSTGRES_PORT %q: %w", cfg.DB.Port, err)
	}
	if cfg.Redis.ProfileTTL, err = envDuration("REDIS_PROFILE_TTL", defaultProfileTTL); err != nil {
		return nil, err
	}
	if cfg.Profiles.Timeout, err = envDuration("PROFILES_TIMEOUT", cfg.Profiles.Timeout); err != nil {
		return nil, err
	}
	if cfg.RateLimit.Enabled, err = envBool("RATE_LIMIT_ENABLED", cfg.RateLimit.Enabled); err != nil {
		return nil, err
	}
	if cfg.RateLimit.Rate, err = envFloat("RATE_LIMIT_RPS", cfg.RateLimit.Rate); err != nil {
		return nil, err
	}
	if cfg.RateLimit.Burst, err = envInt("RATE_LIMIT_BURST", cfg.RateLimit.Burst); err != nil {
		return nil, err
	}
	if cfg.Dispatch.OperationTimeout, err = envDuration("DISPATCH_OPERATION_TIMEOUT", cfg.Dispatch.OperationTimeout); err != nil {
		return nil, err
	}
	if cfg.Dispatch.StaleAfter, err = envDuration("DISPATCH_STALE_AFTER", cfg.Dispatch.StaleAfter); err != nil {
		return nil, err
	}
	cfg.Dispatch.ExpirySchedule = envOr("DISPATCH_EXPIRY_SCHEDULE", cfg.Dispatch.ExpirySchedule)
	if cfg.Fanout.SubscriberBuffer, err = envInt("FANOUT_SUBSCRIBER_BUFFER", cfg.Fanout.SubscriberBuffer); err != nil {
		return nil, err
	}

	pflag.IntVarP(&cfg.Port, "port", "p", cfg.Port, "port to listen on")
	pflag.StringVar(&cfg.Store.Driver, "store", cfg.Store.Driver, "store driver: postgres or memory")
	if err := pflag.CommandLine.Parse(os.Args[1:]); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.Store.Driver != StoreDriverPostgres && c.Store.Driver != StoreDriverMemory {
		return fmt.Errorf("invalid store driver: %q", c.Store.Driver)
	}
	if c.Dispatch.OperationTimeout <= 0 {
		return fmt.Errorf("invalid dispatch operation timeout: %s", c.Dispatch.OperationTimeout)
	}
	if c.Fanout.SubscriberBuffer <= 0 {
		return fmt.Errorf("invalid fan-out subscriber buffer: %d", c.Fanout.SubscriberBuffer)
	}
	return nil
}

func loadDB() DB {
	db := DefaultDB()
	db.Host = envOr("POSTGRES_HOST", db.Host)
	db.Port = envOr("POSTGRES_PORT", db.Port)
	db.User = envOr("POSTGRES_USER", db.User)
	db.Pass = envOr("POSTGRES_PASSWORD", db.Pass)
	db.Name = envOr("POSTGRES_DB", db.Name)
	return db
}

func loadKafka() Kafka {
	k := DefaultKafka()
	if raw := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				k.Brokers = append(k.Brokers, b)
			}
		}
	}
	k.EventsTopic = envOr("KAFKA_EVENTS_TOPIC", k.EventsTopic)
	k.TripsTopic = envOr("KAFKA_TRIPS_TOPIC", k.TripsTopic)
	k.GroupID = envOr("KAFKA_GROUP_ID", k.GroupID)
	return k
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return f, nil
}

func envBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return b, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}
