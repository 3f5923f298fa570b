package config

import "time"

// Store drivers.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

const (
	defaultPort        = 8080
	defaultStoreDriver = StoreDriverPostgres
	defaultProfileTTL  = 5 * time.Minute
)

var defaultDB = DB{
	Host: "127.0.0.1",
	Port: "5432",
	User: "myuser",
	Pass: "mypassword",
	Name: "dispatch",
}

var defaultKafka = Kafka{
	EventsTopic: "dispatch.events",
	TripsTopic:  "dispatch.trips",
	GroupID:     "service-dispatch-worker",
}

var defaultProfilesGateway = ProfilesGateway{
	Timeout:     time.Second,
	MaxAttempts: 3,
	BaseDelay:   100 * time.Millisecond,
	MaxDelay:    400 * time.Millisecond,
}

var defaultRateLimit = RateLimit{
	Enabled:    true,
	Rate:       10,
	Burst:      20,
	TTL:        10 * time.Minute,
	MaxBuckets: 100_000,
}

var defaultDispatch = Dispatch{
	OperationTimeout: 3 * time.Second,
	StaleAfter:       2 * time.Hour,
	ExpirySchedule:   "@every 1m",
}

var defaultFanout = Fanout{SubscriberBuffer: 32}

// DefaultPort returns the default port.
func DefaultPort() int {
	return defaultPort
}

// DefaultDB returns the default database settings.
func DefaultDB() DB {
	return defaultDB
}

// DefaultKafka returns the default Kafka settings (no brokers).
func DefaultKafka() Kafka {
	return defaultKafka
}

// DefaultProfilesGateway returns the default profile gateway settings.
func DefaultProfilesGateway() ProfilesGateway {
	return defaultProfilesGateway
}

// DefaultRateLimit returns the default rate limiter settings.
func DefaultRateLimit() RateLimit {
	return defaultRateLimit
}

// DefaultDispatch returns the default bidding core settings.
func DefaultDispatch() Dispatch {
	return defaultDispatch
}

// DefaultFanout returns the default fan-out settings.
func DefaultFanout() Fanout {
	return defaultFanout
}
