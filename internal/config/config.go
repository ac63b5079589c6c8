// Package config provides configuration structures and validation for the
// service. It covers the HTTP server, PostgreSQL, MongoDB, the mobile-money
// gateway, the Kafka activity producer and the notification dispatcher.
package config

import (
	"errors"
	"strings"
	"time"
)

// Config holds the complete application configuration. Each field represents
// a major subsystem's configuration and is validated during startup.
type Config struct {
	Application  ApplicationConfig
	Logging      LoggingConfig
	Server       ServerConfig
	Postgres     PostgresConfig
	MongoDB      MongoDBConfig
	Kafka        KafkaConfig
	Gateway      GatewayConfig
	Notification NotificationConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration // Maximum duration for reading entire request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum duration to wait for next request
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string        // Database connection string
	MaxConns        int32         // Maximum number of open connections
	MinConns        int32         // Minimum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of a connection
	ConnMaxIdleTime time.Duration // Maximum idle time of a connection
	MigrationsPath  string        // Path to migration files
}

// MongoDBConfig contains MongoDB configuration for the callback archive
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// KafkaConfig contains configuration for the activity event producer
type KafkaConfig struct {
	Brokers           string
	ActivityTopic     string
	NumPartitions     int
	ReplicationFactor int
	WriteTimeout      time.Duration
}

// GatewayConfig contains mobile-money gateway configuration.
//
// SandboxCredential marks SecurityCredential as the sandbox placeholder.
// Reversals require a properly encrypted production credential, so startup
// fails when the placeholder is still configured in production.
type GatewayConfig struct {
	BaseURL            string
	ConsumerKey        string
	ConsumerSecret     string
	ShortCode          string
	PassKey            string
	InitiatorName      string
	SecurityCredential string
	SandboxCredential  bool
	CallbackBaseURL    string        // Public base URL the gateway posts callbacks to
	CountryCode        string        // Dialing code used for phone normalization
	Timeout            time.Duration // Per-request HTTP timeout
	TokenSafetyMargin  time.Duration // Refresh the auth token this long before expiry
	StatusPollAttempts int           // Bounded status poll attempt count
	StatusPollDelay    time.Duration // Fixed delay between poll attempts
}

// NotificationConfig contains notification dispatch configuration
type NotificationConfig struct {
	PoolSize      int // Workers in the async dispatch pool
	RetryAttempts int // Bounded retries inside the sender itself
}

// validate performs comprehensive validation of all configuration values,
// ensuring they meet minimum requirements and logical constraints
func (c *Config) validate() error {
	var validationErrors []string

	// Validate Server config
	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	// Validate PostgreSQL config
	if c.Postgres.URL == "" {
		validationErrors = append(validationErrors, "POSTGRES_URL is required")
	}
	if c.Postgres.MaxConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if c.Postgres.ConnMaxIdleTime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate MongoDB config
	if c.MongoDB.URI == "" {
		validationErrors = append(validationErrors, "MONGO_URI is required")
	}
	if c.MongoDB.Database == "" {
		validationErrors = append(validationErrors, "MONGO_DATABASE is required")
	}
	if c.MongoDB.Timeout <= 0 {
		validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
	}
	if c.MongoDB.MaxPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MinPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MIN_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MaxConnIdleTime <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate Kafka config
	if len(c.Kafka.Brokers) == 0 {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.ActivityTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_ACTIVITY_TOPIC is required")
	}
	if c.Kafka.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "KAFKA_WRITE_TIMEOUT must be greater than 0")
	}

	// Validate Gateway config
	if c.Gateway.BaseURL == "" {
		validationErrors = append(validationErrors, "GATEWAY_BASE_URL is required")
	}
	if c.Gateway.ConsumerKey == "" {
		validationErrors = append(validationErrors, "GATEWAY_CONSUMER_KEY is required")
	}
	if c.Gateway.ConsumerSecret == "" {
		validationErrors = append(validationErrors, "GATEWAY_CONSUMER_SECRET is required")
	}
	if c.Gateway.ShortCode == "" {
		validationErrors = append(validationErrors, "GATEWAY_SHORT_CODE is required")
	}
	if c.Gateway.PassKey == "" {
		validationErrors = append(validationErrors, "GATEWAY_PASS_KEY is required")
	}
	if c.Gateway.CallbackBaseURL == "" {
		validationErrors = append(validationErrors, "GATEWAY_CALLBACK_BASE_URL is required")
	}
	if c.Gateway.CountryCode == "" {
		validationErrors = append(validationErrors, "GATEWAY_COUNTRY_CODE is required")
	}
	if c.Gateway.Timeout <= 0 {
		validationErrors = append(validationErrors, "GATEWAY_TIMEOUT must be greater than 0")
	}
	if c.Gateway.TokenSafetyMargin <= 0 {
		validationErrors = append(validationErrors, "GATEWAY_TOKEN_SAFETY_MARGIN must be greater than 0")
	}
	if c.Gateway.StatusPollAttempts <= 0 {
		validationErrors = append(validationErrors, "GATEWAY_STATUS_POLL_ATTEMPTS must be greater than 0")
	}
	if c.Gateway.StatusPollDelay <= 0 {
		validationErrors = append(validationErrors, "GATEWAY_STATUS_POLL_DELAY must be greater than 0")
	}
	if c.Application.Env == "production" && c.Gateway.SandboxCredential {
		validationErrors = append(validationErrors, "GATEWAY_SANDBOX_CREDENTIAL must be false in production")
	}

	// Validate Notification config
	if c.Notification.PoolSize <= 0 {
		validationErrors = append(validationErrors, "NOTIFICATION_POOL_SIZE must be greater than 0")
	}
	if c.Notification.RetryAttempts < 0 {
		validationErrors = append(validationErrors, "NOTIFICATION_RETRY_ATTEMPTS must not be negative")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
