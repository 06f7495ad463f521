package config

import (
	"fmt"
	"log"
	"time"

	"collab-server/shared/utils"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the configuration for the collaboration service.
type Config struct {
	// Server settings
	Port     string `envconfig:"COLLAB_SERVER_PORT" default:"8084"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// PostgreSQL settings
	DBHost        string        `envconfig:"DB_HOST" required:"true"`
	DBPort        string        `envconfig:"DB_PORT" default:"5432"`
	DBUser        string        `envconfig:"DB_USER" required:"true"`
	DBName        string        `envconfig:"DB_NAME" required:"true"`
	DBSSLMode     string        `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns    int           `envconfig:"DB_MAX_CONNECTIONS" default:"10"`
	DBIdleTimeout time.Duration `envconfig:"DB_MAX_IDLE_MINUTES" default:"5m"`
	// Secret field WITHOUT an envconfig tag, loaded from Docker secrets
	DBPassword string

	// Redis settings (idempotency keys)
	RedisAddr      string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisDB        int           `envconfig:"REDIS_DB" default:"0"`
	IdempotencyTTL time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`

	// RabbitMQ settings
	RabbitMQURL            string `envconfig:"RABBITMQ_URL" required:"true"`
	ReplacementQueueName   string `envconfig:"REPLACEMENT_QUEUE_NAME" default:"collab_replacement_needed"`
	ClientUpdatesQueueName string `envconfig:"CLIENT_UPDATES_QUEUE_NAME" default:"collab_client_updates"`

	// Candidate pool provider (external creator-pool service)
	CandidatePoolURL     string        `envconfig:"CANDIDATE_POOL_URL" default:"http://creator-pool:8085"`
	CandidatePoolTimeout time.Duration `envconfig:"CANDIDATE_POOL_TIMEOUT" default:"5s"`
	ReplacementBatchSize int           `envconfig:"REPLACEMENT_BATCH_SIZE" default:"5"`

	// Opaque text generator (negotiation reasoning, script assist)
	OpenAIModel      string        `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	GeneratorTimeout time.Duration `envconfig:"GENERATOR_TIMEOUT" default:"10s"`
	// Secret field WITHOUT an envconfig tag
	OpenAIAPIKey string

	// JWT settings (user token verification in middleware)
	// Secret field WITHOUT an envconfig tag
	JWTSecret string
}

// GetDSN returns the PostgreSQL connection string.
func (c *Config) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// LoadConfig reads configuration from environment variables and secrets.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading collab-server configuration: %w", err)
	}

	var loadErr error
	cfg.DBPassword, loadErr = utils.ReadSecret("db_password")
	if loadErr != nil {
		return nil, loadErr
	}

	cfg.JWTSecret, loadErr = utils.ReadSecret("jwt_secret")
	if loadErr != nil {
		return nil, loadErr
	}

	cfg.OpenAIAPIKey, loadErr = utils.ReadSecret("openai_api_key")
	if loadErr != nil {
		return nil, loadErr
	}

	log.Printf("Collab Service configuration loaded (secrets from files):")
	log.Printf("  Port: %s", cfg.Port)
	log.Printf("  LogLevel: %s", cfg.LogLevel)
	log.Printf("  DB DSN: postgres://%s:***@%s:%s/%s?sslmode=%s", cfg.DBUser, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBSSLMode)
	log.Printf("  Redis Addr: %s", cfg.RedisAddr)
	log.Printf("  RabbitMQ URL: %s", cfg.RabbitMQURL)
	log.Printf("  Replacement Queue: %s", cfg.ReplacementQueueName)
	log.Printf("  Client Updates Queue: %s", cfg.ClientUpdatesQueueName)
	log.Printf("  Candidate Pool URL: %s", cfg.CandidatePoolURL)

	return &cfg, nil
}
