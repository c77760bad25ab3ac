package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	AppName                       string   `envconfig:"APP_NAME" default:"sage-api"`
	Port                          int      `envconfig:"PORT" default:"3004"`
	LogLevel                      string   `envconfig:"LOG_LEVEL" default:"info"`
	PrettyLogs                    bool     `envconfig:"PRETTY_LOGS" default:"false"`
	HttpServerWriteTimeoutSeconds int      `envconfig:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" default:"120"`
	HttpServerReadTimeoutSeconds  int      `envconfig:"HTTP_SERVER_READ_TIMEOUT_SECONDS" default:"10"`
	HttpServerIdleTimeoutSeconds  int      `envconfig:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" default:"10"`
	MaxHeaderBytes                int      `envconfig:"HTTP_SERVER_MAX_HEADER_BYTES" default:"64000"` // 64KB
	ReadHeaderTimeoutSeconds      int      `envconfig:"HTTP_SERVER_READ_HEADER_TIMEOUT_SECONDS" default:"10"`
	AllowOrigins                  []string `envconfig:"HTTP_SERVER_ALLOW_ORIGINS" default:"*"`
	AllowMethods                  []string `envconfig:"HTTP_SERVER_ALLOW_METHODS" default:"GET,POST,PUT,DELETE"`
	StartupMaxAttempts            int      `envconfig:"STARTUP_MAX_ATTEMPTS" default:"5"`

	// PostgreSQL (run storage)
	DatabaseDriver                string        `envconfig:"DB_DRIVER" default:"postgres"`
	DatabaseHost                  string        `envconfig:"DB_HOST" default:""`
	DatabasePort                  string        `envconfig:"DB_PORT" default:"5432"`
	DatabaseUserName              string        `envconfig:"DB_USER_NAME" default:""`
	DatabasePassword              string        `envconfig:"DB_PASSWORD" default:""`
	DatabaseName                  string        `envconfig:"DB_NAME" default:"sage"`
	DatabaseSSLMode               string        `envconfig:"DB_SQL_MODE" default:"disable"`
	DatabaseReconnectRetryCount   int           `envconfig:"DB_RECONNECT_RETRY_COUNT" default:"3"`
	DatabaseMaxOpenConns          int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	DatabaseMaxIdleConns          int           `envconfig:"DB_MAX_IDLE_CONNS" default:"10"`
	DatabaseConnMaxLifetime       time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"10s"`
	DatabaseMigrationFolderPath   string        `envconfig:"DB_MIGRATION_FOLDER_PATH" default:"db/pg"`
	DatabaseMigrationVersion      int           `envconfig:"DB_MIGRATION_VERSION" default:"0"`
	DatabaseMigrationForce        int           `envconfig:"DB_MIGRATION_FORCE" default:"0"`
	DatabaseMigrationAutoRollback bool          `envconfig:"DB_MIGRATION_AUTO_ROLLBACK" default:"true"`

	// Redis (embedding cache + daily budget)
	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Gemini
	GeminiBaseURL        string        `envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com"`
	GeminiAPIKey         string        `envconfig:"GEMINI_API_KEY" default:""`
	GeminiModel          string        `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`
	GeminiEmbeddingModel string        `envconfig:"GEMINI_EMBEDDING_MODEL" default:"gemini-embedding-001"`
	GeminiTimeout        time.Duration `envconfig:"GEMINI_TIMEOUT" default:"30s"`

	// Kafka Producer settings
	KafkaBrokers      []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	KafkaOutputTopic  string   `envconfig:"KAFKA_OUTPUT_TOPIC" default:"reconciliation-events"`
	KafkaBatchSize    int      `envconfig:"KAFKA_BATCH_SIZE" default:"100"`
	KafkaBatchTimeout int      `envconfig:"KAFKA_BATCH_TIMEOUT_MS" default:"100"`
	KafkaRequiredAcks int      `envconfig:"KAFKA_REQUIRED_ACKS" default:"1"`
	KafkaCompression  string   `envconfig:"KAFKA_COMPRESSION" default:"snappy"`

	// Reconciliation
	SimilarityThreshold  float64       `envconfig:"SIMILARITY_THRESHOLD" default:"0.75"`
	ClassifyMaxAttempts  int           `envconfig:"CLASSIFY_MAX_ATTEMPTS" default:"3"`
	ClassifyRetryDelay   time.Duration `envconfig:"CLASSIFY_RETRY_DELAY" default:"1s"`
	ReconcileWorkerCount int           `envconfig:"RECONCILE_WORKER_COUNT" default:"4"`
	EmbedCacheTTL        time.Duration `envconfig:"EMBED_CACHE_TTL" default:"24h"`

	// Daily budget
	BudgetDefaultLimit int `envconfig:"BUDGET_DEFAULT_LIMIT" default:"5"`
	BudgetMemberLimit  int `envconfig:"BUDGET_MEMBER_LIMIT" default:"10"`

	// Tracing
	TracingEnabled  bool   `envconfig:"TRACING_ENABLED" default:"false"`
	TracingEndpoint string `envconfig:"TRACING_ENDPOINT" default:"localhost:4317"`
	TracingProtocol string `envconfig:"TRACING_PROTOCOL" default:"grpc"`
	TracingInsecure bool   `envconfig:"TRACING_INSECURE" default:"true"`
}

// Load reads configuration from the environment, loading a local .env file
// first when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
