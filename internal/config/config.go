package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

var singleConfig *Config = nil

type Config struct {
	Database *dbConfig
	Service  *svcConfig
	Engine   *engineConfig
}

type dbConfig struct {
	Type     string `envconfig:"DB_TYPE" default:"pgsql"`
	Hostname string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"wireline"`
	User     string `envconfig:"DB_USER" default:"admin"`
	Password string `envconfig:"DB_PASS" default:"adminpass"`
}

type svcConfig struct {
	Address         string `envconfig:"WIRELINE_ADDRESS" default:":3443"`
	MetricsAddress  string `envconfig:"WIRELINE_METRICS_ADDRESS" default:":8080"`
	BaseUrl         string `envconfig:"WIRELINE_BASE_URL" default:"https://localhost:3443"`
	LogLevel        string `envconfig:"WIRELINE_LOG_LEVEL" default:"info"`
	Kafka           kafkaConfig
	Auth            Auth
	MigrationFolder string `envconfig:"WIRELINE_MIGRATIONS_FOLDER" default:""`
}

// engineConfig bounds the dispatch machinery. DeviceTimeout applies per
// device, not per job.
type engineConfig struct {
	JobWorkers        int           `envconfig:"WIRELINE_JOB_WORKERS" default:"4"`
	QueueSize         int           `envconfig:"WIRELINE_QUEUE_SIZE" default:"128"`
	DeviceConcurrency int           `envconfig:"WIRELINE_DEVICE_CONCURRENCY" default:"8"`
	DeviceTimeout     time.Duration `envconfig:"WIRELINE_DEVICE_TIMEOUT" default:"60s"`
	PreviewTTL        time.Duration `envconfig:"WIRELINE_PREVIEW_TTL" default:"24h"`
	Transport         string        `envconfig:"WIRELINE_TRANSPORT" default:"lab"`
	SeedInventory     bool          `envconfig:"WIRELINE_SEED_INVENTORY" default:"false"`
}

type kafkaConfig struct {
	Brokers  []string `envconfig:"WIRELINE_KAFKA_BROKERS" default:""`
	Topic    string   `envconfig:"WIRELINE_KAFKA_TOPIC" default:""`
	Version  string   `envconfig:"WIRELINE_KAFKA_VERSION" default:""`
	ClientID string   `envconfig:"WIRELINE_KAFKA_CLIENT_ID" default:""`
}

type Auth struct {
	AuthenticationType string `envconfig:"WIRELINE_AUTH" default:""`
	LocalPrivateKey    string `envconfig:"WIRELINE_PRIVATE_KEY" default:""`
}

func New() (*Config, error) {
	if singleConfig == nil {
		singleConfig = new(Config)
		if err := envconfig.Process("", singleConfig); err != nil {
			return nil, err
		}
	}
	return singleConfig, nil
}

// NewDefault returns a configuration suitable for tests and local hacking:
// sqlite shared in-memory database, lab transport, stdout events.
func NewDefault() *Config {
	return &Config{
		Database: &dbConfig{
			Type: "sqlite",
			Name: "file::memory:?cache=shared",
		},
		Service: &svcConfig{
			Address:        ":3443",
			MetricsAddress: ":8080",
			BaseUrl:        "https://localhost:3443",
			LogLevel:       "info",
		},
		Engine: &engineConfig{
			JobWorkers:        2,
			QueueSize:         32,
			DeviceConcurrency: 4,
			DeviceTimeout:     5 * time.Second,
			PreviewTTL:        time.Hour,
			Transport:         "lab",
		},
	}
}
