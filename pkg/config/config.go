package config

import (
	"log/slog"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is shared by the gateway, api and archiver; each binary reads the
// subset it needs. Defaults target a local single-node setup.
type Config struct {
	GatewayAddr    string        `envconfig:"GATEWAY_ADDR" default:":8080"`
	APIAddr        string        `envconfig:"API_ADDR" default:":8081"`
	KafkaBrokers   []string      `envconfig:"KAFKA_BROKERS" default:"localhost:19092"`
	KafkaTopic     string        `envconfig:"KAFKA_TOPIC" default:"chat-events"`
	RedisAddr      string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	ScyllaHosts    []string      `envconfig:"SCYLLA_HOSTS" default:"localhost:9042"`
	ScyllaKeyspace string        `envconfig:"SCYLLA_KEYSPACE" default:"chat"`
	JWTSecret      string        `envconfig:"JWT_SECRET" default:"dev-only-secret"`
	TokenTTL       time.Duration `envconfig:"TOKEN_TTL" default:"24h"`
	HistoryLimit   int           `envconfig:"HISTORY_LIMIT" default:"50"`
	SendBuffer     int           `envconfig:"SEND_BUFFER" default:"256"`
	GeneratorID    int64         `envconfig:"GENERATOR_ID" default:"1"`
	LogLevel       slog.Level    `envconfig:"LOG_LEVEL" default:"info"`
}

func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: c.LogLevel}))
}
