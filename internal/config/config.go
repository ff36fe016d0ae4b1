package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Server ServerConfig `envPrefix:"SERVER_"`
	Redis  RedisConfig  `envPrefix:"REDIS_"`
	Mongo  MongoConfig  `envPrefix:"MONGO_"`
	Kafka  KafkaConfig  `envPrefix:"KAFKA_"`
	Chat   ChatConfig   `envPrefix:"CHAT_"`
}

type ServerConfig struct {
	Addr string `env:"ADDR" envDefault:"0.0.0.0:8080"`
	// CORSOrigins is matched against the Origin header as a regexp.
	CORSOrigins string `env:"CORS_ORIGINS" envDefault:"^https?://localhost(:\\d+)?$"`
}

type RedisConfig struct {
	Addr     string `env:"ADDR" envDefault:"localhost:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

type MongoConfig struct {
	URI      string `env:"URI" envDefault:"mongodb://localhost:27017"`
	Database string `env:"DATABASE" envDefault:"chat"`
}

type KafkaConfig struct {
	Enabled bool     `env:"ENABLED" envDefault:"false"`
	Brokers []string `env:"BROKERS" envDefault:"localhost:9092"`
	Topic   string   `env:"TOPIC" envDefault:"chat-messages"`
	GroupID string   `env:"GROUP_ID" envDefault:"chat-core"`
}

// ChatConfig carries the delivery-core tunables. BlockInterval doubles as
// the heartbeat interval: it must stay below typical proxy idle timeouts.
type ChatConfig struct {
	StreamMaxLen     int64         `env:"STREAM_MAX_LEN" envDefault:"100000"`
	DedupeTTL        time.Duration `env:"DEDUPE_TTL" envDefault:"300s"`
	BlockInterval    time.Duration `env:"BLOCK_INTERVAL" envDefault:"15s"`
	HistoryPageSize  int64         `env:"HISTORY_PAGE_SIZE" envDefault:"15"`
	HistoryPageLimit int64         `env:"HISTORY_PAGE_LIMIT" envDefault:"100"`
	CatchupLimit     int64         `env:"CATCHUP_LIMIT" envDefault:"50"`
	LiveReadCount    int64         `env:"LIVE_READ_COUNT" envDefault:"50"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
