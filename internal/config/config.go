package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	SQLitePath      string
	PostgresDSN     string
	MongoURI        string
	RedisAddr       string
	KafkaBrokers    []string
	ClickHouseAddr  string
	ClickHouseDB    string
	CacheTTL        time.Duration
	OutboxPeriod    time.Duration
	OutboxLimit     int
	PublishTimeout  time.Duration
	HTTPPort        string
	UseKafka        bool
	LocalDeployment bool
}

func LoadConfig() *Config {
	getEnv := func(key, fallback string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fallback
	}
	getBool := func(key string, fallback bool) bool {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err == nil {
				return b
			}
		}
		return fallback
	}
	getInt := func(key string, fallback int) int {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err == nil {
				return n
			}
		}
		return fallback
	}
	getDuration := func(key string, fallback time.Duration) time.Duration {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err == nil {
				return d
			}
		}
		return fallback
	}

	kafkaBrokers := strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ",")

	return &Config{
		SQLitePath:      getEnv("SQLITE_PATH", "./wallethub.db"),
		PostgresDSN:     getEnv("POSTGRES_DSN", ""),
		MongoURI:        getEnv("MONGO_URI", ""),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		KafkaBrokers:    kafkaBrokers,
		ClickHouseAddr:  getEnv("CLICKHOUSE_ADDR", ""),
		ClickHouseDB:    getEnv("CLICKHOUSE_DB", "wallethub"),
		CacheTTL:        5 * time.Minute,
		OutboxPeriod:    getDuration("OUTBOX_PERIOD", 5*time.Second),
		OutboxLimit:     getInt("OUTBOX_LIMIT", 50),
		PublishTimeout:  getDuration("PUBLISH_TIMEOUT", 3*time.Second),
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		UseKafka:        getBool("USE_KAFKA", false),
		LocalDeployment: getBool("LOCAL_DEPLOYMENT", true),
	}
}
