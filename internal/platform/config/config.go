package config

import (
	"os"
	"strings"
	"time"

	pstrings "recoup/pkg/platform/strings"
)

// Server captures process-level configuration.
type Server struct {
	Addr         string
	PostgresURL  string
	Redis        RedisConfig
	Kafka        KafkaConfig
	ScanInterval time.Duration
}

// RedisConfig holds connection tuning for the optional redis client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig names the brokers and topic for domain event publishing.
// Empty brokers means event dispatch is disabled.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("RECOUP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	scanInterval := 5 * time.Minute
	if raw := os.Getenv("RECOUP_SCAN_INTERVAL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			scanInterval = d
		}
	}

	topic := os.Getenv("RECOUP_KAFKA_TOPIC")
	if topic == "" {
		topic = "recoup.case-events"
	}

	var brokers []string
	if raw := os.Getenv("RECOUP_KAFKA_BROKERS"); raw != "" {
		brokers = pstrings.DedupeAndTrim(strings.Split(raw, ","))
	}

	return Server{
		Addr:        addr,
		PostgresURL: os.Getenv("RECOUP_POSTGRES_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("RECOUP_REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: brokers,
			Topic:   topic,
		},
		ScanInterval: scanInterval,
	}
}
