package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	SQLitePath        string
	SnapshotCacheSize int

	// Snapshot ingest over Kafka.
	IngestEnabled      bool
	KafkaBrokers       []string
	KafkaSnapshotTopic string
	KafkaGroupID       string
	BatchSize          int
	BatchFlushInterval time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	cacheSize, err := parseCacheSize()
	if err != nil {
		return nil, err
	}

	ingestEnabled, err := parseBool("INGEST_ENABLED", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		SQLitePath:        sharedcfg.EnvOrDefault("SQLITE_PATH", "wind.db"),
		SnapshotCacheSize: cacheSize,

		IngestEnabled:      ingestEnabled,
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSnapshotTopic: sharedcfg.EnvOrDefault("KAFKA_SNAPSHOT_TOPIC", "wind-snapshots"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "wind-stream-ingest"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
	}

	if cfg.IngestEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required when INGEST_ENABLED is true")
	}

	return cfg, nil
}

// parseCacheSize reads SNAPSHOT_CACHE_SIZE. Zero disables the cache.
func parseCacheSize() (int, error) {
	s := os.Getenv("SNAPSHOT_CACHE_SIZE")
	if s == "" {
		return 16, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errors.New("invalid SNAPSHOT_CACHE_SIZE: must be a non-negative integer")
	}
	return n, nil
}

func parseBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
