package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration for M46.
// It merges file defaults and environment overrides to support both local and deployed runs.
type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	DatabaseURL  string
	RedisURL     string
	KafkaBrokers []string
	KafkaGroupID string
	IntakeTopic  string

	JWTSecret string

	MinBatchSize    int
	MaxBatchSize    int
	BatchInterval   time.Duration
	ChallengePeriod time.Duration
	SequencerBond   int64
	FraudProofBond  int64

	LocalSequencerID   string
	SettlementInterval time.Duration

	MaxDBConns         int32
	IdempotencyTTL     time.Duration
	EventDedupTTL      time.Duration
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	ConsumerInterval   time.Duration

	AnchorReceivedTopic  string
	AnchorFinalizedTopic string
}

// configFile mirrors the YAML schema used by configs/default.yaml.
// It is intentionally separate from Config so runtime-only fields stay internal.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL  string   `yaml:"postgres_url"`
		RedisURL     string   `yaml:"redis_url"`
		KafkaBrokers []string `yaml:"kafka_brokers"`
		KafkaGroupID string   `yaml:"kafka_group_id"`
		IntakeTopic  string   `yaml:"intake_topic"`
	} `yaml:"dependencies"`
	Settlement struct {
		MinBatchSize         int    `yaml:"min_batch_size"`
		MaxBatchSize         int    `yaml:"max_batch_size"`
		BatchIntervalSeconds int    `yaml:"batch_interval_seconds"`
		ChallengePeriodHours int    `yaml:"challenge_period_hours"`
		SequencerBond        int64  `yaml:"sequencer_bond"`
		FraudProofBond       int64  `yaml:"fraud_proof_bond"`
		LocalSequencerID     string `yaml:"local_sequencer_id"`
	} `yaml:"settlement"`
	Anchor struct {
		ReceivedTopic  string `yaml:"received_topic"`
		FinalizedTopic string `yaml:"finalized_topic"`
	} `yaml:"anchor"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// This order keeps local bootstrap simple while allowing environment-specific overrides.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:            "M46-Dispute-Settlement-Service",
		HTTPPort:             8080,
		GRPCPort:             9090,
		MinBatchSize:         3,
		MaxBatchSize:         100,
		BatchInterval:        time.Hour,
		ChallengePeriod:      7 * 24 * time.Hour,
		SequencerBond:        10_000,
		FraudProofBond:       1_000,
		SettlementInterval:   5 * time.Second,
		KafkaGroupID:         "m46-dispute-settlement",
		IntakeTopic:          "dispute.intake",
		MaxDBConns:           20,
		IdempotencyTTL:       7 * 24 * time.Hour,
		EventDedupTTL:        7 * 24 * time.Hour,
		OutboxPollInterval:   2 * time.Second,
		OutboxBatchSize:      100,
		OutboxMaxAttempts:    5,
		ConsumerInterval:     2 * time.Second,
		AnchorReceivedTopic:  "anchor.batch_received",
		AnchorFinalizedTopic: "anchor.batch_finalized",
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GRPCPort > 0 {
			cfg.GRPCPort = f.Service.GRPCPort
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if len(f.Dependencies.KafkaBrokers) > 0 {
			cfg.KafkaBrokers = f.Dependencies.KafkaBrokers
		}
		if f.Dependencies.KafkaGroupID != "" {
			cfg.KafkaGroupID = f.Dependencies.KafkaGroupID
		}
		if f.Dependencies.IntakeTopic != "" {
			cfg.IntakeTopic = f.Dependencies.IntakeTopic
		}
		if f.Settlement.MinBatchSize > 0 {
			cfg.MinBatchSize = f.Settlement.MinBatchSize
		}
		if f.Settlement.MaxBatchSize > 0 {
			cfg.MaxBatchSize = f.Settlement.MaxBatchSize
		}
		if f.Settlement.BatchIntervalSeconds > 0 {
			cfg.BatchInterval = time.Duration(f.Settlement.BatchIntervalSeconds) * time.Second
		}
		if f.Settlement.ChallengePeriodHours > 0 {
			cfg.ChallengePeriod = time.Duration(f.Settlement.ChallengePeriodHours) * time.Hour
		}
		if f.Settlement.SequencerBond > 0 {
			cfg.SequencerBond = f.Settlement.SequencerBond
		}
		if f.Settlement.FraudProofBond > 0 {
			cfg.FraudProofBond = f.Settlement.FraudProofBond
		}
		if f.Settlement.LocalSequencerID != "" {
			cfg.LocalSequencerID = f.Settlement.LocalSequencerID
		}
		if f.Anchor.ReceivedTopic != "" {
			cfg.AnchorReceivedTopic = f.Anchor.ReceivedTopic
		}
		if f.Anchor.FinalizedTopic != "" {
			cfg.AnchorFinalizedTopic = f.Anchor.FinalizedTopic
		}
	}

	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaGroupID = envOrDefault("KAFKA_GROUP_ID", cfg.KafkaGroupID)
	cfg.IntakeTopic = envOrDefault("INTAKE_TOPIC", cfg.IntakeTopic)
	cfg.JWTSecret = envOrDefault("JWT_SECRET", cfg.JWTSecret)
	cfg.LocalSequencerID = envOrDefault("LOCAL_SEQUENCER_ID", cfg.LocalSequencerID)

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))

	cfg.MinBatchSize = envInt("MIN_BATCH_SIZE", cfg.MinBatchSize)
	cfg.MaxBatchSize = envInt("MAX_BATCH_SIZE", cfg.MaxBatchSize)
	cfg.BatchInterval = time.Duration(envInt("BATCH_INTERVAL_SECONDS", int(cfg.BatchInterval.Seconds()))) * time.Second
	cfg.ChallengePeriod = time.Duration(envInt("CHALLENGE_PERIOD_HOURS", int(cfg.ChallengePeriod.Hours()))) * time.Hour
	cfg.SequencerBond = int64(envInt("SEQUENCER_BOND", int(cfg.SequencerBond)))
	cfg.FraudProofBond = int64(envInt("FRAUD_PROOF_BOND", int(cfg.FraudProofBond)))

	cfg.SettlementInterval = time.Duration(envInt("SETTLEMENT_INTERVAL_SECONDS", int(cfg.SettlementInterval.Seconds()))) * time.Second
	cfg.IdempotencyTTL = time.Duration(envInt("IDEMPOTENCY_TTL_HOURS", int(cfg.IdempotencyTTL.Hours()))) * time.Hour
	cfg.EventDedupTTL = time.Duration(envInt("EVENT_DEDUP_TTL_HOURS", int(cfg.EventDedupTTL.Hours()))) * time.Hour
	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.OutboxMaxAttempts = envInt("OUTBOX_MAX_ATTEMPTS", cfg.OutboxMaxAttempts)
	cfg.ConsumerInterval = time.Duration(envInt("CONSUMER_POLL_SECONDS", int(cfg.ConsumerInterval.Seconds()))) * time.Second

	if cfg.MinBatchSize <= 0 || cfg.MaxBatchSize < cfg.MinBatchSize {
		return Config{}, fmt.Errorf("invalid batch size bounds [%d, %d]", cfg.MinBatchSize, cfg.MaxBatchSize)
	}
	if cfg.SequencerBond <= 0 || cfg.FraudProofBond <= 0 {
		return Config{}, fmt.Errorf("bonds must be positive")
	}

	return cfg, nil
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envCSV parses comma-separated env vars and removes empty segments.
func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parts = append(parts, trimmed)
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
