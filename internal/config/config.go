package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Market   MarketConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	// DSN for the SQLite database; ":memory:" keeps everything in-process.
	DSN string
}

type RedisConfig struct {
	Addr    string
	Enabled bool
}

type KafkaConfig struct {
	Brokers  []string
	Enabled  bool
	MockMode bool
	Topics   TopicConfig
}

type TopicConfig struct {
	CollectionCreated string
	TicketMinted      string
	TicketTransferred string
	TicketApproved    string
	TicketListed      string
	BidSubmitted      string
	BidAccepted       string
	TicketDelisted    string
}

// MarketConfig carries the marketplace constants: the resale fee rate, the
// ticket validity window, and the reserved accounts the two markets act as.
type MarketConfig struct {
	FeeRatePercent int64
	ValidityWindow time.Duration
	PrimaryAccount string
	EscrowAccount  string
	QRSecret       string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			DSN: getEnv("SQLITE_DSN", "file:marketplace.db?cache=shared"),
		},
		Redis: RedisConfig{
			Addr:    getEnv("REDIS_ADDR", "localhost:6379"),
			Enabled: getEnvBool("REDIS_ENABLED", true),
		},
		Kafka: KafkaConfig{
			Brokers:  []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			Enabled:  getEnvBool("KAFKA_ENABLED", true),
			MockMode: getEnvBool("KAFKA_MOCK_MODE", false),
			Topics: TopicConfig{
				CollectionCreated: getEnv("TOPIC_COLLECTION_CREATED", "marketplace.collection_created"),
				TicketMinted:      getEnv("TOPIC_TICKET_MINTED", "marketplace.ticket_minted"),
				TicketTransferred: getEnv("TOPIC_TICKET_TRANSFERRED", "marketplace.ticket_transferred"),
				TicketApproved:    getEnv("TOPIC_TICKET_APPROVED", "marketplace.ticket_approved"),
				TicketListed:      getEnv("TOPIC_TICKET_LISTED", "marketplace.ticket_listed"),
				BidSubmitted:      getEnv("TOPIC_BID_SUBMITTED", "marketplace.bid_submitted"),
				BidAccepted:       getEnv("TOPIC_BID_ACCEPTED", "marketplace.bid_accepted"),
				TicketDelisted:    getEnv("TOPIC_TICKET_DELISTED", "marketplace.ticket_delisted"),
			},
		},
		Market: MarketConfig{
			FeeRatePercent: int64(getEnvInt("RESALE_FEE_PERCENT", 5)),
			ValidityWindow: time.Duration(getEnvInt("TICKET_VALIDITY_HOURS", 240)) * time.Hour,
			PrimaryAccount: getEnv("PRIMARY_MARKET_ACCOUNT", "market:primary"),
			EscrowAccount:  getEnv("ESCROW_ACCOUNT", "market:escrow"),
			QRSecret:       getEnv("QR_SECRET_KEY", "dev-only-secret"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
