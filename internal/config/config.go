package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Write policies accepted by BATCH_WRITE_POLICY and CUSTOM_SUPPLY_WRITE_POLICY
const (
	WritePolicySurface         = "surface"
	WritePolicyOptimisticLocal = "optimistic-local"
)

type Config struct {
	Port        string
	Environment string
	// Backend REST API (source of truth)
	BackendBaseURL string
	BackendTimeout time.Duration
	// SQLite Configuration (offline batch cache)
	SQLitePath string
	// JWT Configuration
	JWTSecret string
	// Redis Configuration (optional - supply reference cache and idempotency store)
	RedisHost      string
	RedisPort      string
	RedisPassword  string
	RedisDB        int
	UseCache       bool
	SupplyCacheTTL int // seconds
	// Kafka Configuration (optional - sync/audit events)
	KafkaBrokers        []string
	KafkaTopicOrders    string
	KafkaTopicInventory string
	KafkaClientID       string
	KafkaRetries        int
	UseKafka            bool
	// Failure policies per resource
	BatchWritePolicy        string
	CustomSupplyWritePolicy string
}

func Load() *Config {
	// .env file is optional, continue with environment variables
	_ = godotenv.Load()

	kafkaBrokersStr := getEnv("KAFKA_BROKERS", "localhost:9093")
	kafkaBrokers := strings.Split(kafkaBrokersStr, ",")
	for i, broker := range kafkaBrokers {
		kafkaBrokers[i] = strings.TrimSpace(broker)
	}

	return &Config{
		Port:        getEnv("PORT", "8090"),
		Environment: getEnv("ENVIRONMENT", "development"),
		// Backend
		BackendBaseURL: strings.TrimRight(getEnv("BACKEND_BASE_URL", "http://localhost:8080/api/v1"), "/"),
		BackendTimeout: getEnvAsDuration("BACKEND_TIMEOUT", 15*time.Second),
		// SQLite
		SQLitePath: getEnv("SQLITE_PATH", "./restock.db"),
		// JWT
		JWTSecret: getEnv("JWT_SECRET", "your-secret-key-change-in-production-min-32-chars"),
		// Redis
		RedisHost:      getEnv("REDIS_HOST", "localhost"),
		RedisPort:      getEnv("REDIS_PORT", "6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        getEnvAsInt("REDIS_DB", 0),
		UseCache:       getEnvAsBool("USE_CACHE", false),
		SupplyCacheTTL: getEnvAsInt("SUPPLY_CACHE_TTL", 600),
		// Kafka
		KafkaBrokers:        kafkaBrokers,
		KafkaTopicOrders:    getEnv("KAFKA_TOPIC_ORDERS", "restock.orders"),
		KafkaTopicInventory: getEnv("KAFKA_TOPIC_INVENTORY", "restock.inventory"),
		KafkaClientID:       getEnv("KAFKA_CLIENT_ID", "restock-sync"),
		KafkaRetries:        getEnvAsInt("KAFKA_RETRIES", 3),
		UseKafka:            getEnvAsBool("USE_KAFKA", false),
		// Policies
		BatchWritePolicy:        strings.ToLower(getEnv("BATCH_WRITE_POLICY", WritePolicySurface)),
		CustomSupplyWritePolicy: strings.ToLower(getEnv("CUSTOM_SUPPLY_WRITE_POLICY", WritePolicyOptimisticLocal)),
	}
}

// Validate checks that required values are present and policies are known
func (c *Config) Validate() error {
	if c.BackendBaseURL == "" {
		return fmt.Errorf("BACKEND_BASE_URL is required")
	}
	if c.SQLitePath == "" {
		return fmt.Errorf("SQLITE_PATH is required")
	}
	for key, policy := range map[string]string{
		"BATCH_WRITE_POLICY":         c.BatchWritePolicy,
		"CUSTOM_SUPPLY_WRITE_POLICY": c.CustomSupplyWritePolicy,
	} {
		if policy != WritePolicySurface && policy != WritePolicyOptimisticLocal {
			return fmt.Errorf("%s must be %q or %q, got %q", key, WritePolicySurface, WritePolicyOptimisticLocal, policy)
		}
	}
	return nil
}

// IsProduction returns true if the service is running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return strings.ToLower(value) == "true" || value == "1"
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	result, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return result
}

func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return result
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
