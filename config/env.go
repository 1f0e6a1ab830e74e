package config

import (
	"os"
	"strconv"
	"strings"
)

// GetEnvOrDefault returns the value of the environment variable or a default.
func GetEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// Settings carries the environment-derived runtime configuration shared by
// the entrypoints. Load it after godotenv.Load().
type Settings struct {
	// Generation service (direct mode)
	GenerationAPIURL string
	GenerationAPIKey string

	// Relay/proxy backend (proxied mode + image proxy fallback)
	ProxyBaseURL string

	// Kafka event feed for direct-mode job lifecycle events
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	// Redis project store
	RedisAddr string
	RedisPass string
	RedisDB   int

	// S3 asset storage (optional)
	S3Region       string
	S3Profile      string
	S3UsePathStyle bool
}

// Load reads Settings from the environment.
func Load() Settings {
	db := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			db = n
		}
	}

	var brokers []string
	if v := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); v != "" {
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}

	return Settings{
		GenerationAPIURL: GetEnvOrDefault("GENERATION_API_URL", "https://api.sogni.ai"),
		GenerationAPIKey: os.Getenv("GENERATION_API_KEY"),
		ProxyBaseURL:     GetEnvOrDefault("PROXY_BASE_URL", "http://localhost:8080"),
		KafkaBrokers:     brokers,
		KafkaTopic:       GetEnvOrDefault("KAFKA_TOPIC", "generation-events"),
		KafkaGroupID:     GetEnvOrDefault("KAFKA_GROUP_ID", "tourloop"),
		RedisAddr:        GetEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPass:        os.Getenv("REDIS_PASS"),
		RedisDB:          db,
		S3Region:         strings.TrimSpace(os.Getenv("S3_REGION")),
		S3Profile:        strings.TrimSpace(os.Getenv("S3_PROFILE")),
		S3UsePathStyle:   strings.EqualFold(strings.TrimSpace(os.Getenv("S3_USE_PATH_STYLE")), "true"),
	}
}

// HasDirectSession reports whether the caller holds a usable direct-mode
// session with the generation service. Transport selection is made from this
// at call time, never inside the orchestrator.
func (s Settings) HasDirectSession() bool {
	return s.GenerationAPIKey != ""
}
