package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr        string
	APIBaseURL      string
	RedisAddr       string
	RedisPassword   string
	KafkaBrokers    []string
	ReviewsTopic    string
	ConsumerGroup   string
	ServiceName     string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

func Load() Config {
	_ = godotenv.Load()

	return Config{
		HTTPAddr:        getenv("HTTP_ADDR", ":8080"),
		APIBaseURL:      getenv("API_BASE_URL", "http://localhost:5000/api"),
		RedisAddr:       getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getenv("REDIS_PASSWORD", ""),
		KafkaBrokers:    splitCSV(getenv("KAFKA_BROKERS", "localhost:9092")),
		ReviewsTopic:    getenv("REVIEWS_TOPIC", "product.reviews"),
		ConsumerGroup:   getenv("CONSUMER_GROUP", "storefront-client"),
		ServiceName:     getenv("SERVICE_NAME", "storefront-client"),
		RequestTimeout:  getdur("REQUEST_TIMEOUT", 15*time.Second),
		ShutdownTimeout: getdur("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
