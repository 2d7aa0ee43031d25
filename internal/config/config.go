package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr          string
	CRDBDSN           string
	MongoURI          string
	RedisAddr         string
	RabbitURL         string
	JWTSecret         string
	TokenTTL          time.Duration
	AcceptMarksTraded bool
	OTLPEndpoint      string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	tokenTTL, _ := time.ParseDuration(os.Getenv("TOKEN_TTL"))
	if tokenTTL == 0 {
		tokenTTL = 30 * time.Minute
	}

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	return &Config{
		HTTPAddr:          addr,
		CRDBDSN:           os.Getenv("CRDB_DSN"),
		MongoURI:          os.Getenv("MONGO_URI"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RabbitURL:         os.Getenv("RABBIT_URL"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		TokenTTL:          tokenTTL,
		AcceptMarksTraded: os.Getenv("ACCEPT_MARKS_TRADED") == "true",
		OTLPEndpoint:      os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}, nil
}
