package config

import (
	"os"
	"strconv"
	"time"
)

const (
	CartBackendMemory = "memory"
	CartBackendRedis  = "redis"
)

type Config struct {
	AppEnv   string
	LogLevel string
	HTTPAddr string

	CartBackend   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CartTTL       time.Duration

	// AMQPURL пустой — события статусов не публикуются
	AMQPURL      string
	AMQPExchange string

	ShutdownTimeout time.Duration
}

func Load() Config {
	return Config{
		AppEnv:   getEnv("APP_ENV", "dev"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		HTTPAddr: getEnv("HTTP_ADDR", ":9091"),

		CartBackend:   getEnv("CART_BACKEND", CartBackendMemory),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		CartTTL:       getEnvDuration("CART_TTL", 7*24*time.Hour),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "orders"),

		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 5*time.Second),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)

	if v == "" {
		return def
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}

	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
