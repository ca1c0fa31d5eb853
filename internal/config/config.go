package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr string
	DBDSN    string

	JWTSecret     string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SessionTTL    time.Duration

	// chat
	RevealInterval     time.Duration
	SessionIdleTimeout time.Duration
	ProfileKey         string

	// rabbitMQ
	RabbitURL         string
	RabbitQueue       string
	WorkerConcurrency int

	MetricsNamespace string
}

func Load() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	// DSN demo：
	// app:apppass@tcp(127.0.0.1:3306)/profile_assistant?charset=utf8mb4&parseTime=true&loc=Local
	// sqlite:profile_assistant.db
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		dsn = "sqlite:profile_assistant.db"
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "dev-secret-change-me"
	}

	redisDB := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			redisDB = n
		}
	}

	revealMS := 30
	if v := os.Getenv("REVEAL_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			revealMS = n
		}
	}

	profileKey := os.Getenv("PROFILE_KEY")
	if profileKey == "" {
		profileKey = "profile"
	}

	// empty RABBIT_URL disables event publishing
	rabbitQueue := os.Getenv("RABBIT_QUEUE")
	if rabbitQueue == "" {
		rabbitQueue = "chat_events"
	}

	namespace := os.Getenv("METRICS_NAMESPACE")
	if namespace == "" {
		namespace = "profile_assistant"
	}

	return Config{
		HTTPAddr: addr,
		DBDSN:    dsn,

		JWTSecret:     secret,
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,
		SessionTTL:    durationEnv("SESSION_TTL", 0),

		RevealInterval:     time.Duration(revealMS) * time.Millisecond,
		SessionIdleTimeout: durationEnv("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		ProfileKey:         profileKey,

		RabbitURL:         os.Getenv("RABBIT_URL"),
		RabbitQueue:       rabbitQueue,
		WorkerConcurrency: workerConcurrency(),

		MetricsNamespace: namespace,
	}
}

// durationEnv parses Go durations ("90s", "30m"). "0" is allowed.
func durationEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return def
	}
	return d
}

func workerConcurrency() int {
	v := os.Getenv("WORKER_CONCURRENCY")
	if v == "" {
		return 2
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 2
	}
	if n > 50 {
		return 50
	}
	return n
}
