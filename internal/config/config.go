package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseURL    string
	MigrateOnStart bool

	// Redis
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Simulation
	ScenarioFile          string
	SessionTimeoutMin     int
	SessionIdleSeconds    int
	IdleWorkerPollSeconds int
	MaxSessions           int

	// Training
	TrainerPollSeconds int
	TrainerMaxEpisodes int
	TrainerMaxTicks    int

	// Security
	JWTSecret        string
	OperatorTokenTTL int // minutes
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Database
		DatabaseURL:    getEnv("DATABASE_URL", "postgres://localhost:5432/beerpong?sslmode=disable"),
		MigrateOnStart: getEnvBool("MIGRATE_ON_START", false),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Simulation
		ScenarioFile:          getEnv("SCENARIO_FILE", ""),
		SessionTimeoutMin:     getEnvInt("SESSION_TIMEOUT_MINUTES", 30),
		SessionIdleSeconds:    getEnvInt("SESSION_IDLE_SECONDS", 600),
		IdleWorkerPollSeconds: getEnvInt("IDLE_WORKER_POLL_SECONDS", 5),
		MaxSessions:           getEnvInt("MAX_SESSIONS", 256),

		// Training
		TrainerPollSeconds: getEnvInt("TRAINER_POLL_SECONDS", 2),
		TrainerMaxEpisodes: getEnvInt("TRAINER_MAX_EPISODES", 10000),
		TrainerMaxTicks:    getEnvInt("TRAINER_MAX_TICKS_PER_EPISODE", 50000),

		// Security
		JWTSecret:        getEnv("JWT_SECRET", "change-me-in-production"),
		OperatorTokenTTL: getEnvInt("OPERATOR_TOKEN_TTL_MINUTES", 720),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
