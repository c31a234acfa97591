package config

import "os"

// Config holds everything main needs to wire the service, read from the
// environment (a .env file is loaded beforehand when present).
type Config struct {
	ListenAddr  string
	PostgresDSN string
	RedisAddr   string
	JWTSecret   string
}

// Load reads the configuration from environment variables, falling back to
// the local docker-compose defaults.
func Load() Config {
	return Config{
		ListenAddr:  getEnv("LISTEN_ADDR", ":8080"),
		PostgresDSN: getEnv("POSTGRES_DSN", "host=localhost user=user password=password dbname=gigboard port=5432 sslmode=disable"),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		JWTSecret:   getEnv("JWT_SECRET", ""),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
