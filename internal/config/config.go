package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database   DatabaseConfig
	Redis      RedisConfig
	Server     ServerConfig
	Codeforces CodeforcesConfig
	SMTP       SMTPConfig
	Sync       SyncConfig
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type ServerConfig struct {
	HTTPPort string
}

type CodeforcesConfig struct {
	BaseURL         string
	RequestInterval time.Duration
	SubmissionCount int
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type SyncConfig struct {
	StudentInterval time.Duration
}

func LoadConfig() *Config {
	config, _ := Load()
	return config
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "progresstracker"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "progresstracker"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Server: ServerConfig{
			HTTPPort: getEnv("HTTP_PORT", "8080"),
		},
		Codeforces: CodeforcesConfig{
			BaseURL:         getEnv("CODEFORCES_BASE_URL", "https://codeforces.com/api"),
			RequestInterval: getEnvAsDuration("CODEFORCES_REQUEST_INTERVAL", time.Second),
			SubmissionCount: getEnvAsInt("CODEFORCES_SUBMISSION_COUNT", 1000),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			User:     getEnv("SMTP_USER", ""),
			Password: getEnv("SMTP_PASS", ""),
			From:     getEnv("SMTP_FROM", "no-reply@progresstracker.local"),
		},
		Sync: SyncConfig{
			StudentInterval: getEnvAsDuration("SYNC_STUDENT_INTERVAL", 2*time.Second),
		},
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
