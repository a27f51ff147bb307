package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	SettingsBotToken string
	ServerURL        string
	Port             string
	AdminTelegramID  int64

	Database  DatabaseConfig
	LLM       LLMConfig
	Retrieval RetrievalConfig
	Billing   Billing

	SheetsWebhookURL string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
}

// LLMConfig holds settings for the chat-completion API
type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// RetrievalConfig holds Qdrant and vectorizer settings
type RetrievalConfig struct {
	QdrantURL       string
	QdrantAPIKey    string
	VectorServerURL string
}

// Billing holds trial and payment settings
type Billing struct {
	TrialDays         int
	TrialProjectLimit int
	PaidProjectLimit  int
	PaymentAmount     int
	PaymentCard       string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if not exists)
	_ = godotenv.Load()

	cfg := &Config{
		SettingsBotToken: os.Getenv("SETTINGS_BOT_TOKEN"),
		ServerURL:        os.Getenv("SERVER_URL"),
		Port:             getEnv("PORT", "8080"),
		AdminTelegramID:  getEnvInt64("ADMIN_TELEGRAM_ID", 0),
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Name:     getEnv("DB_NAME", "multibot"),
			User:     getEnv("DB_USER", "multibot"),
			Password: os.Getenv("DB_PASSWORD"),
		},
		LLM: LLMConfig{
			APIKey:  os.Getenv("DEEPSEEK_API_KEY"),
			BaseURL: getEnv("LLM_BASE_URL", "https://api.deepseek.com/v1"),
			Model:   getEnv("LLM_MODEL", "deepseek-chat"),
		},
		Retrieval: RetrievalConfig{
			QdrantURL:       os.Getenv("QDRANT_URL"),
			QdrantAPIKey:    os.Getenv("QDRANT_API_KEY"),
			VectorServerURL: os.Getenv("VECTOR_SERVER_URL"),
		},
		Billing: Billing{
			TrialDays:         getEnvInt("TRIAL_DAYS", 14),
			TrialProjectLimit: getEnvInt("TRIAL_PROJECT_LIMIT", 1),
			PaidProjectLimit:  getEnvInt("PAID_PROJECT_LIMIT", 5),
			PaymentAmount:     getEnvInt("PAYMENT_AMOUNT", 990),
			PaymentCard:       os.Getenv("PAYMENT_CARD"),
		},
		SheetsWebhookURL: os.Getenv("SHEETS_WEBHOOK_URL"),
	}

	// Validate required fields
	if cfg.SettingsBotToken == "" {
		return nil, fmt.Errorf("SETTINGS_BOT_TOKEN is required")
	}
	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("SERVER_URL is required")
	}
	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}
	if cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("DEEPSEEK_API_KEY is required")
	}

	return cfg, nil
}

// DSN returns PostgreSQL connection string
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}
