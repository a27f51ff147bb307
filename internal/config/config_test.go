package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		setEnv       bool
		envValue     string
		expected     string
	}{
		{
			name:         "env variable set",
			key:          "TEST_KEY",
			defaultValue: "default",
			setEnv:       true,
			envValue:     "custom",
			expected:     "custom",
		},
		{
			name:         "env variable not set",
			key:          "TEST_KEY_NOT_SET",
			defaultValue: "default",
			setEnv:       false,
			expected:     "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setEnv {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			}

			result := getEnv(tt.key, tt.defaultValue)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	os.Setenv("TEST_INT", "42")
	defer os.Unsetenv("TEST_INT")

	assert.Equal(t, 42, getEnvInt("TEST_INT", 7))
	assert.Equal(t, 7, getEnvInt("TEST_INT_MISSING", 7))

	os.Setenv("TEST_INT_BAD", "not-a-number")
	defer os.Unsetenv("TEST_INT_BAD")
	assert.Equal(t, 7, getEnvInt("TEST_INT_BAD", 7))
}

func TestConfig_DSN(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     "5432",
			User:     "testuser",
			Password: "testpass",
			Name:     "testdb",
		},
	}

	dsn := cfg.DSN()
	expected := "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=disable"
	assert.Equal(t, expected, dsn)
}

func TestLoad_MissingRequiredFields(t *testing.T) {
	env := saveEnv("SETTINGS_BOT_TOKEN", "SERVER_URL", "DB_PASSWORD", "DEEPSEEK_API_KEY")
	defer env.restore()

	os.Unsetenv("SETTINGS_BOT_TOKEN")
	os.Unsetenv("SERVER_URL")
	os.Unsetenv("DB_PASSWORD")
	os.Unsetenv("DEEPSEEK_API_KEY")

	cfg, err := Load()
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "SETTINGS_BOT_TOKEN")
}

func TestLoad_WithDefaults(t *testing.T) {
	env := saveEnv(
		"SETTINGS_BOT_TOKEN", "SERVER_URL", "DB_PASSWORD", "DEEPSEEK_API_KEY",
		"DB_HOST", "DB_PORT", "DB_NAME", "DB_USER", "LLM_MODEL", "TRIAL_DAYS",
	)
	defer env.restore()

	os.Setenv("SETTINGS_BOT_TOKEN", "test_token")
	os.Setenv("SERVER_URL", "https://bots.example.com")
	os.Setenv("DB_PASSWORD", "test_db_password")
	os.Setenv("DEEPSEEK_API_KEY", "test_api_key")

	os.Unsetenv("DB_HOST")
	os.Unsetenv("DB_PORT")
	os.Unsetenv("DB_NAME")
	os.Unsetenv("DB_USER")
	os.Unsetenv("LLM_MODEL")
	os.Unsetenv("TRIAL_DAYS")

	cfg, err := Load()
	assert.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, "test_token", cfg.SettingsBotToken)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, "multibot", cfg.Database.Name)
	assert.Equal(t, "multibot", cfg.Database.User)
	assert.Equal(t, "deepseek-chat", cfg.LLM.Model)
	assert.Equal(t, 14, cfg.Billing.TrialDays)
}

func TestLoad_MissingLLMKey(t *testing.T) {
	env := saveEnv("SETTINGS_BOT_TOKEN", "SERVER_URL", "DB_PASSWORD", "DEEPSEEK_API_KEY")
	defer env.restore()

	os.Setenv("SETTINGS_BOT_TOKEN", "test_token")
	os.Setenv("SERVER_URL", "https://bots.example.com")
	os.Setenv("DB_PASSWORD", "test_db_password")
	os.Unsetenv("DEEPSEEK_API_KEY")

	cfg, err := Load()
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "DEEPSEEK_API_KEY")
}

// savedEnv remembers and restores a set of environment variables around a test
type savedEnv map[string]*string

func saveEnv(keys ...string) savedEnv {
	saved := savedEnv{}
	for _, k := range keys {
		if v, ok := os.LookupEnv(k); ok {
			val := v
			saved[k] = &val
		} else {
			saved[k] = nil
		}
	}
	return saved
}

func (s savedEnv) restore() {
	for k, v := range s {
		if v != nil {
			os.Setenv(k, *v)
		} else {
			os.Unsetenv(k)
		}
	}
}
