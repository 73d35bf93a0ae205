package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const DefaultPath = "settings.yaml"

// Config содержит настройки бота, клиента API и тестового сервера
type Config struct {
	Telegram Telegram `yaml:"telegram"`
	API      API      `yaml:"api"`
	Quiz     Quiz     `yaml:"quiz"`
	Storage  Storage  `yaml:"storage"`
	Logger   Logger   `yaml:"logger"`
	MockAPI  MockAPI  `yaml:"mockapi"`
	Report   Report   `yaml:"report"`
}

type Telegram struct {
	Token       string `yaml:"token"`
	Debug       bool   `yaml:"debug"`
	BotUsername string `yaml:"bot_username"`
}

type API struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	RateLimit float64       `yaml:"rate_limit"`
	Burst     int           `yaml:"burst"`
}

type Quiz struct {
	Duration time.Duration `yaml:"duration"`
	Shuffle  bool          `yaml:"shuffle"`
}

// Report настройки PDF-выгрузки. Без шрифта кириллица транслитерируется.
type Report struct {
	FontPath string `yaml:"font_path"`
}

type Logger struct {
	Level    string `yaml:"level"`
	Prefix   string `yaml:"prefix"`
	ShowLine bool   `yaml:"show_line"`
}

type MockAPI struct {
	Host      string        `yaml:"host"`
	Port      int           `yaml:"port"`
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
	Seed      bool          `yaml:"seed"`
}

// Addr возвращает адрес для http.Server
func (m MockAPI) Addr() string {
	return fmt.Sprintf("%s:%d", m.Host, m.Port)
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		API: API{
			BaseURL:   "https://terdu-qustions.vercel.app",
			Timeout:   10 * time.Second,
			RateLimit: 10,
			Burst:     5,
		},
		Quiz: Quiz{
			Duration: 15 * time.Minute,
		},
		Storage: Storage{
			Driver: DriverSQLite,
			DSN:    "quizbot.db",
		},
		Logger: Logger{
			Level:  "info",
			Prefix: "quizbot",
		},
		MockAPI: MockAPI{
			Port:      8080,
			JWTSecret: "dev-secret",
			TokenTTL:  24 * time.Hour,
			Seed:      true,
		},
	}
}

// Load читает .env, YAML-файл (если есть) и переменные окружения.
// Отсутствующий файл настроек не является ошибкой.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = getEnv("QUIZBOT_CONFIG", DefaultPath)
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Telegram.Token = getEnv("TELEGRAM_BOT_TOKEN", c.Telegram.Token)
	c.Telegram.BotUsername = getEnv("TELEGRAM_BOT_USERNAME", c.Telegram.BotUsername)
	c.API.BaseURL = getEnv("QUIZ_API_URL", c.API.BaseURL)
	c.Storage.Driver = getEnv("STORAGE_DRIVER", c.Storage.Driver)
	c.Storage.DSN = getEnv("STORAGE_DSN", c.Storage.DSN)
	c.Logger.Level = getEnv("LOG_LEVEL", c.Logger.Level)
	c.Report.FontPath = getEnv("REPORT_FONT", c.Report.FontPath)
	c.MockAPI.JWTSecret = getEnv("MOCKAPI_JWT_SECRET", c.MockAPI.JWTSecret)

	if v, ok := os.LookupEnv("QUIZ_API_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("QUIZ_API_TIMEOUT: %w", err)
		}
		c.API.Timeout = d
	}
	if v, ok := os.LookupEnv("QUIZ_TEST_DURATION"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("QUIZ_TEST_DURATION: %w", err)
		}
		c.Quiz.Duration = d
	}
	if v, ok := os.LookupEnv("MOCKAPI_PORT"); ok {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MOCKAPI_PORT: %w", err)
		}
		c.MockAPI.Port = p
	}
	return nil
}

// Validate проверяет обязательные поля
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	if c.API.Timeout <= 0 {
		return errors.New("api.timeout must be positive")
	}
	if c.Quiz.Duration < time.Second {
		return errors.New("quiz.duration must be at least one second")
	}
	switch c.Storage.Driver {
	case DriverSQLite, DriverMySQL:
	default:
		return fmt.Errorf("storage.driver %q is not supported", c.Storage.Driver)
	}
	return nil
}

// getEnv возвращает значение переменной окружения или значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
