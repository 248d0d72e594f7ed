package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	ServerPort       string `yaml:"server_port"`
	LogMode          string `yaml:"log_mode"`
	CORSAllowOrigins string `yaml:"cors_allow_origins"`

	DBDriver   string `yaml:"db_driver"`
	DBHost     string `yaml:"db_host"`
	DBPort     string `yaml:"db_port"`
	DBUser     string `yaml:"db_user"`
	DBPassword string `yaml:"db_password"`
	DBName     string `yaml:"db_name"`
	DBPath     string `yaml:"db_path"`

	Oracle OracleConfig `yaml:"oracle"`

	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	CacheTTL      time.Duration `yaml:"-"`

	DefaultWeeks int `yaml:"default_weeks"`
	MaxWeeks     int `yaml:"max_weeks"`
	ListLimit    int `yaml:"list_limit"`
}

// OracleConfig describes the text-generation backend. It is built once by the
// entry point and handed to oracle.New.
type OracleConfig struct {
	Provider string        `yaml:"provider"`
	APIKey   string        `yaml:"-"`
	Model    string        `yaml:"model"`
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"-"`

	BreakerMaxRequests      uint32        `yaml:"breaker_max_requests"`
	BreakerInterval         time.Duration `yaml:"-"`
	BreakerTimeout          time.Duration `yaml:"-"`
	BreakerFailureThreshold float64       `yaml:"breaker_failure_threshold"`
	BreakerMinRequests      uint32        `yaml:"breaker_min_requests"`
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file, using environment variables")
	}

	base := &Config{}
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadFile(path, base); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		ServerPort:       getEnv("SERVER_PORT", or(base.ServerPort, "8000")),
		LogMode:          getEnv("LOG_MODE", or(base.LogMode, "dev")),
		CORSAllowOrigins: getEnv("CORS_ALLOW_ORIGINS", or(base.CORSAllowOrigins, "*")),

		DBDriver:   strings.ToLower(getEnv("DB_DRIVER", or(base.DBDriver, DriverSQLite))),
		DBHost:     getEnv("DB_HOST", or(base.DBHost, "localhost")),
		DBPort:     getEnv("DB_PORT", or(base.DBPort, "5432")),
		DBUser:     getEnv("DB_USER", or(base.DBUser, "postgres")),
		DBPassword: getEnv("DB_PASSWORD", or(base.DBPassword, "postgres")),
		DBName:     getEnv("DB_NAME", or(base.DBName, "career_roadmap")),
		DBPath:     getEnv("DB_PATH", or(base.DBPath, "roadmaps.db")),

		RedisAddr:     getEnv("REDIS_ADDR", base.RedisAddr),
		RedisPassword: getEnv("REDIS_PASSWORD", base.RedisPassword),
		RedisDB:       getEnvInt("REDIS_DB", base.RedisDB),
		CacheTTL:      time.Duration(getEnvInt("CACHE_TTL_SECONDS", 300)) * time.Second,

		DefaultWeeks: getEnvInt("ROADMAP_DEFAULT_WEEKS", orInt(base.DefaultWeeks, 4)),
		MaxWeeks:     getEnvInt("ROADMAP_MAX_WEEKS", orInt(base.MaxWeeks, 12)),
		ListLimit:    getEnvInt("ROADMAP_LIST_LIMIT", orInt(base.ListLimit, 10)),
	}

	provider := strings.ToLower(getEnv("ORACLE_PROVIDER", or(base.Oracle.Provider, ProviderGemini)))
	oc := OracleConfig{
		Provider:                provider,
		Timeout:                 time.Duration(getEnvInt("ORACLE_TIMEOUT_SECONDS", 120)) * time.Second,
		BreakerMaxRequests:      uint32(getEnvInt("ORACLE_BREAKER_MAX_REQUESTS", int(orUint(base.Oracle.BreakerMaxRequests, 1)))),
		BreakerInterval:         time.Duration(getEnvInt("ORACLE_BREAKER_INTERVAL_SECONDS", 60)) * time.Second,
		BreakerTimeout:          time.Duration(getEnvInt("ORACLE_BREAKER_TIMEOUT_SECONDS", 30)) * time.Second,
		BreakerFailureThreshold: getEnvFloat("ORACLE_BREAKER_FAILURE_THRESHOLD", orFloat(base.Oracle.BreakerFailureThreshold, 0.6)),
		BreakerMinRequests:      uint32(getEnvInt("ORACLE_BREAKER_MIN_REQUESTS", int(orUint(base.Oracle.BreakerMinRequests, 5)))),
	}
	switch provider {
	case ProviderOpenAI:
		oc.APIKey = getEnv("OPENAI_API_KEY", "")
		oc.Model = getEnv("OPENAI_MODEL", or(base.Oracle.Model, "gpt-4o-mini"))
		oc.BaseURL = getEnv("OPENAI_BASE_URL", or(base.Oracle.BaseURL, "https://api.openai.com"))
	default:
		oc.APIKey = getEnv("GEMINI_API_KEY", "")
		oc.Model = getEnv("GEMINI_MODEL", or(base.Oracle.Model, "gemini-2.5-flash"))
		oc.BaseURL = getEnv("GEMINI_BASE_URL", or(base.Oracle.BaseURL, "https://generativelanguage.googleapis.com"))
	}
	oc.BaseURL = strings.TrimRight(oc.BaseURL, "/")
	cfg.Oracle = oc

	return cfg, nil
}

// Validate reports configuration that would make the service unusable.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	switch c.Oracle.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("unsupported ORACLE_PROVIDER %q", c.Oracle.Provider)
	}
	if strings.TrimSpace(c.Oracle.APIKey) == "" {
		return fmt.Errorf("missing API key for oracle provider %q", c.Oracle.Provider)
	}
	if c.DefaultWeeks < 1 || c.DefaultWeeks > c.MaxWeeks {
		return fmt.Errorf("ROADMAP_DEFAULT_WEEKS must be between 1 and %d", c.MaxWeeks)
	}
	if c.ListLimit < 1 {
		return fmt.Errorf("ROADMAP_LIST_LIMIT must be positive")
	}
	return nil
}

// PostgresDSN builds a libpq connection string from the DB_* settings.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
}

func loadFile(path string, into *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Invalid %s=%q, using default %d", key, v, defaultValue)
		return defaultValue
	}
	return i
}

func getEnvFloat(key string, defaultValue float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("Invalid %s=%q, using default %g", key, v, defaultValue)
		return defaultValue
	}
	return f
}

func or(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func orInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func orUint(v, def uint32) uint32 {
	if v == 0 {
		return def
	}
	return v
}

func orFloat(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}
