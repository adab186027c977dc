package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	DB        *DBconfig
	RabbitMq  *RabbitMqconfig
	Srv       *Serviceconfig
	Log       *Loggerconfig
	App       *Appconfig
	Store     *Storeconfig
	Analytics *Analyticsconfig
}

type DBconfig struct {
	Host       string
	Port       int
	User       string
	Password   string
	Database   string
	MaxRetries int
}

type RabbitMqconfig struct {
	Host     string
	Port     int
	User     string
	Password string
	VHost    string
	Exchange string
	Enabled  bool
}

type Serviceconfig struct {
	DispatchServicePort string
	AdminServicePort    string
	RequestTimeoutSec   int
}

type Loggerconfig struct {
	Level string
}

type Appconfig struct {
	JwtSecret string
}

type Storeconfig struct {
	Driver string
}

type Analyticsconfig struct {
	Partitions              int
	MaxWindowDays           int
	ExcludeCancelledRevenue bool
}

// New reads configuration from the environment, after loading an optional .env file.
func New() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cnf := &Config{
		DB: &DBconfig{
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnvInt("DB_PORT", 5432),
			User:       getEnv("DB_USER", "dispatch_user"),
			Password:   getEnv("DB_PASSWORD", "dispatch_pass"),
			Database:   getEnv("DB_NAME", "dispatch_db"),
			MaxRetries: getEnvInt("DB_MAX_RETRIES", 3),
		},
		RabbitMq: &RabbitMqconfig{
			Host:     getEnv("RABBITMQ_HOST", "localhost"),
			Port:     getEnvInt("RABBITMQ_PORT", 5672),
			User:     getEnv("RABBITMQ_USER", "guest"),
			Password: getEnv("RABBITMQ_PASSWORD", "guest"),
			VHost:    getEnv("RABBITMQ_VHOST", ""),
			Exchange: getEnv("RABBITMQ_EXCHANGE", "dispatch_topic"),
			Enabled:  getEnvBool("RABBITMQ_ENABLED", true),
		},
		Srv: &Serviceconfig{
			DispatchServicePort: getEnv("DISPATCH_SERVICE_PORT", "3000"),
			AdminServicePort:    getEnv("ADMIN_SERVICE_PORT", "3004"),
			RequestTimeoutSec:   getEnvInt("REQUEST_TIMEOUT_SEC", 10),
		},
		Log: &Loggerconfig{
			Level: getEnv("LOG_LEVEL", "INFO"),
		},
		App: &Appconfig{
			JwtSecret: getEnv("JWT_SECRET", ""),
		},
		Store: &Storeconfig{
			Driver: strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		},
		Analytics: &Analyticsconfig{
			Partitions:              getEnvInt("ANALYTICS_PARTITIONS", 1),
			MaxWindowDays:           getEnvInt("ANALYTICS_MAX_WINDOW_DAYS", 366),
			ExcludeCancelledRevenue: getEnvBool("ANALYTICS_EXCLUDE_CANCELLED_REVENUE", false),
		},
	}

	if err := cnf.validate(); err != nil {
		return nil, err
	}
	return cnf, nil
}

func (c *Config) validate() error {
	if c.App.JwtSecret == "" {
		return fmt.Errorf("JWT_SECRET must be set")
	}
	switch c.Store.Driver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}
	if c.Analytics.Partitions < 1 {
		return fmt.Errorf("ANALYTICS_PARTITIONS must be positive, got %d", c.Analytics.Partitions)
	}
	if c.Analytics.MaxWindowDays < 1 {
		return fmt.Errorf("ANALYTICS_MAX_WINDOW_DAYS must be positive, got %d", c.Analytics.MaxWindowDays)
	}
	if c.DB.MaxRetries < 1 {
		c.DB.MaxRetries = 1
	}
	return nil
}

func getEnv(key, def string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	return val
}

func getEnvInt(key string, def int) int {
	valStr := strings.TrimSpace(os.Getenv(key))
	if valStr == "" {
		return def
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		return def
	}
	return val
}

func getEnvBool(key string, def bool) bool {
	valStr := strings.TrimSpace(os.Getenv(key))
	if valStr == "" {
		return def
	}
	val, err := strconv.ParseBool(valStr)
	if err != nil {
		return def
	}
	return val
}
