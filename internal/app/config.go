package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/service/catalog"
)

// StorageDriver выбирает хранилище блобов.
type StorageDriver string

const (
	StorageDriverMemory   StorageDriver = "memory"
	StorageDriverRedis    StorageDriver = "redis"
	StorageDriverPostgres StorageDriver = "postgres"
)

// EnvPrefix задаёт префикс переменных окружения конфигурации.
const EnvPrefix = "STOREFRONT"

const defaultTokenSecret = "storefront-dev-secret"

// Config описывает настройки запуска приложения.
type Config struct {
	HTTPAddr    string `mapstructure:"http_addr"`
	MetricsAddr string `mapstructure:"metrics_addr"`
	// GRPCAddr: адрес gRPC health, пустое значение отключает сервер.
	GRPCAddr       string        `mapstructure:"grpc_addr"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	LogLevel       string        `mapstructure:"log_level"`

	StorageDriver       StorageDriver `mapstructure:"storage_driver"`
	RedisAddr           string        `mapstructure:"redis_addr"`
	RedisPassword       string        `mapstructure:"redis_password"`
	RedisDB             int           `mapstructure:"redis_db"`
	RedisPrefix         string        `mapstructure:"redis_prefix"`
	PostgresDSN         string        `mapstructure:"postgres_dsn"`
	PostgresAutoMigrate bool          `mapstructure:"postgres_auto_migrate"`

	// KafkaBrokers перечисляет брокеров через запятую. Без брокеров события не публикуются.
	KafkaBrokers string `mapstructure:"kafka_brokers"`
	KafkaTopic   string `mapstructure:"kafka_topic"`

	CatalogURL     string        `mapstructure:"catalog_url"`
	CatalogTimeout time.Duration `mapstructure:"catalog_timeout"`
	CatalogRPS     float64       `mapstructure:"catalog_rps"`
	CatalogBurst   int           `mapstructure:"catalog_burst"`
	CatalogLimit   int           `mapstructure:"catalog_limit"`

	AuthLatency          time.Duration `mapstructure:"auth_latency"`
	TokenSecret          string        `mapstructure:"token_secret"`
	TokenTTL             time.Duration `mapstructure:"token_ttl"`
	BcryptCost           int           `mapstructure:"bcrypt_cost"`
	CheckoutRequireLogin bool          `mapstructure:"checkout_require_login"`
}

// DefaultConfig возвращает настройки для локального запуска без внешних зависимостей.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:       ":8080",
		MetricsAddr:    ":9090",
		GRPCAddr:       ":50051",
		RequestTimeout: 15 * time.Second,
		LogLevel:       "info",

		StorageDriver:       StorageDriverMemory,
		RedisAddr:           "localhost:6379",
		RedisPrefix:         "storefront:",
		PostgresAutoMigrate: true,

		KafkaTopic: kafka.DefaultTopic,

		CatalogURL:     catalog.DefaultBaseURL,
		CatalogTimeout: 5 * time.Second,
		CatalogRPS:     10,
		CatalogBurst:   20,
		CatalogLimit:   catalog.DefaultLimit,

		AuthLatency: time.Second,
		TokenSecret: defaultTokenSecret,
		TokenTTL:    24 * time.Hour,
		BcryptCost:  10,
	}
}

// LoadConfig собирает конфигурацию: значения по умолчанию, затем файл (если path не пуст),
// затем переменные окружения STOREFRONT_*.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	defaults := DefaultConfig()
	for key, value := range map[string]any{
		"http_addr":              defaults.HTTPAddr,
		"metrics_addr":           defaults.MetricsAddr,
		"grpc_addr":              defaults.GRPCAddr,
		"request_timeout":        defaults.RequestTimeout,
		"log_level":              defaults.LogLevel,
		"storage_driver":         string(defaults.StorageDriver),
		"redis_addr":             defaults.RedisAddr,
		"redis_password":         defaults.RedisPassword,
		"redis_db":               defaults.RedisDB,
		"redis_prefix":           defaults.RedisPrefix,
		"postgres_dsn":           defaults.PostgresDSN,
		"postgres_auto_migrate":  defaults.PostgresAutoMigrate,
		"kafka_brokers":          defaults.KafkaBrokers,
		"kafka_topic":            defaults.KafkaTopic,
		"catalog_url":            defaults.CatalogURL,
		"catalog_timeout":        defaults.CatalogTimeout,
		"catalog_rps":            defaults.CatalogRPS,
		"catalog_burst":          defaults.CatalogBurst,
		"catalog_limit":          defaults.CatalogLimit,
		"auth_latency":           defaults.AuthLatency,
		"token_secret":           defaults.TokenSecret,
		"token_ttl":              defaults.TokenTTL,
		"bcrypt_cost":            defaults.BcryptCost,
		"checkout_require_login": defaults.CheckoutRequireLogin,
	} {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.StorageDriver = StorageDriver(strings.ToLower(strings.TrimSpace(string(cfg.StorageDriver))))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate проверяет согласованность настроек.
func (c Config) Validate() error {
	var errs []error
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("http_addr is required"))
	}
	switch c.StorageDriver {
	case StorageDriverMemory, StorageDriverRedis:
	case StorageDriverPostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("postgres_dsn is required for postgres storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported storage driver %q", c.StorageDriver))
	}
	if c.TokenSecret == "" {
		errs = append(errs, errors.New("token_secret is required"))
	}
	if c.CatalogRPS < 0 {
		errs = append(errs, errors.New("catalog_rps must be non-negative"))
	}
	return errors.Join(errs...)
}

// Brokers разбирает KafkaBrokers.
func (c Config) Brokers() []string {
	var brokers []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
