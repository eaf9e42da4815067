package infra

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config — корневая структура конфигурации сервиса аттестаций.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Attestation AttestationConfig `mapstructure:"attestation"`
	Journal     JournalConfig     `mapstructure:"journal"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	GRPC        GRPCConfig        `mapstructure:"grpc"`
	Logger      LoggerConfig      `mapstructure:"logger"`
}

// ServerConfig описывает настройки HTTP-сервера.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	// LegacyStatus — всегда отвечать 200, а успех/ошибку передавать только в теле.
	// Старый фронтенд читает только тело, поэтому по умолчанию включено.
	LegacyStatus bool  `mapstructure:"legacy_status"`
	MaxBodyBytes int64 `mapstructure:"max_body_bytes"`
}

// Addr собирает host:port для http.Server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig описывает подключение к PostgreSQL (журнал аттестаций).
// Пустой URL — журнал пишется только в лог.
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// RedisConfig описывает подключение к Redis (выключатель сценариев).
// Пустой Addr — все сценарии включены, Redis не используется.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AttestationConfig — клиент ANNA и обвязка надежности вокруг него.
type AttestationConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	PrivateKey  string        `mapstructure:"private_key"` // VERIFIER_PRIVATE_KEY
	Mode        string        `mapstructure:"mode"`        // live, mock
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`

	// Retry: 1 попытка = без повторов
	RetryAttempts uint `mapstructure:"retry_attempts"`

	RateLimit float64 `mapstructure:"rate_limit"` // запросов в секунду к ANNA, 0 — без ограничения
	RateBurst int     `mapstructure:"rate_burst"`

	// Настройки Circuit Breaker. По умолчанию threshold=0 и он не размыкается
	CBMaxRequests      uint32        `mapstructure:"cb_max_requests"`
	CBInterval         time.Duration `mapstructure:"cb_interval"`
	CBTimeout          time.Duration `mapstructure:"cb_timeout"`
	CBFailureThreshold uint32        `mapstructure:"cb_failure_threshold"`
}

// JournalConfig настраивает асинхронный журнал аттестаций.
type JournalConfig struct {
	BufferSize    int           `mapstructure:"buffer_size"`
	BatchSize     int           `mapstructure:"batch_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// GRPCConfig — адрес gRPC health-сервиса. Пустой — не поднимаем.
type GRPCConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggerConfig настраивает поведение zap логгера.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// LoadConfig инициализирует конфигурацию, объединяя значения из файла и ENV.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// 1. Настройка поиска файла
	v.SetConfigName("config")    // имя файла без расширения
	v.SetConfigType("yaml")      // формат
	v.AddConfigPath(".")         // ищем в корне
	v.AddConfigPath("./configs") // и в папке с конфигами

	// 2. Настройка переменных окружения (ENV)
	// Позволяет перекрывать конфиг: SERVER_PORT=9000 перекроет server.port
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Ключ верификатора исторически живет в VERIFIER_PRIVATE_KEY
	if err := v.BindEnv("attestation.private_key", "VERIFIER_PRIVATE_KEY", "ATTESTATION_PRIVATE_KEY"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	// 3. Установка дефолтных значений
	setDefaults(v)

	// 4. Чтение файла
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Если файла нет — работаем на ENV и дефолтах
	}

	// 5. Маппинг в структуру
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет значения, при которых сервис не сможет стартовать.
// Отсутствие ключа верификатора сюда не входит: это ошибка конкретного запроса.
func (c *Config) Validate() error {
	switch c.Attestation.Mode {
	case "live", "mock":
	default:
		return fmt.Errorf("config: attestation.mode must be live or mock, got %q", c.Attestation.Mode)
	}
	if c.Attestation.RetryAttempts == 0 {
		return errors.New("config: attestation.retry_attempts must be >= 1")
	}
	if c.Journal.BatchSize <= 0 || c.Journal.BufferSize <= 0 {
		return errors.New("config: journal buffer_size and batch_size must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.legacy_status", true)
	v.SetDefault("server.max_body_bytes", 1<<20)

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 15)
	v.SetDefault("database.min_conns", 5)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("attestation.base_url", "https://api.annaprotocol.com")
	v.SetDefault("attestation.mode", "live")
	v.SetDefault("attestation.http_timeout", 30*time.Second)
	v.SetDefault("attestation.retry_attempts", 1)
	v.SetDefault("attestation.rate_limit", 0)
	v.SetDefault("attestation.rate_burst", 10)
	v.SetDefault("attestation.cb_max_requests", 3)
	v.SetDefault("attestation.cb_interval", 5*time.Second)
	v.SetDefault("attestation.cb_timeout", 30*time.Second)
	v.SetDefault("attestation.cb_failure_threshold", 0)

	v.SetDefault("journal.buffer_size", 10000)
	v.SetDefault("journal.batch_size", 100)
	v.SetDefault("journal.flush_interval", 500*time.Millisecond)

	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("grpc.addr", ":50052")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
}
