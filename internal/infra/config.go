package infra

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config - корневая структура конфигурации сервиса.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Journal  JournalConfig  `mapstructure:"journal"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig описывает HTTP-сервер хост-приложения.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// AdminConfig описывает отдельный листенер административного API (_cat, _routes).
type AdminConfig struct {
	Addr         string          `mapstructure:"addr"`
	ReadTimeout  time.Duration   `mapstructure:"read_timeout"`
	WriteTimeout time.Duration   `mapstructure:"write_timeout"`
	RateLimit    RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig - token bucket для административного API. RPS <= 0 отключает лимит.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// DatabaseConfig описывает подключение к PostgreSQL (журнал запросов). Пустой URL отключает журнал.
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int    `mapstructure:"max_conns"`
	MinConns int    `mapstructure:"min_conns"`
}

// RedisConfig описывает подключение к Redis (Pub/Sub настроек маршрутов). Пустой Addr - без рассылки.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JournalConfig настраивает буфер и пакетную запись журнала.
type JournalConfig struct {
	BufferSize    int           `mapstructure:"buffer_size"`
	BatchSize     int           `mapstructure:"batch_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

// LoggerConfig настраивает поведение zap логгера.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// LoadConfig объединяет значения из файла, ENV и дефолтов.
// path - явный путь к файлу; пустой - поиск config.yaml в . и ./configs.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	// ADMIN_ADDR=:9300 перекроет admin.addr
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Если файла нет - работаем на ENV и дефолтах
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет значения, которые нельзя исправить дефолтами
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("config: server.addr is required")
	}
	if c.Admin.Addr == "" {
		return errors.New("config: admin.addr is required")
	}
	if c.Server.Addr == c.Admin.Addr {
		return fmt.Errorf("config: server.addr and admin.addr must differ (both %s)", c.Server.Addr)
	}
	if c.Journal.BatchSize > c.Journal.BufferSize {
		return fmt.Errorf("config: journal.batch_size (%d) exceeds journal.buffer_size (%d)",
			c.Journal.BatchSize, c.Journal.BufferSize)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("admin.addr", ":9200")
	v.SetDefault("admin.read_timeout", 5*time.Second)
	v.SetDefault("admin.write_timeout", 10*time.Second)
	v.SetDefault("admin.rate_limit.rps", 50)
	v.SetDefault("admin.rate_limit.burst", 20)
	v.SetDefault("database.max_conns", 15)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("journal.buffer_size", 10000)
	v.SetDefault("journal.batch_size", 100)
	v.SetDefault("journal.flush_interval", 500*time.Millisecond)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
}
