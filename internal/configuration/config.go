package configuration

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

type MongoConfig struct {
	Uri      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type ServerConfig struct {
	AppPort                int      `mapstructure:"app_port"`
	SocketPort             int      `mapstructure:"socket_port"`
	SocketRoute            string   `mapstructure:"socket_route"`
	AllowedOrigins         []string `mapstructure:"allowed_origins"`
	ShutdownTimeoutSeconds int      `mapstructure:"shutdown_timeout_seconds"`
}

type AuthConfig struct {
	JWTSecret       string `mapstructure:"jwt_secret"`
	TokenTTLMinutes int    `mapstructure:"token_ttl_minutes"`
}

type HubConfig struct {
	SendBuffer    int     `mapstructure:"send_buffer"`
	IngressBuffer int     `mapstructure:"ingress_buffer"`
	RateLimit     float64 `mapstructure:"rate_limit"`
	RateBurst     int     `mapstructure:"rate_burst"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type KafkaConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	Brokers          []string `mapstructure:"brokers"`
	TopicMessageSent string   `mapstructure:"topic_message_sent"`
}

type LogConfig struct {
	Development bool `mapstructure:"development"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"`
}

type Config struct {
	ChatDatabase MongoConfig  `mapstructure:"mongo"`
	Server       ServerConfig `mapstructure:"server"`
	Auth         AuthConfig   `mapstructure:"auth"`
	Hub          HubConfig    `mapstructure:"hub"`
	Redis        RedisConfig  `mapstructure:"redis"`
	Kafka        KafkaConfig  `mapstructure:"kafka"`
	Log          LogConfig    `mapstructure:"log"`
	Store        StoreConfig  `mapstructure:"store"`

	// derived
	ShutdownTimeout time.Duration `mapstructure:"-"`
	TokenTTL        time.Duration `mapstructure:"-"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "aura")
	v.SetDefault("server.app_port", 8080)
	v.SetDefault("server.socket_port", 8081)
	v.SetDefault("server.socket_route", "ws")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.shutdown_timeout_seconds", 30)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl_minutes", 60*24*7)
	v.SetDefault("hub.send_buffer", 256)
	v.SetDefault("hub.ingress_buffer", 64)
	v.SetDefault("hub.rate_limit", 20)
	v.SetDefault("hub.rate_burst", 40)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "aura")
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic_message_sent", "aura.message.sent")
	v.SetDefault("log.development", false)
	v.SetDefault("store.driver", StoreMongo)
}

// LoadConfig reads the JSON config at configPath. Any key can be overridden
// from the environment, e.g. AURA_AUTH_JWT_SECRET or AURA_STORE_DRIVER.
// An empty path runs on defaults and environment only.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("AURA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	config.ShutdownTimeout = time.Duration(config.Server.ShutdownTimeoutSeconds) * time.Second
	config.TokenTTL = time.Duration(config.Auth.TokenTTLMinutes) * time.Minute

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}
	switch c.Store.Driver {
	case StoreMongo:
		if c.ChatDatabase.Uri == "" || c.ChatDatabase.Database == "" {
			errs = append(errs, errors.New("mongo.uri and mongo.database are required for the mongo store"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("store.driver must be %q or %q, got %q", StoreMongo, StoreMemory, c.Store.Driver))
	}
	if c.Server.AppPort == c.Server.SocketPort {
		errs = append(errs, errors.New("server.app_port and server.socket_port must differ"))
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("kafka.brokers is required when kafka is enabled"))
	}
	return errors.Join(errs...)
}
