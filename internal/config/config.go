package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	Env       string `mapstructure:"env"`
	Port      int    `mapstructure:"port"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers          []string `mapstructure:"brokers"`
	TopicMessageSent string   `mapstructure:"topic_message_sent"`
}

type PushConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	ServerKey      string `mapstructure:"server_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	RatePerSecond  int    `mapstructure:"rate_per_second"`
}

type ProfileDirectoryConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type RateLimitConfig struct {
	MessagesPerMinute int `mapstructure:"messages_per_minute"`
}

type Config struct {
	App       AppConfig              `mapstructure:"app"`
	Mongo     MongoConfig            `mapstructure:"mongo"`
	Redis     RedisConfig            `mapstructure:"redis"`
	Kafka     KafkaConfig            `mapstructure:"kafka"`
	Push      PushConfig             `mapstructure:"push"`
	Profiles  ProfileDirectoryConfig `mapstructure:"profile_directory"`
	Log       LogConfig              `mapstructure:"log"`
	RateLimit RateLimitConfig        `mapstructure:"rate_limit"`

	// derived
	RequestTimeout time.Duration
	PushTimeout    time.Duration
	ProfileTimeout time.Duration
}

// Load reads config.yaml (optional) with APP_-prefixed env overrides, e.g.
// APP_MONGO_URI.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.App.Port == 0 {
		cfg.App.Port = 8084
	}
	if cfg.Mongo.URI == "" {
		cfg.Mongo.URI = "mongodb://localhost:27017"
	}
	if cfg.Mongo.Database == "" {
		cfg.Mongo.Database = "messaging"
	}
	if cfg.Kafka.TopicMessageSent == "" {
		cfg.Kafka.TopicMessageSent = "message.sent"
	}
	if cfg.Push.TimeoutSeconds == 0 {
		cfg.Push.TimeoutSeconds = 5
	}
	if cfg.Push.RatePerSecond == 0 {
		cfg.Push.RatePerSecond = 50
	}
	if cfg.Profiles.TimeoutSeconds == 0 {
		cfg.Profiles.TimeoutSeconds = 5
	}
	if cfg.RateLimit.MessagesPerMinute == 0 {
		cfg.RateLimit.MessagesPerMinute = 60
	}

	cfg.RequestTimeout = 10 * time.Second
	cfg.PushTimeout = time.Duration(cfg.Push.TimeoutSeconds) * time.Second
	cfg.ProfileTimeout = time.Duration(cfg.Profiles.TimeoutSeconds) * time.Second
	return &cfg, nil
}
