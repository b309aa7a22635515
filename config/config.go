package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "CSAGENT"

type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Server     ServerConfig     `mapstructure:"server"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Intent     IntentConfig     `mapstructure:"intent"`
	Repository RepositoryConfig `mapstructure:"repository"`
	State      StateConfig      `mapstructure:"state"`
	Redis      RedisConfig      `mapstructure:"redis"`
}

type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
}

type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// LLMConfig configures the OpenAI compatible chat model used by the llm
// recognizer.
type LLMConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

type IntentConfig struct {
	Recognizer  string `mapstructure:"recognizer"` // constant, keyword, llm
	HistorySize int    `mapstructure:"history_size"`
}

type RepositoryConfig struct {
	Driver       string `mapstructure:"driver"` // memory, dynamodb, postgres
	DynamoTable  string `mapstructure:"dynamo_table"`
	PostgresDSN  string `mapstructure:"postgres_dsn"`
	HistoryLimit int    `mapstructure:"history_limit"`
	Cache        bool   `mapstructure:"cache"` // redis read-through transcript cache
}

// StateConfig selects where session states live and how turns of one session
// are serialized. The redis driver also switches the session lock to Redis.
type StateConfig struct {
	Driver  string        `mapstructure:"driver"` // memory, redis
	LockTTL time.Duration `mapstructure:"lock_ttl"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// UsesRedis reports whether any component needs a Redis client.
func (c *Config) UsesRedis() bool {
	return c.State.Driver == "redis" || c.Repository.Cache
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.request_timeout", "30s")

	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", "gpt-4o-mini")

	v.SetDefault("intent.recognizer", "constant")
	v.SetDefault("intent.history_size", 10)

	v.SetDefault("repository.driver", "memory")
	v.SetDefault("repository.dynamo_table", "csagent-chat")
	v.SetDefault("repository.postgres_dsn", "")
	v.SetDefault("repository.history_limit", 50)
	v.SetDefault("repository.cache", false)

	v.SetDefault("state.driver", "memory")
	v.SetDefault("state.lock_ttl", "30s")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
}

// Load reads .env, the config file and CSAGENT_* environment variables, in
// increasing order of precedence. With an empty path a file named config in
// the working directory is used when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var conf Config
	if err := v.Unmarshal(&conf); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}

func (c *Config) Validate() error {
	switch c.Intent.Recognizer {
	case "constant", "keyword":
	case "llm":
		if c.LLM.APIKey == "" {
			return errors.New("config: llm.api_key is required for the llm recognizer")
		}
	default:
		return fmt.Errorf("config: unknown intent.recognizer %q", c.Intent.Recognizer)
	}
	switch c.Repository.Driver {
	case "memory":
	case "dynamodb":
		if c.Repository.DynamoTable == "" {
			return errors.New("config: repository.dynamo_table is required")
		}
	case "postgres":
		if c.Repository.PostgresDSN == "" {
			return errors.New("config: repository.postgres_dsn is required")
		}
	default:
		return fmt.Errorf("config: unknown repository.driver %q", c.Repository.Driver)
	}
	switch c.State.Driver {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: unknown state.driver %q", c.State.Driver)
	}
	if c.UsesRedis() && c.Redis.Addr == "" {
		return errors.New("config: redis.addr is required")
	}
	return nil
}

// SlogLevel maps Log.Level to a slog level; unknown values read as info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func (c *Config) String() string {
	return fmt.Sprintf("Config{Recognizer:%q, Repository:%q, State:%q, Model:%q, Addr:%q}",
		c.Intent.Recognizer, c.Repository.Driver, c.State.Driver, c.LLM.Model, c.Server.Addr)
}
