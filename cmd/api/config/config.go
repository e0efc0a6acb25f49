package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration, loaded once at startup from the
// environment (.env support comes from godotenv in main).
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	AI       AIConfig       `mapstructure:"ai"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type ServerConfig struct {
	Port           string `mapstructure:"port"`
	AllowedOrigins string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

// AIConfig selects the generative backend. The choice is fixed for the
// process lifetime.
type AIConfig struct {
	Backend      string `mapstructure:"backend"`
	OpenAIAPIKey string `mapstructure:"openai_api_key"`
	GeminiAPIKey string `mapstructure:"gemini_api_key"`
	ChatModel    string `mapstructure:"chat_model"`
}

// RedisConfig is optional; an empty Addr disables presence tracking.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bindEnvVariables(v)
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func bindEnvVariables(v *viper.Viper) {
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.allowed_origins", "ALLOWED_ORIGINS")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.name", "DB_NAME")
	v.BindEnv("database.sslmode", "DB_SSLMODE")
	v.BindEnv("jwt.secret", "JWT_SECRET")
	v.BindEnv("ai.backend", "AI_BACKEND")
	v.BindEnv("ai.openai_api_key", "OPENAI_API_KEY")
	v.BindEnv("ai.gemini_api_key", "GEMINI_API_KEY")
	v.BindEnv("ai.chat_model", "AI_CHAT_MODEL")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "3000")
	v.SetDefault("server.allowed_origins", "http://localhost:5173")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("ai.backend", "openai")
	v.SetDefault("redis.db", 0)
}

// validate fails startup on settings the server cannot run without.
func (c *Config) validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is not set")
	}
	switch c.AI.Backend {
	case "openai":
		if c.AI.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is not set")
		}
	case "gemini":
		if c.AI.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is not set")
		}
	default:
		return fmt.Errorf("unknown AI backend %q", c.AI.Backend)
	}
	if c.Database.User == "" || c.Database.Name == "" {
		return fmt.Errorf("database settings are incomplete")
	}
	return nil
}

// APIKey returns the key for the selected backend.
func (c *AIConfig) APIKey() string {
	if c.Backend == "gemini" {
		return c.GeminiAPIKey
	}
	return c.OpenAIAPIKey
}
