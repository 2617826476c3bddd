package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	HTTP      HTTPConfig      `mapstructure:"http"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Mistral   MistralConfig   `mapstructure:"mistral"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Weather   WeatherConfig   `mapstructure:"weather"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Speech    SpeechConfig    `mapstructure:"speech"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Breaker   BreakerConfig   `mapstructure:"breaker"`
	CORS      CORSConfig      `mapstructure:"cors"`
}

type HTTPConfig struct {
	Port int `mapstructure:"port"`
}

type LLMConfig struct {
	Provider string `mapstructure:"provider"`
}

type MistralConfig struct {
	APIKey  string `mapstructure:"api_key"`
	AgentID string `mapstructure:"agent_id"`
	BaseURL string `mapstructure:"base_url"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type WeatherConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Lang    string `mapstructure:"lang"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	URL    string `mapstructure:"url"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type SpeechConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Language   string `mapstructure:"language"`
	SampleRate int    `mapstructure:"sample_rate"`
}

type RateLimitConfig struct {
	PerMinute int `mapstructure:"per_minute"`
}

type BreakerConfig struct {
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
	OpenTimeout      time.Duration `mapstructure:"open_timeout"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DefaultJWTSecret is only meant for local development.
const DefaultJWTSecret = "secret"

var envBindings = map[string]string{
	"http.port":                 "PORT",
	"llm.provider":              "LLM_PROVIDER",
	"mistral.api_key":           "MISTRAL_API_KEY",
	"mistral.agent_id":          "MISTRAL_AGENT_ID",
	"mistral.base_url":          "MISTRAL_BASE_URL",
	"openai.api_key":            "OPENAI_API_KEY",
	"openai.base_url":           "OPENAI_BASE_URL",
	"openai.model":              "OPENAI_MODEL",
	"gemini.api_key":            "GEMINI_API_KEY",
	"gemini.model":              "GEMINI_MODEL",
	"weather.api_key":           "WEATHER_API_KEY",
	"weather.base_url":          "WEATHER_BASE_URL",
	"weather.lang":              "WEATHER_LANG",
	"jwt.secret":                "JWT_SECRET",
	"jwt.expiry":                "JWT_EXPIRY",
	"database.driver":           "DATABASE_DRIVER",
	"database.url":              "DATABASE_URL",
	"redis.url":                 "REDIS_URL",
	"nats.url":                  "NATS_URL",
	"speech.enabled":            "SPEECH_ENABLED",
	"speech.language":           "SPEECH_LANGUAGE",
	"speech.sample_rate":        "SPEECH_SAMPLE_RATE",
	"rate_limit.per_minute":     "RATE_LIMIT_PER_MINUTE",
	"breaker.failure_threshold": "BREAKER_FAILURE_THRESHOLD",
	"breaker.open_timeout":      "BREAKER_OPEN_TIMEOUT",
	"cors.allowed_origins":      "CORS_ALLOWED_ORIGINS",
}

// Load reads .env (if present), then config.yaml (if present), then the
// environment. Later sources win. Missing provider credentials are not an
// error here; they surface on the first call that needs them.
func Load() (*Config, error) {
	_ = gotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", env, err)
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.CORS.AllowedOrigins = splitList(cfg.CORS.AllowedOrigins)

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.port", 7000)
	v.SetDefault("llm.provider", "mistral")
	v.SetDefault("mistral.base_url", "https://api.mistral.ai")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("gemini.model", "gemini-2.0-flash-001")
	v.SetDefault("weather.base_url", "http://api.weatherapi.com/v1")
	v.SetDefault("weather.lang", "fr")
	v.SetDefault("jwt.secret", DefaultJWTSecret)
	v.SetDefault("jwt.expiry", time.Hour)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.url", "voice-assistant.db")
	v.SetDefault("speech.enabled", false)
	v.SetDefault("speech.language", "fr-FR")
	v.SetDefault("speech.sample_rate", 16000)
	v.SetDefault("rate_limit.per_minute", 20)
	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.open_timeout", 30*time.Second)
	v.SetDefault("cors.allowed_origins", []string{"*"})
}

// splitList accepts both YAML lists and comma-separated env values.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.HTTP.Port)
}
