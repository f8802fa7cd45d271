package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the task automation system
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Tools     ToolsConfig     `mapstructure:"tools"`
	Agents    AgentsConfig    `mapstructure:"agents"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug          bool          `mapstructure:"debug"`
	LogLevel       string        `mapstructure:"log_level"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// LLMConfig contains language-generation provider settings
type LLMConfig struct {
	Provider    string        `mapstructure:"provider"` // gemini only for now
	APIKey      string        `mapstructure:"gemini_api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Models      []string      `mapstructure:"models"` // tried in order until one answers
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// ToolsConfig contains settings for the registered tool capabilities
type ToolsConfig struct {
	HTTP    ToolHTTPConfig `mapstructure:"http"`
	GitHub  GitHubConfig   `mapstructure:"github"`
	Weather WeatherConfig  `mapstructure:"weather"`
}

// ToolHTTPConfig controls the shared HTTP client used by tool capabilities
type ToolHTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
	Retries int           `mapstructure:"retries"`
	Backoff time.Duration `mapstructure:"backoff"`
}

// GitHubConfig configures the repository search capability
type GitHubConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	MaxResults int    `mapstructure:"max_results"`
}

// WeatherConfig configures the weather lookup capability
type WeatherConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	APIKey   string `mapstructure:"api_key"`
	Units    string `mapstructure:"units"`
}

// AgentsConfig contains control-loop settings
type AgentsConfig struct {
	MaxRetries  int           `mapstructure:"max_retries"` // retry rounds per task
	StepTimeout time.Duration `mapstructure:"step_timeout"`
}

// TelemetryConfig contains telemetry and monitoring settings
type TelemetryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	LogFile string `mapstructure:"log_file"`
}

func (a AgentsConfig) Validate() error {
	if a.MaxRetries < 0 {
		return fmt.Errorf("agents.max_retries must be >= 0")
	}
	return nil
}

func (l LLMConfig) Validate() error {
	if len(l.Models) == 0 {
		return fmt.Errorf("llm.models must list at least one model")
	}
	return nil
}

// LoadConfig reads configuration from an optional file plus TASKPILOT_* env
// variables. A missing config file is fine; everything has a default.
func LoadConfig(path string) *Config {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")

	v.SetDefault("general.log_level", "info")
	v.SetDefault("general.default_timeout", 60*time.Second)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.models", []string{"gemini-1.5-flash", "gemini-1.5-pro"})
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 2000)
	v.SetDefault("llm.timeout", 30*time.Second)
	v.SetDefault("tools.http.timeout", 15*time.Second)
	v.SetDefault("tools.http.retries", 2)
	v.SetDefault("tools.http.backoff", 300*time.Millisecond)
	v.SetDefault("tools.github.endpoint", "https://api.github.com/search/repositories")
	v.SetDefault("tools.github.max_results", 3)
	v.SetDefault("tools.weather.endpoint", "https://api.openweathermap.org/data/2.5/weather")
	v.SetDefault("tools.weather.units", "metric")
	v.SetDefault("agents.max_retries", 3)
	v.SetDefault("agents.step_timeout", 30*time.Second)
	v.SetDefault("telemetry.enabled", true)

	if path == "" {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("TASKPILOT")
	replacer := strings.NewReplacer(".", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	// Secrets carry no defaults, and AutomaticEnv only surfaces keys viper
	// already knows about. Bind them explicitly so TASKPILOT_LLM_GEMINI_API_KEY
	// and TASKPILOT_TOOLS_WEATHER_API_KEY land in the unmarshalled config.
	_ = v.BindEnv("llm.gemini_api_key")
	_ = v.BindEnv("tools.weather.api_key")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && path != "" {
			panic(fmt.Errorf("fatal error config file: %w", err))
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	// Bare env names from the original deployment still work.
	if config.LLM.APIKey == "" {
		config.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if config.Tools.Weather.APIKey == "" {
		config.Tools.Weather.APIKey = os.Getenv("WEATHER_API_KEY")
	}

	if err := config.LLM.Validate(); err != nil {
		panic(err)
	}
	if err := config.Agents.Validate(); err != nil {
		panic(err)
	}
	return &config
}
