package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Panel  Panel  `mapstructure:"panel"`
	Chart  Chart  `mapstructure:"chart"`
	Poller Poller `mapstructure:"poller"`
	Logger Logger `mapstructure:"logger"`
	Server Server `mapstructure:"server"`
}

// Panel holds the configuration for the control-plane API connection.
type Panel struct {
	BaseURL        string  `mapstructure:"base_url"`
	Token          string  `mapstructure:"token"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	MaxRetries     int     `mapstructure:"max_retries"`
}

// Chart holds the configuration for the chart surface.
type Chart struct {
	Symbols          []string `mapstructure:"symbols"`
	Timeframes       []string `mapstructure:"timeframes"`
	DefaultSymbol    string   `mapstructure:"default_symbol"`
	DefaultTimeframe string   `mapstructure:"default_timeframe"`
	Width            int      `mapstructure:"width"`
	Height           int      `mapstructure:"height"`
}

// Poller holds the configuration for the periodic telemetry refresh.
type Poller struct {
	IntervalSeconds int `mapstructure:"interval_seconds"`
}

// Server holds the configuration for the web server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or yaml, json

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("panel.base_url", "http://127.0.0.1:8880")
	viper.SetDefault("panel.timeout_seconds", 30)
	viper.SetDefault("panel.rate_limit", 10) // requests per second
	viper.SetDefault("panel.rate_limit_burst", 5)
	viper.SetDefault("panel.max_retries", 3)
	viper.SetDefault("chart.symbols", []string{"BTCUSDT", "ETHUSDT"})
	viper.SetDefault("chart.timeframes", []string{"5m", "15m", "1h"})
	viper.SetDefault("chart.default_symbol", "BTCUSDT")
	viper.SetDefault("chart.default_timeframe", "15m")
	viper.SetDefault("chart.width", 960)
	viper.SetDefault("chart.height", 480)
	viper.SetDefault("poller.interval_seconds", 60)
	viper.SetDefault("server.port", 8081)
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
