/**
 * @description
 * This file handles configuration management for the backend. It uses
 * the 'viper' library to load configuration from environment variables,
 * providing a centralized and consistent way to manage application settings.
 */
package config

import (
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	ServerPort          string `mapstructure:"SERVER_PORT"`
	DatabaseURL         string `mapstructure:"DATABASE_URL"`
	AppBaseURL          string `mapstructure:"APP_BASE_URL"`
	AuthJWKSURL         string `mapstructure:"AUTH_JWKS_URL"`
	AuthIssuer          string `mapstructure:"AUTH_ISSUER"`
	AuthAudience        string `mapstructure:"AUTH_AUDIENCE"`
	StripeSecretKey     string `mapstructure:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `mapstructure:"STRIPE_WEBHOOK_SECRET"`
	RabbitMQURL         string `mapstructure:"RABBITMQ_URL"`
	RedisURL            string `mapstructure:"REDIS_URL"`

	// Scheduler job schedules (cron expressions).
	MessageDispatchSchedule   string `mapstructure:"MESSAGE_DISPATCH_SCHEDULE"`
	SubscriptionLapseSchedule string `mapstructure:"SUBSCRIPTION_LAPSE_SCHEDULE"`

	// Like toggle rate limit per user per minute. Zero disables limiting.
	LikeToggleLimitPerMinute int `mapstructure:"LIKE_TOGGLE_LIMIT_PER_MINUTE"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (Config, error) {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("AUTH_AUDIENCE", "authenticated")
	// Dispatch every minute, lapse hourly.
	viper.SetDefault("MESSAGE_DISPATCH_SCHEDULE", "* * * * *")
	viper.SetDefault("SUBSCRIPTION_LAPSE_SCHEDULE", "0 * * * *")
	viper.SetDefault("LIKE_TOGGLE_LIMIT_PER_MINUTE", 30)
	viper.AutomaticEnv()

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("APP_BASE_URL")
	_ = viper.BindEnv("AUTH_JWKS_URL")
	_ = viper.BindEnv("AUTH_ISSUER")
	_ = viper.BindEnv("AUTH_AUDIENCE")
	_ = viper.BindEnv("STRIPE_SECRET_KEY")
	_ = viper.BindEnv("STRIPE_WEBHOOK_SECRET")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("MESSAGE_DISPATCH_SCHEDULE")
	_ = viper.BindEnv("SUBSCRIPTION_LAPSE_SCHEDULE")
	_ = viper.BindEnv("LIKE_TOGGLE_LIMIT_PER_MINUTE")

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return Config{}, err
	}

	return config, nil
}
