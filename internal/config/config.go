package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                  string
	Port                 string
	DatabaseURL          string
	RedisURL             string
	FrontendURLEndsWith  string
	GatewaySecretKey     string
	GatewayWebhookSecret string
	GatewayTimeout       time.Duration
	RecurringMaxFailures int
	ReportingCacheTTL    time.Duration
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	port := viper.GetString("PORT")
	if port == "" {
		port = "8080"
	}
	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	dbURL := viper.GetString("DATABASE_URL")
	if env == "test" {
		dbURL = viper.GetString("DATABASE_URL_TEST")
	}

	gatewayTimeoutMS := viper.GetInt("GATEWAY_TIMEOUT_MS")
	if gatewayTimeoutMS <= 0 {
		gatewayTimeoutMS = 10000
	}
	maxFailures := viper.GetInt("RECURRING_MAX_FAILURES")
	if maxFailures <= 0 {
		maxFailures = 3
	}
	cacheTTL := viper.GetInt("REPORTING_CACHE_TTL_SECONDS")
	if cacheTTL <= 0 {
		cacheTTL = 300
	}

	return &Config{
		Env:                  env,
		Port:                 port,
		DatabaseURL:          dbURL,
		RedisURL:             viper.GetString("REDIS_URL"),
		FrontendURLEndsWith:  viper.GetString("FRONTEND_URL_ENDS_WITH"),
		GatewaySecretKey:     viper.GetString("GATEWAY_SECRET_KEY"),
		GatewayWebhookSecret: viper.GetString("GATEWAY_WEBHOOK_SECRET"),
		GatewayTimeout:       time.Duration(gatewayTimeoutMS) * time.Millisecond,
		RecurringMaxFailures: maxFailures,
		ReportingCacheTTL:    time.Duration(cacheTTL) * time.Second,
	}, nil
}
