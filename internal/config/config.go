package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix                 = "DONOR"
	defaultHTTPAddress        = "0.0.0.0:5000"
	defaultBasePath           = "/api/user"
	defaultRateLimitPerSecond = 5.0
	defaultRateLimitBurst     = 10
	defaultDatabaseDriver     = DriverSQLite
	defaultDatabasePath       = "donors.db"
	defaultMongoDatabase      = "Intern-Dasboard"
	defaultReferralAttempts   = 10
	defaultLogLevel           = "info"
	defaultLogFormat          = "json"
	defaultServiceName        = "donor-api"
)

const (
	// DriverSQLite selects the relational store.
	DriverSQLite = "sqlite"
	// DriverMongo selects the document store.
	DriverMongo = "mongo"
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress        string
	BasePath           string
	CORSOrigins        []string
	RateLimitPerSecond float64
	RateLimitBurst     int
	DatabaseDriver     string
	DatabasePath       string
	MongoURI           string
	MongoDatabase      string
	ReferralAttempts   int
	LogLevel           string
	LogFormat          string
	OTLPEndpoint       string
	ServiceName        string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
// PORT and MONGO_URI are honored without the prefix for hosting platforms that inject them.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	_ = configViper.BindEnv("http.port", "PORT")
	_ = configViper.BindEnv("database.mongo_uri", envPrefix+"_DATABASE_MONGO_URI", "MONGO_URI")

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("http.base_path", defaultBasePath)
	configViper.SetDefault("http.cors_origins", []string{"*"})
	configViper.SetDefault("http.rate_limit_per_second", defaultRateLimitPerSecond)
	configViper.SetDefault("http.rate_limit_burst", defaultRateLimitBurst)
	configViper.SetDefault("database.driver", defaultDatabaseDriver)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("database.mongo_database", defaultMongoDatabase)
	configViper.SetDefault("referral.attempts", defaultReferralAttempts)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("log.format", defaultLogFormat)
	configViper.SetDefault("tracing.service_name", defaultServiceName)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:        resolveHTTPAddress(configViper),
		BasePath:           normalizeBasePath(configViper.GetString("http.base_path")),
		CORSOrigins:        splitList(configViper.GetStringSlice("http.cors_origins")),
		RateLimitPerSecond: configViper.GetFloat64("http.rate_limit_per_second"),
		RateLimitBurst:     configViper.GetInt("http.rate_limit_burst"),
		DatabaseDriver:     strings.ToLower(strings.TrimSpace(configViper.GetString("database.driver"))),
		DatabasePath:       configViper.GetString("database.path"),
		MongoURI:           configViper.GetString("database.mongo_uri"),
		MongoDatabase:      configViper.GetString("database.mongo_database"),
		ReferralAttempts:   configViper.GetInt("referral.attempts"),
		LogLevel:           configViper.GetString("log.level"),
		LogFormat:          configViper.GetString("log.format"),
		OTLPEndpoint:       configViper.GetString("tracing.otlp_endpoint"),
		ServiceName:        configViper.GetString("tracing.service_name"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.HTTPAddress) == "" {
		return fmt.Errorf("http.address is required")
	}
	if c.RateLimitPerSecond < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("http rate limit values must not be negative")
	}
	if c.ReferralAttempts <= 0 {
		return fmt.Errorf("referral.attempts must be positive")
	}
	switch c.DatabaseDriver {
	case DriverSQLite:
		if strings.TrimSpace(c.DatabasePath) == "" {
			return fmt.Errorf("database.path is required")
		}
	case DriverMongo:
		if strings.TrimSpace(c.MongoURI) == "" {
			return fmt.Errorf("database.mongo_uri is required")
		}
		if strings.TrimSpace(c.MongoDatabase) == "" {
			return fmt.Errorf("database.mongo_database is required")
		}
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverSQLite, DriverMongo, c.DatabaseDriver)
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.LogFormat)
	}
	return nil
}

// resolveHTTPAddress lets a bare PORT override the port of the default http.address.
// An address set through a flag, the environment or a config file wins.
func resolveHTTPAddress(configViper *viper.Viper) string {
	address := configViper.GetString("http.address")
	port := strings.TrimSpace(configViper.GetString("http.port"))
	if port == "" || configViper.IsSet("http.address") {
		return address
	}
	host := address
	if index := strings.LastIndex(address, ":"); index >= 0 {
		host = address[:index]
	}
	return host + ":" + port
}

func normalizeBasePath(raw string) string {
	trimmed := strings.Trim(strings.TrimSpace(raw), "/")
	if trimmed == "" {
		return ""
	}
	return "/" + trimmed
}

// splitList accepts both list values and a single comma separated env string.
func splitList(values []string) []string {
	var result []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
	}
	return result
}
