package config

import (
	"testing"
)

func TestLoadAppliesDefaults(testContext *testing.T) {
	cfg, err := Load(NewViper())
	if err != nil {
		testContext.Fatalf("load failed: %v", err)
	}
	if cfg.HTTPAddress != defaultHTTPAddress {
		testContext.Fatalf("unexpected address %q", cfg.HTTPAddress)
	}
	if cfg.BasePath != "/api/user" {
		testContext.Fatalf("unexpected base path %q", cfg.BasePath)
	}
	if cfg.DatabaseDriver != DriverSQLite || cfg.DatabasePath != defaultDatabasePath {
		testContext.Fatalf("unexpected database config %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		testContext.Fatalf("unexpected cors origins %v", cfg.CORSOrigins)
	}
	if cfg.MongoDatabase != defaultMongoDatabase || cfg.ReferralAttempts != defaultReferralAttempts {
		testContext.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadHonorsPlatformEnv(testContext *testing.T) {
	testContext.Setenv("PORT", "7000")
	testContext.Setenv("MONGO_URI", "mongodb://localhost:27017")
	testContext.Setenv("DONOR_DATABASE_DRIVER", "mongo")

	cfg, err := Load(NewViper())
	if err != nil {
		testContext.Fatalf("load failed: %v", err)
	}
	if cfg.HTTPAddress != "0.0.0.0:7000" {
		testContext.Fatalf("expected PORT to override address, got %q", cfg.HTTPAddress)
	}
	if cfg.MongoURI != "mongodb://localhost:27017" {
		testContext.Fatalf("expected MONGO_URI to be honored, got %q", cfg.MongoURI)
	}
}

func TestLoadExplicitAddressWinsOverPort(testContext *testing.T) {
	testContext.Setenv("PORT", "7000")
	configViper := NewViper()
	configViper.Set("http.address", "127.0.0.1:9000")

	cfg, err := Load(configViper)
	if err != nil {
		testContext.Fatalf("load failed: %v", err)
	}
	if cfg.HTTPAddress != "127.0.0.1:9000" {
		testContext.Fatalf("expected explicit address to win, got %q", cfg.HTTPAddress)
	}
}

func TestLoadEnvAddressWinsOverPort(testContext *testing.T) {
	testContext.Setenv("PORT", "7000")
	testContext.Setenv("DONOR_HTTP_ADDRESS", "127.0.0.1:9100")

	cfg, err := Load(NewViper())
	if err != nil {
		testContext.Fatalf("load failed: %v", err)
	}
	if cfg.HTTPAddress != "127.0.0.1:9100" {
		testContext.Fatalf("expected env address to win, got %q", cfg.HTTPAddress)
	}
}

func TestLoadSplitsCommaSeparatedOrigins(testContext *testing.T) {
	configViper := NewViper()
	configViper.Set("http.cors_origins", "https://a.example, https://b.example")

	cfg, err := Load(configViper)
	if err != nil {
		testContext.Fatalf("load failed: %v", err)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		testContext.Fatalf("unexpected origins %v", cfg.CORSOrigins)
	}
}

func TestLoadRejectsInvalidConfig(testContext *testing.T) {
	testCases := []struct {
		name string
		key  string
		val  interface{}
	}{
		{name: "unknown driver", key: "database.driver", val: "postgres"},
		{name: "mongo without uri", key: "database.driver", val: "mongo"},
		{name: "empty sqlite path", key: "database.path", val: " "},
		{name: "zero referral attempts", key: "referral.attempts", val: 0},
		{name: "unknown log format", key: "log.format", val: "xml"},
		{name: "negative rate", key: "http.rate_limit_per_second", val: -1},
	}
	for _, testCase := range testCases {
		testContext.Run(testCase.name, func(t *testing.T) {
			t.Setenv("MONGO_URI", "")
			configViper := NewViper()
			configViper.Set(testCase.key, testCase.val)
			if _, err := Load(configViper); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
