package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := FromEnv("test")
	cfg.AppEnv = "test"
	cfg.MongoURI = "mongodb://localhost:27017"
	cfg.SessionJWTSecret = "secret"
	cfg.TwoFactorKey = ""
	cfg.RedisURL = ""
	cfg.CloudinaryURL = ""
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing session secret", func(c *Config) { c.SessionJWTSecret = "" }, "SessionJWTSecret"},
		{"bad mongo uri", func(c *Config) { c.MongoURI = "postgres://x" }, "MongoURI"},
		{"bad schedule", func(c *Config) { c.ReconcileSchedule = "sometimes" }, "ReconcileSchedule"},
		{"trusted proxies", func(c *Config) { c.TrustedProxies = []string{"10.0.0.0/8", "192.0.2.7", "::1"} }, ""},
		{"bad trusted proxy", func(c *Config) { c.TrustedProxies = []string{"10.0.0.0/8", "loadbalancer"} }, "TrustedProxies"},
		{"short two-factor key", func(c *Config) { c.TwoFactorKey = "c2hvcnQ=" }, "TwoFactorKey"},
		{"production needs gateway", func(c *Config) {
			c.AppEnv = EnvProduction
			c.SessionJWTSecret = strings.Repeat("s", 32)
		}, "PaymentGatewayURL"},
		{"production needs webhook secret", func(c *Config) {
			c.AppEnv = EnvProduction
			c.SessionJWTSecret = strings.Repeat("s", 32)
			c.PaymentKeyID = "key"
			c.PaymentKeySecret = "secret"
			c.PaymentGatewayURL = "https://gateway.example.com"
			c.TwoFactorKey = "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY="
			c.PaymentWebhookSecret = ""
		}, "PaymentWebhookSecret"},
		{"production complete", func(c *Config) {
			c.AppEnv = EnvProduction
			c.SessionJWTSecret = strings.Repeat("s", 32)
			c.PaymentKeyID = "key"
			c.PaymentKeySecret = "secret"
			c.PaymentGatewayURL = "https://gateway.example.com"
			c.TwoFactorKey = "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY="
			c.PaymentWebhookSecret = "whsec"
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestValidateStore_IgnoresAPISettings(t *testing.T) {
	cfg := validConfig()
	cfg.SessionJWTSecret = ""
	cfg.ReconcileSchedule = "sometimes"

	if err := cfg.ValidateStore(); err != nil {
		t.Errorf("ValidateStore() = %v", err)
	}

	cfg.MongoDatabaseName = ""
	if err := cfg.ValidateStore(); err == nil {
		t.Error("expected missing database name to fail")
	}
}

func TestFromEnv_TrustedProxies(t *testing.T) {
	t.Setenv(EnvTrustedProxies, " 10.0.0.0/8, ,192.0.2.7 ")
	cfg := FromEnv("test")

	want := []string{"10.0.0.0/8", "192.0.2.7"}
	if len(cfg.TrustedProxies) != len(want) {
		t.Fatalf("TrustedProxies = %v, want %v", cfg.TrustedProxies, want)
	}
	for i := range want {
		if cfg.TrustedProxies[i] != want[i] {
			t.Errorf("TrustedProxies[%d] = %q, want %q", i, cfg.TrustedProxies[i], want[i])
		}
	}

	t.Setenv(EnvTrustedProxies, "")
	if got := FromEnv("test").TrustedProxies; len(got) != 0 {
		t.Errorf("unset TrustedProxies = %v, want none", got)
	}
}
