package config

import (
	"os"
	"testing"
	"time"

	"github.com/bcforms/formgate/pkg/observability"
	"github.com/bcforms/formgate/pkg/sso"
)

// TestGetEnv tests the getEnv helper function
func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{
			name:         "returns env value when set",
			key:          "TEST_VAR",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
		},
		{
			name:         "returns default when env not set",
			key:          "TEST_VAR_NOT_SET",
			defaultValue: "default",
			envValue:     "",
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			}

			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestGetEnvBool tests the getEnvBool helper function
func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name         string
		defaultValue bool
		envValue     string
		want         bool
	}{
		{name: "returns true for 'true'", envValue: "true", want: true},
		{name: "returns true for '1'", envValue: "1", want: true},
		{name: "returns false for 'false'", defaultValue: true, envValue: "false", want: false},
		{name: "returns default when unset", defaultValue: true, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv("TEST_BOOL", tt.envValue)
				defer os.Unsetenv("TEST_BOOL")
			}

			got := getEnvBool("TEST_BOOL", tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnvBool() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestGetEnvDuration tests the getEnvDuration helper function
func TestGetEnvDuration(t *testing.T) {
	os.Setenv("TEST_DURATION", "45s")
	defer os.Unsetenv("TEST_DURATION")

	if got := getEnvDuration("TEST_DURATION", time.Minute); got != 45*time.Second {
		t.Errorf("getEnvDuration() = %v, want 45s", got)
	}
	if got := getEnvDuration("TEST_DURATION_NOT_SET", time.Minute); got != time.Minute {
		t.Errorf("getEnvDuration() default = %v, want 1m", got)
	}

	os.Setenv("TEST_DURATION_BAD", "not-a-duration")
	defer os.Unsetenv("TEST_DURATION_BAD")
	if got := getEnvDuration("TEST_DURATION_BAD", time.Minute); got != time.Minute {
		t.Errorf("getEnvDuration() with bad value = %v, want 1m", got)
	}
}

// TestGetEnvList tests the getEnvList helper function
func TestGetEnvList(t *testing.T) {
	os.Setenv("TEST_LIST", "openid, email ,profile")
	defer os.Unsetenv("TEST_LIST")

	got := getEnvList("TEST_LIST", nil)
	want := []string{"openid", "email", "profile"}
	if len(got) != len(want) {
		t.Fatalf("getEnvList() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("getEnvList()[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	def := []string{"openid"}
	if got := getEnvList("TEST_LIST_NOT_SET", def); len(got) != 1 || got[0] != "openid" {
		t.Errorf("getEnvList() default = %v, want %v", got, def)
	}
}

func setRequiredEnv(t *testing.T) {
	t.Helper()
	required := map[string]string{
		"FORMGATE_DATABASE_URL":       "postgres://localhost:5432/forms",
		"FORMGATE_OIDC_ISSUER_URL":    "https://keycloak.example.com/auth/realms/forms",
		"FORMGATE_OIDC_CLIENT_ID":     "forms-web",
		"FORMGATE_OIDC_CLIENT_SECRET": "secret",
		"FORMGATE_OIDC_REDIRECT_URL":  "https://forms.example.com/api/auth/callback",
	}
	for k, v := range required {
		os.Setenv(k, v)
	}
	t.Cleanup(func() {
		for k := range required {
			os.Unsetenv(k)
		}
	})
}

// TestLoadConfig tests configuration loading with defaults
func TestLoadConfig(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port = %v, want 8080", cfg.Server.Port)
	}
	if cfg.Server.HealthPort != "9090" {
		t.Errorf("Server.HealthPort = %v, want 9090", cfg.Server.HealthPort)
	}
	if cfg.Tokens.AccessTTL != 30*time.Minute {
		t.Errorf("Tokens.AccessTTL = %v, want 30m", cfg.Tokens.AccessTTL)
	}
	if cfg.Tokens.RefreshTTL != 7*24*time.Hour {
		t.Errorf("Tokens.RefreshTTL = %v, want 168h", cfg.Tokens.RefreshTTL)
	}
	if cfg.Redis.StateTTL != sso.DefaultStateTTL {
		t.Errorf("Redis.StateTTL = %v, want %v", cfg.Redis.StateTTL, sso.DefaultStateTTL)
	}
	if cfg.Observability.LogLevel != observability.InfoLevel {
		t.Errorf("Observability.LogLevel = %v, want info", cfg.Observability.LogLevel)
	}
	if len(cfg.OIDC.Scopes) != 3 || cfg.OIDC.Scopes[0] != "openid" {
		t.Errorf("OIDC.Scopes = %v, want [openid email profile]", cfg.OIDC.Scopes)
	}
}

// TestLoadConfig_MissingDatabase tests that a missing database URL fails validation
func TestLoadConfig_MissingDatabase(t *testing.T) {
	setRequiredEnv(t)
	os.Unsetenv("FORMGATE_DATABASE_URL")

	if _, err := LoadConfig(); err == nil {
		t.Error("LoadConfig() expected error for missing database URL")
	}
}

// TestValidate tests configuration validation rules
func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server: ServerConfig{Port: "8080", HealthPort: "9090"},
			Database: DatabaseConfig{
				URL: "postgres://localhost:5432/forms",
			},
			Redis: RedisConfig{URL: "redis://localhost:6379/0"},
			Tokens: TokenConfig{
				KeyDir:     "keys",
				AccessTTL:  30 * time.Minute,
				RefreshTTL: 7 * 24 * time.Hour,
			},
			OIDC: sso.Config{
				IssuerURL:    "https://keycloak.example.com/auth/realms/forms",
				ClientID:     "forms-web",
				ClientSecret: "secret",
				RedirectURL:  "https://forms.example.com/api/auth/callback",
				Scopes:       []string{"openid"},
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing port", mutate: func(c *Config) { c.Server.Port = "" }, wantErr: true},
		{name: "port collision", mutate: func(c *Config) { c.Server.HealthPort = "8080" }, wantErr: true},
		{name: "missing redis", mutate: func(c *Config) { c.Redis.URL = "" }, wantErr: true},
		{name: "missing key dir", mutate: func(c *Config) { c.Tokens.KeyDir = "" }, wantErr: true},
		{name: "zero access TTL", mutate: func(c *Config) { c.Tokens.AccessTTL = 0 }, wantErr: true},
		{name: "bad OIDC", mutate: func(c *Config) { c.OIDC.ClientID = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
