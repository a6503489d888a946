package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.JWTIssuer != "equiplink-auth" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "equiplink-auth")
	}
	if cfg.JWTAudience != "equiplink-api" {
		t.Errorf("JWTAudience = %q, want %q", cfg.JWTAudience, "equiplink-api")
	}
	if cfg.JWTAccessTTL != "15m" {
		t.Errorf("JWTAccessTTL = %q, want %q", cfg.JWTAccessTTL, "15m")
	}
	if cfg.JWTRefreshTTL != "168h" {
		t.Errorf("JWTRefreshTTL = %q, want %q", cfg.JWTRefreshTTL, "168h")
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if cfg.EventsKafkaTopic != "equiplink-events" {
		t.Errorf("EventsKafkaTopic = %q, want %q", cfg.EventsKafkaTopic, "equiplink-events")
	}
	if cfg.RedisAddr != "" {
		t.Errorf("RedisAddr = %q, want empty", cfg.RedisAddr)
	}
	if cfg.OTLPInsecure {
		t.Error("OTLPInsecure should default to false")
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("JWT_ISSUER", "custom-issuer")
	os.Setenv("BCRYPT_COST", "14")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9090")
	}
	if cfg.JWTIssuer != "custom-issuer" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "custom-issuer")
	}
	if cfg.BcryptCost != 14 {
		t.Errorf("BcryptCost = %d, want 14", cfg.BcryptCost)
	}
}

func TestLoad_BCRYPT_COSTRange(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		want  int
		err   bool
	}{
		{"valid min", "4", 4, false},
		{"valid max", "31", 31, false},
		{"valid middle", "12", 12, false},
		{"too low", "3", 0, true},
		{"too high", "32", 0, true},
		{"zero", "0", 12, false}, // falls back to the default
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			os.Setenv("HTTP_ADDR", ":8080")
			os.Setenv("BCRYPT_COST", tc.value)

			cfg, err := Load()
			if tc.err {
				if err == nil {
					t.Fatal("Load should return error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.BcryptCost != tc.want {
				t.Errorf("BcryptCost = %d, want %d", cfg.BcryptCost, tc.want)
			}
		})
	}
}

func TestAccessTTL(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")
	os.Setenv("JWT_ACCESS_TTL", "30m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ttl := cfg.AccessTTL(); ttl != 30*time.Minute {
		t.Errorf("AccessTTL = %v, want %v", ttl, 30*time.Minute)
	}

	cfg.JWTAccessTTL = "invalid"
	if ttl := cfg.AccessTTL(); ttl != 15*time.Minute {
		t.Errorf("AccessTTL with invalid value = %v, want %v", ttl, 15*time.Minute)
	}
}

func TestDurationFallbacks(t *testing.T) {
	cfg := &Config{}
	if d := cfg.RefreshTTL(); d != 168*time.Hour {
		t.Errorf("RefreshTTL = %v, want %v", d, 168*time.Hour)
	}
	if d := cfg.KindCacheTTL(); d != 5*time.Minute {
		t.Errorf("KindCacheTTL = %v, want %v", d, 5*time.Minute)
	}
	if d := cfg.RequestLookupTimeout(); d != 3*time.Second {
		t.Errorf("RequestLookupTimeout = %v, want %v", d, 3*time.Second)
	}
	if d := cfg.Staleness(); d != 168*time.Hour {
		t.Errorf("Staleness = %v, want %v", d, 168*time.Hour)
	}

	cfg.BottleneckStaleness = "72h"
	if d := cfg.Staleness(); d != 72*time.Hour {
		t.Errorf("Staleness = %v, want %v", d, 72*time.Hour)
	}
}

func TestKafkaBrokersList(t *testing.T) {
	cfg := &Config{}
	if got := cfg.KafkaBrokersList(); got != nil {
		t.Errorf("KafkaBrokersList on empty config = %v, want nil", got)
	}

	cfg.KafkaBrokers = "broker1:9092, broker2:9092 ,,broker3:9092"
	got := cfg.KafkaBrokersList()
	want := []string{"broker1:9092", "broker2:9092", "broker3:9092"}
	if len(got) != len(want) {
		t.Fatalf("KafkaBrokersList = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("brokers[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
