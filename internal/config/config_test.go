package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("TIMEZONE", "UTC")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.GRPCPort != "50051" || cfg.WebPort != "8080" {
		t.Errorf("ports: %s %s", cfg.GRPCPort, cfg.WebPort)
	}
	if cfg.StoreDriver != DriverMemory {
		t.Errorf("driver = %q", cfg.StoreDriver)
	}
	if cfg.StoreTimeout != 5*time.Second {
		t.Errorf("timeout = %v", cfg.StoreTimeout)
	}
	if cfg.BookingWindowMonths != 3 {
		t.Errorf("window = %d", cfg.BookingWindowMonths)
	}
	if cfg.AllowTerminalTransitions || cfg.RejectDoubleBooking {
		t.Error("lenient flags should default off")
	}
	if cfg.Location != time.UTC {
		t.Errorf("location = %v", cfg.Location)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Errorf("origins = %v", cfg.AllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE_DRIVER", "Redis")
	t.Setenv("ALLOW_TERMINAL_TRANSITIONS", "true")
	t.Setenv("BOOKING_WINDOW_MONTHS", "6")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test ,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StoreDriver != DriverRedis {
		t.Errorf("driver = %q", cfg.StoreDriver)
	}
	if !cfg.AllowTerminalTransitions {
		t.Error("expected terminal transitions on")
	}
	if cfg.BookingWindowMonths != 6 {
		t.Errorf("window = %d", cfg.BookingWindowMonths)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "http://b.test" {
		t.Errorf("origins = %v", cfg.AllowedOrigins)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{"JWT_SECRET": ""}},
		{"unknown driver", map[string]string{"STORE_DRIVER": "mongo"}},
		{"postgres without url", map[string]string{"STORE_DRIVER": "postgres", "DATABASE_URL": ""}},
		{"bad timeout", map[string]string{"STORE_TIMEOUT": "soon"}},
		{"zero window", map[string]string{"BOOKING_WINDOW_MONTHS": "0"}},
		{"bad bool", map[string]string{"REJECT_DOUBLE_BOOKING": "maybe"}},
		{"bad timezone", map[string]string{"TIMEZONE": "Mars/Olympus"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "s3cret")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
