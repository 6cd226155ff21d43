package ratelimit

import (
	"testing"
	"time"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "default", config: DefaultConfig()},
		{name: "zero requests", config: Config{Requests: 0, Window: time.Minute}, wantErr: true},
		{name: "negative window", config: Config{Requests: 5, Window: -time.Second}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Requests != 20 {
		t.Errorf("Requests = %d, want 20", cfg.Requests)
	}
	if cfg.Window != time.Minute {
		t.Errorf("Window = %s, want 1m", cfg.Window)
	}
	if cfg.String() != "20 per 1m0s" {
		t.Errorf("String() = %q", cfg.String())
	}
}

func TestDecision_RetryAfter(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		resetAt time.Time
		want    time.Duration
	}{
		{name: "past", resetAt: now.Add(-time.Second), want: 0},
		{name: "now", resetAt: now, want: 0},
		{name: "sub-second rounds up", resetAt: now.Add(200 * time.Millisecond), want: time.Second},
		{name: "whole seconds", resetAt: now.Add(30 * time.Second), want: 30 * time.Second},
		{name: "fractional", resetAt: now.Add(2500 * time.Millisecond), want: 3 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decision{ResetAt: tt.resetAt}
			if got := d.RetryAfter(now); got != tt.want {
				t.Errorf("RetryAfter() = %s, want %s", got, tt.want)
			}
		})
	}
}
