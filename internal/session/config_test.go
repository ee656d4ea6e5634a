package session

import (
	"testing"
	"time"
)

func TestWithDefaultsFillsZeroValues(t *testing.T) {
	got := Config{}.WithDefaults()
	want := DefaultConfig()
	if got != want {
		t.Fatalf("zero config should default fully: got %+v want %+v", got, want)
	}
}

func TestWithDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := Config{
		AddressSuffix: "@example.test",
		MaxRetries:    5,
		QueueCap:      8,
		SendTimeout:   time.Second,
		DrainDelay:    10 * time.Millisecond,
		BulkDelay:     20 * time.Millisecond,
	}
	if got := cfg.WithDefaults(); got != cfg {
		t.Fatalf("explicit values must survive: got %+v want %+v", got, cfg)
	}
}
