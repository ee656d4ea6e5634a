package session

import "time"

// DefaultAddressSuffix is the canonical-destination suffix for personal
// WhatsApp endpoints.
const DefaultAddressSuffix = "@s.whatsapp.net"

// Config defines delivery and retry-queue behavior.
type Config struct {
	AddressSuffix string
	MaxRetries    int
	QueueCap      int
	SendTimeout   time.Duration
	DrainDelay    time.Duration
	BulkDelay     time.Duration
}

// DefaultConfig returns production delivery defaults.
func DefaultConfig() Config {
	return Config{
		AddressSuffix: DefaultAddressSuffix,
		MaxRetries:    3,
		QueueCap:      256,
		SendTimeout:   30 * time.Second,
		DrainDelay:    500 * time.Millisecond,
		BulkDelay:     time.Second,
	}
}

// WithDefaults fills zero-valued fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.AddressSuffix == "" {
		c.AddressSuffix = def.AddressSuffix
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = def.MaxRetries
	}
	if c.QueueCap <= 0 {
		c.QueueCap = def.QueueCap
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = def.SendTimeout
	}
	if c.DrainDelay <= 0 {
		c.DrainDelay = def.DrainDelay
	}
	if c.BulkDelay <= 0 {
		c.BulkDelay = def.BulkDelay
	}
	return c
}
