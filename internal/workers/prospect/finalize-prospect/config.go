// internal/workers/prospect/finalize-prospect/config.go
package finalizeprospect

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
