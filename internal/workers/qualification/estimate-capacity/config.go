// internal/workers/qualification/estimate-capacity/config.go
package estimatecapacity

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 5 * time.Second,
	}
}
