// internal/workers/qualification/resolve-document-requirements/config.go
package resolvedocumentrequirements

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}
