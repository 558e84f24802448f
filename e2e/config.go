package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_CALLERS controls how many concurrent chargers hit one account.
	Callers int `envconfig:"E2E_CALLERS" default:"40"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
