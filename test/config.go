package test

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// SCENARIO_TIMEOUT bounds each wait inside the scenario
	ScenarioTimeout time.Duration `envconfig:"SCENARIO_TIMEOUT" default:"5s"`
	// SCENARIO_COLOURS enables colorized step output for better log readability
	Colours bool `envconfig:"SCENARIO_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
