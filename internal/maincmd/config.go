package maincmd

import (
	"os"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v3"
)

// Config holds VM tunables that the run/repl commands read before
// executing a program. A kelp.yaml in the working directory supplies
// defaults; environment variables (KELP_*) always win, matching the
// override order caarlos0/env is built for.
type Config struct {
	MaxSteps int    `yaml:"max_steps" env:"KELP_MAX_STEPS"`
	IOMode   string `yaml:"io_mode" env:"KELP_IO_MODE"` // loaded but not read: run and repl always use StdIo
}

const defaultConfigPath = "kelp.yaml"

func defaultConfig() Config {
	return Config{MaxSteps: 10_000_000, IOMode: "std"}
}

// LoadConfig reads defaultConfig, overlays kelp.yaml if present, then
// overlays KELP_* environment variables.
func LoadConfig() (*Config, error) {
	cfg := defaultConfig()

	if b, err := os.ReadFile(defaultConfigPath); err == nil {
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
