package main

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// PeerConfig is one remote hub to sync against, the YAML analogue of a
// single Peer passed to syncengine.NewRoundRunner.
type PeerConfig struct {
	Nickname string `yaml:"nickname"`
	Address  string `yaml:"address"`
}

// Config is the on-disk peer list --config points at. Everything else
// (data dir, listen addr, sync interval, verbosity) is a CLI flag,
// matching the teacher's flags.go/main.go split between
// "things you set once per deployment" (a config file for a peer-list
// manifest doesn't fit comfortably on a single command line) and
// "things you tune per invocation".
type Config struct {
	Peers []PeerConfig `yaml:"peers"`
}

// loadConfig reads and parses a YAML config file at path. An empty path
// returns a zero Config (no configured peers), a valid standalone mode.
func loadConfig(path string) (*Config, error) {
	if path == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config file")
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "parse config file")
	}
	return &cfg, nil
}
