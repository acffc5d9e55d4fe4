package mcpclient

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultConnectTimeout = 10 * time.Second

// LaunchConfig describes how to start the search provider process.
type LaunchConfig struct {
	Name           string            `yaml:"name"`
	Command        string            `yaml:"command"`
	Args           []string          `yaml:"args,omitempty"`
	Env            map[string]string `yaml:"env,omitempty"`
	ConnectTimeout string            `yaml:"connect_timeout"`
}

type launchFile struct {
	Provider LaunchConfig `yaml:"provider"`
}

// ConnectTimeoutDuration returns the handshake timeout as a time.Duration
func (l LaunchConfig) ConnectTimeoutDuration() time.Duration {
	if l.ConnectTimeout == "" {
		return defaultConnectTimeout
	}
	d, err := time.ParseDuration(l.ConnectTimeout)
	if err != nil || d <= 0 {
		return defaultConnectTimeout
	}
	return d
}

// Environ renders Env as sorted KEY=VALUE pairs.
func (l LaunchConfig) Environ() []string {
	out := make([]string, 0, len(l.Env))
	for k, v := range l.Env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

// LoadLaunchConfig reads the provider launch description from a YAML file,
// expanding environment variables in the path and the content. A missing file
// yields fallback unchanged.
func LoadLaunchConfig(path string, fallback LaunchConfig) (LaunchConfig, error) {
	path = os.ExpandEnv(path)
	if path == "" {
		return fallback, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fallback, nil
	}
	if err != nil {
		return LaunchConfig{}, err
	}

	var file launchFile
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &file); err != nil {
		return LaunchConfig{}, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg := file.Provider
	if cfg.Command == "" {
		cfg.Command = fallback.Command
		if len(cfg.Args) == 0 {
			cfg.Args = fallback.Args
		}
	}
	if cfg.Name == "" {
		cfg.Name = fallback.Name
	}
	if cfg.Command == "" {
		return LaunchConfig{}, fmt.Errorf("%s: provider command is required", path)
	}
	return cfg, nil
}
