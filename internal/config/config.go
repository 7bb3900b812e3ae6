package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Profile is a named backend target. Zero fields keep the env value.
type Profile struct {
	Name    string `yaml:"name"`
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
	Retry   struct {
		Attempts int    `yaml:"attempts"`
		Delay    string `yaml:"delay"`
	} `yaml:"retry"`
}

// Profiles indexes profiles by name.
type Profiles map[string]Profile

// LoadProfiles parses a profiles file:
//
//	profiles:
//	  - name: staging
//	    base_url: https://staging.example.com
//	    retry: {attempts: 5, delay: 2s}
//
// A missing file yields an empty set.
func LoadProfiles(path string) (Profiles, error) {
	out := make(Profiles)
	if path == "" {
		return out, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return out, nil
		}
		return nil, fmt.Errorf("reading profiles file: %w", err)
	}

	var raw struct {
		Profiles []Profile `yaml:"profiles"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	for _, p := range raw.Profiles {
		if p.Name == "" {
			return nil, fmt.Errorf("parsing %s: profile without name", path)
		}
		if err := p.validate(); err != nil {
			return nil, fmt.Errorf("profile %s: %w", p.Name, err)
		}
		out[p.Name] = p
	}
	return out, nil
}

func (p Profile) validate() error {
	if p.Timeout != "" {
		if _, err := time.ParseDuration(p.Timeout); err != nil {
			return fmt.Errorf("invalid timeout %q: %w", p.Timeout, err)
		}
	}
	if p.Retry.Delay != "" {
		if _, err := time.ParseDuration(p.Retry.Delay); err != nil {
			return fmt.Errorf("invalid retry delay %q: %w", p.Retry.Delay, err)
		}
	}
	if p.Retry.Attempts < 0 {
		return fmt.Errorf("retry attempts must not be negative")
	}
	return nil
}

// Apply returns a copy of env with the profile's non-zero fields on top.
func (p Profile) Apply(env EnvVars) EnvVars {
	if p.BaseURL != "" {
		env.APIBaseURL = p.BaseURL
	}
	if d, err := time.ParseDuration(p.Timeout); err == nil && p.Timeout != "" {
		env.HTTPTimeout = d
	}
	if p.Retry.Attempts > 0 {
		env.RetryAttempts = p.Retry.Attempts
	}
	if d, err := time.ParseDuration(p.Retry.Delay); err == nil && p.Retry.Delay != "" {
		env.RetryDelay = d
	}
	return env
}

// Resolve picks the named profile and applies it. An empty name returns env as is.
func Resolve(env EnvVars, profiles Profiles, name string) (EnvVars, error) {
	if name == "" {
		return env, nil
	}
	p, ok := profiles[name]
	if !ok {
		return env, fmt.Errorf("unknown profile %q", name)
	}
	return p.Apply(env), nil
}
