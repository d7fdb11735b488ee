package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Validated ranges. Values outside these are never stored.
const (
	MinMaxAttempts     = 1
	MaxMaxAttempts     = 10
	MinLockoutDuration = 0
	MaxLockoutDuration = 3600
)

const (
	defaultSession         = "xfce"
	defaultMaxAttempts     = 3
	defaultLockoutDuration = 60
)

var ErrConfig = errors.New("config error")

// DefaultPath is where the manager looks for its configuration.
const DefaultPath = "/etc/ldmgr/config.yaml"

// Config is the run configuration, loaded once and replaced wholesale.
type Config struct {
	AutologinEnabled bool
	AutologinUser    string
	DefaultSession   string
	MaxAttempts      int
	LockoutDuration  int // seconds
	EnableLogs       bool
}

func Defaults() Config {
	return Config{
		AutologinEnabled: false,
		AutologinUser:    "",
		DefaultSession:   defaultSession,
		MaxAttempts:      defaultMaxAttempts,
		LockoutDuration:  defaultLockoutDuration,
		EnableLogs:       true,
	}
}

// fileConfig mirrors the on-disk YAML. Pointer fields distinguish "absent"
// from zero so each key can fall back to its own default independently.
type fileConfig struct {
	AutologinEnabled *bool   `yaml:"autologin_enabled"`
	AutologinUser    *string `yaml:"autologin_user"`
	DefaultSession   *string `yaml:"default_session"`
	MaxAttempts      *int    `yaml:"max_attempts"`
	LockoutDuration  *int    `yaml:"lockout_duration"`
	EnableLogs       *bool   `yaml:"enable_logs"`
}

// Load reads the configuration at path. Every failure mode is recoverable:
// a missing file yields the defaults silently, a parse error or an
// out-of-range value yields defaults for the affected keys plus a non-nil
// error the caller may log. The returned Config is always valid.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, fmt.Errorf("%w: empty path", ErrConfig)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("%w: read %s: %v", ErrConfig, path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return cfg, fmt.Errorf("%w: parse %s: %v", ErrConfig, path, err)
	}

	var rangeErr error
	if fc.AutologinEnabled != nil {
		cfg.AutologinEnabled = *fc.AutologinEnabled
	}
	if fc.AutologinUser != nil {
		cfg.AutologinUser = *fc.AutologinUser
	}
	if fc.DefaultSession != nil && *fc.DefaultSession != "" {
		cfg.DefaultSession = *fc.DefaultSession
	}
	if fc.MaxAttempts != nil {
		if *fc.MaxAttempts < MinMaxAttempts || *fc.MaxAttempts > MaxMaxAttempts {
			rangeErr = fmt.Errorf("%w: max_attempts %d out of range [%d,%d]",
				ErrConfig, *fc.MaxAttempts, MinMaxAttempts, MaxMaxAttempts)
		} else {
			cfg.MaxAttempts = *fc.MaxAttempts
		}
	}
	if fc.LockoutDuration != nil {
		if *fc.LockoutDuration < MinLockoutDuration || *fc.LockoutDuration > MaxLockoutDuration {
			rangeErr = fmt.Errorf("%w: lockout_duration %d out of range [%d,%d]",
				ErrConfig, *fc.LockoutDuration, MinLockoutDuration, MaxLockoutDuration)
		} else {
			cfg.LockoutDuration = *fc.LockoutDuration
		}
	}
	if fc.EnableLogs != nil {
		cfg.EnableLogs = *fc.EnableLogs
	}

	// A config that still fails validation reverts wholesale, never
	// partially.
	if err := cfg.Validate(); err != nil {
		return Defaults(), err
	}
	return cfg, rangeErr
}

func (c Config) Validate() error {
	if c.MaxAttempts < MinMaxAttempts || c.MaxAttempts > MaxMaxAttempts {
		return fmt.Errorf("%w: max_attempts %d out of range", ErrConfig, c.MaxAttempts)
	}
	if c.LockoutDuration < MinLockoutDuration || c.LockoutDuration > MaxLockoutDuration {
		return fmt.Errorf("%w: lockout_duration %d out of range", ErrConfig, c.LockoutDuration)
	}
	return nil
}
