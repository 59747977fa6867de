package config

import (
	"os"
	"runtime"
	"time"

	"github.com/kbukum/osal/logger"
	"github.com/kbukum/osal/validation"
)

// Config is the full osal configuration.
type Config struct {
	Name          string              `yaml:"name" mapstructure:"name"`
	Environment   string              `yaml:"environment" mapstructure:"environment" validate:"oneof=development staging production"`
	Version       string              `yaml:"version" mapstructure:"version"`
	Shell         ShellConfig         `yaml:"shell" mapstructure:"shell"`
	Locks         LocksConfig         `yaml:"locks" mapstructure:"locks"`
	Logging       logger.Config       `yaml:"logging" mapstructure:"logging"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
}

// ShellConfig names the command interpreter used for shell-mode launches.
type ShellConfig struct {
	Path string `yaml:"path" mapstructure:"path" validate:"required"`
	Flag string `yaml:"flag" mapstructure:"flag" validate:"required"`
}

// LocksConfig places cross-process lock files.
type LocksConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir" validate:"required"`
}

// ObservabilityConfig enables OpenTelemetry export. Both signals are off
// by default and the global no-op providers stay in place.
type ObservabilityConfig struct {
	Tracing    bool          `yaml:"tracing" mapstructure:"tracing"`
	Metrics    bool          `yaml:"metrics" mapstructure:"metrics"`
	Endpoint   string        `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure   bool          `yaml:"insecure" mapstructure:"insecure"`
	SampleRate float64       `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0,lte=1"`
	Interval   time.Duration `yaml:"interval" mapstructure:"interval"`
}

// Enabled reports whether any signal is exported.
func (c *ObservabilityConfig) Enabled() bool {
	return c.Tracing || c.Metrics
}

// DefaultShell returns the platform command interpreter and its
// run-a-command flag.
func DefaultShell() ShellConfig {
	if runtime.GOOS == "windows" {
		path := os.Getenv("COMSPEC")
		if path == "" {
			path = "cmd.exe"
		}
		return ShellConfig{Path: path, Flag: "/c"}
	}
	return ShellConfig{Path: "/bin/sh", Flag: "-c"}
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "osal"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	def := DefaultShell()
	if c.Shell.Path == "" {
		c.Shell.Path = def.Path
	}
	if c.Shell.Flag == "" {
		c.Shell.Flag = def.Flag
	}
	if c.Locks.Dir == "" {
		c.Locks.Dir = os.TempDir()
	}
	c.Logging.ApplyDefaults()
	if c.Observability.Endpoint == "" {
		c.Observability.Endpoint = "localhost:4318"
	}
	if c.Observability.SampleRate == 0 {
		c.Observability.SampleRate = 1.0
	}
	if c.Observability.Interval == 0 {
		c.Observability.Interval = 15 * time.Second
	}
}

// Validate checks struct tags first, then the path fields the OS must
// accept and the logging section.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	v := validation.New().
		NoNUL("shell.path", c.Shell.Path).
		NoNUL("locks.dir", c.Locks.Dir).
		Absolute("locks.dir", c.Locks.Dir)
	if err := c.Logging.Validate(); err != nil {
		v.AddError("logging", err.Error())
	}
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}
