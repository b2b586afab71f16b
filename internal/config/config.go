// Package config holds the settings of the worksteal command line tool.
//
// Values are resolved in the usual viper order: flags, then WORKSTEAL_*
// environment variables, then the optional config file, then the defaults
// declared in the struct tags below.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aminehadbi/worksteal/core"
)

const envPrefix = "WORKSTEAL"

// Configuration is the settings of a `worksteal run` invocation.
type Configuration struct {
	Name            string        `mapstructure:"name" default:"worksteal"`
	Tasks           int           `mapstructure:"tasks" default:"100000"`
	Workers         int           `mapstructure:"workers" default:"0"`
	Producers       int           `mapstructure:"producers" default:"1"`
	Spin            int           `mapstructure:"spin" default:"32"`
	FailEvery       int           `mapstructure:"fail-every" default:"0"`
	NoPin           bool          `mapstructure:"no-pin" default:"false"`
	Drain           bool          `mapstructure:"drain" default:"false"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout" default:"30s"`
	MetricsAddr     string        `mapstructure:"metrics-addr" default:""`
	LogLevel        string        `mapstructure:"log-level" default:"info"`
	LogFormat       string        `mapstructure:"log-format" default:"console"`
}

// New returns a Configuration with every default applied.
func New() *Configuration {
	c := &Configuration{}
	if err := defaults.Set(c); err != nil {
		panic(fmt.Sprintf("config: invalid default tags: %v", err))
	}
	return c
}

// BindFlags registers one flag per field on fs, using the struct defaults,
// and binds them to v.
func BindFlags(fs *pflag.FlagSet, v *viper.Viper) error {
	d := New()
	fs.String("name", d.Name, "scheduler name used in logs and metrics")
	fs.Int("tasks", d.Tasks, "number of counter tasks to submit")
	fs.Int("workers", d.Workers, "number of pinned workers (0 = number of CPUs)")
	fs.Int("producers", d.Producers, "number of goroutines submitting tasks")
	fs.Int("spin", d.Spin, "probe rounds before Enqueue and idle workers block")
	fs.Int("fail-every", d.FailEvery, "make every Nth task fail (0 = never)")
	fs.Bool("no-pin", d.NoPin, "do not pin worker threads to CPUs")
	fs.Bool("drain", d.Drain, "wait for all queued tasks at shutdown")
	fs.Duration("shutdown-timeout", d.ShutdownTimeout, "upper bound for a draining shutdown")
	fs.String("metrics-addr", d.MetricsAddr, "serve Prometheus metrics on this address")
	fs.String("log-level", d.LogLevel, "log level (debug, info, warn, error)")
	fs.String("log-format", d.LogFormat, "log format (console, json)")
	return v.BindPFlags(fs)
}

// NewViper returns a viper instance reading WORKSTEAL_* variables and, when
// file is not empty, that config file.
func NewViper(file string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", file, err)
		}
	}
	return v, nil
}

// Load decodes v on top of the defaults and validates the result.
func Load(v *viper.Viper) (*Configuration, error) {
	c := New()
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks value ranges.
func (c *Configuration) Validate() error {
	var errs []error
	if c.Tasks < 0 {
		errs = append(errs, fmt.Errorf("tasks must not be negative, got %d", c.Tasks))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if c.Producers < 1 {
		errs = append(errs, fmt.Errorf("producers must be at least 1, got %d", c.Producers))
	}
	if c.Spin < 1 {
		errs = append(errs, fmt.Errorf("spin must be at least 1, got %d", c.Spin))
	}
	if c.FailEvery < 0 {
		errs = append(errs, fmt.Errorf("fail-every must not be negative, got %d", c.FailEvery))
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log-level: %w", err))
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("log-format must be console or json, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// Logger builds the zap logger described by LogLevel and LogFormat.
func (c *Configuration) Logger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if c.LogFormat == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	return zc.Build()
}

// SchedulerConfig maps the settings onto a core.Config.
func (c *Configuration) SchedulerConfig(logger core.Logger, metrics core.Metrics) *core.Config {
	sc := &core.Config{
		Name:            c.Name,
		Workers:         c.Workers,
		SpinMultiplier:  c.Spin,
		Logger:          logger,
		Metrics:         metrics,
		PanicHandler:    &core.LoggingPanicHandler{Logger: logger},
		DrainOnShutdown: c.Drain,
	}
	if c.NoPin {
		sc.Pinner = core.NoPinning()
	}
	return sc
}
