package main

import (
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"

	"github.com/nasa-jpl/servolab/activity"
	"github.com/nasa-jpl/servolab/util"
)

// HoldConfig is how long, in seconds, each kind of event stays highlighted
type HoldConfig struct {
	Read    float64 `koanf:"Read" yaml:"Read"`
	Written float64 `koanf:"Written" yaml:"Written"`
	Changed float64 `koanf:"Changed" yaml:"Changed"`
}

// Config is a struct that holds the server's settings.
// It is populated from defaults and then servoregs.yml.
type Config struct {
	// Addr is the address to listen at
	Addr string `koanf:"Addr" yaml:"Addr"`

	// Endpoint is the URL the register routes are served under, e.g. "servo"
	// produces /servo/registers
	Endpoint string `koanf:"Endpoint" yaml:"Endpoint"`

	// Mock replaces the device with an in-memory register file
	Mock bool `koanf:"Mock" yaml:"Mock"`

	// LogLevel is one of trace, debug, info, warn, error
	LogLevel string `koanf:"LogLevel" yaml:"LogLevel"`

	// SweepPeriod is the interval between mark sweeps, in seconds
	SweepPeriod float64 `koanf:"SweepPeriod" yaml:"SweepPeriod"`

	// PollPeriod is the interval between register polls, in seconds
	PollPeriod float64 `koanf:"PollPeriod" yaml:"PollPeriod"`

	// PollRate bounds individual register reads per second, 0 is unlimited
	PollRate float64 `koanf:"PollRate" yaml:"PollRate"`

	Holds HoldConfig `koanf:"Holds" yaml:"Holds"`
}

// ActivityHolds converts the hold configuration to the tracker's form
func (c Config) ActivityHolds() activity.Holds {
	return activity.Holds{
		Read:    util.SecsToDuration(c.Holds.Read),
		Written: util.SecsToDuration(c.Holds.Written),
		Changed: util.SecsToDuration(c.Holds.Changed),
	}
}

// DefaultConfig is the configuration used when there is no config file
func DefaultConfig() Config {
	h := activity.DefaultHolds()
	return Config{
		Addr:        ":8000",
		Endpoint:    "servo",
		LogLevel:    "info",
		SweepPeriod: util.DurationToSecs(activity.DefaultSweepPeriod),
		PollPeriod:  util.DurationToSecs(100 * time.Millisecond),
		PollRate:    1000,
		Holds: HoldConfig{
			Read:    util.DurationToSecs(h.Read),
			Written: util.DurationToSecs(h.Written),
			Changed: util.DurationToSecs(h.Changed),
		},
	}
}

// loadConfig layers the file at path over the defaults.  A missing file is not an error.
func loadConfig(k *koanf.Koanf, path string) (Config, error) {
	c := Config{}
	if err := k.Load(structs.Provider(DefaultConfig(), "koanf"), nil); err != nil {
		return c, err
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if !strings.Contains(err.Error(), "no such") {
			return c, err
		}
	}
	err := k.Unmarshal("", &c)
	return c, err
}
