// Package config holds the YAML run configuration for the estimator tools.
package config

import (
	"math"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/babetCode/IMU-gait-analysis/ekf"
)

// Error policies for failed updates.
const (
	OnErrorSkip  = "skip"
	OnErrorAbort = "abort"
)

// Source kinds.
const (
	SourceCSV       = "csv"
	SourceSynthetic = "synthetic"
)

// Config describes a complete estimator run.
type Config struct {
	SampleRate        float64 `yaml:"sample_rate"` // Hz
	ProcessNoise      float64 `yaml:"process_noise"`
	MeasurementNoise  float64 `yaml:"measurement_noise"`
	InitialCovariance float64 `yaml:"initial_covariance"`
	Joseph            bool    `yaml:"joseph"`
	UpdateEvery       int     `yaml:"update_every"`
	OnNumericalError  string  `yaml:"on_numerical_error"`

	Source  Source  `yaml:"source"`
	Publish Publish `yaml:"publish"`
	Log     Log     `yaml:"log"`
}

// Source selects where samples come from.
type Source struct {
	Kind        string      `yaml:"kind"`
	Path        string      `yaml:"path"`
	Rate        [3]float64  `yaml:"rate"`         // synthetic angular rate, rad/s
	Samples     int         `yaml:"samples"`      // synthetic sample count
	Noise       float64     `yaml:"noise"`        // synthetic noise std dev
	Seed        int64       `yaml:"seed"`
	Placeholder *[3]float64 `yaml:"placeholder"` // constant measurement override
}

// Publish lists optional snapshot sinks.
type Publish struct {
	Websocket  string `yaml:"websocket"` // host:port of an ekfweb server
	MQTTBroker string `yaml:"mqtt_broker"`
	MQTTTopic  string `yaml:"mqtt_topic"`
	CSV        string `yaml:"csv"`
}

// Log configures the zap logger.
type Log struct {
	Level  string `yaml:"level"`
	Output string `yaml:"output"`
}

// Default returns the reference configuration: 144 Hz, a synthetic source
// and a measurement every sample.
func Default() *Config {
	return &Config{
		SampleRate:        ekf.DefaultSampleRate,
		ProcessNoise:      ekf.DefaultProcessNoise,
		MeasurementNoise:  ekf.DefaultMeasurementNoise,
		InitialCovariance: ekf.DefaultInitialCovariance,
		UpdateEvery:       1,
		OnNumericalError:  OnErrorSkip,
		Source: Source{
			Kind:    SourceSynthetic,
			Rate:    [3]float64{0.1, 0, 0},
			Samples: ekf.DefaultSampleRate * 10,
			Seed:    1,
		},
		Publish: Publish{MQTTTopic: "ekf/orientation"},
		Log:     Log{Level: "info", Output: "stderr"},
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "config: can't read %s", path)
	}
	return Parse(b)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, errors.Wrap(err, "config: bad yaml")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if !(c.SampleRate > 0) || math.IsInf(c.SampleRate, 0) {
		return errors.Errorf("config: sample_rate must be positive and finite, got %v", c.SampleRate)
	}
	if c.UpdateEvery < 1 {
		return errors.Errorf("config: update_every must be at least 1, got %d", c.UpdateEvery)
	}
	switch c.OnNumericalError {
	case OnErrorSkip, OnErrorAbort:
	default:
		return errors.Errorf("config: unknown on_numerical_error %q", c.OnNumericalError)
	}
	switch c.Source.Kind {
	case SourceCSV:
		if c.Source.Path == "" {
			return errors.New("config: csv source needs a path")
		}
	case SourceSynthetic:
		if c.Source.Samples < 1 {
			return errors.Errorf("config: synthetic source needs samples, got %d", c.Source.Samples)
		}
		if c.Source.Noise < 0 {
			return errors.Errorf("config: noise must be non-negative, got %v", c.Source.Noise)
		}
	default:
		return errors.Errorf("config: unknown source kind %q", c.Source.Kind)
	}
	if c.Publish.MQTTBroker != "" && c.Publish.MQTTTopic == "" {
		return errors.New("config: mqtt_broker set without mqtt_topic")
	}
	if _, err := c.EstimatorConfig(); err != nil {
		return err
	}
	return nil
}

// EstimatorConfig derives the estimator configuration.
func (c *Config) EstimatorConfig() (ekf.Config, error) {
	ec := ekf.Config{
		DT:                1 / c.SampleRate,
		ProcessNoise:      c.ProcessNoise,
		MeasurementNoise:  c.MeasurementNoise,
		InitialCovariance: c.InitialCovariance,
		CovarianceForm:    ekf.CovarianceStandard,
	}
	if c.Joseph {
		ec.CovarianceForm = ekf.CovarianceJoseph
	}
	if err := ec.Validate(); err != nil {
		return ekf.Config{}, errors.Wrap(err, "config")
	}
	return ec, nil
}
