// Copyright 2026 Palantir Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package datadog

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rcrowley/go-metrics"
)

const (
	DefaultInterval = 10 * time.Second
)

type Config struct {
	APIHost          string        `yaml:"api_host" json:"api_host"`
	APIKey           string        `yaml:"api_key" json:"api_key"`
	ApplicationKey   string        `yaml:"application_key" json:"application_key"`
	Host             string        `yaml:"host" json:"host"`
	Tags             []string      `yaml:"tags" json:"tags"`
	Interval         time.Duration `yaml:"interval" json:"interval"`
	Expansions       []string      `yaml:"expansions" json:"expansions"`
	RateUnit         time.Duration `yaml:"rate_unit" json:"rate_unit"`
	DurationUnit     time.Duration `yaml:"duration_unit" json:"duration_unit"`
	DogStatsdAddress string        `yaml:"dogstatsd_address" json:"dogstatsd_address"`
}

// SetValuesFromEnv sets values in the configuration from corresponding
// environment variables, if they exist. The optional prefix is added to the
// start of the names of all environment variables. Tags and expansions are
// comma-separated lists.
func (c *Config) SetValuesFromEnv(prefix string) {
	setStringFromEnv("DATADOG_API_HOST", prefix, &c.APIHost)
	setStringFromEnv("DATADOG_API_KEY", prefix, &c.APIKey)
	setStringFromEnv("DATADOG_APPLICATION_KEY", prefix, &c.ApplicationKey)
	setStringFromEnv("DATADOG_HOST", prefix, &c.Host)
	setListFromEnv("DATADOG_TAGS", prefix, &c.Tags)
	setDurationFromEnv("DATADOG_INTERVAL", prefix, &c.Interval)
	setListFromEnv("DATADOG_EXPANSIONS", prefix, &c.Expansions)
	setDurationFromEnv("DATADOG_RATE_UNIT", prefix, &c.RateUnit)
	setDurationFromEnv("DATADOG_DURATION_UNIT", prefix, &c.DurationUnit)
	setStringFromEnv("DATADOG_DOGSTATSD_ADDRESS", prefix, &c.DogStatsdAddress)
}

func setStringFromEnv(key, prefix string, value *string) bool {
	if v, ok := os.LookupEnv(prefix + key); ok {
		*value = v
		return true
	}
	return false
}

func setListFromEnv(key, prefix string, value *[]string) bool {
	var s string
	if !setStringFromEnv(key, prefix, &s) {
		return false
	}

	var list []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			list = append(list, v)
		}
	}
	*value = list
	return true
}

func setDurationFromEnv(key, prefix string, value *time.Duration) bool {
	var s string
	if !setStringFromEnv(key, prefix, &s) {
		return false
	}
	if s == "" {
		*value = 0
		return true
	}
	if d, err := time.ParseDuration(s); err == nil {
		*value = d
		return true
	}
	return false
}

// Validate checks that required values are set and that lists and units are
// valid. An API key is required unless metrics are sent to DogStatsD.
func (c Config) Validate() error {
	if c.Host == "" {
		return errors.New("datadog: a value for 'host' must be provided")
	}
	if c.APIKey == "" && c.DogStatsdAddress == "" {
		return errors.New("datadog: a value for 'api_key' must be provided")
	}
	if c.Interval < 0 {
		return errors.Errorf("datadog: invalid interval: %s", c.Interval)
	}
	if c.RateUnit < 0 {
		return errors.Errorf("datadog: invalid rate unit: %s", c.RateUnit)
	}
	if c.DurationUnit < 0 {
		return errors.Errorf("datadog: invalid duration unit: %s", c.DurationUnit)
	}
	_, err := c.expansions()
	return err
}

func (c Config) expansions() ([]Expansion, error) {
	if len(c.Expansions) == 0 {
		return AllExpansions, nil
	}

	es := make([]Expansion, 0, len(c.Expansions))
	for _, s := range c.Expansions {
		e, err := ParseExpansion(s)
		if err != nil {
			return nil, err
		}
		es = append(es, e)
	}
	return es, nil
}

// Options returns the Reporter options for the configuration.
func (c Config) Options() ([]Option, error) {
	es, err := c.expansions()
	if err != nil {
		return nil, err
	}
	return []Option{
		WithHost(c.Host),
		WithTags(c.Tags...),
		WithExpansions(es...),
		WithRateUnit(c.RateUnit),
		WithDurationUnit(c.DurationUnit),
	}, nil
}

// NewSink returns a StatsdSink if a DogStatsD address is configured and a
// Client for the series API otherwise.
func (c Config) NewSink() (Sink, error) {
	if c.DogStatsdAddress != "" {
		client, err := NewStatsdClient(c.DogStatsdAddress)
		if err != nil {
			return nil, err
		}
		return NewStatsdSink(client), nil
	}

	t, err := NewHTTPTransport(c.APIHost, c.APIKey, c.ApplicationKey)
	if err != nil {
		return nil, err
	}
	return NewClient(t), nil
}

// NewReporter validates the configuration and creates a Reporter for the
// registry. Additional options are applied after the configured ones.
func (c Config) NewReporter(registry metrics.Registry, opts ...Option) (*Reporter, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	sink, err := c.NewSink()
	if err != nil {
		return nil, err
	}

	all, err := c.Options()
	if err != nil {
		return nil, err
	}
	all = append(all, WithRegistry(registry))
	all = append(all, opts...)

	return NewReporter(sink, all...), nil
}

// StartReporter starts a goroutine that reports metrics from the registry at
// the configured interval until ctx is done.
func StartReporter(ctx context.Context, registry metrics.Registry, c Config, opts ...Option) (*Reporter, error) {
	r, err := c.NewReporter(registry, opts...)
	if err != nil {
		return nil, err
	}

	interval := c.Interval
	if interval == 0 {
		interval = DefaultInterval
	}
	go r.Start(ctx, interval)

	return r, nil
}
