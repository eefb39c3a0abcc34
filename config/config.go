/*
Copyright (c) the aquarium-core authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package config holds the configuration surface exposed at Core
// construction: static options fixed for the process lifetime, and a
// dynamic subset that can be reloaded at runtime from a YAML file, the way
// the teacher's ptp4u server separates StaticConfig from DynamicConfig.
package config

import (
	"errors"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"
)

// errInvalidChannel is returned by Validate for a channel outside 0..14.
var errInvalidChannel = errors.New("config: channel must be in 0..14")

// errZeroCapacity is returned by Validate when a required capacity is <= 0.
var errZeroCapacity = errors.New("config: capacity must be > 0")

// DynamicConfig is the set of options aquahubd re-reads from a YAML file on
// SIGHUP into the running Core's Config. Values that Core copies into its
// registry and send path at construction (heartbeat timeout, retry base
// delay, unmapped-table cap) keep their construction-time values.
type DynamicConfig struct {
	HeartbeatIntervalMs   int64 `yaml:"heartbeat_interval_ms"`
	HeartbeatTimeoutMs    int64 `yaml:"heartbeat_timeout_ms"`
	AnnounceRebroadcastMs int64 `yaml:"announce_rebroadcast_ms"`
	ReassemblyTimeoutMs   int64 `yaml:"reassembly_timeout_ms"`
	RetryBaseDelayMs      int64 `yaml:"retry_base_delay_ms"`
	MaxRetries            int   `yaml:"max_retries"`
	MaxUnmappedEntries    int   `yaml:"max_unmapped_entries"`
}

// Config is the full configuration surface supplied at Core construction.
type Config struct {
	// Channel is the radio channel (0..14 valid); the core does not
	// negotiate channels, it only validates and passes this through to
	// the radio driver.
	Channel int `yaml:"channel"`
	// RxQueueCapacity and MaxMessageBytes are fixed for the process
	// lifetime since they size pre-allocated buffers.
	RxQueueCapacity int `yaml:"rx_queue_capacity"`
	MaxMessageBytes int `yaml:"max_message_bytes"`

	DynamicConfig `yaml:",inline"`
}

// Default returns the configuration surface's documented defaults.
func Default() Config {
	return Config{
		Channel:         6,
		RxQueueCapacity: 10,
		MaxMessageBytes: 512,
		DynamicConfig: DynamicConfig{
			HeartbeatIntervalMs:   30000,
			HeartbeatTimeoutMs:    90000,
			AnnounceRebroadcastMs: 5000,
			ReassemblyTimeoutMs:   1500,
			RetryBaseDelayMs:      100,
			MaxRetries:            3,
			MaxUnmappedEntries:    32,
		},
	}
}

// Validate rejects construction-time configuration errors: invalid
// channel, zero capacities, an intake queue of fewer than 10 slots. Per
// spec §7 these are surfaced as construction failures, not runtime errors.
func (c Config) Validate() error {
	if c.Channel < 0 || c.Channel > 14 {
		return errInvalidChannel
	}
	if c.RxQueueCapacity <= 0 || c.MaxMessageBytes <= 0 {
		return errZeroCapacity
	}
	if c.RxQueueCapacity < 10 {
		return errors.New("config: rx_queue_capacity must be >= 10")
	}
	if c.MaxRetries < 0 {
		return errors.New("config: max_retries must be >= 0")
	}
	return nil
}

// HeartbeatInterval, HeartbeatTimeout, AnnounceRebroadcast,
// ReassemblyTimeout and RetryBaseDelay convert the millisecond fields to
// time.Duration for use by the core and send path.
func (c Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatIntervalMs) * time.Millisecond
}

func (c Config) HeartbeatTimeout() time.Duration {
	return time.Duration(c.HeartbeatTimeoutMs) * time.Millisecond
}

func (c Config) AnnounceRebroadcast() time.Duration {
	return time.Duration(c.AnnounceRebroadcastMs) * time.Millisecond
}

func (c Config) ReassemblyTimeout() time.Duration {
	return time.Duration(c.ReassemblyTimeoutMs) * time.Millisecond
}

func (c Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelayMs) * time.Millisecond
}

// ReadDynamicConfig reads the reloadable subset of Config from a YAML file,
// mirroring ptp4u's ReadDynamicConfig. It does not validate the values it
// reads; fields absent from the file are left at zero.
func ReadDynamicConfig(path string) (*DynamicConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	dc := &DynamicConfig{}
	if err := yaml.Unmarshal(data, dc); err != nil {
		return nil, err
	}
	return dc, nil
}

// WriteDynamicConfig serializes dc as YAML to path, the symmetric
// counterpart used by operator tooling to seed a config file.
func WriteDynamicConfig(path string, dc *DynamicConfig) error {
	data, err := yaml.Marshal(dc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
