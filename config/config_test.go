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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestValidateRejectsBadChannel(t *testing.T) {
	c := Default()
	c.Channel = 15
	assert.ErrorIs(t, c.Validate(), errInvalidChannel)
}

func TestValidateRejectsZeroCapacity(t *testing.T) {
	c := Default()
	c.RxQueueCapacity = 0
	assert.ErrorIs(t, c.Validate(), errZeroCapacity)
}

func TestReadWriteDynamicConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dynamic.yaml")

	dc := &DynamicConfig{
		HeartbeatIntervalMs:   30000,
		HeartbeatTimeoutMs:    90000,
		AnnounceRebroadcastMs: 5000,
		ReassemblyTimeoutMs:   1500,
		RetryBaseDelayMs:      100,
		MaxRetries:            3,
		MaxUnmappedEntries:    32,
	}
	require.NoError(t, WriteDynamicConfig(path, dc))

	got, err := ReadDynamicConfig(path)
	require.NoError(t, err)
	assert.Equal(t, dc, got)
}

func TestReadDynamicConfigMissingFile(t *testing.T) {
	_, err := ReadDynamicConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, os.IsNotExist(err))
}

func TestDurationHelpers(t *testing.T) {
	c := Default()
	assert.Equal(t, int64(90000), c.HeartbeatTimeout().Milliseconds())
	assert.Equal(t, int64(100), c.RetryBaseDelay().Milliseconds())
}
