// Copyright © 2024 The portofcall Authors
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
//
// ────────────────────────────────────────────────────────────────────────────
//
//  ██████╗  ██████╗ ██████╗ ████████╗ ██████╗ ███████╗ ██████╗ █████╗ ██╗     ██╗
//  ██╔══██╗██╔═══██╗██╔══██╗╚══██╔══╝██╔═══██╗██╔════╝██╔════╝██╔══██╗██║     ██║
//  ██████╔╝██║   ██║██████╔╝   ██║   ██║   ██║█████╗  ██║     ███████║██║     ██║
//  ██╔═══╝ ██║   ██║██╔══██╗   ██║   ██║   ██║██╔══╝  ██║     ██╔══██║██║     ██║
//  ██║     ╚██████╔╝██║  ██║   ██║   ╚██████╔╝██║     ╚██████╗██║  ██║███████╗███████╗
//  ╚═╝      ╚═════╝ ╚═╝  ╚═╝   ╚═╝    ╚═════╝ ╚═╝      ╚═════╝╚═╝  ╚═╝╚══════╝╚══════╝
//
// ────────────────────────────────────────────────────────────────────────────

package portofcall

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, "localhost", cfg.Host)
	require.Equal(t, DefaultRTMPPort, cfg.Port)
	require.Equal(t, DefaultRTMPApp, cfg.App)
	require.Equal(t, DefaultTimeoutMS, cfg.TimeoutMS)
	require.Empty(t, cfg.StreamKey)
	require.False(t, cfg.Verbose)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "portofcall.toml")
	body := `
host = "stream.example.com"
port = 1936
app = "ingest"
timeout_ms = 2500
stream_key = "abc123"
verbose = true
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "stream.example.com", cfg.Host)
	require.Equal(t, 1936, cfg.Port)
	require.Equal(t, "ingest", cfg.App)
	require.Equal(t, 2500, cfg.TimeoutMS)
	require.Equal(t, "abc123", cfg.StreamKey)
	require.True(t, cfg.Verbose)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}
