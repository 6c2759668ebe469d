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

package rtmp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseURLAddrFull(t *testing.T) {
	a, err := ParseURLAddr("rtmp://stream.example.com:1936/app/secret-key")
	require.NoError(t, err)
	require.Equal(t, "stream.example.com", a.Host())
	require.Equal(t, uint16(1936), a.Port())
	require.Equal(t, "app", a.App())
	require.Equal(t, "secret-key", a.Key())
	require.Equal(t, "rtmp://stream.example.com:1936/app/secret-key", a.StreamURL())
}

func TestParseURLAddrDefaults(t *testing.T) {
	a, err := ParseURLAddr("stream.example.com")
	require.NoError(t, err)
	require.Equal(t, "stream.example.com", a.Host())
	require.Equal(t, DefaultPort, a.Port())
	require.Equal(t, DefaultApp, a.App())
	require.True(t, strings.HasPrefix(a.Key(), DefaultGenerateKeyPrefix))
	require.Len(t, a.Key(), len(DefaultGenerateKeyPrefix)+DefaultGenerateKeyLength)
}

func TestParseURLAddrHostApp(t *testing.T) {
	a, err := ParseURLAddr("localhost:1935/live")
	require.NoError(t, err)
	require.Equal(t, "localhost", a.Host())
	require.Equal(t, uint16(1935), a.Port())
	require.Equal(t, "live", a.App())
}

func TestParseURLAddrErrors(t *testing.T) {
	for _, raw := range []string{
		"",
		"rtmp://",
		"host/app/key/extra",
		"host:notaport/app",
	} {
		_, err := ParseURLAddr(raw)
		require.Error(t, err, "raw %q", raw)
	}
}

func TestURLAddrSafeURLHidesKey(t *testing.T) {
	a, err := ParseURLAddr("rtmp://localhost:1935/live/my-secret")
	require.NoError(t, err)
	require.NotContains(t, a.SafeURL(), "my-secret")
	require.Contains(t, a.StreamURL(), "my-secret")
}

func TestURLAddrResolveLiteralIP(t *testing.T) {
	a, err := ParseURLAddr("127.0.0.1:1935/live/key")
	require.NoError(t, err)
	tcp, err := a.Resolve()
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1", tcp.IP.String())
	require.Equal(t, 1935, tcp.Port)
}

func TestURLAddrRequest(t *testing.T) {
	a, err := ParseURLAddr("rtmp://example.com/live/key1")
	require.NoError(t, err)
	req := a.Request(2500)
	require.Equal(t, "example.com", req.Host)
	require.Equal(t, DefaultPort, req.Port)
	require.Equal(t, "live", req.App)
	require.Equal(t, uint32(2500), req.TimeoutMS)
	require.Equal(t, "key1", req.StreamKey)
	require.Equal(t, "key1", req.StreamName)
}
