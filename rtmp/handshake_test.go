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
	"bytes"
	"io"
	"math/rand"
	"net"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestHandshakeClientEchoesS1(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	type peerResult struct {
		c1  []byte
		s1  []byte
		c2  []byte
		err error
	}
	done := make(chan peerResult, 1)

	go func() {
		defer server.Close()
		var r peerResult

		c0 := make([]byte, 1)
		if _, r.err = io.ReadFull(server, c0); r.err != nil {
			done <- r
			return
		}
		r.c1 = make([]byte, handshakeBlockSize)
		if _, r.err = io.ReadFull(server, r.c1); r.err != nil {
			done <- r
			return
		}

		r.s1 = make([]byte, handshakeBlockSize)
		rand.Read(r.s1)
		server.Write([]byte{handshakeVersion})
		server.Write(r.s1)
		// S2 echoes C1, the client drains it without checking
		server.Write(r.c1)

		r.c2 = make([]byte, handshakeBlockSize)
		_, r.err = io.ReadFull(server, r.c2)
		done <- r
	}()

	conn := NewConn(client, DefaultReadBufferize)
	require.NoError(t, conn.HandshakeClient())

	peer := <-done
	require.NoError(t, peer.err)
	require.True(t, bytes.Equal(peer.c2, peer.s1), "c2 must echo s1 byte for byte")
	// c1 bytes 4-7 are zero per the handshake layout
	require.Equal(t, []byte{0, 0, 0, 0}, peer.c1[4:8])
}

func TestHandshakeVersionMismatch(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	go func() {
		defer server.Close()
		io.ReadFull(server, make([]byte, 1+handshakeBlockSize))
		server.Write([]byte{0x06})
		s1 := make([]byte, handshakeBlockSize)
		server.Write(s1)
		server.Write(s1)
	}()

	conn := NewConn(client, DefaultReadBufferize)
	err := conn.HandshakeClient()
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrVersionMismatch))
}

func TestHandshakeTruncated(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	go func() {
		io.ReadFull(server, make([]byte, 1+handshakeBlockSize))
		server.Write([]byte{handshakeVersion})
		// half an s1, then hang up
		server.Write(make([]byte, handshakeBlockSize/2))
		server.Close()
	}()

	conn := NewConn(client, DefaultReadBufferize)
	err := conn.HandshakeClient()
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrTruncated))
}
