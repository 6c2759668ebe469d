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
	"encoding/binary"
	"io"
	"math/rand"
	"time"

	"github.com/kris-nova/logger"
	"github.com/pkg/errors"
)

const (
	handshakeVersion    byte = 0x03
	handshakeBlockSize       = 1536
	handshakeFillerSize      = 1528
)

// HandshakeClient runs the client side of the plain (unauthenticated)
// handshake: send C0+C1, read S0+S1+S2, echo S1 back as C2. S2 is drained
// so the stream stays aligned, but its contents are not validated.
func (conn *Conn) HandshakeClient() error {
	logger.Debug(rtmpMessage("handshake", hs))

	c1 := make([]byte, handshakeBlockSize)
	binary.BigEndian.PutUint32(c1[0:4], uint32(time.Now().UnixNano()/int64(time.Millisecond)))
	// bytes 4-7 stay zero
	rand.Read(c1[8:])

	if err := conn.rw.WriteByte(handshakeVersion); err != nil {
		return errors.Wrap(err, "write c0")
	}
	if _, err := conn.rw.Write(c1); err != nil {
		return errors.Wrap(err, "write c1")
	}
	if err := conn.rw.Flush(); err != nil {
		return errors.Wrap(err, "flush c0c1")
	}

	s0, err := conn.rw.ReadByte()
	if err != nil {
		return handshakeReadErr(err, "s0")
	}
	if s0 != handshakeVersion {
		return errors.Wrapf(ErrVersionMismatch, "sent 0x%02x, got 0x%02x", handshakeVersion, s0)
	}

	s1 := make([]byte, handshakeBlockSize)
	if _, err := io.ReadFull(conn.rw, s1); err != nil {
		return handshakeReadErr(err, "s1")
	}
	s2 := make([]byte, handshakeBlockSize)
	if _, err := io.ReadFull(conn.rw, s2); err != nil {
		return handshakeReadErr(err, "s2")
	}

	// C2 echoes S1 byte for byte
	if _, err := conn.rw.Write(s1); err != nil {
		return errors.Wrap(err, "write c2")
	}
	if err := conn.rw.Flush(); err != nil {
		return errors.Wrap(err, "flush c2")
	}
	logger.Debug(rtmpMessage("handshake complete", hs))
	return nil
}

func handshakeReadErr(err error, block string) error {
	if isTimeout(err) {
		return errors.Wrapf(err, "read %s", block)
	}
	return errors.Wrapf(ErrTruncated, "read %s: %v", block, err)
}
