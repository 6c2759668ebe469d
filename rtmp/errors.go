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
	"fmt"
	"io"
	"net"

	"github.com/pkg/errors"
)

// Handshake errors. Fatal, never retried inside the component.
var (
	ErrVersionMismatch = errors.New("rtmp: handshake: version mismatch")
	ErrTruncated       = errors.New("rtmp: handshake: truncated exchange")
)

// Chunk stream errors. Fatal for the session: chunk-stream state is
// unrecoverable after a framing desync, so the session is torn down.
var (
	ErrNoPriorState    = errors.New("rtmp: chunk: continuation chunk without prior state")
	ErrMalformedHeader = errors.New("rtmp: chunk: malformed header")
	ErrPeerClosed      = errors.New("rtmp: chunk: peer closed connection")
)

// Codec errors. Fatal for command-response parsing: a desynced buffer
// corrupts every subsequent value.
var (
	ErrUnsupportedType = errors.New("rtmp: amf: unsupported type marker")
	ErrCodecTruncated  = errors.New("rtmp: amf: truncated value")
)

// Session errors. ErrNoResult means the peer answered, just never with the
// response we were correlating on; ErrTimeout means it stopped answering.
var (
	ErrTimeout  = errors.New("rtmp: session: operation deadline exceeded")
	ErrNoResult = errors.New("rtmp: session: read budget exhausted without result")
)

// RejectedError carries the peer's _error payload verbatim for diagnostics.
type RejectedError struct {
	Command string
	Args    []interface{}
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("rtmp: session: %s rejected by peer: %v", e.Command, e.Args)
}

// isTimeout reports whether err originated from the transport deadline.
func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// mapReadErr classifies transport read failures: deadline expiry passes
// through for the session to surface as ErrTimeout, everything that looks
// like the peer going away becomes ErrPeerClosed.
func mapReadErr(err error) error {
	if err == nil {
		return nil
	}
	if isTimeout(err) {
		return err
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return errors.Wrap(ErrPeerClosed, "eof")
	}
	return errors.Wrap(ErrPeerClosed, err.Error())
}
