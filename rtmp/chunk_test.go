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
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

// newTestConn builds a Conn whose wire is an in-memory buffer. The remote
// window is pushed out so ack bookkeeping never interferes with the bytes
// under test.
func newTestConn(buf *bytes.Buffer, chunkSize uint32) *Conn {
	return &Conn{
		rw:                  NewReadWriter(buf, DefaultReadBufferize),
		outgoingChunkSize:   chunkSize,
		remoteChunkSize:     chunkSize,
		windowAckSize:       DefaultWindowAckSize,
		remoteWindowAckSize: 1 << 30,
		decodeState:         make(map[uint32]*chunkState),
	}
}

func payload(n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(i % 251)
	}
	return p
}

func TestChunkRoundTripAcrossChunkSizes(t *testing.T) {
	for _, chunkSize := range []uint32{1, 128, 4096} {
		t.Run(fmt.Sprintf("chunkSize=%d", chunkSize), func(t *testing.T) {
			buf := &bytes.Buffer{}
			w := newTestConn(buf, chunkSize)
			r := newTestConn(buf, chunkSize)

			sent := []*ChunkStream{
				{CSID: 3, Timestamp: 100, TypeID: CommandMessageAMF0ID, StreamID: 1, Data: payload(1)},
				{CSID: 3, Timestamp: 200, TypeID: CommandMessageAMF0ID, StreamID: 1, Data: payload(300)},
				{CSID: 3, Timestamp: 300, TypeID: DataMessageAMF0ID, StreamID: 1, Data: payload(5000)},
			}
			for _, cs := range sent {
				require.NoError(t, w.WriteMessage(cs))
			}
			require.NoError(t, w.Flush())

			for _, want := range sent {
				got, err := r.ReadMessage()
				require.NoError(t, err)
				require.Equal(t, want.TypeID, got.TypeID)
				require.Equal(t, want.Timestamp, got.Timestamp)
				require.Equal(t, want.StreamID, got.StreamID)
				require.Equal(t, uint32(len(want.Data)), got.Length)
				require.Equal(t, want.Data, got.Data)
			}
		})
	}
}

func TestChunkExtendedTimestamp(t *testing.T) {
	buf := &bytes.Buffer{}
	w := newTestConn(buf, 128)
	r := newTestConn(buf, 128)

	for _, ts := range []uint32{0xffffff, 0x1000000, 0xfffffffe} {
		cs := &ChunkStream{CSID: 3, Timestamp: ts, TypeID: AudioMessageID, StreamID: 1, Data: payload(10)}
		require.NoError(t, w.WriteMessage(cs))
		require.NoError(t, w.Flush())

		got, err := r.ReadMessage()
		require.NoError(t, err)
		require.Equal(t, ts, got.Timestamp)
		require.Equal(t, cs.Data, got.Data)
	}
}

func TestChunkContinuationWithoutPriorState(t *testing.T) {
	for _, format := range []uint32{1, 2, 3} {
		buf := &bytes.Buffer{}
		// a continuation header on csid 5 with no fmt 0 before it
		buf.WriteByte(byte(format<<6 | 5))
		buf.Write(payload(32))

		r := newTestConn(buf, 128)
		_, err := r.ReadMessage()
		require.Error(t, err)
		require.True(t, errors.Is(err, ErrNoPriorState), "fmt %d: %v", format, err)
	}
}

func TestChunkHeaderInheritance(t *testing.T) {
	buf := &bytes.Buffer{}
	w := newTestConn(buf, 128)
	full := &ChunkStream{CSID: 3, Timestamp: 100, TypeID: AudioMessageID, StreamID: 7, Data: payload(4)}
	require.NoError(t, w.WriteMessage(full))
	require.NoError(t, w.Flush())

	// hand-rolled fmt 1: delta 50, same length, same type, stream inherited
	buf.WriteByte(0x40 | 3)
	buf.Write([]byte{0x00, 0x00, 0x32}) // delta 50
	buf.Write([]byte{0x00, 0x00, 0x04}) // length 4
	buf.WriteByte(byte(AudioMessageID))
	buf.Write(payload(4))

	// hand-rolled fmt 3: everything inherited, delta re-applied
	buf.WriteByte(0xc0 | 3)
	buf.Write(payload(4))

	r := newTestConn(buf, 128)
	first, err := r.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, uint32(100), first.Timestamp)
	require.Equal(t, uint32(7), first.StreamID)

	second, err := r.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, uint32(150), second.Timestamp)
	require.Equal(t, uint32(7), second.StreamID)
	require.Equal(t, AudioMessageID, second.TypeID)

	third, err := r.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, uint32(200), third.Timestamp)
	require.Equal(t, uint32(7), third.StreamID)
}

func TestChunkWideCSIDRoundTrip(t *testing.T) {
	for _, csid := range []uint32{3, 63, 64, 319, 320, 65599} {
		buf := &bytes.Buffer{}
		w := newTestConn(buf, 128)
		r := newTestConn(buf, 128)

		cs := &ChunkStream{CSID: csid, Timestamp: 1, TypeID: VideoMessageID, StreamID: 1, Data: payload(64)}
		require.NoError(t, w.WriteMessage(cs))
		require.NoError(t, w.Flush())

		got, err := r.ReadMessage()
		require.NoError(t, err)
		require.Equal(t, csid, got.CSID)
		require.Equal(t, cs.Data, got.Data)
	}
}

func TestChunkReservedCSIDRejected(t *testing.T) {
	buf := &bytes.Buffer{}
	w := newTestConn(buf, 128)
	cs := &ChunkStream{CSID: 1, Timestamp: 1, TypeID: VideoMessageID, StreamID: 1, Data: payload(4)}
	err := w.WriteMessage(cs)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrMalformedHeader))
}

func TestChunkSetChunkSizeApplies(t *testing.T) {
	buf := &bytes.Buffer{}
	w := newTestConn(buf, 128)
	r := newTestConn(buf, 128)

	scs := w.NewSetChunkSize(4096)
	require.NoError(t, w.WriteMessage(&scs))
	require.Equal(t, uint32(4096), w.outgoingChunkSize)

	big := &ChunkStream{CSID: 3, Timestamp: 2, TypeID: DataMessageAMF0ID, StreamID: 1, Data: payload(4000)}
	require.NoError(t, w.WriteMessage(big))
	require.NoError(t, w.Flush())

	got, err := r.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, SetChunkSizeMessageID, got.TypeID)
	require.Equal(t, uint32(4096), r.remoteChunkSize)

	got, err = r.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, big.Data, got.Data)
}

func TestChunkPeerClosedMidMessage(t *testing.T) {
	buf := &bytes.Buffer{}
	w := newTestConn(buf, 128)
	full := &ChunkStream{CSID: 3, Timestamp: 1, TypeID: DataMessageAMF0ID, StreamID: 1, Data: payload(500)}
	require.NoError(t, w.WriteMessage(full))
	require.NoError(t, w.Flush())

	// chop the wire bytes mid-payload
	truncated := bytes.NewBuffer(buf.Bytes()[:buf.Len()/2])
	r := newTestConn(truncated, 128)
	_, err := r.ReadMessage()
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrPeerClosed))
}
