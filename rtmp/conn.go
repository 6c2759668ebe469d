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
	"net"

	"github.com/kris-nova/logger"
	"github.com/pkg/errors"
)

// Conn is a single RTMP connection: the transport socket, the buffered
// framing codec, and all chunk-stream bookkeeping. Decoder state is held
// per connection in decodeState, keyed by CSID; nothing about an individual
// connection ever lives at package scope.
type Conn struct {
	net.Conn
	rw *ReadWriter

	outgoingChunkSize   uint32
	remoteChunkSize     uint32
	windowAckSize       uint32
	remoteWindowAckSize uint32
	received            uint32
	ackReceived         uint32

	decodeState map[uint32]*chunkState
	counters    Counters
}

func NewConn(c net.Conn, bufferSize int) *Conn {
	return &Conn{
		Conn:                c,
		rw:                  NewReadWriter(c, bufferSize),
		outgoingChunkSize:   DefaultChunkSize,
		remoteChunkSize:     DefaultChunkSize,
		windowAckSize:       DefaultWindowAckSize,
		remoteWindowAckSize: DefaultWindowAckSize,
		decodeState:         make(map[uint32]*chunkState),
	}
}

// ReadMessage blocks until one complete message has been reassembled from
// the wire. A continuation header (fmt 1/2/3) on a CSID with no prior fmt 0
// chunk is a hard framing error, never guessed around.
func (conn *Conn) ReadMessage() (*ChunkStream, error) {
	for {
		h, err := conn.rw.ReadUintBE(1)
		if err != nil {
			return nil, mapReadErr(err)
		}
		format := h >> 6
		csid := h & 0x3f
		switch csid {
		case 0:
			id, err := conn.rw.ReadUintLE(1)
			if err != nil {
				return nil, mapReadErr(err)
			}
			csid = id + 64
		case 1:
			id, err := conn.rw.ReadUintLE(2)
			if err != nil {
				return nil, mapReadErr(err)
			}
			csid = id + 64
		}

		st, ok := conn.decodeState[csid]
		if !ok {
			if format != 0 {
				return nil, errors.Wrapf(ErrNoPriorState, "fmt %d on csid %d", format, csid)
			}
			st = &chunkState{}
			conn.decodeState[csid] = st
		}

		complete, err := st.readChunk(conn.rw, format, conn.remoteChunkSize)
		if err != nil {
			return nil, err
		}
		if !complete {
			continue
		}

		cs := &ChunkStream{
			Format:    format,
			CSID:      csid,
			Timestamp: st.timestamp,
			Length:    st.length,
			TypeID:    st.typeID,
			StreamID:  st.streamID,
			Data:      st.data,
		}
		conn.counters.PacketsRX++
		conn.counters.BytesRX += int(cs.Length)
		conn.handleControl(cs)
		if err := conn.ack(cs.Length); err != nil {
			return nil, err
		}
		logger.Debug(rtmpMessage(typeIDString(cs.TypeID), rx))
		return cs, nil
	}
}

// handleControl applies protocol control messages to connection state as
// they arrive, before the caller ever sees them.
func (conn *Conn) handleControl(cs *ChunkStream) {
	if len(cs.Data) < 4 {
		return
	}
	switch cs.TypeID {
	case SetChunkSizeMessageID:
		conn.remoteChunkSize = binary.BigEndian.Uint32(cs.Data[:4])
		logger.Debug(rtmpMessage("remote chunk size = %d", ack), conn.remoteChunkSize)
	case WindowAcknowledgementSizeMessageID:
		conn.remoteWindowAckSize = binary.BigEndian.Uint32(cs.Data[:4])
		logger.Debug(rtmpMessage("remote window ack size = %d", ack), conn.remoteWindowAckSize)
	}
}

// ack accumulates received byte counts and emits an acknowledgement once
// the remote window fills.
func (conn *Conn) ack(size uint32) error {
	conn.received += size
	conn.ackReceived += size
	if conn.received >= 0xf0000000 {
		conn.received = 0
	}
	if conn.ackReceived < conn.remoteWindowAckSize {
		return nil
	}
	cs := conn.NewAck(conn.ackReceived)
	conn.ackReceived = 0
	if err := conn.WriteMessage(&cs); err != nil {
		return err
	}
	return conn.Flush()
}

// WriteMessage frames and buffers one message. Callers batch messages and
// Flush at protocol boundaries.
func (conn *Conn) WriteMessage(cs *ChunkStream) error {
	if cs.TypeID == SetChunkSizeMessageID && len(cs.Data) >= 4 {
		conn.outgoingChunkSize = binary.BigEndian.Uint32(cs.Data[:4])
	}
	if err := cs.writeTo(conn.rw, conn.outgoingChunkSize); err != nil {
		return err
	}
	conn.counters.PacketsTX++
	conn.counters.BytesTX += len(cs.Data)
	logger.Debug(rtmpMessage(typeIDString(cs.TypeID), tx))
	return nil
}

func (conn *Conn) Flush() error {
	return conn.rw.Flush()
}

// Counters returns a snapshot of per-connection traffic totals.
func (conn *Conn) Counters() Counters {
	return conn.counters
}

// initControlMsg builds a protocol control message: CSID 2, stream 0, one
// big-endian value payload.
func initControlMsg(typeID, size, value uint32) ChunkStream {
	cs := ChunkStream{
		Format:   0,
		CSID:     2,
		TypeID:   typeID,
		StreamID: 0,
		Length:   size,
		Data:     make([]byte, size),
	}
	binary.BigEndian.PutUint32(cs.Data[:4], value)
	return cs
}

func (conn *Conn) NewSetChunkSize(size uint32) ChunkStream {
	return initControlMsg(SetChunkSizeMessageID, 4, size)
}

func (conn *Conn) NewWindowAckSize(size uint32) ChunkStream {
	return initControlMsg(WindowAcknowledgementSizeMessageID, 4, size)
}

func (conn *Conn) NewAck(size uint32) ChunkStream {
	return initControlMsg(AcknowledgementMessageID, 4, size)
}

// userControlMsg builds a user control message (type 4) with the 2-byte
// event type prefixed to the event payload.
func (conn *Conn) userControlMsg(eventType uint16, payload []byte) ChunkStream {
	cs := ChunkStream{
		Format:   0,
		CSID:     2,
		TypeID:   UserControlMessageID,
		StreamID: 0,
		Length:   uint32(2 + len(payload)),
		Data:     make([]byte, 2+len(payload)),
	}
	binary.BigEndian.PutUint16(cs.Data[:2], eventType)
	copy(cs.Data[2:], payload)
	return cs
}

// NewSetBufferLength asks the peer to buffer bufferMS milliseconds of the
// given stream before delivery. Sent before play.
func (conn *Conn) NewSetBufferLength(streamID, bufferMS uint32) ChunkStream {
	payload := make([]byte, 8)
	binary.BigEndian.PutUint32(payload[:4], streamID)
	binary.BigEndian.PutUint32(payload[4:], bufferMS)
	return conn.userControlMsg(EventSetBufferLength, payload)
}

// NewPingResponse echoes a ping request's 4-byte payload back to the peer.
func (conn *Conn) NewPingResponse(echo []byte) ChunkStream {
	payload := make([]byte, 4)
	copy(payload, echo)
	return conn.userControlMsg(EventPingResponse, payload)
}
