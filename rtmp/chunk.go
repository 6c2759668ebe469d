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

	"github.com/pkg/errors"
)

// ChunkStream is one complete RTMP message: the unit produced by reassembling
// chunks off the wire, and the unit handed to the encoder to be framed.
type ChunkStream struct {
	Format    uint32
	CSID      uint32
	Timestamp uint32
	Length    uint32
	TypeID    uint32
	StreamID  uint32
	Data      []byte
}

// chunkState is the per-CSID decoder state: the last fully resolved header
// fields (inherited by fmt 1/2/3 chunks) plus the in-flight assembly buffer.
// The map holding these lives inside the owning Conn, never at package scope.
type chunkState struct {
	timestamp      uint32
	timestampDelta uint32
	length         uint32
	typeID         uint32
	streamID       uint32
	extended       bool
	lastFormat     uint32

	data   []byte
	index  uint32
	remain uint32
}

func (st *chunkState) begin() {
	st.data = make([]byte, st.length)
	st.index = 0
	st.remain = st.length
}

// writeHeader emits the basic header (1-3 bytes by CSID range) and the
// format-dependent message header. Timestamps at or above 0xFFFFFF spill
// into the 4-byte extended timestamp field; fmt 3 headers never repeat it.
func (cs *ChunkStream) writeHeader(w *ReadWriter, format uint32) error {
	h := format << 6
	switch {
	case cs.CSID < 2:
		return errors.Wrapf(ErrMalformedHeader, "csid %d is reserved", cs.CSID)
	case cs.CSID < 64:
		h |= cs.CSID
		w.WriteUintBE(h, 1)
	case cs.CSID-64 < 256:
		w.WriteUintBE(h, 1)
		w.WriteUintLE(cs.CSID-64, 1)
	case cs.CSID-64 < 65536:
		h |= 1
		w.WriteUintBE(h, 1)
		w.WriteUintLE(cs.CSID-64, 2)
	default:
		return errors.Wrapf(ErrMalformedHeader, "csid %d out of range", cs.CSID)
	}
	if format == 3 {
		return w.WriteError()
	}
	ts := cs.Timestamp
	if ts >= 0xffffff {
		ts = 0xffffff
	}
	w.WriteUintBE(ts, 3)
	if format < 2 {
		if cs.Length > 0xffffff {
			return errors.Wrapf(ErrMalformedHeader, "message length %d out of range", cs.Length)
		}
		w.WriteUintBE(cs.Length, 3)
		w.WriteUintBE(cs.TypeID, 1)
		if format == 0 {
			w.WriteUintLE(cs.StreamID, 4)
		}
	}
	if ts == 0xffffff {
		w.WriteUintBE(cs.Timestamp, 4)
	}
	return w.WriteError()
}

// writeTo frames the message into ceil(len/chunkSize) chunks: one fmt 0
// header up front, a 1-byte fmt 3 continuation header per later chunk.
func (cs *ChunkStream) writeTo(w *ReadWriter, chunkSize uint32) error {
	if chunkSize == 0 {
		return errors.Wrap(ErrMalformedHeader, "zero chunk size")
	}
	cs.Length = uint32(len(cs.Data))
	written := uint32(0)
	for i := uint32(0); written < cs.Length || i == 0; i++ {
		format := uint32(0)
		if i > 0 {
			format = 3
		}
		if err := cs.writeHeader(w, format); err != nil {
			return err
		}
		inc := chunkSize
		if cs.Length-written < inc {
			inc = cs.Length - written
		}
		if _, err := w.Write(cs.Data[written : written+inc]); err != nil {
			return err
		}
		written += inc
	}
	return w.WriteError()
}

// readChunk consumes one chunk header plus up to chunkSize payload bytes,
// inheriting any fields the header format omits. Returns true once the whole
// message has been collected.
func (st *chunkState) readChunk(r *ReadWriter, format uint32, chunkSize uint32) (bool, error) {
	if st.remain != 0 && format != 3 {
		return false, errors.Wrapf(ErrMalformedHeader, "fmt %d header arrived mid-message (%d bytes remaining)", format, st.remain)
	}
	switch format {
	case 0:
		ts, _ := r.ReadUintBE(3)
		st.length, _ = r.ReadUintBE(3)
		st.typeID, _ = r.ReadUintBE(1)
		st.streamID, _ = r.ReadUintLE(4)
		if ts == 0xffffff {
			ts, _ = r.ReadUintBE(4)
			st.extended = true
		} else {
			st.extended = false
		}
		st.timestamp = ts
		st.timestampDelta = 0
		st.lastFormat = 0
		st.begin()
	case 1:
		delta, _ := r.ReadUintBE(3)
		st.length, _ = r.ReadUintBE(3)
		st.typeID, _ = r.ReadUintBE(1)
		if delta == 0xffffff {
			delta, _ = r.ReadUintBE(4)
			st.extended = true
		} else {
			st.extended = false
		}
		st.timestampDelta = delta
		st.timestamp += delta
		st.lastFormat = 1
		st.begin()
	case 2:
		delta, _ := r.ReadUintBE(3)
		if delta == 0xffffff {
			delta, _ = r.ReadUintBE(4)
			st.extended = true
		} else {
			st.extended = false
		}
		st.timestampDelta = delta
		st.timestamp += delta
		st.lastFormat = 2
		st.begin()
	case 3:
		if st.remain == 0 {
			// a fresh message reusing every prior header field
			switch st.lastFormat {
			case 0:
				if st.extended {
					ts, _ := r.ReadUintBE(4)
					st.timestamp = ts
				}
			case 1, 2:
				delta := st.timestampDelta
				if st.extended {
					delta, _ = r.ReadUintBE(4)
				}
				st.timestamp += delta
			}
			st.begin()
		} else if st.extended {
			// mid-message continuation: some peers repeat the extended
			// timestamp here, some do not. Peek and only consume a match.
			b, err := r.Peek(4)
			if err != nil {
				return false, mapReadErr(err)
			}
			if binary.BigEndian.Uint32(b) == st.timestamp {
				r.Discard(4)
			}
		}
	default:
		return false, errors.Wrapf(ErrMalformedHeader, "fmt %d", format)
	}
	if err := r.ReadError(); err != nil {
		return false, mapReadErr(err)
	}

	size := st.remain
	if size > chunkSize {
		size = chunkSize
	}
	if _, err := r.Read(st.data[st.index : st.index+size]); err != nil {
		return false, mapReadErr(err)
	}
	st.index += size
	st.remain -= size
	return st.remain == 0, nil
}
