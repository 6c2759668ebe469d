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
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/emirpasic/gods/maps/linkedhashmap"
	"github.com/pkg/errors"
)

// AMF0 type markers. Only the six types command messages actually use are
// supported; anything else (long strings included) is a hard decode error.
const (
	amfNumber     byte = 0x00
	amfBoolean    byte = 0x01
	amfString     byte = 0x02
	amfObject     byte = 0x03
	amfNull       byte = 0x05
	amfEcmaArray  byte = 0x08
	amfObjectEnd  byte = 0x09
	amfLongString byte = 0x0c
)

// Object is an insertion-ordered AMF0 object. Key order matters on the wire,
// so a plain Go map cannot back it.
type Object struct {
	m *linkedhashmap.Map
}

func NewObject() *Object {
	return &Object{m: linkedhashmap.New()}
}

// Set inserts or replaces a key. Returns the object for chaining.
func (o *Object) Set(key string, value interface{}) *Object {
	o.m.Put(key, value)
	return o
}

func (o *Object) Get(key string) (interface{}, bool) {
	return o.m.Get(key)
}

func (o *Object) Len() int {
	return o.m.Size()
}

func (o *Object) Keys() []string {
	raw := o.m.Keys()
	keys := make([]string, 0, len(raw))
	for _, k := range raw {
		keys = append(keys, k.(string))
	}
	return keys
}

func (o *Object) String() string {
	var sb strings.Builder
	sb.WriteString("{")
	it := o.m.Iterator()
	first := true
	for it.Next() {
		if !first {
			sb.WriteString(", ")
		}
		first = false
		sb.WriteString(fmt.Sprintf("%v: %v", it.Key(), it.Value()))
	}
	sb.WriteString("}")
	return sb.String()
}

// EcmaArray is an Object encoded with a leading 4-byte element count. The
// count is required on encode and ignored on decode.
type EcmaArray struct {
	Object
}

func NewEcmaArray() *EcmaArray {
	return &EcmaArray{Object{m: linkedhashmap.New()}}
}

// EncodeAMF encodes values in order into one AMF0 buffer.
func EncodeAMF(values ...interface{}) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	for _, v := range values {
		if err := amfEncode(buf, v); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func amfEncode(buf *bytes.Buffer, value interface{}) error {
	switch v := value.(type) {
	case float64:
		buf.WriteByte(amfNumber)
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], math.Float64bits(v))
		buf.Write(b[:])
	case int:
		return amfEncode(buf, float64(v))
	case uint32:
		return amfEncode(buf, float64(v))
	case bool:
		buf.WriteByte(amfBoolean)
		if v {
			buf.WriteByte(0x01)
		} else {
			buf.WriteByte(0x00)
		}
	case string:
		if len(v) > 0xffff {
			return errors.Wrapf(ErrUnsupportedType, "string of %d bytes needs the long-string type", len(v))
		}
		buf.WriteByte(amfString)
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], uint16(len(v)))
		buf.Write(b[:])
		buf.WriteString(v)
	case *Object:
		buf.WriteByte(amfObject)
		if err := amfEncodePairs(buf, v.m); err != nil {
			return err
		}
	case *EcmaArray:
		buf.WriteByte(amfEcmaArray)
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(v.Len()))
		buf.Write(b[:])
		if err := amfEncodePairs(buf, v.m); err != nil {
			return err
		}
	case nil:
		buf.WriteByte(amfNull)
	default:
		return errors.Wrapf(ErrUnsupportedType, "cannot encode %T", value)
	}
	return nil
}

func amfEncodePairs(buf *bytes.Buffer, m *linkedhashmap.Map) error {
	it := m.Iterator()
	for it.Next() {
		key := it.Key().(string)
		if len(key) > 0xffff {
			return errors.Wrapf(ErrUnsupportedType, "key of %d bytes", len(key))
		}
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], uint16(len(key)))
		buf.Write(b[:])
		buf.WriteString(key)
		if err := amfEncode(buf, it.Value()); err != nil {
			return err
		}
	}
	// end marker: zero-length key + object-end
	buf.Write([]byte{0x00, 0x00, amfObjectEnd})
	return nil
}

// DecodeAMF decodes exactly one value from the front of buf and reports how
// many bytes it consumed. Unknown markers fail hard: substituting a null
// would desynchronize every later value in the same buffer.
func DecodeAMF(buf []byte) (interface{}, int, error) {
	if len(buf) == 0 {
		return nil, 0, errors.Wrap(ErrCodecTruncated, "empty buffer")
	}
	marker := buf[0]
	rest := buf[1:]
	switch marker {
	case amfNumber:
		if len(rest) < 8 {
			return nil, 0, errors.Wrap(ErrCodecTruncated, "number")
		}
		return math.Float64frombits(binary.BigEndian.Uint64(rest[:8])), 9, nil
	case amfBoolean:
		if len(rest) < 1 {
			return nil, 0, errors.Wrap(ErrCodecTruncated, "boolean")
		}
		return rest[0] != 0x00, 2, nil
	case amfString:
		s, n, err := amfDecodeShortString(rest)
		if err != nil {
			return nil, 0, err
		}
		return s, 1 + n, nil
	case amfObject:
		obj := NewObject()
		n, err := amfDecodePairs(rest, obj)
		if err != nil {
			return nil, 0, err
		}
		return obj, 1 + n, nil
	case amfNull:
		return nil, 1, nil
	case amfEcmaArray:
		if len(rest) < 4 {
			return nil, 0, errors.Wrap(ErrCodecTruncated, "ecma array count")
		}
		// leading element count: required on encode, ignored here
		arr := NewEcmaArray()
		n, err := amfDecodePairs(rest[4:], &arr.Object)
		if err != nil {
			return nil, 0, err
		}
		return arr, 1 + 4 + n, nil
	case amfLongString:
		return nil, 0, errors.Wrap(ErrUnsupportedType, "long string")
	default:
		return nil, 0, errors.Wrapf(ErrUnsupportedType, "marker 0x%02x", marker)
	}
}

// DecodeAMFBatch decodes values until buf is exhausted. A step that consumes
// zero bytes ends the batch rather than looping forever.
func DecodeAMFBatch(buf []byte) ([]interface{}, error) {
	var values []interface{}
	for len(buf) > 0 {
		v, n, err := DecodeAMF(buf)
		if err != nil {
			return values, err
		}
		if n == 0 {
			break
		}
		values = append(values, v)
		buf = buf[n:]
	}
	return values, nil
}

func amfDecodeShortString(buf []byte) (string, int, error) {
	if len(buf) < 2 {
		return "", 0, errors.Wrap(ErrCodecTruncated, "string length")
	}
	n := int(binary.BigEndian.Uint16(buf[:2]))
	if len(buf) < 2+n {
		return "", 0, errors.Wrapf(ErrCodecTruncated, "string of %d bytes", n)
	}
	return string(buf[2 : 2+n]), 2 + n, nil
}

func amfDecodePairs(buf []byte, into *Object) (int, error) {
	n := 0
	for {
		if len(buf[n:]) < 3 {
			return 0, errors.Wrap(ErrCodecTruncated, "object pair")
		}
		klen := int(binary.BigEndian.Uint16(buf[n : n+2]))
		if klen == 0 {
			if buf[n+2] != amfObjectEnd {
				return 0, errors.Wrapf(ErrUnsupportedType, "expected object end, got 0x%02x", buf[n+2])
			}
			return n + 3, nil
		}
		if len(buf[n+2:]) < klen {
			return 0, errors.Wrap(ErrCodecTruncated, "object key")
		}
		key := string(buf[n+2 : n+2+klen])
		v, consumed, err := DecodeAMF(buf[n+2+klen:])
		if err != nil {
			return 0, err
		}
		into.Set(key, v)
		n += 2 + klen + consumed
	}
}
