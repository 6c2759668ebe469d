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

// Package rtmp is a from-scratch RTMP client: handshake, chunk stream codec,
// AMF0 command codec, and a session state machine for connect/publish/play.
// One Session owns one socket and all of its codec state. Nothing here is
// shared at package scope.
package rtmp

const (
	DefaultProtocol string = "tcp"
	DefaultScheme   string = "rtmp"
	DefaultPort     uint16 = 1935
	DefaultApp      string = "live"

	// DefaultClientID is sent as the flashVer field of the connect command.
	// Servers use it for diagnostics only.
	DefaultClientID string = "POC/1,0,0,0"

	DefaultChunkSize     uint32 = 128
	DefaultWindowAckSize uint32 = 2500000
	DefaultReadBufferize int    = 4 * 1024
	DefaultTimeoutMS     uint32 = 10000

	// DefaultBufferLengthMS is the buffer-length hint sent before play.
	DefaultBufferLengthMS uint32 = 1000

	// Read-loop ceilings. Every loop is additionally bounded by the
	// operation deadline on the socket.
	DefaultConnectReadBudget int = 64
	DefaultStatusReadBudget  int = 32

	DefaultGenerateKeyLength int    = 20
	DefaultGenerateKeyPrefix string = "poc_"

	// StreamKeyRandomBytePool is the pool of characters to generate a stream key from
	StreamKeyRandomBytePool string = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// RTMP message type IDs.
const (
	SetChunkSizeMessageID              uint32 = 1
	AbortMessageID                     uint32 = 2
	AcknowledgementMessageID           uint32 = 3
	UserControlMessageID               uint32 = 4
	WindowAcknowledgementSizeMessageID uint32 = 5
	SetPeerBandwidthMessageID          uint32 = 6
	AudioMessageID                     uint32 = 8
	VideoMessageID                     uint32 = 9
	DataMessageAMF3ID                  uint32 = 15
	SharedObjectMessageAMF3ID          uint32 = 16
	CommandMessageAMF3ID               uint32 = 17
	DataMessageAMF0ID                  uint32 = 18
	SharedObjectMessageAMF0ID          uint32 = 19
	CommandMessageAMF0ID               uint32 = 20
	AggregateMessageID                 uint32 = 22
)

// User control event types.
const (
	EventStreamBegin      uint16 = 0
	EventStreamEOF        uint16 = 1
	EventStreamDry        uint16 = 2
	EventSetBufferLength  uint16 = 3
	EventStreamIsRecorded uint16 = 4
	EventPingRequest      uint16 = 6
	EventPingResponse     uint16 = 7
)

// NetConnection / NetStream commands.
const (
	CommandConnect      string = "connect"
	CommandCreateStream string = "createStream"
	CommandPublish      string = "publish"
	CommandPlay         string = "play"
	CommandDeleteStream string = "deleteStream"

	CommandResult   string = "_result"
	CommandError    string = "_error"
	CommandOnStatus string = "onStatus"

	CommandOnMetaData   string = "onMetaData"
	CommandSetDataFrame string = "@setDataFrame"
)

// Well-known onStatus codes and connect object keys.
const (
	CodeConnectSuccess string = "NetConnection.Connect.Success"
	CodePublishStart   string = "NetStream.Publish.Start"
	CodePlayStart      string = "NetStream.Play.Start"

	ConnInfoKeyApp      string = "app"
	ConnInfoKeyType     string = "type"
	ConnInfoKeyFlashVer string = "flashVer"
	ConnInfoKeyTcURL    string = "tcUrl"
	ConnEventCode       string = "code"

	PublishTypeLive string = "live"
)

// MessageClass is the closed classification of an inbound message. Every
// message-type byte maps to exactly one class; bytes we do not know map to
// ClassUnknown, never to a silent fallthrough.
type MessageClass int

const (
	ClassProtocolControl MessageClass = iota
	ClassUserControl
	ClassCommand
	ClassData
	ClassSharedObject
	ClassAudio
	ClassVideo
	ClassAggregate
	ClassUnknown
)

// Classify maps a message-type byte onto its MessageClass.
func Classify(typeID uint32) MessageClass {
	switch typeID {
	case SetChunkSizeMessageID, AbortMessageID, AcknowledgementMessageID,
		WindowAcknowledgementSizeMessageID, SetPeerBandwidthMessageID:
		return ClassProtocolControl
	case UserControlMessageID:
		return ClassUserControl
	case CommandMessageAMF0ID, CommandMessageAMF3ID:
		return ClassCommand
	case DataMessageAMF0ID, DataMessageAMF3ID:
		return ClassData
	case SharedObjectMessageAMF0ID, SharedObjectMessageAMF3ID:
		return ClassSharedObject
	case AudioMessageID:
		return ClassAudio
	case VideoMessageID:
		return ClassVideo
	case AggregateMessageID:
		return ClassAggregate
	default:
		return ClassUnknown
	}
}

func typeIDString(typeID uint32) string {
	switch typeID {
	case SetChunkSizeMessageID:
		return "SetChunkSize"
	case AbortMessageID:
		return "Abort"
	case AcknowledgementMessageID:
		return "Acknowledgement"
	case UserControlMessageID:
		return "UserControl"
	case WindowAcknowledgementSizeMessageID:
		return "WindowAcknowledgementSize"
	case SetPeerBandwidthMessageID:
		return "SetPeerBandwidth"
	case AudioMessageID:
		return "Audio"
	case VideoMessageID:
		return "Video"
	case DataMessageAMF3ID:
		return "DataAMF3"
	case SharedObjectMessageAMF3ID:
		return "SharedObjectAMF3"
	case CommandMessageAMF3ID:
		return "CommandAMF3"
	case DataMessageAMF0ID:
		return "DataAMF0"
	case SharedObjectMessageAMF0ID:
		return "SharedObjectAMF0"
	case CommandMessageAMF0ID:
		return "CommandAMF0"
	case AggregateMessageID:
		return "Aggregate"
	default:
		return "Unknown"
	}
}
