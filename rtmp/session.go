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
	"net"
	"sort"
	"time"

	"github.com/kris-nova/logger"
	"github.com/pkg/errors"
)

// SessionState is a stop on the session's one-way trip through an operation.
type SessionState int

const (
	StateDisconnected SessionState = iota
	StateHandshaking
	StateAwaitingConnectResult
	StateConnected
	StateAwaitingStreamCreate
	StateStreamCreated
	StateAwaitingPublishOrPlayAck
	StateActive
	StateClosed
	StateFailed
)

func (s SessionState) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateHandshaking:
		return "Handshaking"
	case StateAwaitingConnectResult:
		return "AwaitingConnectResult"
	case StateConnected:
		return "Connected"
	case StateAwaitingStreamCreate:
		return "AwaitingStreamCreate"
	case StateStreamCreated:
		return "StreamCreated"
	case StateAwaitingPublishOrPlayAck:
		return "AwaitingPublishOrPlayAck"
	case StateActive:
		return "Active"
	case StateClosed:
		return "Closed"
	case StateFailed:
		return "Failed"
	default:
		return fmt.Sprintf("SessionState(%d)", int(s))
	}
}

// legalTransitions is the forward edge set. Closed is reachable from
// anywhere, Failed from anywhere but Closed; both are handled in transition
// rather than enumerated here.
var legalTransitions = map[SessionState][]SessionState{
	StateDisconnected:             {StateHandshaking},
	StateHandshaking:              {StateAwaitingConnectResult},
	StateAwaitingConnectResult:    {StateConnected},
	StateConnected:                {StateAwaitingStreamCreate},
	StateAwaitingStreamCreate:     {StateStreamCreated},
	StateStreamCreated:            {StateAwaitingPublishOrPlayAck},
	StateAwaitingPublishOrPlayAck: {StateActive},
}

// Request names the peer and the operation parameters. The zero value plus
// Host is usable: withDefaults fills in port, app, and timeout.
type Request struct {
	Host      string
	Port      uint16
	App       string
	TimeoutMS uint32

	// StreamKey names the stream for publish, StreamName for play.
	StreamKey  string
	StreamName string

	// MetaData, when non-empty, is sent as an onMetaData data message once
	// publishing starts.
	MetaData map[string]interface{}
}

func (r Request) withDefaults() Request {
	if r.Port == 0 {
		r.Port = DefaultPort
	}
	if r.App == "" {
		r.App = DefaultApp
	}
	if r.TimeoutMS == 0 {
		r.TimeoutMS = DefaultTimeoutMS
	}
	return r
}

func (r Request) Timeout() time.Duration {
	return time.Duration(r.TimeoutMS) * time.Millisecond
}

// TCURL is the tcUrl connect field: scheme://host:port/app.
func (r Request) TCURL() string {
	return fmt.Sprintf("%s://%s:%d/%s", DefaultScheme, r.Host, r.Port, r.App)
}

func (r Request) addr() string {
	return net.JoinHostPort(r.Host, fmt.Sprintf("%d", r.Port))
}

// ConnectOutcome reports a connect-only probe.
type ConnectOutcome struct {
	Success           bool
	HandshakeComplete bool
	ConnectTimeMS     int64
	TotalRTTMS        int64
	ConnectResultArgs []interface{}
}

// PublishOutcome reports a publish attempt. Success covers the command
// exchange; PublishStarted is only true if the peer confirmed with
// NetStream.Publish.Start before the status budget ran out.
type PublishOutcome struct {
	Success                 bool
	StreamID                uint32
	PublishStarted          bool
	ConnectResultArgs       []interface{}
	ObservedServerResponses []string
}

// PlayOutcome reports a play attempt. CapturedMetaData holds the first
// onMetaData payload seen, if any.
type PlayOutcome struct {
	Success                 bool
	StreamID                uint32
	PlayStarted             bool
	CapturedMetaData        interface{}
	ConnectResultArgs       []interface{}
	ObservedServerResponses []string
}

// Session drives one operation against one peer. Each public method owns the
// socket for its full lifetime: dial, run, and close under a single deadline
// computed up front. Sessions are single-use and not safe for concurrent use.
type Session struct {
	req   Request
	conn  *Conn
	state SessionState

	transID           float64
	handshakeDone     bool
	connectResultArgs []interface{}
	observed          []string
}

func NewSession(req Request) *Session {
	return &Session{
		req:   req.withDefaults(),
		state: StateDisconnected,
	}
}

func (s *Session) State() SessionState {
	return s.state
}

// Counters returns the connection's traffic totals, zero before dialing.
func (s *Session) Counters() Counters {
	if s.conn == nil {
		return Counters{}
	}
	return s.conn.Counters()
}

// transition moves the session forward. Closed is always legal, Failed is
// legal from anything but Closed, and anything else must be a forward edge.
func (s *Session) transition(to SessionState) error {
	if to == StateClosed || (to == StateFailed && s.state != StateClosed) {
		s.state = to
		return nil
	}
	for _, next := range legalTransitions[s.state] {
		if next == to {
			logger.Debug(rtmpMessage(fmt.Sprintf("%v -> %v", s.state, to), conn))
			s.state = to
			return nil
		}
	}
	return errors.Errorf("rtmp: session: illegal transition %v -> %v", s.state, to)
}

// teardown closes the socket and lands the session in Closed or Failed.
func (s *Session) teardown(err error) error {
	if s.conn != nil {
		s.conn.Close()
	}
	if err != nil {
		s.transition(StateFailed)
		return err
	}
	return s.transition(StateClosed)
}

// Connect dials the peer, handshakes, and exchanges the connect command.
func (s *Session) Connect() (*ConnectOutcome, error) {
	out := &ConnectOutcome{}
	start := time.Now()
	deadline := start.Add(s.req.Timeout())

	err := s.teardown(func() error {
		if err := s.connect(deadline); err != nil {
			return err
		}
		out.Success = true
		return nil
	}())

	out.HandshakeComplete = s.handshakeDone
	out.ConnectTimeMS = time.Since(start).Milliseconds()
	out.TotalRTTMS = out.ConnectTimeMS
	out.ConnectResultArgs = s.connectResultArgs
	return out, err
}

// Publish connects, creates a stream, and issues publish. A peer that
// accepts the command but never confirms with NetStream.Publish.Start still
// yields Success: plenty of servers are quiet publishers.
func (s *Session) Publish() (*PublishOutcome, error) {
	out := &PublishOutcome{}
	deadline := time.Now().Add(s.req.Timeout())

	err := s.teardown(func() error {
		if err := s.connect(deadline); err != nil {
			return err
		}
		streamID, err := s.createStream()
		if err != nil {
			return err
		}
		out.StreamID = streamID

		logger.Debug(rtmpMessage(fmt.Sprintf("publish %s", s.req.StreamKey), pub))
		s.transID++
		if err := s.writeCommand(3, streamID, CommandPublish, s.transID, nil, s.req.StreamKey, PublishTypeLive); err != nil {
			return err
		}
		if err := s.transition(StateAwaitingPublishOrPlayAck); err != nil {
			return err
		}

		started, err := s.awaitStatus(CodePublishStart)
		if err != nil {
			return err
		}
		out.PublishStarted = started
		if started {
			if err := s.transition(StateActive); err != nil {
				return err
			}
			if len(s.req.MetaData) > 0 {
				if err := s.writeMetaData(streamID); err != nil {
					return err
				}
			}
		}
		out.Success = true
		return nil
	}())

	out.ConnectResultArgs = s.connectResultArgs
	out.ObservedServerResponses = s.observed
	return out, err
}

// Play connects, creates a stream, asks for a buffer, and issues play. Like
// Publish, a silent peer after an accepted command is still a Success.
func (s *Session) Play() (*PlayOutcome, error) {
	out := &PlayOutcome{}
	deadline := time.Now().Add(s.req.Timeout())

	err := s.teardown(func() error {
		if err := s.connect(deadline); err != nil {
			return err
		}
		streamID, err := s.createStream()
		if err != nil {
			return err
		}
		out.StreamID = streamID

		buf := s.conn.NewSetBufferLength(streamID, DefaultBufferLengthMS)
		if err := s.conn.WriteMessage(&buf); err != nil {
			return err
		}

		logger.Debug(rtmpMessage(fmt.Sprintf("play %s", s.req.StreamName), play))
		s.transID++
		if err := s.writeCommand(3, streamID, CommandPlay, s.transID, nil, s.req.StreamName, float64(-1)); err != nil {
			return err
		}
		if err := s.transition(StateAwaitingPublishOrPlayAck); err != nil {
			return err
		}

		started, meta, err := s.awaitPlayback()
		if err != nil {
			return err
		}
		out.PlayStarted = started
		out.CapturedMetaData = meta
		if started {
			if err := s.transition(StateActive); err != nil {
				return err
			}
		}
		out.Success = true
		return nil
	}())

	out.ConnectResultArgs = s.connectResultArgs
	out.ObservedServerResponses = s.observed
	return out, err
}

// connect runs dial + handshake + connect command under one deadline. The
// deadline is set once on the socket, so every read and write below it is
// bounded by the whole-operation budget.
func (s *Session) connect(deadline time.Time) error {
	logger.Debug(rtmpMessage(fmt.Sprintf("dial %s", s.req.addr()), conn))
	d := net.Dialer{Deadline: deadline}
	nc, err := d.Dial(DefaultProtocol, s.req.addr())
	if err != nil {
		if isTimeout(err) {
			return errors.Wrap(ErrTimeout, err.Error())
		}
		return errors.Wrap(err, "dial")
	}
	s.conn = NewConn(nc, DefaultReadBufferize)
	if err := nc.SetDeadline(deadline); err != nil {
		return errors.Wrap(err, "set deadline")
	}

	if err := s.transition(StateHandshaking); err != nil {
		return err
	}
	if err := s.conn.HandshakeClient(); err != nil {
		if isTimeout(err) {
			return errors.Wrap(ErrTimeout, err.Error())
		}
		return err
	}
	s.handshakeDone = true

	was := s.conn.NewWindowAckSize(DefaultWindowAckSize)
	if err := s.conn.WriteMessage(&was); err != nil {
		return err
	}

	info := NewObject().
		Set(ConnInfoKeyApp, s.req.App).
		Set(ConnInfoKeyType, "nonprivate").
		Set(ConnInfoKeyFlashVer, DefaultClientID).
		Set(ConnInfoKeyTcURL, s.req.TCURL())
	s.transID = 1
	if err := s.writeCommand(3, 0, CommandConnect, s.transID, info); err != nil {
		return err
	}
	if err := s.transition(StateAwaitingConnectResult); err != nil {
		return err
	}

	args, err := s.awaitResult(CommandConnect, s.transID, DefaultConnectReadBudget)
	if err != nil {
		return err
	}
	s.connectResultArgs = args
	logger.Debug(rtmpMessage("connect accepted", conn))
	return s.transition(StateConnected)
}

// createStream issues createStream and returns the allocated stream ID.
func (s *Session) createStream() (uint32, error) {
	s.transID++
	if err := s.writeCommand(3, 0, CommandCreateStream, s.transID, nil); err != nil {
		return 0, err
	}
	if err := s.transition(StateAwaitingStreamCreate); err != nil {
		return 0, err
	}
	args, err := s.awaitResult(CommandCreateStream, s.transID, DefaultConnectReadBudget)
	if err != nil {
		return 0, err
	}
	streamID := uint32(0)
	for _, a := range args {
		if id, ok := a.(float64); ok {
			streamID = uint32(id)
			break
		}
	}
	logger.Debug(rtmpMessage(fmt.Sprintf("stream %d created", streamID), conn))
	return streamID, s.transition(StateStreamCreated)
}

// awaitResult reads messages until a _result correlating on txid arrives.
// The loop is doubly bounded: by the read budget here and by the operation
// deadline on the socket. _error is a rejection, budget exhaustion is
// ErrNoResult, deadline expiry is ErrTimeout.
func (s *Session) awaitResult(command string, txid float64, budget int) ([]interface{}, error) {
	for i := 0; i < budget; i++ {
		cs, err := s.conn.ReadMessage()
		if err != nil {
			if isTimeout(err) {
				return nil, errors.Wrapf(ErrTimeout, "awaiting %s result", command)
			}
			return nil, err
		}
		s.observe(cs)
		switch Classify(cs.TypeID) {
		case ClassUserControl:
			if err := s.handleUserControl(cs); err != nil {
				return nil, err
			}
		case ClassCommand:
			values, err := DecodeAMFBatch(cs.Data)
			if err != nil {
				return nil, err
			}
			if len(values) < 2 {
				continue
			}
			name, _ := values[0].(string)
			id, _ := values[1].(float64)
			switch name {
			case CommandResult:
				if id == txid {
					return values[2:], nil
				}
			case CommandError:
				return nil, &RejectedError{Command: command, Args: values[2:]}
			}
		case ClassProtocolControl, ClassData, ClassSharedObject,
			ClassAudio, ClassVideo, ClassAggregate, ClassUnknown:
			// observed, nothing to correlate on
		}
	}
	return nil, errors.Wrapf(ErrNoResult, "awaiting %s result after %d messages", command, budget)
}

// awaitStatus watches for an onStatus carrying the given code. Unlike
// awaitResult, running out of patience is not an error here: the command was
// already accepted, confirmation is best effort.
func (s *Session) awaitStatus(code string) (bool, error) {
	for i := 0; i < DefaultStatusReadBudget; i++ {
		cs, err := s.conn.ReadMessage()
		if err != nil {
			if isTimeout(err) || errors.Is(err, ErrPeerClosed) {
				return false, nil
			}
			return false, err
		}
		s.observe(cs)
		switch Classify(cs.TypeID) {
		case ClassUserControl:
			if err := s.handleUserControl(cs); err != nil {
				return false, err
			}
		case ClassCommand:
			name, got, err := s.statusCode(cs)
			if err != nil {
				return false, err
			}
			if name == CommandOnStatus && got == code {
				return true, nil
			}
			if name == CommandError {
				return false, nil
			}
		case ClassProtocolControl, ClassData, ClassSharedObject,
			ClassAudio, ClassVideo, ClassAggregate, ClassUnknown:
		}
	}
	return false, nil
}

// awaitPlayback watches for play to start: an onStatus NetStream.Play.Start
// or the first audio/video payload, whichever comes first. The first
// onMetaData seen along the way is captured for the caller.
func (s *Session) awaitPlayback() (bool, interface{}, error) {
	started := false
	var meta interface{}
	for i := 0; i < DefaultStatusReadBudget; i++ {
		cs, err := s.conn.ReadMessage()
		if err != nil {
			if isTimeout(err) || errors.Is(err, ErrPeerClosed) {
				return started, meta, nil
			}
			return started, meta, err
		}
		s.observe(cs)
		switch Classify(cs.TypeID) {
		case ClassUserControl:
			if err := s.handleUserControl(cs); err != nil {
				return started, meta, err
			}
		case ClassCommand:
			name, got, err := s.statusCode(cs)
			if err != nil {
				return started, meta, err
			}
			if name == CommandOnStatus && got == CodePlayStart {
				started = true
			}
			if name == CommandError {
				return started, meta, nil
			}
		case ClassData:
			if meta == nil {
				m, err := s.decodeMetaData(cs)
				if err != nil {
					return started, meta, err
				}
				meta = m
			}
		case ClassAudio, ClassVideo:
			started = true
		case ClassProtocolControl, ClassSharedObject, ClassAggregate, ClassUnknown:
		}
		if started && meta != nil {
			return started, meta, nil
		}
	}
	return started, meta, nil
}

// statusCode decodes a command message and, for onStatus, extracts the code
// field from the info object.
func (s *Session) statusCode(cs *ChunkStream) (string, string, error) {
	values, err := DecodeAMFBatch(cs.Data)
	if err != nil {
		return "", "", err
	}
	if len(values) == 0 {
		return "", "", nil
	}
	name, _ := values[0].(string)
	if name != CommandOnStatus {
		return name, "", nil
	}
	for _, v := range values[1:] {
		obj, ok := v.(*Object)
		if !ok {
			continue
		}
		if code, ok := obj.Get(ConnEventCode); ok {
			got, _ := code.(string)
			return name, got, nil
		}
	}
	return name, "", nil
}

// handleUserControl answers ping requests in place; other events are only
// logged. Keeping pings alive matters because long status waits otherwise
// look idle to the peer.
func (s *Session) handleUserControl(cs *ChunkStream) error {
	if len(cs.Data) < 2 {
		return nil
	}
	event := uint16(cs.Data[0])<<8 | uint16(cs.Data[1])
	if event != EventPingRequest {
		return nil
	}
	logger.Debug(rtmpMessage("ping", ack))
	pong := s.conn.NewPingResponse(cs.Data[2:])
	if err := s.conn.WriteMessage(&pong); err != nil {
		return err
	}
	return s.conn.Flush()
}

// observe records a one-line description of an inbound message so outcomes
// can report what the peer actually said.
func (s *Session) observe(cs *ChunkStream) {
	desc := typeIDString(cs.TypeID)
	if Classify(cs.TypeID) == ClassCommand {
		if values, err := DecodeAMFBatch(cs.Data); err == nil && len(values) > 0 {
			if name, ok := values[0].(string); ok {
				desc = name
				if _, code, err := s.statusCode(cs); err == nil && code != "" {
					desc = fmt.Sprintf("%s %s", name, code)
				}
			}
		}
	}
	s.observed = append(s.observed, desc)
}

// writeCommand encodes and sends one AMF0 command message.
func (s *Session) writeCommand(csid, streamID uint32, values ...interface{}) error {
	data, err := EncodeAMF(values...)
	if err != nil {
		return err
	}
	cs := ChunkStream{
		Format:   0,
		CSID:     csid,
		TypeID:   CommandMessageAMF0ID,
		StreamID: streamID,
		Data:     data,
	}
	if err := s.conn.WriteMessage(&cs); err != nil {
		return err
	}
	return s.conn.Flush()
}

// writeMetaData sends the caller's metadata as @setDataFrame/onMetaData.
// Keys are sorted so the wire bytes are deterministic for a given map.
func (s *Session) writeMetaData(streamID uint32) error {
	keys := make([]string, 0, len(s.req.MetaData))
	for k := range s.req.MetaData {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	arr := NewEcmaArray()
	for _, k := range keys {
		arr.Set(k, s.req.MetaData[k])
	}
	data, err := EncodeAMF(CommandSetDataFrame, CommandOnMetaData, arr)
	if err != nil {
		return err
	}
	cs := ChunkStream{
		Format:   0,
		CSID:     4,
		TypeID:   DataMessageAMF0ID,
		StreamID: streamID,
		Data:     data,
	}
	if err := s.conn.WriteMessage(&cs); err != nil {
		return err
	}
	return s.conn.Flush()
}

// decodeMetaData extracts the object payload from an onMetaData data message.
func (s *Session) decodeMetaData(cs *ChunkStream) (interface{}, error) {
	values, err := DecodeAMFBatch(cs.Data)
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		name, ok := v.(string)
		if ok && name == CommandOnMetaData && i+1 < len(values) {
			return values[i+1], nil
		}
	}
	return nil, nil
}
