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

// Package simple holds clients for the small text-era TCP protocols: echo,
// discard, daytime, chargen, time, and finger. Each client is one function
// that dials, exchanges, and hangs up inside a single deadline.
package simple

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/kris-nova/logger"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Well-known ports per the protocol RFCs.
const (
	PortEcho    uint16 = 7
	PortDiscard uint16 = 9
	PortDaytime uint16 = 13
	PortChargen uint16 = 19
	PortTime    uint16 = 37
	PortFinger  uint16 = 79

	// timeEpochOffset converts RFC 868 seconds (since 1900) to Unix seconds.
	timeEpochOffset = 2208988800

	// chargen reads stop after this many bytes; the server never will.
	chargenSampleSize = 512

	DefaultTimeout = 10 * time.Second
)

// Result is the outcome of one probe against one port.
type Result struct {
	Protocol string
	Host     string
	Port     uint16
	RTTMS    int64
	Response string
}

func (r *Result) String() string {
	return fmt.Sprintf("[%s] %s:%d rtt=%dms %q", r.Protocol, r.Host, r.Port, r.RTTMS, r.Response)
}

func dial(host string, port uint16, timeout time.Duration) (net.Conn, error) {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	c, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", addr)
	}
	c.SetDeadline(time.Now().Add(timeout))
	return c, nil
}

func result(protocol, host string, port uint16, start time.Time, response string) *Result {
	r := &Result{
		Protocol: protocol,
		Host:     host,
		Port:     port,
		RTTMS:    time.Since(start).Milliseconds(),
		Response: response,
	}
	logger.Debug("[simple] %v", r)
	return r
}

// Echo sends payload and requires the same bytes back (RFC 862).
func Echo(host string, port uint16, timeout time.Duration, payload string) (*Result, error) {
	start := time.Now()
	c, err := dial(host, port, timeout)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	if _, err := c.Write([]byte(payload)); err != nil {
		return nil, errors.Wrap(err, "write")
	}
	back := make([]byte, len(payload))
	if _, err := io.ReadFull(c, back); err != nil {
		return nil, errors.Wrap(err, "read")
	}
	if !bytes.Equal(back, []byte(payload)) {
		return nil, errors.Errorf("echo mismatch: sent %q, got %q", payload, back)
	}
	return result("echo", host, port, start, string(back)), nil
}

// Discard sends payload into the void (RFC 863). Anything the peer sends
// back is a protocol violation.
func Discard(host string, port uint16, timeout time.Duration, payload string) (*Result, error) {
	start := time.Now()
	c, err := dial(host, port, timeout)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	if _, err := c.Write([]byte(payload)); err != nil {
		return nil, errors.Wrap(err, "write")
	}
	// a short read window: a correct discard server stays silent
	c.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	buf := make([]byte, 1)
	if n, _ := c.Read(buf); n > 0 {
		return nil, errors.Errorf("discard server responded with %q", buf[:n])
	}
	return result("discard", host, port, start, ""), nil
}

// Daytime reads one human-readable line (RFC 867).
func Daytime(host string, port uint16, timeout time.Duration) (*Result, error) {
	start := time.Now()
	c, err := dial(host, port, timeout)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "read")
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return nil, errors.New("daytime server sent nothing")
	}
	return result("daytime", host, port, start, line), nil
}

// Chargen samples the character stream (RFC 864) and checks the line
// discipline: 72 printable characters plus CRLF per line.
func Chargen(host string, port uint16, timeout time.Duration) (*Result, error) {
	start := time.Now()
	c, err := dial(host, port, timeout)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	buf := make([]byte, chargenSampleSize)
	n, err := io.ReadFull(c, buf)
	if err != nil && n == 0 {
		return nil, errors.Wrap(err, "read")
	}
	sample := string(buf[:n])
	for i, line := range strings.Split(sample, "\r\n") {
		// the last split is usually a partial line
		if i < strings.Count(sample, "\r\n") && len(line) != 72 {
			return nil, errors.Errorf("chargen line %d is %d chars, want 72", i, len(line))
		}
	}
	return result("chargen", host, port, start, sample), nil
}

// Time reads the 4-byte big-endian timestamp (RFC 868) and converts it from
// the 1900 epoch to a wall-clock time.
func Time(host string, port uint16, timeout time.Duration) (*Result, time.Time, error) {
	start := time.Now()
	c, err := dial(host, port, timeout)
	if err != nil {
		return nil, time.Time{}, err
	}
	defer c.Close()

	raw := make([]byte, 4)
	if _, err := io.ReadFull(c, raw); err != nil {
		return nil, time.Time{}, errors.Wrap(err, "read")
	}
	secs := int64(binary.BigEndian.Uint32(raw)) - timeEpochOffset
	t := time.Unix(secs, 0).UTC()
	return result("time", host, port, start, t.Format(time.RFC3339)), t, nil
}

// Finger sends a user query and reads the response until the peer hangs up
// (RFC 1288). An empty query asks for the login roster.
func Finger(host string, port uint16, timeout time.Duration, query string) (*Result, error) {
	start := time.Now()
	c, err := dial(host, port, timeout)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	if _, err := fmt.Fprintf(c, "%s\r\n", query); err != nil {
		return nil, errors.Wrap(err, "write")
	}
	body, err := io.ReadAll(c)
	if err != nil && len(body) == 0 {
		return nil, errors.Wrap(err, "read")
	}
	return result("finger", host, port, start, string(body)), nil
}

// ProbeAll runs every client against its well-known port on host,
// concurrently. It fails on the first protocol that fails; partial results
// for the ones that finished first are still returned.
func ProbeAll(host string, timeout time.Duration) ([]*Result, error) {
	var g errgroup.Group
	results := make([]*Result, 6)

	g.Go(func() error {
		r, err := Echo(host, PortEcho, timeout, "portofcall")
		results[0] = r
		return err
	})
	g.Go(func() error {
		r, err := Discard(host, PortDiscard, timeout, "portofcall")
		results[1] = r
		return err
	})
	g.Go(func() error {
		r, err := Daytime(host, PortDaytime, timeout)
		results[2] = r
		return err
	})
	g.Go(func() error {
		r, err := Chargen(host, PortChargen, timeout)
		results[3] = r
		return err
	})
	g.Go(func() error {
		r, _, err := Time(host, PortTime, timeout)
		results[4] = r
		return err
	})
	g.Go(func() error {
		r, err := Finger(host, PortFinger, timeout, "")
		results[5] = r
		return err
	})

	err := g.Wait()
	out := make([]*Result, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	return out, err
}
