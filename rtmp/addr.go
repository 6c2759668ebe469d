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
	"math/rand"
	"net"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
)

// dnsCache remembers resolved hosts across probes. A catalog run can hit the
// same host hundreds of times; one lookup per host is plenty.
var dnsCache, _ = lru.New(128)

// URLAddr is a parsed RTMP address. It accepts the loose strings humans type
// on a command line and normalizes them to host, port, app, and key:
//
//	rtmp://host:1935/app/key
//	host:1935/app/key
//	host/app
//	host
type URLAddr struct {
	raw  string
	host string
	port uint16
	app  string
	key  string
}

func ParseURLAddr(raw string) (*URLAddr, error) {
	a := &URLAddr{
		raw:  raw,
		port: DefaultPort,
		app:  DefaultApp,
	}

	path := strings.TrimPrefix(raw, fmt.Sprintf("%s://", DefaultScheme))
	if path == "" {
		return nil, errors.Errorf("empty rtmp address: %q", raw)
	}

	parts := strings.Split(path, "/")
	switch len(parts) {
	case 1:
		a.host = parts[0]
	case 2:
		a.host = parts[0]
		a.app = parts[1]
	case 3:
		a.host = parts[0]
		a.app = parts[1]
		a.key = parts[2]
	default:
		return nil, errors.Errorf("too many path segments: %q", raw)
	}

	if strings.Contains(a.host, ":") {
		host, port, err := net.SplitHostPort(a.host)
		if err != nil {
			return nil, errors.Wrapf(err, "split host port %q", a.host)
		}
		p, err := strconv.ParseUint(port, 10, 16)
		if err != nil {
			return nil, errors.Wrapf(err, "port %q", port)
		}
		a.host = host
		a.port = uint16(p)
	}
	if a.host == "" {
		return nil, errors.Errorf("no host in rtmp address: %q", raw)
	}
	if a.key == "" {
		a.key = generateKey()
	}
	return a, nil
}

func (a *URLAddr) Host() string {
	return a.host
}

func (a *URLAddr) Port() uint16 {
	return a.port
}

func (a *URLAddr) App() string {
	return a.app
}

// Key returns the stream key. A key is generated at parse time if the
// address did not carry one.
func (a *URLAddr) Key() string {
	return a.key
}

// SafeURL is the stream URL without the key, for logging.
//
//	rtmp://localhost:1935/live/[obfuscated]
func (a *URLAddr) SafeURL() string {
	return fmt.Sprintf("%s://%s:%d/%s", DefaultScheme, a.host, a.port, a.app)
}

// StreamURL is the full resolvable URL that can be published or played.
//
//	rtmp://localhost:1935/live/key
func (a *URLAddr) StreamURL() string {
	return fmt.Sprintf("%s://%s:%d/%s/%s", DefaultScheme, a.host, a.port, a.app, a.key)
}

// Resolve looks the host up and returns a TCP address, consulting the
// package DNS cache first. Loopback names never hit the resolver.
func (a *URLAddr) Resolve() (*net.TCPAddr, error) {
	if ip := net.ParseIP(a.host); ip != nil {
		return &net.TCPAddr{IP: ip, Port: int(a.port)}, nil
	}
	if a.host == "localhost" {
		return &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: int(a.port)}, nil
	}
	if cached, ok := dnsCache.Get(a.host); ok {
		return &net.TCPAddr{IP: cached.(net.IP), Port: int(a.port)}, nil
	}
	ips, err := net.LookupIP(a.host)
	if err != nil {
		return nil, errors.Wrapf(err, "dns lookup %s", a.host)
	}
	if len(ips) == 0 {
		return nil, errors.Errorf("dns lookup %s: no records", a.host)
	}
	dnsCache.Add(a.host, ips[0])
	return &net.TCPAddr{IP: ips[0], Port: int(a.port)}, nil
}

// Request builds a session request from the parsed address. The key doubles
// as the play stream name.
func (a *URLAddr) Request(timeoutMS uint32) Request {
	return Request{
		Host:       a.host,
		Port:       a.port,
		App:        a.app,
		TimeoutMS:  timeoutMS,
		StreamKey:  a.key,
		StreamName: a.key,
	}
}

// generateKey makes a random stream key for addresses that omit one.
func generateKey() string {
	b := make([]byte, DefaultGenerateKeyLength)
	for i := range b {
		b[i] = StreamKeyRandomBytePool[rand.Intn(len(StreamKeyRandomBytePool))]
	}
	return fmt.Sprintf("%s%s", DefaultGenerateKeyPrefix, string(b))
}
