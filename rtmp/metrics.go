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
)

// Counters aggregates per-connection traffic totals. Each Conn owns its own
// Counters; there is no process-wide aggregate, so two sessions never see
// each other's numbers.
type Counters struct {
	PacketsRX int
	PacketsTX int
	BytesRX   int
	BytesTX   int
}

func (c Counters) String() string {
	var s string
	s += fmt.Sprintf("*************************************************************\n")
	s += fmt.Sprintf("   Packets RX :  [%d]\n", c.PacketsRX)
	s += fmt.Sprintf("   Packets TX :  [%d]\n", c.PacketsTX)
	s += fmt.Sprintf("     Bytes RX :  [%d]\n", c.BytesRX)
	s += fmt.Sprintf("     Bytes TX :  [%d]\n", c.BytesTX)
	return s
}
