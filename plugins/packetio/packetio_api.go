// Copyright (c) 2019 Cisco and/or its affiliates.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at:
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package packetio

import (
	"fmt"

	"github.com/contiv/vtn/plugins/topology"
)

// InboundPacket is a packet received by the controller from a switch.
type InboundPacket struct {
	Device topology.DeviceID   `json:"device"`
	InPort topology.PortNumber `json:"inPort"`
	Data   []byte              `json:"data"`
}

// String returns human-readable representation of the packet.
func (p *InboundPacket) String() string {
	return fmt.Sprintf("<packet-in %s/%d len=%d>", p.Device, p.InPort, len(p.Data))
}

// OutboundPacket is a packet sent by the controller out of a switch port.
type OutboundPacket struct {
	Device  topology.DeviceID   `json:"device"`
	OutPort topology.PortNumber `json:"outPort"`
	Data    []byte              `json:"data"`
}

// String returns human-readable representation of the packet.
func (p *OutboundPacket) String() string {
	return fmt.Sprintf("<packet-out %s/%d len=%d>", p.Device, p.OutPort, len(p.Data))
}

// Processor handles inbound packets.
type Processor interface {
	// Process is called for every inbound packet.
	Process(packet *InboundPacket)
}

// ProcessorFunc adapts a function to the Processor interface.
type ProcessorFunc func(packet *InboundPacket)

// Process calls f(packet).
func (f ProcessorFunc) Process(packet *InboundPacket) {
	f(packet)
}

// API defines methods provided by the packet service.
type API interface {
	// AddProcessor registers processor. Processors with lower priority
	// value are called first.
	AddProcessor(name string, priority int, processor Processor)

	// RemoveProcessor unregisters processor.
	RemoveProcessor(name string)

	// Emit sends the packet out of the given switch port.
	Emit(packet *OutboundPacket) error
}
