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

package driver

import (
	"encoding/binary"
	"fmt"
	"net"

	"github.com/contiv/vtn/plugins/topology"
)

const (
	// DefaultBridgeName is the name of the integration bridge.
	DefaultBridgeName = "br-int"

	// DefaultTunnelName is the name of the flow-based VXLAN tunnel port.
	DefaultTunnelName = "vxlan-0.0.0.0"

	// FlowKey marks a tunnel attribute set per packet by flow rules.
	FlowKey = "flow"
)

// TunnelType is the encapsulation of a tunnel.
type TunnelType string

// VXLAN encapsulation.
const VXLAN TunnelType = "VXLAN"

// BridgeDescription describes a bridge configured on a node.
type BridgeDescription struct {
	Name       string            `json:"name"`
	DatapathID string            `json:"datapathId"`
	DeviceID   topology.DeviceID `json:"deviceId"`
	ExPortName string            `json:"exPortName,omitempty"`
}

// TunnelDescription describes a tunnel port configured on a bridge.
type TunnelDescription struct {
	Name     string     `json:"name"`
	Type     TunnelType `json:"type"`
	Bridge   string     `json:"bridge"`
	LocalIP  net.IP     `json:"localIp"`
	RemoteIP string     `json:"remoteIp"`
	Key      string     `json:"key"`
}

// API defines methods provided by the driver plugin.
type API interface {
	// CreateHandler returns handle of the given controller device.
	CreateHandler(controller topology.DeviceID) Handle
}

// Handle configures one node.
type Handle interface {
	// AddBridge creates or updates the bridge.
	AddBridge(bridge *BridgeDescription) error

	// GetBridges returns bridges configured on the node.
	GetBridges() []*BridgeDescription

	// AddTunnel creates or updates the tunnel port.
	AddTunnel(tunnel *TunnelDescription) error

	// RemoveTunnel removes the tunnel port with the given name.
	RemoveTunnel(name string) error

	// GetTunnels returns tunnels configured on the node.
	GetTunnels() []*TunnelDescription

	// GetPorts returns ports of the integration bridge.
	GetPorts() []*topology.Port
}

// DatapathID derives datapath ID of the integration bridge from the
// management IP of its node.
func DatapathID(ip net.IP) string {
	ip4 := ip.To4()
	if ip4 == nil {
		return ""
	}
	return fmt.Sprintf("%016x", uint64(binary.BigEndian.Uint32(ip4)))
}

// DatapathDeviceID returns ID of the switch device of the integration bridge
// of the node with the given IP.
func DatapathDeviceID(ip net.IP) topology.DeviceID {
	return topology.DeviceID("of:" + DatapathID(ip))
}

// NewVXLANTunnel returns the flow-based VXLAN tunnel sourced from the given IP.
func NewVXLANTunnel(localIP net.IP) *TunnelDescription {
	return &TunnelDescription{
		Name:     DefaultTunnelName,
		Type:     VXLAN,
		Bridge:   DefaultBridgeName,
		LocalIP:  localIP,
		RemoteIP: FlowKey,
		Key:      FlowKey,
	}
}
