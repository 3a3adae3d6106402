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

package topology

import (
	"fmt"
	"net"
	"strings"
)

// DeviceID uniquely identifies device.
type DeviceID string

// PortNumber identifies port of a device.
type PortNumber uint32

// HostID uniquely identifies host.
type HostID string

// DeviceType distinguishes devices the VTN cares about.
type DeviceType int

const (
	// OtherDevice is a device ignored by the VTN.
	OtherDevice DeviceType = iota
	// SwitchDevice is an OpenFlow switch.
	SwitchDevice
	// ControllerDevice is the OVSDB controller attachment point of a switch.
	ControllerDevice
)

// String converts DeviceType into a human-readable string.
func (t DeviceType) String() string {
	switch t {
	case SwitchDevice:
		return "switch"
	case ControllerDevice:
		return "controller"
	}
	return "other"
}

// Annotation keys used by VTN.
const (
	// ChannelIDKey annotates a switch with "<controller-ip>:<port>" of its control channel.
	ChannelIDKey = "channelId"
	// IPAddressKey annotates a controller device with its management IP.
	IPAddressKey = "ipaddress"
	// IfaceIDKey annotates a host with ID of its virtual port.
	IfaceIDKey = "ifaceid"
)

// Device is a switch or a controller attachment point.
type Device struct {
	ID          DeviceID          `json:"id"`
	Type        DeviceType        `json:"type"`
	Available   bool              `json:"available"`
	Annotations map[string]string `json:"annotations,omitempty"`
}

// String returns human-readable representation of the device.
func (d *Device) String() string {
	return fmt.Sprintf("<%s %s available=%t %v>", d.Type, d.ID, d.Available, d.Annotations)
}

// ControllerIP returns management IP of a controller device.
func (d *Device) ControllerIP() net.IP {
	return net.ParseIP(d.Annotations[IPAddressKey])
}

// ChannelIP returns IP of the controller the switch is connected to.
func (d *Device) ChannelIP() net.IP {
	channel := d.Annotations[ChannelIDKey]
	if idx := strings.LastIndex(channel, ":"); idx >= 0 {
		channel = channel[:idx]
	}
	return net.ParseIP(channel)
}

// Port is a port of a device.
type Port struct {
	Number  PortNumber `json:"number"`
	Name    string     `json:"name"`
	MAC     string     `json:"mac"`
	Enabled bool       `json:"enabled"`
}

// String returns human-readable representation of the port.
func (p *Port) String() string {
	return fmt.Sprintf("<port %d %s %s>", p.Number, p.Name, p.MAC)
}

// HostLocation is the attachment point of a host.
type HostLocation struct {
	Device DeviceID   `json:"device"`
	Port   PortNumber `json:"port"`
}

// Host is an end-station (VM interface) attached to a switch port.
type Host struct {
	ID          HostID            `json:"id"`
	MAC         string            `json:"mac"`
	Location    HostLocation      `json:"location"`
	IPs         []net.IP          `json:"ips,omitempty"`
	Annotations map[string]string `json:"annotations,omitempty"`
}

// String returns human-readable representation of the host.
func (h *Host) String() string {
	return fmt.Sprintf("<host %s mac=%s at %s/%d ips=%v>", h.ID, h.MAC, h.Location.Device,
		h.Location.Port, h.IPs)
}

// IfaceID returns ID of the virtual port the host represents, empty if not annotated.
func (h *Host) IfaceID() string {
	return h.Annotations[IfaceIDKey]
}

// Copy returns a deep copy of the host.
func (h *Host) Copy() *Host {
	c := *h
	c.IPs = append([]net.IP(nil), h.IPs...)
	c.Annotations = make(map[string]string, len(h.Annotations))
	for k, v := range h.Annotations {
		c.Annotations[k] = v
	}
	return &c
}

// NormalizeMAC returns the canonical lower-case form of a MAC address.
func NormalizeMAC(mac string) string {
	hw, err := net.ParseMAC(mac)
	if err != nil {
		return strings.ToLower(mac)
	}
	return hw.String()
}
