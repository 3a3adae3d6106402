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

package vtnrsc

import (
	"fmt"
	"net"
)

// TenantID identifies tenant.
type TenantID string

// NetworkID identifies tenant network.
type NetworkID string

// SubnetID identifies subnet.
type SubnetID string

// PortID identifies virtual port.
type PortID string

// RouterID identifies router of a tenant.
type RouterID string

// FloatingIPID identifies floating IP.
type FloatingIPID string

// SegmentationID is the overlay VNI.
type SegmentationID uint32

// DHCPOwner is the device owner of DHCP server ports.
const DHCPOwner = "network:dhcp"

// TenantNetwork is a L2 overlay network of a tenant.
type TenantNetwork struct {
	ID             NetworkID      `json:"id"`
	Name           string         `json:"name"`
	TenantID       TenantID       `json:"tenantId"`
	SegmentationID SegmentationID `json:"segmentationId"`
	RouterExternal bool           `json:"routerExternal,omitempty"`
}

// Subnet is an IP subnet of a tenant network.
type Subnet struct {
	ID        SubnetID  `json:"id"`
	NetworkID NetworkID `json:"networkId"`
	TenantID  TenantID  `json:"tenantId"`
	CIDR      string    `json:"cidr"`
	GatewayIP net.IP    `json:"gatewayIp"`
}

// IPNet returns the parsed CIDR of the subnet, nil if invalid.
func (s *Subnet) IPNet() *net.IPNet {
	_, ipNet, err := net.ParseCIDR(s.CIDR)
	if err != nil {
		return nil
	}
	return ipNet
}

// FixedIP is an address of a virtual port inside a subnet.
type FixedIP struct {
	SubnetID SubnetID `json:"subnetId"`
	IP       net.IP   `json:"ip"`
}

// String returns "<subnet>/<ip>".
func (f FixedIP) String() string {
	return fmt.Sprintf("%s/%s", f.SubnetID, f.IP)
}

// VirtualPort is a port of a tenant network.
type VirtualPort struct {
	ID          PortID    `json:"id"`
	Name        string    `json:"name,omitempty"`
	TenantID    TenantID  `json:"tenantId"`
	NetworkID   NetworkID `json:"networkId"`
	MAC         string    `json:"mac"`
	FixedIPs    []FixedIP `json:"fixedIps"`
	DeviceOwner string    `json:"deviceOwner,omitempty"`
	DeviceID    string    `json:"deviceId,omitempty"`
}

// FirstFixedIP returns the first fixed IP of the port.
func (p *VirtualPort) FirstFixedIP() (FixedIP, bool) {
	if len(p.FixedIPs) == 0 {
		return FixedIP{}, false
	}
	return p.FixedIPs[0], true
}

// HasFixedIP returns true if the port has the given fixed IP.
func (p *VirtualPort) HasFixedIP(fixedIP FixedIP) bool {
	for _, f := range p.FixedIPs {
		if f.SubnetID == fixedIP.SubnetID && f.IP.Equal(fixedIP.IP) {
			return true
		}
	}
	return false
}

// HasIP returns true if the port has the given IP in any of its subnets.
func (p *VirtualPort) HasIP(ip net.IP) bool {
	for _, f := range p.FixedIPs {
		if f.IP.Equal(ip) {
			return true
		}
	}
	return false
}

// TenantRouter identifies router of a tenant.
type TenantRouter struct {
	TenantID TenantID `json:"tenantId"`
	RouterID RouterID `json:"routerId"`
}

// String returns "<tenant>/<router>", used as a key.
func (tr TenantRouter) String() string {
	return fmt.Sprintf("%s/%s", tr.TenantID, tr.RouterID)
}

// RouterInterface attaches a subnet to a tenant router.
type RouterInterface struct {
	TenantID TenantID `json:"tenantId"`
	RouterID RouterID `json:"routerId"`
	SubnetID SubnetID `json:"subnetId"`
	PortID   PortID   `json:"portId"`
}

// TenantRouter returns the router the interface belongs to.
func (ri *RouterInterface) TenantRouter() TenantRouter {
	return TenantRouter{TenantID: ri.TenantID, RouterID: ri.RouterID}
}

// String returns human-readable representation of the router interface.
func (ri *RouterInterface) String() string {
	return fmt.Sprintf("<router-interface %s subnet=%s port=%s>", ri.TenantRouter(), ri.SubnetID, ri.PortID)
}

// FloatingIP maps an external address to a fixed address of a virtual port.
type FloatingIP struct {
	ID         FloatingIPID `json:"id"`
	TenantID   TenantID     `json:"tenantId"`
	RouterID   RouterID     `json:"routerId"`
	NetworkID  NetworkID    `json:"networkId"`
	FloatingIP net.IP       `json:"floatingIp"`
	FixedIP    net.IP       `json:"fixedIp,omitempty"`
	PortID     PortID       `json:"portId,omitempty"`
	Status     string       `json:"status,omitempty"`
}

// IsBound returns true if the floating IP is associated with a fixed IP.
func (f *FloatingIP) IsBound() bool {
	return f.FixedIP != nil && f.PortID != ""
}

// TenantRouter returns the router the floating IP is associated with.
func (f *FloatingIP) TenantRouter() TenantRouter {
	return TenantRouter{TenantID: f.TenantID, RouterID: f.RouterID}
}

// String returns human-readable representation of the floating IP.
func (f *FloatingIP) String() string {
	return fmt.Sprintf("<floating-ip %s %s->%s port=%s>", f.ID, f.FloatingIP, f.FixedIP, f.PortID)
}
