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

import "net"

// API defines methods provided by the Inventory plugin for lookups
// of tenant resources.
type API interface {
	// GetNetwork returns tenant network, nil if not found.
	GetNetwork(id NetworkID) *TenantNetwork

	// GetSubnet returns subnet, nil if not found.
	GetSubnet(id SubnetID) *Subnet

	// GetPort returns virtual port, nil if not found.
	GetPort(id PortID) *VirtualPort

	// GetPortByFixedIP returns virtual port owning the fixed IP.
	GetPortByFixedIP(fixedIP FixedIP) *VirtualPort

	// GetPortByNetworkIP returns virtual port of the network with the given IP.
	GetPortByNetworkIP(networkID NetworkID, ip net.IP) *VirtualPort

	// GetPortsByDeviceID returns virtual ports with the given device ID.
	GetPortsByDeviceID(deviceID string) []*VirtualPort

	// GetPorts returns all virtual ports.
	GetPorts() []*VirtualPort

	// GetRouterInterfaces returns all router interfaces.
	GetRouterInterfaces() []*RouterInterface

	// GetFloatingIPs returns all floating IPs.
	GetFloatingIPs() []*FloatingIP

	// GetL3VNI returns the L3 VNI of the tenant router, allocating one if needed.
	GetL3VNI(tenantRouter TenantRouter) SegmentationID

	// AddDeviceOfOVS records that a VM port of the tenant is attached to the OVS device.
	AddDeviceOfOVS(portID PortID, tenantID TenantID, deviceID string)

	// RemoveDeviceOfOVS removes the VM port from the OVS device of the tenant.
	// The device is forgotten with the last port of the tenant.
	RemoveDeviceOfOVS(portID PortID, tenantID TenantID, deviceID string)

	// GetDevicesOfOVS returns OVS devices hosting VMs of the tenant, used
	// to place service function forwarders and classifiers.
	GetDevicesOfOVS(tenantID TenantID) []string

	// Watch registers listener for resource events.
	Watch(subscriber string, listener ResourceListener)
}
