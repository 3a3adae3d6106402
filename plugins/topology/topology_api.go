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

import "net"

// API defines methods provided by the Topology plugin for use by other plugins
// to query devices and hosts and to watch their changes.
type API interface {
	// GetDevices returns all known devices.
	GetDevices() []*Device

	// GetDevice returns device with the given ID, nil if not known.
	GetDevice(id DeviceID) *Device

	// GetPorts returns ports of the given device.
	GetPorts(id DeviceID) []*Port

	// GetHost returns host with the given ID, nil if not known.
	GetHost(id HostID) *Host

	// GetHosts returns all known hosts.
	GetHosts() []*Host

	// GetHostsByMAC returns hosts with the given MAC address.
	GetHostsByMAC(mac string) []*Host

	// SetHostIPs replaces the configured IP addresses of the host.
	SetHostIPs(id HostID, ips []net.IP) error

	// WatchDevices registers listener for device changes.
	WatchDevices(subscriber string, listener DeviceListener)

	// WatchHosts registers listener for host changes.
	WatchHosts(subscriber string, listener HostListener)
}
