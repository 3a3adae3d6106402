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

import "sort"

// AddDeviceOfOVS records that a VM port of the tenant is attached to the OVS device.
func (inv *Inventory) AddDeviceOfOVS(portID PortID, tenantID TenantID, deviceID string) {
	inv.Lock()
	defer inv.Unlock()
	devices, exists := inv.ovsDevices[tenantID]
	if !exists {
		devices = make(map[string]map[PortID]struct{})
		inv.ovsDevices[tenantID] = devices
	}
	ports, exists := devices[deviceID]
	if !exists {
		ports = make(map[PortID]struct{})
		devices[deviceID] = ports
		inv.Log.Debugf("Device %s now hosts VMs of tenant %s", deviceID, tenantID)
	}
	ports[portID] = struct{}{}
}

// RemoveDeviceOfOVS removes the VM port from the OVS device of the tenant.
func (inv *Inventory) RemoveDeviceOfOVS(portID PortID, tenantID TenantID, deviceID string) {
	inv.Lock()
	defer inv.Unlock()
	devices := inv.ovsDevices[tenantID]
	ports, exists := devices[deviceID]
	if !exists {
		return
	}
	delete(ports, portID)
	if len(ports) == 0 {
		delete(devices, deviceID)
		inv.Log.Debugf("Device %s no longer hosts VMs of tenant %s", deviceID, tenantID)
	}
	if len(devices) == 0 {
		delete(inv.ovsDevices, tenantID)
	}
}

// GetDevicesOfOVS returns sorted OVS devices hosting VMs of the tenant.
func (inv *Inventory) GetDevicesOfOVS(tenantID TenantID) []string {
	inv.Lock()
	defer inv.Unlock()
	var devices []string
	for deviceID := range inv.ovsDevices[tenantID] {
		devices = append(devices, deviceID)
	}
	sort.Strings(devices)
	return devices
}
