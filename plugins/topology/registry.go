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
	"net"
	"sort"
	"sync"

	"github.com/ligato/cn-infra/idxmap"
	"github.com/ligato/cn-infra/idxmap/mem"
	"github.com/ligato/cn-infra/infra"
	"github.com/ligato/cn-infra/rpc/rest"
	"github.com/pkg/errors"
)

const (
	macIndex    = "mac"
	deviceIndex = "device"
)

// Registry plugin keeps devices and hosts reported into it and distributes
// change notifications.
type Registry struct {
	Deps

	sync.Mutex
	devices map[DeviceID]*Device
	ports   map[DeviceID][]*Port
	hosts   idxmap.NamedMappingRW

	deviceListeners []DeviceListener
	hostListeners   []HostListener
}

// Deps lists dependencies of the Registry plugin.
type Deps struct {
	infra.PluginDeps

	HTTPHandlers rest.HTTPHandlers /* optional */
}

// Init prepares the internal maps and registers REST handlers.
func (r *Registry) Init() error {
	r.devices = make(map[DeviceID]*Device)
	r.ports = make(map[DeviceID][]*Port)
	r.hosts = mem.NewNamedMapping(r.Log, "vtn-hosts", hostIndexFunction)
	r.registerRESTHandlers()
	return nil
}

// Close does nothing.
func (r *Registry) Close() error {
	return nil
}

func hostIndexFunction(data interface{}) map[string][]string {
	if host, ok := data.(*Host); ok {
		return map[string][]string{
			macIndex:    {NormalizeMAC(host.MAC)},
			deviceIndex: {string(host.Location.Device)},
		}
	}
	return nil
}

// WatchDevices registers listener for device changes.
func (r *Registry) WatchDevices(subscriber string, listener DeviceListener) {
	r.Lock()
	defer r.Unlock()
	r.Log.Debugf("%s watches device changes", subscriber)
	r.deviceListeners = append(r.deviceListeners, listener)
}

// WatchHosts registers listener for host changes.
func (r *Registry) WatchHosts(subscriber string, listener HostListener) {
	r.Lock()
	defer r.Unlock()
	r.Log.Debugf("%s watches host changes", subscriber)
	r.hostListeners = append(r.hostListeners, listener)
}

// GetDevices returns all known devices sorted by ID.
func (r *Registry) GetDevices() []*Device {
	r.Lock()
	defer r.Unlock()
	var devices []*Device
	for _, device := range r.devices {
		devices = append(devices, device)
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })
	return devices
}

// GetDevice returns device with the given ID.
func (r *Registry) GetDevice(id DeviceID) *Device {
	r.Lock()
	defer r.Unlock()
	return r.devices[id]
}

// GetPorts returns ports of the given device.
func (r *Registry) GetPorts(id DeviceID) []*Port {
	r.Lock()
	defer r.Unlock()
	return append([]*Port(nil), r.ports[id]...)
}

// GetHost returns host with the given ID.
func (r *Registry) GetHost(id HostID) *Host {
	if data, found := r.hosts.GetValue(string(id)); found {
		return data.(*Host)
	}
	return nil
}

// GetHosts returns all known hosts sorted by ID.
func (r *Registry) GetHosts() []*Host {
	return r.lookupHosts(r.hosts.ListAllNames())
}

// GetHostsByMAC returns hosts with the given MAC address.
func (r *Registry) GetHostsByMAC(mac string) []*Host {
	return r.lookupHosts(r.hosts.ListNames(macIndex, NormalizeMAC(mac)))
}

// GetHostsByDevice returns hosts attached to the given device.
func (r *Registry) GetHostsByDevice(id DeviceID) []*Host {
	return r.lookupHosts(r.hosts.ListNames(deviceIndex, string(id)))
}

func (r *Registry) lookupHosts(ids []string) []*Host {
	sort.Strings(ids)
	var hosts []*Host
	for _, id := range ids {
		if host := r.GetHost(HostID(id)); host != nil {
			hosts = append(hosts, host)
		}
	}
	return hosts
}

// SetHostIPs replaces the configured IP addresses of the host.
func (r *Registry) SetHostIPs(id HostID, ips []net.IP) error {
	host := r.GetHost(id)
	if host == nil {
		return errors.Errorf("host %s does not exist", id)
	}
	updated := host.Copy()
	updated.IPs = append([]net.IP(nil), ips...)
	r.hosts.Put(string(id), updated)
	r.Log.Debugf("IPs of host %s set to %v", id, ips)
	return nil
}

// AddDevice adds or replaces device together with its ports.
func (r *Registry) AddDevice(device *Device, ports []*Port) {
	r.Lock()
	_, exists := r.devices[device.ID]
	r.devices[device.ID] = device
	r.ports[device.ID] = ports
	r.Unlock()

	evType := DeviceAdded
	if exists {
		evType = DeviceAvailabilityChanged
	}
	r.notifyDevice(&DeviceEvent{Type: evType, Device: device})
}

// SetDeviceAvailable changes availability of the device.
func (r *Registry) SetDeviceAvailable(id DeviceID, available bool) error {
	r.Lock()
	device, exists := r.devices[id]
	if !exists {
		r.Unlock()
		return errors.Errorf("device %s does not exist", id)
	}
	updated := *device
	updated.Available = available
	r.devices[id] = &updated
	r.Unlock()

	r.notifyDevice(&DeviceEvent{Type: DeviceAvailabilityChanged, Device: &updated})
	return nil
}

// UpdatePorts replaces ports of the device.
func (r *Registry) UpdatePorts(id DeviceID, ports []*Port) error {
	r.Lock()
	device, exists := r.devices[id]
	if !exists {
		r.Unlock()
		return errors.Errorf("device %s does not exist", id)
	}
	r.ports[id] = ports
	r.Unlock()

	r.notifyDevice(&DeviceEvent{Type: DevicePortsUpdated, Device: device})
	return nil
}

// RemoveDevice removes the device and its ports.
func (r *Registry) RemoveDevice(id DeviceID) error {
	r.Lock()
	device, exists := r.devices[id]
	if !exists {
		r.Unlock()
		return errors.Errorf("device %s does not exist", id)
	}
	removed := *device
	removed.Available = false
	delete(r.devices, id)
	delete(r.ports, id)
	r.Unlock()

	r.notifyDevice(&DeviceEvent{Type: DeviceRemoved, Device: &removed})
	return nil
}

// AddHost adds the host, or updates it if a host with the same ID exists.
func (r *Registry) AddHost(host *Host) {
	host.MAC = NormalizeMAC(host.MAC)
	prev := r.GetHost(host.ID)
	r.hosts.Put(string(host.ID), host)
	if prev != nil {
		r.notifyHost(&HostEvent{Type: HostUpdated, Host: host, PrevHost: prev})
		return
	}
	r.notifyHost(&HostEvent{Type: HostAdded, Host: host})
}

// RemoveHost removes the host.
func (r *Registry) RemoveHost(id HostID) error {
	data, found := r.hosts.Delete(string(id))
	if !found {
		return errors.Errorf("host %s does not exist", id)
	}
	r.notifyHost(&HostEvent{Type: HostRemoved, Host: data.(*Host)})
	return nil
}

func (r *Registry) notifyDevice(event *DeviceEvent) {
	r.Lock()
	listeners := append([]DeviceListener(nil), r.deviceListeners...)
	r.Unlock()
	r.Log.Debugf("Device event: %s", event)
	for _, listener := range listeners {
		listener(event)
	}
}

func (r *Registry) notifyHost(event *HostEvent) {
	r.Lock()
	listeners := append([]HostListener(nil), r.hostListeners...)
	r.Unlock()
	r.Log.Debugf("Host event: %s", event)
	for _, listener := range listeners {
		listener(event)
	}
}
