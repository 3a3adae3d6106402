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

package vtn

import (
	"github.com/contiv/vtn/plugins/topology"
	"github.com/contiv/vtn/plugins/vtnrsc"
)

const (
	deviceFamily   = "device"
	hostFamily     = "host"
	resourceFamily = "resource"
)

// onDeviceEvent dispatches device event to the controller or switch handlers.
func (p *Plugin) onDeviceEvent(event *topology.DeviceEvent) {
	device := event.Device
	if device == nil {
		return
	}
	p.Log.Debugf("Device event: %v", event)
	p.countEvent(deviceFamily, event.Type.String())

	switch device.Type {
	case topology.ControllerDevice:
		switch event.Type {
		case topology.DeviceAdded:
			p.handleError("controller detection", p.onControllerDetected(device))
		case topology.DeviceAvailabilityChanged:
			if device.Available {
				p.handleError("controller detection", p.onControllerDetected(device))
			} else {
				p.handleError("controller removal", p.onControllerVanished(device))
			}
		case topology.DeviceRemoved:
			p.handleError("controller removal", p.onControllerVanished(device))
		}

	case topology.SwitchDevice:
		switch event.Type {
		case topology.DeviceAdded:
			p.handleError("switch detection", p.onOvsDetected(device))
		case topology.DeviceAvailabilityChanged:
			if device.Available {
				p.handleError("switch detection", p.onOvsDetected(device))
			} else {
				p.handleError("switch removal", p.onOvsVanished(device, false))
			}
		case topology.DeviceRemoved:
			p.handleError("switch removal", p.onOvsVanished(device, true))
		}

	default:
		p.Log.Debugf("Ignoring device %s of type %s", device.ID, device.Type)
	}
}

// onHostEvent dispatches host event. Update is handled as removal of the
// previous state followed by detection of the new one.
func (p *Plugin) onHostEvent(event *topology.HostEvent) {
	if event.Host == nil {
		return
	}
	p.Log.Debugf("Host event: %v", event)
	p.countEvent(hostFamily, event.Type.String())

	switch event.Type {
	case topology.HostAdded:
		p.handleError("host detection", p.onHostDetected(event.Host))
	case topology.HostRemoved:
		p.handleError("host removal", p.onHostVanished(event.Host))
	case topology.HostUpdated:
		prev := event.PrevHost
		if prev == nil {
			prev = event.Host
		}
		p.handleError("host removal", p.onHostVanished(prev))
		p.handleError("host detection", p.onHostDetected(event.Host))
	}
}

// onResourceEvent dispatches tenant-resource event.
func (p *Plugin) onResourceEvent(event *vtnrsc.ResourceEvent) {
	p.Log.Debugf("Resource event: %v", event)
	p.countEvent(resourceFamily, event.Type.String())

	switch event.Type {
	case vtnrsc.RouterInterfacePut:
		p.handleError("router interface detection", p.onRouterInterfaceDetected(event.RouterInterface))
	case vtnrsc.RouterInterfaceDelete:
		p.handleError("router interface removal", p.onRouterInterfaceVanished(event.RouterInterface))
	case vtnrsc.FloatingIPBind:
		p.handleError("floating IP bind", p.onFloatingIPDetected(event.FloatingIP))
	case vtnrsc.FloatingIPUnbind:
		p.handleError("floating IP unbind", p.onFloatingIPVanished(event.FloatingIP))
	case vtnrsc.VirtualPortPut:
		p.handleError("virtual port creation", p.onVirtualPortCreated(event.VirtualPort))
	case vtnrsc.VirtualPortDelete:
		p.handleError("virtual port removal", p.onVirtualPortDeleted(event.VirtualPort))
	}
}
