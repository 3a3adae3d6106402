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

import "fmt"

// DeviceEventType enumerates device changes.
type DeviceEventType int

const (
	// DeviceAdded is reported when a device appears.
	DeviceAdded DeviceEventType = iota
	// DeviceAvailabilityChanged is reported when a device goes up or down.
	DeviceAvailabilityChanged
	// DeviceRemoved is reported when a device disappears.
	DeviceRemoved
	// DevicePortsUpdated is reported when the set of ports of a device changes.
	DevicePortsUpdated
)

// String converts DeviceEventType into a human-readable string.
func (t DeviceEventType) String() string {
	switch t {
	case DeviceAdded:
		return "device-added"
	case DeviceAvailabilityChanged:
		return "device-availability-changed"
	case DeviceRemoved:
		return "device-removed"
	case DevicePortsUpdated:
		return "device-ports-updated"
	}
	return "unknown"
}

// DeviceEvent describes a device change.
type DeviceEvent struct {
	Type   DeviceEventType
	Device *Device
}

// String returns human-readable representation of the event.
func (ev *DeviceEvent) String() string {
	return fmt.Sprintf("%s %s", ev.Type, ev.Device)
}

// DeviceListener is called for every device change.
type DeviceListener func(event *DeviceEvent)

// HostEventType enumerates host changes.
type HostEventType int

const (
	// HostAdded is reported when a host is detected.
	HostAdded HostEventType = iota
	// HostRemoved is reported when a host vanishes.
	HostRemoved
	// HostUpdated is reported when a host moves or changes attributes.
	HostUpdated
)

// String converts HostEventType into a human-readable string.
func (t HostEventType) String() string {
	switch t {
	case HostAdded:
		return "host-added"
	case HostRemoved:
		return "host-removed"
	case HostUpdated:
		return "host-updated"
	}
	return "unknown"
}

// HostEvent describes a host change.
type HostEvent struct {
	Type HostEventType
	Host *Host
	// PrevHost is set for HostUpdated only.
	PrevHost *Host
}

// String returns human-readable representation of the event.
func (ev *HostEvent) String() string {
	if ev.PrevHost != nil {
		return fmt.Sprintf("%s %s (prev %s)", ev.Type, ev.Host, ev.PrevHost)
	}
	return fmt.Sprintf("%s %s", ev.Type, ev.Host)
}

// HostListener is called for every host change.
type HostListener func(event *HostEvent)
