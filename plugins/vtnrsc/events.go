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

import "fmt"

// ResourceEventType enumerates resource changes announced to watchers.
type ResourceEventType int

const (
	// RouterInterfacePut is announced when a subnet is attached to a router.
	RouterInterfacePut ResourceEventType = iota
	// RouterInterfaceDelete is announced when a subnet is detached from a router.
	RouterInterfaceDelete
	// FloatingIPBind is announced when a floating IP is associated with a port.
	FloatingIPBind
	// FloatingIPUnbind is announced when a floating IP is disassociated.
	FloatingIPUnbind
	// VirtualPortPut is announced when a virtual port is created or updated.
	VirtualPortPut
	// VirtualPortDelete is announced when a virtual port is removed.
	VirtualPortDelete
)

// String converts ResourceEventType into a human-readable string.
func (t ResourceEventType) String() string {
	switch t {
	case RouterInterfacePut:
		return "router-interface-put"
	case RouterInterfaceDelete:
		return "router-interface-delete"
	case FloatingIPBind:
		return "floating-ip-bind"
	case FloatingIPUnbind:
		return "floating-ip-unbind"
	case VirtualPortPut:
		return "virtual-port-put"
	case VirtualPortDelete:
		return "virtual-port-delete"
	}
	return "unknown"
}

// ResourceEvent carries exactly one of the payloads, selected by Type.
type ResourceEvent struct {
	Type            ResourceEventType
	RouterInterface *RouterInterface
	FloatingIP      *FloatingIP
	VirtualPort     *VirtualPort
}

// String returns human-readable representation of the event.
func (ev *ResourceEvent) String() string {
	switch ev.Type {
	case RouterInterfacePut, RouterInterfaceDelete:
		return fmt.Sprintf("%s %s", ev.Type, ev.RouterInterface)
	case FloatingIPBind, FloatingIPUnbind:
		return fmt.Sprintf("%s %s", ev.Type, ev.FloatingIP)
	}
	if ev.VirtualPort != nil {
		return fmt.Sprintf("%s %s", ev.Type, ev.VirtualPort.ID)
	}
	return ev.Type.String()
}

// ResourceListener is called for every resource event.
type ResourceListener func(event *ResourceEvent)
