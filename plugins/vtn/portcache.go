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
	"net"

	"github.com/ligato/cn-infra/logging"

	"github.com/contiv/vtn/plugins/vtnrsc"
)

// PortSource resolves virtual ports.
type PortSource interface {
	// GetPort returns virtual port, nil if not found.
	GetPort(id vtnrsc.PortID) *vtnrsc.VirtualPort

	// GetPortByFixedIP returns virtual port owning the fixed IP.
	GetPortByFixedIP(fixedIP vtnrsc.FixedIP) *vtnrsc.VirtualPort

	// GetPortByNetworkIP returns virtual port of the network with the given IP.
	GetPortByNetworkIP(network vtnrsc.NetworkID, ip net.IP) *vtnrsc.VirtualPort
}

// fallbackResolver asks the primary source (inventory) first and the shadow
// cache second. Ports deleted from the inventory stay resolvable until
// the cleanup triggered by their deletion completes.
type fallbackResolver struct {
	log     logging.Logger
	primary PortSource
	shadow  PortSource
}

// GetPort returns virtual port, nil if neither source knows it.
func (r *fallbackResolver) GetPort(id vtnrsc.PortID) *vtnrsc.VirtualPort {
	if port := r.primary.GetPort(id); port != nil {
		return port
	}
	port := r.shadow.GetPort(id)
	if port != nil {
		r.log.Debugf("Port %s resolved from the shadow cache", id)
	}
	return port
}

// GetPortByFixedIP returns virtual port owning the fixed IP.
func (r *fallbackResolver) GetPortByFixedIP(fixedIP vtnrsc.FixedIP) *vtnrsc.VirtualPort {
	if port := r.primary.GetPortByFixedIP(fixedIP); port != nil {
		return port
	}
	port := r.shadow.GetPortByFixedIP(fixedIP)
	if port != nil {
		r.log.Debugf("Port with fixed IP %s resolved from the shadow cache", fixedIP)
	}
	return port
}

// GetPortByNetworkIP returns virtual port of the network with the given IP.
func (r *fallbackResolver) GetPortByNetworkIP(network vtnrsc.NetworkID, ip net.IP) *vtnrsc.VirtualPort {
	if port := r.primary.GetPortByNetworkIP(network, ip); port != nil {
		return port
	}
	port := r.shadow.GetPortByNetworkIP(network, ip)
	if port != nil {
		r.log.Debugf("Port %s/%s resolved from the shadow cache", network, ip)
	}
	return port
}
