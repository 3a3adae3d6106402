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

	"github.com/contiv/vtn/plugins/vtnrsc"
)

// onVirtualPortCreated caches the port and configures its fixed IPs on the
// matching hosts.
func (p *Plugin) onVirtualPortCreated(vPort *vtnrsc.VirtualPort) error {
	p.store.putVPort(vPort)
	for _, host := range p.Topology.GetHostsByMAC(vPort.MAC) {
		ips := append([]net.IP(nil), host.IPs...)
		for _, fixedIP := range vPort.FixedIPs {
			if !containsIP(ips, fixedIP.IP) {
				ips = append(ips, fixedIP.IP)
			}
		}
		if err := p.Topology.SetHostIPs(host.ID, ips); err != nil {
			return err
		}
	}
	return nil
}

// onVirtualPortDeleted removes fixed IPs of the port from the matching hosts.
// The cached copy stays until the host leaves.
func (p *Plugin) onVirtualPortDeleted(vPort *vtnrsc.VirtualPort) error {
	for _, host := range p.Topology.GetHostsByMAC(vPort.MAC) {
		var ips []net.IP
		for _, ip := range host.IPs {
			if !vPort.HasIP(ip) {
				ips = append(ips, ip)
			}
		}
		if err := p.Topology.SetHostIPs(host.ID, ips); err != nil {
			return err
		}
	}
	return nil
}

func containsIP(ips []net.IP, ip net.IP) bool {
	for _, i := range ips {
		if i.Equal(ip) {
			return true
		}
	}
	return false
}
