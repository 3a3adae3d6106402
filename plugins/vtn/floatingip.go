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

	"github.com/contiv/vtn/plugins/flowtable"
	"github.com/contiv/vtn/plugins/topology"
	"github.com/contiv/vtn/plugins/vtnrsc"
)

// onFloatingIPDetected records the binding and programs NAT of the bound VM.
func (p *Plugin) onFloatingIPDetected(fip *vtnrsc.FloatingIP) error {
	p.store.putFloatingIP(fip)
	return p.programFloatingIPEvent(fip, flowtable.Add)
}

// onFloatingIPVanished removes NAT of the previously bound VM.
func (p *Plugin) onFloatingIPVanished(fip *vtnrsc.FloatingIP) error {
	err := p.programFloatingIPEvent(fip, flowtable.Remove)
	p.store.removeFloatingIP(fip.FloatingIP)
	return err
}

func (p *Plugin) programFloatingIPEvent(fip *vtnrsc.FloatingIP, op flowtable.Operation) error {
	vmPort := p.ports.GetPort(fip.PortID)
	if vmPort == nil {
		return NewLookupFailure("port %s bound to floating IP %s not found", fip.PortID, fip.FloatingIP)
	}
	fipPort := p.ports.GetPortByNetworkIP(fip.NetworkID, fip.FloatingIP)
	if fipPort == nil {
		return NewLookupFailure("port of floating IP %s not found", fip.FloatingIP)
	}
	host := p.hostOfPort(vmPort)
	if host == nil {
		return NewLookupFailure("host of port %s not found", vmPort.ID)
	}

	device := host.Location.Device
	if op == flowtable.Add {
		p.store.putVPort(fipPort)
		return p.applyNorthSouthL3Flows(device, false, host, vmPort, fipPort, fip, op)
	}
	err := p.applyNorthSouthL3Flows(device, false, host, vmPort, fipPort, fip, op)
	p.store.removeVPort(fipPort.ID)
	return err
}

// applyNorthSouthL3Flows programs DNAT, SNAT and external forwarding of a
// floating IP on the device of its VM. hostFlag is set when triggered by
// the host itself rather than by the binding.
func (p *Plugin) applyNorthSouthL3Flows(device topology.DeviceID, hostFlag bool, host *topology.Host,
	vmPort, fipPort *vtnrsc.VirtualPort, fip *vtnrsc.FloatingIP, op flowtable.Operation) error {

	if !p.isMaster(device) {
		return NewNotMastered(device)
	}
	exPort := p.store.getExPort(device)
	if exPort == nil {
		return NewConfigurationMissing("no external port on device %s", device)
	}
	tr := fip.TenantRouter()
	l3vni, err := p.l3VNI(tr)
	if err != nil {
		return err
	}
	gwIP, gwMAC, err := p.gateway(vmPort)
	if err != nil {
		return err
	}
	vmVNI, err := p.networkVNI(vmPort.NetworkID)
	if err != nil {
		return err
	}
	fipVNI, err := p.networkVNI(fipPort.NetworkID)
	if err != nil {
		return err
	}

	// downlink
	p.FlowTable.ProgramL3ExPortClassifierRules(device, exPort.Number, fip.FloatingIP, op)
	p.FlowTable.ProgramRules(device, fip.FloatingIP, exPort.MAC, fip.FixedIP, l3vni, op)
	if egress := p.egressSubnet(fip, vmPort); egress != nil && egress.IPNet() != nil {
		p.FlowTable.ProgramSnatSameSegmentUploadControllerRules(device, l3vni, fip.FixedIP,
			fip.FloatingIP, egress.IPNet(), op)
	}

	// uplink
	if op == flowtable.Add {
		p.sendNorthSouthL3Flows(device, host, vmPort, fip, gwIP, gwMAC, l3vni, vmVNI, op)
		p.FlowTable.ProgramExternalOut(device, fipVNI, exPort.Number, exPort.MAC, op)
		return nil
	}
	if hostFlag || !p.store.isRouterActive(tr) {
		p.sendNorthSouthL3Flows(device, host, vmPort, fip, gwIP, gwMAC, l3vni, vmVNI, op)
	}
	if !p.externalOutInUse(device, fip) {
		p.FlowTable.ProgramExternalOut(device, fipVNI, exPort.Number, exPort.MAC, op)
	}
	p.removeRulesInSnat(device, fip.FixedIP)
	return nil
}

func (p *Plugin) sendNorthSouthL3Flows(device topology.DeviceID, host *topology.Host,
	vmPort *vtnrsc.VirtualPort, fip *vtnrsc.FloatingIP, gwIP net.IP, gwMAC string,
	l3vni, vmVNI uint32, op flowtable.Operation) {

	p.FlowTable.ProgramRouteRules(device, l3vni, fip.FixedIP, vmVNI, gwMAC, vmPort.MAC, op)
	p.FlowTable.ProgramL3InPortClassifierRules(device, host.Location.Port, host.MAC, gwMAC, l3vni, op)
	p.FlowTable.ProgramArpClassifierRules(device, host.Location.Port, gwIP, vmVNI, op)
}

// externalOutInUse returns true if another floating IP is bound to a VM on the device.
func (p *Plugin) externalOutInUse(device topology.DeviceID, released *vtnrsc.FloatingIP) bool {
	for _, fip := range p.Inventory.GetFloatingIPs() {
		if fip.ID == released.ID || !fip.IsBound() {
			continue
		}
		if p.deviceOfFloatingIP(fip) == device {
			return true
		}
	}
	return false
}

// deviceOfFloatingIP returns device of the VM the floating IP is bound to.
func (p *Plugin) deviceOfFloatingIP(fip *vtnrsc.FloatingIP) topology.DeviceID {
	vmPort := p.ports.GetPort(fip.PortID)
	if vmPort == nil {
		return ""
	}
	host := p.hostOfPort(vmPort)
	if host == nil {
		return ""
	}
	return host.Location.Device
}

// egressSubnet returns subnet of the external network the floating IP
// belongs to, falling back to the subnet of the VM.
func (p *Plugin) egressSubnet(fip *vtnrsc.FloatingIP, vmPort *vtnrsc.VirtualPort) *vtnrsc.Subnet {
	candidates := p.Inventory.GetPortsByDeviceID(string(fip.ID))
	if fipPort := p.ports.GetPortByNetworkIP(fip.NetworkID, fip.FloatingIP); fipPort != nil {
		candidates = append([]*vtnrsc.VirtualPort{fipPort}, candidates...)
	}
	for _, port := range candidates {
		for _, fixedIP := range port.FixedIPs {
			if !fixedIP.IP.Equal(fip.FloatingIP) {
				continue
			}
			if subnet := p.Inventory.GetSubnet(fixedIP.SubnetID); subnet != nil && subnet.IPNet() != nil {
				return subnet
			}
		}
	}
	return p.fixedSubnet(vmPort)
}

// removeRulesInSnat removes all SNAT rules translating the fixed IP.
func (p *Plugin) removeRulesInSnat(device topology.DeviceID, fixedIP net.IP) {
	for _, entry := range p.FlowTable.GetFlowEntries(device, flowtable.SnatTable) {
		if entry.Priority <= flowtable.SnatDefaultRulePriority {
			continue
		}
		_, srcNet, err := net.ParseCIDR(entry.Selector[flowtable.IPv4Src])
		if err != nil || !srcNet.Contains(fixedIP) {
			continue
		}
		p.Log.Debugf("Removing SNAT rule %v", entry)
		p.FlowTable.RemoveSnatRules(device, entry)
	}
}
