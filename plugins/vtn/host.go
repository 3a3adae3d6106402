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
	"github.com/contiv/vtn/plugins/flowtable"
	"github.com/contiv/vtn/plugins/topology"
	"github.com/contiv/vtn/plugins/vtnrsc"
)

func vtnrscPortID(host *topology.Host) vtnrsc.PortID {
	return vtnrsc.PortID(host.IfaceID())
}

// onHostDetected programs L2 and L3 rules of a VM attached to a local switch.
func (p *Plugin) onHostDetected(host *topology.Host) error {
	device := host.Location.Device
	if !p.isMaster(device) {
		return NewNotMastered(device)
	}
	if host.IfaceID() == "" {
		p.Log.Debugf("Host %s has no %s annotation, ignoring", host.ID, topology.IfaceIDKey)
		return nil
	}
	vPort := p.ports.GetPort(vtnrscPortID(host))
	if vPort == nil {
		return NewLookupFailure("virtual port %s of host %s not found", host.IfaceID(), host.ID)
	}

	p.Inventory.AddDeviceOfOVS(vPort.ID, vPort.TenantID, string(device))
	if err := p.applyHostMonitoredL2Rules(host, vPort, flowtable.Add); err != nil {
		return err
	}
	return p.applyHostMonitoredL3Rules(host, vPort, flowtable.Add)
}

// onHostVanished mirrors onHostDetected and evicts the cached port.
func (p *Plugin) onHostVanished(host *topology.Host) error {
	device := host.Location.Device
	if !p.isMaster(device) {
		return NewNotMastered(device)
	}
	if host.IfaceID() == "" {
		p.Log.Debugf("Host %s has no %s annotation, ignoring", host.ID, topology.IfaceIDKey)
		return nil
	}
	vPort := p.ports.GetPort(vtnrscPortID(host))
	if vPort == nil {
		return NewLookupFailure("virtual port %s of host %s not found", host.IfaceID(), host.ID)
	}

	p.Inventory.RemoveDeviceOfOVS(vPort.ID, vPort.TenantID, string(device))
	err := p.applyHostMonitoredL2Rules(host, vPort, flowtable.Remove)
	if err == nil {
		err = p.applyHostMonitoredL3Rules(host, vPort, flowtable.Remove)
	}
	p.store.removeVPort(vPort.ID)
	return err
}

// applyHostMonitoredL2Rules programs switching of the host inside its network.
func (p *Plugin) applyHostMonitoredL2Rules(host *topology.Host, vPort *vtnrsc.VirtualPort,
	op flowtable.Operation) error {

	device := host.Location.Device
	fixedIP, hasIP := vPort.FirstFixedIP()
	if hasIP {
		if op == flowtable.Add {
			p.store.addHostToSubnet(fixedIP.SubnetID, host)
		} else {
			p.store.removeHostFromSubnet(fixedIP.SubnetID, host.ID)
		}
	}

	sw := p.Topology.GetDevice(device)
	if sw == nil {
		return NewLookupFailure("device %s of host %s not found", device, host.ID)
	}
	controllerIP := sw.ChannelIP()
	if controllerIP == nil {
		return NewMalformedAnnotation("switch %s has invalid %s annotation %q", sw.ID,
			topology.ChannelIDKey, sw.Annotations[topology.ChannelIDKey])
	}
	vni, err := p.networkVNI(vPort.NetworkID)
	if err != nil {
		return err
	}
	if _, prepared := p.store.getNetworkPorts(device); !prepared {
		return NewLookupFailure("switch %s has not joined the overlay", device)
	}

	tunnelPorts := p.localTunnelPorts(device)
	if op == flowtable.Add {
		p.programGroupTables(device)
	}

	if vPort.DeviceOwner == vtnrsc.DHCPOwner && hasIP {
		if subnet := p.Inventory.GetSubnet(fixedIP.SubnetID); subnet != nil && subnet.IPNet() != nil {
			for _, other := range p.masteredSwitches() {
				p.FlowTable.ProgramUserdataClassifierRules(other, subnet.IPNet(), userdataIP,
					host.MAC, vni, op)
			}
		}
	}

	inPort := host.Location.Port
	var localPorts []topology.PortNumber
	if op == flowtable.Add {
		p.store.putVPort(vPort)
		localPorts = p.store.addLocalPort(device, vPort.NetworkID, inPort)
		p.FlowTable.ProgramLocalBcastRules(device, vni, inPort, localPorts, tunnelPorts, op)
		p.FlowTable.ProgramTunnelIn(device, vni, tunnelPorts, op)
	} else {
		current := p.store.localPorts(device, vPort.NetworkID)
		if current != nil {
			p.FlowTable.ProgramLocalBcastRules(device, vni, inPort, current, tunnelPorts, op)
			localPorts = p.store.removeLocalPort(device, vPort.NetworkID, inPort)
			if len(localPorts) == 0 {
				p.FlowTable.ProgramTunnelIn(device, vni, tunnelPorts, op)
			}
		}
	}

	p.FlowTable.ProgramLocalOut(device, vni, inPort, host.MAC, op)
	// flood rules always reflect the current membership
	p.FlowTable.ProgramTunnelBcastRules(device, vni, localPorts, tunnelPorts, flowtable.Add)
	p.programTunnelOuts(controllerIP, vni, host.MAC, op)
	p.FlowTable.ProgramLocalIn(device, vni, inPort, host.MAC, op)
	return nil
}
