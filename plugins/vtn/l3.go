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

/***************************** Router interfaces ******************************/

// onRouterInterfaceDetected enables east-west routing through the new interface.
func (p *Plugin) onRouterInterfaceDetected(ri *vtnrsc.RouterInterface) error {
	gwPort := p.ports.GetPort(ri.PortID)
	if gwPort == nil {
		return NewLookupFailure("gateway port %s of %v not found", ri.PortID, ri)
	}
	p.store.putVPort(gwPort)

	tr := ri.TenantRouter()
	interfaces := p.routerInterfacesOf(tr)
	if p.store.isRouterActive(tr) {
		if err := p.programRouterInterface(ri, flowtable.Add); err != nil {
			return err
		}
	} else if len(interfaces) >= subnetNum {
		if err := p.programInterfacesSet(interfaces, flowtable.Add); err != nil {
			return err
		}
	}
	return p.applyL3ArpFlows("", gwPort, flowtable.Add)
}

// onRouterInterfaceVanished removes routing through the deleted interface
// and deactivates the router when less than two subnets remain live.
func (p *Plugin) onRouterInterfaceVanished(ri *vtnrsc.RouterInterface) error {
	tr := ri.TenantRouter()
	if p.store.isRouterActive(tr) {
		if err := p.programRouterInterface(ri, flowtable.Remove); err != nil {
			return err
		}
		remaining := p.routerInterfacesOf(tr)
		if p.liveSubnets(remaining) < subnetNum {
			p.deactivateRouter(tr, remaining)
		}
	}

	gwPort := p.ports.GetPort(ri.PortID)
	if gwPort == nil {
		return NewLookupFailure("gateway port %s of %v not found", ri.PortID, ri)
	}
	p.store.removeVPort(gwPort.ID)
	return p.applyL3ArpFlows("", gwPort, flowtable.Remove)
}

// programInterfacesSet activates the router once at least two of its
// subnets have live hosts.
func (p *Plugin) programInterfacesSet(interfaces []*vtnrsc.RouterInterface, op flowtable.Operation) error {
	if len(interfaces) == 0 || p.liveSubnets(interfaces) < subnetNum {
		return nil
	}
	tr := interfaces[0].TenantRouter()
	p.store.setRouterActive(tr)
	p.Log.Infof("Router %s activated", tr)
	for _, ri := range interfaces {
		if err := p.programRouterInterface(ri, op); err != nil {
			return err
		}
	}
	return nil
}

func (p *Plugin) deactivateRouter(tr vtnrsc.TenantRouter, interfaces []*vtnrsc.RouterInterface) {
	p.store.clearRouterActive(tr)
	p.Log.Infof("Router %s deactivated", tr)
	for _, ri := range interfaces {
		p.handleError("router interface removal", p.programRouterInterface(ri, flowtable.Remove))
	}
}

// liveSubnets counts interfaces whose subnet has at least one host.
func (p *Plugin) liveSubnets(interfaces []*vtnrsc.RouterInterface) int {
	var count int
	for _, ri := range interfaces {
		if p.store.subnetHasHosts(ri.SubnetID) {
			count++
		}
	}
	return count
}

// programRouterInterface applies east-west flows of every host of the interface's subnet.
func (p *Plugin) programRouterInterface(ri *vtnrsc.RouterInterface, op flowtable.Operation) error {
	l3vni, err := p.l3VNI(ri.TenantRouter())
	if err != nil {
		return err
	}
	for _, host := range p.store.subnetHosts(ri.SubnetID) {
		p.handleError("east-west flows", p.applyEastWestL3Flows(host, l3vni, op))
	}
	return nil
}

/******************************** East-west ***********************************/

// gateway returns IP and MAC of the gateway of the port's first subnet.
func (p *Plugin) gateway(vPort *vtnrsc.VirtualPort) (net.IP, string, error) {
	fixedIP, ok := vPort.FirstFixedIP()
	if !ok {
		return nil, "", NewLookupFailure("port %s has no fixed IP", vPort.ID)
	}
	subnet := p.Inventory.GetSubnet(fixedIP.SubnetID)
	if subnet == nil {
		return nil, "", NewLookupFailure("subnet %s not found", fixedIP.SubnetID)
	}
	gwPort := p.ports.GetPortByFixedIP(vtnrsc.FixedIP{SubnetID: subnet.ID, IP: subnet.GatewayIP})
	if gwPort == nil {
		return nil, "", NewLookupFailure("gateway port of subnet %s not found", subnet.ID)
	}
	return subnet.GatewayIP, gwPort.MAC, nil
}

// applyEastWestL3Flows routes traffic of the host between subnets of its router.
func (p *Plugin) applyEastWestL3Flows(host *topology.Host, l3vni uint32, op flowtable.Operation) error {
	if !p.isMaster(host.Location.Device) {
		return NewNotMastered(host.Location.Device)
	}
	vPort := p.ports.GetPort(vtnrscPortID(host))
	if vPort == nil {
		return NewLookupFailure("virtual port %s of host %s not found", host.IfaceID(), host.ID)
	}
	fixedIP, _ := vPort.FirstFixedIP()
	gwIP, gwMAC, err := p.gateway(vPort)
	if err != nil {
		return err
	}
	vni, err := p.networkVNI(vPort.NetworkID)
	if err != nil {
		return err
	}
	if op == flowtable.Remove && p.boundFloatingIP(vPort.TenantID, fixedIP.IP) != nil {
		// north-south owns these rules
		return nil
	}

	device := host.Location.Device
	p.FlowTable.ProgramL3InPortClassifierRules(device, host.Location.Port, host.MAC, gwMAC, l3vni, op)
	p.FlowTable.ProgramArpClassifierRules(device, host.Location.Port, gwIP, vni, op)
	for _, sw := range p.masteredSwitches() {
		p.FlowTable.ProgramRouteRules(sw, l3vni, fixedIP.IP, vni, gwMAC, host.MAC, op)
	}
	return nil
}

// boundFloatingIP returns floating IP of the tenant bound to the fixed IP.
func (p *Plugin) boundFloatingIP(tenant vtnrsc.TenantID, fixedIP net.IP) *vtnrsc.FloatingIP {
	if fixedIP == nil {
		return nil
	}
	for _, fip := range p.Inventory.GetFloatingIPs() {
		if fip.TenantID == tenant && fip.FixedIP != nil && fip.FixedIP.Equal(fixedIP) {
			return fip
		}
	}
	return nil
}

/********************************* Gateway ARP ********************************/

// applyL3ArpFlows answers ARP for the gateway on the given switch, or on all
// mastered switches if device is empty.
func (p *Plugin) applyL3ArpFlows(device topology.DeviceID, gwPort *vtnrsc.VirtualPort,
	op flowtable.Operation) error {

	fixedIP, ok := gwPort.FirstFixedIP()
	if !ok {
		return NewLookupFailure("gateway port %s has no fixed IP", gwPort.ID)
	}
	vni, err := p.networkVNI(gwPort.NetworkID)
	if err != nil {
		return err
	}
	if device != "" {
		p.FlowTable.ProgramArpRules(device, fixedIP.IP, vni, gwPort.MAC, op)
		return nil
	}
	for _, sw := range p.masteredSwitches() {
		p.FlowTable.ProgramArpRules(sw, fixedIP.IP, vni, gwPort.MAC, op)
	}
	return nil
}

// applySwitchArpFlows programs gateway ARP of every router interface on the switch.
func (p *Plugin) applySwitchArpFlows(device topology.DeviceID, op flowtable.Operation) {
	for _, ri := range p.Inventory.GetRouterInterfaces() {
		gwPort := p.ports.GetPort(ri.PortID)
		if gwPort == nil {
			p.Log.Warnf("Gateway port %s of %v not found", ri.PortID, ri)
			continue
		}
		p.handleError("gateway ARP flows", p.applyL3ArpFlows(device, gwPort, op))
	}
}

/****************************** Host L3 rules *********************************/

// applyHostMonitoredL3Rules updates east-west and north-south flows of a host.
func (p *Plugin) applyHostMonitoredL3Rules(host *topology.Host, vPort *vtnrsc.VirtualPort,
	op flowtable.Operation) error {

	fixedIP, hasIP := vPort.FirstFixedIP()
	if !hasIP {
		return nil
	}
	all := p.Inventory.GetRouterInterfaces()
	for _, ri := range all {
		if ri.TenantID != vPort.TenantID || ri.SubnetID != fixedIP.SubnetID {
			continue
		}
		tr := ri.TenantRouter()
		interfaces := p.routerInterfacesOf(tr)
		if !hasOtherSubnet(interfaces, fixedIP.SubnetID) {
			continue
		}
		l3vni, err := p.l3VNI(tr)
		if err != nil {
			return err
		}
		active := p.store.isRouterActive(tr)
		switch {
		case op == flowtable.Add && active:
			p.handleError("east-west flows", p.applyEastWestL3Flows(host, l3vni, op))
		case op == flowtable.Add:
			if err := p.programInterfacesSet(interfaces, op); err != nil {
				return err
			}
		case active:
			p.handleError("east-west flows", p.applyEastWestL3Flows(host, l3vni, op))
			if p.liveSubnets(interfaces) < subnetNum {
				p.deactivateRouter(tr, interfaces)
			}
		}
	}

	fip := p.boundFloatingIP(vPort.TenantID, fixedIP.IP)
	if fip == nil {
		return nil
	}
	fipPort := p.ports.GetPortByNetworkIP(fip.NetworkID, fip.FloatingIP)
	if fipPort == nil {
		return NewLookupFailure("port of floating IP %s not found", fip.FloatingIP)
	}
	return p.applyNorthSouthL3Flows(host.Location.Device, true, host, vPort, fipPort, fip, op)
}

func hasOtherSubnet(interfaces []*vtnrsc.RouterInterface, subnet vtnrsc.SubnetID) bool {
	for _, ri := range interfaces {
		if ri.SubnetID != subnet {
			return true
		}
	}
	return false
}
