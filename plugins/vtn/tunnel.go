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
	"strings"

	"github.com/contiv/vtn/plugins/driver"
	"github.com/contiv/vtn/plugins/flowtable"
	"github.com/contiv/vtn/plugins/topology"
)

/******************************** Controllers *********************************/

// onControllerDetected configures the integration bridge and the tunnel port
// of the node and marks its IP as live.
func (p *Plugin) onControllerDetected(controller *topology.Device) error {
	if !p.isMaster(controller.ID) {
		return NewNotMastered(controller.ID)
	}
	localIP := controller.ControllerIP()
	if localIP == nil || localIP.To4() == nil {
		return NewMalformedAnnotation("controller %s has invalid %s annotation %q", controller.ID,
			topology.IPAddressKey, controller.Annotations[topology.IPAddressKey])
	}

	handle := p.Driver.CreateHandler(controller.ID)
	bridge := &driver.BridgeDescription{
		Name:       driver.DefaultBridgeName,
		DatapathID: driver.DatapathID(localIP),
		DeviceID:   driver.DatapathDeviceID(localIP),
		ExPortName: p.store.exPortName(),
	}
	if err := handle.AddBridge(bridge); err != nil {
		return err
	}
	p.store.addController(localIP)

	if err := handle.AddTunnel(driver.NewVXLANTunnel(localIP)); err != nil {
		return err
	}
	p.Log.Infof("Controller %s (%s) joined, bridge %s", controller.ID, localIP, bridge.DeviceID)

	p.refreshGroupTables()
	return nil
}

// onControllerVanished removes the liveness entry of the node.
func (p *Plugin) onControllerVanished(controller *topology.Device) error {
	if !p.isMaster(controller.ID) {
		return NewNotMastered(controller.ID)
	}
	localIP := controller.ControllerIP()
	if localIP == nil {
		return NewMalformedAnnotation("controller %s has no %s annotation", controller.ID,
			topology.IPAddressKey)
	}
	p.store.removeController(localIP)
	p.Log.Infof("Controller %s (%s) left", controller.ID, localIP)

	p.refreshGroupTables()
	return nil
}

/********************************** Switches **********************************/

// onOvsDetected prepares pipeline of a switch joining the overlay.
func (p *Plugin) onOvsDetected(sw *topology.Device) error {
	if !p.isMaster(sw.ID) {
		return NewNotMastered(sw.ID)
	}
	p.FlowTable.InitPipeline(sw.ID)
	if err := p.applyTunnelOut(sw, flowtable.Add); err != nil {
		return err
	}
	p.applySwitchArpFlows(sw.ID, flowtable.Add)
	p.programGroupTables(sw.ID)
	return nil
}

// onOvsVanished tears down rules of a leaving switch. Pipeline of a removed
// switch is cleared completely.
func (p *Plugin) onOvsVanished(sw *topology.Device, removed bool) error {
	if !p.isMaster(sw.ID) {
		return NewNotMastered(sw.ID)
	}
	err := p.applyTunnelOut(sw, flowtable.Remove)
	p.applySwitchArpFlows(sw.ID, flowtable.Remove)
	if removed {
		p.FlowTable.ClearPipeline(sw.ID)
	}
	return err
}

// applyTunnelOut binds the external port of the switch and programs every
// known remote host as a tunnel-out destination.
func (p *Plugin) applyTunnelOut(sw *topology.Device, op flowtable.Operation) error {
	controllerIP := sw.ChannelIP()
	if controllerIP == nil {
		return NewMalformedAnnotation("switch %s has invalid %s annotation %q", sw.ID,
			topology.ChannelIDKey, sw.Annotations[topology.ChannelIDKey])
	}
	if !p.store.isControllerLive(controllerIP) {
		return NewLookupFailure("controller %s of switch %s is not live", controllerIP, sw.ID)
	}

	controller := p.controllerOfSwitch(sw)
	if controller == nil {
		return NewLookupFailure("no controller device for switch %s", sw.ID)
	}

	if op == flowtable.Add {
		if exPort := p.findExPort(sw.ID); exPort != nil {
			p.FlowTable.ProgramExportPortArpClassifierRules(sw.ID, exPort.Number, op)
			p.store.putExPort(sw.ID, exPort)
		}
		// a repeated join keeps the ports of hosts already attached
		if _, exists := p.store.getNetworkPorts(sw.ID); !exists {
			p.store.initLocalHostPorts(sw.ID)
		}
	} else {
		if exPort := p.store.getExPort(sw.ID); exPort != nil {
			p.FlowTable.ProgramExportPortArpClassifierRules(sw.ID, exPort.Number, op)
		}
		p.store.removeExPort(sw.ID)
		p.store.removeLocalHostPorts(sw.ID)
	}

	tunnelPorts := tunnelPortNumbers(p.Driver.CreateHandler(controller.ID).GetPorts())

	for _, host := range p.Topology.GetHosts() {
		ifaceID := host.IfaceID()
		if ifaceID == "" {
			continue
		}
		remote := p.Topology.GetDevice(host.Location.Device)
		if remote == nil {
			continue
		}
		remoteIP := remote.ChannelIP()
		if remoteIP == nil || remoteIP.Equal(controllerIP) {
			continue
		}
		vni, err := p.hostVNI(host)
		if err != nil {
			p.Log.Warnf("Skipping tunnel-out to host %s: %v", host.ID, err)
			continue
		}
		for _, tunnelPort := range tunnelPorts {
			p.FlowTable.ProgramTunnelOut(sw.ID, vni, tunnelPort, host.MAC, op, remoteIP)
		}
	}
	return nil
}

// findExPort returns port of the device named after the configured external port.
func (p *Plugin) findExPort(device topology.DeviceID) *topology.Port {
	name := p.store.exPortName()
	if name == "" {
		return nil
	}
	for _, port := range p.Topology.GetPorts(device) {
		if port.Name == name {
			return port
		}
	}
	return nil
}

// hostVNI returns segmentation ID of the network of the host's port.
func (p *Plugin) hostVNI(host *topology.Host) (uint32, error) {
	vPort := p.ports.GetPort(vtnrscPortID(host))
	if vPort == nil {
		return 0, NewLookupFailure("virtual port %s not found", host.IfaceID())
	}
	return p.networkVNI(vPort.NetworkID)
}

// programTunnelOuts programs the host as a tunnel-out destination on the
// integration bridges of all other nodes.
func (p *Plugin) programTunnelOuts(hostControllerIP net.IP, vni uint32, dstMAC string,
	op flowtable.Operation) {

	for _, controller := range p.controllers() {
		if controller.ControllerIP().Equal(hostControllerIP) {
			continue
		}
		bridgeDevice := p.integrationBridge(controller)
		if !p.isMaster(bridgeDevice) {
			continue
		}
		for _, port := range p.Topology.GetPorts(bridgeDevice) {
			if strings.EqualFold(port.Name, driver.DefaultTunnelName) {
				p.FlowTable.ProgramTunnelOut(bridgeDevice, vni, port.Number, dstMAC, op, hostControllerIP)
			}
		}
	}
}

// integrationBridge returns device ID of the integration bridge of the node.
func (p *Plugin) integrationBridge(controller *topology.Device) topology.DeviceID {
	for _, bridge := range p.Driver.CreateHandler(controller.ID).GetBridges() {
		if bridge.Name == driver.DefaultBridgeName && bridge.DeviceID != "" {
			return bridge.DeviceID
		}
	}
	return driver.DatapathDeviceID(controller.ControllerIP())
}

func tunnelPortNumbers(ports []*topology.Port) []topology.PortNumber {
	var numbers []topology.PortNumber
	for _, port := range ports {
		if strings.EqualFold(port.Name, driver.DefaultTunnelName) {
			numbers = append(numbers, port.Number)
		}
	}
	return numbers
}

/********************************** Groups ************************************/

// programGroupTables builds the broadcast group for every tunnel port of the switch.
func (p *Plugin) programGroupTables(device topology.DeviceID) {
	for _, tunnelPort := range p.localTunnelPorts(device) {
		p.programGroupTable(device, tunnelPort)
	}
}

// programGroupTable (re)builds ALL group of the switch with one bucket per
// other live node.
func (p *Plugin) programGroupTable(device topology.DeviceID, tunnelPort topology.PortNumber) {
	sw := p.Topology.GetDevice(device)
	if sw == nil {
		return
	}
	localIP := sw.ChannelIP()
	var buckets []flowtable.GroupBucket
	for _, ip := range p.store.controllerIPs() {
		if ip.Equal(localIP) {
			continue
		}
		buckets = append(buckets, flowtable.NewTunnelBucket(ip, tunnelPort))
	}
	p.FlowTable.AddGroup(&flowtable.GroupDescription{
		Device:  device,
		Type:    flowtable.GroupAll,
		Buckets: buckets,
		Key:     p.config.AppID,
		GroupID: p.config.GroupID,
		AppID:   p.config.AppID,
	})
}

// refreshGroupTables rebuilds groups of all locally mastered switches.
func (p *Plugin) refreshGroupTables() {
	for _, sw := range p.masteredSwitches() {
		if _, prepared := p.store.getNetworkPorts(sw); prepared {
			p.programGroupTables(sw)
		}
	}
}
