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

	"github.com/ligato/cn-infra/infra"
	"github.com/ligato/cn-infra/rpc/rest"

	"github.com/contiv/vtn/plugins/driver"
	"github.com/contiv/vtn/plugins/flowtable"
	"github.com/contiv/vtn/plugins/kvstore"
	"github.com/contiv/vtn/plugins/mastership"
	"github.com/contiv/vtn/plugins/packetio"
	"github.com/contiv/vtn/plugins/statscollector"
	"github.com/contiv/vtn/plugins/topology"
	"github.com/contiv/vtn/plugins/vtnrsc"
)

const (
	// subnetNum is the number of router subnets with live hosts needed
	// to activate east-west routing of a tenant router.
	subnetNum = 2

	// prefix of the names of tunnel ports
	tunnelPortPrefix = "vxlan"

	// priority of the packet processor
	packetProcessorPriority = 10
)

// userdataIP is the address of the metadata service.
var userdataIP = net.ParseIP("169.254.169.254")

// Plugin orchestrates flows of the overlay network. It turns topology and
// tenant-resource events into programming of switches.
type Plugin struct {
	Deps

	config *Config
	store  *store
	ports  PortSource
}

// Deps lists dependencies of the VTN plugin.
type Deps struct {
	infra.PluginDeps

	Topology   topology.API
	Mastership mastership.API
	Inventory  vtnrsc.API
	KVStore    kvstore.API
	FlowTable  flowtable.API
	Driver     driver.API
	PacketIO   packetio.API

	HTTPHandlers rest.HTTPHandlers  /* optional */
	Stats        statscollector.API /* optional */
	Config       *Config            /* optional, loaded from file if not injected */
}

// Init loads the configuration and opens the replicated state.
func (p *Plugin) Init() error {
	p.config = p.Config
	if p.config == nil {
		p.config = defaultConfig()
		if p.Cfg != nil {
			if _, err := p.Cfg.LoadValue(p.config); err != nil {
				return err
			}
		}
	}
	if err := p.config.validate(); err != nil {
		return err
	}

	p.store = newStore(p.KVStore)
	p.ports = &fallbackResolver{log: p.Log, primary: p.Inventory, shadow: p.store}
	if p.config.ExPortName != "" {
		if err := p.store.setExPortName(p.config.ExPortName); err != nil {
			return err
		}
	}

	p.registerRESTHandlers()
	return nil
}

// AfterInit starts watching events.
func (p *Plugin) AfterInit() error {
	p.Topology.WatchDevices(p.String(), p.onDeviceEvent)
	p.Topology.WatchHosts(p.String(), p.onHostEvent)
	p.Inventory.Watch(p.String(), p.onResourceEvent)
	p.PacketIO.AddProcessor(p.String(), packetProcessorPriority, packetio.ProcessorFunc(p.processPacket))
	return nil
}

// Close stops packet processing.
func (p *Plugin) Close() error {
	if p.PacketIO != nil {
		p.PacketIO.RemoveProcessor(p.String())
	}
	return nil
}

// SetExPortName stores the name of the external bridge port.
func (p *Plugin) SetExPortName(name string) error {
	p.Log.Infof("External port name set to %q", name)
	return p.store.setExPortName(name)
}

// GetExPortName returns the configured name of the external bridge port.
func (p *Plugin) GetExPortName() string {
	return p.store.exPortName()
}

// handleError logs error that aborted a handler.
func (p *Plugin) handleError(handler string, err error) {
	if err == nil {
		return
	}
	var kind string
	switch err.(type) {
	case *NotMastered:
		p.Log.Debugf("%s skipped: %v", handler, err)
		return
	case *LookupFailure:
		kind = "lookup-failure"
	case *ConfigurationMissing:
		kind = "configuration-missing"
	case *MalformedAnnotation:
		kind = "malformed-annotation"
	default:
		kind = "other"
	}
	p.Log.Errorf("%s aborted: %v", handler, err)
	if p.Stats != nil {
		p.Stats.CountError(kind)
	}
}

func (p *Plugin) countEvent(family, eventType string) {
	if p.Stats != nil {
		p.Stats.CountEvent(family, eventType)
	}
}

func (p *Plugin) isMaster(device topology.DeviceID) bool {
	return p.Mastership.IsLocalMaster(device)
}

// masteredSwitches returns available switches this node is the master of.
func (p *Plugin) masteredSwitches() []topology.DeviceID {
	var switches []topology.DeviceID
	for _, device := range p.Topology.GetDevices() {
		if device.Type == topology.SwitchDevice && device.Available && p.isMaster(device.ID) {
			switches = append(switches, device.ID)
		}
	}
	return switches
}

// controllers returns available controller devices.
func (p *Plugin) controllers() []*topology.Device {
	var controllers []*topology.Device
	for _, device := range p.Topology.GetDevices() {
		if device.Type == topology.ControllerDevice && device.Available {
			controllers = append(controllers, device)
		}
	}
	return controllers
}

// controllerOfSwitch returns controller device the switch is connected through.
func (p *Plugin) controllerOfSwitch(sw *topology.Device) *topology.Device {
	channelIP := sw.ChannelIP()
	for _, controller := range p.controllers() {
		if channelIP.Equal(controller.ControllerIP()) {
			return controller
		}
	}
	return nil
}

// localTunnelPorts returns numbers of the tunnel ports of the device.
func (p *Plugin) localTunnelPorts(device topology.DeviceID) []topology.PortNumber {
	var ports []topology.PortNumber
	for _, port := range p.Topology.GetPorts(device) {
		if strings.HasPrefix(port.Name, tunnelPortPrefix) {
			ports = append(ports, port.Number)
		}
	}
	return ports
}

// hostOfPort returns host representing the virtual port.
func (p *Plugin) hostOfPort(port *vtnrsc.VirtualPort) *topology.Host {
	for _, host := range p.Topology.GetHostsByMAC(port.MAC) {
		if host.IfaceID() == string(port.ID) {
			return host
		}
	}
	return nil
}

// networkVNI returns segmentation ID of the network.
func (p *Plugin) networkVNI(id vtnrsc.NetworkID) (uint32, error) {
	network := p.Inventory.GetNetwork(id)
	if network == nil {
		return 0, NewLookupFailure("network %s not found", id)
	}
	return uint32(network.SegmentationID), nil
}

// routerInterfacesOf returns interfaces of the tenant router.
func (p *Plugin) routerInterfacesOf(tr vtnrsc.TenantRouter) []*vtnrsc.RouterInterface {
	var interfaces []*vtnrsc.RouterInterface
	for _, ri := range p.Inventory.GetRouterInterfaces() {
		if ri.TenantRouter() == tr {
			interfaces = append(interfaces, ri)
		}
	}
	return interfaces
}

// l3VNI returns L3 VNI of the tenant router.
func (p *Plugin) l3VNI(tr vtnrsc.TenantRouter) (uint32, error) {
	vni := p.Inventory.GetL3VNI(tr)
	if vni == 0 {
		return 0, NewLookupFailure("no L3 VNI available for router %s", tr)
	}
	return uint32(vni), nil
}

// sameSegment returns true if the addresses share the first <prefixLen> bits.
func sameSegment(a, b net.IP, prefixLen int) bool {
	mask := net.CIDRMask(prefixLen, 32)
	a4, b4 := a.To4(), b.To4()
	if a4 == nil || b4 == nil || mask == nil {
		return false
	}
	return a4.Mask(mask).Equal(b4.Mask(mask))
}
