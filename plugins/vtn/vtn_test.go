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
	"fmt"
	"net"
	"testing"

	"github.com/ligato/cn-infra/logging"
	. "github.com/onsi/gomega"

	"github.com/contiv/vtn/mock/servicelabel"
	"github.com/contiv/vtn/plugins/driver"
	"github.com/contiv/vtn/plugins/flowtable"
	"github.com/contiv/vtn/plugins/kvstore"
	"github.com/contiv/vtn/plugins/mastership"
	"github.com/contiv/vtn/plugins/packetio"
	"github.com/contiv/vtn/plugins/topology"
	"github.com/contiv/vtn/plugins/vtnrsc"
)

const (
	node1IP = "192.168.1.10"
	node2IP = "192.168.1.11"

	ctrl1 = topology.DeviceID("ovsdb:" + node1IP)
	ctrl2 = topology.DeviceID("ovsdb:" + node2IP)

	exPortName = "eth1"
	exPortMAC  = "fa:16:3e:ee:ee:01"

	tenant = vtnrsc.TenantID("t1")
	router = vtnrsc.RouterID("r1")

	vm1MAC = "fa:16:3e:00:00:07"
	vm2MAC = "fa:16:3e:00:01:05"
	vm3MAC = "fa:16:3e:00:00:08"
	gw1MAC = "fa:16:3e:00:00:01"
	gw2MAC = "fa:16:3e:00:01:01"
	gw3MAC = "fa:16:3e:00:02:01"
)

var (
	sw1 = driver.DatapathDeviceID(net.ParseIP(node1IP))
	sw2 = driver.DatapathDeviceID(net.ParseIP(node2IP))

	tr = vtnrsc.TenantRouter{TenantID: tenant, RouterID: router}
)

type fixture struct {
	topo       *topology.Registry
	inv        *vtnrsc.Inventory
	kv         *kvstore.KVStore
	flows      *flowtable.Renderer
	drv        *driver.Recorder
	pio        *packetio.Service
	mastership *mastership.Static
	vtn        *Plugin
}

func newFixture(node string, msConfig *mastership.Config) *fixture {
	f := &fixture{}

	f.topo = topology.NewPlugin(topology.UseDeps(func(deps *topology.Deps) {
		deps.Log = logging.ForPlugin("topology-test")
		deps.HTTPHandlers = nil
	}))
	f.inv = vtnrsc.NewPlugin(vtnrsc.UseDeps(func(deps *vtnrsc.Deps) {
		deps.Log = logging.ForPlugin("vtnrsc-test")
		deps.HTTPHandlers = nil
		deps.Config = &vtnrsc.Config{L3VNIPool: vtnrsc.VNIRange{MinID: 10000, MaxID: 10100}}
	}))
	label := servicelabel.NewMockServiceLabel()
	label.SetAgentLabel(node)
	f.kv = kvstore.NewPlugin(kvstore.UseDeps(func(deps *kvstore.Deps) {
		deps.Log = logging.ForPlugin("kvstore-test")
		deps.ServiceLabel = label
	}))
	f.flows = flowtable.NewPlugin(flowtable.UseDeps(func(deps *flowtable.Deps) {
		deps.Log = logging.ForPlugin("flowtable-test")
	}))
	f.drv = driver.NewPlugin(driver.UseDeps(func(deps *driver.Deps) {
		deps.Log = logging.ForPlugin("driver-test")
		deps.Topology = f.topo
		deps.HTTPHandlers = nil
	}))
	f.pio = packetio.NewPlugin(packetio.UseDeps(func(deps *packetio.Deps) {
		deps.Log = logging.ForPlugin("packetio-test")
		deps.HTTPHandlers = nil
	}))
	f.mastership = mastership.NewPlugin(mastership.UseDeps(func(deps *mastership.Deps) {
		deps.Log = logging.ForPlugin("mastership-test")
		deps.Config = msConfig
	}))
	f.vtn = NewPlugin(UseDeps(func(deps *Deps) {
		deps.Log = logging.ForPlugin("vtn-test")
		deps.Topology = f.topo
		deps.Mastership = f.mastership
		deps.Inventory = f.inv
		deps.KVStore = f.kv
		deps.FlowTable = f.flows
		deps.Driver = f.drv
		deps.PacketIO = f.pio
		deps.HTTPHandlers = nil
		deps.Stats = nil
		deps.Config = &Config{ExPortName: exPortName, AppID: defaultAppID, GroupID: defaultGroupID}
	}))

	Expect(f.topo.Init()).To(Succeed())
	Expect(f.inv.Init()).To(Succeed())
	Expect(f.kv.Init()).To(Succeed())
	Expect(f.flows.Init()).To(Succeed())
	Expect(f.drv.Init()).To(Succeed())
	Expect(f.pio.Init()).To(Succeed())
	Expect(f.mastership.Init()).To(Succeed())
	Expect(f.vtn.Init()).To(Succeed())
	Expect(f.vtn.AfterInit()).To(Succeed())
	return f
}

func masterOfAll() *mastership.Config {
	return &mastership.Config{MasterOfAll: true}
}

// joinNode adds controller device of the node followed by its integration bridge.
func (f *fixture) joinNode(ip string, ports ...*topology.Port) {
	f.topo.AddDevice(&topology.Device{
		ID:          topology.DeviceID("ovsdb:" + ip),
		Type:        topology.ControllerDevice,
		Available:   true,
		Annotations: map[string]string{topology.IPAddressKey: ip},
	}, nil)
	ports = append([]*topology.Port{{Number: 1, Name: driver.DefaultTunnelName, Enabled: true}}, ports...)
	f.topo.AddDevice(&topology.Device{
		ID:          driver.DatapathDeviceID(net.ParseIP(ip)),
		Type:        topology.SwitchDevice,
		Available:   true,
		Annotations: map[string]string{topology.ChannelIDKey: ip + ":6653"},
	}, ports)
}

func (f *fixture) joinBothNodes() {
	f.joinNode(node1IP,
		&topology.Port{Number: 2, Name: exPortName, MAC: exPortMAC, Enabled: true},
		&topology.Port{Number: 3, Name: "tap-vm1", Enabled: true},
		&topology.Port{Number: 4, Name: "tap-vm2", Enabled: true},
		&topology.Port{Number: 5, Name: "tap-vm3", Enabled: true})
	f.joinNode(node2IP)
}

func fixedIP(subnet, ip string) []vtnrsc.FixedIP {
	return []vtnrsc.FixedIP{{SubnetID: vtnrsc.SubnetID(subnet), IP: net.ParseIP(ip)}}
}

// setupTenant creates networks, subnets and ports of tenant t1.
func (f *fixture) setupTenant() {
	networks := []*vtnrsc.TenantNetwork{
		{ID: "net1", TenantID: tenant, SegmentationID: 100},
		{ID: "net2", TenantID: tenant, SegmentationID: 200},
		{ID: "net3", TenantID: tenant, SegmentationID: 300},
		{ID: "ext", TenantID: tenant, SegmentationID: 1000, RouterExternal: true},
	}
	for _, network := range networks {
		f.inv.PutNetwork(network)
	}
	subnets := []*vtnrsc.Subnet{
		{ID: "s1", NetworkID: "net1", TenantID: tenant, CIDR: "10.0.0.0/24", GatewayIP: net.ParseIP("10.0.0.1")},
		{ID: "s2", NetworkID: "net2", TenantID: tenant, CIDR: "10.0.1.0/24", GatewayIP: net.ParseIP("10.0.1.1")},
		{ID: "s3", NetworkID: "net3", TenantID: tenant, CIDR: "10.0.2.0/24", GatewayIP: net.ParseIP("10.0.2.1")},
		{ID: "ext-s", NetworkID: "ext", TenantID: tenant, CIDR: "203.0.113.0/24",
			GatewayIP: net.ParseIP("203.0.113.1")},
	}
	for _, subnet := range subnets {
		Expect(f.inv.PutSubnet(subnet)).To(Succeed())
	}
	ports := []*vtnrsc.VirtualPort{
		{ID: "gw1", TenantID: tenant, NetworkID: "net1", MAC: gw1MAC, FixedIPs: fixedIP("s1", "10.0.0.1"),
			DeviceOwner: "network:router_interface", DeviceID: string(router)},
		{ID: "gw2", TenantID: tenant, NetworkID: "net2", MAC: gw2MAC, FixedIPs: fixedIP("s2", "10.0.1.1"),
			DeviceOwner: "network:router_interface", DeviceID: string(router)},
		{ID: "gw3", TenantID: tenant, NetworkID: "net3", MAC: gw3MAC, FixedIPs: fixedIP("s3", "10.0.2.1"),
			DeviceOwner: "network:router_interface", DeviceID: string(router)},
		{ID: "vm1", TenantID: tenant, NetworkID: "net1", MAC: vm1MAC, FixedIPs: fixedIP("s1", "10.0.0.7")},
		{ID: "vm2", TenantID: tenant, NetworkID: "net2", MAC: vm2MAC, FixedIPs: fixedIP("s2", "10.0.1.5")},
		{ID: "vm3", TenantID: tenant, NetworkID: "net1", MAC: vm3MAC, FixedIPs: fixedIP("s1", "10.0.0.8")},
		{ID: "fport1", TenantID: tenant, NetworkID: "ext", MAC: "fa:16:3e:00:0f:05",
			FixedIPs: fixedIP("ext-s", "203.0.113.5"), DeviceOwner: "network:floatingip", DeviceID: "fip1"},
		{ID: "fport2", TenantID: tenant, NetworkID: "ext", MAC: "fa:16:3e:00:0f:06",
			FixedIPs: fixedIP("ext-s", "203.0.113.6"), DeviceOwner: "network:floatingip", DeviceID: "fip2"},
	}
	for _, port := range ports {
		f.inv.PutPort(port)
	}
}

func vmHost(id, mac string, device topology.DeviceID, port topology.PortNumber, ifaceID string) *topology.Host {
	return &topology.Host{
		ID:          topology.HostID(id),
		MAC:         mac,
		Location:    topology.HostLocation{Device: device, Port: port},
		Annotations: map[string]string{topology.IfaceIDKey: ifaceID},
	}
}

func routerInterface(subnet, port string) *vtnrsc.RouterInterface {
	return &vtnrsc.RouterInterface{TenantID: tenant, RouterID: router,
		SubnetID: vtnrsc.SubnetID(subnet), PortID: vtnrsc.PortID(port)}
}

func floatingIP(id, floating, fixed, port string) *vtnrsc.FloatingIP {
	fip := &vtnrsc.FloatingIP{
		ID:         vtnrsc.FloatingIPID(id),
		TenantID:   tenant,
		RouterID:   router,
		NetworkID:  "ext",
		FloatingIP: net.ParseIP(floating),
	}
	if fixed != "" {
		fip.FixedIP = net.ParseIP(fixed)
		fip.PortID = vtnrsc.PortID(port)
	}
	return fip
}

// flowSnapshot returns treatments of all installed entries keyed by entry ID.
func (f *fixture) flowSnapshot() map[string]flowtable.Treatment {
	snapshot := make(map[string]flowtable.Treatment)
	for _, entry := range f.flows.GetAllFlowEntries() {
		snapshot[entry.ID] = entry.Treatment
	}
	return snapshot
}

// entriesWith returns entries of the device table matching the criterion value.
func (f *fixture) entriesWith(device topology.DeviceID, table flowtable.TableID,
	criterion flowtable.Criterion, value string) []*flowtable.FlowEntry {

	var entries []*flowtable.FlowEntry
	for _, entry := range f.flows.GetFlowEntries(device, table) {
		if entry.Selector[criterion] == value {
			entries = append(entries, entry)
		}
	}
	return entries
}

func TestControllerAndSwitchJoin(t *testing.T) {
	RegisterTestingT(t)

	f := newFixture("node1", masterOfAll())
	f.joinBothNodes()

	handle := f.drv.CreateHandler(ctrl1)
	Expect(handle.GetBridges()).To(HaveLen(1))
	bridge := handle.GetBridges()[0]
	Expect(bridge.Name).To(Equal(driver.DefaultBridgeName))
	Expect(bridge.DatapathID).To(Equal("00000000c0a8010a"))
	Expect(bridge.DeviceID).To(Equal(sw1))
	Expect(bridge.ExPortName).To(Equal(exPortName))
	Expect(handle.GetTunnels()).To(HaveLen(1))
	Expect(handle.GetTunnels()[0].Name).To(Equal(driver.DefaultTunnelName))

	Expect(f.vtn.store.isControllerLive(net.ParseIP(node1IP))).To(BeTrue())
	Expect(f.vtn.store.isControllerLive(net.ParseIP(node2IP))).To(BeTrue())
	Expect(f.vtn.store.getExPort(sw1).Number).To(BeEquivalentTo(2))
	Expect(f.vtn.store.getExPort(sw2)).To(BeNil())

	// SNAT table-miss and external port ARP upload
	Expect(f.flows.GetFlowEntries(sw1, flowtable.SnatTable)).To(HaveLen(1))
	Expect(f.entriesWith(sw1, flowtable.ClassifierTable, flowtable.InPort, "2")).To(HaveLen(1))

	// sw1 floods to node2 only
	group := f.flows.GetGroup(sw1, defaultAppID)
	Expect(group).ToNot(BeNil())
	Expect(group.Type).To(Equal(flowtable.GroupAll))
	Expect(group.Buckets).To(ConsistOf(flowtable.NewTunnelBucket(net.ParseIP(node2IP), 1)))

	// leave and rejoin of node2 rebuilds the group
	Expect(f.topo.SetDeviceAvailable(ctrl2, false)).To(Succeed())
	Expect(f.vtn.store.isControllerLive(net.ParseIP(node2IP))).To(BeFalse())
	Expect(f.flows.GetGroup(sw1, defaultAppID).Buckets).To(BeEmpty())
	Expect(f.topo.SetDeviceAvailable(ctrl2, true)).To(Succeed())
	Expect(f.flows.GetGroup(sw1, defaultAppID).Buckets).To(HaveLen(1))
}

func TestHostChurnIsIdempotent(t *testing.T) {
	RegisterTestingT(t)

	f := newFixture("node1", masterOfAll())
	f.joinBothNodes()
	f.setupTenant()
	baseline := f.flowSnapshot()

	h1 := vmHost("h1", vm1MAC, sw1, 3, "vm1")
	f.topo.AddHost(h1)
	added := f.flowSnapshot()
	Expect(added).ToNot(Equal(baseline))

	Expect(f.entriesWith(sw1, flowtable.ClassifierTable, flowtable.EthSrc, vm1MAC)).To(HaveLen(1))
	Expect(f.entriesWith(sw1, flowtable.MacTable, flowtable.EthDst, vm1MAC)[0].Treatment).
		To(Equal(flowtable.Treatment{"output:3"}))
	tunnelOut := f.entriesWith(sw2, flowtable.MacTable, flowtable.EthDst, vm1MAC)
	Expect(tunnelOut).To(HaveLen(1))
	Expect(tunnelOut[0].Treatment).To(ContainElement("set_tunnel_dst:" + node1IP))
	Expect(f.vtn.store.localPorts(sw1, "net1")).To(Equal([]topology.PortNumber{3}))
	Expect(f.vtn.store.subnetHasHosts("s1")).To(BeTrue())
	Expect(f.inv.GetDevicesOfOVS(tenant)).To(Equal([]string{string(sw1)}))

	// repeated detection changes nothing
	Expect(f.vtn.onHostDetected(h1)).To(Succeed())
	Expect(f.flowSnapshot()).To(Equal(added))

	Expect(f.topo.RemoveHost("h1")).To(Succeed())
	Expect(f.flowSnapshot()).To(Equal(baseline))
	Expect(f.vtn.store.localPorts(sw1, "net1")).To(BeEmpty())
	ports, _ := f.vtn.store.getNetworkPorts(sw1)
	Expect(ports.Networks).ToNot(HaveKey(vtnrsc.NetworkID("net1")))
	Expect(f.vtn.store.subnetHasHosts("s1")).To(BeFalse())
	Expect(f.inv.GetDevicesOfOVS(tenant)).To(BeEmpty())

	f.topo.AddHost(h1)
	Expect(f.flowSnapshot()).To(Equal(added))
}

func TestSwitchRejoinKeepsHostPorts(t *testing.T) {
	RegisterTestingT(t)

	f := newFixture("node1", masterOfAll())
	f.joinBothNodes()
	f.setupTenant()
	baseline := f.flowSnapshot()

	f.topo.AddHost(vmHost("h1", vm1MAC, sw1, 3, "vm1"))
	added := f.flowSnapshot()

	Expect(f.vtn.onOvsDetected(f.topo.GetDevice(sw1))).To(Succeed())
	Expect(f.flowSnapshot()).To(Equal(added))
	Expect(f.vtn.store.localPorts(sw1, "net1")).To(Equal([]topology.PortNumber{3}))

	Expect(f.topo.RemoveHost("h1")).To(Succeed())
	Expect(f.flowSnapshot()).To(Equal(baseline))
	Expect(f.flowSnapshot()).ToNot(HaveKey(string(sw1) + "/0/50000/in_port=1,tunnel_id=100"))
	Expect(f.flowSnapshot()).ToNot(HaveKey(string(sw1) +
		"/50/50000/eth_dst=ff:ff:ff:ff:ff:ff,in_port=3,tunnel_id=100"))
	Expect(f.vtn.store.localPorts(sw1, "net1")).To(BeEmpty())
}

func TestSwitchJoinWithoutControllerDevice(t *testing.T) {
	RegisterTestingT(t)

	f := newFixture("node1", masterOfAll())
	f.joinBothNodes()
	sw := f.topo.GetDevice(sw1)
	Expect(f.topo.RemoveDevice(ctrl1)).To(Succeed())
	// the controller stays live in the store but its device is gone
	f.vtn.store.addController(net.ParseIP(node1IP))
	f.vtn.store.removeExPort(sw1)
	f.vtn.store.removeLocalHostPorts(sw1)

	Expect(f.vtn.onOvsDetected(sw)).ToNot(Succeed())
	Expect(f.vtn.store.getExPort(sw1)).To(BeNil())
	_, exists := f.vtn.store.getNetworkPorts(sw1)
	Expect(exists).To(BeFalse())
}

func TestLocalBroadcastFollowsMembership(t *testing.T) {
	RegisterTestingT(t)

	f := newFixture("node1", masterOfAll())
	f.joinBothNodes()
	f.setupTenant()

	f.topo.AddHost(vmHost("h1", vm1MAC, sw1, 3, "vm1"))
	f.topo.AddHost(vmHost("h3", vm3MAC, sw1, 5, "vm3"))
	Expect(f.vtn.store.localPorts(sw1, "net1")).To(Equal([]topology.PortNumber{3, 5}))

	tunnelBcast := f.entriesWith(sw1, flowtable.MacTable, flowtable.InPort, "1")
	Expect(tunnelBcast).To(HaveLen(1))
	Expect(tunnelBcast[0].Treatment).To(Equal(flowtable.Treatment{"output:3", "output:5"}))
	fromVM1 := f.entriesWith(sw1, flowtable.MacTable, flowtable.InPort, "3")
	Expect(fromVM1).To(HaveLen(1))
	Expect(fromVM1[0].Treatment).To(Equal(flowtable.Treatment{"output:5", "output:1"}))

	Expect(f.topo.RemoveHost("h3")).To(Succeed())
	Expect(f.entriesWith(sw1, flowtable.MacTable, flowtable.InPort, "5")).To(BeEmpty())
	Expect(f.entriesWith(sw1, flowtable.MacTable, flowtable.InPort, "3")[0].Treatment).
		To(Equal(flowtable.Treatment{"output:1"}))
	Expect(f.entriesWith(sw1, flowtable.MacTable, flowtable.InPort, "1")[0].Treatment).
		To(Equal(flowtable.Treatment{"output:3"}))
}

func TestHostWithoutIfaceIDIsIgnored(t *testing.T) {
	RegisterTestingT(t)

	f := newFixture("node1", masterOfAll())
	f.joinBothNodes()
	f.setupTenant()
	baseline := f.flowSnapshot()

	f.topo.AddHost(&topology.Host{ID: "plain", MAC: "fa:16:3e:99:99:99",
		Location: topology.HostLocation{Device: sw1, Port: 4}})
	Expect(f.flowSnapshot()).To(Equal(baseline))
}

func TestRouterActivation(t *testing.T) {
	RegisterTestingT(t)

	f := newFixture("node1", masterOfAll())
	f.joinBothNodes()
	f.setupTenant()

	f.inv.PutRouterInterface(routerInterface("s1", "gw1"))
	f.inv.PutRouterInterface(routerInterface("s2", "gw2"))
	f.inv.PutRouterInterface(routerInterface("s3", "gw3"))
	l3vni := f.inv.GetL3VNI(tr)

	// gateway ARP on every switch regardless of activation
	Expect(f.flows.GetFlowEntries(sw1, flowtable.ArpTable)).To(HaveLen(3))
	Expect(f.flows.GetFlowEntries(sw2, flowtable.ArpTable)).To(HaveLen(3))
	Expect(f.vtn.store.isRouterActive(tr)).To(BeFalse())

	// one live subnet
	f.topo.AddHost(vmHost("h1", vm1MAC, sw1, 3, "vm1"))
	Expect(f.vtn.store.isRouterActive(tr)).To(BeFalse())
	Expect(f.flows.GetFlowEntries(sw1, flowtable.L3ForwardTable)).To(BeEmpty())

	// second live subnet activates the router
	f.topo.AddHost(vmHost("h2", vm2MAC, sw1, 4, "vm2"))
	Expect(f.vtn.store.isRouterActive(tr)).To(BeTrue())
	for _, sw := range []topology.DeviceID{sw1, sw2} {
		routes := f.flows.GetFlowEntries(sw, flowtable.L3ForwardTable)
		Expect(routes).To(HaveLen(2))
		Expect(f.entriesWith(sw, flowtable.L3ForwardTable, flowtable.IPv4Dst, "10.0.0.7/32")[0].Treatment).
			To(Equal(flowtable.Treatment{"set_eth_src:" + gw1MAC, "set_eth_dst:" + vm1MAC,
				"set_tunnel_id:100", "goto_table:50"}))
	}
	l3in := f.entriesWith(sw1, flowtable.ClassifierTable, flowtable.EthDst, gw2MAC)
	Expect(l3in).To(HaveLen(1))
	Expect(l3in[0].Treatment).To(ContainElement(fmt.Sprintf("set_tunnel_id:%d", l3vni)))

	// third subnet joins an active router
	f.topo.AddHost(vmHost("h3", vm3MAC, sw1, 5, "vm3"))
	Expect(f.flows.GetFlowEntries(sw1, flowtable.L3ForwardTable)).To(HaveLen(3))

	// back to a single live subnet
	Expect(f.topo.RemoveHost("h2")).To(Succeed())
	Expect(f.vtn.store.isRouterActive(tr)).To(BeFalse())
	Expect(f.flows.GetFlowEntries(sw1, flowtable.L3ForwardTable)).To(BeEmpty())
	Expect(f.flows.GetFlowEntries(sw2, flowtable.L3ForwardTable)).To(BeEmpty())
	Expect(f.entriesWith(sw1, flowtable.ClassifierTable, flowtable.EthDst, gw1MAC)).To(BeEmpty())
	Expect(f.entriesWith(sw1, flowtable.ClassifierTable, flowtable.EthType, flowtable.EthTypeARP)).
		To(HaveLen(1)) // external port ARP upload only
}

func TestRouterInterfaceLifecycle(t *testing.T) {
	RegisterTestingT(t)

	f := newFixture("node1", masterOfAll())
	f.joinBothNodes()
	f.setupTenant()
	f.topo.AddHost(vmHost("h1", vm1MAC, sw1, 3, "vm1"))
	f.topo.AddHost(vmHost("h2", vm2MAC, sw1, 4, "vm2"))

	f.inv.PutRouterInterface(routerInterface("s1", "gw1"))
	Expect(f.vtn.store.isRouterActive(tr)).To(BeFalse())
	f.inv.PutRouterInterface(routerInterface("s2", "gw2"))
	Expect(f.vtn.store.isRouterActive(tr)).To(BeTrue())
	Expect(f.flows.GetFlowEntries(sw1, flowtable.L3ForwardTable)).To(HaveLen(2))

	Expect(f.inv.DeleteRouterInterface("gw2")).To(Succeed())
	Expect(f.vtn.store.isRouterActive(tr)).To(BeFalse())
	Expect(f.flows.GetFlowEntries(sw1, flowtable.L3ForwardTable)).To(BeEmpty())
	Expect(f.flows.GetFlowEntries(sw1, flowtable.ArpTable)).To(HaveLen(1))
	Expect(f.vtn.store.GetPort("gw2")).To(BeNil())
}

func TestFloatingIPRoundTrip(t *testing.T) {
	RegisterTestingT(t)

	f := newFixture("node1", masterOfAll())
	f.joinBothNodes()
	f.setupTenant()
	f.topo.AddHost(vmHost("h1", vm1MAC, sw1, 3, "vm1"))
	beforeBind := f.flowSnapshot()

	f.inv.PutFloatingIP(floatingIP("fip1", "203.0.113.5", "10.0.0.7", "vm1"))
	Expect(f.vtn.store.getFloatingIP(net.ParseIP("203.0.113.5"))).ToNot(BeNil())
	Expect(f.flows.GetFlowEntries(sw1, flowtable.DnatTable)).To(HaveLen(1))
	Expect(f.entriesWith(sw1, flowtable.ClassifierTable, flowtable.IPv4Dst, "203.0.113.5/32")).To(HaveLen(1))
	upload := f.entriesWith(sw1, flowtable.SnatTable, flowtable.IPv4Dst, "203.0.113.0/24")
	Expect(upload).To(HaveLen(1))
	Expect(upload[0].Selector[flowtable.IPv4Src]).To(Equal("10.0.0.7/32"))
	exOut := f.entriesWith(sw1, flowtable.MacTable, flowtable.EthSrc, exPortMAC)
	Expect(exOut).To(HaveLen(1))
	Expect(exOut[0].Selector[flowtable.TunnelID]).To(Equal("1000"))
	Expect(f.entriesWith(sw1, flowtable.L3ForwardTable, flowtable.IPv4Dst, "10.0.0.7/32")).To(HaveLen(1))

	// the gateway answers the upstream ARP request
	gwMAC, _ := net.ParseMAC("fa:16:3e:aa:aa:01")
	f.deliverARPReply(sw1, gwMAC, "203.0.113.1", "203.0.113.5")
	Expect(f.flows.GetFlowEntries(sw1, flowtable.SnatTable)).To(HaveLen(4))

	f.inv.PutFloatingIP(floatingIP("fip1", "203.0.113.5", "", ""))
	Expect(f.flowSnapshot()).To(Equal(beforeBind))
	Expect(f.vtn.store.getFloatingIP(net.ParseIP("203.0.113.5"))).To(BeNil())
	Expect(f.vtn.store.GetPort("fport1")).To(BeNil())
}

func TestExternalOutRetention(t *testing.T) {
	RegisterTestingT(t)

	f := newFixture("node1", masterOfAll())
	f.joinBothNodes()
	f.setupTenant()
	f.topo.AddHost(vmHost("h1", vm1MAC, sw1, 3, "vm1"))
	f.topo.AddHost(vmHost("h3", vm3MAC, sw1, 5, "vm3"))

	f.inv.PutFloatingIP(floatingIP("fip1", "203.0.113.5", "10.0.0.7", "vm1"))
	f.inv.PutFloatingIP(floatingIP("fip2", "203.0.113.6", "10.0.0.8", "vm3"))
	Expect(f.entriesWith(sw1, flowtable.MacTable, flowtable.EthSrc, exPortMAC)).To(HaveLen(1))

	// fip2 still uses the external port
	f.inv.PutFloatingIP(floatingIP("fip1", "203.0.113.5", "", ""))
	Expect(f.entriesWith(sw1, flowtable.MacTable, flowtable.EthSrc, exPortMAC)).To(HaveLen(1))
	Expect(f.flows.GetFlowEntries(sw1, flowtable.DnatTable)).To(HaveLen(1))

	Expect(f.inv.DeleteFloatingIP("fip2")).To(Succeed())
	Expect(f.entriesWith(sw1, flowtable.MacTable, flowtable.EthSrc, exPortMAC)).To(BeEmpty())
	Expect(f.flows.GetFlowEntries(sw1, flowtable.DnatTable)).To(BeEmpty())
}

func TestSnatSweep(t *testing.T) {
	RegisterTestingT(t)

	f := newFixture("node1", masterOfAll())
	f.joinBothNodes()
	f.setupTenant()
	f.topo.AddHost(vmHost("h1", vm1MAC, sw1, 3, "vm1"))
	f.topo.AddHost(vmHost("h3", vm3MAC, sw1, 5, "vm3"))
	f.inv.PutFloatingIP(floatingIP("fip1", "203.0.113.5", "10.0.0.7", "vm1"))
	f.inv.PutFloatingIP(floatingIP("fip2", "203.0.113.6", "10.0.0.8", "vm3"))

	peerMAC, _ := net.ParseMAC("fa:16:3e:aa:aa:09")
	f.deliverARPRequest(sw1, peerMAC, "203.0.113.9", "203.0.113.5")
	f.deliverARPRequest(sw1, peerMAC, "203.0.113.9", "203.0.113.6")
	Expect(f.snatEntriesOf("10.0.0.7")).To(HaveLen(2))
	Expect(f.snatEntriesOf("10.0.0.8")).To(HaveLen(2))

	f.inv.PutFloatingIP(floatingIP("fip1", "203.0.113.5", "", ""))
	Expect(f.snatEntriesOf("10.0.0.7")).To(BeEmpty())
	Expect(f.snatEntriesOf("10.0.0.8")).To(HaveLen(2))
	Expect(f.flows.GetFlowEntries(sw1, flowtable.SnatTable)).To(ContainElement(
		WithTransform(func(e *flowtable.FlowEntry) int { return e.Priority },
			Equal(flowtable.SnatDefaultRulePriority))))
}

// snatEntriesOf returns SNAT entries of sw1 above the default rule translating the fixed IP.
func (f *fixture) snatEntriesOf(fixedIP string) []*flowtable.FlowEntry {
	var entries []*flowtable.FlowEntry
	for _, entry := range f.flows.GetFlowEntries(sw1, flowtable.SnatTable) {
		if entry.Priority > flowtable.SnatDefaultRulePriority &&
			entry.Selector[flowtable.IPv4Src] == fixedIP+"/32" {
			entries = append(entries, entry)
		}
	}
	return entries
}

func TestMastershipExclusivity(t *testing.T) {
	RegisterTestingT(t)

	nodeA := newFixture("nodeA", masterOfAll())
	nodeB := newFixture("nodeB", &mastership.Config{
		MasteredDevices: []string{string(ctrl2), string(sw2)},
	})
	for _, f := range []*fixture{nodeA, nodeB} {
		f.joinBothNodes()
		f.setupTenant()
		f.inv.PutRouterInterface(routerInterface("s1", "gw1"))
		f.inv.PutRouterInterface(routerInterface("s2", "gw2"))
		f.topo.AddHost(vmHost("h1", vm1MAC, sw1, 3, "vm1"))
		f.topo.AddHost(vmHost("h2", vm2MAC, sw1, 4, "vm2"))
		f.inv.PutFloatingIP(floatingIP("fip1", "203.0.113.5", "10.0.0.7", "vm1"))
	}

	devicesOf := func(f *fixture) map[topology.DeviceID]int {
		devices := make(map[topology.DeviceID]int)
		for _, entry := range f.flows.GetAllFlowEntries() {
			devices[entry.Device]++
		}
		return devices
	}
	Expect(devicesOf(nodeA)).To(HaveKey(sw1))
	Expect(devicesOf(nodeA)).To(HaveKey(sw2))
	Expect(devicesOf(nodeB)).ToNot(HaveKey(sw1))
	Expect(nodeB.flows.GetGroup(sw1, defaultAppID)).To(BeNil())
	Expect(nodeB.vtn.store.isRouterActive(tr)).To(BeFalse())
	Expect(nodeB.vtn.store.isControllerLive(net.ParseIP(node1IP))).To(BeFalse())
}

func TestVirtualPortConfiguresHostIPs(t *testing.T) {
	RegisterTestingT(t)

	f := newFixture("node1", masterOfAll())
	f.joinBothNodes()
	f.topo.AddHost(vmHost("h9", "fa:16:3e:00:09:09", sw1, 4, "vm9"))

	port := &vtnrsc.VirtualPort{ID: "vm9", TenantID: tenant, NetworkID: "net1", MAC: "fa:16:3e:00:09:09",
		FixedIPs: fixedIP("s1", "10.0.0.9")}
	f.inv.PutPort(port)
	Expect(f.topo.GetHost("h9").IPs).To(HaveLen(1))
	Expect(f.topo.GetHost("h9").IPs[0].Equal(net.ParseIP("10.0.0.9"))).To(BeTrue())
	Expect(f.vtn.store.GetPort("vm9")).ToNot(BeNil())

	Expect(f.inv.DeletePort("vm9")).To(Succeed())
	Expect(f.topo.GetHost("h9").IPs).To(BeEmpty())
	Expect(f.vtn.ports.GetPort("vm9")).ToNot(BeNil())
}

func TestExPortName(t *testing.T) {
	RegisterTestingT(t)

	f := newFixture("node1", masterOfAll())
	Expect(f.vtn.GetExPortName()).To(Equal(exPortName))
	Expect(f.vtn.SetExPortName("eth2")).To(Succeed())
	Expect(f.vtn.GetExPortName()).To(Equal("eth2"))
	Expect(f.vtn.GetState().ExPortName).To(Equal("eth2"))

	f.joinNode(node1IP, &topology.Port{Number: 7, Name: "eth2", MAC: exPortMAC})
	Expect(f.vtn.store.getExPort(sw1).Number).To(BeEquivalentTo(7))
	Expect(f.drv.CreateHandler(ctrl1).GetBridges()[0].ExPortName).To(Equal("eth2"))
}

func TestSameSegment(t *testing.T) {
	RegisterTestingT(t)

	Expect(sameSegment(net.ParseIP("203.0.113.5"), net.ParseIP("203.0.113.1"), 24)).To(BeTrue())
	Expect(sameSegment(net.ParseIP("203.0.113.5"), net.ParseIP("8.8.8.8"), 24)).To(BeFalse())
	Expect(sameSegment(net.ParseIP("10.0.0.7"), net.ParseIP("10.0.3.7"), 16)).To(BeTrue())
	Expect(sameSegment(net.ParseIP("10.0.0.7"), nil, 16)).To(BeFalse())
}
