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

import (
	"net"
	"sort"
	"sync"

	"github.com/apparentlymart/go-cidr/cidr"
	"github.com/ligato/cn-infra/idxmap"
	"github.com/ligato/cn-infra/idxmap/mem"
	"github.com/ligato/cn-infra/infra"
	"github.com/ligato/cn-infra/rpc/rest"
	"github.com/pkg/errors"
)

const (
	networkIndex = "network"
	deviceIndex  = "device"
	fixedIPIndex = "fixedip"
	netIPIndex   = "netip"
	routerIndex  = "router"
)

// Inventory plugin keeps tenant resources in memory and announces their
// changes to watchers.
type Inventory struct {
	Deps

	sync.Mutex
	config      *Config
	networks    map[NetworkID]*TenantNetwork
	subnets     map[SubnetID]*Subnet
	ports       idxmap.NamedMappingRW
	routerIfs   idxmap.NamedMappingRW
	floatingIPs map[FloatingIPID]*FloatingIP
	l3vniPool   *vniPool
	ovsDevices  map[TenantID]map[string]map[PortID]struct{}

	listeners []ResourceListener
}

// Deps lists dependencies of the Inventory plugin.
type Deps struct {
	infra.PluginDeps

	HTTPHandlers rest.HTTPHandlers /* optional */
	Config       *Config           /* optional, loaded from file if not injected */
}

// Init loads the configuration and prepares the indexes.
func (inv *Inventory) Init() error {
	inv.config = inv.Config
	if inv.config == nil {
		inv.config = defaultConfig()
		if inv.Cfg != nil {
			if _, err := inv.Cfg.LoadValue(inv.config); err != nil {
				return err
			}
		}
	}
	if err := inv.config.validate(); err != nil {
		return err
	}

	inv.networks = make(map[NetworkID]*TenantNetwork)
	inv.subnets = make(map[SubnetID]*Subnet)
	inv.floatingIPs = make(map[FloatingIPID]*FloatingIP)
	inv.ovsDevices = make(map[TenantID]map[string]map[PortID]struct{})
	inv.ports = mem.NewNamedMapping(inv.Log, "vtn-ports", portIndexFunction)
	inv.routerIfs = mem.NewNamedMapping(inv.Log, "vtn-router-interfaces", routerIfIndexFunction)
	inv.l3vniPool = newVNIPool(SegmentationID(inv.config.L3VNIPool.MinID),
		SegmentationID(inv.config.L3VNIPool.MaxID))

	inv.registerRESTHandlers()
	return nil
}

// Close does nothing.
func (inv *Inventory) Close() error {
	return nil
}

func portIndexFunction(data interface{}) map[string][]string {
	port, ok := data.(*VirtualPort)
	if !ok {
		return nil
	}
	res := map[string][]string{
		networkIndex: {string(port.NetworkID)},
		deviceIndex:  {port.DeviceID},
	}
	for _, fixedIP := range port.FixedIPs {
		res[fixedIPIndex] = append(res[fixedIPIndex], fixedIP.String())
		res[netIPIndex] = append(res[netIPIndex], string(port.NetworkID)+"/"+fixedIP.IP.String())
	}
	return res
}

func routerIfIndexFunction(data interface{}) map[string][]string {
	if ri, ok := data.(*RouterInterface); ok {
		return map[string][]string{routerIndex: {ri.TenantRouter().String()}}
	}
	return nil
}

// Watch registers listener for resource events.
func (inv *Inventory) Watch(subscriber string, listener ResourceListener) {
	inv.Lock()
	defer inv.Unlock()
	inv.Log.Debugf("%s watches resource events", subscriber)
	inv.listeners = append(inv.listeners, listener)
}

func (inv *Inventory) notify(event *ResourceEvent) {
	inv.Lock()
	listeners := append([]ResourceListener(nil), inv.listeners...)
	inv.Unlock()
	inv.Log.Debugf("Resource event: %s", event)
	for _, listener := range listeners {
		listener(event)
	}
}

// GetNetwork returns tenant network, nil if not found.
func (inv *Inventory) GetNetwork(id NetworkID) *TenantNetwork {
	inv.Lock()
	defer inv.Unlock()
	return inv.networks[id]
}

// GetNetworks returns all tenant networks.
func (inv *Inventory) GetNetworks() []*TenantNetwork {
	inv.Lock()
	defer inv.Unlock()
	var networks []*TenantNetwork
	for _, network := range inv.networks {
		networks = append(networks, network)
	}
	sort.Slice(networks, func(i, j int) bool { return networks[i].ID < networks[j].ID })
	return networks
}

// PutNetwork adds or replaces tenant network.
func (inv *Inventory) PutNetwork(network *TenantNetwork) {
	inv.Lock()
	defer inv.Unlock()
	inv.networks[network.ID] = network
}

// DeleteNetwork removes tenant network.
func (inv *Inventory) DeleteNetwork(id NetworkID) error {
	inv.Lock()
	defer inv.Unlock()
	if _, exists := inv.networks[id]; !exists {
		return errors.Errorf("network %s does not exist", id)
	}
	delete(inv.networks, id)
	return nil
}

// GetSubnet returns subnet, nil if not found.
func (inv *Inventory) GetSubnet(id SubnetID) *Subnet {
	inv.Lock()
	defer inv.Unlock()
	return inv.subnets[id]
}

// GetSubnets returns all subnets.
func (inv *Inventory) GetSubnets() []*Subnet {
	inv.Lock()
	defer inv.Unlock()
	var subnets []*Subnet
	for _, subnet := range inv.subnets {
		subnets = append(subnets, subnet)
	}
	sort.Slice(subnets, func(i, j int) bool { return subnets[i].ID < subnets[j].ID })
	return subnets
}

// PutSubnet adds or replaces subnet. Missing gateway defaults to the first
// host address of the CIDR.
func (inv *Inventory) PutSubnet(subnet *Subnet) error {
	ipNet := subnet.IPNet()
	if ipNet == nil {
		return errors.Errorf("subnet %s has invalid CIDR %q", subnet.ID, subnet.CIDR)
	}
	if subnet.GatewayIP == nil {
		gw, err := cidr.Host(ipNet, 1)
		if err != nil {
			return errors.Wrapf(err, "failed to compute gateway of subnet %s", subnet.ID)
		}
		subnet.GatewayIP = gw
	} else if !ipNet.Contains(subnet.GatewayIP) {
		return errors.Errorf("gateway %s is outside of subnet %s", subnet.GatewayIP, subnet.CIDR)
	}

	inv.Lock()
	defer inv.Unlock()
	inv.subnets[subnet.ID] = subnet
	return nil
}

// DeleteSubnet removes subnet.
func (inv *Inventory) DeleteSubnet(id SubnetID) error {
	inv.Lock()
	defer inv.Unlock()
	if _, exists := inv.subnets[id]; !exists {
		return errors.Errorf("subnet %s does not exist", id)
	}
	delete(inv.subnets, id)
	return nil
}

// GetPort returns virtual port, nil if not found.
func (inv *Inventory) GetPort(id PortID) *VirtualPort {
	if data, found := inv.ports.GetValue(string(id)); found {
		return data.(*VirtualPort)
	}
	return nil
}

// GetPortByFixedIP returns virtual port owning the fixed IP.
func (inv *Inventory) GetPortByFixedIP(fixedIP FixedIP) *VirtualPort {
	return inv.firstPort(inv.ports.ListNames(fixedIPIndex, fixedIP.String()))
}

// GetPortByNetworkIP returns virtual port of the network with the given IP.
func (inv *Inventory) GetPortByNetworkIP(networkID NetworkID, ip net.IP) *VirtualPort {
	return inv.firstPort(inv.ports.ListNames(netIPIndex, string(networkID)+"/"+ip.String()))
}

// GetPortsByDeviceID returns virtual ports with the given device ID.
func (inv *Inventory) GetPortsByDeviceID(deviceID string) []*VirtualPort {
	return inv.lookupPorts(inv.ports.ListNames(deviceIndex, deviceID))
}

// GetPorts returns all virtual ports.
func (inv *Inventory) GetPorts() []*VirtualPort {
	return inv.lookupPorts(inv.ports.ListAllNames())
}

func (inv *Inventory) firstPort(ids []string) *VirtualPort {
	ports := inv.lookupPorts(ids)
	if len(ports) == 0 {
		return nil
	}
	return ports[0]
}

func (inv *Inventory) lookupPorts(ids []string) []*VirtualPort {
	sort.Strings(ids)
	var ports []*VirtualPort
	for _, id := range ids {
		if port := inv.GetPort(PortID(id)); port != nil {
			ports = append(ports, port)
		}
	}
	return ports
}

// PutPort adds or replaces virtual port.
func (inv *Inventory) PutPort(port *VirtualPort) {
	inv.ports.Put(string(port.ID), port)
	inv.notify(&ResourceEvent{Type: VirtualPortPut, VirtualPort: port})
}

// DeletePort removes virtual port.
func (inv *Inventory) DeletePort(id PortID) error {
	data, found := inv.ports.Delete(string(id))
	if !found {
		return errors.Errorf("port %s does not exist", id)
	}
	inv.notify(&ResourceEvent{Type: VirtualPortDelete, VirtualPort: data.(*VirtualPort)})
	return nil
}

// GetRouterInterfaces returns all router interfaces.
func (inv *Inventory) GetRouterInterfaces() []*RouterInterface {
	return inv.lookupRouterIfs(inv.routerIfs.ListAllNames())
}

// GetRouterInterfacesOf returns interfaces of the given tenant router.
func (inv *Inventory) GetRouterInterfacesOf(tenantRouter TenantRouter) []*RouterInterface {
	return inv.lookupRouterIfs(inv.routerIfs.ListNames(routerIndex, tenantRouter.String()))
}

func (inv *Inventory) lookupRouterIfs(ids []string) []*RouterInterface {
	sort.Strings(ids)
	var routerIfs []*RouterInterface
	for _, id := range ids {
		if data, found := inv.routerIfs.GetValue(id); found {
			routerIfs = append(routerIfs, data.(*RouterInterface))
		}
	}
	return routerIfs
}

// PutRouterInterface attaches subnet to a router. Router interfaces are keyed
// by their gateway port ID.
func (inv *Inventory) PutRouterInterface(routerIf *RouterInterface) {
	inv.routerIfs.Put(string(routerIf.PortID), routerIf)
	inv.notify(&ResourceEvent{Type: RouterInterfacePut, RouterInterface: routerIf})
}

// DeleteRouterInterface detaches subnet from a router.
func (inv *Inventory) DeleteRouterInterface(portID PortID) error {
	data, found := inv.routerIfs.Delete(string(portID))
	if !found {
		return errors.Errorf("router interface %s does not exist", portID)
	}
	routerIf := data.(*RouterInterface)
	inv.notify(&ResourceEvent{Type: RouterInterfaceDelete, RouterInterface: routerIf})
	inv.releaseL3VNIIfUnused(routerIf.TenantRouter())
	return nil
}

// GetFloatingIPs returns all floating IPs.
func (inv *Inventory) GetFloatingIPs() []*FloatingIP {
	inv.Lock()
	defer inv.Unlock()
	var fips []*FloatingIP
	for _, fip := range inv.floatingIPs {
		fips = append(fips, fip)
	}
	sort.Slice(fips, func(i, j int) bool { return fips[i].ID < fips[j].ID })
	return fips
}

// PutFloatingIP adds or replaces floating IP. Change of the association
// is announced as unbind of the previous binding followed by bind of the new one.
func (inv *Inventory) PutFloatingIP(fip *FloatingIP) {
	inv.Lock()
	prev := inv.floatingIPs[fip.ID]
	inv.floatingIPs[fip.ID] = fip
	inv.Unlock()

	changed := prev == nil || !prev.FixedIP.Equal(fip.FixedIP) || prev.PortID != fip.PortID
	if prev != nil && prev.IsBound() && changed {
		inv.notify(&ResourceEvent{Type: FloatingIPUnbind, FloatingIP: prev})
	}
	if fip.IsBound() && changed {
		inv.notify(&ResourceEvent{Type: FloatingIPBind, FloatingIP: fip})
	}
}

// DeleteFloatingIP removes floating IP, unbinding it first if bound.
func (inv *Inventory) DeleteFloatingIP(id FloatingIPID) error {
	inv.Lock()
	prev, exists := inv.floatingIPs[id]
	delete(inv.floatingIPs, id)
	inv.Unlock()

	if !exists {
		return errors.Errorf("floating IP %s does not exist", id)
	}
	if prev.IsBound() {
		inv.notify(&ResourceEvent{Type: FloatingIPUnbind, FloatingIP: prev})
	}
	inv.releaseL3VNIIfUnused(prev.TenantRouter())
	return nil
}

// GetL3VNI returns the L3 VNI of the tenant router, allocating one if needed.
// Returns 0 if the pool is exhausted.
func (inv *Inventory) GetL3VNI(tenantRouter TenantRouter) SegmentationID {
	inv.Lock()
	defer inv.Unlock()
	vni, err := inv.l3vniPool.getOrAllocate(tenantRouter.String())
	if err != nil {
		inv.Log.Errorf("Failed to allocate L3 VNI for router %s: %v", tenantRouter, err)
		return 0
	}
	return vni
}

// GetL3VNIs returns all allocated L3 VNIs.
func (inv *Inventory) GetL3VNIs() map[string]SegmentationID {
	inv.Lock()
	defer inv.Unlock()
	vnis := make(map[string]SegmentationID)
	for label, vni := range inv.l3vniPool.allocated {
		vnis[label] = vni
	}
	return vnis
}

// releaseL3VNIIfUnused releases L3 VNI of a router without interfaces and floating IPs.
func (inv *Inventory) releaseL3VNIIfUnused(tenantRouter TenantRouter) {
	if len(inv.GetRouterInterfacesOf(tenantRouter)) > 0 {
		return
	}
	inv.Lock()
	defer inv.Unlock()
	for _, fip := range inv.floatingIPs {
		if fip.TenantRouter() == tenantRouter {
			return
		}
	}
	if vni, allocated := inv.l3vniPool.get(tenantRouter.String()); allocated {
		inv.l3vniPool.release(tenantRouter.String())
		inv.Log.Debugf("Released L3 VNI %d of router %s", vni, tenantRouter)
	}
}
