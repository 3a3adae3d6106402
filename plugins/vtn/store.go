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
	"sort"

	"github.com/contiv/vtn/plugins/kvstore"
	"github.com/contiv/vtn/plugins/topology"
	"github.com/contiv/vtn/plugins/vtnrsc"
)

// names of the replicated maps
const (
	controllersMapName    = "vtn-switches-of-controller"
	localHostPortsMapName = "vtn-switch-of-local-host-ports"
	vPortsMapName         = "vtn-virtual-ports"
	hostsOfSubnetMapName  = "vtn-hosts-of-subnet"
	routerFlagsMapName    = "vtn-router-interface-flags"
	exPortsMapName        = "vtn-ex-port-of-device"
	floatingIPsMapName    = "vtn-floating-ips"
	exPortConfigMapName   = "vtn-ex-port"

	exPortKey = "exPortKey"
)

// NetworkPorts maps tenant networks to the local VM ports of one device.
type NetworkPorts struct {
	Networks map[vtnrsc.NetworkID][]topology.PortNumber `json:"networks"`
}

// SubnetHosts is the set of live hosts of a subnet.
type SubnetHosts struct {
	Hosts map[topology.HostID]*topology.Host `json:"hosts"`
}

// store keeps the derived state shared by all nodes. Stored values are never
// mutated in place; every change writes a new copy.
type store struct {
	controllers    *kvstore.ECMap // controller IP -> *bool
	localHostPorts *kvstore.ECMap // device -> *NetworkPorts
	vPorts         *kvstore.ECMap // port ID -> *vtnrsc.VirtualPort
	hostsOfSubnet  *kvstore.ECMap // subnet ID -> *SubnetHosts
	routerFlags    *kvstore.ECMap // tenant router -> *bool
	exPorts        *kvstore.ECMap // device -> *topology.Port
	floatingIPs    *kvstore.ECMap // floating IP -> *vtnrsc.FloatingIP
	exPortConfig   *kvstore.ConsistentMap
}

func newStore(kv kvstore.API) *store {
	newBool := func() interface{} { return new(bool) }
	return &store{
		controllers: kv.EventuallyConsistentMap(controllersMapName, newBool),
		localHostPorts: kv.EventuallyConsistentMap(localHostPortsMapName,
			func() interface{} { return &NetworkPorts{} }),
		vPorts: kv.EventuallyConsistentMap(vPortsMapName,
			func() interface{} { return &vtnrsc.VirtualPort{} }),
		hostsOfSubnet: kv.EventuallyConsistentMap(hostsOfSubnetMapName,
			func() interface{} { return &SubnetHosts{} }),
		routerFlags: kv.EventuallyConsistentMap(routerFlagsMapName, newBool),
		exPorts: kv.EventuallyConsistentMap(exPortsMapName,
			func() interface{} { return &topology.Port{} }),
		floatingIPs: kv.EventuallyConsistentMap(floatingIPsMapName,
			func() interface{} { return &vtnrsc.FloatingIP{} }),
		exPortConfig: kv.ConsistentMap(exPortConfigMapName, true),
	}
}

/******************************** Controllers *********************************/

func (s *store) addController(ip net.IP) {
	live := true
	s.controllers.Put(ip.String(), &live)
}

func (s *store) removeController(ip net.IP) {
	s.controllers.Remove(ip.String())
}

func (s *store) isControllerLive(ip net.IP) bool {
	return ip != nil && s.controllers.ContainsKey(ip.String())
}

func (s *store) controllerIPs() []net.IP {
	var ips []net.IP
	for _, key := range s.controllers.Keys() {
		if ip := net.ParseIP(key); ip != nil {
			ips = append(ips, ip)
		}
	}
	return ips
}

/****************************** Local host ports ******************************/

func (s *store) initLocalHostPorts(device topology.DeviceID) {
	s.localHostPorts.Put(string(device),
		&NetworkPorts{Networks: make(map[vtnrsc.NetworkID][]topology.PortNumber)})
}

func (s *store) removeLocalHostPorts(device topology.DeviceID) {
	s.localHostPorts.Remove(string(device))
}

func (s *store) getNetworkPorts(device topology.DeviceID) (*NetworkPorts, bool) {
	value, found := s.localHostPorts.Get(string(device))
	if !found {
		return nil, false
	}
	return value.(*NetworkPorts), true
}

// localPorts returns local ports of the network, nil if the network has none.
func (s *store) localPorts(device topology.DeviceID, network vtnrsc.NetworkID) []topology.PortNumber {
	np, found := s.getNetworkPorts(device)
	if !found {
		return nil
	}
	return np.Networks[network]
}

// addLocalPort adds port into the per-network set of the device and returns
// the updated set.
func (s *store) addLocalPort(device topology.DeviceID, network vtnrsc.NetworkID,
	port topology.PortNumber) []topology.PortNumber {

	np, _ := s.getNetworkPorts(device)
	updated := np.copy()
	ports := updated.Networks[network]
	for _, p := range ports {
		if p == port {
			return ports
		}
	}
	ports = append(append([]topology.PortNumber(nil), ports...), port)
	sort.Slice(ports, func(i, j int) bool { return ports[i] < ports[j] })
	updated.Networks[network] = ports
	s.localHostPorts.Put(string(device), updated)
	return ports
}

// removeLocalPort removes port from the per-network set of the device and
// returns the remaining ports. The network entry is removed with its last port.
func (s *store) removeLocalPort(device topology.DeviceID, network vtnrsc.NetworkID,
	port topology.PortNumber) []topology.PortNumber {

	np, found := s.getNetworkPorts(device)
	if !found {
		return nil
	}
	updated := np.copy()
	var remaining []topology.PortNumber
	for _, p := range updated.Networks[network] {
		if p != port {
			remaining = append(remaining, p)
		}
	}
	if len(remaining) == 0 {
		delete(updated.Networks, network)
	} else {
		updated.Networks[network] = remaining
	}
	s.localHostPorts.Put(string(device), updated)
	return remaining
}

func (np *NetworkPorts) copy() *NetworkPorts {
	c := &NetworkPorts{Networks: make(map[vtnrsc.NetworkID][]topology.PortNumber)}
	if np == nil {
		return c
	}
	for network, ports := range np.Networks {
		c.Networks[network] = ports
	}
	return c
}

/******************************* Virtual ports ********************************/

func (s *store) putVPort(port *vtnrsc.VirtualPort) {
	s.vPorts.Put(string(port.ID), port)
}

func (s *store) removeVPort(id vtnrsc.PortID) {
	s.vPorts.Remove(string(id))
}

func (s *store) allVPorts() []*vtnrsc.VirtualPort {
	var ports []*vtnrsc.VirtualPort
	for _, key := range s.vPorts.Keys() {
		if value, found := s.vPorts.Get(key); found {
			ports = append(ports, value.(*vtnrsc.VirtualPort))
		}
	}
	return ports
}

// GetPort returns cached copy of the virtual port.
func (s *store) GetPort(id vtnrsc.PortID) *vtnrsc.VirtualPort {
	value, found := s.vPorts.Get(string(id))
	if !found {
		return nil
	}
	return value.(*vtnrsc.VirtualPort)
}

// GetPortByFixedIP returns cached port owning the fixed IP.
func (s *store) GetPortByFixedIP(fixedIP vtnrsc.FixedIP) *vtnrsc.VirtualPort {
	for _, port := range s.allVPorts() {
		if port.HasFixedIP(fixedIP) {
			return port
		}
	}
	return nil
}

// GetPortByNetworkIP returns cached port of the network with the given IP.
func (s *store) GetPortByNetworkIP(network vtnrsc.NetworkID, ip net.IP) *vtnrsc.VirtualPort {
	for _, port := range s.allVPorts() {
		if port.NetworkID == network && port.HasIP(ip) {
			return port
		}
	}
	return nil
}

/****************************** Hosts of subnet *******************************/

func (s *store) getSubnetHosts(subnet vtnrsc.SubnetID) (*SubnetHosts, bool) {
	value, found := s.hostsOfSubnet.Get(string(subnet))
	if !found {
		return nil, false
	}
	return value.(*SubnetHosts), true
}

func (s *store) addHostToSubnet(subnet vtnrsc.SubnetID, host *topology.Host) {
	updated := &SubnetHosts{Hosts: make(map[topology.HostID]*topology.Host)}
	if sh, found := s.getSubnetHosts(subnet); found {
		for id, h := range sh.Hosts {
			updated.Hosts[id] = h
		}
	}
	updated.Hosts[host.ID] = host.Copy()
	s.hostsOfSubnet.Put(string(subnet), updated)
}

// removeHostFromSubnet removes the host, and the subnet entry with its last host.
func (s *store) removeHostFromSubnet(subnet vtnrsc.SubnetID, host topology.HostID) {
	sh, found := s.getSubnetHosts(subnet)
	if !found {
		return
	}
	updated := &SubnetHosts{Hosts: make(map[topology.HostID]*topology.Host)}
	for id, h := range sh.Hosts {
		if id != host {
			updated.Hosts[id] = h
		}
	}
	if len(updated.Hosts) == 0 {
		s.hostsOfSubnet.Remove(string(subnet))
		return
	}
	s.hostsOfSubnet.Put(string(subnet), updated)
}

// subnetHosts returns hosts of the subnet sorted by ID.
func (s *store) subnetHosts(subnet vtnrsc.SubnetID) []*topology.Host {
	sh, found := s.getSubnetHosts(subnet)
	if !found {
		return nil
	}
	var hosts []*topology.Host
	for _, host := range sh.Hosts {
		hosts = append(hosts, host)
	}
	sort.Slice(hosts, func(i, j int) bool { return hosts[i].ID < hosts[j].ID })
	return hosts
}

func (s *store) subnetHasHosts(subnet vtnrsc.SubnetID) bool {
	sh, found := s.getSubnetHosts(subnet)
	return found && len(sh.Hosts) > 0
}

/******************************** Router flags ********************************/

func (s *store) setRouterActive(tr vtnrsc.TenantRouter) {
	active := true
	s.routerFlags.Put(tr.String(), &active)
}

func (s *store) clearRouterActive(tr vtnrsc.TenantRouter) {
	s.routerFlags.Remove(tr.String())
}

func (s *store) isRouterActive(tr vtnrsc.TenantRouter) bool {
	return s.routerFlags.ContainsKey(tr.String())
}

/******************************* External ports *******************************/

func (s *store) putExPort(device topology.DeviceID, port *topology.Port) {
	s.exPorts.Put(string(device), port)
}

func (s *store) removeExPort(device topology.DeviceID) {
	s.exPorts.Remove(string(device))
}

func (s *store) getExPort(device topology.DeviceID) *topology.Port {
	value, found := s.exPorts.Get(string(device))
	if !found {
		return nil
	}
	return value.(*topology.Port)
}

/******************************** Floating IPs ********************************/

func (s *store) putFloatingIP(fip *vtnrsc.FloatingIP) {
	s.floatingIPs.Put(fip.FloatingIP.String(), fip)
}

func (s *store) removeFloatingIP(ip net.IP) {
	s.floatingIPs.Remove(ip.String())
}

func (s *store) getFloatingIP(ip net.IP) *vtnrsc.FloatingIP {
	if ip == nil {
		return nil
	}
	value, found := s.floatingIPs.Get(ip.String())
	if !found {
		return nil
	}
	return value.(*vtnrsc.FloatingIP)
}

/**************************** External port name ******************************/

func (s *store) exPortName() string {
	versioned, found := s.exPortConfig.Get(exPortKey)
	if !found {
		return ""
	}
	return versioned.Value
}

func (s *store) setExPortName(name string) error {
	_, err := s.exPortConfig.Put(exPortKey, name)
	return err
}
