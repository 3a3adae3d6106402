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

package flowtable

import (
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/ligato/cn-infra/idxmap"
	"github.com/ligato/cn-infra/idxmap/mem"
	"github.com/ligato/cn-infra/infra"

	"github.com/contiv/vtn/plugins/topology"
)

const (
	deviceIndex      = "device"
	deviceTableIndex = "device-table"
)

// rule priorities
const (
	localInPriority         = 50000
	tunnelInPriority        = 50000
	l3ExPortPriority        = 50000
	l3InPortPriority        = 55000
	arpClassifierPriority   = 60000
	userdataPriority        = 60000
	exPortArpPriority       = 60000
	localBcastPriority      = 50000
	tunnelBcastPriority     = 50000
	localOutPriority        = 50000
	externalOutPriority     = 50000
	tunnelOutPriority       = 50000
	routePriority           = 50000
	arpPriority             = 50000
	dnatPriority            = 50000
	snatSameSegmentPriority = 50000
	snatDiffSegmentPriority = 40000
	snatUploadPriority      = 10000
)

// Renderer keeps the desired flow state of every device.
type Renderer struct {
	Deps

	sync.Mutex
	entries idxmap.NamedMappingRW
	groups  map[topology.DeviceID]map[string]*GroupDescription
}

// Deps lists dependencies of the Renderer plugin.
type Deps struct {
	infra.PluginDeps
}

// Init prepares the flow index.
func (r *Renderer) Init() error {
	r.entries = mem.NewNamedMapping(r.Log, "vtn-flow-entries", flowEntryIndexFunction)
	r.groups = make(map[topology.DeviceID]map[string]*GroupDescription)
	return nil
}

// Close does nothing.
func (r *Renderer) Close() error {
	return nil
}

func flowEntryIndexFunction(data interface{}) map[string][]string {
	entry, ok := data.(*FlowEntry)
	if !ok {
		return nil
	}
	return map[string][]string{
		deviceIndex:      {string(entry.Device)},
		deviceTableIndex: {deviceTableKey(entry.Device, entry.Table)},
	}
}

func deviceTableKey(device topology.DeviceID, table TableID) string {
	return string(device) + "/" + strconv.Itoa(int(table))
}

// apply installs or removes one entry. Installing an entry with the same key
// replaces its treatment.
func (r *Renderer) apply(op Operation, device topology.DeviceID, table TableID, priority int,
	selector Selector, treatment Treatment) {

	entry := &FlowEntry{
		ID:        flowEntryID(device, table, priority, selector),
		Device:    device,
		Table:     table,
		Priority:  priority,
		Selector:  selector,
		Treatment: treatment,
		Owner:     r.String(),
	}
	if op == Remove {
		if _, removed := r.entries.Delete(entry.ID); removed {
			r.Log.Debugf("Removed flow entry %v", entry)
		}
		return
	}
	r.entries.Put(entry.ID, entry)
	r.Log.Debugf("Installed flow entry %v", entry)
}

func vniString(vni uint32) string {
	return strconv.FormatUint(uint64(vni), 10)
}

func portString(port topology.PortNumber) string {
	return strconv.FormatUint(uint64(port), 10)
}

func hostPrefix(ip net.IP) string {
	return ip.String() + "/32"
}

func sortedPorts(ports []topology.PortNumber) []topology.PortNumber {
	sorted := append([]topology.PortNumber(nil), ports...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return sorted
}

/******************************** Classifier ********************************/

// ProgramLocalIn classifies traffic from a local VM port into its network.
func (r *Renderer) ProgramLocalIn(device topology.DeviceID, vni uint32, inPort topology.PortNumber,
	srcMAC string, op Operation) {

	r.apply(op, device, ClassifierTable, localInPriority,
		Selector{InPort: portString(inPort), EthSrc: srcMAC},
		Treatment{setTunnelID(vni), gotoTable(MacTable)})
}

// ProgramTunnelIn classifies traffic arriving on the tunnel ports.
func (r *Renderer) ProgramTunnelIn(device topology.DeviceID, vni uint32,
	tunnelPorts []topology.PortNumber, op Operation) {

	for _, port := range tunnelPorts {
		r.apply(op, device, ClassifierTable, tunnelInPriority,
			Selector{InPort: portString(port), TunnelID: vniString(vni)},
			Treatment{gotoTable(MacTable)})
	}
}

// ProgramL3ExPortClassifierRules sends traffic for the floating IP from the
// external port into the DNAT table.
func (r *Renderer) ProgramL3ExPortClassifierRules(device topology.DeviceID, exPort topology.PortNumber,
	floatingIP net.IP, op Operation) {

	r.apply(op, device, ClassifierTable, l3ExPortPriority,
		Selector{InPort: portString(exPort), EthType: EthTypeIPv4, IPv4Dst: hostPrefix(floatingIP)},
		Treatment{gotoTable(DnatTable)})
}

// ProgramL3InPortClassifierRules sends traffic of a VM addressed to its gateway
// into L3 forwarding of the router.
func (r *Renderer) ProgramL3InPortClassifierRules(device topology.DeviceID, inPort topology.PortNumber,
	srcMAC, gwMAC string, l3vni uint32, op Operation) {

	r.apply(op, device, ClassifierTable, l3InPortPriority,
		Selector{InPort: portString(inPort), EthSrc: srcMAC, EthDst: gwMAC},
		Treatment{setTunnelID(l3vni), gotoTable(DnatTable)})
}

// ProgramArpClassifierRules sends ARP requests for the gateway into the ARP table.
func (r *Renderer) ProgramArpClassifierRules(device topology.DeviceID, inPort topology.PortNumber,
	gwIP net.IP, vni uint32, op Operation) {

	r.apply(op, device, ClassifierTable, arpClassifierPriority,
		Selector{InPort: portString(inPort), EthType: EthTypeARP, ArpTPA: gwIP.String()},
		Treatment{setTunnelID(vni), gotoTable(ArpTable)})
}

// ProgramUserdataClassifierRules handles metadata traffic of the subnet.
func (r *Renderer) ProgramUserdataClassifierRules(device topology.DeviceID, cidr *net.IPNet,
	dstIP net.IP, dstMAC string, vni uint32, op Operation) {

	r.apply(op, device, ClassifierTable, userdataPriority,
		Selector{EthType: EthTypeIPv4, IPv4Src: cidr.String(), IPv4Dst: hostPrefix(dstIP)},
		Treatment{setEthDst(dstMAC), setTunnelID(vni), gotoTable(MacTable)})
}

// ProgramExportPortArpClassifierRules uploads ARP seen on the external port
// to the controller.
func (r *Renderer) ProgramExportPortArpClassifierRules(device topology.DeviceID,
	exPort topology.PortNumber, op Operation) {

	r.apply(op, device, ClassifierTable, exPortArpPriority,
		Selector{InPort: portString(exPort), EthType: EthTypeARP},
		Treatment{toController})
}

/******************************** L2 forward ********************************/

// ProgramLocalBcastRules floods broadcast from a local port to the other local
// ports of the network and to the tunnel ports. Rules of the remaining local
// ports are refreshed so that they always flood to the current port set.
func (r *Renderer) ProgramLocalBcastRules(device topology.DeviceID, vni uint32,
	inPort topology.PortNumber, localPorts []topology.PortNumber, tunnelPorts []topology.PortNumber,
	op Operation) {

	var members []topology.PortNumber
	for _, port := range sortedPorts(localPorts) {
		if op == Remove && port == inPort {
			continue
		}
		members = append(members, port)
	}
	for _, port := range members {
		var treatment Treatment
		for _, other := range members {
			if other != port {
				treatment = append(treatment, output(other))
			}
		}
		for _, tunnel := range sortedPorts(tunnelPorts) {
			treatment = append(treatment, output(tunnel))
		}
		r.apply(Add, device, MacTable, localBcastPriority, localBcastSelector(vni, port), treatment)
	}
	if op == Remove {
		r.apply(Remove, device, MacTable, localBcastPriority, localBcastSelector(vni, inPort), nil)
	}
}

func localBcastSelector(vni uint32, inPort topology.PortNumber) Selector {
	return Selector{TunnelID: vniString(vni), InPort: portString(inPort), EthDst: broadcastMAC}
}

// ProgramTunnelBcastRules floods broadcast received from tunnels to the local
// ports of the network. The rules are removed once no local port is left.
func (r *Renderer) ProgramTunnelBcastRules(device topology.DeviceID, vni uint32,
	localPorts []topology.PortNumber, tunnelPorts []topology.PortNumber, op Operation) {

	var treatment Treatment
	for _, port := range sortedPorts(localPorts) {
		treatment = append(treatment, output(port))
	}
	for _, tunnel := range tunnelPorts {
		tunnelOp := op
		if len(treatment) == 0 {
			tunnelOp = Remove
		}
		r.apply(tunnelOp, device, MacTable, tunnelBcastPriority,
			Selector{TunnelID: vniString(vni), InPort: portString(tunnel), EthDst: broadcastMAC},
			treatment)
	}
}

// ProgramLocalOut delivers traffic for a local VM.
func (r *Renderer) ProgramLocalOut(device topology.DeviceID, vni uint32, outPort topology.PortNumber,
	dstMAC string, op Operation) {

	r.apply(op, device, MacTable, localOutPriority,
		Selector{TunnelID: vniString(vni), EthDst: dstMAC},
		Treatment{output(outPort)})
}

// ProgramExternalOut sends traffic of the external network out of the external port.
func (r *Renderer) ProgramExternalOut(device topology.DeviceID, vni uint32, exPort topology.PortNumber,
	exPortMAC string, op Operation) {

	r.apply(op, device, MacTable, externalOutPriority,
		Selector{TunnelID: vniString(vni), EthSrc: exPortMAC},
		Treatment{output(exPort)})
}

// ProgramTunnelOut sends traffic for a remote VM into the tunnel toward the
// controller of that VM.
func (r *Renderer) ProgramTunnelOut(device topology.DeviceID, vni uint32, tunnelPort topology.PortNumber,
	dstMAC string, op Operation, remoteIP net.IP) {

	r.apply(op, device, MacTable, tunnelOutPriority,
		Selector{TunnelID: vniString(vni), EthDst: dstMAC},
		Treatment{setTunnelDst(remoteIP.String()), output(tunnelPort)})
}

const broadcastMAC = "ff:ff:ff:ff:ff:ff"

/******************************** L3 forward ********************************/

// ProgramRouteRules routes traffic of the router to a VM.
func (r *Renderer) ProgramRouteRules(device topology.DeviceID, l3vni uint32, dstIP net.IP,
	dstVNI uint32, gwMAC, dstMAC string, op Operation) {

	r.apply(op, device, L3ForwardTable, routePriority,
		Selector{TunnelID: vniString(l3vni), EthType: EthTypeIPv4, IPv4Dst: hostPrefix(dstIP)},
		Treatment{setEthSrc(gwMAC), setEthDst(dstMAC), setTunnelID(dstVNI), gotoTable(MacTable)})
}

/*********************************** ARP ************************************/

// ProgramArpRules answers ARP requests for the gateway.
func (r *Renderer) ProgramArpRules(device topology.DeviceID, gwIP net.IP, vni uint32, gwMAC string,
	op Operation) {

	r.apply(op, device, ArpTable, arpPriority,
		Selector{TunnelID: vniString(vni), EthType: EthTypeARP, ArpTPA: gwIP.String()},
		Treatment{arpReply, setEthSrc(gwMAC), "output:IN_PORT"})
}

/*********************************** SNAT ***********************************/

// ProgramSnatSameSegmentRules translates traffic of the fixed IP toward a peer
// on the external segment.
func (r *Renderer) ProgramSnatSameSegmentRules(device topology.DeviceID, l3vni uint32,
	fixedIP, dstIP net.IP, dstMAC, srcMAC string, srcIP net.IP, exVNI uint32, op Operation) {

	r.apply(op, device, SnatTable, snatSameSegmentPriority,
		Selector{TunnelID: vniString(l3vni), EthType: EthTypeIPv4,
			IPv4Src: hostPrefix(fixedIP), IPv4Dst: hostPrefix(dstIP)},
		Treatment{setEthDst(dstMAC), setEthSrc(srcMAC), setIPv4Src(srcIP.String()),
			setTunnelID(exVNI), gotoTable(MacTable)})
}

// ProgramSnatDiffSegmentRules translates traffic of the fixed IP toward the
// external gateway.
func (r *Renderer) ProgramSnatDiffSegmentRules(device topology.DeviceID, l3vni uint32,
	fixedIP net.IP, dstMAC, srcMAC string, srcIP net.IP, exVNI uint32, op Operation) {

	r.apply(op, device, SnatTable, snatDiffSegmentPriority,
		Selector{TunnelID: vniString(l3vni), EthType: EthTypeIPv4, IPv4Src: hostPrefix(fixedIP)},
		Treatment{setEthDst(dstMAC), setEthSrc(srcMAC), setIPv4Src(srcIP.String()),
			setTunnelID(exVNI), gotoTable(MacTable)})
}

// ProgramSnatSameSegmentUploadControllerRules uploads first packets of the
// fixed IP to the controller to resolve the next hop.
func (r *Renderer) ProgramSnatSameSegmentUploadControllerRules(device topology.DeviceID, l3vni uint32,
	fixedIP, floatingIP net.IP, prefix *net.IPNet, op Operation) {

	r.apply(op, device, SnatTable, snatUploadPriority,
		Selector{TunnelID: vniString(l3vni), EthType: EthTypeIPv4,
			IPv4Src: hostPrefix(fixedIP), IPv4Dst: prefix.String()},
		Treatment{setIPv4Src(floatingIP.String()), toController})
}

// RemoveSnatRules removes the given SNAT entry.
func (r *Renderer) RemoveSnatRules(device topology.DeviceID, entry *FlowEntry) {
	r.apply(Remove, device, SnatTable, entry.Priority, entry.Selector, nil)
}

/*********************************** DNAT ***********************************/

// ProgramRules translates the floating IP to the fixed IP.
func (r *Renderer) ProgramRules(device topology.DeviceID, floatingIP net.IP, exPortMAC string,
	fixedIP net.IP, l3vni uint32, op Operation) {

	r.apply(op, device, DnatTable, dnatPriority,
		Selector{EthType: EthTypeIPv4, IPv4Dst: hostPrefix(floatingIP)},
		Treatment{setEthSrc(exPortMAC), setIPv4Dst(fixedIP.String()), setTunnelID(l3vni),
			gotoTable(L3ForwardTable)})
}

/********************************** Groups **********************************/

// AddGroup installs or replaces the group with the given key.
func (r *Renderer) AddGroup(group *GroupDescription) {
	r.Lock()
	defer r.Unlock()
	groups, exists := r.groups[group.Device]
	if !exists {
		groups = make(map[string]*GroupDescription)
		r.groups[group.Device] = groups
	}
	groups[group.Key] = group
	r.Log.Debugf("Installed group %d (key=%s) on %s with %d buckets",
		group.GroupID, group.Key, group.Device, len(group.Buckets))
}

// RemoveGroup removes the group with the given key.
func (r *Renderer) RemoveGroup(device topology.DeviceID, key string) {
	r.Lock()
	defer r.Unlock()
	delete(r.groups[device], key)
}

// GetGroup returns group installed under the key, nil if none.
func (r *Renderer) GetGroup(device topology.DeviceID, key string) *GroupDescription {
	r.Lock()
	defer r.Unlock()
	return r.groups[device][key]
}

// NewTunnelBucket returns bucket sending packet through the tunnel port
// toward the given controller IP.
func NewTunnelBucket(remoteIP net.IP, tunnelPort topology.PortNumber) GroupBucket {
	return GroupBucket{Treatment: Treatment{setTunnelDst(remoteIP.String()), output(tunnelPort)}}
}

/******************************** Flow query ********************************/

// GetFlowEntries returns entries of the table installed on the device.
func (r *Renderer) GetFlowEntries(device topology.DeviceID, table TableID) []*FlowEntry {
	return r.lookup(deviceTableIndex, deviceTableKey(device, table))
}

// GetAllFlowEntries returns all installed entries.
func (r *Renderer) GetAllFlowEntries() []*FlowEntry {
	var entries []*FlowEntry
	for _, id := range r.entries.ListAllNames() {
		if value, found := r.entries.GetValue(id); found {
			entries = append(entries, value.(*FlowEntry))
		}
	}
	sortEntries(entries)
	return entries
}

func (r *Renderer) lookup(index, key string) []*FlowEntry {
	var entries []*FlowEntry
	for _, id := range r.entries.ListNames(index, key) {
		if value, found := r.entries.GetValue(id); found {
			entries = append(entries, value.(*FlowEntry))
		}
	}
	sortEntries(entries)
	return entries
}

func sortEntries(entries []*FlowEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return strings.Compare(entries[i].ID, entries[j].ID) < 0
	})
}

/********************************* Pipeline *********************************/

// InitPipeline installs table-miss rules on a newly managed switch.
func (r *Renderer) InitPipeline(device topology.DeviceID) {
	r.apply(Add, device, SnatTable, SnatDefaultRulePriority, Selector{}, Treatment{gotoTable(MacTable)})
}

// ClearPipeline removes all entries and groups of the device.
func (r *Renderer) ClearPipeline(device topology.DeviceID) {
	for _, entry := range r.lookup(deviceIndex, string(device)) {
		r.entries.Delete(entry.ID)
	}
	r.Lock()
	delete(r.groups, device)
	r.Unlock()
	r.Log.Infof("Cleared pipeline of %s", device)
}
