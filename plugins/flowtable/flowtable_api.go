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

	"github.com/contiv/vtn/plugins/topology"
)

// ClassifierService programs the classifier table.
type ClassifierService interface {
	// ProgramLocalIn classifies traffic from a local VM port into its network.
	ProgramLocalIn(device topology.DeviceID, vni uint32, inPort topology.PortNumber,
		srcMAC string, op Operation)

	// ProgramTunnelIn classifies traffic arriving on the tunnel ports.
	ProgramTunnelIn(device topology.DeviceID, vni uint32, tunnelPorts []topology.PortNumber,
		op Operation)

	// ProgramL3ExPortClassifierRules sends traffic for the floating IP
	// from the external port into the DNAT table.
	ProgramL3ExPortClassifierRules(device topology.DeviceID, exPort topology.PortNumber,
		floatingIP net.IP, op Operation)

	// ProgramL3InPortClassifierRules sends traffic of a VM addressed to its gateway
	// into L3 forwarding of the router.
	ProgramL3InPortClassifierRules(device topology.DeviceID, inPort topology.PortNumber,
		srcMAC, gwMAC string, l3vni uint32, op Operation)

	// ProgramArpClassifierRules sends ARP requests for the gateway into the ARP table.
	ProgramArpClassifierRules(device topology.DeviceID, inPort topology.PortNumber,
		gwIP net.IP, vni uint32, op Operation)

	// ProgramUserdataClassifierRules handles metadata traffic of the subnet.
	ProgramUserdataClassifierRules(device topology.DeviceID, cidr *net.IPNet, dstIP net.IP,
		dstMAC string, vni uint32, op Operation)

	// ProgramExportPortArpClassifierRules uploads ARP seen on the external port
	// to the controller.
	ProgramExportPortArpClassifierRules(device topology.DeviceID, exPort topology.PortNumber,
		op Operation)
}

// L2ForwardService programs the MAC table.
type L2ForwardService interface {
	// ProgramLocalBcastRules floods broadcast from a local port to the other
	// local ports of the network and to the tunnel ports.
	ProgramLocalBcastRules(device topology.DeviceID, vni uint32, inPort topology.PortNumber,
		localPorts []topology.PortNumber, tunnelPorts []topology.PortNumber, op Operation)

	// ProgramTunnelBcastRules floods broadcast received from tunnels to the
	// local ports of the network.
	ProgramTunnelBcastRules(device topology.DeviceID, vni uint32,
		localPorts []topology.PortNumber, tunnelPorts []topology.PortNumber, op Operation)

	// ProgramLocalOut delivers traffic for a local VM.
	ProgramLocalOut(device topology.DeviceID, vni uint32, outPort topology.PortNumber,
		dstMAC string, op Operation)

	// ProgramExternalOut sends traffic of the external network out of the external port.
	ProgramExternalOut(device topology.DeviceID, vni uint32, exPort topology.PortNumber,
		exPortMAC string, op Operation)

	// ProgramTunnelOut sends traffic for a remote VM into the tunnel toward
	// the controller of that VM.
	ProgramTunnelOut(device topology.DeviceID, vni uint32, tunnelPort topology.PortNumber,
		dstMAC string, op Operation, remoteIP net.IP)
}

// L3ForwardService programs the L3 forwarding table.
type L3ForwardService interface {
	// ProgramRouteRules routes traffic of the router to a VM.
	ProgramRouteRules(device topology.DeviceID, l3vni uint32, dstIP net.IP, dstVNI uint32,
		gwMAC, dstMAC string, op Operation)
}

// ArpService programs the ARP table.
type ArpService interface {
	// ProgramArpRules answers ARP requests for the gateway.
	ProgramArpRules(device topology.DeviceID, gwIP net.IP, vni uint32, gwMAC string, op Operation)
}

// SnatService programs the SNAT table.
type SnatService interface {
	// ProgramSnatSameSegmentRules translates traffic of the fixed IP toward
	// a peer on the external segment.
	ProgramSnatSameSegmentRules(device topology.DeviceID, l3vni uint32, fixedIP, dstIP net.IP,
		dstMAC, srcMAC string, srcIP net.IP, exVNI uint32, op Operation)

	// ProgramSnatDiffSegmentRules translates traffic of the fixed IP toward
	// the external gateway.
	ProgramSnatDiffSegmentRules(device topology.DeviceID, l3vni uint32, fixedIP net.IP,
		dstMAC, srcMAC string, srcIP net.IP, exVNI uint32, op Operation)

	// ProgramSnatSameSegmentUploadControllerRules uploads first packets of
	// the fixed IP to the controller to resolve the next hop.
	ProgramSnatSameSegmentUploadControllerRules(device topology.DeviceID, l3vni uint32,
		fixedIP, floatingIP net.IP, prefix *net.IPNet, op Operation)

	// RemoveSnatRules removes the given SNAT entry.
	RemoveSnatRules(device topology.DeviceID, entry *FlowEntry)
}

// DnatService programs the DNAT table.
type DnatService interface {
	// ProgramRules translates the floating IP to the fixed IP.
	ProgramRules(device topology.DeviceID, floatingIP net.IP, exPortMAC string, fixedIP net.IP,
		l3vni uint32, op Operation)
}

// GroupService installs groups.
type GroupService interface {
	// AddGroup installs or replaces the group with the given key.
	AddGroup(group *GroupDescription)

	// RemoveGroup removes the group with the given key.
	RemoveGroup(device topology.DeviceID, key string)

	// GetGroup returns group installed under the key, nil if none.
	GetGroup(device topology.DeviceID, key string) *GroupDescription
}

// FlowQuery reads installed flow entries.
type FlowQuery interface {
	// GetFlowEntries returns entries of the table installed on the device.
	GetFlowEntries(device topology.DeviceID, table TableID) []*FlowEntry

	// GetAllFlowEntries returns all installed entries.
	GetAllFlowEntries() []*FlowEntry
}

// PipelineService initializes the pipeline of a device.
type PipelineService interface {
	// InitPipeline installs table-miss rules on a newly managed switch.
	InitPipeline(device topology.DeviceID)

	// ClearPipeline removes all entries and groups of the device.
	ClearPipeline(device topology.DeviceID)
}

// API groups all the services implemented by Renderer.
type API interface {
	ClassifierService
	L2ForwardService
	L3ForwardService
	ArpService
	SnatService
	DnatService
	GroupService
	FlowQuery
	PipelineService
}
