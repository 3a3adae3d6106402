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
	"fmt"
	"sort"
	"strings"

	"github.com/contiv/vtn/plugins/topology"
)

// Operation is the direction of a programming request.
type Operation int

const (
	// Add installs rules.
	Add Operation = iota
	// Remove uninstalls rules.
	Remove
)

// String converts Operation into a human-readable string.
func (op Operation) String() string {
	if op == Remove {
		return "REMOVE"
	}
	return "ADD"
}

// TableID identifies table of the VTN pipeline.
type TableID uint8

const (
	// ClassifierTable classifies traffic by ingress port.
	ClassifierTable TableID = 0
	// ArpTable answers ARP requests for gateways.
	ArpTable TableID = 10
	// DnatTable translates floating IPs to fixed IPs.
	DnatTable TableID = 20
	// L3ForwardTable routes between subnets of a tenant router.
	L3ForwardTable TableID = 30
	// SnatTable translates fixed IPs to floating IPs.
	SnatTable TableID = 40
	// MacTable forwards by destination MAC.
	MacTable TableID = 50
)

// SnatDefaultRulePriority is the priority of the table-miss rule of the SNAT table.
const SnatDefaultRulePriority = 0

// Criterion is a match field of a selector.
type Criterion string

// Match fields used by the VTN pipeline.
const (
	InPort   Criterion = "in_port"
	EthSrc   Criterion = "eth_src"
	EthDst   Criterion = "eth_dst"
	EthType  Criterion = "eth_type"
	TunnelID Criterion = "tunnel_id"
	IPv4Src  Criterion = "ipv4_src"
	IPv4Dst  Criterion = "ipv4_dst"
	ArpTPA   Criterion = "arp_tpa"
	ArpOp    Criterion = "arp_op"
)

// EtherType values used in selectors.
const (
	EthTypeIPv4 = "0x0800"
	EthTypeARP  = "0x0806"
)

// Selector is a set of match fields.
type Selector map[Criterion]string

// String returns match fields sorted by name, used in entry IDs.
func (s Selector) String() string {
	var fields []string
	for criterion, value := range s {
		fields = append(fields, string(criterion)+"="+value)
	}
	sort.Strings(fields)
	return strings.Join(fields, ",")
}

// Treatment is the ordered list of actions of a rule.
type Treatment []string

// FlowEntry is a rule installed on a device.
type FlowEntry struct {
	ID        string            `json:"id"`
	Device    topology.DeviceID `json:"device"`
	Table     TableID           `json:"table"`
	Priority  int               `json:"priority"`
	Selector  Selector          `json:"selector"`
	Treatment Treatment         `json:"treatment"`
	Owner     string            `json:"owner"`
}

// String returns human-readable representation of the flow entry.
func (e *FlowEntry) String() string {
	return fmt.Sprintf("<%s table=%d prio=%d match[%s] actions%v>", e.Device, e.Table, e.Priority,
		e.Selector, e.Treatment)
}

// flowEntryID computes the key of the entry. Treatment is not part of the key.
func flowEntryID(device topology.DeviceID, table TableID, priority int, selector Selector) string {
	return fmt.Sprintf("%s/%d/%d/%s", device, table, priority, selector)
}

// GroupType is the type of group.
type GroupType string

// GroupAll replicates packets to all buckets.
const GroupAll GroupType = "ALL"

// GroupBucket is a list of actions of one group bucket.
type GroupBucket struct {
	Treatment Treatment `json:"treatment"`
}

// GroupDescription describes a group installed on a device.
type GroupDescription struct {
	Device  topology.DeviceID `json:"device"`
	Type    GroupType         `json:"type"`
	Buckets []GroupBucket     `json:"buckets"`
	Key     string            `json:"key"`
	GroupID uint32            `json:"groupId"`
	AppID   string            `json:"appId"`
}

// action builders
func output(port topology.PortNumber) string { return fmt.Sprintf("output:%d", port) }
func setTunnelID(vni uint32) string          { return fmt.Sprintf("set_tunnel_id:%d", vni) }
func setTunnelDst(ip string) string          { return "set_tunnel_dst:" + ip }
func setEthSrc(mac string) string            { return "set_eth_src:" + mac }
func setEthDst(mac string) string            { return "set_eth_dst:" + mac }
func setIPv4Src(ip string) string            { return "set_ipv4_src:" + ip }
func setIPv4Dst(ip string) string            { return "set_ipv4_dst:" + ip }
func gotoTable(table TableID) string         { return fmt.Sprintf("goto_table:%d", table) }
func group(groupID uint32) string            { return fmt.Sprintf("group:%d", groupID) }

const (
	toController = "output:CONTROLLER"
	arpReply     = "arp_reply"
)
