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
	"github.com/contiv/vtn/plugins/packetio"
	"github.com/contiv/vtn/plugins/topology"
	"github.com/contiv/vtn/plugins/vtnrsc"
)

// processPacket answers ARP on behalf of floating IPs and resolves next hops
// of SNAT-ed traffic uploaded to the controller.
func (p *Plugin) processPacket(packet *packetio.InboundPacket) {
	frame, err := packetio.DecodeFrame(packet.Data)
	if err != nil {
		p.Log.Debugf("Dropping undecodable packet from %s/%d: %v", packet.Device, packet.InPort, err)
		p.countPacket("malformed")
		return
	}
	switch {
	case frame.ARP != nil && frame.ARP.IsRequest():
		p.countPacket("arp-request")
		p.processArpRequest(packet.Device, frame.ARP)
	case frame.ARP != nil && frame.ARP.IsReply():
		p.countPacket("arp-reply")
		p.processArpReply(packet.Device, frame.ARP)
	case frame.IPv4 != nil:
		if isMulticast(frame.DstMAC) {
			return
		}
		p.countPacket("ipv4")
		p.processUpstream(packet.Device, frame.IPv4)
	}
}

func (p *Plugin) countPacket(kind string) {
	if p.Stats != nil {
		p.Stats.CountPacket(kind)
	}
}

func isMulticast(mac net.HardwareAddr) bool {
	return len(mac) > 0 && mac[0]&0x01 == 0x01
}

// processArpRequest installs SNAT toward the requester and replies for the floating IP.
func (p *Plugin) processArpRequest(device topology.DeviceID, arp *packetio.ARP) {
	srcIP, dstIP, dstMAC := arp.TargetIP, arp.SenderIP, arp.SenderMAC
	fip := p.store.getFloatingIP(srcIP)
	if fip == nil || p.deviceOfFloatingIP(fip) != device {
		return
	}
	exPort := p.store.getExPort(device)
	if exPort == nil {
		p.handleError("ARP request", NewConfigurationMissing("no external port on device %s", device))
		return
	}
	srcMAC, err := net.ParseMAC(exPort.MAC)
	if err != nil {
		p.handleError("ARP request", NewMalformedAnnotation("external port %s has invalid MAC %q",
			exPort.Name, exPort.MAC))
		return
	}
	if !p.downloadSnatRules(device, srcMAC, srcIP, dstMAC, dstIP, fip) {
		return
	}
	reply, err := packetio.BuildARPReply(srcMAC, srcIP, dstMAC, dstIP)
	if err != nil {
		p.handleError("ARP request", err)
		return
	}
	p.emit(device, exPort.Number, reply)
}

// processArpReply installs SNAT toward the peer that answered our request.
func (p *Plugin) processArpReply(device topology.DeviceID, arp *packetio.ARP) {
	srcIP, dstIP := arp.TargetIP, arp.SenderIP
	srcMAC, dstMAC := arp.TargetMAC, arp.SenderMAC
	fip := p.store.getFloatingIP(srcIP)
	if fip == nil || p.deviceOfFloatingIP(fip) != device {
		return
	}
	p.downloadSnatRules(device, srcMAC, srcIP, dstMAC, dstIP, fip)
}

// downloadSnatRules installs SNAT rules of the floating IP toward the peer.
func (p *Plugin) downloadSnatRules(device topology.DeviceID, srcMAC net.HardwareAddr, srcIP net.IP,
	dstMAC net.HardwareAddr, dstIP net.IP, fip *vtnrsc.FloatingIP) bool {

	exVNI, err := p.networkVNI(fip.NetworkID)
	if err != nil {
		p.handleError("SNAT", err)
		return false
	}
	subnet := p.egressSubnet(fip, p.ports.GetPort(fip.PortID))
	if subnet == nil || subnet.IPNet() == nil {
		p.handleError("SNAT", NewLookupFailure("subnet of floating IP %s not found", fip.FloatingIP))
		return false
	}
	prefixLen, _ := subnet.IPNet().Mask.Size()
	if prefixLen <= 0 {
		return false
	}
	l3vni, err := p.l3VNI(fip.TenantRouter())
	if err != nil {
		p.handleError("SNAT", err)
		return false
	}
	if sameSegment(srcIP, dstIP, prefixLen) {
		p.FlowTable.ProgramSnatSameSegmentRules(device, l3vni, fip.FixedIP, dstIP, dstMAC.String(),
			srcMAC.String(), srcIP, exVNI, flowtable.Add)
		if dstIP.Equal(subnet.GatewayIP) {
			p.FlowTable.ProgramSnatDiffSegmentRules(device, l3vni, fip.FixedIP, dstMAC.String(),
				srcMAC.String(), srcIP, exVNI, flowtable.Add)
		}
	}
	return true
}

// processUpstream resolves next hop of traffic leaving through a floating IP.
func (p *Plugin) processUpstream(device topology.DeviceID, ip *packetio.IPv4) {
	var fip *vtnrsc.FloatingIP
	for _, f := range p.Inventory.GetFloatingIPs() {
		if f.FixedIP != nil && f.FixedIP.Equal(ip.SrcIP) {
			fip = f
			break
		}
	}
	if fip == nil {
		return
	}
	subnet := p.fixedSubnet(p.ports.GetPort(fip.PortID))
	if subnet == nil || subnet.IPNet() == nil {
		p.handleError("upstream packet", NewLookupFailure("fixed subnet of floating IP %s not found",
			fip.FloatingIP))
		return
	}
	exPort := p.store.getExPort(device)
	if exPort == nil {
		p.handleError("upstream packet", NewConfigurationMissing("no external port on device %s", device))
		return
	}
	exMAC, err := net.ParseMAC(exPort.MAC)
	if err != nil {
		p.handleError("upstream packet", NewMalformedAnnotation("external port %s has invalid MAC %q",
			exPort.Name, exPort.MAC))
		return
	}
	request, err := packetio.BuildARPRequest(exMAC, fip.FloatingIP, arpTarget(subnet, ip.DstIP))
	if err != nil {
		p.handleError("upstream packet", err)
		return
	}
	p.emit(device, exPort.Number, request)
}

// fixedSubnet returns subnet of the first fixed IP of the VM port.
func (p *Plugin) fixedSubnet(vmPort *vtnrsc.VirtualPort) *vtnrsc.Subnet {
	if vmPort == nil {
		return nil
	}
	if fixedIP, ok := vmPort.FirstFixedIP(); ok {
		return p.Inventory.GetSubnet(fixedIP.SubnetID)
	}
	return nil
}

// arpTarget returns address to resolve for the destination: the destination
// itself if on-link, the gateway otherwise.
func arpTarget(subnet *vtnrsc.Subnet, dstIP net.IP) net.IP {
	if subnet.IPNet().Contains(dstIP) {
		return dstIP
	}
	return subnet.GatewayIP
}

func (p *Plugin) emit(device topology.DeviceID, port topology.PortNumber, data []byte) {
	err := p.PacketIO.Emit(&packetio.OutboundPacket{Device: device, OutPort: port, Data: data})
	if err != nil {
		p.Log.Errorf("Failed to emit packet to %s/%d: %v", device, port, err)
	}
}
