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
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	. "github.com/onsi/gomega"

	"github.com/contiv/vtn/plugins/packetio"
	"github.com/contiv/vtn/plugins/topology"
	"github.com/contiv/vtn/plugins/vtnrsc"
)

func (f *fixture) deliverARPRequest(device topology.DeviceID, senderMAC net.HardwareAddr,
	senderIP, targetIP string) {

	data, err := packetio.BuildARPRequest(senderMAC, net.ParseIP(senderIP), net.ParseIP(targetIP))
	Expect(err).ToNot(HaveOccurred())
	f.pio.Deliver(&packetio.InboundPacket{Device: device, InPort: 2, Data: data})
}

func (f *fixture) deliverARPReply(device topology.DeviceID, senderMAC net.HardwareAddr,
	senderIP, targetIP string) {

	exMAC, _ := net.ParseMAC(exPortMAC)
	data, err := packetio.BuildARPReply(senderMAC, net.ParseIP(senderIP), exMAC, net.ParseIP(targetIP))
	Expect(err).ToNot(HaveOccurred())
	f.pio.Deliver(&packetio.InboundPacket{Device: device, InPort: 2, Data: data})
}

// deliverIPv4 delivers packet uploaded by the SNAT table.
func (f *fixture) deliverIPv4(device topology.DeviceID, dstMAC, srcIP, dstIP string) {
	src, _ := net.ParseMAC(vm1MAC)
	dst, _ := net.ParseMAC(dstMAC)
	eth := &layers.Ethernet{SrcMAC: src, DstMAC: dst, EthernetType: layers.EthernetTypeIPv4}
	ip := &layers.IPv4{Version: 4, IHL: 5, TTL: 64, Protocol: layers.IPProtocolICMPv4,
		SrcIP: net.ParseIP(srcIP).To4(), DstIP: net.ParseIP(dstIP).To4()}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	Expect(gopacket.SerializeLayers(buf, opts, eth, ip, gopacket.Payload([]byte{8, 0, 0, 0}))).To(Succeed())
	f.pio.Deliver(&packetio.InboundPacket{Device: device, InPort: 3, Data: buf.Bytes()})
}

// lastEmitted decodes the most recently emitted packet.
func (f *fixture) lastEmitted() (*packetio.OutboundPacket, *packetio.Frame) {
	emitted := f.pio.GetEmitted()
	Expect(emitted).ToNot(BeEmpty())
	packet := emitted[len(emitted)-1]
	frame, err := packetio.DecodeFrame(packet.Data)
	Expect(err).ToNot(HaveOccurred())
	return packet, frame
}

func newBoundFixture() *fixture {
	f := newFixture("node1", masterOfAll())
	f.joinBothNodes()
	f.setupTenant()
	f.topo.AddHost(vmHost("h1", vm1MAC, sw1, 3, "vm1"))
	f.inv.PutFloatingIP(floatingIP("fip1", "203.0.113.5", "10.0.0.7", "vm1"))
	return f
}

func TestUpstreamARPTargetFixedSubnet(t *testing.T) {
	RegisterTestingT(t)

	// the external subnet of the floating IP is known, the target still
	// follows the fixed subnet of the VM
	f := newBoundFixture()
	exMAC, _ := net.ParseMAC(exPortMAC)
	for dst, target := range map[string]string{
		"10.0.0.50":   "10.0.0.50",
		"8.8.8.8":     "10.0.0.1",
		"203.0.113.9": "10.0.0.1",
	} {
		f.deliverIPv4(sw1, gw1MAC, "10.0.0.7", dst)
		packet, frame := f.lastEmitted()
		Expect(packet.Device).To(Equal(sw1))
		Expect(packet.OutPort).To(BeEquivalentTo(2))
		Expect(frame.DstMAC).To(Equal(packetio.BroadcastMAC))
		Expect(frame.ARP).ToNot(BeNil())
		Expect(frame.ARP.IsRequest()).To(BeTrue())
		Expect(frame.ARP.SenderMAC).To(Equal(exMAC))
		Expect(frame.ARP.SenderIP.Equal(net.ParseIP("203.0.113.5"))).To(BeTrue())
		Expect(frame.ARP.TargetIP.String()).To(Equal(target))
	}
}

func TestUpstreamWithoutFixedSubnet(t *testing.T) {
	RegisterTestingT(t)

	f := newBoundFixture()
	f.inv.PutPort(&vtnrsc.VirtualPort{ID: "vm1", TenantID: tenant, NetworkID: "net1",
		MAC: vm1MAC, FixedIPs: fixedIP("unknown", "10.0.0.7"), DeviceID: "dev1"})
	f.deliverIPv4(sw1, gw1MAC, "10.0.0.7", "8.8.8.8")
	Expect(f.pio.GetEmitted()).To(BeEmpty())
}

func TestUpstreamIgnoresUnboundAndMulticast(t *testing.T) {
	RegisterTestingT(t)

	f := newBoundFixture()
	f.deliverIPv4(sw1, gw1MAC, "10.0.0.99", "8.8.8.8")
	f.deliverIPv4(sw1, "01:00:5e:00:00:fb", "10.0.0.7", "224.0.0.251")
	f.pio.Deliver(&packetio.InboundPacket{Device: sw1, InPort: 3, Data: []byte{1, 2, 3}})
	Expect(f.pio.GetEmitted()).To(BeEmpty())
}

func TestARPRequestForFloatingIP(t *testing.T) {
	RegisterTestingT(t)

	f := newBoundFixture()
	peerMAC, _ := net.ParseMAC("fa:16:3e:aa:aa:01")
	f.deliverARPRequest(sw1, peerMAC, "203.0.113.1", "203.0.113.5")

	// the peer is the gateway, both SNAT variants are installed
	Expect(f.snatEntriesOf("10.0.0.7")).To(HaveLen(3))

	packet, frame := f.lastEmitted()
	Expect(packet.OutPort).To(BeEquivalentTo(2))
	Expect(frame.DstMAC).To(Equal(peerMAC))
	Expect(frame.ARP.IsReply()).To(BeTrue())
	Expect(frame.ARP.SenderIP.Equal(net.ParseIP("203.0.113.5"))).To(BeTrue())
	Expect(frame.ARP.SenderMAC.String()).To(Equal(exPortMAC))
	Expect(frame.ARP.TargetIP.Equal(net.ParseIP("203.0.113.1"))).To(BeTrue())
}

func TestARPRequestOnOtherDeviceIgnored(t *testing.T) {
	RegisterTestingT(t)

	f := newBoundFixture()
	peerMAC, _ := net.ParseMAC("fa:16:3e:aa:aa:01")
	f.deliverARPRequest(sw2, peerMAC, "203.0.113.1", "203.0.113.5")
	f.deliverARPRequest(sw1, peerMAC, "203.0.113.1", "203.0.113.77")
	Expect(f.snatEntriesOf("10.0.0.7")).To(HaveLen(1))
	Expect(f.pio.GetEmitted()).To(BeEmpty())
}
