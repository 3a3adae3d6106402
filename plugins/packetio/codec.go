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

package packetio

import (
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/pkg/errors"
)

var (
	// BroadcastMAC is the Ethernet broadcast address.
	BroadcastMAC = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	zeroMAC      = net.HardwareAddr{0, 0, 0, 0, 0, 0}
)

// ARP is a decoded ARP message.
type ARP struct {
	Operation uint16
	SenderMAC net.HardwareAddr
	SenderIP  net.IP
	TargetMAC net.HardwareAddr
	TargetIP  net.IP
}

// IsRequest returns true for ARP requests.
func (a *ARP) IsRequest() bool {
	return a.Operation == layers.ARPRequest
}

// IsReply returns true for ARP replies.
func (a *ARP) IsReply() bool {
	return a.Operation == layers.ARPReply
}

// IPv4 holds addresses of a decoded IPv4 header.
type IPv4 struct {
	SrcIP net.IP
	DstIP net.IP
}

// Frame is a decoded Ethernet frame.
type Frame struct {
	SrcMAC net.HardwareAddr
	DstMAC net.HardwareAddr
	ARP    *ARP
	IPv4   *IPv4
}

// DecodeFrame decodes Ethernet frame carrying ARP or IPv4.
func DecodeFrame(data []byte) (*Frame, error) {
	packet := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.Default)
	ethLayer := packet.Layer(layers.LayerTypeEthernet)
	if ethLayer == nil {
		return nil, errors.New("not an ethernet frame")
	}
	eth := ethLayer.(*layers.Ethernet)
	frame := &Frame{SrcMAC: eth.SrcMAC, DstMAC: eth.DstMAC}

	if arpLayer := packet.Layer(layers.LayerTypeARP); arpLayer != nil {
		arp := arpLayer.(*layers.ARP)
		frame.ARP = &ARP{
			Operation: arp.Operation,
			SenderMAC: net.HardwareAddr(arp.SourceHwAddress),
			SenderIP:  net.IP(arp.SourceProtAddress),
			TargetMAC: net.HardwareAddr(arp.DstHwAddress),
			TargetIP:  net.IP(arp.DstProtAddress),
		}
	}
	if ipLayer := packet.Layer(layers.LayerTypeIPv4); ipLayer != nil {
		ip := ipLayer.(*layers.IPv4)
		frame.IPv4 = &IPv4{SrcIP: ip.SrcIP, DstIP: ip.DstIP}
	}
	if errLayer := packet.ErrorLayer(); errLayer != nil && frame.ARP == nil && frame.IPv4 == nil {
		return nil, errors.Wrap(errLayer.Error(), "failed to decode frame")
	}
	return frame, nil
}

// BuildARPRequest builds broadcast ARP request for targetIP.
func BuildARPRequest(senderMAC net.HardwareAddr, senderIP, targetIP net.IP) ([]byte, error) {
	return buildARP(layers.ARPRequest, senderMAC, senderIP, BroadcastMAC, zeroMAC, targetIP)
}

// BuildARPReply builds ARP reply announcing senderMAC as owner of senderIP,
// unicast to targetMAC.
func BuildARPReply(senderMAC net.HardwareAddr, senderIP net.IP, targetMAC net.HardwareAddr,
	targetIP net.IP) ([]byte, error) {
	return buildARP(layers.ARPReply, senderMAC, senderIP, targetMAC, targetMAC, targetIP)
}

func buildARP(operation uint16, senderMAC net.HardwareAddr, senderIP net.IP,
	ethDst, targetMAC net.HardwareAddr, targetIP net.IP) ([]byte, error) {

	senderIP4, targetIP4 := senderIP.To4(), targetIP.To4()
	if senderIP4 == nil || targetIP4 == nil {
		return nil, errors.Errorf("ARP requires IPv4 addresses (sender=%v, target=%v)", senderIP, targetIP)
	}
	ethernetLayer := layers.Ethernet{
		SrcMAC:       senderMAC,
		DstMAC:       ethDst,
		EthernetType: layers.EthernetTypeARP,
	}
	arpLayer := layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         operation,
		SourceHwAddress:   senderMAC,
		SourceProtAddress: senderIP4,
		DstHwAddress:      targetMAC,
		DstProtAddress:    targetIP4,
	}
	serializeBuffer := gopacket.NewSerializeBuffer()
	if err := gopacket.SerializeLayers(serializeBuffer,
		gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true},
		&ethernetLayer, &arpLayer); err != nil {
		return nil, errors.Wrap(err, "failed to serialize ARP")
	}
	return serializeBuffer.Bytes(), nil
}
