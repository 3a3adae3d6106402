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
	"testing"

	"github.com/ligato/cn-infra/logging"
	. "github.com/onsi/gomega"
)

var (
	exMAC, _ = net.ParseMAC("fa:16:3e:00:00:ee")
	vmMAC, _ = net.ParseMAC("fa:16:3e:00:00:07")
)

func TestARPRequestRoundTrip(t *testing.T) {
	RegisterTestingT(t)

	data, err := BuildARPRequest(exMAC, net.ParseIP("203.0.113.5"), net.ParseIP("203.0.113.1"))
	Expect(err).ToNot(HaveOccurred())
	Expect(data).To(HaveLen(60))

	frame, err := DecodeFrame(data)
	Expect(err).ToNot(HaveOccurred())
	Expect(frame.DstMAC).To(Equal(BroadcastMAC))
	Expect(frame.SrcMAC).To(Equal(exMAC))
	Expect(frame.IPv4).To(BeNil())
	Expect(frame.ARP).ToNot(BeNil())
	Expect(frame.ARP.IsRequest()).To(BeTrue())
	Expect(frame.ARP.TargetMAC).To(Equal(zeroMAC))
	Expect(frame.ARP.SenderIP.Equal(net.ParseIP("203.0.113.5"))).To(BeTrue())
	Expect(frame.ARP.TargetIP.Equal(net.ParseIP("203.0.113.1"))).To(BeTrue())
}

func TestARPReply(t *testing.T) {
	RegisterTestingT(t)

	data, err := BuildARPReply(exMAC, net.ParseIP("203.0.113.5"), vmMAC, net.ParseIP("203.0.113.9"))
	Expect(err).ToNot(HaveOccurred())
	frame, err := DecodeFrame(data)
	Expect(err).ToNot(HaveOccurred())
	Expect(frame.DstMAC).To(Equal(vmMAC))
	Expect(frame.ARP.IsReply()).To(BeTrue())
	Expect(frame.ARP.SenderMAC).To(Equal(exMAC))
	Expect(frame.ARP.TargetMAC).To(Equal(vmMAC))

	_, err = BuildARPReply(exMAC, net.ParseIP("fe80::1"), vmMAC, net.ParseIP("203.0.113.9"))
	Expect(err).To(HaveOccurred())
}

func TestDeliverAndEmit(t *testing.T) {
	RegisterTestingT(t)

	s := NewPlugin(UseDeps(func(deps *Deps) {
		deps.Log = logging.ForPlugin("packetio-test")
		deps.HTTPHandlers = nil
	}))
	Expect(s.Init()).To(Succeed())

	var order []string
	s.AddProcessor("second", 20, ProcessorFunc(func(*InboundPacket) { order = append(order, "second") }))
	s.AddProcessor("first", 10, ProcessorFunc(func(*InboundPacket) { order = append(order, "first") }))
	s.Deliver(&InboundPacket{Device: "of:1", InPort: 2})
	Expect(order).To(Equal([]string{"first", "second"}))

	s.RemoveProcessor("first")
	s.Deliver(&InboundPacket{Device: "of:1", InPort: 2})
	Expect(order).To(HaveLen(3))

	var sent int
	s.SetSink(func(*OutboundPacket) error { sent++; return nil })
	Expect(s.Emit(&OutboundPacket{Device: "of:1", OutPort: 5})).To(Succeed())
	Expect(s.Emit(&OutboundPacket{})).ToNot(Succeed())
	Expect(sent).To(Equal(1))
	Expect(s.GetEmitted()).To(HaveLen(1))
}
