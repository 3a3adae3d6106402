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
	"testing"

	"github.com/ligato/cn-infra/logging"
	. "github.com/onsi/gomega"
)

func newTestInventory(config *Config) *Inventory {
	inv := NewPlugin(UseDeps(func(deps *Deps) {
		deps.Log = logging.ForPlugin("vtnrsc-test")
		deps.HTTPHandlers = nil
		deps.Config = config
	}))
	Expect(inv.Init()).To(Succeed())
	return inv
}

func TestPortLookups(t *testing.T) {
	RegisterTestingT(t)

	inv := newTestInventory(defaultConfig())
	Expect(inv.PutSubnet(&Subnet{ID: "s1", NetworkID: "n1", CIDR: "10.0.0.0/24"})).To(Succeed())
	Expect(inv.GetSubnet("s1").GatewayIP.String()).To(Equal("10.0.0.1"))
	Expect(inv.PutSubnet(&Subnet{ID: "s2", CIDR: "10.0.1.0/24", GatewayIP: net.ParseIP("10.0.2.1")})).ToNot(Succeed())
	Expect(inv.PutSubnet(&Subnet{ID: "s3", CIDR: "invalid"})).ToNot(Succeed())

	port := &VirtualPort{ID: "p1", NetworkID: "n1", MAC: "fa:16:3e:00:00:01", DeviceID: "vm1",
		FixedIPs: []FixedIP{{SubnetID: "s1", IP: net.ParseIP("10.0.0.7")}}}
	var events []*ResourceEvent
	inv.Watch("test", func(event *ResourceEvent) { events = append(events, event) })
	inv.PutPort(port)

	Expect(events).To(HaveLen(1))
	Expect(events[0].Type).To(Equal(VirtualPortPut))
	Expect(inv.GetPort("p1")).To(Equal(port))
	Expect(inv.GetPortByFixedIP(FixedIP{SubnetID: "s1", IP: net.ParseIP("10.0.0.7")})).To(Equal(port))
	Expect(inv.GetPortByNetworkIP("n1", net.ParseIP("10.0.0.7"))).To(Equal(port))
	Expect(inv.GetPortByNetworkIP("n2", net.ParseIP("10.0.0.7"))).To(BeNil())
	Expect(inv.GetPortsByDeviceID("vm1")).To(ConsistOf(port))

	Expect(inv.DeletePort("p1")).To(Succeed())
	Expect(events[1].Type).To(Equal(VirtualPortDelete))
	Expect(inv.GetPort("p1")).To(BeNil())
	Expect(inv.DeletePort("p1")).ToNot(Succeed())
}

func TestFloatingIPEvents(t *testing.T) {
	RegisterTestingT(t)

	inv := newTestInventory(defaultConfig())
	var events []*ResourceEvent
	inv.Watch("test", func(event *ResourceEvent) { events = append(events, event) })

	fip := &FloatingIP{ID: "f1", TenantID: "t1", RouterID: "r1", FloatingIP: net.ParseIP("203.0.113.5")}
	inv.PutFloatingIP(fip)
	Expect(events).To(BeEmpty())

	bound := *fip
	bound.FixedIP = net.ParseIP("10.0.0.7")
	bound.PortID = "p1"
	inv.PutFloatingIP(&bound)
	Expect(events).To(HaveLen(1))
	Expect(events[0].Type).To(Equal(FloatingIPBind))

	// same binding again is not announced
	again := bound
	inv.PutFloatingIP(&again)
	Expect(events).To(HaveLen(1))

	inv.PutFloatingIP(fip)
	Expect(events).To(HaveLen(2))
	Expect(events[1].Type).To(Equal(FloatingIPUnbind))
	Expect(events[1].FloatingIP.FixedIP.String()).To(Equal("10.0.0.7"))

	inv.PutFloatingIP(&bound)
	Expect(inv.DeleteFloatingIP("f1")).To(Succeed())
	Expect(events).To(HaveLen(4))
	Expect(events[3].Type).To(Equal(FloatingIPUnbind))
	Expect(inv.GetFloatingIPs()).To(BeEmpty())
}

func TestL3VNIAllocation(t *testing.T) {
	RegisterTestingT(t)

	inv := newTestInventory(&Config{L3VNIPool: VNIRange{MinID: 100, MaxID: 101}})
	r1 := TenantRouter{TenantID: "t1", RouterID: "r1"}
	r2 := TenantRouter{TenantID: "t1", RouterID: "r2"}
	r3 := TenantRouter{TenantID: "t2", RouterID: "r1"}

	inv.PutRouterInterface(&RouterInterface{TenantID: "t1", RouterID: "r1", SubnetID: "s1", PortID: "gw1"})
	Expect(inv.GetL3VNI(r1)).To(BeEquivalentTo(100))
	Expect(inv.GetL3VNI(r1)).To(BeEquivalentTo(100))
	Expect(inv.GetL3VNI(r2)).To(BeEquivalentTo(101))
	Expect(inv.GetL3VNI(r3)).To(BeEquivalentTo(0))
	Expect(inv.GetRouterInterfacesOf(r1)).To(HaveLen(1))

	// last interface of r1 removed -> its VNI is reused
	Expect(inv.DeleteRouterInterface("gw1")).To(Succeed())
	Expect(inv.GetL3VNI(r3)).To(BeEquivalentTo(100))
}

func TestConfigValidation(t *testing.T) {
	RegisterTestingT(t)

	Expect(defaultConfig().validate()).To(Succeed())
	Expect((&Config{L3VNIPool: VNIRange{MinID: 10, MaxID: 5}}).validate()).ToNot(Succeed())
	Expect((&Config{L3VNIPool: VNIRange{MinID: 1, MaxID: 1 << 24}}).validate()).ToNot(Succeed())
}

func TestDevicesOfOVS(t *testing.T) {
	RegisterTestingT(t)

	inv := newTestInventory(defaultConfig())
	inv.AddDeviceOfOVS("p1", "t1", "of:1")
	inv.AddDeviceOfOVS("p2", "t1", "of:1")
	inv.AddDeviceOfOVS("p3", "t1", "of:2")
	Expect(inv.GetDevicesOfOVS("t1")).To(Equal([]string{"of:1", "of:2"}))

	inv.RemoveDeviceOfOVS("p1", "t1", "of:1")
	Expect(inv.GetDevicesOfOVS("t1")).To(Equal([]string{"of:1", "of:2"}))
	inv.RemoveDeviceOfOVS("p2", "t1", "of:1")
	inv.RemoveDeviceOfOVS("p3", "t1", "of:2")
	Expect(inv.GetDevicesOfOVS("t1")).To(BeEmpty())
}
