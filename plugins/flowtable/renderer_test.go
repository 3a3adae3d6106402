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
	"testing"

	"github.com/ligato/cn-infra/logging"
	. "github.com/onsi/gomega"

	"github.com/contiv/vtn/plugins/topology"
)

const sw1 = topology.DeviceID("of:0000c0a8010a0000")

func newTestRenderer() *Renderer {
	r := NewPlugin(UseDeps(func(deps *Deps) {
		deps.Log = logging.ForPlugin("flowtable-test")
	}))
	Expect(r.Init()).To(Succeed())
	return r
}

func TestIdempotentProgramming(t *testing.T) {
	RegisterTestingT(t)

	r := newTestRenderer()
	r.ProgramLocalIn(sw1, 100, 3, "fa:16:3e:00:00:01", Add)
	r.ProgramLocalIn(sw1, 100, 3, "fa:16:3e:00:00:01", Add)
	entries := r.GetFlowEntries(sw1, ClassifierTable)
	Expect(entries).To(HaveLen(1))
	Expect(entries[0].Selector).To(HaveKeyWithValue(InPort, "3"))
	Expect(entries[0].Treatment).To(ContainElement("set_tunnel_id:100"))

	r.ProgramLocalIn(sw1, 100, 3, "fa:16:3e:00:00:01", Remove)
	r.ProgramLocalIn(sw1, 100, 3, "fa:16:3e:00:00:01", Remove)
	Expect(r.GetFlowEntries(sw1, ClassifierTable)).To(BeEmpty())
}

func TestLocalBroadcast(t *testing.T) {
	RegisterTestingT(t)

	r := newTestRenderer()
	tunnels := []topology.PortNumber{1}
	r.ProgramLocalBcastRules(sw1, 100, 3, []topology.PortNumber{3}, tunnels, Add)
	r.ProgramLocalBcastRules(sw1, 100, 4, []topology.PortNumber{3, 4}, tunnels, Add)

	entries := r.GetFlowEntries(sw1, MacTable)
	Expect(entries).To(HaveLen(2))
	for _, entry := range entries {
		if entry.Selector[InPort] == "3" {
			Expect(entry.Treatment).To(Equal(Treatment{"output:4", "output:1"}))
		} else {
			Expect(entry.Treatment).To(Equal(Treatment{"output:3", "output:1"}))
		}
	}

	// removal refreshes the rule of the remaining port
	r.ProgramLocalBcastRules(sw1, 100, 4, []topology.PortNumber{3, 4}, tunnels, Remove)
	entries = r.GetFlowEntries(sw1, MacTable)
	Expect(entries).To(HaveLen(1))
	Expect(entries[0].Selector[InPort]).To(Equal("3"))
	Expect(entries[0].Treatment).To(Equal(Treatment{"output:1"}))
}

func TestTunnelBroadcast(t *testing.T) {
	RegisterTestingT(t)

	r := newTestRenderer()
	tunnels := []topology.PortNumber{1}
	r.ProgramTunnelBcastRules(sw1, 100, []topology.PortNumber{3, 4}, tunnels, Add)
	entries := r.GetFlowEntries(sw1, MacTable)
	Expect(entries).To(HaveLen(1))
	Expect(entries[0].Treatment).To(Equal(Treatment{"output:3", "output:4"}))

	r.ProgramTunnelBcastRules(sw1, 100, nil, tunnels, Add)
	Expect(r.GetFlowEntries(sw1, MacTable)).To(BeEmpty())
}

func TestSnatQueryAndRemoval(t *testing.T) {
	RegisterTestingT(t)

	r := newTestRenderer()
	r.InitPipeline(sw1)
	fixedIP := net.ParseIP("10.0.0.7")
	_, prefix, _ := net.ParseCIDR("203.0.113.0/24")
	r.ProgramSnatSameSegmentUploadControllerRules(sw1, 10000, fixedIP, net.ParseIP("203.0.113.5"), prefix, Add)
	r.ProgramSnatDiffSegmentRules(sw1, 10000, fixedIP, "fa:16:3e:00:00:aa", "fa:16:3e:00:00:bb",
		net.ParseIP("203.0.113.5"), 200, Add)

	entries := r.GetFlowEntries(sw1, SnatTable)
	Expect(entries).To(HaveLen(3))
	var removed int
	for _, entry := range entries {
		if entry.Priority > SnatDefaultRulePriority {
			r.RemoveSnatRules(sw1, entry)
			removed++
		}
	}
	Expect(removed).To(Equal(2))
	entries = r.GetFlowEntries(sw1, SnatTable)
	Expect(entries).To(HaveLen(1))
	Expect(entries[0].Priority).To(Equal(SnatDefaultRulePriority))
}

func TestGroupsAndClear(t *testing.T) {
	RegisterTestingT(t)

	r := newTestRenderer()
	r.AddGroup(&GroupDescription{
		Device:  sw1,
		Type:    GroupAll,
		Buckets: []GroupBucket{NewTunnelBucket(net.ParseIP("192.168.1.11"), 1)},
		Key:     "vtn",
		GroupID: 1,
	})
	group := r.GetGroup(sw1, "vtn")
	Expect(group).ToNot(BeNil())
	Expect(group.Buckets[0].Treatment).To(Equal(Treatment{"set_tunnel_dst:192.168.1.11", "output:1"}))

	r.RemoveGroup(sw1, "vtn")
	Expect(r.GetGroup(sw1, "vtn")).To(BeNil())
	r.AddGroup(group)

	r.ProgramLocalOut(sw1, 100, 3, "fa:16:3e:00:00:01", Add)
	r.ClearPipeline(sw1)
	Expect(r.GetGroup(sw1, "vtn")).To(BeNil())
	Expect(r.GetAllFlowEntries()).To(BeEmpty())
}
