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

package mastership

import (
	"testing"

	"github.com/ligato/cn-infra/logging"
	"github.com/onsi/gomega"
)

func TestStaticMastership(t *testing.T) {
	gomega.RegisterTestingT(t)

	s := NewPlugin(UseDeps(func(deps *Deps) {
		deps.Log = logging.ForPlugin("mastership-test")
		deps.Config = &Config{
			MasteredDevices: []string{"of:1"},
		}
	}))
	gomega.Expect(s.Init()).To(gomega.Succeed())

	gomega.Expect(s.IsLocalMaster("of:1")).To(gomega.BeTrue())
	gomega.Expect(s.IsLocalMaster("of:2")).To(gomega.BeFalse())

	s.SetMaster("of:2", true)
	s.SetMaster("of:1", false)
	gomega.Expect(s.IsLocalMaster("of:1")).To(gomega.BeFalse())
	gomega.Expect(s.IsLocalMaster("of:2")).To(gomega.BeTrue())
}

func TestMasterOfAll(t *testing.T) {
	gomega.RegisterTestingT(t)

	s := NewPlugin(UseDeps(func(deps *Deps) {
		deps.Log = logging.ForPlugin("mastership-test")
		deps.Config = &Config{
			MasterOfAll:  true,
			SlaveDevices: []string{"of:3"},
		}
	}))
	gomega.Expect(s.Init()).To(gomega.Succeed())

	gomega.Expect(s.IsLocalMaster("of:1")).To(gomega.BeTrue())
	gomega.Expect(s.IsLocalMaster("of:3")).To(gomega.BeFalse())
}
