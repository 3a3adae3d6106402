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

// Package mastership tells which devices this node is authorized to program.
//
// The plugin does not run a leader election. Mastership is static, given by
// the configuration file, and can be changed at run-time with SetMaster.
package mastership

import (
	"sync"

	"github.com/ligato/cn-infra/infra"

	"github.com/contiv/vtn/plugins/topology"
)

// API defines methods provided by the Mastership plugin.
type API interface {
	// IsLocalMaster returns true if this node is the master of the device.
	IsLocalMaster(deviceID topology.DeviceID) bool
}

// Config is the configuration of the Mastership plugin.
type Config struct {
	// MasterOfAll makes this node master of every device not listed in SlaveDevices.
	MasterOfAll bool `json:"master-of-all"`
	// MasteredDevices lists devices this node is master of.
	MasteredDevices []string `json:"mastered-devices"`
	// SlaveDevices lists devices this node is never master of.
	SlaveDevices []string `json:"slave-devices"`
}

// Static plugin implements mastership from configuration.
type Static struct {
	Deps

	sync.RWMutex
	config  *Config
	masters map[topology.DeviceID]bool
}

// Deps lists dependencies of the Static plugin.
type Deps struct {
	infra.PluginDeps

	// Config can be injected instead of loading the configuration file.
	Config *Config
}

// Init loads the configuration.
func (s *Static) Init() error {
	if s.Config == nil {
		s.Config = &Config{MasterOfAll: true}
		found, err := s.Cfg.LoadValue(s.Config)
		if err != nil {
			return err
		}
		if !found {
			s.Log.Debug("Mastership config not found, this node is master of all devices")
		}
	}
	s.config = s.Config
	s.masters = make(map[topology.DeviceID]bool)
	for _, device := range s.config.MasteredDevices {
		s.masters[topology.DeviceID(device)] = true
	}
	for _, device := range s.config.SlaveDevices {
		s.masters[topology.DeviceID(device)] = false
	}
	s.Log.Infof("Mastership config: %+v", *s.config)
	return nil
}

// Close does nothing.
func (s *Static) Close() error {
	return nil
}

// IsLocalMaster returns true if this node is the master of the device.
func (s *Static) IsLocalMaster(deviceID topology.DeviceID) bool {
	s.RLock()
	defer s.RUnlock()
	if master, listed := s.masters[deviceID]; listed {
		return master
	}
	return s.config.MasterOfAll
}

// SetMaster changes mastership of the device.
func (s *Static) SetMaster(deviceID topology.DeviceID, master bool) {
	s.Lock()
	defer s.Unlock()
	s.masters[deviceID] = master
	s.Log.Infof("Mastership of %s changed: master=%t", deviceID, master)
}
