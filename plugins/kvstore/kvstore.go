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

package kvstore

import (
	"sync"

	"github.com/ligato/cn-infra/db/keyval"
	"github.com/ligato/cn-infra/infra"
	"github.com/ligato/cn-infra/servicelabel"
)

// KVStore plugin is a factory for the maps the VTN state is kept in.
type KVStore struct {
	Deps

	sync.Mutex
	clock          Clock
	ecMaps         map[string]*ECMap
	consistentMaps map[string]*ConsistentMap
}

// Deps lists dependencies of the KVStore plugin.
type Deps struct {
	infra.PluginDeps

	ServiceLabel servicelabel.ReaderAPI
	DB           ClusterWideDB /* optional, maps are in-memory only without DB */
}

// Init prepares the clock shared by the maps.
func (s *KVStore) Init() error {
	node := ""
	if s.ServiceLabel != nil {
		node = s.ServiceLabel.GetAgentLabel()
	}
	s.clock = NewLogicalClock(node)
	s.ecMaps = make(map[string]*ECMap)
	s.consistentMaps = make(map[string]*ConsistentMap)
	return nil
}

// Close removes persisted values of the maps created with purge-on-uninstall.
func (s *KVStore) Close() error {
	s.Lock()
	defer s.Unlock()
	var wasErr error
	for _, m := range s.consistentMaps {
		if err := m.purge(); err != nil {
			wasErr = err
		}
	}
	return wasErr
}

// Clock returns the timestamp provider shared by eventually-consistent maps.
func (s *KVStore) Clock() Clock {
	return s.clock
}

// EventuallyConsistentMap returns (and creates if needed) the map with the given name.
func (s *KVStore) EventuallyConsistentMap(name string, newValue func() interface{}) *ECMap {
	s.Lock()
	defer s.Unlock()

	if m, exists := s.ecMaps[name]; exists {
		return m
	}
	m := newECMap(name, s.Log, s.clock, s.newBroker(name), newValue)
	s.ecMaps[name] = m
	s.onConnect(m.load)
	return m
}

// ConsistentMap returns (and creates if needed) the consistent map with the given name.
func (s *KVStore) ConsistentMap(name string, purgeOnUninstall bool) *ConsistentMap {
	s.Lock()
	defer s.Unlock()

	if m, exists := s.consistentMaps[name]; exists {
		return m
	}
	m := newConsistentMap(name, s.Log, s.newBroker(name), purgeOnUninstall)
	s.consistentMaps[name] = m
	s.onConnect(m.load)
	return m
}

// disabler is implemented by DB plugins that stay disabled without configuration.
type disabler interface {
	Disabled() bool
}

// persistent returns true if the maps are backed by a usable DB.
func (s *KVStore) persistent() bool {
	if s.DB == nil {
		return false
	}
	if db, ok := s.DB.(disabler); ok && db.Disabled() {
		return false
	}
	return true
}

func (s *KVStore) newBroker(name string) keyval.ProtoBroker {
	if !s.persistent() {
		return nil
	}
	return s.DB.NewBroker(KeyPrefix + name + "/")
}

func (s *KVStore) onConnect(load func() error) {
	if !s.persistent() {
		return
	}
	s.DB.OnConnect(func() error {
		if err := load(); err != nil {
			s.Log.Warnf("Failed to load persisted map: %v", err)
		}
		return nil
	})
}
