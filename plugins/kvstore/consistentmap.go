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
	"sort"
	"sync"

	"github.com/gogo/protobuf/types"
	"github.com/ligato/cn-infra/db/keyval"
	"github.com/ligato/cn-infra/logging"
	"github.com/pkg/errors"
)

// Versioned is a value of a consistent map together with its version.
type Versioned struct {
	Value   string `json:"value"`
	Version uint64 `json:"version"`
}

// ConsistentMap is a map of versioned string values where every write
// is applied in a single total order.
type ConsistentMap struct {
	sync.Mutex

	name             string
	log              logging.Logger
	broker           keyval.ProtoBroker
	purgeOnUninstall bool

	values  map[string]Versioned
	version uint64
}

func newConsistentMap(name string, log logging.Logger, broker keyval.ProtoBroker, purgeOnUninstall bool) *ConsistentMap {
	return &ConsistentMap{
		name:             name,
		log:              log,
		broker:           broker,
		purgeOnUninstall: purgeOnUninstall,
		values:           make(map[string]Versioned),
	}
}

// Name returns the map name.
func (m *ConsistentMap) Name() string {
	return m.name
}

// Get returns the versioned value stored under the key.
func (m *ConsistentMap) Get(key string) (Versioned, bool) {
	m.Lock()
	defer m.Unlock()
	value, found := m.values[key]
	return value, found
}

// Put stores the value, returning the new version.
// Writing the same value again does not bump the version.
func (m *ConsistentMap) Put(key, value string) (Versioned, error) {
	m.Lock()
	defer m.Unlock()

	if prev, found := m.values[key]; found && prev.Value == value {
		return prev, nil
	}
	if m.broker != nil {
		if err := m.broker.Put(key, &types.StringValue{Value: value}); err != nil {
			return Versioned{}, errors.Wrapf(err, "failed to write %s/%s", m.name, key)
		}
	}
	m.version++
	versioned := Versioned{Value: value, Version: m.version}
	m.values[key] = versioned
	return versioned, nil
}

// PutIfAbsent stores the value only if the key is not set.
func (m *ConsistentMap) PutIfAbsent(key, value string) (Versioned, error) {
	m.Lock()
	prev, found := m.values[key]
	m.Unlock()
	if found {
		return prev, nil
	}
	return m.Put(key, value)
}

// Remove deletes the key.
func (m *ConsistentMap) Remove(key string) error {
	m.Lock()
	defer m.Unlock()

	if _, found := m.values[key]; !found {
		return nil
	}
	if m.broker != nil {
		if _, err := m.broker.Delete(key); err != nil {
			return errors.Wrapf(err, "failed to delete %s/%s", m.name, key)
		}
	}
	delete(m.values, key)
	return nil
}

// Keys returns sorted keys of the map.
func (m *ConsistentMap) Keys() []string {
	m.Lock()
	defer m.Unlock()
	var keys []string
	for key := range m.values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// load reads values persisted in the DB.
func (m *ConsistentMap) load() error {
	if m.broker == nil {
		return nil
	}
	it, err := m.broker.ListValues("")
	if err != nil {
		return errors.Wrapf(err, "failed to list persisted entries of %s", m.name)
	}
	defer it.Close()

	m.Lock()
	defer m.Unlock()
	for {
		kv, stop := it.GetNext()
		if stop {
			break
		}
		item := &types.StringValue{}
		if err := kv.GetValue(item); err != nil {
			return errors.Wrapf(err, "failed to read persisted entry %s", kv.GetKey())
		}
		m.version++
		m.values[kv.GetKey()] = Versioned{Value: item.Value, Version: m.version}
	}
	m.log.Infof("%v persisted entries were loaded into map %s", len(m.values), m.name)
	return nil
}

// purge removes persisted values if the map was created with purge-on-uninstall.
func (m *ConsistentMap) purge() error {
	if !m.purgeOnUninstall || m.broker == nil {
		return nil
	}
	m.Lock()
	defer m.Unlock()
	var wasErr error
	for key := range m.values {
		if _, err := m.broker.Delete(key); err != nil {
			m.log.Warnf("Failed to purge %s/%s: %v", m.name, key, err)
			wasErr = err
		}
	}
	return wasErr
}
