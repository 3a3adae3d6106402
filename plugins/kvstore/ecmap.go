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
	"encoding/json"
	"sort"
	"strconv"
	"sync"

	"github.com/gogo/protobuf/types"
	"github.com/ligato/cn-infra/db/keyval"
	"github.com/ligato/cn-infra/idxmap"
	"github.com/ligato/cn-infra/idxmap/mem"
	"github.com/ligato/cn-infra/logging"
	"github.com/pkg/errors"
)

const liveIndex = "live"

// ECMap is an eventually-consistent map with last-writer-wins semantics.
// Removals are kept as tombstones so that a delayed older write
// cannot resurrect a removed key.
type ECMap struct {
	sync.Mutex

	name     string
	log      logging.Logger
	clock    Clock
	mapping  idxmap.NamedMappingRW
	broker   keyval.ProtoBroker
	newValue func() interface{}
}

type ecEntry struct {
	value     interface{}
	timestamp Timestamp
	tombstone bool
}

// persistedEntry is the JSON envelope written into the DB.
type persistedEntry struct {
	Timestamp Timestamp       `json:"ts"`
	Tombstone bool            `json:"tombstone,omitempty"`
	Value     json.RawMessage `json:"value,omitempty"`
}

func newECMap(name string, log logging.Logger, clock Clock, broker keyval.ProtoBroker,
	newValue func() interface{}) *ECMap {
	return &ECMap{
		name:     name,
		log:      log,
		clock:    clock,
		mapping:  mem.NewNamedMapping(log, name, liveIndexFunction),
		broker:   broker,
		newValue: newValue,
	}
}

func liveIndexFunction(data interface{}) map[string][]string {
	if entry, ok := data.(*ecEntry); ok {
		return map[string][]string{liveIndex: {strconv.FormatBool(!entry.tombstone)}}
	}
	return nil
}

// Name returns the map name.
func (m *ECMap) Name() string {
	return m.name
}

// Put stores value under the given key, timestamped by the map clock.
func (m *ECMap) Put(key string, value interface{}) {
	m.PutIfNewer(key, value, m.clock.Now())
}

// PutIfNewer stores value under the given key only if <ts> is newer than
// the timestamp of the current entry (or tombstone).
func (m *ECMap) PutIfNewer(key string, value interface{}, ts Timestamp) bool {
	return m.apply(key, &ecEntry{value: value, timestamp: ts})
}

// Remove removes the key.
func (m *ECMap) Remove(key string) {
	m.RemoveIfNewer(key, m.clock.Now())
}

// RemoveIfNewer removes the key only if <ts> is newer than the current entry.
func (m *ECMap) RemoveIfNewer(key string, ts Timestamp) bool {
	return m.apply(key, &ecEntry{timestamp: ts, tombstone: true})
}

func (m *ECMap) apply(key string, entry *ecEntry) bool {
	m.Lock()
	defer m.Unlock()

	m.clock.Witness(entry.timestamp)
	if prev, found := m.mapping.GetValue(key); found {
		if !entry.timestamp.IsNewerThan(prev.(*ecEntry).timestamp) {
			return false
		}
	}
	m.mapping.Put(key, entry)
	m.persist(key, entry)
	return true
}

// Get returns the value stored under the given key.
func (m *ECMap) Get(key string) (value interface{}, found bool) {
	data, found := m.mapping.GetValue(key)
	if !found {
		return nil, false
	}
	entry := data.(*ecEntry)
	if entry.tombstone {
		return nil, false
	}
	return entry.value, true
}

// ContainsKey returns true if the key has a live value.
func (m *ECMap) ContainsKey(key string) bool {
	_, found := m.Get(key)
	return found
}

// Keys returns sorted keys of all live entries.
func (m *ECMap) Keys() []string {
	keys := m.mapping.ListNames(liveIndex, "true")
	sort.Strings(keys)
	return keys
}

// Size returns the number of live entries.
func (m *ECMap) Size() int {
	return len(m.mapping.ListNames(liveIndex, "true"))
}

// Snapshot returns a copy of all live entries.
func (m *ECMap) Snapshot() map[string]interface{} {
	snapshot := make(map[string]interface{})
	for _, key := range m.Keys() {
		if value, found := m.Get(key); found {
			snapshot[key] = value
		}
	}
	return snapshot
}

func (m *ECMap) persist(key string, entry *ecEntry) {
	if m.broker == nil {
		return
	}
	pe := persistedEntry{Timestamp: entry.timestamp, Tombstone: entry.tombstone}
	if !entry.tombstone {
		encoded, err := json.Marshal(entry.value)
		if err != nil {
			m.log.Warnf("Failed to encode value of %s/%s: %v", m.name, key, err)
			return
		}
		pe.Value = encoded
	}
	data, err := json.Marshal(pe)
	if err != nil {
		m.log.Warnf("Failed to encode entry %s/%s: %v", m.name, key, err)
		return
	}
	// error treated as warning, the entry is re-written by the next change
	if err := m.broker.Put(key, &types.BytesValue{Value: data}); err != nil {
		m.log.Warnf("Failed to persist entry %s/%s: %v", m.name, key, err)
	}
}

// load merges entries persisted in the DB into the map.
func (m *ECMap) load() error {
	if m.broker == nil {
		return nil
	}
	if m.newValue == nil {
		m.log.Warnf("Map %s has no value constructor, persisted entries will not be loaded", m.name)
		return nil
	}
	it, err := m.broker.ListValues("")
	if err != nil {
		return errors.Wrapf(err, "failed to list persisted entries of %s", m.name)
	}
	defer it.Close()

	cnt := 0
	for {
		kv, stop := it.GetNext()
		if stop {
			break
		}
		item := &types.BytesValue{}
		if err := kv.GetValue(item); err != nil {
			return errors.Wrapf(err, "failed to read persisted entry %s", kv.GetKey())
		}
		pe := persistedEntry{}
		if err := json.Unmarshal(item.Value, &pe); err != nil {
			return errors.Wrapf(err, "failed to decode persisted entry %s", kv.GetKey())
		}
		entry := &ecEntry{timestamp: pe.Timestamp, tombstone: pe.Tombstone}
		if !pe.Tombstone {
			value := m.newValue()
			if err := json.Unmarshal(pe.Value, value); err != nil {
				return errors.Wrapf(err, "failed to decode value of %s", kv.GetKey())
			}
			entry.value = value
		}
		if m.merge(kv.GetKey(), entry) {
			cnt++
		}
	}
	m.log.Infof("%v persisted entries were loaded into map %s", cnt, m.name)
	return nil
}

// merge applies a loaded entry without writing it back.
func (m *ECMap) merge(key string, entry *ecEntry) bool {
	m.Lock()
	defer m.Unlock()

	m.clock.Witness(entry.timestamp)
	if prev, found := m.mapping.GetValue(key); found {
		if !entry.timestamp.IsNewerThan(prev.(*ecEntry).timestamp) {
			return false
		}
	}
	m.mapping.Put(key, entry)
	return true
}
