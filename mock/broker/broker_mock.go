// Copyright (c) 2018 Cisco and/or its affiliates.
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

package broker

import (
	"sort"
	"strings"
	"sync"

	"github.com/gogo/protobuf/proto"
	"github.com/ligato/cn-infra/datasync"
	"github.com/ligato/cn-infra/db/keyval"
)

// MockBroker is an in-memory keyval.ProtoBroker storing marshalled values.
type MockBroker struct {
	sync.Mutex
	Data map[string][]byte
}

// NewMockBroker is a constructor for MockBroker.
func NewMockBroker() *MockBroker {
	return &MockBroker{Data: map[string][]byte{}}
}

// Keys returns sorted keys stored in the broker.
func (mb *MockBroker) Keys() []string {
	mb.Lock()
	defer mb.Unlock()
	var res []string
	for k := range mb.Data {
		res = append(res, k)
	}
	sort.Strings(res)
	return res
}

// Put stores marshalled copy of the value.
func (mb *MockBroker) Put(key string, data proto.Message, opts ...datasync.PutOption) error {
	encoded, err := proto.Marshal(data)
	if err != nil {
		return err
	}
	mb.Lock()
	defer mb.Unlock()
	if mb.Data == nil {
		mb.Data = map[string][]byte{}
	}
	mb.Data[key] = encoded
	return nil
}

// Delete removes the key.
func (mb *MockBroker) Delete(key string, opts ...datasync.DelOption) (found bool, err error) {
	mb.Lock()
	defer mb.Unlock()
	_, found = mb.Data[key]
	delete(mb.Data, key)
	return found, nil
}

// GetValue unmarshalls the value stored under the key into <val>.
func (mb *MockBroker) GetValue(key string, val proto.Message) (found bool, rev int64, err error) {
	mb.Lock()
	encoded, found := mb.Data[key]
	mb.Unlock()
	if !found {
		return false, 0, nil
	}
	return true, 0, proto.Unmarshal(encoded, val)
}

// NewTxn is not supported.
func (mb *MockBroker) NewTxn() keyval.ProtoTxn {
	return nil
}

// ListKeys is not supported.
func (mb *MockBroker) ListKeys(prefix string) (keyval.ProtoKeyIterator, error) {
	return nil, nil
}

// ListValues iterates over values with keys starting with the given prefix.
func (mb *MockBroker) ListValues(key string) (keyval.ProtoKeyValIterator, error) {
	mb.Lock()
	defer mb.Unlock()
	it := &mockIt{}
	for k, v := range mb.Data {
		if strings.HasPrefix(k, key) {
			it.match = append(it.match, &mockKv{key: k, val: v})
		}
	}
	sort.Slice(it.match, func(i, j int) bool { return it.match[i].key < it.match[j].key })
	return it, nil
}

type mockIt struct {
	match []*mockKv
	index int
}

func (mi *mockIt) GetNext() (kv keyval.ProtoKeyVal, stop bool) {
	if mi.index >= len(mi.match) {
		return nil, true
	}
	kv = mi.match[mi.index]
	mi.index++
	return kv, false
}

func (mi *mockIt) Close() error {
	return nil
}

type mockKv struct {
	key string
	val []byte
}

func (mk *mockKv) GetValue(val proto.Message) error {
	return proto.Unmarshal(mk.val, val)
}

func (mk *mockKv) GetPrevValue(val proto.Message) (exists bool, err error) {
	return false, nil
}

func (mk *mockKv) GetKey() string {
	return mk.key
}

func (mk *mockKv) GetRevision() int64 {
	return 0
}

// MockKVDB hands out one MockBroker per key prefix and is always connected
// unless marked as disabled.
type MockKVDB struct {
	sync.Mutex
	Brokers map[string]*MockBroker
	Disable bool
}

// NewMockKVDB is a constructor for MockKVDB.
func NewMockKVDB() *MockKVDB {
	return &MockKVDB{Brokers: map[string]*MockBroker{}}
}

// OnConnect calls the callback immediately.
func (db *MockKVDB) OnConnect(callback func() error) {
	callback()
}

// Disabled returns true if the DB emulates a plugin without configuration.
func (db *MockKVDB) Disabled() bool {
	return db.Disable
}

// NewBroker returns the broker for the prefix, shared by all callers.
func (db *MockKVDB) NewBroker(prefix string) keyval.ProtoBroker {
	return db.Broker(prefix)
}

// Broker returns the mock broker for the prefix.
func (db *MockKVDB) Broker(prefix string) *MockBroker {
	db.Lock()
	defer db.Unlock()
	if b, exists := db.Brokers[prefix]; exists {
		return b
	}
	b := NewMockBroker()
	db.Brokers[prefix] = b
	return b
}
