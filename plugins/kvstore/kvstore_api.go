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
	"github.com/ligato/cn-infra/db/keyval"
)

// KeyPrefix is the DB key prefix under which the maps are persisted.
const KeyPrefix = "vtn/store/"

// API defines methods provided by the KVStore plugin for use by other plugins.
type API interface {
	// EventuallyConsistentMap returns the last-writer-wins map with the given
	// name, creating it on the first call. <newValue> constructs an empty value
	// to decode persisted entries into; nil disables loading.
	EventuallyConsistentMap(name string, newValue func() interface{}) *ECMap

	// ConsistentMap returns the consistent map with the given name, creating
	// it on the first call. With <purgeOnUninstall> the persisted values are
	// removed when the plugin is closed.
	ConsistentMap(name string, purgeOnUninstall bool) *ConsistentMap

	// Clock returns the timestamp provider shared by eventually-consistent maps.
	Clock() Clock
}

// ClusterWideDB defines API that a DB client must provide for the maps
// to be persisted.
type ClusterWideDB interface {
	// OnConnect registers callback to be triggered once the (first) connection
	// to DB is established.
	OnConnect(callback func() error)

	// NewBroker creates a new instance of DB broker prefixing all keys with the
	// given prefix.
	NewBroker(prefix string) keyval.ProtoBroker
}
