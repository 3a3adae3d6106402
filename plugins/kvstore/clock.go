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
	"fmt"
	"sync"
)

// Timestamp orders writes into eventually-consistent maps.
type Timestamp struct {
	Logical uint64 `json:"logical"`
	Node    string `json:"node"`
}

// IsNewerThan returns true if <ts> should win over <other>.
// Equal logical times are broken by the node label.
func (ts Timestamp) IsNewerThan(other Timestamp) bool {
	if ts.Logical != other.Logical {
		return ts.Logical > other.Logical
	}
	return ts.Node > other.Node
}

// String returns human-readable representation of the timestamp.
func (ts Timestamp) String() string {
	return fmt.Sprintf("%d@%s", ts.Logical, ts.Node)
}

// Clock is a timestamp provider for eventually-consistent maps.
type Clock interface {
	// Now returns a timestamp newer than every timestamp returned
	// or witnessed so far.
	Now() Timestamp

	// Witness makes the clock aware of a timestamp received from elsewhere.
	Witness(ts Timestamp)
}

// LogicalClock is a Lamport clock labeled with the node name.
type LogicalClock struct {
	sync.Mutex
	node    string
	counter uint64
}

// NewLogicalClock creates a new logical clock for the given node.
func NewLogicalClock(node string) *LogicalClock {
	return &LogicalClock{node: node}
}

// Now increments the clock.
func (c *LogicalClock) Now() Timestamp {
	c.Lock()
	defer c.Unlock()
	c.counter++
	return Timestamp{Logical: c.counter, Node: c.node}
}

// Witness advances the clock past <ts>.
func (c *LogicalClock) Witness(ts Timestamp) {
	c.Lock()
	defer c.Unlock()
	if ts.Logical > c.counter {
		c.counter = ts.Logical
	}
}
