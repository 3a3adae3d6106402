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
	"fmt"
)

// vniPool allocates segmentation IDs from a range, one per label.
// The lowest free ID is always allocated first.
type vniPool struct {
	min, max  SegmentationID
	allocated map[string]SegmentationID // label -> ID
	used      map[SegmentationID]string // ID -> label
}

func newVNIPool(min, max SegmentationID) *vniPool {
	return &vniPool{
		min:       min,
		max:       max,
		allocated: make(map[string]SegmentationID),
		used:      make(map[SegmentationID]string),
	}
}

// getOrAllocate returns the ID allocated for the label, allocating a new one if needed.
func (p *vniPool) getOrAllocate(label string) (SegmentationID, error) {
	if id, exists := p.allocated[label]; exists {
		return id, nil
	}
	for id := p.min; id <= p.max; id++ {
		if _, used := p.used[id]; !used {
			p.allocated[label] = id
			p.used[id] = label
			return id, nil
		}
		if id == p.max {
			// avoid overflow with max at the top of the type range
			break
		}
	}
	return 0, fmt.Errorf("no more space left in VNI pool <%d-%d>", p.min, p.max)
}

// get returns the ID allocated for the label, if any.
func (p *vniPool) get(label string) (SegmentationID, bool) {
	id, exists := p.allocated[label]
	return id, exists
}

// release frees the ID allocated for the label. NOOP if not allocated.
func (p *vniPool) release(label string) {
	if id, exists := p.allocated[label]; exists {
		delete(p.used, id)
		delete(p.allocated, label)
	}
}
