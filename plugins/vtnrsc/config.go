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
	"github.com/go-errors/errors"
)

const (
	defaultL3VNIMin = 10000
	defaultL3VNIMax = 16777215 // 24-bit VXLAN VNI
)

// Config is the configuration of the Inventory plugin.
type Config struct {
	L3VNIPool VNIRange `json:"l3vni-pool"`
}

// VNIRange is an inclusive range of VNIs.
type VNIRange struct {
	MinID uint32 `json:"min-id"`
	MaxID uint32 `json:"max-id"`
}

func defaultConfig() *Config {
	return &Config{
		L3VNIPool: VNIRange{MinID: defaultL3VNIMin, MaxID: defaultL3VNIMax},
	}
}

func (c *Config) validate() error {
	if c.L3VNIPool.MinID == 0 || c.L3VNIPool.MinID > c.L3VNIPool.MaxID {
		return errors.Errorf("invalid L3 VNI pool <%d-%d>", c.L3VNIPool.MinID, c.L3VNIPool.MaxID)
	}
	if c.L3VNIPool.MaxID > defaultL3VNIMax {
		return errors.Errorf("L3 VNI %d does not fit into 24 bits", c.L3VNIPool.MaxID)
	}
	return nil
}
