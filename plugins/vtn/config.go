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

package vtn

import (
	"github.com/go-errors/errors"
)

const (
	defaultAppID   = "org.contiv.vtn"
	defaultGroupID = 1
)

// Config is the configuration of the VTN plugin (vtn.conf).
type Config struct {
	// ExPortName is the name of the bridge port connected to the external
	// network. Written into the replicated configuration map at startup.
	ExPortName string `json:"ex-port-name"`

	// AppID keys groups and flow entries installed by the VTN.
	AppID string `json:"app-id"`

	// GroupID is the ID of the broadcast group on compute switches.
	GroupID uint32 `json:"group-id"`
}

func defaultConfig() *Config {
	return &Config{
		AppID:   defaultAppID,
		GroupID: defaultGroupID,
	}
}

func (c *Config) validate() error {
	if c.AppID == "" {
		return errors.Errorf("app-id must not be empty")
	}
	if c.GroupID == 0 {
		return errors.Errorf("group-id must be non-zero")
	}
	return nil
}
