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
	"encoding/json"
	"net/http"

	"github.com/unrolled/render"

	"github.com/contiv/vtn/plugins/topology"
	"github.com/contiv/vtn/plugins/vtnrsc"
)

const (
	// Prefix is versioned prefix for REST urls
	Prefix = "/vtn/v1/"
	// StateURL is URL of the orchestrator state dump
	StateURL = Prefix + "state"
	// ExPortURL is URL of the external port name
	ExPortURL = Prefix + "ex-port"
)

// State is a dump of the replicated state of the orchestrator.
type State struct {
	ExPortName     string                                `json:"exPortName"`
	Controllers    []string                              `json:"controllers"`
	LocalHostPorts map[topology.DeviceID]*NetworkPorts   `json:"localHostPorts"`
	ExPorts        map[topology.DeviceID]*topology.Port  `json:"exPorts"`
	ActiveRouters  []string                              `json:"activeRouters"`
	HostsOfSubnet  map[vtnrsc.SubnetID][]topology.HostID `json:"hostsOfSubnet"`
	FloatingIPs    map[string]*vtnrsc.FloatingIP         `json:"floatingIps"`
	VirtualPorts   map[vtnrsc.PortID]*vtnrsc.VirtualPort `json:"virtualPorts"`
}

// ExPortConfig is the body of the external port REST resource.
type ExPortConfig struct {
	Name string `json:"name"`
}

func (p *Plugin) registerRESTHandlers() {
	if p.HTTPHandlers == nil {
		p.Log.Warnf("No http handler provided, skipping registration of VTN REST handlers")
		return
	}
	p.HTTPHandlers.RegisterHTTPHandler(StateURL, p.stateGetHandler, "GET")
	p.HTTPHandlers.RegisterHTTPHandler(ExPortURL, p.exPortGetHandler, "GET")
	p.HTTPHandlers.RegisterHTTPHandler(ExPortURL, p.exPortPutHandler, "PUT")
	p.Log.Infof("VTN REST handlers registered: %v, %v", StateURL, ExPortURL)
}

// GetState returns dump of the replicated state.
func (p *Plugin) GetState() *State {
	state := &State{
		ExPortName:     p.store.exPortName(),
		Controllers:    p.store.controllers.Keys(),
		LocalHostPorts: make(map[topology.DeviceID]*NetworkPorts),
		ExPorts:        make(map[topology.DeviceID]*topology.Port),
		ActiveRouters:  p.store.routerFlags.Keys(),
		HostsOfSubnet:  make(map[vtnrsc.SubnetID][]topology.HostID),
		FloatingIPs:    make(map[string]*vtnrsc.FloatingIP),
		VirtualPorts:   make(map[vtnrsc.PortID]*vtnrsc.VirtualPort),
	}
	for key, value := range p.store.localHostPorts.Snapshot() {
		state.LocalHostPorts[topology.DeviceID(key)] = value.(*NetworkPorts)
	}
	for key, value := range p.store.exPorts.Snapshot() {
		state.ExPorts[topology.DeviceID(key)] = value.(*topology.Port)
	}
	for _, key := range p.store.hostsOfSubnet.Keys() {
		subnet := vtnrsc.SubnetID(key)
		for _, host := range p.store.subnetHosts(subnet) {
			state.HostsOfSubnet[subnet] = append(state.HostsOfSubnet[subnet], host.ID)
		}
	}
	for key, value := range p.store.floatingIPs.Snapshot() {
		state.FloatingIPs[key] = value.(*vtnrsc.FloatingIP)
	}
	for _, port := range p.store.allVPorts() {
		state.VirtualPorts[port.ID] = port
	}
	return state
}

func (p *Plugin) stateGetHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		formatter.JSON(w, http.StatusOK, p.GetState())
	}
}

func (p *Plugin) exPortGetHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		formatter.JSON(w, http.StatusOK, ExPortConfig{Name: p.GetExPortName()})
	}
}

func (p *Plugin) exPortPutHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		cfg := ExPortConfig{}
		if err := json.NewDecoder(req.Body).Decode(&cfg); err != nil || cfg.Name == "" {
			formatter.JSON(w, http.StatusBadRequest, "invalid external port name")
			return
		}
		if err := p.SetExPortName(cfg.Name); err != nil {
			p.Log.Error(err)
			formatter.JSON(w, http.StatusInternalServerError, err.Error())
			return
		}
		formatter.JSON(w, http.StatusOK, cfg)
	}
}
