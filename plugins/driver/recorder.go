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

package driver

import (
	"net/http"
	"sort"
	"sync"

	"github.com/ligato/cn-infra/infra"
	"github.com/ligato/cn-infra/rpc/rest"
	"github.com/pkg/errors"
	"github.com/unrolled/render"

	"github.com/contiv/vtn/plugins/topology"
)

const (
	// prefix for REST urls
	urlPrefix = "/vtn/v1/"
	// NodesURL is URL of the dump of the recorded node configuration.
	NodesURL = urlPrefix + "driver/nodes"
)

// Recorder records configuration requested through handles.
type Recorder struct {
	Deps

	sync.Mutex
	nodes map[topology.DeviceID]*NodeConfig
}

// Deps lists dependencies of the Recorder plugin.
type Deps struct {
	infra.PluginDeps

	Topology     topology.API
	HTTPHandlers rest.HTTPHandlers /* optional */
}

// NodeConfig is the configuration recorded for one controller device.
type NodeConfig struct {
	Bridges map[string]*BridgeDescription `json:"bridges"`
	Tunnels map[string]*TunnelDescription `json:"tunnels"`
}

// Init prepares the recorder.
func (r *Recorder) Init() error {
	r.nodes = make(map[topology.DeviceID]*NodeConfig)
	if r.HTTPHandlers != nil {
		r.HTTPHandlers.RegisterHTTPHandler(NodesURL, r.nodesGetHandler, "GET")
	}
	return nil
}

// Close does nothing.
func (r *Recorder) Close() error {
	return nil
}

// CreateHandler returns handle of the given controller device.
func (r *Recorder) CreateHandler(controller topology.DeviceID) Handle {
	return &handle{recorder: r, controller: controller}
}

func (r *Recorder) node(controller topology.DeviceID) *NodeConfig {
	node, exists := r.nodes[controller]
	if !exists {
		node = &NodeConfig{
			Bridges: make(map[string]*BridgeDescription),
			Tunnels: make(map[string]*TunnelDescription),
		}
		r.nodes[controller] = node
	}
	return node
}

func (r *Recorder) nodesGetHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		r.Lock()
		defer r.Unlock()
		formatter.JSON(w, http.StatusOK, r.nodes)
	}
}

// handle is bound to one controller device.
type handle struct {
	recorder   *Recorder
	controller topology.DeviceID
}

// AddBridge creates or updates the bridge.
func (h *handle) AddBridge(bridge *BridgeDescription) error {
	if bridge.Name == "" {
		return errors.Errorf("bridge without name requested on %s", h.controller)
	}
	r := h.recorder
	r.Lock()
	defer r.Unlock()
	copied := *bridge
	r.node(h.controller).Bridges[bridge.Name] = &copied
	r.Log.Infof("Bridge %s (dpid %s, external port %q) configured on %s",
		bridge.Name, bridge.DatapathID, bridge.ExPortName, h.controller)
	return nil
}

// GetBridges returns bridges configured on the node.
func (h *handle) GetBridges() []*BridgeDescription {
	r := h.recorder
	r.Lock()
	defer r.Unlock()
	var bridges []*BridgeDescription
	if node, exists := r.nodes[h.controller]; exists {
		for _, bridge := range node.Bridges {
			bridges = append(bridges, bridge)
		}
	}
	sort.Slice(bridges, func(i, j int) bool { return bridges[i].Name < bridges[j].Name })
	return bridges
}

// AddTunnel creates or updates the tunnel port.
func (h *handle) AddTunnel(tunnel *TunnelDescription) error {
	r := h.recorder
	r.Lock()
	defer r.Unlock()
	node := r.node(h.controller)
	if _, hasBridge := node.Bridges[tunnel.Bridge]; !hasBridge {
		r.Log.Warnf("Tunnel %s requested on %s before bridge %s", tunnel.Name, h.controller,
			tunnel.Bridge)
	}
	copied := *tunnel
	node.Tunnels[tunnel.Name] = &copied
	r.Log.Infof("Tunnel %s sourced from %v configured on %s", tunnel.Name, tunnel.LocalIP, h.controller)
	return nil
}

// RemoveTunnel removes the tunnel port with the given name.
func (h *handle) RemoveTunnel(name string) error {
	r := h.recorder
	r.Lock()
	defer r.Unlock()
	node, exists := r.nodes[h.controller]
	if !exists {
		return errors.Errorf("no configuration recorded for %s", h.controller)
	}
	if _, exists := node.Tunnels[name]; !exists {
		return errors.Errorf("tunnel %s is not configured on %s", name, h.controller)
	}
	delete(node.Tunnels, name)
	return nil
}

// GetTunnels returns tunnels configured on the node.
func (h *handle) GetTunnels() []*TunnelDescription {
	r := h.recorder
	r.Lock()
	defer r.Unlock()
	var tunnels []*TunnelDescription
	if node, exists := r.nodes[h.controller]; exists {
		for _, tunnel := range node.Tunnels {
			tunnels = append(tunnels, tunnel)
		}
	}
	sort.Slice(tunnels, func(i, j int) bool { return tunnels[i].Name < tunnels[j].Name })
	return tunnels
}

// GetPorts returns ports of the integration bridge.
func (h *handle) GetPorts() []*topology.Port {
	for _, bridge := range h.GetBridges() {
		if bridge.Name == DefaultBridgeName && bridge.DeviceID != "" {
			return h.recorder.Topology.GetPorts(bridge.DeviceID)
		}
	}
	return nil
}
