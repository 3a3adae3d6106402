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
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/unrolled/render"
)

const (
	// Prefix is versioned prefix for REST urls
	Prefix = "/vtn/v1/"
	// ResourcesURL is URL of the tenant resource inventory
	ResourcesURL = Prefix + "resources"
)

// resource kinds used in REST urls
const (
	networkKind         = "networks"
	subnetKind          = "subnets"
	portKind            = "ports"
	routerInterfaceKind = "router-interfaces"
	floatingIPKind      = "floating-ips"
)

type inventoryData struct {
	Networks         []*TenantNetwork          `json:"networks"`
	Subnets          []*Subnet                 `json:"subnets"`
	Ports            []*VirtualPort            `json:"ports"`
	RouterInterfaces []*RouterInterface        `json:"routerInterfaces"`
	FloatingIPs      []*FloatingIP             `json:"floatingIps"`
	L3VNIs           map[string]SegmentationID `json:"l3vnis"`
}

func (inv *Inventory) registerRESTHandlers() {
	if inv.HTTPHandlers == nil {
		inv.Log.Warnf("No http handler provided, skipping registration of resource REST handlers")
		return
	}

	inv.HTTPHandlers.RegisterHTTPHandler(ResourcesURL, inv.inventoryGetHandler, "GET")
	inv.HTTPHandlers.RegisterHTTPHandler(ResourcesURL+"/{kind}", inv.resourcePutHandler, "PUT")
	inv.HTTPHandlers.RegisterHTTPHandler(ResourcesURL+"/{kind}/{id}", inv.resourceDeleteHandler, "DELETE")
	inv.Log.Infof("Resource REST handlers registered: %v", ResourcesURL)
}

func (inv *Inventory) inventoryGetHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		formatter.JSON(w, http.StatusOK, inventoryData{
			Networks:         inv.GetNetworks(),
			Subnets:          inv.GetSubnets(),
			Ports:            inv.GetPorts(),
			RouterInterfaces: inv.GetRouterInterfaces(),
			FloatingIPs:      inv.GetFloatingIPs(),
			L3VNIs:           inv.GetL3VNIs(),
		})
	}
}

func (inv *Inventory) resourcePutHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var (
			err    error
			result interface{}
		)
		decoder := json.NewDecoder(req.Body)
		switch mux.Vars(req)["kind"] {
		case networkKind:
			network := &TenantNetwork{}
			if err = decoder.Decode(network); err == nil {
				inv.PutNetwork(network)
			}
			result = network
		case subnetKind:
			subnet := &Subnet{}
			if err = decoder.Decode(subnet); err == nil {
				err = inv.PutSubnet(subnet)
			}
			result = subnet
		case portKind:
			port := &VirtualPort{}
			if err = decoder.Decode(port); err == nil {
				inv.PutPort(port)
			}
			result = port
		case routerInterfaceKind:
			routerIf := &RouterInterface{}
			if err = decoder.Decode(routerIf); err == nil {
				inv.PutRouterInterface(routerIf)
			}
			result = routerIf
		case floatingIPKind:
			fip := &FloatingIP{}
			if err = decoder.Decode(fip); err == nil {
				inv.PutFloatingIP(fip)
			}
			result = fip
		default:
			formatter.JSON(w, http.StatusNotFound, "unknown resource kind")
			return
		}
		if err != nil {
			formatter.JSON(w, http.StatusBadRequest, err.Error())
			return
		}
		formatter.JSON(w, http.StatusOK, result)
	}
}

func (inv *Inventory) resourceDeleteHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var err error
		id := mux.Vars(req)["id"]
		switch mux.Vars(req)["kind"] {
		case networkKind:
			err = inv.DeleteNetwork(NetworkID(id))
		case subnetKind:
			err = inv.DeleteSubnet(SubnetID(id))
		case portKind:
			err = inv.DeletePort(PortID(id))
		case routerInterfaceKind:
			err = inv.DeleteRouterInterface(PortID(id))
		case floatingIPKind:
			err = inv.DeleteFloatingIP(FloatingIPID(id))
		default:
			formatter.JSON(w, http.StatusNotFound, "unknown resource kind")
			return
		}
		if err != nil {
			formatter.JSON(w, http.StatusNotFound, err.Error())
			return
		}
		formatter.JSON(w, http.StatusOK, id)
	}
}
