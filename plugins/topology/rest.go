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

package topology

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/unrolled/render"
)

const (
	// Prefix is versioned prefix for REST urls
	Prefix = "/vtn/v1/"
	// DevicesURL is URL for the device inventory
	DevicesURL = Prefix + "topology/devices"
	// HostsURL is URL for the host inventory
	HostsURL = Prefix + "topology/hosts"
)

// devicePut is the body of device PUT request.
type devicePut struct {
	Device *Device `json:"device"`
	Ports  []*Port `json:"ports"`
}

type deviceData struct {
	Device *Device `json:"device"`
	Ports  []*Port `json:"ports"`
}

func (r *Registry) registerRESTHandlers() {
	if r.HTTPHandlers == nil {
		r.Log.Warnf("No http handler provided, skipping registration of topology REST handlers")
		return
	}

	r.HTTPHandlers.RegisterHTTPHandler(DevicesURL, r.devicesGetHandler, "GET")
	r.HTTPHandlers.RegisterHTTPHandler(DevicesURL, r.devicePutHandler, "PUT")
	r.HTTPHandlers.RegisterHTTPHandler(DevicesURL+"/{id}", r.deviceDeleteHandler, "DELETE")
	r.HTTPHandlers.RegisterHTTPHandler(HostsURL, r.hostsGetHandler, "GET")
	r.HTTPHandlers.RegisterHTTPHandler(HostsURL, r.hostPutHandler, "PUT")
	r.HTTPHandlers.RegisterHTTPHandler(HostsURL+"/{id}", r.hostDeleteHandler, "DELETE")
	r.Log.Infof("Topology REST handlers registered: %v, %v", DevicesURL, HostsURL)
}

func (r *Registry) devicesGetHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var data []deviceData
		for _, device := range r.GetDevices() {
			data = append(data, deviceData{Device: device, Ports: r.GetPorts(device.ID)})
		}
		formatter.JSON(w, http.StatusOK, data)
	}
}

func (r *Registry) devicePutHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		body := &devicePut{}
		if err := json.NewDecoder(req.Body).Decode(body); err != nil || body.Device == nil {
			formatter.JSON(w, http.StatusBadRequest, "invalid device")
			return
		}
		r.AddDevice(body.Device, body.Ports)
		formatter.JSON(w, http.StatusOK, body.Device)
	}
}

func (r *Registry) deviceDeleteHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		id := DeviceID(mux.Vars(req)["id"])
		if err := r.RemoveDevice(id); err != nil {
			formatter.JSON(w, http.StatusNotFound, err.Error())
			return
		}
		formatter.JSON(w, http.StatusOK, id)
	}
}

func (r *Registry) hostsGetHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		formatter.JSON(w, http.StatusOK, r.GetHosts())
	}
}

func (r *Registry) hostPutHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		host := &Host{}
		if err := json.NewDecoder(req.Body).Decode(host); err != nil || host.ID == "" {
			formatter.JSON(w, http.StatusBadRequest, "invalid host")
			return
		}
		r.AddHost(host)
		formatter.JSON(w, http.StatusOK, host)
	}
}

func (r *Registry) hostDeleteHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		id := HostID(mux.Vars(req)["id"])
		if err := r.RemoveHost(id); err != nil {
			formatter.JSON(w, http.StatusNotFound, err.Error())
			return
		}
		formatter.JSON(w, http.StatusOK, id)
	}
}
