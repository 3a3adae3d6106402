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

package main

import (
	"os"

	"github.com/namsral/flag"

	"github.com/ligato/cn-infra/agent"
	"github.com/ligato/cn-infra/db/keyval/etcd"
	"github.com/ligato/cn-infra/health/probe"
	"github.com/ligato/cn-infra/logging/logmanager"
	"github.com/ligato/cn-infra/logging/logrus"
	"github.com/ligato/cn-infra/rpc/prometheus"
	"github.com/ligato/cn-infra/rpc/rest"
	"github.com/ligato/cn-infra/servicelabel"

	"github.com/contiv/vtn/plugins/driver"
	"github.com/contiv/vtn/plugins/flowtable"
	"github.com/contiv/vtn/plugins/kvstore"
	"github.com/contiv/vtn/plugins/mastership"
	"github.com/contiv/vtn/plugins/packetio"
	"github.com/contiv/vtn/plugins/statscollector"
	"github.com/contiv/vtn/plugins/topology"
	"github.com/contiv/vtn/plugins/vtn"
	"github.com/contiv/vtn/plugins/vtnrsc"
)

const (
	// microservice label used when none is configured
	defaultMicroserviceLabel = "vtn-agent"
)

var (
	exPortName = flag.String("ex-port", "", "name of the external port of gateway switches (overrides vtn.conf)")
)

// VtnAgent manages the overlay network of one controller node.
type VtnAgent struct {
	LogManager   *logmanager.Plugin
	ServiceLabel servicelabel.ReaderAPI
	HealthProbe  *probe.Plugin
	ETCD         *etcd.Plugin
	HTTP         *rest.Plugin
	Prometheus   *prometheus.Plugin

	KVStore    *kvstore.KVStore
	Topology   *topology.Registry
	Mastership *mastership.Static
	Inventory  *vtnrsc.Inventory
	FlowTable  *flowtable.Renderer
	Driver     *driver.Recorder
	PacketIO   *packetio.Service
	Stats      *statscollector.Plugin
	VTN        *vtn.Plugin
}

func (a *VtnAgent) String() string {
	return "VtnAgent"
}

// Init is called at startup phase. Method added in order to implement Plugin interface.
func (a *VtnAgent) Init() error {
	return nil
}

// AfterInit applies command-line overrides once all plugins are initialized.
func (a *VtnAgent) AfterInit() error {
	if *exPortName != "" {
		return a.VTN.SetExPortName(*exPortName)
	}
	return nil
}

// Close is called at cleanup phase. Method added in order to implement Plugin interface.
func (a *VtnAgent) Close() error {
	return nil
}

func main() {
	if os.Getenv(servicelabel.MicroserviceLabelEnvVar) == "" {
		servicelabel.DefaultPlugin.MicroserviceLabel = defaultMicroserviceLabel
	}

	// replicated maps are persisted into etcd when it is configured
	kvstore.DefaultPlugin.DB = &etcd.DefaultPlugin

	vtnAgent := &VtnAgent{
		LogManager:   &logmanager.DefaultPlugin,
		ServiceLabel: &servicelabel.DefaultPlugin,
		HealthProbe:  &probe.DefaultPlugin,
		ETCD:         &etcd.DefaultPlugin,
		HTTP:         &rest.DefaultPlugin,
		Prometheus:   &prometheus.DefaultPlugin,
		KVStore:      &kvstore.DefaultPlugin,
		Topology:     &topology.DefaultPlugin,
		Mastership:   &mastership.DefaultPlugin,
		Inventory:    &vtnrsc.DefaultPlugin,
		FlowTable:    &flowtable.DefaultPlugin,
		Driver:       &driver.DefaultPlugin,
		PacketIO:     &packetio.DefaultPlugin,
		Stats:        &statscollector.DefaultPlugin,
		VTN:          &vtn.DefaultPlugin,
	}

	a := agent.NewAgent(agent.AllPlugins(vtnAgent))
	if err := a.Run(); err != nil {
		logrus.DefaultLogger().Fatal(err)
	}
}
