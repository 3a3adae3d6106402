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

package statscollector

import (
	"strconv"
	"sync"

	"github.com/ligato/cn-infra/infra"
	prometheusplugin "github.com/ligato/cn-infra/rpc/prometheus"
	"github.com/ligato/cn-infra/servicelabel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/contiv/vtn/plugins/flowtable"
)

const (
	// path where the statistics are exposed
	prometheusStatsPath = "/stats"

	nodeLabel      = "node"
	familyLabel    = "family"
	eventTypeLabel = "eventType"
	kindLabel      = "kind"
	deviceLabel    = "device"
	tableLabel     = "table"

	eventsMetric      = "vtnEvents"
	packetsMetric     = "vtnPackets"
	errorsMetric      = "vtnErrors"
	flowEntriesMetric = "vtnFlowEntries"
)

// Plugin counts events handled by the VTN and publishes them together with
// the number of installed flow entries to prometheus.
type Plugin struct {
	Deps
	sync.Mutex

	counterVecs map[string]*prometheus.CounterVec
	flows       *flowCollector
}

// Deps groups the dependencies of the Plugin.
type Deps struct {
	infra.PluginDeps

	ServiceLabel servicelabel.ReaderAPI

	// FlowQuery is used to count installed flow entries
	FlowQuery flowtable.FlowQuery

	// Prometheus plugin used to stream statistics
	Prometheus prometheusplugin.API
}

// Init initializes the plugin resources
func (p *Plugin) Init() error {
	p.counterVecs = map[string]*prometheus.CounterVec{}
	if p.Prometheus == nil {
		return nil
	}

	// create new registry for statistics
	err := p.Prometheus.NewRegistry(prometheusStatsPath,
		promhttp.HandlerOpts{ErrorHandling: promhttp.ContinueOnError, ErrorLog: p.Log})
	if err != nil {
		return err
	}

	constLabels := prometheus.Labels{nodeLabel: p.ServiceLabel.GetAgentLabel()}
	for _, statItem := range []struct {
		name   string
		help   string
		labels []string
	}{
		{eventsMetric, "Number of handled VTN events", []string{familyLabel, eventTypeLabel}},
		{packetsMetric, "Number of packets punted to the VTN", []string{kindLabel}},
		{errorsMetric, "Number of aborted VTN handler invocations", []string{kindLabel}},
	} {
		p.counterVecs[statItem.name] = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        statItem.name,
			Help:        statItem.help,
			ConstLabels: constLabels,
		}, statItem.labels)
	}

	// register created vectors to prometheus
	for name, metric := range p.counterVecs {
		err = p.Prometheus.Register(prometheusStatsPath, metric)
		if err != nil {
			p.Log.Errorf("failed to register %v metric %v", name, err)
			return err
		}
	}

	if p.FlowQuery != nil {
		p.flows = &flowCollector{
			query: p.FlowQuery,
			desc: prometheus.NewDesc(flowEntriesMetric, "Number of installed flow entries",
				[]string{deviceLabel, tableLabel}, constLabels),
		}
		if err = p.Prometheus.Register(prometheusStatsPath, p.flows); err != nil {
			p.Log.Errorf("failed to register %v metric %v", flowEntriesMetric, err)
			return err
		}
	}
	return nil
}

// Close does nothing.
func (p *Plugin) Close() error {
	return nil
}

// CountEvent increments the counter of handled events.
func (p *Plugin) CountEvent(family, eventType string) {
	p.inc(eventsMetric, family, eventType)
}

// CountPacket increments the counter of punted packets.
func (p *Plugin) CountPacket(kind string) {
	p.inc(packetsMetric, kind)
}

// CountError increments the counter of aborted handler invocations.
func (p *Plugin) CountError(kind string) {
	p.inc(errorsMetric, kind)
}

func (p *Plugin) inc(metric string, labelValues ...string) {
	p.Lock()
	defer p.Unlock()
	vec, exists := p.counterVecs[metric]
	if !exists {
		return
	}
	vec.WithLabelValues(labelValues...).Inc()
}

// flowCollector reports the number of flow entries per device and table,
// computed at scrape time.
type flowCollector struct {
	query flowtable.FlowQuery
	desc  *prometheus.Desc
}

// Describe sends the descriptor of the flow entry gauge.
func (c *flowCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

// Collect counts installed flow entries.
func (c *flowCollector) Collect(ch chan<- prometheus.Metric) {
	type deviceTable struct {
		device string
		table  flowtable.TableID
	}
	counts := make(map[deviceTable]int)
	for _, entry := range c.query.GetAllFlowEntries() {
		counts[deviceTable{device: string(entry.Device), table: entry.Table}]++
	}
	for key, count := range counts {
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(count),
			key.device, strconv.Itoa(int(key.table)))
	}
}
