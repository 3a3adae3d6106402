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

package packetio

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"

	"github.com/ligato/cn-infra/infra"
	"github.com/ligato/cn-infra/rpc/rest"
	"github.com/pkg/errors"
	"github.com/unrolled/render"
)

const (
	// prefix for REST urls
	urlPrefix = "/vtn/v1/"
	// InjectURL accepts packet-in to deliver to processors.
	InjectURL = urlPrefix + "packetio/inject"
	// EmittedURL returns recently emitted packets.
	EmittedURL = urlPrefix + "packetio/emitted"

	// maximum number of emitted packets kept for inspection
	emittedHistory = 256
)

// Service dispatches inbound packets to processors and keeps a history of
// emitted packets.
type Service struct {
	Deps

	sync.Mutex
	processors []*registeredProcessor
	emitted    []*OutboundPacket
	sink       func(packet *OutboundPacket) error
}

// Deps lists dependencies of the packet Service.
type Deps struct {
	infra.PluginDeps

	HTTPHandlers rest.HTTPHandlers /* optional */
}

type registeredProcessor struct {
	name      string
	priority  int
	processor Processor
}

// Init registers REST handlers.
func (s *Service) Init() error {
	if s.HTTPHandlers != nil {
		s.HTTPHandlers.RegisterHTTPHandler(InjectURL, s.injectHandler, "POST")
		s.HTTPHandlers.RegisterHTTPHandler(EmittedURL, s.emittedHandler, "GET")
	}
	return nil
}

// Close does nothing.
func (s *Service) Close() error {
	return nil
}

// AddProcessor registers processor. Processors with lower priority value are
// called first.
func (s *Service) AddProcessor(name string, priority int, processor Processor) {
	s.Lock()
	defer s.Unlock()
	s.processors = append(s.processors, &registeredProcessor{name: name, priority: priority, processor: processor})
	sort.SliceStable(s.processors, func(i, j int) bool {
		return s.processors[i].priority < s.processors[j].priority
	})
	s.Log.Debugf("Added packet processor %s with priority %d", name, priority)
}

// RemoveProcessor unregisters processor.
func (s *Service) RemoveProcessor(name string) {
	s.Lock()
	defer s.Unlock()
	for i, registered := range s.processors {
		if registered.name == name {
			s.processors = append(s.processors[:i], s.processors[i+1:]...)
			return
		}
	}
}

// Deliver passes inbound packet to all processors, in the calling goroutine.
func (s *Service) Deliver(packet *InboundPacket) {
	s.Lock()
	processors := append([]*registeredProcessor(nil), s.processors...)
	s.Unlock()
	for _, registered := range processors {
		registered.processor.Process(packet)
	}
}

// Emit sends the packet out of the given switch port.
func (s *Service) Emit(packet *OutboundPacket) error {
	if packet.Device == "" {
		return errors.Errorf("packet-out without device")
	}
	s.Lock()
	s.emitted = append(s.emitted, packet)
	if len(s.emitted) > emittedHistory {
		s.emitted = s.emitted[len(s.emitted)-emittedHistory:]
	}
	sink := s.sink
	s.Unlock()
	s.Log.Debugf("Emitting %v", packet)
	if sink != nil {
		return sink(packet)
	}
	return nil
}

// SetSink installs function that transmits emitted packets.
func (s *Service) SetSink(sink func(packet *OutboundPacket) error) {
	s.Lock()
	defer s.Unlock()
	s.sink = sink
}

// GetEmitted returns recently emitted packets, oldest first.
func (s *Service) GetEmitted() []*OutboundPacket {
	s.Lock()
	defer s.Unlock()
	return append([]*OutboundPacket(nil), s.emitted...)
}

// injectHandler delivers packet posted as JSON InboundPacket (data in base64).
func (s *Service) injectHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		packet := &InboundPacket{}
		if err := json.NewDecoder(req.Body).Decode(packet); err != nil || packet.Device == "" {
			formatter.JSON(w, http.StatusBadRequest, "invalid packet")
			return
		}
		s.Deliver(packet)
		formatter.JSON(w, http.StatusOK, packet.String())
	}
}

func (s *Service) emittedHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		formatter.JSON(w, http.StatusOK, s.GetEmitted())
	}
}
