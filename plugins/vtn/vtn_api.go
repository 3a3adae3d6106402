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

// API defines methods provided by the VTN plugin.
type API interface {
	// SetExPortName stores the name of the external bridge port into the
	// replicated configuration. It is applied to controller nodes and
	// switches that join afterwards.
	SetExPortName(name string) error

	// GetExPortName returns the configured name of the external bridge port.
	GetExPortName() string
}
