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

// Package topology keeps the inventory of switches, their ports and the
// hosts attached to them, and notifies registered listeners about changes.
//
// Devices and hosts are reported into the registry by whatever discovers
// them (REST API of this plugin, tests). Listeners are called synchronously
// from the goroutine that reported the change.
package topology
