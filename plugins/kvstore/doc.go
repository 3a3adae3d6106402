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

// Package kvstore provides the maps the VTN plugins keep their shared state in.
//
// Two kinds of maps are available:
//   - eventually-consistent maps, where concurrent writes are resolved by
//     last-writer-wins using timestamps supplied by a Clock,
//   - consistent maps holding versioned string values, used for rarely written
//     cluster-wide settings.
//
// Both kinds are kept in memory and, when a cluster-wide DB is injected,
// written through to it under the "vtn/store/" key prefix and re-loaded at
// map creation.
package kvstore
