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

// Package vtnrsc is the tenant resource inventory of the VTN: networks,
// subnets, virtual ports, router interfaces and floating IPs.
//
// Changes of router interfaces, floating IPs and virtual ports are announced
// to watchers as a single ResourceEvent type carrying a tagged payload.
// The plugin also allocates L3 VNIs for tenant routers from a configured pool.
package vtnrsc
