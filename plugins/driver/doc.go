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

// Package driver provides device driver handles used to configure the
// integration bridge and the overlay tunnels of compute nodes.
//
// A handle is bound to a controller device (the OVSDB attachment point of a
// node). The in-process implementation records the desired bridge and tunnel
// configuration and reads bridge ports from the topology.
package driver
