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

// Package flowtable defines the table-programming services used by the VTN
// (classifier, L2 forwarding, L3 forwarding, ARP, SNAT, DNAT, group table,
// flow query) and implements all of them with Renderer.
//
// Renderer renders every request into FlowEntry objects of the VTN pipeline
// and keeps them as the desired flow state of each device. An entry is keyed
// by (device, table, priority, selector), which makes repeated identical
// requests idempotent.
//
// Pipeline tables:
//
//	0  classifier
//	10 ARP
//	20 DNAT
//	30 L3 forwarding
//	40 SNAT
//	50 MAC (L2 forwarding)
package flowtable
