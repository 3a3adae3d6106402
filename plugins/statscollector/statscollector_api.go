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

// API defines methods provided by the statistics collector for other plugins
// to report activity of the VTN.
type API interface {
	// CountEvent increments the counter of handled events of the given
	// family (device, host, resource) and type.
	CountEvent(family, eventType string)

	// CountPacket increments the counter of punted packets of the given kind.
	CountPacket(kind string)

	// CountError increments the counter of aborted handler invocations.
	CountError(kind string)
}
