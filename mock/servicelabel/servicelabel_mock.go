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

package servicelabel

const (
	// DefaultAgentLabel is the label reported until SetAgentLabel is called.
	DefaultAgentLabel = "vtn-test-node"

	allAgentsPrefix = "/vnf-agent/"
)

// MockServiceLabel reports a fixed node identity to the plugins under test.
type MockServiceLabel struct {
	agentLabel string
}

// NewMockServiceLabel returns a mock labelled DefaultAgentLabel.
func NewMockServiceLabel() *MockServiceLabel {
	return &MockServiceLabel{agentLabel: DefaultAgentLabel}
}

// SetAgentLabel changes the label, e.g. to emulate a second controller node.
func (msl *MockServiceLabel) SetAgentLabel(label string) {
	msl.agentLabel = label
}

// GetAgentLabel returns the label of the emulated node.
func (msl *MockServiceLabel) GetAgentLabel() string {
	return msl.agentLabel
}

// GetAgentPrefix returns the key prefix of the emulated node.
func (msl *MockServiceLabel) GetAgentPrefix() string {
	return msl.GetDifferentAgentPrefix(msl.agentLabel)
}

// GetDifferentAgentPrefix returns the key prefix of another node.
func (msl *MockServiceLabel) GetDifferentAgentPrefix(microserviceLabel string) string {
	return allAgentsPrefix + microserviceLabel + "/"
}

// GetAllAgentsPrefix returns the key prefix shared by all nodes.
func (msl *MockServiceLabel) GetAllAgentsPrefix() string {
	return allAgentsPrefix
}
