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

import (
	"github.com/pkg/errors"
)

/******************************* Lookup Failure *******************************/

// LookupFailure is returned when a resource needed to program rules cannot
// be resolved from inventory, topology or the shadow cache.
type LookupFailure struct {
	origErr error
}

// NewLookupFailure is the constructor for LookupFailure.
func NewLookupFailure(format string, args ...interface{}) error {
	return &LookupFailure{origErr: errors.Errorf(format, args...)}
}

// Error delegates the call to the underlying error.
func (e *LookupFailure) Error() string {
	return e.origErr.Error()
}

// GetOriginalError returns the underlying error.
func (e *LookupFailure) GetOriginalError() error {
	return e.origErr
}

/******************************** Not Mastered ********************************/

// NotMastered is returned when this node is not the master of the device
// the handler would program.
type NotMastered struct {
	origErr error
}

// NewNotMastered is the constructor for NotMastered.
func NewNotMastered(device interface{}) error {
	return &NotMastered{origErr: errors.Errorf("not the master of %v", device)}
}

// Error delegates the call to the underlying error.
func (e *NotMastered) Error() string {
	return e.origErr.Error()
}

// GetOriginalError returns the underlying error.
func (e *NotMastered) GetOriginalError() error {
	return e.origErr
}

/**************************** Configuration Missing ***************************/

// ConfigurationMissing is returned when required configuration, such as the
// external port of a gateway switch, is absent.
type ConfigurationMissing struct {
	origErr error
}

// NewConfigurationMissing is the constructor for ConfigurationMissing.
func NewConfigurationMissing(format string, args ...interface{}) error {
	return &ConfigurationMissing{origErr: errors.Errorf(format, args...)}
}

// Error delegates the call to the underlying error.
func (e *ConfigurationMissing) Error() string {
	return e.origErr.Error()
}

// GetOriginalError returns the underlying error.
func (e *ConfigurationMissing) GetOriginalError() error {
	return e.origErr
}

/**************************** Malformed Annotation ****************************/

// MalformedAnnotation is returned when a device or host annotation is
// missing or cannot be parsed.
type MalformedAnnotation struct {
	origErr error
}

// NewMalformedAnnotation is the constructor for MalformedAnnotation.
func NewMalformedAnnotation(format string, args ...interface{}) error {
	return &MalformedAnnotation{origErr: errors.Errorf(format, args...)}
}

// Error delegates the call to the underlying error.
func (e *MalformedAnnotation) Error() string {
	return e.origErr.Error()
}

// GetOriginalError returns the underlying error.
func (e *MalformedAnnotation) GetOriginalError() error {
	return e.origErr
}
