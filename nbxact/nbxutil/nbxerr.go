/**
 * Licensed to the Apache Software Foundation (ASF) under one
 * or more contributor license agreements.  See the NOTICE file
 * distributed with this work for additional information
 * regarding copyright ownership.  The ASF licenses this file
 * to you under the Apache License, Version 2.0 (the
 * "License"); you may not use this file except in compliance
 * with the License.  You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

package nbxutil

import (
	"fmt"
)

// Indicates an attempt to transition to the already-current state (e.g.,
// starting an advertisement that is already active).
type AlreadyError struct {
	Text string
}

func NewAlreadyError(text string) *AlreadyError {
	return &AlreadyError{text}
}

func FmtAlreadyError(format string, args ...interface{}) *AlreadyError {
	return NewAlreadyError(fmt.Sprintf(format, args...))
}

func (err *AlreadyError) Error() string {
	return err.Text
}

func IsAlready(err error) bool {
	if err == nil {
		return false
	}

	_, ok := err.(*AlreadyError)
	return ok
}

// Indicates that the Bluetooth radio is powered off.
type RadioDisabledError struct {
	Text string
}

func NewRadioDisabledError(text string) *RadioDisabledError {
	return &RadioDisabledError{text}
}

func (err *RadioDisabledError) Error() string {
	return err.Text
}

func IsRadioDisabled(err error) bool {
	if err == nil {
		return false
	}

	_, ok := err.(*RadioDisabledError)
	return ok
}

// Indicates that the BLE medium itself is missing or unusable (no driver,
// no adapter).  Distinct from a radio that is merely switched off.
type UnavailableError struct {
	Text string
}

func NewUnavailableError(text string) *UnavailableError {
	return &UnavailableError{text}
}

func (err *UnavailableError) Error() string {
	return err.Text
}

func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}

	_, ok := err.(*UnavailableError)
	return ok
}

// Represents a failure reported by the underlying radio driver.
type DriverError struct {
	Text string
}

func NewDriverError(text string) *DriverError {
	return &DriverError{text}
}

func FmtDriverError(format string, args ...interface{}) *DriverError {
	return NewDriverError(fmt.Sprintf(format, args...))
}

func (err *DriverError) Error() string {
	return err.Text
}

func IsDriver(err error) bool {
	if err == nil {
		return false
	}

	_, ok := err.(*DriverError)
	return ok
}

// Indicates a rejected argument (empty payload, oversized payload, empty
// service id).  No state changes when such an error is returned.
type ArgError struct {
	Text string
}

func NewArgError(text string) *ArgError {
	return &ArgError{text}
}

func FmtArgError(format string, args ...interface{}) *ArgError {
	return NewArgError(fmt.Sprintf(format, args...))
}

func (err *ArgError) Error() string {
	return err.Text
}

func IsArg(err error) bool {
	if err == nil {
		return false
	}

	_, ok := err.(*ArgError)
	return ok
}
