//go:build windows
// +build windows

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

// Package hwble implements the BLE medium on top of the host machine's
// native BLE support.  Native BLE is not supported on Windows.
package hwble

import (
	"github.com/pkg/errors"

	"github.com/bourdakos1/nearby-1/nbxact/bledefs"
)

type Medium struct{}

func NewMedium(ctlrName string) (*Medium, error) {
	return nil, errors.New("native BLE is not supported on Windows")
}

func (m *Medium) IsAvailable() bool { return false }

func (m *Medium) StartAdvertising(advData bledefs.AdvertisementData,
	scanRspData bledefs.AdvertisementData, mode bledefs.PowerMode) error {

	return errors.New("native BLE is not supported on Windows")
}

func (m *Medium) StopAdvertising() error { return nil }

func (m *Medium) StartScanning(uuids []bledefs.BleUuid16,
	mode bledefs.PowerMode, cb bledefs.AdvFoundFn) error {

	return errors.New("native BLE is not supported on Windows")
}

func (m *Medium) StopScanning() error { return nil }

func (m *Medium) StartGattServer() (bledefs.GattServer, error) {
	return nil, errors.New("native BLE is not supported on Windows")
}

func (m *Medium) ConnectToGattServer(p bledefs.Peripheral,
	mode bledefs.PowerMode) (bledefs.GattClient, error) {

	return nil, errors.New("native BLE is not supported on Windows")
}

func (m *Medium) Close() error { return nil }

type Radio struct{}

func NewRadio(m *Medium) *Radio { return &Radio{} }

func (r *Radio) IsEnabled() bool { return false }
