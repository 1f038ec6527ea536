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

package memble

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/bourdakos1/nearby-1/nbxact/bledefs"
)

// Medium is one simulated BLE device.  Implements bledefs.Medium.
type Medium struct {
	env  *Environment
	addr string

	mtx       sync.Mutex
	available bool

	advertising bool
	advData     bledefs.AdvertisementData

	scanning  bool
	scanUuids []bledefs.BleUuid16
	scanCb    bledefs.AdvFoundFn

	gattChrs map[bledefs.GattCharacteristic][]byte
}

func (m *Medium) Addr() string {
	return m.addr
}

func (m *Medium) Peripheral() bledefs.Peripheral {
	return bledefs.Peripheral{Addr: m.addr}
}

func (m *Medium) IsAvailable() bool {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	return m.available
}

// SetAvailable simulates the medium's driver appearing or disappearing.
func (m *Medium) SetAvailable(available bool) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	m.available = available
}

// mergeAdvData flattens an advertising packet and its scan response into
// the single view a scanner observes.
func mergeAdvData(advData bledefs.AdvertisementData,
	scanRspData bledefs.AdvertisementData) bledefs.AdvertisementData {

	out := bledefs.AdvertisementData{
		Connectable: advData.Connectable,
		TxPowerLvl:  advData.TxPowerLvl,
		SvcData:     map[bledefs.BleUuid16][]byte{},
	}

	out.SvcUuids = append(out.SvcUuids, advData.SvcUuids...)
	out.SvcUuids = append(out.SvcUuids, scanRspData.SvcUuids...)

	for u, b := range advData.SvcData {
		out.SvcData[u] = append([]byte(nil), b...)
	}
	for u, b := range scanRspData.SvcData {
		out.SvcData[u] = append([]byte(nil), b...)
	}

	return out
}

func (m *Medium) StartAdvertising(advData bledefs.AdvertisementData,
	scanRspData bledefs.AdvertisementData, mode bledefs.PowerMode) error {

	m.mtx.Lock()
	if !m.available {
		m.mtx.Unlock()
		return errors.New("medium unavailable")
	}
	if m.advertising {
		m.mtx.Unlock()
		return errors.New("already advertising")
	}

	m.advertising = true
	m.advData = mergeAdvData(advData, scanRspData)
	m.mtx.Unlock()

	// Deliver the new packet to everyone currently scanning.
	for _, peer := range m.env.others(m.addr) {
		peer.deliver(m.Peripheral(), m.currentAdvData())
	}

	return nil
}

func (m *Medium) StopAdvertising() error {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	m.advertising = false
	m.advData = bledefs.AdvertisementData{}

	return nil
}

func (m *Medium) StartScanning(uuids []bledefs.BleUuid16,
	mode bledefs.PowerMode, cb bledefs.AdvFoundFn) error {

	m.mtx.Lock()
	if !m.available {
		m.mtx.Unlock()
		return errors.New("medium unavailable")
	}
	if m.scanning {
		m.mtx.Unlock()
		return errors.New("already scanning")
	}

	m.scanning = true
	m.scanUuids = append([]bledefs.BleUuid16(nil), uuids...)
	m.scanCb = cb
	m.mtx.Unlock()

	// A real scan immediately hears the packets already in the air.
	for _, peer := range m.env.others(m.addr) {
		if d, ok := peer.activeAdvData(); ok {
			m.deliver(peer.Peripheral(), d)
		}
	}

	return nil
}

func (m *Medium) StopScanning() error {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	m.scanning = false
	m.scanUuids = nil
	m.scanCb = nil

	return nil
}

func (m *Medium) currentAdvData() bledefs.AdvertisementData {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	return m.advData
}

func (m *Medium) activeAdvData() (bledefs.AdvertisementData, bool) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	if !m.advertising {
		return bledefs.AdvertisementData{}, false
	}

	return m.advData, true
}

// deliver hands an observed packet to this medium's scan callback if the
// packet carries service data for any scanned UUID.
func (m *Medium) deliver(p bledefs.Peripheral, d bledefs.AdvertisementData) {
	m.mtx.Lock()
	cb := m.scanCb
	uuids := m.scanUuids
	m.mtx.Unlock()

	if cb == nil {
		return
	}

	for _, u := range uuids {
		if _, ok := d.SvcData[u]; ok {
			cb(p, d)
			return
		}
	}
}

// rebroadcast re-delivers this medium's active advertisement to every
// matching scanner in the environment.
func (m *Medium) rebroadcast() {
	d, ok := m.activeAdvData()
	if !ok {
		return
	}

	for _, peer := range m.env.others(m.addr) {
		peer.deliver(m.Peripheral(), d)
	}
}
