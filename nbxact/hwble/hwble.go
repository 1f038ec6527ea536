//go:build !windows
// +build !windows

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
// native BLE support.
package hwble

import (
	"context"
	"sync"
	"time"

	"github.com/go-ble/ble"
	"github.com/go-ble/ble/examples/lib/dev"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/bourdakos1/nearby-1/nbxact/bledefs"
)

const connectTimeout = 10 * time.Second

// Medium drives one native BLE controller.  Implements bledefs.Medium.
type Medium struct {
	mtx sync.Mutex
	dev ble.Device

	advCancel  context.CancelFunc
	scanCancel context.CancelFunc

	gatt *gattServer
}

// NewMedium opens the named controller ("default" for the first one).
func NewMedium(ctlrName string) (*Medium, error) {
	d, err := dev.NewDevice(ctlrName)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open BLE controller %s",
			ctlrName)
	}

	ble.SetDefaultDevice(d)

	return &Medium{dev: d}, nil
}

func (m *Medium) IsAvailable() bool {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	return m.dev != nil
}

// StartAdvertising broadcasts a single service data field.  The native
// stack exposes one service data entry per packet; callers that need
// more must consolidate first.
func (m *Medium) StartAdvertising(advData bledefs.AdvertisementData,
	scanRspData bledefs.AdvertisementData, mode bledefs.PowerMode) error {

	m.mtx.Lock()
	defer m.mtx.Unlock()

	if m.dev == nil {
		return errors.New("medium unavailable")
	}
	if m.advCancel != nil {
		return errors.New("already advertising")
	}

	merged := map[bledefs.BleUuid16][]byte{}
	for u, b := range advData.SvcData {
		merged[u] = b
	}
	for u, b := range scanRspData.SvcData {
		merged[u] = b
	}

	if len(merged) != 1 {
		return errors.Errorf(
			"native advertising carries exactly one service data field; "+
				"have %d", len(merged))
	}

	var svcUuid bledefs.BleUuid16
	var svcData []byte
	for u, b := range merged {
		svcUuid = u
		svcData = append([]byte(nil), b...)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.advCancel = cancel

	go func() {
		err := m.dev.AdvertiseServiceData16(ctx, uint16(svcUuid), svcData)
		if err != nil && ctx.Err() == nil {
			log.Warnf("Advertising terminated: %s", err.Error())
		}
	}()

	return nil
}

func (m *Medium) StopAdvertising() error {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	if m.advCancel != nil {
		m.advCancel()
		m.advCancel = nil
	}

	return nil
}

// uuid16FromBle extracts a 16-bit UUID from the native little-endian
// form.
func uuid16FromBle(u ble.UUID) (bledefs.BleUuid16, bool) {
	if len(u) != 2 {
		return 0, false
	}

	return bledefs.BleUuid16(uint16(u[0]) | uint16(u[1])<<8), true
}

func advDataFromBle(a ble.Advertisement) bledefs.AdvertisementData {
	d := bledefs.AdvertisementData{
		Connectable: a.Connectable(),
		TxPowerLvl:  a.TxPowerLevel(),
		SvcData:     map[bledefs.BleUuid16][]byte{},
	}

	for _, u := range a.Services() {
		if u16, ok := uuid16FromBle(u); ok {
			d.SvcUuids = append(d.SvcUuids, u16)
		}
	}

	for _, sd := range a.ServiceData() {
		if u16, ok := uuid16FromBle(sd.UUID); ok {
			d.SvcData[u16] = append([]byte(nil), sd.Data...)
		}
	}

	return d
}

// StartScanning watches for packets carrying service data under any of
// the given UUIDs.  The native scan reports everything; filtering
// happens here.
func (m *Medium) StartScanning(uuids []bledefs.BleUuid16,
	mode bledefs.PowerMode, cb bledefs.AdvFoundFn) error {

	m.mtx.Lock()
	defer m.mtx.Unlock()

	if m.dev == nil {
		return errors.New("medium unavailable")
	}
	if m.scanCancel != nil {
		return errors.New("already scanning")
	}

	wanted := map[bledefs.BleUuid16]struct{}{}
	for _, u := range uuids {
		wanted[u] = struct{}{}
	}

	handler := func(a ble.Advertisement) {
		d := advDataFromBle(a)

		match := false
		for u := range d.SvcData {
			if _, ok := wanted[u]; ok {
				match = true
				break
			}
		}
		if !match {
			return
		}

		cb(bledefs.Peripheral{Addr: a.Addr().String()}, d)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.scanCancel = cancel

	go func() {
		err := m.dev.Scan(ctx, true, handler)
		if err != nil && ctx.Err() == nil {
			log.Warnf("Scanning terminated: %s", err.Error())
		}
	}()

	return nil
}

func (m *Medium) StopScanning() error {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	if m.scanCancel != nil {
		m.scanCancel()
		m.scanCancel = nil
	}

	return nil
}

// Close stops all radio activity and releases the controller.
func (m *Medium) Close() error {
	m.StopAdvertising()
	m.StopScanning()

	m.mtx.Lock()
	defer m.mtx.Unlock()

	if m.dev == nil {
		return nil
	}

	err := m.dev.Stop()
	m.dev = nil

	return err
}

// Radio reports the controller power state.  The native stack offers no
// portable query, so the radio is considered enabled as long as the
// controller opened.
type Radio struct {
	m *Medium
}

func NewRadio(m *Medium) *Radio {
	return &Radio{m: m}
}

func (r *Radio) IsEnabled() bool {
	return r.m.IsAvailable()
}
