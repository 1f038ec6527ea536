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

// Package nble orchestrates short-range discovery over a BLE medium:
// advertising service payloads, scanning for peers, and exchanging full
// advertisements over GATT when they do not fit in a radio packet.
package nble

import (
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/bourdakos1/nearby-1/nbxact/adv"
	"github.com/bourdakos1/nearby-1/nbxact/bledefs"
	"github.com/bourdakos1/nearby-1/nbxact/nbxutil"
	"github.com/bourdakos1/nearby-1/nbxact/scan"
	"github.com/bourdakos1/nearby-1/nbxact/task"
)

// How long a previously seen peripheral may go unseen before it is
// reported lost.  Also the sweep period.
const PeripheralLostTimeout = 3 * time.Second

// BleV2 drives one BLE medium.  One mutex guards all mutable state;
// radio callbacks are redispatched through a serial task queue before
// they touch it, and GATT I/O during a fetch happens with the mutex
// released.
type BleV2 struct {
	radio  bledefs.Radio
	medium bledefs.Medium

	mtx sync.Mutex

	// Advertising side.  Each advertised service id maps to its fast
	// UUID, or zero when the advertisement is hosted over GATT.
	advertisers map[string]bledefs.BleUuid16
	fastAdvs    map[bledefs.BleUuid16][]byte
	slotTable   *SlotTable
	gattServer  bledefs.GattServer
	hostedChrs  map[bledefs.GattCharacteristic]struct{}
	advertising bool
	advMode     bledefs.PowerMode

	// PSM of the local L2CAP listener advertised to peers.  Zero when no
	// listener is running.
	psm uint16

	// Scanning side.
	tracker  scan.Tracker
	scanners map[string]bledefs.BleUuid16
	scanning bool
	scanMode bledefs.PowerMode

	lostAlarm *task.CancelableAlarm
	bleTaskQ  task.TaskQueue
}

func NewBleV2(radio bledefs.Radio, medium bledefs.Medium) *BleV2 {
	b := &BleV2{
		radio:       radio,
		medium:      medium,
		advertisers: map[string]bledefs.BleUuid16{},
		fastAdvs:    map[bledefs.BleUuid16][]byte{},
		slotTable:   NewSlotTable(),
		hostedChrs:  map[bledefs.GattCharacteristic]struct{}{},
		tracker:     scan.NewPeripheralTracker(PeripheralLostTimeout),
		scanners:    map[string]bledefs.BleUuid16{},
		bleTaskQ:    task.NewTaskQueue("nble"),
	}

	b.lostAlarm = task.NewCancelableAlarm("nble-lost-peripherals",
		PeripheralLostTimeout, b.tracker.ProcessLostGattAdvertisements)

	b.bleTaskQ.Start(10)

	return b
}

func PowerLevelToPowerMode(lvl bledefs.PowerLevel) bledefs.PowerMode {
	switch lvl {
	case bledefs.POWER_LEVEL_HIGH:
		return bledefs.POWER_MODE_HIGH
	default:
		return bledefs.POWER_MODE_MEDIUM
	}
}

func (b *BleV2) IsAvailable() bool {
	return b.medium.IsAvailable()
}

// StartAdvertising begins broadcasting the given payload for a service.
// If fastSvcUuid is nonzero the encoded advertisement rides directly in
// the radio packet under that UUID; otherwise it is hosted on the shared
// GATT service and only a compact header is broadcast.
func (b *BleV2) StartAdvertising(serviceId string, data []byte,
	lvl bledefs.PowerLevel, fastSvcUuid bledefs.BleUuid16) error {

	b.mtx.Lock()
	defer b.mtx.Unlock()

	if len(data) == 0 {
		return nbxutil.FmtArgError(
			"refusing to advertise empty payload for service id=%s",
			serviceId)
	}
	if len(data) > adv.MaxDataLength {
		return nbxutil.FmtArgError(
			"refusing to advertise %d-byte payload for service id=%s; "+
				"max %d", len(data), serviceId, adv.MaxDataLength)
	}
	if _, ok := b.advertisers[serviceId]; ok {
		return nbxutil.FmtAlreadyError(
			"already advertising service id=%s", serviceId)
	}
	if !b.radio.IsEnabled() {
		return nbxutil.NewRadioDisabledError(
			"cannot start advertising: radio is disabled")
	}
	if !b.medium.IsAvailable() {
		return nbxutil.NewUnavailableError(
			"cannot start advertising: no usable BLE medium")
	}

	var serviceIdHash []byte
	if fastSvcUuid == 0 {
		serviceIdHash = adv.GenerateServiceIdHash(adv.VERSION_V2, serviceId)
	}

	a, err := adv.NewAdvertisement(adv.VERSION_V2, adv.SOCKET_VERSION_V2,
		serviceIdHash, data, adv.GenerateDeviceToken(), b.psm)
	if err != nil {
		return err
	}
	advBytes := a.Marshal()

	if fastSvcUuid != 0 {
		b.fastAdvs[fastSvcUuid] = advBytes
	} else {
		if err := b.hostAdvertisementLocked(serviceId, advBytes); err != nil {
			return err
		}
	}
	b.advertisers[serviceId] = fastSvcUuid

	mode := PowerLevelToPowerMode(lvl)
	if err := b.refreshAdvertisingLocked(mode); err != nil {
		b.removeAdvertiserLocked(serviceId)
		return err
	}

	log.Debugf("Started advertising service id=%s (fast=%t)",
		serviceId, fastSvcUuid != 0)

	return nil
}

// StopAdvertising stops broadcasting for a service.  Stopping a GATT
// hosted advertisement tears the shared server down entirely, dropping
// every other hosted advertisement with it.
func (b *BleV2) StopAdvertising(serviceId string) error {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	if _, ok := b.advertisers[serviceId]; !ok {
		return nbxutil.FmtAlreadyError(
			"already not advertising service id=%s", serviceId)
	}

	b.removeAdvertiserLocked(serviceId)

	log.Debugf("Stopped advertising service id=%s", serviceId)

	return nil
}

func (b *BleV2) IsAdvertising(serviceId string) bool {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	_, ok := b.advertisers[serviceId]
	return ok
}

// removeAdvertiserLocked unregisters a service and brings the radio
// broadcast in line with what remains.  Radio errors during the refresh
// are logged, not returned; the service is gone either way.
func (b *BleV2) removeAdvertiserLocked(serviceId string) {
	fastSvcUuid := b.advertisers[serviceId]
	delete(b.advertisers, serviceId)

	if fastSvcUuid != 0 {
		delete(b.fastAdvs, fastSvcUuid)
	} else {
		// Tearing down one hosted advertisement tears down all of them.
		for id, fu := range b.advertisers {
			if fu == 0 {
				delete(b.advertisers, id)
			}
		}
		b.stopGattServerLocked()
	}

	if err := b.refreshAdvertisingLocked(b.advMode); err != nil {
		log.Warnf("Failed to refresh advertising after removing service "+
			"id=%s: %s", serviceId, err.Error())
	}
}

// refreshAdvertisingLocked restarts the radio broadcast so that it
// carries the current fast advertisements plus, if any advertisements
// are hosted, a freshly built header.  Everything rides in the
// advertising payload with an empty scan response; the drivers here
// treat the two as one merged packet, so splitting the header into the
// scan response would buy nothing.
func (b *BleV2) refreshAdvertisingLocked(mode bledefs.PowerMode) error {
	if b.advertising {
		if err := b.medium.StopAdvertising(); err != nil {
			return nbxutil.FmtDriverError(
				"failed to stop advertising: %s", err.Error())
		}
		b.advertising = false
	}

	d := bledefs.AdvertisementData{
		Connectable: true,
		SvcData:     map[bledefs.BleUuid16][]byte{},
	}

	for fastSvcUuid, advBytes := range b.fastAdvs {
		d.SvcUuids = append(d.SvcUuids, fastSvcUuid)
		d.SvcData[fastSvcUuid] = advBytes
	}

	if b.slotTable.Len() > 0 {
		h := adv.BuildHeader(b.slotTable.Entries(), b.psm)
		d.SvcUuids = append(d.SvcUuids, bledefs.CopresenceSvcUuid)
		d.SvcData[bledefs.CopresenceSvcUuid] = h.Marshal()
	}

	if len(d.SvcData) == 0 {
		return nil
	}

	err := b.medium.StartAdvertising(d, bledefs.AdvertisementData{}, mode)
	if err != nil {
		return nbxutil.FmtDriverError(
			"failed to start advertising: %s", err.Error())
	}

	b.advertising = true
	b.advMode = mode

	return nil
}

// StartScanning begins watching for peers advertising a service.
// Discoveries and losses are delivered on a dedicated goroutine, never
// from a radio driver thread.
func (b *BleV2) StartScanning(serviceId string,
	cb scan.DiscoveredPeripheralCallback, lvl bledefs.PowerLevel,
	fastSvcUuid bledefs.BleUuid16) error {

	b.mtx.Lock()
	defer b.mtx.Unlock()

	if serviceId == "" {
		return nbxutil.NewArgError("cannot scan for empty service id")
	}
	if _, ok := b.scanners[serviceId]; ok {
		return nbxutil.FmtAlreadyError(
			"already scanning for service id=%s", serviceId)
	}
	if !b.radio.IsEnabled() {
		return nbxutil.NewRadioDisabledError(
			"cannot start scanning: radio is disabled")
	}
	if !b.medium.IsAvailable() {
		return nbxutil.NewUnavailableError(
			"cannot start scanning: no usable BLE medium")
	}

	b.tracker.StartTracking(serviceId, cb, fastSvcUuid)
	b.scanners[serviceId] = fastSvcUuid

	mode := PowerLevelToPowerMode(lvl)
	if err := b.refreshScanningLocked(mode); err != nil {
		b.tracker.StopTracking(serviceId)
		delete(b.scanners, serviceId)
		return err
	}

	if !b.lostAlarm.Active() {
		if err := b.lostAlarm.Start(); err != nil {
			log.Warnf("Failed to start lost-peripheral alarm: %s",
				err.Error())
		}
	}

	log.Debugf("Started scanning for service id=%s", serviceId)

	return nil
}

func (b *BleV2) StopScanning(serviceId string) error {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	if _, ok := b.scanners[serviceId]; !ok {
		return nbxutil.FmtAlreadyError(
			"already not scanning for service id=%s", serviceId)
	}

	b.tracker.StopTracking(serviceId)
	delete(b.scanners, serviceId)

	if len(b.scanners) == 0 {
		if b.scanning {
			if err := b.medium.StopScanning(); err != nil {
				return nbxutil.FmtDriverError(
					"failed to stop scanning: %s", err.Error())
			}
			b.scanning = false
		}
		if b.lostAlarm.Active() {
			if err := b.lostAlarm.Cancel(); err != nil {
				log.Warnf("Failed to cancel lost-peripheral alarm: %s",
					err.Error())
			}
		}
		return nil
	}

	return b.refreshScanningLocked(b.scanMode)
}

func (b *BleV2) IsScanning(serviceId string) bool {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	_, ok := b.scanners[serviceId]
	return ok
}

// refreshScanningLocked restarts the radio scan with the UUID filter
// covering the header service plus every tracked fast service.  A
// service joining an active session therefore costs a stop/start at
// the radio; the restart is what widens (or narrows) the filter, since
// the drivers take the UUID list only at scan start.
func (b *BleV2) refreshScanningLocked(mode bledefs.PowerMode) error {
	if b.scanning {
		if err := b.medium.StopScanning(); err != nil {
			return nbxutil.FmtDriverError(
				"failed to stop scanning: %s", err.Error())
		}
		b.scanning = false
	}

	uuids := []bledefs.BleUuid16{bledefs.CopresenceSvcUuid}
	for _, fastSvcUuid := range b.scanners {
		if fastSvcUuid != 0 {
			uuids = append(uuids, fastSvcUuid)
		}
	}

	if err := b.medium.StartScanning(uuids, mode, b.advFound); err != nil {
		return nbxutil.FmtDriverError(
			"failed to start scanning: %s", err.Error())
	}

	b.scanning = true
	b.scanMode = mode

	return nil
}

// advFound runs on a radio driver thread; it redispatches to the serial
// task queue so that found events are processed one at a time without
// blocking the driver.
func (b *BleV2) advFound(p bledefs.Peripheral, d bledefs.AdvertisementData) {
	b.bleTaskQ.Enqueue(func() error {
		b.tracker.ProcessFoundBleAdvertisement(p, d, b.fetchAdvertisements)
		return nil
	})
}

// Close stops all advertising and scanning and releases the medium.
func (b *BleV2) Close() error {
	b.mtx.Lock()

	for serviceId := range b.scanners {
		b.tracker.StopTracking(serviceId)
		delete(b.scanners, serviceId)
	}
	if b.scanning {
		if err := b.medium.StopScanning(); err != nil {
			log.Warnf("Failed to stop scanning on close: %s", err.Error())
		}
		b.scanning = false
	}

	b.advertisers = map[string]bledefs.BleUuid16{}
	b.fastAdvs = map[bledefs.BleUuid16][]byte{}
	b.stopGattServerLocked()
	if b.advertising {
		if err := b.medium.StopAdvertising(); err != nil {
			log.Warnf("Failed to stop advertising on close: %s",
				err.Error())
		}
		b.advertising = false
	}

	b.mtx.Unlock()

	if b.lostAlarm.Active() {
		b.lostAlarm.Cancel()
	}

	return b.bleTaskQ.Stop(fmt.Errorf("medium closed"))
}
