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

package nble

import (
	log "github.com/sirupsen/logrus"

	"github.com/bourdakos1/nearby-1/nbxact/adv"
	"github.com/bourdakos1/nearby-1/nbxact/bledefs"
	"github.com/bourdakos1/nearby-1/nbxact/nbxutil"
	"github.com/bourdakos1/nearby-1/nbxact/scan"
)

// hostAdvertisementLocked places an advertisement on the shared GATT
// service, starting the server if this is the first hosted slot.
func (b *BleV2) hostAdvertisementLocked(serviceId string,
	advBytes []byte) error {

	if b.gattServer == nil {
		srv, err := b.medium.StartGattServer()
		if err != nil {
			return nbxutil.FmtDriverError(
				"failed to start GATT server: %s", err.Error())
		}
		b.gattServer = srv
	}

	slot := b.slotTable.Insert(serviceId, advBytes)

	chr, err := b.gattServer.CreateCharacteristic(bledefs.CopresenceSvcUuid,
		adv.AdvertisementUuid(slot))
	if err != nil {
		b.stopGattServerLocked()
		return nbxutil.FmtDriverError(
			"failed to create characteristic for slot=%d: %s",
			slot, err.Error())
	}

	if err := b.gattServer.UpdateCharacteristic(chr, advBytes); err != nil {
		b.stopGattServerLocked()
		return nbxutil.FmtDriverError(
			"failed to populate characteristic for slot=%d: %s",
			slot, err.Error())
	}

	b.hostedChrs[chr] = struct{}{}

	log.Debugf("Hosting advertisement for service id=%s at slot=%d",
		serviceId, slot)

	return nil
}

// stopGattServerLocked tears down the shared server and forgets every
// hosted slot.  If the server refuses to stop it keeps serving, so the
// hosted characteristics are zeroed first; stale advertisement bytes
// must not remain readable.  Clear failures are logged, not returned.
func (b *BleV2) stopGattServerLocked() {
	if b.gattServer != nil {
		if err := b.gattServer.Stop(); err != nil {
			log.Warnf("Failed to stop GATT server: %s", err.Error())

			for chr := range b.hostedChrs {
				if err := b.gattServer.UpdateCharacteristic(chr, nil); err != nil {
					log.Warnf("Failed to clear characteristic %x: %s",
						chr.ChrUuid, err.Error())
				}
			}
		}
		b.gattServer = nil
	}

	b.hostedChrs = map[bledefs.GattCharacteristic]struct{}{}
	b.slotTable.Clear()
}

// fetchAdvertisements connects to a peripheral whose header was observed
// and reads the hosted advertisement characteristics, slot by slot.
// Runs on the task queue worker with the orchestrator mutex released;
// only the power mode is read under lock.
//
// A missing characteristic is not a failure: the peripheral simply does
// not host that slot anymore.  A failed read marks the attempt
// incomplete but the remaining slots are still tried.
func (b *BleV2) fetchAdvertisements(p bledefs.Peripheral, numSlots int,
	psm int, interestingServiceIds []string,
	prior *scan.AdvertisementReadResult) *scan.AdvertisementReadResult {

	res := prior
	if res == nil {
		res = scan.NewAdvertisementReadResult()
	}

	b.mtx.Lock()
	mode := b.scanMode
	b.mtx.Unlock()

	client, err := b.medium.ConnectToGattServer(p, mode)
	if err != nil {
		log.Debugf("Failed to connect to %s: %s", p, err.Error())
		res.RecordLastReadStatus(false)
		return res
	}
	defer client.Disconnect()

	if err := client.DiscoverService(bledefs.CopresenceSvcUuid); err != nil {
		log.Debugf("Failed to discover advertisement service on %s: %s",
			p, err.Error())
		res.RecordLastReadStatus(false)
		return res
	}

	success := true
	for slot := 0; slot < numSlots; slot++ {
		if res.HasAdvertisement(slot) {
			continue
		}

		chr, ok := client.GetCharacteristic(bledefs.CopresenceSvcUuid,
			adv.AdvertisementUuid(slot))
		if !ok {
			continue
		}

		val, err := client.ReadCharacteristic(chr)
		if err != nil {
			log.Debugf("Failed to read slot=%d on %s: %s",
				slot, p, err.Error())
			success = false
			continue
		}

		res.AddAdvertisement(slot, val)
	}

	res.RecordLastReadStatus(success)
	return res
}
