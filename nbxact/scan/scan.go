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

// Package scan tracks peripherals discovered while BLE scanning: which
// service ids are being watched, which peripherals have been reported,
// and which previously-seen peripherals have gone stale.
package scan

import (
	"github.com/bourdakos1/nearby-1/nbxact/bledefs"
)

// Callbacks a client registers per tracked service id.
type DiscoveredPeripheralCallback struct {
	PeripheralDiscovered func(p bledefs.Peripheral, serviceId string,
		advBytes []byte, fast bool)
	PeripheralLost func(p bledefs.Peripheral, serviceId string)
}

// AdvertisementFetcher retrieves full hosted advertisements for a
// peripheral whose header was observed.  The capability is handed to the
// tracker by the orchestrator; prior may carry a partial result to
// resume into.
type AdvertisementFetcher func(p bledefs.Peripheral, numSlots int, psm int,
	interestingServiceIds []string,
	prior *AdvertisementReadResult) *AdvertisementReadResult

// Tracker is the bookkeeping component the orchestrator feeds found
// advertisements into.
type Tracker interface {
	StartTracking(serviceId string, cb DiscoveredPeripheralCallback,
		fastSvcUuid bledefs.BleUuid16)
	StopTracking(serviceId string)

	ProcessFoundBleAdvertisement(p bledefs.Peripheral,
		d bledefs.AdvertisementData, fetch AdvertisementFetcher)

	// ProcessLostGattAdvertisements expires peripherals that have not
	// been re-seen within the lost timeout and reports them lost.
	ProcessLostGattAdvertisements()
}
