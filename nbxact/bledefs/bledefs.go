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

package bledefs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Maximum value length of a GATT attribute; also the cap on a caller
// supplied advertisement payload.
const BLE_ATT_ATTR_MAX_LEN = 512

// The well-known 16-bit service UUID that hosted advertisement headers are
// broadcast under and that the shared GATT service is registered with.
const CopresenceSvcUuid BleUuid16 = 0xf3fe

type BleUuid16 uint16

func (bu16 BleUuid16) String() string {
	return fmt.Sprintf("0x%04x", uint16(bu16))
}

func ParseUuid16(s string) (BleUuid16, error) {
	val, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return BleUuid16(0), fmt.Errorf("invalid 16-bit UUID: %s", s)
	}

	return BleUuid16(val), nil
}

func (bu16 BleUuid16) MarshalJSON() ([]byte, error) {
	return json.Marshal(bu16.String())
}

func (bu16 *BleUuid16) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	var err error
	*bu16, err = ParseUuid16(s)
	return err
}

type BleUuid128 [16]byte

func (bu128 BleUuid128) String() string {
	var buf bytes.Buffer
	buf.Grow(len(bu128)*2 + 4)

	for i, b := range bu128 {
		switch i {
		case 4, 6, 8, 10:
			buf.WriteString("-")
		}

		fmt.Fprintf(&buf, "%02x", b)
	}

	return buf.String()
}

// A remote BLE device as reported by the radio driver.  The zero value is
// not a valid peripheral.
type Peripheral struct {
	Addr string
}

func (p Peripheral) Valid() bool {
	return p.Addr != ""
}

func (p Peripheral) String() string {
	return p.Addr
}

// Caller facing power hint.
type PowerLevel int

const (
	POWER_LEVEL_UNKNOWN PowerLevel = iota
	POWER_LEVEL_LOW
	POWER_LEVEL_HIGH
)

// Radio level power mode.
type PowerMode int

const (
	POWER_MODE_UNKNOWN PowerMode = iota
	POWER_MODE_MEDIUM
	POWER_MODE_HIGH
)

// The parsed contents of one advertising packet plus its scan response.
type AdvertisementData struct {
	Connectable bool
	TxPowerLvl  int

	// 16-bit service UUIDs present in the packet.
	SvcUuids []BleUuid16

	// Service data fields keyed by their 16-bit UUID.
	SvcData map[BleUuid16][]byte
}

func (d *AdvertisementData) HasSvcUuid(u BleUuid16) bool {
	for _, x := range d.SvcUuids {
		if x == u {
			return true
		}
	}

	return false
}

// Invoked by the radio driver for every matching advertisement observed
// while scanning.  Called from driver threads; consumers must redispatch
// before touching shared state.
type AdvFoundFn func(p Peripheral, d AdvertisementData)

// A characteristic hosted by (or discovered on) a shared GATT service.
// Comparable; usable as a map key.
type GattCharacteristic struct {
	SvcUuid BleUuid16
	ChrUuid BleUuid128
}

func (c GattCharacteristic) String() string {
	return fmt.Sprintf("%s/%s", c.SvcUuid.String(), c.ChrUuid.String())
}

// Process-level radio power state.  Owned outside this module.
type Radio interface {
	IsEnabled() bool
}

// A running GATT server hosting read-only advertisement characteristics.
type GattServer interface {
	CreateCharacteristic(svcUuid BleUuid16,
		chrUuid BleUuid128) (GattCharacteristic, error)
	UpdateCharacteristic(chr GattCharacteristic, value []byte) error
	Stop() error
}

// A client connection to a remote GATT server.
type GattClient interface {
	DiscoverService(svcUuid BleUuid16) error

	// GetCharacteristic reports ok=false when the characteristic does not
	// exist on the remote service; that is not an error.
	GetCharacteristic(svcUuid BleUuid16,
		chrUuid BleUuid128) (chr GattCharacteristic, ok bool)

	ReadCharacteristic(chr GattCharacteristic) ([]byte, error)
	Disconnect() error
}

// The radio driver consumed by the orchestrator.  Implementations:
// memble (in-memory) and hwble (go-ble backed).
type Medium interface {
	IsAvailable() bool

	StartAdvertising(advData AdvertisementData, scanRspData AdvertisementData,
		mode PowerMode) error
	StopAdvertising() error

	StartScanning(uuids []BleUuid16, mode PowerMode, cb AdvFoundFn) error
	StopScanning() error

	StartGattServer() (GattServer, error)
	ConnectToGattServer(p Peripheral, mode PowerMode) (GattClient, error)
}
