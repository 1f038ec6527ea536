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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bourdakos1/nearby-1/nbxact/adv"
	"github.com/bourdakos1/nearby-1/nbxact/bledefs"
)

const testUuid bledefs.BleUuid16 = 0xfe2c

func TestScannerSeesActiveAdvertisement(t *testing.T) {
	env := NewEnvironment()
	advr := env.NewMedium()
	scnr := env.NewMedium()

	d := bledefs.AdvertisementData{
		SvcUuids: []bledefs.BleUuid16{testUuid},
		SvcData: map[bledefs.BleUuid16][]byte{
			testUuid: {1, 2, 3},
		},
	}
	require.NoError(t, advr.StartAdvertising(d,
		bledefs.AdvertisementData{}, bledefs.POWER_MODE_MEDIUM))

	var got []bledefs.Peripheral
	require.NoError(t, scnr.StartScanning([]bledefs.BleUuid16{testUuid},
		bledefs.POWER_MODE_MEDIUM,
		func(p bledefs.Peripheral, d bledefs.AdvertisementData) {
			got = append(got, p)
			assert.Equal(t, []byte{1, 2, 3}, d.SvcData[testUuid])
		}))

	require.Len(t, got, 1)
	assert.Equal(t, advr.Peripheral(), got[0])
}

func TestAdvertiserReachesRunningScanner(t *testing.T) {
	env := NewEnvironment()
	advr := env.NewMedium()
	scnr := env.NewMedium()

	count := 0
	require.NoError(t, scnr.StartScanning([]bledefs.BleUuid16{testUuid},
		bledefs.POWER_MODE_MEDIUM,
		func(p bledefs.Peripheral, d bledefs.AdvertisementData) {
			count++
		}))

	d := bledefs.AdvertisementData{
		SvcData: map[bledefs.BleUuid16][]byte{testUuid: {1}},
	}
	require.NoError(t, advr.StartAdvertising(d,
		bledefs.AdvertisementData{}, bledefs.POWER_MODE_MEDIUM))
	assert.Equal(t, 1, count)

	// Stopped scanner hears nothing more.
	require.NoError(t, scnr.StopScanning())
	env.Broadcast()
	assert.Equal(t, 1, count)
}

func TestScannerFiltersByUuid(t *testing.T) {
	env := NewEnvironment()
	advr := env.NewMedium()
	scnr := env.NewMedium()

	d := bledefs.AdvertisementData{
		SvcData: map[bledefs.BleUuid16][]byte{testUuid: {1}},
	}
	require.NoError(t, advr.StartAdvertising(d,
		bledefs.AdvertisementData{}, bledefs.POWER_MODE_MEDIUM))

	count := 0
	require.NoError(t, scnr.StartScanning(
		[]bledefs.BleUuid16{bledefs.CopresenceSvcUuid},
		bledefs.POWER_MODE_MEDIUM,
		func(p bledefs.Peripheral, d bledefs.AdvertisementData) {
			count++
		}))

	assert.Equal(t, 0, count)
}

func TestUnavailableMediumRejectsEverything(t *testing.T) {
	env := NewEnvironment()
	m := env.NewMedium()
	m.SetAvailable(false)

	assert.False(t, m.IsAvailable())
	assert.Error(t, m.StartAdvertising(bledefs.AdvertisementData{},
		bledefs.AdvertisementData{}, bledefs.POWER_MODE_MEDIUM))
	assert.Error(t, m.StartScanning(nil, bledefs.POWER_MODE_MEDIUM,
		func(p bledefs.Peripheral, d bledefs.AdvertisementData) {}))

	_, err := m.StartGattServer()
	assert.Error(t, err)
}

func TestGattRoundTrip(t *testing.T) {
	env := NewEnvironment()
	server := env.NewMedium()
	client := env.NewMedium()

	srv, err := server.StartGattServer()
	require.NoError(t, err)

	chrUuid := adv.AdvertisementUuid(0)
	chr, err := srv.CreateCharacteristic(bledefs.CopresenceSvcUuid, chrUuid)
	require.NoError(t, err)
	require.NoError(t, srv.UpdateCharacteristic(chr, []byte{9, 8, 7}))

	conn, err := client.ConnectToGattServer(server.Peripheral(),
		bledefs.POWER_MODE_HIGH)
	require.NoError(t, err)
	defer conn.Disconnect()

	require.NoError(t, conn.DiscoverService(bledefs.CopresenceSvcUuid))

	got, ok := conn.GetCharacteristic(bledefs.CopresenceSvcUuid, chrUuid)
	require.True(t, ok)

	val, err := conn.ReadCharacteristic(got)
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 8, 7}, val)

	// Missing slot is reported via ok=false, not an error.
	_, ok = conn.GetCharacteristic(bledefs.CopresenceSvcUuid,
		adv.AdvertisementUuid(1))
	assert.False(t, ok)
}

func TestGattConnectFailures(t *testing.T) {
	env := NewEnvironment()
	client := env.NewMedium()
	idle := env.NewMedium()

	_, err := client.ConnectToGattServer(
		bledefs.Peripheral{Addr: "nope"}, bledefs.POWER_MODE_HIGH)
	assert.Error(t, err)

	_, err = client.ConnectToGattServer(idle.Peripheral(),
		bledefs.POWER_MODE_HIGH)
	assert.Error(t, err)
}

func TestGattServerStopDropsCharacteristics(t *testing.T) {
	env := NewEnvironment()
	server := env.NewMedium()
	client := env.NewMedium()

	srv, err := server.StartGattServer()
	require.NoError(t, err)

	chr, err := srv.CreateCharacteristic(bledefs.CopresenceSvcUuid,
		adv.AdvertisementUuid(0))
	require.NoError(t, err)
	require.NoError(t, srv.UpdateCharacteristic(chr, []byte{1}))

	require.NoError(t, srv.Stop())

	_, err = client.ConnectToGattServer(server.Peripheral(),
		bledefs.POWER_MODE_HIGH)
	assert.Error(t, err)

	// A new server starts clean.
	srv2, err := server.StartGattServer()
	require.NoError(t, err)
	_, err = srv2.CreateCharacteristic(bledefs.CopresenceSvcUuid,
		adv.AdvertisementUuid(0))
	assert.NoError(t, err)
}
