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
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bourdakos1/nearby-1/nbxact/bledefs"
	"github.com/bourdakos1/nearby-1/nbxact/memble"
	"github.com/bourdakos1/nearby-1/nbxact/nbxutil"
	"github.com/bourdakos1/nearby-1/nbxact/scan"
)

const testServiceId = "com.google.location.nearby.apps.test.a"
const testFastUuid bledefs.BleUuid16 = 0xfe2c

type discoverySink struct {
	mtx        sync.Mutex
	discovered []discoveryEvent
	lost       []discoveryEvent
}

type discoveryEvent struct {
	p         bledefs.Peripheral
	serviceId string
	data      []byte
	fast      bool
}

func (s *discoverySink) callback() scan.DiscoveredPeripheralCallback {
	return scan.DiscoveredPeripheralCallback{
		PeripheralDiscovered: func(p bledefs.Peripheral, serviceId string,
			advBytes []byte, fast bool) {

			s.mtx.Lock()
			defer s.mtx.Unlock()
			s.discovered = append(s.discovered, discoveryEvent{
				p:         p,
				serviceId: serviceId,
				data:      append([]byte(nil), advBytes...),
				fast:      fast,
			})
		},
		PeripheralLost: func(p bledefs.Peripheral, serviceId string) {
			s.mtx.Lock()
			defer s.mtx.Unlock()
			s.lost = append(s.lost, discoveryEvent{
				p:         p,
				serviceId: serviceId,
			})
		},
	}
}

func (s *discoverySink) discoveredCount() int {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return len(s.discovered)
}

func (s *discoverySink) discoveredAt(i int) discoveryEvent {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return s.discovered[i]
}

func TestStartAdvertisingPreconditions(t *testing.T) {
	env := memble.NewEnvironment()
	radio := memble.NewRadio()
	medium := env.NewMedium()
	b := NewBleV2(radio, medium)
	defer b.Close()

	err := b.StartAdvertising(testServiceId, nil,
		bledefs.POWER_LEVEL_HIGH, 0)
	assert.True(t, nbxutil.IsArg(err))

	big := bytes.Repeat([]byte{0xab}, bledefs.BLE_ATT_ATTR_MAX_LEN+1)
	err = b.StartAdvertising(testServiceId, big,
		bledefs.POWER_LEVEL_HIGH, 0)
	assert.True(t, nbxutil.IsArg(err))

	require.NoError(t, b.StartAdvertising(testServiceId, []byte{1},
		bledefs.POWER_LEVEL_HIGH, 0))
	assert.True(t, b.IsAdvertising(testServiceId))

	err = b.StartAdvertising(testServiceId, []byte{1},
		bledefs.POWER_LEVEL_HIGH, 0)
	assert.True(t, nbxutil.IsAlready(err))

	radio.SetEnabled(false)
	err = b.StartAdvertising("another.service", []byte{1},
		bledefs.POWER_LEVEL_HIGH, 0)
	assert.True(t, nbxutil.IsRadioDisabled(err))
	radio.SetEnabled(true)

	medium.SetAvailable(false)
	err = b.StartAdvertising("another.service", []byte{1},
		bledefs.POWER_LEVEL_HIGH, 0)
	assert.True(t, nbxutil.IsUnavailable(err))
}

func TestStartScanningPreconditions(t *testing.T) {
	env := memble.NewEnvironment()
	radio := memble.NewRadio()
	medium := env.NewMedium()
	b := NewBleV2(radio, medium)
	defer b.Close()

	sink := &discoverySink{}

	err := b.StartScanning("", sink.callback(),
		bledefs.POWER_LEVEL_HIGH, 0)
	assert.True(t, nbxutil.IsArg(err))

	require.NoError(t, b.StartScanning(testServiceId, sink.callback(),
		bledefs.POWER_LEVEL_HIGH, 0))
	assert.True(t, b.IsScanning(testServiceId))

	err = b.StartScanning(testServiceId, sink.callback(),
		bledefs.POWER_LEVEL_HIGH, 0)
	assert.True(t, nbxutil.IsAlready(err))

	radio.SetEnabled(false)
	err = b.StartScanning("another.service", sink.callback(),
		bledefs.POWER_LEVEL_HIGH, 0)
	assert.True(t, nbxutil.IsRadioDisabled(err))
}

func TestStopAdvertisingThenRestart(t *testing.T) {
	env := memble.NewEnvironment()
	b := NewBleV2(memble.NewRadio(), env.NewMedium())
	defer b.Close()

	require.NoError(t, b.StartAdvertising(testServiceId, []byte{1},
		bledefs.POWER_LEVEL_HIGH, testFastUuid))
	require.NoError(t, b.StopAdvertising(testServiceId))
	assert.False(t, b.IsAdvertising(testServiceId))

	err := b.StopAdvertising(testServiceId)
	assert.True(t, nbxutil.IsAlready(err))

	require.NoError(t, b.StartAdvertising(testServiceId, []byte{2},
		bledefs.POWER_LEVEL_HIGH, testFastUuid))
}

func TestStopScanningTwice(t *testing.T) {
	env := memble.NewEnvironment()
	b := NewBleV2(memble.NewRadio(), env.NewMedium())
	defer b.Close()

	sink := &discoverySink{}
	require.NoError(t, b.StartScanning(testServiceId, sink.callback(),
		bledefs.POWER_LEVEL_HIGH, 0))

	require.NoError(t, b.StopScanning(testServiceId))
	assert.False(t, b.IsScanning(testServiceId))

	err := b.StopScanning(testServiceId)
	assert.True(t, nbxutil.IsAlready(err))
}

func TestFastDiscoveryEndToEnd(t *testing.T) {
	env := memble.NewEnvironment()

	advertiser := NewBleV2(memble.NewRadio(), env.NewMedium())
	defer advertiser.Close()
	scanner := NewBleV2(memble.NewRadio(), env.NewMedium())
	defer scanner.Close()

	payload := []byte{0x0a, 0x0b, 0x0c, 0x0d}
	require.NoError(t, advertiser.StartAdvertising(testServiceId, payload,
		bledefs.POWER_LEVEL_HIGH, testFastUuid))

	sink := &discoverySink{}
	require.NoError(t, scanner.StartScanning(testServiceId, sink.callback(),
		bledefs.POWER_LEVEL_HIGH, testFastUuid))

	require.Eventually(t, func() bool {
		return sink.discoveredCount() == 1
	}, time.Second, 5*time.Millisecond)

	ev := sink.discoveredAt(0)
	assert.Equal(t, testServiceId, ev.serviceId)
	assert.Equal(t, payload, ev.data)
	assert.True(t, ev.fast)

	// Repeated sightings do not produce duplicate discoveries.
	env.Broadcast()
	env.Broadcast()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, sink.discoveredCount())
}

func TestGattDiscoveryEndToEnd(t *testing.T) {
	env := memble.NewEnvironment()

	advertiser := NewBleV2(memble.NewRadio(), env.NewMedium())
	defer advertiser.Close()
	scanner := NewBleV2(memble.NewRadio(), env.NewMedium())
	defer scanner.Close()

	// A payload at the size cap has to travel over GATT.
	payload := bytes.Repeat([]byte{0x5a}, bledefs.BLE_ATT_ATTR_MAX_LEN)
	require.NoError(t, advertiser.StartAdvertising(testServiceId, payload,
		bledefs.POWER_LEVEL_HIGH, 0))

	sink := &discoverySink{}
	require.NoError(t, scanner.StartScanning(testServiceId, sink.callback(),
		bledefs.POWER_LEVEL_HIGH, 0))

	require.Eventually(t, func() bool {
		return sink.discoveredCount() == 1
	}, time.Second, 5*time.Millisecond)

	ev := sink.discoveredAt(0)
	assert.Equal(t, testServiceId, ev.serviceId)
	assert.Equal(t, payload, ev.data)
	assert.False(t, ev.fast)
}

func TestGattDiscoveryMultipleServices(t *testing.T) {
	env := memble.NewEnvironment()

	advertiser := NewBleV2(memble.NewRadio(), env.NewMedium())
	defer advertiser.Close()
	scanner := NewBleV2(memble.NewRadio(), env.NewMedium())
	defer scanner.Close()

	otherId := "com.google.location.nearby.apps.test.b"
	require.NoError(t, advertiser.StartAdvertising(testServiceId,
		[]byte{1, 1, 1}, bledefs.POWER_LEVEL_HIGH, 0))
	require.NoError(t, advertiser.StartAdvertising(otherId,
		[]byte{2, 2, 2}, bledefs.POWER_LEVEL_HIGH, 0))

	sink := &discoverySink{}
	require.NoError(t, scanner.StartScanning(testServiceId, sink.callback(),
		bledefs.POWER_LEVEL_HIGH, 0))
	require.NoError(t, scanner.StartScanning(otherId, sink.callback(),
		bledefs.POWER_LEVEL_HIGH, 0))
	env.Broadcast()

	require.Eventually(t, func() bool {
		return sink.discoveredCount() == 2
	}, time.Second, 5*time.Millisecond)

	got := map[string][]byte{}
	for i := 0; i < 2; i++ {
		ev := sink.discoveredAt(i)
		got[ev.serviceId] = ev.data
	}
	assert.Equal(t, []byte{1, 1, 1}, got[testServiceId])
	assert.Equal(t, []byte{2, 2, 2}, got[otherId])
}

func TestStopHostedAdvertisementDropsAllHosted(t *testing.T) {
	env := memble.NewEnvironment()
	b := NewBleV2(memble.NewRadio(), env.NewMedium())
	defer b.Close()

	otherId := "com.google.location.nearby.apps.test.b"
	require.NoError(t, b.StartAdvertising(testServiceId, []byte{1},
		bledefs.POWER_LEVEL_HIGH, 0))
	require.NoError(t, b.StartAdvertising(otherId, []byte{2},
		bledefs.POWER_LEVEL_HIGH, 0))

	// Hosted advertisements share one GATT server; stopping one takes
	// down both.
	require.NoError(t, b.StopAdvertising(testServiceId))
	assert.False(t, b.IsAdvertising(testServiceId))
	assert.False(t, b.IsAdvertising(otherId))
}

func TestFastAndHostedCoexist(t *testing.T) {
	env := memble.NewEnvironment()

	advertiser := NewBleV2(memble.NewRadio(), env.NewMedium())
	defer advertiser.Close()
	scanner := NewBleV2(memble.NewRadio(), env.NewMedium())
	defer scanner.Close()

	hostedId := "com.google.location.nearby.apps.test.b"
	require.NoError(t, advertiser.StartAdvertising(testServiceId,
		[]byte{0x0a}, bledefs.POWER_LEVEL_HIGH, testFastUuid))
	require.NoError(t, advertiser.StartAdvertising(hostedId,
		[]byte{0x0b}, bledefs.POWER_LEVEL_HIGH, 0))

	sink := &discoverySink{}
	require.NoError(t, scanner.StartScanning(testServiceId, sink.callback(),
		bledefs.POWER_LEVEL_HIGH, testFastUuid))
	require.NoError(t, scanner.StartScanning(hostedId, sink.callback(),
		bledefs.POWER_LEVEL_HIGH, 0))
	env.Broadcast()

	require.Eventually(t, func() bool {
		return sink.discoveredCount() == 2
	}, time.Second, 5*time.Millisecond)

	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		ev := sink.discoveredAt(i)
		got[ev.serviceId] = ev.fast
	}
	assert.True(t, got[testServiceId])
	assert.False(t, got[hostedId])
}

func TestPowerLevelToPowerMode(t *testing.T) {
	assert.Equal(t, bledefs.POWER_MODE_HIGH,
		PowerLevelToPowerMode(bledefs.POWER_LEVEL_HIGH))
	assert.Equal(t, bledefs.POWER_MODE_MEDIUM,
		PowerLevelToPowerMode(bledefs.POWER_LEVEL_LOW))
	assert.Equal(t, bledefs.POWER_MODE_MEDIUM,
		PowerLevelToPowerMode(bledefs.POWER_LEVEL_UNKNOWN))
}
