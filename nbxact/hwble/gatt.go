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

package hwble

import (
	"context"
	"sync"

	"github.com/go-ble/ble"
	"github.com/pkg/errors"

	"github.com/bourdakos1/nearby-1/nbxact/bledefs"
)

func uuid16ToBle(u bledefs.BleUuid16) ble.UUID {
	return ble.UUID16(uint16(u))
}

// The native stack stores UUID bytes in reverse order.
func uuid128ToBle(u bledefs.BleUuid128) ble.UUID {
	return ble.UUID(ble.Reverse(u[:]))
}

func uuid128FromBle(u ble.UUID) (bledefs.BleUuid128, bool) {
	if len(u) != 16 {
		return bledefs.BleUuid128{}, false
	}

	var out bledefs.BleUuid128
	copy(out[:], ble.Reverse(u))
	return out, true
}

func (m *Medium) StartGattServer() (bledefs.GattServer, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	if m.dev == nil {
		return nil, errors.New("medium unavailable")
	}
	if m.gatt != nil {
		return nil, errors.New("GATT server already running")
	}

	m.gatt = &gattServer{
		m:      m,
		svcs:   map[bledefs.BleUuid16]*ble.Service{},
		values: map[bledefs.GattCharacteristic][]byte{},
	}

	return m.gatt, nil
}

type gattServer struct {
	m *Medium

	mtx    sync.Mutex
	svcs   map[bledefs.BleUuid16]*ble.Service
	values map[bledefs.GattCharacteristic][]byte
}

// refreshServices re-registers the full service set with the native
// stack; it has no incremental characteristic API.
func (s *gattServer) refreshServices() error {
	var all []*ble.Service
	for _, svc := range s.svcs {
		all = append(all, svc)
	}

	return s.m.dev.SetServices(all)
}

func (s *gattServer) CreateCharacteristic(svcUuid bledefs.BleUuid16,
	chrUuid bledefs.BleUuid128) (bledefs.GattCharacteristic, error) {

	s.mtx.Lock()
	defer s.mtx.Unlock()

	chr := bledefs.GattCharacteristic{SvcUuid: svcUuid, ChrUuid: chrUuid}
	if _, ok := s.values[chr]; ok {
		return bledefs.GattCharacteristic{},
			errors.Errorf("characteristic already exists: %s", chr)
	}

	svc, ok := s.svcs[svcUuid]
	if !ok {
		svc = ble.NewService(uuid16ToBle(svcUuid))
		s.svcs[svcUuid] = svc
	}

	c := svc.NewCharacteristic(uuid128ToBle(chrUuid))
	c.HandleRead(ble.ReadHandlerFunc(
		func(req ble.Request, rsp ble.ResponseWriter) {
			s.mtx.Lock()
			val := append([]byte(nil), s.values[chr]...)
			s.mtx.Unlock()

			rsp.Write(val)
		}))

	s.values[chr] = nil

	if err := s.refreshServices(); err != nil {
		return bledefs.GattCharacteristic{},
			errors.Wrap(err, "failed to register GATT services")
	}

	return chr, nil
}

func (s *gattServer) UpdateCharacteristic(chr bledefs.GattCharacteristic,
	value []byte) error {

	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.values[chr]; !ok {
		return errors.Errorf("no such characteristic: %s", chr)
	}

	// The read handler serves this map, so no re-registration is needed.
	s.values[chr] = append([]byte(nil), value...)

	return nil
}

func (s *gattServer) Stop() error {
	s.mtx.Lock()
	s.svcs = map[bledefs.BleUuid16]*ble.Service{}
	s.values = map[bledefs.GattCharacteristic][]byte{}
	s.mtx.Unlock()

	s.m.mtx.Lock()
	defer s.m.mtx.Unlock()

	s.m.gatt = nil
	if s.m.dev == nil {
		return nil
	}

	return s.m.dev.RemoveAllServices()
}

func (m *Medium) ConnectToGattServer(p bledefs.Peripheral,
	mode bledefs.PowerMode) (bledefs.GattClient, error) {

	m.mtx.Lock()
	dev := m.dev
	m.mtx.Unlock()

	if dev == nil {
		return nil, errors.New("medium unavailable")
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	cln, err := dev.Dial(ctx, ble.NewAddr(p.Addr))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to %s", p)
	}

	return &gattClient{cln: cln}, nil
}

type gattClient struct {
	cln  ble.Client
	chrs map[bledefs.GattCharacteristic]*ble.Characteristic
}

func (c *gattClient) DiscoverService(svcUuid bledefs.BleUuid16) error {
	p, err := c.cln.DiscoverProfile(true)
	if err != nil {
		return errors.Wrap(err, "profile discovery failed")
	}

	want := uuid16ToBle(svcUuid)

	c.chrs = map[bledefs.GattCharacteristic]*ble.Characteristic{}
	for _, svc := range p.Services {
		if !svc.UUID.Equal(want) {
			continue
		}

		for _, chr := range svc.Characteristics {
			u128, ok := uuid128FromBle(chr.UUID)
			if !ok {
				continue
			}

			key := bledefs.GattCharacteristic{
				SvcUuid: svcUuid,
				ChrUuid: u128,
			}
			c.chrs[key] = chr
		}

		return nil
	}

	return errors.Errorf("no such service: %s", svcUuid)
}

func (c *gattClient) GetCharacteristic(svcUuid bledefs.BleUuid16,
	chrUuid bledefs.BleUuid128) (bledefs.GattCharacteristic, bool) {

	key := bledefs.GattCharacteristic{SvcUuid: svcUuid, ChrUuid: chrUuid}
	_, ok := c.chrs[key]

	return key, ok
}

func (c *gattClient) ReadCharacteristic(
	chr bledefs.GattCharacteristic) ([]byte, error) {

	blechr, ok := c.chrs[chr]
	if !ok {
		return nil, errors.Errorf("no such characteristic: %s", chr)
	}

	return c.cln.ReadCharacteristic(blechr)
}

func (c *gattClient) Disconnect() error {
	return c.cln.CancelConnection()
}
