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
	"github.com/pkg/errors"

	"github.com/bourdakos1/nearby-1/nbxact/bledefs"
)

func (m *Medium) StartGattServer() (bledefs.GattServer, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	if !m.available {
		return nil, errors.New("medium unavailable")
	}
	if m.gattChrs != nil {
		return nil, errors.New("GATT server already running")
	}

	m.gattChrs = map[bledefs.GattCharacteristic][]byte{}

	return &gattServer{m: m}, nil
}

func (m *Medium) ConnectToGattServer(p bledefs.Peripheral,
	mode bledefs.PowerMode) (bledefs.GattClient, error) {

	target := m.env.lookup(p.Addr)
	if target == nil {
		return nil, errors.Errorf("no such peripheral: %s", p)
	}

	target.mtx.Lock()
	running := target.gattChrs != nil
	target.mtx.Unlock()

	if !running {
		return nil, errors.Errorf(
			"peripheral %s is not running a GATT server", p)
	}

	return &gattClient{target: target}, nil
}

type gattServer struct {
	m *Medium
}

func (s *gattServer) CreateCharacteristic(svcUuid bledefs.BleUuid16,
	chrUuid bledefs.BleUuid128) (bledefs.GattCharacteristic, error) {

	s.m.mtx.Lock()
	defer s.m.mtx.Unlock()

	if s.m.gattChrs == nil {
		return bledefs.GattCharacteristic{},
			errors.New("GATT server stopped")
	}

	chr := bledefs.GattCharacteristic{SvcUuid: svcUuid, ChrUuid: chrUuid}
	if _, ok := s.m.gattChrs[chr]; ok {
		return bledefs.GattCharacteristic{},
			errors.Errorf("characteristic already exists: %s", chr)
	}

	s.m.gattChrs[chr] = nil

	return chr, nil
}

func (s *gattServer) UpdateCharacteristic(chr bledefs.GattCharacteristic,
	value []byte) error {

	s.m.mtx.Lock()
	defer s.m.mtx.Unlock()

	if s.m.gattChrs == nil {
		return errors.New("GATT server stopped")
	}
	if _, ok := s.m.gattChrs[chr]; !ok {
		return errors.Errorf("no such characteristic: %s", chr)
	}

	s.m.gattChrs[chr] = append([]byte(nil), value...)

	return nil
}

func (s *gattServer) Stop() error {
	s.m.mtx.Lock()
	defer s.m.mtx.Unlock()

	s.m.gattChrs = nil

	return nil
}

type gattClient struct {
	target *Medium
}

func (c *gattClient) DiscoverService(svcUuid bledefs.BleUuid16) error {
	c.target.mtx.Lock()
	defer c.target.mtx.Unlock()

	if c.target.gattChrs == nil {
		return errors.New("peer GATT server stopped")
	}

	for chr := range c.target.gattChrs {
		if chr.SvcUuid == svcUuid {
			return nil
		}
	}

	return errors.Errorf("no such service: %s", svcUuid)
}

func (c *gattClient) GetCharacteristic(svcUuid bledefs.BleUuid16,
	chrUuid bledefs.BleUuid128) (bledefs.GattCharacteristic, bool) {

	c.target.mtx.Lock()
	defer c.target.mtx.Unlock()

	chr := bledefs.GattCharacteristic{SvcUuid: svcUuid, ChrUuid: chrUuid}
	_, ok := c.target.gattChrs[chr]

	return chr, ok
}

func (c *gattClient) ReadCharacteristic(
	chr bledefs.GattCharacteristic) ([]byte, error) {

	c.target.mtx.Lock()
	defer c.target.mtx.Unlock()

	val, ok := c.target.gattChrs[chr]
	if !ok {
		return nil, errors.Errorf("no such characteristic: %s", chr)
	}

	return append([]byte(nil), val...), nil
}

func (c *gattClient) Disconnect() error {
	return nil
}
