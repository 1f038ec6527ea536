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

package scan

import (
	"bytes"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/bourdakos1/nearby-1/nbxact/adv"
	"github.com/bourdakos1/nearby-1/nbxact/bledefs"
)

type trackedService struct {
	cb          DiscoveredPeripheralCallback
	fastSvcUuid bledefs.BleUuid16
	idHash      []byte
}

type foundKey struct {
	addr      string
	serviceId string
}

type foundRecord struct {
	peripheral bledefs.Peripheral
	lastSeen   time.Time
}

// Remembers the header hash last successfully fetched from a peripheral,
// plus the partial read result to resume into if the fetch was
// incomplete.
type headerRecord struct {
	hash   []byte
	result *AdvertisementReadResult
}

// PeripheralTracker implements Tracker.  All state is guarded by one
// mutex.  The mutex is never held across a fetch: the orchestrator
// calls StartTracking and StopTracking with its own lock held, and a
// fetcher that reaches back into the orchestrator would otherwise
// deadlock against them.  Callers funnel ProcessFoundBleAdvertisement
// through a serial executor, so found-advertisement events still never
// overlap each other.
type PeripheralTracker struct {
	mtx sync.Mutex

	services map[string]*trackedService
	found    map[foundKey]*foundRecord
	headers  map[string]*headerRecord

	lostTimeout time.Duration
}

func NewPeripheralTracker(lostTimeout time.Duration) *PeripheralTracker {
	return &PeripheralTracker{
		services:    map[string]*trackedService{},
		found:       map[foundKey]*foundRecord{},
		headers:     map[string]*headerRecord{},
		lostTimeout: lostTimeout,
	}
}

func (t *PeripheralTracker) StartTracking(serviceId string,
	cb DiscoveredPeripheralCallback, fastSvcUuid bledefs.BleUuid16) {

	t.mtx.Lock()
	defer t.mtx.Unlock()

	t.services[serviceId] = &trackedService{
		cb:          cb,
		fastSvcUuid: fastSvcUuid,
		idHash:      adv.GenerateServiceIdHash(adv.VERSION_V2, serviceId),
	}
}

func (t *PeripheralTracker) StopTracking(serviceId string) {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	delete(t.services, serviceId)
	for k := range t.found {
		if k.serviceId == serviceId {
			delete(t.found, k)
		}
	}
}

// Reports a discovery at most once per (peripheral, service) pair;
// repeated sightings only refresh the lost timer.
func (t *PeripheralTracker) reportDiscovered(p bledefs.Peripheral,
	serviceId string, svc *trackedService, advBytes []byte, fast bool) {

	k := foundKey{addr: p.Addr, serviceId: serviceId}
	if rec, ok := t.found[k]; ok {
		rec.lastSeen = time.Now()
		return
	}

	t.found[k] = &foundRecord{
		peripheral: p,
		lastSeen:   time.Now(),
	}

	log.Debugf("Discovered peripheral %s for service id=%s (fast=%t)",
		p, serviceId, fast)

	if svc.cb.PeripheralDiscovered != nil {
		svc.cb.PeripheralDiscovered(p, serviceId, advBytes, fast)
	}
}

func (t *PeripheralTracker) ProcessFoundBleAdvertisement(
	p bledefs.Peripheral, d bledefs.AdvertisementData,
	fetch AdvertisementFetcher) {

	t.processFastAdvertisements(p, d)
	t.processAdvertisementHeader(p, d, fetch)
}

func (t *PeripheralTracker) processFastAdvertisements(p bledefs.Peripheral,
	d bledefs.AdvertisementData) {

	t.mtx.Lock()
	defer t.mtx.Unlock()

	for serviceId, svc := range t.services {
		if svc.fastSvcUuid == 0 {
			continue
		}

		raw, ok := d.SvcData[svc.fastSvcUuid]
		if !ok {
			continue
		}

		a, err := adv.ParseAdvertisement(raw)
		if err != nil {
			log.Debugf("Failed to parse fast advertisement from %s: %s",
				p, err.Error())
			continue
		}
		if !a.Fast() {
			continue
		}

		t.reportDiscovered(p, serviceId, svc, a.Data, true)
	}
}

func (t *PeripheralTracker) processAdvertisementHeader(
	p bledefs.Peripheral, d bledefs.AdvertisementData,
	fetch AdvertisementFetcher) {

	raw, ok := d.SvcData[bledefs.CopresenceSvcUuid]
	if !ok {
		return
	}

	h, err := adv.ParseHeader(raw)
	if err != nil {
		log.Debugf("Failed to parse advertisement header from %s: %s",
			p, err.Error())
		return
	}

	t.mtx.Lock()

	rec := t.headers[p.Addr]
	if rec != nil && bytes.Equal(rec.hash, h.Hash) {
		// Hosted content unchanged since the last successful fetch.
		// Refresh the lost timers and re-match the cached result; a
		// service that started tracking after the fetch still gets its
		// discovery without another connection.
		t.refreshPeripheral(p.Addr)

		var ids []string
		for serviceId := range t.services {
			ids = append(ids, serviceId)
		}
		t.matchFetchedAdvertisements(p, rec.result, ids)

		t.mtx.Unlock()
		return
	}

	// Cheap pre-filter: only fetch if some tracked id may be hosted.
	filter := h.BloomFilter()
	var interesting []string
	for serviceId := range t.services {
		if filter.MaybeContains([]byte(serviceId)) {
			interesting = append(interesting, serviceId)
		}
	}

	var prior *AdvertisementReadResult
	if rec != nil {
		prior = rec.result
	}

	t.mtx.Unlock()

	if len(interesting) == 0 {
		return
	}

	if fetch == nil {
		return
	}

	// The fetch runs unlocked.  It performs GATT I/O and may call back
	// into the orchestrator, which takes its lock before this one.
	res := fetch(p, h.NumSlots, int(h.Psm), interesting, prior)
	if res == nil {
		return
	}

	t.mtx.Lock()
	defer t.mtx.Unlock()

	newRec := &headerRecord{result: res}
	if res.LastReadStatus() {
		// Only a fully successful fetch pins the header hash; a partial
		// one must retry on the next sighting.
		newRec.hash = append([]byte(nil), h.Hash...)
	}
	t.headers[p.Addr] = newRec

	// Services untracked during the fetch are filtered out here;
	// matchFetchedAdvertisements re-checks membership per id.
	t.matchFetchedAdvertisements(p, res, interesting)
}

func (t *PeripheralTracker) matchFetchedAdvertisements(
	p bledefs.Peripheral, res *AdvertisementReadResult,
	interesting []string) {

	for slot, raw := range res.Advertisements() {
		a, err := adv.ParseAdvertisement(raw)
		if err != nil {
			log.Debugf("Failed to parse fetched advertisement at slot=%d "+
				"from %s: %s", slot, p, err.Error())
			continue
		}
		if a.Fast() {
			continue
		}

		for _, serviceId := range interesting {
			svc, ok := t.services[serviceId]
			if !ok {
				continue
			}

			if bytes.Equal(a.ServiceIdHash, svc.idHash) {
				t.reportDiscovered(p, serviceId, svc, a.Data, false)
			}
		}
	}
}

func (t *PeripheralTracker) refreshPeripheral(addr string) {
	now := time.Now()
	for k, rec := range t.found {
		if k.addr == addr {
			rec.lastSeen = now
		}
	}
}

func (t *PeripheralTracker) ProcessLostGattAdvertisements() {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	now := time.Now()
	liveAddrs := map[string]bool{}

	for k, rec := range t.found {
		if now.Sub(rec.lastSeen) < t.lostTimeout {
			liveAddrs[k.addr] = true
			continue
		}

		log.Debugf("Lost peripheral %s for service id=%s",
			rec.peripheral, k.serviceId)

		if svc, ok := t.services[k.serviceId]; ok &&
			svc.cb.PeripheralLost != nil {

			svc.cb.PeripheralLost(rec.peripheral, k.serviceId)
		}
		delete(t.found, k)
	}

	// Drop header state for peripherals with nothing live remaining so a
	// re-appearing peripheral gets fetched from scratch.
	for addr := range t.headers {
		if !liveAddrs[addr] {
			delete(t.headers, addr)
		}
	}
}
