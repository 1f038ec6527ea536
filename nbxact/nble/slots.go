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
	"sort"

	"github.com/bourdakos1/nearby-1/nbxact/adv"
)

// SlotTable maps hosted advertisements to GATT slot indices.  Slots are
// allocated densely from zero so that a remote reader can enumerate them
// from the slot count alone.  Not safe for concurrent use; the
// orchestrator guards it with its own mutex.
type SlotTable struct {
	slots map[int]adv.HostedAdvertisement
}

func NewSlotTable() *SlotTable {
	return &SlotTable{
		slots: map[int]adv.HostedAdvertisement{},
	}
}

// Insert places a hosted advertisement in the lowest free slot and
// returns that slot.
func (t *SlotTable) Insert(serviceId string, advBytes []byte) int {
	slot := 0
	for {
		if _, ok := t.slots[slot]; !ok {
			break
		}
		slot++
	}

	t.slots[slot] = adv.HostedAdvertisement{
		ServiceId:     serviceId,
		Advertisement: append([]byte(nil), advBytes...),
	}

	return slot
}

func (t *SlotTable) ContainsService(serviceId string) bool {
	for _, h := range t.slots {
		if h.ServiceId == serviceId {
			return true
		}
	}

	return false
}

// Entries returns the hosted advertisements in ascending slot order, the
// order the header hash chain is computed in.
func (t *SlotTable) Entries() []adv.HostedAdvertisement {
	var keys []int
	for slot := range t.slots {
		keys = append(keys, slot)
	}
	sort.Ints(keys)

	out := make([]adv.HostedAdvertisement, 0, len(keys))
	for _, slot := range keys {
		out = append(out, t.slots[slot])
	}

	return out
}

func (t *SlotTable) Len() int {
	return len(t.slots)
}

func (t *SlotTable) Clear() {
	t.slots = map[int]adv.HostedAdvertisement{}
}
