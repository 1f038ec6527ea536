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
	"sync"
)

// AdvertisementReadResult accumulates the outcome of GATT advertisement
// fetches against one peripheral.  Results are resumable: a later fetch
// fills only the slots a prior attempt missed.
type AdvertisementReadResult struct {
	mtx            sync.Mutex
	advertisements map[int][]byte
	lastReadStatus bool
}

func NewAdvertisementReadResult() *AdvertisementReadResult {
	return &AdvertisementReadResult{
		advertisements: map[int][]byte{},
	}
}

func (r *AdvertisementReadResult) HasAdvertisement(slot int) bool {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	_, ok := r.advertisements[slot]
	return ok
}

func (r *AdvertisementReadResult) AddAdvertisement(slot int, b []byte) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.advertisements[slot] = append([]byte(nil), b...)
}

// RecordLastReadStatus notes whether the most recent fetch attempt read
// every slot it tried to read.
func (r *AdvertisementReadResult) RecordLastReadStatus(success bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.lastReadStatus = success
}

func (r *AdvertisementReadResult) LastReadStatus() bool {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	return r.lastReadStatus
}

// Advertisements returns a snapshot of the recovered slots.
func (r *AdvertisementReadResult) Advertisements() map[int][]byte {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	out := make(map[int][]byte, len(r.advertisements))
	for slot, b := range r.advertisements {
		out[slot] = append([]byte(nil), b...)
	}

	return out
}
