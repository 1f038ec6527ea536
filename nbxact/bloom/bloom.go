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

// Package bloom implements the fixed-size bloom filter embedded in BLE
// advertisement headers.  Filters are add-only; when the logical content
// shrinks, the owner rebuilds a fresh filter instead of mutating one.
package bloom

import (
	"crypto/sha256"
	"encoding/binary"
)

// Number of bit positions derived per item.
const numHashes = 3

type Filter struct {
	bits []byte
}

// New creates an empty filter over byteLen*8 bits.  byteLen must be >= 1.
func New(byteLen int) *Filter {
	if byteLen < 1 {
		byteLen = 1
	}

	return &Filter{
		bits: make([]byte, byteLen),
	}
}

// FromBytes wraps a received filter image, e.g. one parsed out of an
// advertisement header.  The slice is copied.
func FromBytes(b []byte) *Filter {
	f := New(len(b))
	copy(f.bits, b)
	return f
}

// Derives two independent 64-bit hashes from one SHA-256 of the item.
// Position i is (h1 + i*h2) mod m, the standard double-hashing scheme.
func hashPair(item []byte) (h1 uint64, h2 uint64) {
	sum := sha256.Sum256(item)
	h1 = binary.BigEndian.Uint64(sum[0:8])
	h2 = binary.BigEndian.Uint64(sum[8:16])
	if h2 == 0 {
		h2 = 1
	}
	return h1, h2
}

func (f *Filter) Add(item []byte) {
	m := uint64(len(f.bits)) * 8

	h1, h2 := hashPair(item)
	for i := uint64(0); i < numHashes; i++ {
		j := (h1 + i*h2) % m
		f.bits[j>>3] |= 1 << uint8(j&7)
	}
}

// MaybeContains reports whether item may have been added.  False positives
// are possible; false negatives are not.
func (f *Filter) MaybeContains(item []byte) bool {
	m := uint64(len(f.bits)) * 8

	h1, h2 := hashPair(item)
	for i := uint64(0); i < numHashes; i++ {
		j := (h1 + i*h2) % m
		if f.bits[j>>3]&(1<<uint8(j&7)) == 0 {
			return false
		}
	}

	return true
}

// Bytes returns a copy of the filter image for embedding into a header.
func (f *Filter) Bytes() []byte {
	b := make([]byte, len(f.bits))
	copy(b, f.bits)
	return b
}
