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

package adv

import (
	"crypto/sha256"

	"github.com/google/uuid"

	"github.com/bourdakos1/nearby-1/nbxact/bledefs"
	"github.com/bourdakos1/nearby-1/nbxact/nbxutil"
)

// Namespace for per-slot characteristic UUIDs.  Both sides of the GATT
// exchange derive the same characteristic UUID for a given slot, so this
// value must never change.
var advertisementUuidNamespace = uuid.MustParse(
	"0000f3fe-0000-1000-8000-00805f9b34fb")

// GenerateHash returns the leading n bytes of SHA-256(source).
func GenerateHash(source []byte, n int) []byte {
	sum := sha256.Sum256(source)
	if n > len(sum) {
		n = len(sum)
	}

	out := make([]byte, n)
	copy(out, sum[:n])
	return out
}

// GenerateServiceIdHash hashes a service id down to the fixed length
// carried in non-fast advertisements.  V1 is deprecated and recognized
// for decoding old peers only; it salts the hash differently.
func GenerateServiceIdHash(version Version, serviceId string) []byte {
	switch version {
	case VERSION_V1:
		return GenerateHash(append([]byte{0x01}, serviceId...),
			ServiceIdHashLength)
	default:
		return GenerateHash([]byte(serviceId), ServiceIdHashLength)
	}
}

// GenerateDeviceToken returns a fresh random token.  Peers use it to
// distinguish repeated broadcasts from the same device across address
// rotations, so it is random per encode, not derived from the payload.
func GenerateDeviceToken() []byte {
	return nbxutil.GenerateRandomBytes(DeviceTokenLength)
}

// GenerateAdvertisementHash produces the fixed-length digest used as a
// link in the header hash chain.
func GenerateAdvertisementHash(b []byte) []byte {
	return GenerateHash(b, AdvertisementHashLength)
}

// AdvertisementUuid derives the characteristic UUID for an advertisement
// slot.  Deterministic and collision-free over small slot indices; a
// remote client derives the same function to find the right
// characteristics to read.
func AdvertisementUuid(slot int) bledefs.BleUuid128 {
	u := uuid.NewSHA1(advertisementUuidNamespace,
		[]byte{byte(slot >> 8), byte(slot)})

	var out bledefs.BleUuid128
	copy(out[:], u[:])
	return out
}
