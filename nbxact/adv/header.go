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
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/bourdakos1/nearby-1/nbxact/bloom"
	"github.com/bourdakos1/nearby-1/nbxact/nbxutil"
)

type HeaderVersion int

const (
	HEADER_VERSION_V2 HeaderVersion = 2
)

// HeaderLength is the fixed wire size of a marshalled header: version
// byte, slot count, bloom filter, chained hash, psm.
const HeaderLength = 1 + 1 + BloomFilterLength + AdvertisementHashLength + 2

// Header is the compact broadcast summary standing in for all hosted
// advertisements.  It always reflects the slot table contents at the
// instant it was built; it is never mutated incrementally.
type Header struct {
	Version  HeaderVersion
	Extended bool
	NumSlots int

	// Summarizes which service ids are hosted without naming them.
	BloomBytes []byte

	// Chained digest over all hosted advertisement bytes in slot order.
	Hash []byte

	Psm uint16
}

// A hosted advertisement as seen by the header builder: the service id it
// was registered under and its encoded advertisement bytes.  Callers
// supply these in ascending slot order; the hash chain is order
// sensitive.
type HostedAdvertisement struct {
	ServiceId     string
	Advertisement []byte
}

// BuildHeader summarizes the hosted set.  The hash chain is seeded with a
// random dummy service id so that headers over zero or one hosted service
// do not leak content to observers; see BuildHeaderSeeded for the
// deterministic remainder of the algorithm.
func BuildHeader(hosted []HostedAdvertisement, psm uint16) Header {
	dummy := nbxutil.GenerateRandomBytes(DummyServiceIdLength)
	return BuildHeaderSeeded(dummy, hosted, psm)
}

// BuildHeaderSeeded is BuildHeader with an explicit seed.  Deterministic:
// identical seed and hosted set yield identical bloom and hash bytes, and
// any change to any hosted byte changes the final digest.
func BuildHeaderSeeded(dummyServiceId []byte,
	hosted []HostedAdvertisement, psm uint16) Header {

	filter := bloom.New(BloomFilterLength)
	filter.Add(dummyServiceId)

	hash := GenerateAdvertisementHash(dummyServiceId)
	for _, h := range hosted {
		filter.Add([]byte(h.ServiceId))

		chain := make([]byte, 0, len(hash)+len(h.Advertisement))
		chain = append(chain, hash...)
		chain = append(chain, h.Advertisement...)
		hash = GenerateAdvertisementHash(chain)
	}

	return Header{
		Version:    HEADER_VERSION_V2,
		Extended:   false,
		NumSlots:   len(hosted),
		BloomBytes: filter.Bytes(),
		Hash:       hash,
		Psm:        psm,
	}
}

func (h *Header) Marshal() []byte {
	b := make([]byte, 0, HeaderLength)

	b0 := byte(h.Version) << 5
	if h.Extended {
		b0 |= 1 << 4
	}
	b = append(b, b0, byte(h.NumSlots))
	b = append(b, h.BloomBytes...)
	b = append(b, h.Hash...)

	var psmBytes [2]byte
	binary.BigEndian.PutUint16(psmBytes[:], h.Psm)
	b = append(b, psmBytes[:]...)

	return b
}

// BloomFilter reconstructs the membership filter carried by the header.
func (h *Header) BloomFilter() *bloom.Filter {
	return bloom.FromBytes(h.BloomBytes)
}

func ParseHeader(b []byte) (Header, error) {
	if len(b) != HeaderLength {
		return Header{}, errors.Errorf(
			"invalid header length: have %d bytes, want %d",
			len(b), HeaderLength)
	}

	version := HeaderVersion(b[0] >> 5)
	if version != HEADER_VERSION_V2 {
		return Header{}, errors.Errorf(
			"unknown header version: %d", version)
	}

	off := 2
	bloomBytes := append([]byte(nil), b[off:off+BloomFilterLength]...)
	off += BloomFilterLength

	hash := append([]byte(nil), b[off:off+AdvertisementHashLength]...)
	off += AdvertisementHashLength

	return Header{
		Version:    version,
		Extended:   b[0]&0x10 != 0,
		NumSlots:   int(b[1]),
		BloomBytes: bloomBytes,
		Hash:       hash,
		Psm:        binary.BigEndian.Uint16(b[off : off+2]),
	}, nil
}
