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

// Package adv implements the wire formats for BLE advertisements: the
// per-service medium advertisement and the shared header that summarizes
// all hosted advertisements in a single packet.
package adv

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/bourdakos1/nearby-1/nbxact/bledefs"
)

const (
	ServiceIdHashLength     = 3
	DeviceTokenLength       = 2
	AdvertisementHashLength = 4
	BloomFilterLength       = 10
	DummyServiceIdLength    = 128
)

// Fixed per-advertisement overhead: version byte, data length, device
// token, psm.  Non-fast advertisements additionally carry the service id
// hash.
const fastOverhead = 1 + 4 + DeviceTokenLength + 2
const regularOverhead = fastOverhead + ServiceIdHashLength

// MaxDataLength is the largest payload a single advertisement can carry.
const MaxDataLength = bledefs.BLE_ATT_ATTR_MAX_LEN

type Version int

const (
	// Deprecated; decode-only, kept for old peers and tests.
	VERSION_V1 Version = 1
	VERSION_V2 Version = 2
)

type SocketVersion int

const (
	SOCKET_VERSION_V1 SocketVersion = 1
	SOCKET_VERSION_V2 SocketVersion = 2
)

// Advertisement is the medium-level wrapper around one service's payload.
// Immutable once built.
//
// Layout (V2):
//
//	[0]   version(3) | socket version(3) | fast(1) | rsvd(1)
//	[1:4] service id hash              (non-fast only)
//	[...] payload length, 4 bytes BE
//	[...] payload
//	[...] device token, 2 bytes
//	[...] psm, 2 bytes BE
type Advertisement struct {
	Version       Version
	SocketVersion SocketVersion
	ServiceIdHash []byte // empty for fast advertisements
	Data          []byte
	DeviceToken   []byte
	Psm           uint16
}

// Fast reports whether this advertisement rides directly in the radio
// packet under an application supplied UUID.  Fast advertisements omit
// the service id hash; identity is carried by that UUID instead.
func (a *Advertisement) Fast() bool {
	return len(a.ServiceIdHash) == 0
}

// NewAdvertisement builds and validates an advertisement.  serviceIdHash
// must be empty (fast) or exactly ServiceIdHashLength bytes.
func NewAdvertisement(version Version, socketVersion SocketVersion,
	serviceIdHash []byte, data []byte, deviceToken []byte,
	psm uint16) (Advertisement, error) {

	if version != VERSION_V2 {
		return Advertisement{}, errors.Errorf(
			"cannot encode advertisement with version=%d; only v2 is "+
				"produced", version)
	}
	if len(data) == 0 {
		return Advertisement{}, errors.New(
			"cannot encode advertisement with empty data")
	}
	if len(data) > MaxDataLength {
		return Advertisement{}, errors.Errorf(
			"advertisement data too long: have %d bytes, max %d",
			len(data), MaxDataLength)
	}
	if len(serviceIdHash) != 0 && len(serviceIdHash) != ServiceIdHashLength {
		return Advertisement{}, errors.Errorf(
			"invalid service id hash length: have %d, want 0 or %d",
			len(serviceIdHash), ServiceIdHashLength)
	}
	if len(deviceToken) != DeviceTokenLength {
		return Advertisement{}, errors.Errorf(
			"invalid device token length: have %d, want %d",
			len(deviceToken), DeviceTokenLength)
	}

	return Advertisement{
		Version:       version,
		SocketVersion: socketVersion,
		ServiceIdHash: append([]byte(nil), serviceIdHash...),
		Data:          append([]byte(nil), data...),
		DeviceToken:   append([]byte(nil), deviceToken...),
		Psm:           psm,
	}, nil
}

func (a *Advertisement) Marshal() []byte {
	fast := a.Fast()

	size := fastOverhead + len(a.Data)
	if !fast {
		size = regularOverhead + len(a.Data)
	}

	buf := bytes.NewBuffer(make([]byte, 0, size))

	b0 := byte(a.Version)<<5 | byte(a.SocketVersion)<<2
	if fast {
		b0 |= 1 << 1
	}
	buf.WriteByte(b0)

	if !fast {
		buf.Write(a.ServiceIdHash)
	}

	var lenBytes [4]byte
	binary.BigEndian.PutUint32(lenBytes[:], uint32(len(a.Data)))
	buf.Write(lenBytes[:])
	buf.Write(a.Data)

	buf.Write(a.DeviceToken)

	var psmBytes [2]byte
	binary.BigEndian.PutUint16(psmBytes[:], a.Psm)
	buf.Write(psmBytes[:])

	return buf.Bytes()
}

// ParseAdvertisement decodes an advertisement from its wire form.
// Unknown versions are rejected rather than guessed at; v1 is reported
// distinctly so callers can special-case legacy peers.
func ParseAdvertisement(b []byte) (Advertisement, error) {
	if len(b) < 1 {
		return Advertisement{}, errors.New("advertisement too short")
	}

	version := Version(b[0] >> 5)
	socketVersion := SocketVersion(b[0] >> 2 & 0x07)
	fast := b[0]&0x02 != 0

	switch version {
	case VERSION_V1:
		return Advertisement{}, errors.New(
			"v1 advertisement: deprecated version, refusing to decode")
	case VERSION_V2:
	default:
		return Advertisement{}, errors.Errorf(
			"unknown advertisement version: %d", version)
	}

	overhead := fastOverhead
	if !fast {
		overhead = regularOverhead
	}
	if len(b) < overhead {
		return Advertisement{}, errors.Errorf(
			"advertisement too short: have %d bytes, want at least %d",
			len(b), overhead)
	}

	off := 1
	var serviceIdHash []byte
	if !fast {
		serviceIdHash = append([]byte(nil),
			b[off:off+ServiceIdHashLength]...)
		off += ServiceIdHashLength
	}

	dataLen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4

	if dataLen == 0 || dataLen > MaxDataLength {
		return Advertisement{}, errors.Errorf(
			"invalid advertisement data length: %d", dataLen)
	}
	if len(b) != overhead+dataLen {
		return Advertisement{}, errors.Errorf(
			"advertisement length mismatch: have %d bytes, want %d",
			len(b), overhead+dataLen)
	}

	data := append([]byte(nil), b[off:off+dataLen]...)
	off += dataLen

	deviceToken := append([]byte(nil), b[off:off+DeviceTokenLength]...)
	off += DeviceTokenLength

	psm := binary.BigEndian.Uint16(b[off : off+2])

	return Advertisement{
		Version:       version,
		SocketVersion: socketVersion,
		ServiceIdHash: serviceIdHash,
		Data:          data,
		DeviceToken:   deviceToken,
		Psm:           psm,
	}, nil
}
