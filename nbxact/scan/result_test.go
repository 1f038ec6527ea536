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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadResultAddHas(t *testing.T) {
	r := NewAdvertisementReadResult()

	assert.False(t, r.HasAdvertisement(0))

	r.AddAdvertisement(0, []byte{1, 2, 3})
	r.AddAdvertisement(2, []byte{4})

	assert.True(t, r.HasAdvertisement(0))
	assert.False(t, r.HasAdvertisement(1))
	assert.True(t, r.HasAdvertisement(2))
}

func TestReadResultCopiesValues(t *testing.T) {
	r := NewAdvertisementReadResult()

	src := []byte{1, 2, 3}
	r.AddAdvertisement(0, src)
	src[0] = 0xff

	snap := r.Advertisements()
	assert.Equal(t, []byte{1, 2, 3}, snap[0])

	snap[0][0] = 0xee
	assert.Equal(t, []byte{1, 2, 3}, r.Advertisements()[0])
}

func TestReadResultLastReadStatus(t *testing.T) {
	r := NewAdvertisementReadResult()

	assert.False(t, r.LastReadStatus())

	r.RecordLastReadStatus(true)
	assert.True(t, r.LastReadStatus())

	r.RecordLastReadStatus(false)
	assert.False(t, r.LastReadStatus())
}
