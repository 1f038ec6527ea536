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

package task

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlarmFiresRepeatedly(t *testing.T) {
	var count int32
	a := NewCancelableAlarm("test", 10*time.Millisecond, func() {
		atomic.AddInt32(&count, 1)
	})

	require.NoError(t, a.Start())
	defer a.Cancel()

	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(&count) < 3 {
		select {
		case <-deadline:
			t.Fatalf("alarm fired %d times; want >= 3",
				atomic.LoadInt32(&count))
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestAlarmCancelStopsRearm(t *testing.T) {
	var count int32
	a := NewCancelableAlarm("test", 5*time.Millisecond, func() {
		atomic.AddInt32(&count, 1)
	})

	require.NoError(t, a.Start())
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, a.Cancel())

	after := atomic.LoadInt32(&count)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt32(&count))
	assert.False(t, a.Active())
}

func TestAlarmCancelBeforeFirstFire(t *testing.T) {
	var count int32
	a := NewCancelableAlarm("test", time.Hour, func() {
		atomic.AddInt32(&count, 1)
	})

	require.NoError(t, a.Start())
	require.NoError(t, a.Cancel())

	assert.Equal(t, int32(0), atomic.LoadInt32(&count))
}

func TestAlarmDoubleStartCancel(t *testing.T) {
	a := NewCancelableAlarm("test", time.Hour, func() {})

	require.NoError(t, a.Start())
	assert.Error(t, a.Start())

	require.NoError(t, a.Cancel())
	assert.Error(t, a.Cancel())

	// A canceled alarm can be armed again.
	require.NoError(t, a.Start())
	require.NoError(t, a.Cancel())
}
