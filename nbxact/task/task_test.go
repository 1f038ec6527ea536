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
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskQueueRunsJobsInOrder(t *testing.T) {
	q := NewTaskQueue("test")
	require.NoError(t, q.Start(10))
	defer q.Stop(fmt.Errorf("test over"))

	var mtx sync.Mutex
	var got []int

	var chs []chan error
	for i := 0; i < 20; i++ {
		i := i
		chs = append(chs, q.Enqueue(func() error {
			mtx.Lock()
			got = append(got, i)
			mtx.Unlock()
			return nil
		}))
	}
	for _, ch := range chs {
		require.NoError(t, <-ch)
	}

	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestTaskQueueRunReturnsJobError(t *testing.T) {
	q := NewTaskQueue("test")
	require.NoError(t, q.Start(1))
	defer q.Stop(fmt.Errorf("test over"))

	want := fmt.Errorf("boom")
	assert.Equal(t, want, q.Run(func() error { return want }))
	assert.NoError(t, q.Run(func() error { return nil }))
}

func TestTaskQueueEnqueueWhileInactive(t *testing.T) {
	q := NewTaskQueue("test")

	err := <-q.Enqueue(func() error { return nil })
	assert.Equal(t, InactiveError, err)
}

func TestTaskQueueStopFailsPendingJobs(t *testing.T) {
	q := NewTaskQueue("test")
	require.NoError(t, q.Start(10))

	block := make(chan struct{})
	first := q.Enqueue(func() error {
		<-block
		return nil
	})

	pending := q.Enqueue(func() error { return nil })

	cause := fmt.Errorf("shutting down")
	require.NoError(t, q.StopNoWait(cause))
	close(block)

	require.NoError(t, <-first)
	assert.Equal(t, cause, <-pending)
	assert.False(t, q.Active())
}

func TestTaskQueueDoubleStartStop(t *testing.T) {
	q := NewTaskQueue("test")
	require.NoError(t, q.Start(1))
	assert.Error(t, q.Start(1))

	require.NoError(t, q.Stop(fmt.Errorf("done")))
	assert.Error(t, q.StopNoWait(fmt.Errorf("done")))
}
