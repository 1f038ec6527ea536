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
	"time"

	log "github.com/sirupsen/logrus"
)

// CancelableAlarm is a repeating timer that re-arms itself after each
// firing.  A cancel that lands mid-fire lets the current callback finish
// but prevents the re-arm; the cancel check happens immediately before
// each sleep.
type CancelableAlarm struct {
	name   string
	period time.Duration
	fn     func()

	stopCh chan struct{}
	wg     sync.WaitGroup
	mtx    sync.Mutex
	active bool
}

func NewCancelableAlarm(name string, period time.Duration,
	fn func()) *CancelableAlarm {

	return &CancelableAlarm{
		name:   name,
		period: period,
		fn:     fn,
	}
}

// Start arms the alarm.  The callback first fires one full period from
// now and keeps firing every period until Cancel.
func (a *CancelableAlarm) Start() error {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	if a.active {
		return fmt.Errorf("alarm started twice \"%s\"", a.name)
	}
	a.active = true
	a.stopCh = make(chan struct{})

	stopCh := a.stopCh
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		t := time.NewTimer(a.period)
		defer t.Stop()

		for {
			select {
			case <-stopCh:
				return
			case <-t.C:
			}

			a.fn()

			// Re-check for cancellation before re-arming; a cancel that
			// arrived during the callback must not schedule another fire.
			select {
			case <-stopCh:
				return
			default:
			}
			t.Reset(a.period)
		}
	}()

	log.Debugf("Armed alarm \"%s\" with period %s", a.name, a.period)
	return nil
}

// Cancel stops the alarm.  If the callback is mid-fire it completes, but
// it does not re-arm.  Blocks until the alarm goroutine exits.
func (a *CancelableAlarm) Cancel() error {
	a.mtx.Lock()
	if !a.active {
		a.mtx.Unlock()
		return fmt.Errorf("alarm canceled twice \"%s\"", a.name)
	}
	a.active = false
	close(a.stopCh)
	a.mtx.Unlock()

	a.wg.Wait()

	log.Debugf("Canceled alarm \"%s\"", a.name)
	return nil
}

func (a *CancelableAlarm) Active() bool {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	return a.active
}
