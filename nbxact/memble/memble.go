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

// Package memble provides an in-memory BLE medium.  Mediums created from
// the same Environment see each other's advertisements and can connect to
// each other's GATT servers; no hardware is involved.
package memble

import (
	"sync"

	"github.com/google/uuid"
)

// Environment is a simulated radio neighborhood.
type Environment struct {
	mtx     sync.Mutex
	mediums map[string]*Medium
}

func NewEnvironment() *Environment {
	return &Environment{
		mediums: map[string]*Medium{},
	}
}

// NewMedium creates a medium with a fresh random address and places it
// in the environment.
func (e *Environment) NewMedium() *Medium {
	m := &Medium{
		env:       e,
		addr:      uuid.NewString(),
		available: true,
	}

	e.mtx.Lock()
	e.mediums[m.addr] = m
	e.mtx.Unlock()

	return m
}

func (e *Environment) lookup(addr string) *Medium {
	e.mtx.Lock()
	defer e.mtx.Unlock()

	return e.mediums[addr]
}

func (e *Environment) others(addr string) []*Medium {
	e.mtx.Lock()
	defer e.mtx.Unlock()

	var out []*Medium
	for a, m := range e.mediums {
		if a != addr {
			out = append(out, m)
		}
	}

	return out
}

// Broadcast redelivers every active advertisement to every matching
// scanner, as if another round of advertising packets went out over the
// air.
func (e *Environment) Broadcast() {
	e.mtx.Lock()
	var all []*Medium
	for _, m := range e.mediums {
		all = append(all, m)
	}
	e.mtx.Unlock()

	for _, m := range all {
		m.rebroadcast()
	}
}

// Radio is a process-level power switch shared by any number of mediums.
type Radio struct {
	mtx     sync.Mutex
	enabled bool
}

func NewRadio() *Radio {
	return &Radio{enabled: true}
}

func (r *Radio) IsEnabled() bool {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	return r.enabled
}

func (r *Radio) SetEnabled(enabled bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.enabled = enabled
}
