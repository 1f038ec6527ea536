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

package nbxutil

import (
	"crypto/rand"
)

// GenerateRandomBytes returns n cryptographically random bytes.  The
// result is used for device tokens and the dummy service id that seeds
// advertisement headers, so a weak source would leak structure to
// observers.
func GenerateRandomBytes(n int) []byte {
	b := make([]byte, n)

	// crypto/rand.Read never returns a short count without an error.
	if _, err := rand.Read(b); err != nil {
		panic("rng failure: " + err.Error())
	}

	return b
}
