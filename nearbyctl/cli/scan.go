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

package cli

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/bourdakos1/nearby-1/nbxact/bledefs"
	"github.com/bourdakos1/nearby-1/nbxact/scan"
	"github.com/bourdakos1/nearby-1/nearbyctl/nbutil"
)

func scanRunCmd(cmd *cobra.Command, args []string) {
	if len(args) < 1 {
		nbUsage(cmd, errors.New("need service id"))
	}

	serviceId := args[0]

	fastUuid, err := parseFastUuid(scanFastUuid)
	if err != nil {
		nbUsage(cmd, err)
	}

	lvl, err := parsePowerLevel(scanPower)
	if err != nil {
		nbUsage(cmd, err)
	}

	b, err := GetBle()
	if err != nil {
		nbUsage(nil, err)
	}

	cb := scan.DiscoveredPeripheralCallback{
		PeripheralDiscovered: func(p bledefs.Peripheral, serviceId string,
			advBytes []byte, fast bool) {

			fmt.Printf("Discovered peer=%s service=%s fast=%t payload=%s\n",
				p, serviceId, fast, hex.EncodeToString(advBytes))
		},
		PeripheralLost: func(p bledefs.Peripheral, serviceId string) {
			fmt.Printf("Lost peer=%s service=%s\n", p, serviceId)
		},
	}

	if err := b.StartScanning(serviceId, cb, lvl, fastUuid); err != nil {
		nbUsage(nil, err)
	}

	fmt.Printf("Scanning for service %s for %s\n",
		serviceId, nbutil.RunDuration())

	time.Sleep(nbutil.RunDuration())

	if err := b.StopScanning(serviceId); err != nil {
		nbUsage(nil, err)
	}

	fmt.Printf("Done\n")
}

var scanFastUuid string
var scanPower string

func scanCmd() *cobra.Command {
	sCmd := &cobra.Command{
		Use:   "scan <service-id>",
		Short: "Scan for peers advertising a service",
		Example: "  " + nbutil.ToolInfo.ExeName +
			" scan com.example.app --fast-uuid 0xfe2c -d 30",
		Run: scanRunCmd,
	}

	sCmd.PersistentFlags().StringVar(&scanFastUuid, "fast-uuid", "",
		"16-bit service UUID the peer advertises under directly")

	sCmd.PersistentFlags().StringVar(&scanPower, "power", "high",
		"power level to use (low or high)")

	return sCmd
}
