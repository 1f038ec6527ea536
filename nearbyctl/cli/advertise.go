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

	"github.com/bourdakos1/nearby-1/nearbyctl/nbutil"
)

func advertiseRunCmd(cmd *cobra.Command, args []string) {
	if len(args) < 2 {
		nbUsage(cmd, errors.New("need service id and payload"))
	}

	serviceId := args[0]

	var payload []byte
	if advertiseHex {
		var err error
		payload, err = hex.DecodeString(args[1])
		if err != nil {
			nbUsage(cmd, errors.Errorf("invalid hex payload: %s",
				err.Error()))
		}
	} else {
		payload = []byte(args[1])
	}

	fastUuid, err := parseFastUuid(advertiseFastUuid)
	if err != nil {
		nbUsage(cmd, err)
	}

	lvl, err := parsePowerLevel(advertisePower)
	if err != nil {
		nbUsage(cmd, err)
	}

	b, err := GetBle()
	if err != nil {
		nbUsage(nil, err)
	}

	if err := b.StartAdvertising(serviceId, payload, lvl, fastUuid); err != nil {
		nbUsage(nil, err)
	}

	fmt.Printf("Advertising service %s (%d bytes) for %s\n",
		serviceId, len(payload), nbutil.RunDuration())

	time.Sleep(nbutil.RunDuration())

	if err := b.StopAdvertising(serviceId); err != nil {
		nbUsage(nil, err)
	}

	fmt.Printf("Done\n")
}

var advertiseFastUuid string
var advertisePower string
var advertiseHex bool

func advertiseCmd() *cobra.Command {
	advCmd := &cobra.Command{
		Use:   "advertise <service-id> <payload>",
		Short: "Advertise a payload for a service",
		Example: "  " + nbutil.ToolInfo.ExeName +
			" advertise com.example.app 0a0b0c0d --hex --fast-uuid 0xfe2c",
		Run: advertiseRunCmd,
	}

	advCmd.PersistentFlags().StringVar(&advertiseFastUuid, "fast-uuid", "",
		"16-bit service UUID to advertise under directly; omit to host "+
			"the payload over GATT")

	advCmd.PersistentFlags().StringVar(&advertisePower, "power", "high",
		"power level to use (low or high)")

	advCmd.PersistentFlags().BoolVar(&advertiseHex, "hex", false,
		"interpret the payload as hex rather than text")

	return advCmd
}
