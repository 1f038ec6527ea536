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
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/bourdakos1/nearby-1/nbxact/bledefs"
	"github.com/bourdakos1/nearby-1/nbxact/hwble"
	"github.com/bourdakos1/nearby-1/nbxact/memble"
	"github.com/bourdakos1/nearby-1/nbxact/nble"
	"github.com/bourdakos1/nearby-1/nearbyctl/config"
	"github.com/bourdakos1/nearby-1/nearbyctl/nbutil"
)

var globalBle *nble.BleV2
var globalHwMedium *hwble.Medium

var onExit func()

func NbSetOnExit(cb func()) {
	onExit = cb
}

func getMediumProfile() (*config.MediumProfile, error) {
	return config.GlobalMediumProfileMgr().GetMediumProfile(nbutil.Profile)
}

// GetBle builds (or returns) the discovery mediator for the selected
// medium profile.
func GetBle() (*nble.BleV2, error) {
	if globalBle != nil {
		return globalBle, nil
	}

	var mp *config.MediumProfile
	if nbutil.Profile == "" {
		// No profile selected; default to the native medium.
		mp = &config.MediumProfile{Type: config.MEDIUM_TYPE_NATIVE}
	} else {
		var err error
		mp, err = getMediumProfile()
		if err != nil {
			return nil, err
		}
	}

	switch mp.Type {
	case config.MEDIUM_TYPE_NATIVE:
		nc, err := config.ParseNativeConnString(mp.ConnString)
		if err != nil {
			return nil, err
		}

		ctlrName := nc.CtlrName
		if nbutil.CtlrName != "" {
			ctlrName = nbutil.CtlrName
		}
		if nc.HciIdx != 0 {
			ctlrName = fmt.Sprintf("hci%d", nc.HciIdx)
		}

		m, err := hwble.NewMedium(ctlrName)
		if err != nil {
			return nil, err
		}

		globalHwMedium = m
		globalBle = nble.NewBleV2(hwble.NewRadio(m), m)

	case config.MEDIUM_TYPE_MEM:
		env := memble.NewEnvironment()
		globalBle = nble.NewBleV2(memble.NewRadio(), env.NewMedium())

	default:
		return nil, errors.Errorf("unknown medium type: %s (%d)",
			config.MediumTypeToString(mp.Type), int(mp.Type))
	}

	return globalBle, nil
}

func GetBleIfOpen() (*nble.BleV2, error) {
	if globalBle == nil {
		return nil, fmt.Errorf("medium not initialized")
	}

	return globalBle, nil
}

// GetHwMediumIfOpen returns the native medium, if one was opened.
func GetHwMediumIfOpen() (*hwble.Medium, error) {
	if globalHwMedium == nil {
		return nil, fmt.Errorf("native medium not initialized")
	}

	return globalHwMedium, nil
}

func parseFastUuid(s string) (bledefs.BleUuid16, error) {
	if s == "" {
		return 0, nil
	}

	return bledefs.ParseUuid16(s)
}

func parsePowerLevel(s string) (bledefs.PowerLevel, error) {
	switch s {
	case "low":
		return bledefs.POWER_LEVEL_LOW, nil
	case "high":
		return bledefs.POWER_LEVEL_HIGH, nil
	default:
		return bledefs.POWER_LEVEL_UNKNOWN,
			errors.Errorf("invalid power level: %s", s)
	}
}

func nbUsage(cmd *cobra.Command, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err.Error())
	}

	if cmd != nil {
		fmt.Printf("\n")
		fmt.Printf("%s - ", cmd.Name())
		cmd.Help()
	}

	if onExit != nil {
		onExit()
	}
	os.Exit(1)
}
