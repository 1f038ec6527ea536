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

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bourdakos1/nearby-1/nearbyctl/nbutil"
)

var NearbyctlLogLevel log.Level

func Commands() *cobra.Command {
	logLevelStr := ""
	nbCmd := &cobra.Command{
		Use: nbutil.ToolInfo.ExeName,
		Short: nbutil.ToolInfo.ShortName +
			" advertises and discovers nearby BLE peers",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			var err error
			NearbyctlLogLevel, err = log.ParseLevel(logLevelStr)
			if err != nil {
				nbUsage(nil, err)
			}

			log.SetLevel(NearbyctlLogLevel)
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	nbCmd.PersistentFlags().StringVarP(&nbutil.Profile, "profile", "p", "",
		"medium profile to use")

	nbCmd.PersistentFlags().Float64VarP(&nbutil.Duration, "duration", "d",
		10.0, "how long to run, in seconds (partial seconds allowed)")

	nbCmd.PersistentFlags().StringVarP(&logLevelStr, "loglevel", "l", "info",
		"log level to use")

	nbCmd.PersistentFlags().StringVar(&nbutil.CtlrName, "ctlr", "",
		"name of BLE controller; overrides profile setting")

	versCmd := &cobra.Command{
		Use:   "version",
		Short: "Display the " + nbutil.ToolInfo.ShortName + " version number",
		Example: "  " + nbutil.ToolInfo.ExeName + " version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s %s\n",
				nbutil.ToolInfo.LongName,
				nbutil.ToolInfo.VersionString)
		},
	}
	nbCmd.AddCommand(versCmd)

	nbCmd.AddCommand(advertiseCmd())
	nbCmd.AddCommand(scanCmd())
	nbCmd.AddCommand(mediumProfileCmd())

	return nbCmd
}
