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
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/bourdakos1/nearby-1/nearbyctl/config"
	"github.com/bourdakos1/nearby-1/nearbyctl/nbutil"
)

func mediumProfileAddCmd(cmd *cobra.Command, args []string) {
	mpm := config.GlobalMediumProfileMgr()

	// Medium profile name required
	if len(args) == 0 {
		nbUsage(cmd, errors.New("need medium profile name"))
	}

	name := args[0]
	mp := config.NewMediumProfile()
	mp.Name = name
	mp.Type = config.MEDIUM_TYPE_NONE

	for _, vdef := range args[1:] {
		s := strings.SplitN(vdef, "=", 2)
		switch s[0] {
		case "type":
			var err error
			mp.Type, err = config.MediumTypeFromString(s[1])
			if err != nil {
				nbUsage(cmd, err)
			}
		case "connstring":
			mp.ConnString = s[1]
		default:
			nbUsage(cmd, errors.New("unknown variable "+s[0]))
		}
	}

	if mp.Type == config.MEDIUM_TYPE_NONE {
		nbUsage(cmd, errors.New("must specify a medium type"))
	}

	if err := mpm.AddMediumProfile(mp); err != nil {
		nbUsage(cmd, err)
	}

	fmt.Printf("Medium profile %s successfully added\n", name)
}

func mediumProfileShowCmd(cmd *cobra.Command, args []string) {
	mpm := config.GlobalMediumProfileMgr()

	name := ""
	if len(args) > 0 {
		name = args[0]
	}

	mpList, err := mpm.GetMediumProfileList()
	if err != nil {
		nbUsage(cmd, err)
	}

	found := false
	for _, mp := range mpList {
		if name != "" && mp.Name != name {
			continue
		}

		if !found {
			found = true
			fmt.Printf("Medium profiles: \n")
		}
		fmt.Printf("  %s: type=%s, connstring='%s'\n",
			mp.Name, config.MediumTypeToString(mp.Type), mp.ConnString)
	}

	if !found {
		if name == "" {
			fmt.Printf("No medium profiles found!\n")
		} else {
			fmt.Printf("No medium profiles found matching %s\n", name)
		}
	}
}

func mediumProfileDelCmd(cmd *cobra.Command, args []string) {
	mpm := config.GlobalMediumProfileMgr()

	// Medium profile name required
	if len(args) == 0 {
		nbUsage(cmd, errors.New("need medium profile name"))
	}

	name := args[0]
	if err := mpm.DeleteMediumProfile(name); err != nil {
		nbUsage(cmd, err)
	}

	fmt.Printf("Medium profile %s successfully deleted.\n", name)
}

func mediumProfileCmd() *cobra.Command {
	mpCmd := &cobra.Command{
		Use:   "medium",
		Short: "Manage " + nbutil.ToolInfo.ShortName + " medium profiles",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	addCmd := &cobra.Command{
		Use:   "add <medium_profile> <varname=value ...> ",
		Short: "Add a " + nbutil.ToolInfo.ShortName + " medium profile",
		Run:   mediumProfileAddCmd,
	}
	mpCmd.AddCommand(addCmd)

	deleCmd := &cobra.Command{
		Use:   "delete <medium_profile>",
		Short: "Delete a " + nbutil.ToolInfo.ShortName + " medium profile",
		Run:   mediumProfileDelCmd,
	}
	mpCmd.AddCommand(deleCmd)

	showHelpText := "Show information for the medium_profile medium "
	showHelpText += "profile or for all\nmedium profiles "
	showHelpText += "if medium_profile is not specified.\n"

	showCmd := &cobra.Command{
		Use:   "show [medium_profile]",
		Short: "Show " + nbutil.ToolInfo.ShortName + " medium profiles",
		Long:  showHelpText,
		Run:   mediumProfileShowCmd,
	}
	mpCmd.AddCommand(showCmd)

	return mpCmd
}
