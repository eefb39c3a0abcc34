/*
Copyright (c) the aquarium-core authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cmd

import (
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/bghosh412/aquarium-core/admin"
)

func init() {
	RootCmd.AddCommand(peersCmd)
}

var peersCmd = &cobra.Command{
	Use:   "peers",
	Short: "List provisioned peers and their online state",
	Run: func(_ *cobra.Command, _ []string) {
		var peers []admin.PeerView
		if err := getJSON("/peers", &peers); err != nil {
			fatal(err)
		}
		printPeers(peers)
	},
}

func printPeers(peers []admin.PeerView) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ADDR", "TANK", "KIND", "ONLINE", "LAST_RX_MS"})
	for _, p := range peers {
		online := color.RedString("no")
		if p.Online {
			online = color.GreenString("yes")
		}
		table.Append([]string{p.Addr, itoa(p.TankID), itoa(p.NodeKind), online, itoa64(p.LastRxMs)})
	}
	table.Render()
}
