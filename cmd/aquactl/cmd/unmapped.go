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

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/bghosh412/aquarium-core/admin"
)

func init() {
	RootCmd.AddCommand(unmappedCmd)
}

var unmappedCmd = &cobra.Command{
	Use:   "unmapped",
	Short: "List devices seen announcing but not yet provisioned",
	Run: func(_ *cobra.Command, _ []string) {
		var entries []admin.UnmappedView
		if err := getJSON("/unmapped", &entries); err != nil {
			fatal(err)
		}
		printUnmapped(entries)
	},
}

func printUnmapped(entries []admin.UnmappedView) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ADDR", "KIND", "ANNOUNCES", "FIRST_SEEN_MS", "LAST_SEEN_MS"})
	for _, e := range entries {
		table.Append([]string{e.Addr, itoa(e.NodeKind), itoa32(e.AnnounceCount), itoa64(e.FirstSeenMs), itoa64(e.LastSeenMs)})
	}
	table.Render()
}
