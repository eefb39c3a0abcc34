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
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bghosh412/aquarium-core/admin"
)

var (
	provisionDeviceName string
	provisionTankID     string
)

func init() {
	RootCmd.AddCommand(provisionCmd)
	provisionCmd.Flags().StringVarP(&provisionDeviceName, "name", "n", "", "device name to assign")
	provisionCmd.Flags().StringVarP(&provisionTankID, "tank", "t", "0", "tank_id to assign")
}

var provisionCmd = &cobra.Command{
	Use:   "provision <addr>",
	Short: "Provision an unmapped device by its peer address",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		tank, err := strconv.ParseUint(provisionTankID, 10, 8)
		if err != nil {
			fatal(fmt.Errorf("aquactl: invalid --tank value %q: %w", provisionTankID, err))
		}
		req := admin.ProvisionRequest{
			Addr:       args[0],
			DeviceName: provisionDeviceName,
			TankID:     uint8(tank),
		}
		if err := postJSON("/provision", req); err != nil {
			fatal(err)
		}
		fmt.Printf("provisioned %s as %q (tank %d)\n", req.Addr, req.DeviceName, req.TankID)
	},
}
