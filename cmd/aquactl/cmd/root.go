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

// Package cmd implements the aquactl operator CLI: it talks to a running
// aquahubd process over its admin Unix socket.
package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// RootCmd is aquactl's entry point.
var RootCmd = &cobra.Command{
	Use:   "aquactl",
	Short: "Operator CLI for the aquarium messaging core",
}

var socketFlag string

func init() {
	RootCmd.PersistentFlags().StringVarP(&socketFlag, "socket", "s", "/run/aquahubd.sock", "admin control socket path")
}

// Execute is aquactl's main entry point.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func adminClient() *http.Client {
	return &http.Client{
		Timeout: 5 * time.Second,
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", socketFlag)
			},
		},
	}
}

func getJSON(path string, out any) error {
	resp, err := adminClient().Get("http://aquactl" + path)
	if err != nil {
		return fmt.Errorf("aquactl: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("aquactl: %s returned %s", path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func postJSON(path string, body any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := adminClient().Post("http://aquactl"+path, "application/json", bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("aquactl: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("aquactl: %s returned %s", path, resp.Status)
	}
	return nil
}

func fatal(err error) {
	log.Fatal(err)
}
