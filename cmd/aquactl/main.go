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

// Command aquactl is the operator CLI for the aquarium messaging core: it
// lists peers, lists unmapped discoveries, provisions devices, and prints
// counters, all against a running aquahubd's admin socket.
package main

import "github.com/bghosh412/aquarium-core/cmd/aquactl/cmd"

func main() {
	cmd.Execute()
}
