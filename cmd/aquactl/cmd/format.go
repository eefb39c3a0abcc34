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

import "strconv"

func itoa(v uint8) string {
	return strconv.Itoa(int(v))
}

func itoa64(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func itoa32(v uint32) string {
	return strconv.FormatUint(uint64(v), 10)
}
