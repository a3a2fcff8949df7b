// SPDX-License-Identifier: MPL-2.0

package main

import cmd "modsmith/cmd/modsmith"

func main() {
	cmd.Execute()
}
