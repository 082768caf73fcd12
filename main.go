// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/quixcc/quixbuild/cmd/quixbuild"

func main() {
	cmd.Execute()
}
