// Command tabtree tracks browser tabs as per-window trees.
package main

import "github.com/mesh-intelligence/tabtree/internal/cli"

func main() {
	cli.Execute()
}
