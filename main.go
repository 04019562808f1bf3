package main

import "github.com/treekit-build/treekit/cmd"

func main() {
	cmd.Execute()
}
