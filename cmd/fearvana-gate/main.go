package main

import "github.com/fearvana/gate/cmd/fearvana-gate/cmd"

func main() {
	cmd.Execute()
}
