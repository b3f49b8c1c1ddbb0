package main

import "github.com/nfrund/parley/cmd/parley/cmd"

func main() {
	cmd.Execute()
}
