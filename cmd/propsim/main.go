package main

import "github.com/quantumchildren/propsim/internal/cli"

func main() {
	cli.Execute()
}
