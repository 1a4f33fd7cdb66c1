package main

import "github.com/agentic-research/ctxpack/cmd"

func main() {
	cmd.Execute()
}
