package main

import "github.com/agentic-research/docforge/cmd"

func main() {
	cmd.Execute()
}
