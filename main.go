package main

import "github.com/agentic-research/manifestdb/cmd"

func main() {
	cmd.Execute()
}
