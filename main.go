package main

import "github.com/agentic-research/scenebridge/cmd"

func main() {
	cmd.Execute()
}
