package main

import "github.com/deepnoodle-ai/gantry/cmd/gantry/cli"

func main() {
	cli.Execute()
}
