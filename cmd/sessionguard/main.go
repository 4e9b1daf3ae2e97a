package main

import "github.com/echosoundlab/sessionguard/internal/cli"

func main() {
	cli.Execute()
}
