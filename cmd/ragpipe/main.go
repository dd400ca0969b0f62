package main

import "ragpipe/internal/cli"

func main() {
	cli.Execute()
}
