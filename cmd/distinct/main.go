package main

import "github.com/copyleftdev/distinct/internal/cli"

func main() {
	cli.Execute()
}
