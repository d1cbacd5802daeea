package main

import "mclaunch/internal/cli"

func main() {
	cli.Execute()
}
