package main

import "docport/internal/cli"

func main() {
	cli.Execute()
}
