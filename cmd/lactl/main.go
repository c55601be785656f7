package main

import "github.com/tsanders-rh/lactl/internal/cli"

func main() {
	cli.Execute()
}
