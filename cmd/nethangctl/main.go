package main

import "github.com/mcoot/nethang/internal/cli"

func main() {
	cli.Execute()
}
