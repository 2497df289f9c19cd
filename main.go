package main

import "github.com/jpmckearin/asset-tag/internal/cli"

func main() {
	cli.Execute()
}
