package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/forPelevin/harvester/internal/cli"
)

func main() {
	cli.Main()
}
