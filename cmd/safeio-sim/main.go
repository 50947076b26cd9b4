package main

import (
	"github.com/robotalks/safeio/pkg/cli/sh"
	"github.com/robotalks/safeio/pkg/env"

	_ "github.com/robotalks/safeio/pkg/cli/cmds/module"
)

//go-build: CGO_ENABLED=0

func init() {
	env.SetupFlags()
}

func main() {
	sh.Main()
}
