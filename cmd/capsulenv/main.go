// Command capsulenv is the per-target runtime image embedded by the
// packager: once appended to a capsule payload and footer, this same
// binary becomes both the supervisor (`supervisor`, re-exec'd by
// `daemon start`) and the control-protocol client (`daemon`, `proc`,
// `version`).
package main

import (
	"github.com/capsulenv/capsulenv/cmd/capsulenv/cli"
	"github.com/capsulenv/capsulenv/internal/runtimeenv"
)

var version = "dev"

func main() {
	_ = runtimeenv.LoadDotEnv(".capsulenv.env")
	cli.Execute(version)
}
