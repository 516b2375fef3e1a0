//go:build mage
// +build mage

package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/magefile/mage/mg"
)

// Default target to run when none is specified
// If not set, running mage will list available targets
var Default = Build

// Build compiles both executables into ./bin
func Build() error {
	mg.Deps(BuildWfanalyzer, BuildEvreco)
	fmt.Println("Compilation finished")
	return nil
}

func BuildWfanalyzer() error {
	fmt.Println("Building wfanalyzer executable...")
	return goCommand("build", "-o", "./bin/wfanalyzer", "./wfanalyzer")
}

func BuildEvreco() error {
	fmt.Println("Building evreco executable...")
	return goCommand("build", "-o", "./bin/evreco", "./evreco")
}

// Test runs the unit tests of every package
func Test() error {
	return goCommand("test", "./...")
}

// goCommand runs the go tool with cgo enabled, as required by the HDF5 and
// DuckDB bindings.
func goCommand(args ...string) error {
	ldflags := os.Getenv("CGO_LDFLAGS")
	cflags := os.Getenv("CGO_CFLAGS")
	cmd := exec.Command("go", args...)
	cmd.Env = append(os.Environ(),
		"CGO_ENABLED=1",
		fmt.Sprintf("CGO_LDFLAGS=%s", ldflags),
		fmt.Sprintf("CGO_CFLAGS=%s", cflags))
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
