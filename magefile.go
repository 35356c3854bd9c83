//go:build mage

// Copyright 2021-2023
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/magefile/mage/mg" // mg contains helpful utility functions, like Deps
	"github.com/magefile/mage/sh"
)

const (
	modulePath  = "github.com/penny-vault/pv-dashboard"
	binaryName  = "pvdash"
	packageName = "."
	coverFile   = "coverage.out"
	fixtureDir  = "testdata/profiles"
)

var ldflags = "-X " + modulePath + "/common.commitHash=$COMMIT_HASH -X " + modulePath + "/common.buildDate=$BUILD_DATE"

// allow user to override go executable by running as GOEXE=xxx mage ...
var goexe = "go"

func init() {
	if exe := os.Getenv("GOEXE"); exe != "" {
		goexe = exe
	}
}

// Build pvdash with the commit hash and build date stamped into `pvdash version`
func Build() error {
	fmt.Println("Building...")
	return sh.RunWith(flagEnv(), goexe, "build", "-o", binaryName, "-ldflags", ldflags, "-v", packageName)
}

// Install pvdash into GOBIN
func Install() error {
	return sh.RunWith(flagEnv(), goexe, "install", "-ldflags", ldflags, packageName)
}

// Clean up
func Clean() {
	fmt.Println("Cleaning...")
	os.RemoveAll(binaryName)
	os.RemoveAll(coverFile)
}

// Refresh the return table from the market data provider
func Update() error {
	mg.Deps(Build)
	return sh.RunV("./"+binaryName, "update")
}

// Serve the dashboard API with the local configuration
func Serve() error {
	mg.Deps(Build)
	return sh.RunV("./"+binaryName, "serve")
}

// Demo values the fixture profile against the fixture return table and plots it
func Demo() error {
	mg.Deps(Build)
	return sh.RunV("./"+binaryName, "history", "user_001",
		"--data-dir", fixtureDir,
		"--returns-file", "../returns.csv",
		"--chart")
}

// Run formatting, vet and the race-enabled test suite
func Check() {
	mg.Deps(Fmt, Vet)
	mg.Deps(Test)
}

// Run tests with the race detector
func Test() error {
	fmt.Println("Go Test")
	return runQuiet(goexe, "test", "-race", "./...")
}

// Run gofmt on every package and fail on unformatted files
func Fmt() error {
	fmt.Println("Go Format")

	dirs, err := packageDirs()
	if err != nil {
		return err
	}

	// gofmt recurses into directories, so pass each package's files explicitly
	args := []string{"-l"}
	for _, dir := range dirs {
		files, err := filepath.Glob(filepath.Join(dir, "*.go"))
		if err != nil {
			return err
		}
		args = append(args, files...)
	}

	// gofmt doesn't exit with non-zero when it finds unformatted code
	out, err := sh.Output("gofmt", args...)
	if err != nil {
		return fmt.Errorf("error running gofmt: %w", err)
	}
	if out != "" {
		fmt.Println("The following files are not gofmt'ed:")
		fmt.Println(out)
		return errors.New("improperly formatted go files")
	}
	return nil
}

// Run go vet
func Vet() error {
	fmt.Println("Go Vet")

	if err := sh.Run(goexe, "vet", "./..."); err != nil {
		return fmt.Errorf("error running go vet: %w", err)
	}
	return nil
}

// Generate a test coverage report and open it in the browser
func Cover() error {
	fmt.Println("Generate Test Coverage HTML")

	if err := sh.Run(goexe, "test", "-coverprofile="+coverFile, "-covermode=count", "./..."); err != nil {
		return err
	}
	return sh.Run(goexe, "tool", "cover", "-html="+coverFile)
}

// Helpers

func flagEnv() map[string]string {
	hash, _ := sh.Output("git", "rev-parse", "--short", "HEAD")
	return map[string]string{
		"COMMIT_HASH": hash,
		"BUILD_DATE":  time.Now().Format("2006-01-02T15:04:05Z0700"),
	}
}

// runQuiet only prints the command output on failure unless mage runs verbose
func runQuiet(cmd string, args ...string) error {
	if mg.Verbose() {
		return sh.RunV(cmd, args...)
	}
	output, err := sh.Output(cmd, args...)
	if err != nil {
		fmt.Fprint(os.Stderr, output)
	}
	return err
}

// packageDirs lists the directory of every package in the module relative to its root
func packageDirs() ([]string, error) {
	out, err := sh.Output(goexe, "list", "./...")
	if err != nil {
		return nil, err
	}

	var dirs []string
	for _, pkg := range strings.Split(out, "\n") {
		if pkg == "" {
			continue
		}
		dirs = append(dirs, "."+strings.TrimPrefix(pkg, modulePath))
	}
	return dirs, nil
}
