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

package common

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sort"
	"strings"
)

const ProgramName = "pvdash"

// set with -ldflags by mage
var (
	commitHash string
	buildDate  string
)

// Version is a SemVer 2.0.0 build version
type Version struct {
	Major  int
	Minor  int
	Patch  int
	Suffix string
}

func (v Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Suffix == "" {
		return s
	}

	s += "-" + v.Suffix
	if commitHash != "" {
		s += "+" + strings.ToLower(commitHash)
	}
	return s
}

// BuildInfo describes the running binary
type BuildInfo struct {
	Program   string `json:"program"`
	Version   string `json:"version"`
	Platform  string `json:"platform"`
	BuildDate string `json:"buildDate"`
	Commit    string `json:"commit"`
	GoVersion string `json:"goVersion"`
}

// CurrentBuild returns the build information stamped into this binary. Fields that were not
// set at link time read "unknown".
func CurrentBuild() BuildInfo {
	return BuildInfo{
		Program:   ProgramName,
		Version:   "v" + CurrentVersion.String(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		BuildDate: orUnknown(buildDate),
		Commit:    orUnknown(commitHash),
		GoVersion: runtime.Version(),
	}
}

// String formats the build as printed by `pvdash version`
func (b BuildInfo) String() string {
	return fmt.Sprintf("%s %s %s\n\nBuild Date: %s\nCommit: %s\nBuilt with: %s",
		b.Program, b.Version, b.Platform, b.BuildDate, b.Commit, b.GoVersion)
}

// Dependencies lists the modules compiled into the binary as sorted path="version" pairs
func Dependencies() []string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return nil
	}

	deps := make([]string, 0, len(bi.Deps))
	for _, dep := range bi.Deps {
		deps = append(deps, fmt.Sprintf("%s=%q", dep.Path, dep.Version))
	}
	sort.Strings(deps)

	return deps
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
