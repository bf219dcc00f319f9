// Copyright 2023 Sneller, Inc.
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.

package main

import (
	"fmt"
	"runtime/debug"
)

// Version returns the version of the binary,
// based on its build info.
func Version() (string, bool) {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return "", false
	}
	rev, hasRev := findSetting(bi, "vcs.revision")
	date, hasDate := findSetting(bi, "vcs.time")
	codec := codecVersion(bi)
	switch {
	case hasRev && hasDate:
		return fmt.Sprintf("date: %s, revision: %s, compress: %s", date, rev, codec), true
	case hasRev:
		return fmt.Sprintf("revision: %s, compress: %s", rev, codec), true
	case hasDate:
		return fmt.Sprintf("date: %s, compress: %s", date, codec), true
	}
	return fmt.Sprintf("compress: %s", codec), true
}

// codecVersion returns the version of the
// compression module linked into the binary.
func codecVersion(bi *debug.BuildInfo) string {
	if bi != nil {
		for _, dep := range bi.Deps {
			if dep.Path == codecModule {
				return dep.Version
			}
		}
	}
	return "unknown"
}

const codecModule = "github.com/klauspost/compress"

func findSetting(bi *debug.BuildInfo, key string) (string, bool) {
	for i := range bi.Settings {
		if bi.Settings[i].Key == key {
			return bi.Settings[i].Value, true
		}
	}
	return "", false
}
