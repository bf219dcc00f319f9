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
	"strings"

	"github.com/SnellerInc/zbench/compr"
	"github.com/SnellerInc/zbench/ints"
)

// parseZstd applies a --zstd= argument, a comma-separated
// list of name=value pairs, to a level and its parameters.
// Setting the level resets the parameters to the
// defaults of the new level.
func parseZstd(arg string, level int, p compr.Params) (int, compr.Params, error) {
	if arg == "" {
		return level, p, nil
	}
	for _, kv := range strings.Split(arg, ",") {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return 0, p, fmt.Errorf("invalid compression parameter %q", kv)
		}
		v, err := ints.ParseSize(value)
		if err != nil {
			return 0, p, fmt.Errorf("compression parameter %s: %w", name, err)
		}
		switch name {
		case "level", "lvl":
			level = int(v)
			p = compr.LevelParams(level)
			continue
		}
		if err := p.Set(name, int(v)); err != nil {
			return 0, p, fmt.Errorf("invalid compression parameter %q", name)
		}
	}
	return level, p, nil
}
