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

package ints

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrSizeRange is returned by ParseSize
// when the value does not fit in 32 bits.
var ErrSizeRange = errors.New("numeric value too large")

// ParseSize parses a decimal size with an optional
// binary suffix: K (x1024) or M (x1024*1024),
// optionally followed by "i" and/or "B", so that
// "64K", "64KiB" and "64KB" are equivalent.
//
// Values larger than 32 bits are rejected.
func ParseSize(s string) (uint32, error) {
	digits := strings.IndexFunc(s, func(r rune) bool {
		return r < '0' || r > '9'
	})
	if digits < 0 {
		digits = len(s)
	}
	if digits == 0 {
		return 0, fmt.Errorf("ints.ParseSize: %q: missing digits", s)
	}
	v, err := strconv.ParseUint(s[:digits], 10, 32)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, fmt.Errorf("ints.ParseSize: %q: %w", s, ErrSizeRange)
		}
		return 0, fmt.Errorf("ints.ParseSize: %w", err)
	}
	rest := s[digits:]
	shift := 0
	switch {
	case strings.HasPrefix(rest, "K"):
		shift = 10
	case strings.HasPrefix(rest, "M"):
		shift = 20
	}
	if shift != 0 {
		rest = strings.TrimPrefix(rest[1:], "i")
		rest = strings.TrimPrefix(rest, "B")
		if v > math.MaxUint32>>shift {
			return 0, fmt.Errorf("ints.ParseSize: %q: %w", s, ErrSizeRange)
		}
		v <<= shift
	}
	if rest != "" {
		return 0, fmt.Errorf("ints.ParseSize: %q: unexpected suffix %q", s, rest)
	}
	return uint32(v), nil
}
