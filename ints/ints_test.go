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
	"testing"
)

func TestParseSize(t *testing.T) {
	tcs := []struct {
		in   string
		want uint32
	}{
		{"0", 0},
		{"10000000", 10000000},
		{"64K", 64 << 10},
		{"64KiB", 64 << 10},
		{"64KB", 64 << 10},
		{"3M", 3 << 20},
		{"3MiB", 3 << 20},
		{"4095M", 4095 << 20},
	}
	for _, tc := range tcs {
		got, err := ParseSize(tc.in)
		if err != nil {
			t.Errorf("ParseSize(%q): %s", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseSize(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestParseSizeErrors(t *testing.T) {
	for _, in := range []string{"", "K", "12X", "10KiBB", "-1"} {
		if _, err := ParseSize(in); err == nil {
			t.Errorf("ParseSize(%q) should have failed", in)
		}
	}
	for _, in := range []string{"4294967296", "4096M", "4194304K"} {
		_, err := ParseSize(in)
		if !errors.Is(err, ErrSizeRange) {
			t.Errorf("ParseSize(%q): got %v, want ErrSizeRange", in, err)
		}
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(200, 0, 128); got != 128 {
		t.Errorf("Clamp(200, 0, 128) = %d", got)
	}
	if got := Clamp(-3, 0, 128); got != 0 {
		t.Errorf("Clamp(-3, 0, 128) = %d", got)
	}
	if got := Min(uint64(5), 3); got != 3 {
		t.Errorf("Min(5, 3) = %d", got)
	}
	if got := AlignUp(uint64(65), 64); got != 128 {
		t.Errorf("AlignUp(65, 64) = %d", got)
	}
	if got := AlignDown(uint64(127), 64); got != 64 {
		t.Errorf("AlignDown(127, 64) = %d", got)
	}
}
