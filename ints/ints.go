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

// Package ints has the integer helpers shared by the
// benchmark: bounding levels and loop counts, rounding
// memory budgets, and parsing sizes given on the
// command line.
package ints

import (
	"golang.org/x/exp/constraints"
)

// Min returns the smaller of x and y.
func Min[T constraints.Integer](x, y T) T {
	if y < x {
		return y
	}
	return x
}

// Max returns the larger of x and y.
func Max[T constraints.Integer](x, y T) T {
	if y > x {
		return y
	}
	return x
}

// Clamp bounds x to [lo, hi]. lo must not exceed hi.
func Clamp[T constraints.Integer](x, lo, hi T) T {
	switch {
	case x < lo:
		return lo
	case x > hi:
		return hi
	}
	return x
}

// AlignUp rounds v up to a multiple of step.
func AlignUp[T constraints.Unsigned](v, step T) T {
	if r := v % step; r != 0 {
		return v + step - r
	}
	return v
}

// AlignDown rounds v down to a multiple of step.
func AlignDown[T constraints.Unsigned](v, step T) T {
	return v - v%step
}
