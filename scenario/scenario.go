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

// Package scenario defines the benchmark scenarios:
// the entry points of the codec that are timed, and
// how a raw sample is turned into the input each one
// expects.
//
// A Scenario pairs a Preparation, which runs once and
// is not timed, with a Call, which is the timed
// routine. Calls only touch the codec contexts of
// the session they are given.
package scenario

import (
	"errors"
	"fmt"
)

// ErrSkip is wrapped by preparation errors that
// mean the scenario does not apply to the sample.
// A skip is not a failure.
var ErrSkip = errors.New("scenario skipped")

// SkipError carries the reason for a skip.
type SkipError struct {
	Reason string
}

func (s *SkipError) Error() string { return fmt.Sprintf("%s: %s", ErrSkip, s.Reason) }

func (s *SkipError) Unwrap() error { return ErrSkip }

func skip(reason string) error { return &SkipError{Reason: reason} }

// IsSkip returns the reason for a skip and whether
// err is one.
func IsSkip(err error) (string, bool) {
	var se *SkipError
	if errors.As(err, &se) {
		return se.Reason, true
	}
	if errors.Is(err, ErrSkip) {
		return "", true
	}
	return "", false
}

// Prepared is the input of a timed call.
type Prepared struct {
	// Data is the input handed to every call.
	Data []byte
	// OrigSize is the size used to compute
	// throughput. It can be smaller than the sample
	// when the call only processes part of it.
	OrigSize int
	// DstCapacity, if non-zero, replaces the
	// worst-case bound as the destination size.
	DstCapacity int
	// ExpectSize, if non-zero, is the value
	// every call must return.
	ExpectSize int
}
