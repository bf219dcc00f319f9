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

// Package benchfn measures the best-case time of a
// function under a wall-clock budget.
//
// A TimedState runs the function in loops whose
// length is adapted so that each reported loop lasts
// about one slice of the budget. Loops that are too
// short to be trusted are run again with more
// iterations and are never reported. The state keeps
// the fastest time per call seen so far, so results
// converge towards the least disturbed run.
package benchfn

import (
	"errors"
	"fmt"
	"time"

	"github.com/SnellerInc/zbench/ints"
)

// ErrResult is wrapped by a run outcome when
// Params.IsError rejects a call that returned no error.
var ErrResult = errors.New("benchfn: unexpected result")

const (
	// DefaultSlice is the duration of one reported loop.
	DefaultSlice = time.Second
	// loop counts are never grown past this
	maxLoops = 1 << 30
	// an attempt shorter than slice/shortDivisor
	// grows the loop count blindly
	shortDivisor = 50
	growFactor   = 10

	defaultActive = 70 * time.Second
	defaultCool   = 10 * time.Second
)

// Budget is the time allotted to one measurement.
type Budget struct {
	// Total is the accumulated run time after
	// which the measurement is complete.
	Total time.Duration
	// Slice is the target duration of one
	// reported loop.
	Slice time.Duration
}

// BudgetFor returns a budget of iterations slices.
// A non-positive slice means DefaultSlice.
func BudgetFor(iterations int, slice time.Duration) Budget {
	if slice <= 0 {
		slice = DefaultSlice
	}
	return Budget{Total: time.Duration(ints.Max(iterations, 1)) * slice, Slice: slice}
}

// RunTime is the result of one reported loop.
type RunTime struct {
	// SumOfReturn is the value returned by
	// the last call of the loop.
	SumOfReturn int
	// NanoSecPerRun is the mean duration
	// of one call, in nanoseconds.
	NanoSecPerRun float64
}

// Params describe the function under measurement.
type Params struct {
	// Fn is the timed function. It is called
	// with Src and Dst on every iteration.
	Fn       func(src, dst []byte) (int, error)
	Src, Dst []byte
	// IsError classifies the result of a call.
	// If nil, any non-nil error is a failure.
	IsError func(n int, err error) bool
}

func (p *Params) failed(n int, err error) bool {
	if p.IsError == nil {
		return err != nil
	}
	return p.IsError(n, err)
}

// Outcome is the result of TimedState.Run.
type Outcome struct {
	rt  RunTime
	err error
}

// OK returns whether the run succeeded.
func (o Outcome) OK() bool { return o.err == nil }

// RunTime returns the best run time of the
// state at the time of the run. It is only
// meaningful when o.OK() is true.
func (o Outcome) RunTime() RunTime { return o.rt }

// Err returns the failure of an unsuccessful run.
func (o Outcome) Err() error { return o.err }

// TimedState is the state of one measurement.
// It is not safe for concurrent use.
type TimedState struct {
	// Now and Sleep default to time.Now and time.Sleep.
	Now   func() time.Time
	Sleep func(time.Duration)
	// After Active of continuous measurement the
	// state pauses for Cool so the machine does not
	// throttle. A zero Active disables cooling.
	Active, Cool time.Duration

	budget    Budget
	spent     time.Duration
	nbLoops   int
	best      Best
	coolStart time.Time
}

// NewTimedState returns a state that completes after
// b.Total of measured time.
func NewTimedState(b Budget) *TimedState {
	if b.Slice <= 0 {
		b.Slice = DefaultSlice
	}
	return &TimedState{
		Now:     time.Now,
		Sleep:   time.Sleep,
		Active:  defaultActive,
		Cool:    defaultCool,
		budget:  b,
		nbLoops: 1,
		best:    NewBest(),
	}
}

// Completed returns whether the time budget is spent.
func (s *TimedState) Completed() bool {
	return s.spent >= s.budget.Total
}

// Spent returns the accumulated measured time.
func (s *TimedState) Spent() time.Duration { return s.spent }

// Best returns the fastest run seen so far.
func (s *TimedState) Best() Best { return s.best }

func (s *TimedState) cool() {
	if s.Active <= 0 {
		return
	}
	now := s.Now()
	if s.coolStart.IsZero() {
		s.coolStart = now
		return
	}
	if now.Sub(s.coolStart) > s.Active {
		s.Sleep(s.Cool)
		s.coolStart = s.Now()
	}
}

// loop calls p.Fn n times and returns
// the elapsed time and the last result.
func (s *TimedState) loop(p *Params, n int) (time.Duration, int, error) {
	var ret int
	start := s.Now()
	for i := 0; i < n; i++ {
		r, err := p.Fn(p.Src, p.Dst)
		if p.failed(r, err) {
			if err == nil {
				err = fmt.Errorf("%w %d", ErrResult, r)
			}
			return 0, r, fmt.Errorf("benchfn: call %d of %d (src %d bytes): %w", i+1, n, len(p.Src), err)
		}
		ret = r
	}
	return s.Now().Sub(start), ret, nil
}

// Run measures p until one loop lasts at least half
// a slice, then returns the best time observed by the
// state. The first failing call aborts the run.
func (s *TimedState) Run(p Params) Outcome {
	for {
		s.cool()
		n := s.nbLoops
		elapsed, ret, err := s.loop(&p, n)
		if err != nil {
			return Outcome{err: err}
		}
		s.spent += elapsed
		rt := RunTime{SumOfReturn: ret, NanoSecPerRun: float64(elapsed) / float64(n)}
		if elapsed > s.budget.Slice/shortDivisor {
			fastest := rt.NanoSecPerRun
			if s.best.NanoSecPerRun < fastest {
				fastest = s.best.NanoSecPerRun
			}
			if fastest < 1 {
				fastest = 1
			}
			next := float64(s.budget.Slice)/fastest + 1
			if next > maxLoops {
				next = maxLoops
			}
			s.nbLoops = int(next)
		} else if s.nbLoops < maxLoops/growFactor {
			s.nbLoops *= growFactor
		}
		if elapsed < s.budget.Slice/2 {
			continue
		}
		s.best.Observe(rt)
		return Outcome{rt: s.best.RunTime}
	}
}
