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

package benchfn

// Unmeasured is the time per run of a Best that
// has not observed anything. It is larger than
// any plausible measurement.
const Unmeasured = 2e18

// Best tracks the fastest run time observed.
// The zero Best is not usable; see NewBest.
type Best struct {
	RunTime
}

// NewBest returns a Best that has observed nothing.
func NewBest() Best {
	return Best{RunTime{NanoSecPerRun: Unmeasured}}
}

// Observe records rt and returns whether it
// is faster than every previous observation.
func (b *Best) Observe(rt RunTime) bool {
	if rt.NanoSecPerRun < b.NanoSecPerRun {
		b.RunTime = rt
		return true
	}
	return false
}

// Measured returns whether b has observed a run.
func (b Best) Measured() bool {
	return b.NanoSecPerRun < Unmeasured
}

// Throughput returns the rate, in bytes per second,
// of processing size bytes once per run.
func (b Best) Throughput(size int) float64 {
	if !b.Measured() || b.NanoSecPerRun <= 0 {
		return 0
	}
	return float64(size) * 1e9 / b.NanoSecPerRun
}
