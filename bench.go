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

// Package zbench measures the throughput of the
// entry points of a Zstandard implementation.
//
// A Bencher runs scenarios from the scenario catalog
// one at a time. Each scenario gets its own session of
// codec contexts, its own buffers and its own timing
// state, all released before the next one starts.
package zbench

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/SnellerInc/zbench/benchfn"
	"github.com/SnellerInc/zbench/compr"
	"github.com/SnellerInc/zbench/scenario"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"
)

// ErrNoMemory is returned when the buffers of a
// benchmark do not fit in the memory budget.
var ErrNoMemory = errors.New("not enough memory")

// DefaultIterations is the default number of
// one-second slices a scenario is measured for.
const DefaultIterations = 6

// Config configures a Bencher.
type Config struct {
	// Level is the compression level.
	Level int
	// Params are the advanced compression parameters.
	// The zero value means the defaults of Level.
	Params compr.Params
	// Iterations is the number of slices
	// each scenario is measured for.
	Iterations int
	// Slice is the duration of one reported loop.
	Slice time.Duration
	// Out receives the live throughput display.
	// If nil, nothing is displayed.
	Out io.Writer
	// Logger receives diagnostics.
	Logger logrus.FieldLogger
	// MemLimit bounds the memory used by buffers.
	// Zero means the total memory of the machine,
	// when it is known.
	MemLimit int64
}

// Status is the result of benchmarking a scenario.
type Status int

const (
	// StatusMissing means no scenario has the requested id.
	StatusMissing Status = iota
	// StatusSkipped means the scenario does not apply to the input.
	StatusSkipped
	// StatusMeasured means the scenario was measured.
	StatusMeasured
	// StatusFailed means a call of the scenario failed.
	StatusFailed
)

var statusNames = [...]string{"missing", "skipped", "measured", "failed"}

func (s Status) String() string {
	if s >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", int(s))
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	for i := range statusNames {
		if statusNames[i] == string(b) {
			*s = Status(i)
			return nil
		}
	}
	return fmt.Errorf("zbench: unknown status %q", b)
}

// Result is the outcome of one scenario.
type Result struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
	// OrigSize is the number of bytes one
	// call is credited with.
	OrigSize      int     `json:"origSize"`
	NanoSecPerRun float64 `json:"nsPerRun,omitempty"`
	BytesPerSec   float64 `json:"bytesPerSec,omitempty"`
	MBPerSec      float64 `json:"mbPerSec,omitempty"`
	SumOfReturn   int     `json:"sumOfReturn,omitempty"`
	// Digest identifies the prepared input.
	Digest string `json:"digest,omitempty"`
}

// ScenarioError is returned when a call
// of a scenario fails.
type ScenarioError struct {
	ID   int
	Name string
	Err  error
}

func (e *ScenarioError) Error() string {
	return fmt.Sprintf("scenario %d (%s): %s", e.ID, e.Name, e.Err)
}

func (e *ScenarioError) Unwrap() error { return e.Err }

// Bencher runs scenarios.
type Bencher struct {
	cfg Config
	log logrus.FieldLogger
	out io.Writer
	mem int64
}

// New returns a Bencher for cfg.
func New(cfg Config) *Bencher {
	if cfg.Level == 0 {
		cfg.Level = compr.DefaultLevel
	}
	if cfg.Params == (compr.Params{}) {
		cfg.Params = compr.LevelParams(cfg.Level)
	}
	if cfg.Iterations <= 0 {
		cfg.Iterations = DefaultIterations
	}
	b := &Bencher{cfg: cfg, log: cfg.Logger, out: cfg.Out, mem: cfg.MemLimit}
	if b.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		b.log = l
	}
	if b.out == nil {
		b.out = io.Discard
	}
	if b.mem == 0 {
		b.mem = memTotal
	}
	return b
}

// reserve checks that n bytes of buffers fit in the budget.
func (b *Bencher) reserve(n int) error {
	if b.mem > 0 && int64(n) > b.mem {
		return fmt.Errorf("zbench: %d bytes of buffers, %d available: %w", n, b.mem, ErrNoMemory)
	}
	return nil
}

func digest(buf []byte) string {
	sum := blake2b.Sum256(buf)
	return hex.EncodeToString(sum[:16])
}

// Bench measures scenario id on src.
//
// A missing scenario or one that does not apply to src
// is reported in the result with a nil error. A failing
// call is reported as StatusFailed with a *ScenarioError.
// ErrNoMemory is returned, with no result, when the
// buffers do not fit in the memory budget.
func (b *Bencher) Bench(id int, src []byte) (Result, error) {
	sc, ok := scenario.Lookup(id)
	if !ok {
		return Result{ID: id, Status: StatusMissing}, nil
	}
	res := Result{ID: id, Name: sc.Name, OrigSize: len(src)}
	dstCap := compr.Bound(len(src))
	if err := b.reserve(2 * dstCap); err != nil {
		return Result{}, err
	}
	dst := make([]byte, dstCap)
	prep := make([]byte, dstCap)

	log := b.log.WithFields(logrus.Fields{"scenario": id, "name": sc.Name})
	sess := compr.NewContexts(b.cfg.Level, b.cfg.Params, log)
	defer func() {
		if err := sess.Close(); err != nil {
			log.WithError(err).Debug("closing codec contexts")
		}
	}()

	pr, err := sc.Prepare(prep, src, b.cfg.Level)
	if reason, ok := scenario.IsSkip(err); ok {
		log.WithField("reason", reason).Info("skipped")
		res.Status = StatusSkipped
		res.Reason = reason
		return res, nil
	}
	if err != nil {
		res.Status = StatusFailed
		res.Reason = err.Error()
		return res, &ScenarioError{ID: id, Name: sc.Name, Err: err}
	}
	res.OrigSize = pr.OrigSize
	res.Digest = digest(pr.Data)
	if pr.DstCapacity != 0 {
		dst = dst[:pr.DstCapacity]
	}
	for i := range dst {
		dst[i] = byte(i)
	}

	state := benchfn.NewTimedState(benchfn.BudgetFor(b.cfg.Iterations, b.cfg.Slice))
	params := benchfn.Params{
		Fn: func(src, dst []byte) (int, error) {
			return sc.Run(sess, src, dst)
		},
		Src: pr.Data,
		Dst: dst,
		IsError: func(n int, err error) bool {
			return err != nil || (pr.ExpectSize != 0 && n != pr.ExpectSize)
		},
	}
	best := benchfn.NewBest()
	for {
		o := state.Run(params)
		if !o.OK() {
			fmt.Fprintf(b.out, "\n")
			log.WithError(o.Err()).Error("benchmarking function failed")
			res.Status = StatusFailed
			res.Reason = o.Err().Error()
			return res, &ScenarioError{ID: id, Name: sc.Name, Err: o.Err()}
		}
		rt := o.RunTime()
		best.Observe(rt)
		res.SumOfReturn = rt.SumOfReturn
		fmt.Fprintf(b.out, "\r%2d#%-31.31s:%8.1f MB/s  (%8d) ",
			id, sc.Name, best.Throughput(pr.OrigSize)/1e6, rt.SumOfReturn)
		if state.Completed() {
			break
		}
	}
	fmt.Fprintf(b.out, "\n")

	res.Status = StatusMeasured
	res.NanoSecPerRun = best.NanoSecPerRun
	res.BytesPerSec = best.Throughput(pr.OrigSize)
	res.MBPerSec = res.BytesPerSec / 1e6
	log.WithFields(logrus.Fields{
		"ns_per_run": res.NanoSecPerRun,
		"mb_per_sec": res.MBPerSec,
		"spent":      state.Spent(),
	}).Debug("measured")
	return res, nil
}

// BenchAll measures every scenario of the catalog on src.
// Scenario failures are recorded in the results and do not
// stop the run; only ErrNoMemory does.
func (b *Bencher) BenchAll(src []byte) ([]Result, error) {
	var out []Result
	for id := 0; ; id++ {
		res, err := b.Bench(id, src)
		if err != nil {
			var se *ScenarioError
			if !errors.As(err, &se) {
				return out, err
			}
		}
		if res.Status == StatusMissing {
			return out, nil
		}
		out = append(out, res)
	}
}

// AllScenarios selects every scenario
// in BenchSample and BenchFiles.
const AllScenarios = -1

func (b *Bencher) run(id int, src []byte) ([]Result, error) {
	if id == AllScenarios {
		return b.BenchAll(src)
	}
	res, err := b.Bench(id, src)
	if err != nil {
		var se *ScenarioError
		if !errors.As(err, &se) {
			return nil, err
		}
	}
	if res.Status == StatusMissing {
		b.log.WithField("scenario", id).Warn("no such scenario")
		return nil, nil
	}
	return []Result{res}, nil
}
