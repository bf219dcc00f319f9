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

// Command zbench measures the throughput of
// individual entry points of the zstd codec.
//
// Usage:
//
//	zbench [flags] [file...]
//
// Without files, a generated sample is measured.
package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/SnellerInc/zbench"
	"github.com/SnellerInc/zbench/compr"
	"github.com/SnellerInc/zbench/ints"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sys/cpu"
	"sigs.k8s.io/yaml"
)

const (
	exitOK       = 0
	exitUsage    = 1
	exitOpen     = 11
	exitNoMemory = 12
	exitRead     = 13
)

type options struct {
	Scenario        int    `json:"scenario"`
	Level           int    `json:"level"`
	Zstd            string `json:"zstd"`
	Compressibility int    `json:"compressibility"`
	SampleSize      string `json:"sampleSize"`
	Iterations      int    `json:"iterations"`
	Pause           bool   `json:"pause"`
	JSON            bool   `json:"json"`
	Verbose         bool   `json:"verbose"`

	config string
	slice  time.Duration
}

func defaultOptions() options {
	return options{
		Scenario:        zbench.AllScenarios,
		Level:           compr.DefaultLevel,
		Compressibility: 50,
		SampleSize:      "10000000",
		Iterations:      zbench.DefaultIterations,
		slice:           time.Second,
	}
}

// merge fills every option whose flag was not
// given on the command line from the profile at path.
func (o *options) merge(path string, changed func(string) bool) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	file := defaultOptions()
	if err := yaml.UnmarshalStrict(buf, &file); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	pick := func(flag string, dst, src any) {
		if changed(flag) {
			return
		}
		switch d := dst.(type) {
		case *int:
			*d = *src.(*int)
		case *string:
			*d = *src.(*string)
		case *bool:
			*d = *src.(*bool)
		}
	}
	pick("scenario", &o.Scenario, &file.Scenario)
	pick("level", &o.Level, &file.Level)
	pick("zstd", &o.Zstd, &file.Zstd)
	pick("compressibility", &o.Compressibility, &file.Compressibility)
	pick("sample-size", &o.SampleSize, &file.SampleSize)
	pick("iterations", &o.Iterations, &file.Iterations)
	pick("pause", &o.Pause, &file.Pause)
	pick("json", &o.JSON, &file.JSON)
	pick("verbose", &o.Verbose, &file.Verbose)
	return nil
}

// usageError is an invalid command line
type usageError struct {
	err error
}

func (u *usageError) Error() string { return u.err.Error() }

func (u *usageError) Unwrap() error { return u.err }

func usagef(f string, args ...any) error {
	return &usageError{fmt.Errorf(f, args...)}
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	if errors.Is(err, zbench.ErrNoMemory) {
		return exitNoMemory
	}
	var fe *zbench.FileError
	if errors.As(err, &fe) {
		if fe.Op == "read" {
			return exitRead
		}
		return exitOpen
	}
	return exitUsage
}

func cpuFeatures() string {
	var f []string
	add := func(name string, ok bool) {
		if ok {
			f = append(f, name)
		}
	}
	add("sse4.2", cpu.X86.HasSSE42)
	add("avx2", cpu.X86.HasAVX2)
	add("bmi2", cpu.X86.HasBMI2)
	add("avx512f", cpu.X86.HasAVX512F)
	add("asimd", cpu.ARM64.HasASIMD)
	add("crc32", cpu.ARM64.HasCRC32)
	if len(f) == 0 {
		return "none"
	}
	return strings.Join(f, ",")
}

type report struct {
	RunID   string          `json:"runId"`
	Level   int             `json:"level"`
	Params  compr.Params    `json:"params"`
	Results []zbench.Result `json:"results"`
}

func newCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	opts := defaultOptions()
	cmd := &cobra.Command{
		Use:           "zbench [flags] [file...]",
		Short:         "Measure the speed of zstd entry points",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.config != "" {
				if err := opts.merge(opts.config, cmd.Flags().Changed); err != nil {
					return usagef("config: %w", err)
				}
			}
			return run(&opts, args, stdin, stdout, stderr)
		},
	}
	if v, ok := Version(); ok {
		cmd.Version = v
	} else {
		cmd.Version = "unknown"
	}
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return &usageError{err}
	})

	fl := cmd.Flags()
	fl.IntVarP(&opts.Scenario, "scenario", "b", opts.Scenario, "test only scenario # (default: all)")
	fl.IntVarP(&opts.Level, "level", "l", opts.Level, "compression level")
	fl.StringVar(&opts.Zstd, "zstd", "", "advanced compression parameters, e.g. wlog=20,strat=3")
	fl.IntVarP(&opts.Compressibility, "compressibility", "P", opts.Compressibility, "sample compressibility, in percent")
	fl.StringVarP(&opts.SampleSize, "sample-size", "B", opts.SampleSize, "sample size in bytes (K and M suffixes allowed)")
	fl.IntVarP(&opts.Iterations, "iterations", "i", opts.Iterations, "number of one-second measurement slices")
	fl.BoolVarP(&opts.Pause, "pause", "p", false, "pause at the end")
	fl.StringVar(&opts.config, "config", "", "YAML profile; flags override its values")
	fl.BoolVar(&opts.JSON, "json", false, "write results as JSON to stdout")
	fl.BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	fl.DurationVar(&opts.slice, "slice", opts.slice, "duration of one measurement slice")
	fl.MarkHidden("slice")
	return cmd
}

func run(opts *options, files []string, stdin io.Reader, stdout, stderr io.Writer) error {
	logger := logrus.New()
	logger.SetOutput(stderr)
	if opts.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	level, params, err := parseZstd(opts.Zstd, opts.Level, compr.LevelParams(opts.Level))
	if err != nil {
		return &usageError{err}
	}
	if level < compr.MinLevel || level > compr.MaxLevel {
		return usagef("compression level %d out of range [%d, %d]", level, compr.MinLevel, compr.MaxLevel)
	}
	if opts.Compressibility < 0 || opts.Compressibility > 100 {
		return usagef("compressibility %d%% out of range", opts.Compressibility)
	}
	size, err := ints.ParseSize(opts.SampleSize)
	if err != nil {
		return usagef("sample size %q: %w", opts.SampleSize, err)
	}
	if opts.Iterations < 1 {
		return usagef("iterations must be positive")
	}

	bi, _ := debug.ReadBuildInfo()
	fmt.Fprintf(stderr, "*** zbench %d-bits, zstd %s, cpu %s ***\n", strconv.IntSize, codecVersion(bi), cpuFeatures())
	logger.WithFields(logrus.Fields{
		"level":  level,
		"params": params.String(),
	}).Debug("compression parameters")

	b := zbench.New(zbench.Config{
		Level:      level,
		Params:     params,
		Iterations: opts.Iterations,
		Slice:      opts.slice,
		Out:        stderr,
		Logger:     logger,
	})
	var results []zbench.Result
	if len(files) == 0 {
		results, err = b.BenchSample(opts.Scenario, int(size), float64(opts.Compressibility)/100)
	} else {
		results, err = b.BenchFiles(opts.Scenario, files)
	}
	for i := range results {
		if results[i].Status == zbench.StatusFailed {
			logger.WithField("scenario", results[i].ID).Error(results[i].Reason)
		}
	}
	if err != nil {
		return err
	}
	if opts.JSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		err := enc.Encode(&report{
			RunID:   uuid.New().String(),
			Level:   level,
			Params:  params,
			Results: results,
		})
		if err != nil {
			return err
		}
	}
	if opts.Pause {
		fmt.Fprintf(stderr, "press enter...\n")
		bufio.NewReader(stdin).ReadString('\n')
	}
	return nil
}

func main() {
	cmd := newCommand(os.Stdin, os.Stdout, os.Stderr)
	err := cmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
	}
	os.Exit(exitCode(err))
}
