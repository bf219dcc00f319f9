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

// Package compr configures the codec under test
// and owns the codec contexts a benchmark session
// creates. All contexts of a session are built from
// the same level and parameters, so that every
// entry point is measured under the same tuning.
package compr

import (
	"fmt"
	"strings"

	"github.com/SnellerInc/zbench/ints"

	"github.com/klauspost/compress/zstd"
)

// Strategy is a match-finding strategy,
// numbered as in libzstd.
type Strategy int

const (
	StratFast Strategy = iota + 1
	StratDFast
	StratGreedy
	StratLazy
	StratLazy2
	StratBTLazy2
	StratBTOpt
	StratBTUltra
	StratBTUltra2
)

var stratNames = [...]string{"", "fast", "dfast", "greedy", "lazy", "lazy2", "btlazy2", "btopt", "btultra", "btultra2"}

func (s Strategy) String() string {
	if s > 0 && int(s) < len(stratNames) {
		return stratNames[s]
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// Params are the advanced compression parameters.
type Params struct {
	WindowLog    int      `json:"windowLog"`
	ChainLog     int      `json:"chainLog"`
	HashLog      int      `json:"hashLog"`
	SearchLog    int      `json:"searchLog"`
	MinMatch     int      `json:"minMatch"`
	TargetLength int      `json:"targetLength"`
	Strategy     Strategy `json:"strategy"`
}

func (p Params) String() string {
	return fmt.Sprintf("wlog=%d,clog=%d,hlog=%d,slog=%d,mml=%d,tlen=%d,strat=%d",
		p.WindowLog, p.ChainLog, p.HashLog, p.SearchLog, p.MinMatch, p.TargetLength, int(p.Strategy))
}

const (
	MinLevel     = 1
	MaxLevel     = 22
	DefaultLevel = 1
	minWindowLog = 10
	maxWindowLog = 29
)

// default parameters by level, for inputs of unknown size
var levelParams = [MaxLevel + 1]Params{
	{19, 12, 13, 1, 6, 1, StratFast},
	{19, 13, 14, 1, 7, 0, StratFast},
	{20, 15, 16, 1, 6, 0, StratFast},
	{21, 16, 17, 1, 5, 0, StratDFast},
	{21, 18, 18, 1, 5, 0, StratDFast},
	{21, 18, 19, 3, 5, 2, StratGreedy},
	{21, 18, 19, 3, 5, 4, StratLazy},
	{21, 19, 20, 4, 5, 8, StratLazy},
	{21, 19, 20, 4, 5, 16, StratLazy2},
	{22, 20, 21, 4, 5, 16, StratLazy2},
	{22, 21, 22, 5, 5, 16, StratLazy2},
	{22, 21, 22, 6, 5, 16, StratLazy2},
	{22, 22, 23, 6, 5, 32, StratLazy2},
	{22, 22, 22, 4, 5, 32, StratBTLazy2},
	{22, 22, 23, 5, 5, 32, StratBTLazy2},
	{22, 23, 23, 6, 5, 32, StratBTLazy2},
	{22, 22, 22, 5, 5, 48, StratBTOpt},
	{23, 23, 22, 5, 4, 64, StratBTOpt},
	{23, 23, 22, 6, 3, 64, StratBTUltra},
	{23, 24, 22, 7, 3, 256, StratBTUltra2},
	{25, 25, 23, 7, 3, 256, StratBTUltra2},
	{26, 26, 24, 7, 3, 512, StratBTUltra2},
	{27, 27, 25, 9, 3, 999, StratBTUltra2},
}

// LevelParams returns the default parameters for a
// compression level. Levels outside [1, 22] are clamped;
// level 0 means DefaultLevel.
func LevelParams(level int) Params {
	if level == 0 {
		level = DefaultLevel
	}
	return levelParams[ints.Clamp(level, MinLevel, MaxLevel)]
}

// Set assigns a parameter by its long or short name.
func (p *Params) Set(name string, v int) error {
	switch strings.ToLower(name) {
	case "windowlog", "wlog":
		p.WindowLog = v
	case "chainlog", "clog":
		p.ChainLog = v
	case "hashlog", "hlog":
		p.HashLog = v
	case "searchlog", "slog":
		p.SearchLog = v
	case "minmatch", "mml":
		p.MinMatch = v
	case "targetlength", "tlen":
		p.TargetLength = v
	case "strategy", "strat":
		p.Strategy = Strategy(v)
	default:
		return fmt.Errorf("compr: unknown parameter %q", name)
	}
	return nil
}

// encoderLevel picks the encoder speed for a level.
// A strategy that differs from the level's default
// takes precedence.
func encoderLevel(level int, p Params) zstd.EncoderLevel {
	if p.Strategy == 0 || p.Strategy == LevelParams(level).Strategy {
		return zstd.EncoderLevelFromZstd(level)
	}
	switch {
	case p.Strategy <= StratFast:
		return zstd.SpeedFastest
	case p.Strategy <= StratGreedy:
		return zstd.SpeedDefault
	case p.Strategy <= StratBTLazy2:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}

// Ignored reports the parameters that differ from the
// level defaults but have no encoder equivalent.
func (p Params) Ignored(level int) []string {
	def := LevelParams(level)
	var out []string
	if p.SearchLog != def.SearchLog {
		out = append(out, "searchLog")
	}
	if p.MinMatch != def.MinMatch {
		out = append(out, "minMatch")
	}
	if p.TargetLength != def.TargetLength {
		out = append(out, "targetLength")
	}
	return out
}

// EncoderOptions returns the encoder options for a level
// and parameters. Frames carry the content size when it is
// known and no checksum.
func EncoderOptions(level int, p Params, workers int) []zstd.EOption {
	opts := []zstd.EOption{
		zstd.WithEncoderLevel(encoderLevel(level, p)),
		zstd.WithEncoderConcurrency(ints.Max(workers, 1)),
		zstd.WithEncoderCRC(false),
	}
	if p.WindowLog != 0 {
		wlog := ints.Clamp(p.WindowLog, minWindowLog, maxWindowLog)
		opts = append(opts, zstd.WithWindowSize(1<<wlog))
	}
	if (p.HashLog != 0 && p.HashLog < 16) || (p.ChainLog != 0 && p.ChainLog < 16) {
		opts = append(opts, zstd.WithLowerEncoderMem(true))
	}
	return opts
}

// Bound returns the largest compressed size of n
// input bytes, as libzstd's ZSTD_compressBound.
func Bound(n int) int {
	b := n + n>>8
	if n < 128<<10 {
		b += (128<<10 - n) >> 11
	}
	return b
}
