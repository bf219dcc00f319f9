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

package scenario

import (
	"github.com/SnellerInc/zbench/compr"

	"golang.org/x/exp/slices"
)

// Scenario is one entry of the catalog.
type Scenario struct {
	ID   int
	Name string
	Prep Preparation
	Call Call
}

// Prepare runs the scenario's preparation.
func (s *Scenario) Prepare(dst, src []byte, level int) (Prepared, error) {
	return s.Prep.Prepare(dst, src, level)
}

// Run runs the scenario's timed call.
func (s *Scenario) Run(c *compr.Contexts, src, dst []byte) (int, error) {
	return s.Call.Run(c, src, dst)
}

// Catalog lists every scenario; an entry's
// position is its ID.
var Catalog = []Scenario{
	{0, "compress", Copy, OneShot{Dir: Compression}},
	{1, "decompress", Compress, OneShotFreshContext{Dir: Decompression}},
	{2, "compress_freshCCtx", Copy, OneShotFreshContext{Dir: Compression}},
	{3, "decompressDCtx", Compress, OneShot{Dir: Decompression}},
	{4, "compressContinue", Copy, ContinueContext{Dir: Compression}},
	{5, "compressContinue_extDict", Copy, ContinueExtDict{}},
	{6, "decompressContinue", Compress, ContinueContext{Dir: Decompression}},
	{7, "compressStream", Copy, Streaming{Dir: Compression, Mode: StreamPull, Workers: 1}},
	{8, "compressStream_freshCCtx", Copy, StreamingFreshContext{}},
	{9, "decompressStream", Compress, Streaming{Dir: Decompression}},
	{10, "compress2", Copy, OneShot{Dir: Compression, Stream: true, Workers: 1}},
	{11, "compressStream2, end", Copy, Streaming{Dir: Compression, Mode: StreamEnd, Workers: 1}},
	{12, "compressStream2, end & short", ShortDst, Streaming{Dir: Compression, Mode: StreamEnd, Workers: 1}},
	{13, "compressStream2, continue", Copy, Streaming{Dir: Compression, Mode: StreamContinue, Workers: 1}},
	{14, "compressStream2, -T2, continue", Copy, Streaming{Dir: Compression, Mode: StreamContinue, Workers: 2}},
	{15, "compressStream2, -T2, end", Copy, OneShot{Dir: Compression, Stream: true, Workers: 2}},
	{16, "decodeLiteralsHeader (1st block)", FirstBlockLiterals, BlockLiteralsHeader{}},
	{17, "decodeLiteralsBlock (1st block)", FirstBlockLiterals, BlockLiteralsBody{}},
	{18, "decodeSeqHeaders (1st block)", FirstBlockSequences, BlockSequenceHeader{}},
}

// Lookup returns the scenario with the given ID.
func Lookup(id int) (Scenario, bool) {
	if id < 0 || id >= len(Catalog) {
		return Scenario{}, false
	}
	return Catalog[id], true
}

// ByName returns the scenario with the given name.
func ByName(name string) (Scenario, bool) {
	i := slices.IndexFunc(Catalog, func(s Scenario) bool { return s.Name == name })
	if i < 0 {
		return Scenario{}, false
	}
	return Catalog[i], true
}
