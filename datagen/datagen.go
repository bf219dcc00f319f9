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

// Package datagen generates deterministic synthetic
// samples with a tunable amount of redundancy.
//
// The output alternates between runs of literal
// bytes drawn from a skewed alphabet and copies
// of earlier output within the last 32KiB, so
// that both the match finder and the entropy
// coder of a compressor have work to do.
package datagen

import (
	"encoding/binary"

	"github.com/dchest/siphash"
)

const (
	litTableSize = 1 << 13
	matchWindow  = 1 << 15
)

// source is a counter-mode random source keyed
// by the seed. Each siphash output is split into
// four 16-bit draws.
type source struct {
	k0, k1 uint64
	ctr    uint64
	buf    [8]byte
	word   uint64
	left   int
}

func newSource(seed uint64) *source {
	return &source{k0: seed, k1: seed ^ 0x9e3779b97f4a7c15}
}

func (s *source) next() uint32 {
	if s.left == 0 {
		binary.LittleEndian.PutUint64(s.buf[:], s.ctr)
		s.ctr++
		s.word = siphash.Hash(s.k0, s.k1, s.buf[:])
		s.left = 4
	}
	v := uint32(s.word & 0xffff)
	s.word >>= 16
	s.left--
	return v
}

// length draws a run length: mostly short
// runs, with an occasional long one.
func (s *source) length() int {
	r := s.next()
	if (r>>7)&3 != 0 {
		return int(s.next() % 15)
	}
	return int(s.next()%510) + 15
}

// literalTable builds a lookup table in which
// earlier characters are more frequent than
// later ones; litProba controls the skew.
func literalTable(litProba float64) *[litTableSize]byte {
	var lt [litTableSize]byte
	first, last, c := byte('('), byte('}'), byte('0')
	if litProba <= 0 {
		first, last, c = 0, 255, 0
		litProba = 0
	}
	for u := 0; u < litTableSize; {
		weight := int(float64(litTableSize-u)*litProba) + 1
		end := u + weight
		if end > litTableSize {
			end = litTableSize
		}
		for u < end {
			lt[u] = c
			u++
		}
		if c == last {
			c = first
		} else {
			c++
		}
	}
	return &lt
}

// Fill overwrites dst with synthetic data.
//
// compressibility is the probability (0 to 1) that the
// next run is a copy of earlier data rather than fresh
// literals. litProba controls how skewed the literal
// alphabet is; values <= 0 pick a default derived
// from compressibility. The output depends only on
// the arguments: equal arguments yield equal bytes.
func Fill(dst []byte, compressibility, litProba float64, seed uint64) {
	if len(dst) == 0 {
		return
	}
	if litProba <= 0 {
		litProba = compressibility / 4.5
	}
	lt := literalTable(litProba)
	src := newSource(seed)
	matchThreshold := uint32(compressibility * 65536)

	dst[0] = lt[src.next()%litTableSize]
	pos := 1
	prevOffset := 1
	for pos < len(dst) {
		if src.next() < matchThreshold {
			end := pos + src.length() + 4
			if end > len(dst) {
				end = len(dst)
			}
			offset := prevOffset
			if src.next()&15 != 2 {
				offset = int(src.next()%(matchWindow-1)) + 1
				if offset > pos {
					offset = pos
				}
			}
			for ; pos < end; pos++ {
				dst[pos] = dst[pos-offset]
			}
			prevOffset = offset
			continue
		}
		end := pos + src.length()
		if end > len(dst) {
			end = len(dst)
		}
		for ; pos < end; pos++ {
			dst[pos] = lt[src.next()%litTableSize]
		}
	}
}

// Generate returns a new buffer of the given size
// filled by Fill.
func Generate(size int, compressibility, litProba float64, seed uint64) []byte {
	buf := make([]byte, size)
	Fill(buf, compressibility, litProba, seed)
	return buf
}
