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

package zstdfmt

import (
	"fmt"
)

const minAccuracyLog = 5

// bitReader reads little-endian bit fields
// starting from the least significant bit
// of the first byte. Reads past the end of
// the input yield zero bits; callers check
// overrun once they are done.
type bitReader struct {
	src []byte
	pos int
}

// peek returns the next n bits, n <= 32.
func (b *bitReader) peek(n uint) uint32 {
	idx := b.pos >> 3
	var w uint64
	for i := 0; i < 5 && idx+i < len(b.src); i++ {
		w |= uint64(b.src[idx+i]) << (8 * i)
	}
	w >>= uint(b.pos & 7)
	return uint32(w & (1<<n - 1))
}

func (b *bitReader) skip(n uint) { b.pos += int(n) }

func (b *bitReader) read(n uint) uint32 {
	v := b.peek(n)
	b.skip(n)
	return v
}

func (b *bitReader) overrun() bool { return b.pos > 8*len(b.src) }

// bytes returns the number of whole bytes consumed.
func (b *bitReader) bytes() int { return (b.pos + 7) >> 3 }

// readNCount decodes an FSE table description
// (normalized symbol probabilities) into norm.
// It returns the number of symbols described,
// the accuracy log and the number of bytes consumed.
func readNCount(src []byte, maxSymbol, maxLog int, norm []int16) (symbols, tableLog, n int, err error) {
	if len(src) < 1 {
		return 0, 0, 0, fmt.Errorf("zstdfmt: empty FSE table description: %w", ErrCorrupt)
	}
	br := bitReader{src: src}
	tableLog = int(br.read(4)) + minAccuracyLog
	if tableLog > maxLog {
		return 0, 0, 0, fmt.Errorf("zstdfmt: FSE accuracy log %d exceeds %d: %w", tableLog, maxLog, ErrCorrupt)
	}
	remaining := (1 << tableLog) + 1
	threshold := 1 << tableLog
	nbBits := uint(tableLog + 1)
	symbol := 0
	prev0 := false
	for remaining > 1 && symbol <= maxSymbol {
		if prev0 {
			for {
				r := int(br.read(2))
				for i := 0; i < r && symbol <= maxSymbol; i++ {
					norm[symbol] = 0
					symbol++
				}
				if r != 3 {
					break
				}
				if br.overrun() {
					return 0, 0, 0, fmt.Errorf("zstdfmt: FSE table description overruns input: %w", ErrCorrupt)
				}
			}
			prev0 = false
			if symbol > maxSymbol {
				break
			}
		}
		max := (2*threshold - 1) - remaining
		var count int
		if low := int(br.peek(nbBits - 1)); low < max {
			count = low
			br.skip(nbBits - 1)
		} else {
			count = int(br.peek(nbBits))
			if count >= threshold {
				count -= max
			}
			br.skip(nbBits)
		}
		count-- // -1 is a "less than one" probability
		if count < 0 {
			remaining += count
		} else {
			remaining -= count
		}
		norm[symbol] = int16(count)
		symbol++
		prev0 = count == 0
		for remaining < threshold && nbBits > 1 {
			nbBits--
			threshold >>= 1
		}
	}
	if remaining != 1 || symbol > maxSymbol+1 || br.overrun() {
		return 0, 0, 0, fmt.Errorf("zstdfmt: FSE table description does not sum to %d: %w", 1<<tableLog, ErrCorrupt)
	}
	return symbol, tableLog, br.bytes(), nil
}
