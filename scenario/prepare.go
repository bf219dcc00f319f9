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
	"fmt"

	"github.com/SnellerInc/zbench/compr"
	"github.com/SnellerInc/zbench/ints"
	"github.com/SnellerInc/zbench/zstdfmt"
)

// Preparation turns a sample into the input of a call.
type Preparation uint8

const (
	// Copy hands the sample to the call unchanged.
	Copy Preparation = iota
	// Compress hands the call a frame holding
	// the compressed sample.
	Compress
	// ShortDst is Copy with a destination one byte
	// smaller than the worst-case bound.
	ShortDst
	// FirstBlockLiterals hands the call the first
	// compressed block of the frame, starting at its
	// literals section.
	FirstBlockLiterals
	// FirstBlockSequences hands the call the
	// sequences section of the first compressed block.
	FirstBlockSequences
)

var prepNames = [...]string{"copy", "compress", "short-dst", "first-block-literals", "first-block-sequences"}

func (p Preparation) String() string {
	if int(p) < len(prepNames) {
		return prepNames[p]
	}
	return fmt.Sprintf("preparation(%d)", int(p))
}

// Prepare builds the input of a call from src.
// dst is the preparation buffer and must hold at least
// compr.Bound(len(src)) bytes; the returned data may
// alias it. level is the compression level used
// by preparations that compress.
//
// An error wrapping ErrSkip means the scenario
// does not apply to src.
func (p Preparation) Prepare(dst, src []byte, level int) (Prepared, error) {
	switch p {
	case Copy, ShortDst:
		if len(src) == 0 {
			return Prepared{}, skip("empty input")
		}
		if len(dst) < len(src) {
			return Prepared{}, fmt.Errorf("scenario.Prepare: buffer of %d bytes cannot hold %d", len(dst), len(src))
		}
		n := copy(dst, src)
		pr := Prepared{Data: dst[:n], OrigSize: n}
		if p == ShortDst {
			pr.DstCapacity = compr.Bound(n) - 1
		}
		return pr, nil
	case Compress:
		if len(src) == 0 {
			return Prepared{}, skip("empty input")
		}
		frame, err := compressInto(dst, src, level)
		if err != nil {
			return Prepared{}, err
		}
		return Prepared{Data: frame, OrigSize: len(src), ExpectSize: len(src)}, nil
	case FirstBlockLiterals, FirstBlockSequences:
		if len(src) == 0 {
			return Prepared{}, skip("empty input")
		}
		frame, err := compressInto(dst, src, level)
		if err != nil {
			return Prepared{}, err
		}
		data, err := firstBlock(frame, p == FirstBlockSequences)
		if err != nil {
			return Prepared{}, err
		}
		return Prepared{Data: data, OrigSize: ints.Min(len(src), zstdfmt.BlockSizeMax)}, nil
	}
	return Prepared{}, fmt.Errorf("scenario.Prepare: unknown preparation %s", p)
}

func compressInto(dst, src []byte, level int) ([]byte, error) {
	frame, err := compr.CompressLevel(dst[:0], src, level)
	if err != nil {
		return nil, fmt.Errorf("scenario.Prepare: %w", err)
	}
	if len(frame) <= zstdfmt.FrameHeaderPrefix {
		return nil, fmt.Errorf("scenario.Prepare: compressed frame of %d bytes is too short", len(frame))
	}
	return frame, nil
}

// firstBlock returns the part of frame that the
// block-level calls expect: everything after the
// first block header, or, for sequences, the rest
// of the first block after its literals section.
func firstBlock(frame []byte, sequences bool) ([]byte, error) {
	bh, content, err := zstdfmt.FirstBlock(frame)
	if err != nil {
		return nil, fmt.Errorf("scenario.Prepare: %w", err)
	}
	if bh.Type != zstdfmt.BlockCompressed {
		if sequences {
			return nil, skip("no compressed sequences")
		}
		return nil, skip("no compressed literals")
	}
	if !sequences {
		fh, err := zstdfmt.FrameHeaderSize(frame)
		if err != nil {
			return nil, fmt.Errorf("scenario.Prepare: %w", err)
		}
		return frame[fh+zstdfmt.BlockHeaderSize:], nil
	}
	var lits zstdfmt.LiteralsDecoder
	n, _, err := lits.Decode(content, make([]byte, zstdfmt.BlockSizeMax))
	if err != nil {
		return nil, fmt.Errorf("scenario.Prepare: first block literals: %w", err)
	}
	return content[n:], nil
}
