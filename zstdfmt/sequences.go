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
	"encoding/binary"
	"fmt"
)

// SymbolMode is the compression mode of one of the
// three symbol types of a sequences section.
type SymbolMode uint8

const (
	ModePredefined SymbolMode = iota
	ModeRLE
	ModeFSE
	ModeRepeat
)

func (m SymbolMode) String() string {
	switch m {
	case ModePredefined:
		return "predefined"
	case ModeRLE:
		return "rle"
	case ModeFSE:
		return "fse"
	default:
		return "repeat"
	}
}

// SymbolTable describes how one symbol type is coded.
type SymbolTable struct {
	Mode SymbolMode
	// Symbol is the single symbol of an RLE table.
	Symbol uint8
	// AccuracyLog and Symbols are set for FSE tables.
	AccuracyLog int
	Symbols     int
}

// SequencesHeader is the decoded header
// of a sequences section.
type SequencesHeader struct {
	NumSequences   int
	LiteralLengths SymbolTable
	Offsets        SymbolTable
	MatchLengths   SymbolTable
	// HeaderSize is the number of bytes occupied
	// by the sequence count, the modes byte and
	// the table descriptions.
	HeaderSize int
}

var seqKinds = [3]struct {
	name      string
	maxSymbol int
	maxLog    int
}{
	{"literal lengths", 35, 9},
	{"offsets", 31, 8},
	{"match lengths", 52, 9},
}

// DecodeSequencesHeader decodes the header of the sequences
// section at the start of src, including any FSE table
// descriptions. Repeat mode is rejected, since there is no
// previous block to inherit a table from.
func DecodeSequencesHeader(src []byte) (SequencesHeader, error) {
	var h SequencesHeader
	if len(src) < 1 {
		return h, fmt.Errorf("zstdfmt.DecodeSequencesHeader: empty input: %w", ErrCorrupt)
	}
	ip := 1
	switch b0 := int(src[0]); {
	case b0 == 0:
		if len(src) != 1 {
			return h, fmt.Errorf("zstdfmt.DecodeSequencesHeader: %d trailing bytes after empty sequences: %w", len(src)-1, ErrCorrupt)
		}
		h.HeaderSize = 1
		return h, nil
	case b0 < 128:
		h.NumSequences = b0
	case b0 < 255:
		if len(src) < 2 {
			return h, fmt.Errorf("zstdfmt.DecodeSequencesHeader: truncated sequence count: %w", ErrCorrupt)
		}
		h.NumSequences = (b0-128)<<8 + int(src[1])
		ip = 2
	default:
		if len(src) < 3 {
			return h, fmt.Errorf("zstdfmt.DecodeSequencesHeader: truncated sequence count: %w", ErrCorrupt)
		}
		h.NumSequences = int(binary.LittleEndian.Uint16(src[1:])) + 0x7f00
		ip = 3
	}
	if ip >= len(src) {
		return h, fmt.Errorf("zstdfmt.DecodeSequencesHeader: missing modes byte: %w", ErrCorrupt)
	}
	modes := src[ip]
	ip++
	if modes&3 != 0 {
		return h, fmt.Errorf("zstdfmt.DecodeSequencesHeader: reserved mode bits %#x: %w", modes&3, ErrCorrupt)
	}
	tables := [3]*SymbolTable{&h.LiteralLengths, &h.Offsets, &h.MatchLengths}
	var norm [53]int16
	for i, t := range tables {
		kind := &seqKinds[i]
		t.Mode = SymbolMode(modes>>(6-2*i)) & 3
		switch t.Mode {
		case ModeRLE:
			if ip >= len(src) {
				return h, fmt.Errorf("zstdfmt.DecodeSequencesHeader: %s: missing RLE symbol: %w", kind.name, ErrCorrupt)
			}
			if int(src[ip]) > kind.maxSymbol {
				return h, fmt.Errorf("zstdfmt.DecodeSequencesHeader: %s: RLE symbol %d > %d: %w", kind.name, src[ip], kind.maxSymbol, ErrCorrupt)
			}
			t.Symbol = src[ip]
			ip++
		case ModeFSE:
			syms, log, n, err := readNCount(src[ip:], kind.maxSymbol, kind.maxLog, norm[:kind.maxSymbol+1])
			if err != nil {
				return h, fmt.Errorf("zstdfmt.DecodeSequencesHeader: %s: %w", kind.name, err)
			}
			t.Symbols = syms
			t.AccuracyLog = log
			ip += n
		case ModeRepeat:
			return h, fmt.Errorf("zstdfmt.DecodeSequencesHeader: %s: repeat mode without a previous table: %w", kind.name, ErrCorrupt)
		}
	}
	if ip > len(src) {
		return h, fmt.Errorf("zstdfmt.DecodeSequencesHeader: header size %d exceeds input %d: %w", ip, len(src), ErrCorrupt)
	}
	h.HeaderSize = ip
	return h, nil
}
