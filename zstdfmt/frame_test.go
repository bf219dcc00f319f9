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
	"errors"
	"testing"

	"github.com/klauspost/compress/zstd"

	"github.com/SnellerInc/zbench/datagen"
)

var magic = []byte{0x28, 0xb5, 0x2f, 0xfd}

func TestFrameHeaderSize(t *testing.T) {
	tcs := []struct {
		fhd  byte
		want int
	}{
		{0x00, 6},  // window descriptor only
		{0x20, 6},  // single segment, 1-byte content size
		{0x01, 7},  // 1-byte dictionary id
		{0x03, 10}, // 4-byte dictionary id
		{0x40, 8},  // 2-byte content size
		{0x80, 10}, // 4-byte content size
		{0xc0, 14}, // 8-byte content size
		{0xe3, 17}, // single segment, 4-byte dictionary id, 8-byte content size
		{0x04, 6},  // checksum flag does not change the header
	}
	for _, tc := range tcs {
		src := append(append([]byte{}, magic...), tc.fhd, 0, 0, 0)
		got, err := FrameHeaderSize(src)
		if err != nil {
			t.Errorf("fhd %#x: %s", tc.fhd, err)
			continue
		}
		if got != tc.want {
			t.Errorf("fhd %#x: got %d, want %d", tc.fhd, got, tc.want)
		}
	}
}

func TestFrameHeaderSizeErrors(t *testing.T) {
	if _, err := FrameHeaderSize(magic); !errors.Is(err, ErrShortInput) {
		t.Errorf("got %v, want ErrShortInput", err)
	}
	if _, err := FrameHeaderSize([]byte{1, 2, 3, 4, 5}); !errors.Is(err, ErrCorrupt) {
		t.Errorf("got %v, want ErrCorrupt", err)
	}
	if _, err := FrameHeaderSize([]byte{0x50, 0x2a, 0x4d, 0x18, 0}); !errors.Is(err, ErrCorrupt) {
		t.Errorf("skippable frame: got %v, want ErrCorrupt", err)
	}
	if _, err := FrameHeaderSize(append(append([]byte{}, magic...), 0x08)); !errors.Is(err, ErrCorrupt) {
		t.Errorf("reserved bit: got %v, want ErrCorrupt", err)
	}
}

func blockHeader(last bool, typ BlockType, size int) []byte {
	v := uint32(size)<<3 | uint32(typ)<<1
	if last {
		v |= 1
	}
	return []byte{byte(v), byte(v >> 8), byte(v >> 16)}
}

func TestReadBlockHeader(t *testing.T) {
	tcs := []struct {
		src  []byte
		want BlockHeader
	}{
		{blockHeader(true, BlockRaw, 100), BlockHeader{Last: true, Type: BlockRaw, Size: 100, Regenerated: 100}},
		{blockHeader(false, BlockRLE, 5000), BlockHeader{Type: BlockRLE, Size: 1, Regenerated: 5000}},
		{blockHeader(false, BlockCompressed, BlockSizeMax), BlockHeader{Type: BlockCompressed, Size: BlockSizeMax}},
	}
	for _, tc := range tcs {
		got, err := ReadBlockHeader(tc.src)
		if err != nil {
			t.Fatal(err)
		}
		if got != tc.want {
			t.Errorf("got %+v, want %+v", got, tc.want)
		}
	}
	if _, err := ReadBlockHeader(blockHeader(false, BlockReserved, 10)); !errors.Is(err, ErrCorrupt) {
		t.Errorf("reserved: got %v, want ErrCorrupt", err)
	}
	if _, err := ReadBlockHeader(blockHeader(false, BlockCompressed, BlockSizeMax+1)); !errors.Is(err, ErrCorrupt) {
		t.Errorf("oversized: got %v, want ErrCorrupt", err)
	}
	if _, err := ReadBlockHeader([]byte{0}); !errors.Is(err, ErrShortInput) {
		t.Errorf("short: got %v, want ErrShortInput", err)
	}
}

func TestFirstBlockOverrun(t *testing.T) {
	src := append(append([]byte{}, magic...), 0x20, 10)
	src = append(src, blockHeader(true, BlockRaw, 10)...)
	src = append(src, 1, 2, 3)
	if _, _, err := FirstBlock(src); !errors.Is(err, ErrCorrupt) {
		t.Errorf("got %v, want ErrCorrupt", err)
	}
}

func encodeAll(t *testing.T, src []byte) []byte {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1), zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		t.Fatal(err)
	}
	defer enc.Close()
	return enc.EncodeAll(src, nil)
}

// TestEncodedFrame walks the first block of a frame
// produced by the encoder the benchmarks measure.
func TestEncodedFrame(t *testing.T) {
	src := datagen.Generate(256<<10, 0.5, 0, 0)
	frame := encodeAll(t, src)
	bh, block, err := FirstBlock(frame)
	if err != nil {
		t.Fatal(err)
	}
	if bh.Type != BlockCompressed {
		t.Fatalf("first block type %s", bh.Type)
	}
	if len(block) != bh.Size {
		t.Fatalf("block length %d, header says %d", len(block), bh.Size)
	}

	var d LiteralsDecoder
	h, tableSize, err := d.ReadHeader(block)
	if err != nil {
		t.Fatal(err)
	}
	if h.Type == LiteralsCompressed && (h.HeaderSize < 3 || tableSize == 0) {
		t.Errorf("unexpected header %+v (table %d bytes)", h, tableSize)
	}

	lits := make([]byte, BlockSizeMax)
	n, out, err := d.Decode(block, lits)
	if err != nil {
		t.Fatal(err)
	}
	if n <= 0 || n >= len(block) {
		t.Fatalf("literals section occupies %d of %d bytes", n, len(block))
	}
	t.Logf("literals: %s, %d bytes -> %d literals", h.Type, n, len(out))

	sh, err := DecodeSequencesHeader(block[n:])
	if err != nil {
		t.Fatal(err)
	}
	if sh.NumSequences == 0 {
		t.Error("expected sequences in a compressible block")
	}
	if sh.HeaderSize > len(block)-n {
		t.Errorf("sequences header %d exceeds section %d", sh.HeaderSize, len(block)-n)
	}
	t.Logf("sequences: %d, ll=%s of=%s ml=%s", sh.NumSequences,
		sh.LiteralLengths.Mode, sh.Offsets.Mode, sh.MatchLengths.Mode)
}

func TestEncodedFrameIncompressible(t *testing.T) {
	src := datagen.Generate(64<<10, 0, 0, 7)
	bh, _, err := FirstBlock(encodeAll(t, src))
	if err != nil {
		t.Fatal(err)
	}
	if bh.Type == BlockCompressed {
		t.Skip("encoder produced a compressed block for random input")
	}
	if bh.Type != BlockRaw {
		t.Errorf("got %s block, want raw", bh.Type)
	}
}
