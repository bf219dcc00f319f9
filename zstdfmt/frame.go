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

const (
	frameMagic         = 0xFD2FB528
	skippableMagicMask = 0xFFFFFFF0
	skippableMagic     = 0x184D2A50
)

// BlockType is the two-bit block type field
// of a block header.
type BlockType uint8

const (
	BlockRaw BlockType = iota
	BlockRLE
	BlockCompressed
	BlockReserved
)

func (b BlockType) String() string {
	switch b {
	case BlockRaw:
		return "raw"
	case BlockRLE:
		return "rle"
	case BlockCompressed:
		return "compressed"
	default:
		return "reserved"
	}
}

// FrameHeaderSize returns the size of the
// frame header at the start of src, including
// the magic number.
func FrameHeaderSize(src []byte) (int, error) {
	if len(src) < FrameHeaderPrefix {
		return 0, fmt.Errorf("zstdfmt.FrameHeaderSize: %d bytes: %w", len(src), ErrShortInput)
	}
	magic := binary.LittleEndian.Uint32(src)
	if magic != frameMagic {
		if magic&skippableMagicMask == skippableMagic {
			return 0, fmt.Errorf("zstdfmt.FrameHeaderSize: skippable frame: %w", ErrCorrupt)
		}
		return 0, fmt.Errorf("zstdfmt.FrameHeaderSize: bad magic %#x: %w", magic, ErrCorrupt)
	}
	fhd := src[4]
	if fhd&0x08 != 0 {
		return 0, fmt.Errorf("zstdfmt.FrameHeaderSize: reserved descriptor bit set: %w", ErrCorrupt)
	}
	single := fhd&0x20 != 0
	size := FrameHeaderPrefix
	if !single {
		size++ // window descriptor
	}
	size += [4]int{0, 1, 2, 4}[fhd&3]
	switch fhd >> 6 {
	case 0:
		if single {
			size++
		}
	case 1:
		size += 2
	case 2:
		size += 4
	case 3:
		size += 8
	}
	return size, nil
}

// BlockHeader is a decoded block header.
type BlockHeader struct {
	Last bool
	Type BlockType
	// Size is the number of bytes that follow
	// the header on the wire: the content size
	// for raw and compressed blocks, and 1 for
	// RLE blocks.
	Size int
	// Regenerated is the number of bytes the
	// block decodes to, when known from the
	// header alone (raw and RLE blocks).
	Regenerated int
}

// ReadBlockHeader decodes the block header at the start of src.
// It does not check that the block content is present.
func ReadBlockHeader(src []byte) (BlockHeader, error) {
	if len(src) < BlockHeaderSize {
		return BlockHeader{}, fmt.Errorf("zstdfmt.ReadBlockHeader: %d bytes: %w", len(src), ErrShortInput)
	}
	v := uint32(src[0]) | uint32(src[1])<<8 | uint32(src[2])<<16
	bh := BlockHeader{
		Last: v&1 != 0,
		Type: BlockType((v >> 1) & 3),
	}
	size := int(v >> 3)
	switch bh.Type {
	case BlockReserved:
		return bh, fmt.Errorf("zstdfmt.ReadBlockHeader: reserved block type: %w", ErrCorrupt)
	case BlockRLE:
		bh.Size = 1
		bh.Regenerated = size
	case BlockRaw:
		bh.Size = size
		bh.Regenerated = size
	default:
		bh.Size = size
	}
	if size > BlockSizeMax {
		return bh, fmt.Errorf("zstdfmt.ReadBlockHeader: block size %d exceeds %d: %w", size, BlockSizeMax, ErrCorrupt)
	}
	return bh, nil
}

// FirstBlock locates the first block of the frame in src.
// It returns the block header and the block content.
func FirstBlock(src []byte) (BlockHeader, []byte, error) {
	fh, err := FrameHeaderSize(src)
	if err != nil {
		return BlockHeader{}, nil, err
	}
	if fh > len(src) {
		return BlockHeader{}, nil, fmt.Errorf("zstdfmt.FirstBlock: frame header %d > len %d: %w", fh, len(src), ErrShortInput)
	}
	bh, err := ReadBlockHeader(src[fh:])
	if err != nil {
		return bh, nil, err
	}
	start := fh + BlockHeaderSize
	if bh.Size > len(src)-start {
		return bh, nil, fmt.Errorf("zstdfmt.FirstBlock: block size %d > remaining %d: %w", bh.Size, len(src)-start, ErrCorrupt)
	}
	return bh, src[start : start+bh.Size], nil
}
