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
	"io"

	"github.com/klauspost/compress/huff0"
)

// LiteralsType is the encoding of a literals section,
// stored in the low two bits of its first byte.
type LiteralsType uint8

const (
	LiteralsRaw LiteralsType = iota
	LiteralsRLE
	LiteralsCompressed
	LiteralsTreeless
)

func (l LiteralsType) String() string {
	switch l {
	case LiteralsRaw:
		return "raw"
	case LiteralsRLE:
		return "rle"
	case LiteralsCompressed:
		return "compressed"
	default:
		return "treeless"
	}
}

// LiteralsHeader describes the header of a literals section.
type LiteralsHeader struct {
	Type LiteralsType
	// Layout is the two-bit size format field.
	Layout int
	// HeaderSize is the number of bytes
	// occupied by the header itself.
	HeaderSize int
	// RegeneratedSize is the number of literal
	// bytes the section decodes to.
	RegeneratedSize int
	// CompressedSize is the number of bytes after
	// the header holding the Huffman table (if any)
	// and the Huffman streams.
	CompressedSize int
	// Streams is 1 or 4 for Huffman-coded literals.
	Streams int
}

// DecodeLiteralsHeader decodes the header of a
// Huffman-compressed literals section. Sections of
// any other type are not decoded: the returned header
// only has Type set and HeaderSize is zero.
//
// src must hold at least MinLiteralsSize bytes,
// and at least 5 bytes when the section is compressed
// so that the largest header layout can be read.
func DecodeLiteralsHeader(src []byte) (LiteralsHeader, error) {
	if len(src) < MinLiteralsSize {
		return LiteralsHeader{}, fmt.Errorf("zstdfmt.DecodeLiteralsHeader: %d bytes: %w", len(src), ErrCorrupt)
	}
	typ := LiteralsType(src[0] & 3)
	if typ != LiteralsCompressed {
		return LiteralsHeader{Type: typ}, nil
	}
	return huffmanHeader(src, typ)
}

func huffmanHeader(src []byte, typ LiteralsType) (LiteralsHeader, error) {
	if len(src) < 5 {
		return LiteralsHeader{}, fmt.Errorf("zstdfmt: %s literals header needs 5 bytes, have %d: %w", typ, len(src), ErrCorrupt)
	}
	layout := int(src[0]>>2) & 3
	lhc := binary.LittleEndian.Uint32(src)
	h := LiteralsHeader{Type: typ, Layout: layout, Streams: 4}
	switch layout {
	case 0, 1:
		// 2 - 2 - 10 - 10
		h.HeaderSize = 3
		h.RegeneratedSize = int((lhc >> 4) & 0x3ff)
		h.CompressedSize = int((lhc >> 14) & 0x3ff)
		if layout == 0 {
			h.Streams = 1
		}
	case 2:
		// 2 - 2 - 14 - 14
		h.HeaderSize = 4
		h.RegeneratedSize = int((lhc >> 4) & 0x3fff)
		h.CompressedSize = int(lhc >> 18)
	case 3:
		// 2 - 2 - 18 - 18
		h.HeaderSize = 5
		h.RegeneratedSize = int((lhc >> 4) & 0x3ffff)
		h.CompressedSize = int(lhc>>22) + int(src[4])<<10
	}
	if h.RegeneratedSize > BlockSizeMax {
		return h, fmt.Errorf("zstdfmt: literals size %d exceeds %d: %w", h.RegeneratedSize, BlockSizeMax, ErrCorrupt)
	}
	if h.CompressedSize+h.HeaderSize > len(src) {
		return h, fmt.Errorf("zstdfmt: compressed literals %d+%d exceed input %d: %w", h.HeaderSize, h.CompressedSize, len(src), ErrCorrupt)
	}
	return h, nil
}

// rawHeaderSize is the header size of raw
// and RLE sections, indexed by size format.
var rawHeaderSize = [4]int{1, 2, 1, 3}

// rawHeader decodes the header of a raw or RLE literals section.
func rawHeader(src []byte, typ LiteralsType) LiteralsHeader {
	h := LiteralsHeader{Type: typ, Layout: int(src[0]>>2) & 3}
	switch h.Layout {
	case 0, 2:
		h.HeaderSize = 1
		h.RegeneratedSize = int(src[0] >> 3)
	case 1:
		h.HeaderSize = 2
		h.RegeneratedSize = int(binary.LittleEndian.Uint16(src) >> 4)
	case 3:
		h.HeaderSize = 3
		h.RegeneratedSize = int((uint32(src[0]) | uint32(src[1])<<8 | uint32(src[2])<<16) >> 4)
	}
	if typ == LiteralsRaw {
		h.CompressedSize = h.RegeneratedSize
	} else {
		h.CompressedSize = 1
	}
	return h
}

// LiteralsDecoder decodes literals sections.
// It keeps the most recent Huffman table so that
// treeless sections can reuse it, the way a frame
// decoder carries the table from block to block.
//
// The zero value is ready to use.
// A LiteralsDecoder is not safe for concurrent use.
type LiteralsDecoder struct {
	scratch  *huff0.Scratch
	hasTable bool
}

// Reset forgets any Huffman table
// retained from a previous section.
func (d *LiteralsDecoder) Reset() {
	d.hasTable = false
}

// ReadHeader decodes the header of a compressed
// literals section and builds its Huffman table.
// It returns the header and the number of bytes
// of table description that were consumed.
//
// Sections that are not Huffman-compressed are
// ignored, as with DecodeLiteralsHeader.
func (d *LiteralsDecoder) ReadHeader(src []byte) (LiteralsHeader, int, error) {
	h, err := DecodeLiteralsHeader(src)
	if err != nil || h.Type != LiteralsCompressed {
		return h, 0, err
	}
	payload := src[h.HeaderSize : h.HeaderSize+h.CompressedSize]
	rest, err := d.readTable(payload, h.RegeneratedSize)
	if err != nil {
		return h, 0, err
	}
	return h, len(payload) - len(rest), nil
}

func (d *LiteralsDecoder) readTable(in []byte, regen int) ([]byte, error) {
	if d.scratch == nil {
		d.scratch = &huff0.Scratch{}
	}
	d.scratch.MaxDecodedSize = BlockSizeMax
	s, rest, err := huff0.ReadTable(in, d.scratch)
	if err != nil {
		d.hasTable = false
		return nil, fmt.Errorf("zstdfmt: literals table (%d bytes, %d literals): %w: %v", len(in), regen, ErrTable, err)
	}
	d.scratch = s
	d.hasTable = true
	return rest, nil
}

// Decode decodes the literals section at the start of src into dst.
// It returns the number of bytes of src the section occupied and the
// decoded literals, which alias dst.
//
// dst must be large enough to hold the regenerated literals;
// otherwise io.ErrShortBuffer is returned.
func (d *LiteralsDecoder) Decode(src, dst []byte) (int, []byte, error) {
	if len(src) < 1 {
		return 0, nil, fmt.Errorf("zstdfmt.LiteralsDecoder.Decode: empty input: %w", ErrCorrupt)
	}
	typ := LiteralsType(src[0] & 3)
	switch typ {
	case LiteralsRaw, LiteralsRLE:
		if need := rawHeaderSize[(src[0]>>2)&3]; len(src) < need {
			return 0, nil, fmt.Errorf("zstdfmt.LiteralsDecoder.Decode: %s header needs %d bytes, have %d: %w", typ, need, len(src), ErrCorrupt)
		}
		h := rawHeader(src, typ)
		end := h.HeaderSize + h.CompressedSize
		if end > len(src) {
			return 0, nil, fmt.Errorf("zstdfmt.LiteralsDecoder.Decode: %s literals %d+%d exceed input %d: %w",
				typ, h.HeaderSize, h.CompressedSize, len(src), ErrCorrupt)
		}
		if h.RegeneratedSize > len(dst) {
			return 0, nil, fmt.Errorf("zstdfmt.LiteralsDecoder.Decode: %d literals: %w", h.RegeneratedSize, io.ErrShortBuffer)
		}
		out := dst[:h.RegeneratedSize]
		if typ == LiteralsRaw {
			copy(out, src[h.HeaderSize:end])
		} else {
			c := src[h.HeaderSize]
			for i := range out {
				out[i] = c
			}
		}
		return end, out, nil
	}

	h, err := huffmanHeader(src, typ)
	if err != nil {
		return 0, nil, err
	}
	if h.RegeneratedSize > len(dst) {
		return 0, nil, fmt.Errorf("zstdfmt.LiteralsDecoder.Decode: %d literals: %w", h.RegeneratedSize, io.ErrShortBuffer)
	}
	end := h.HeaderSize + h.CompressedSize
	payload := src[h.HeaderSize:end]
	if typ == LiteralsCompressed {
		payload, err = d.readTable(payload, h.RegeneratedSize)
		if err != nil {
			return 0, nil, err
		}
	} else if !d.hasTable {
		return 0, nil, fmt.Errorf("zstdfmt.LiteralsDecoder.Decode: treeless literals without a prior table: %w", ErrCorrupt)
	}
	out := dst[:0:h.RegeneratedSize]
	dec := d.scratch.Decoder()
	if h.Streams == 1 {
		out, err = dec.Decompress1X(out, payload)
	} else {
		out, err = dec.Decompress4X(out, payload)
	}
	if err != nil {
		return 0, nil, fmt.Errorf("zstdfmt.LiteralsDecoder.Decode: %d streams: %w: %v", h.Streams, ErrCorrupt, err)
	}
	if len(out) != h.RegeneratedSize {
		return 0, nil, fmt.Errorf("zstdfmt.LiteralsDecoder.Decode: decoded %d literals, header says %d: %w",
			len(out), h.RegeneratedSize, ErrCorrupt)
	}
	return end, out, nil
}
