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

// Package zstdfmt parses the parts of the Zstandard
// wire format (RFC 8878) that the benchmarks time
// directly: frame and block headers, the literals
// section and the sequences section header.
//
// Nothing in this package allocates on the decoding
// path except the Huffman tables owned by a LiteralsDecoder.
package zstdfmt

import (
	"errors"
)

const (
	// BlockSizeMax is the largest number of bytes
	// a single block may regenerate.
	BlockSizeMax = 128 << 10

	// BlockHeaderSize is the size of a block header.
	BlockHeaderSize = 3

	// MinLiteralsSize is the smallest literals section
	// a compressed block can hold: a one-byte literals
	// header, and the sequence count and modes.
	MinLiteralsSize = 3

	// FrameHeaderPrefix is the number of bytes needed
	// to learn the size of a frame header.
	FrameHeaderPrefix = 5
)

var (
	// ErrCorrupt is wrapped by every error caused
	// by a malformed header or section.
	ErrCorrupt = errors.New("corrupt input")

	// ErrTable is wrapped by errors that occur while
	// building a Huffman table from its description.
	ErrTable = errors.New("invalid huffman table")

	// ErrShortInput is returned when more bytes are
	// needed to decode a header.
	ErrShortInput = errors.New("input too short")
)
