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
	"errors"
	"fmt"
	"io"

	"github.com/SnellerInc/zbench/compr"
	"github.com/SnellerInc/zbench/ints"
	"github.com/SnellerInc/zbench/zstdfmt"

	"github.com/klauspost/compress/zstd"
)

// Direction selects compression or decompression.
type Direction uint8

const (
	Compression Direction = iota
	Decompression
)

func (d Direction) String() string {
	if d == Decompression {
		return "decompress"
	}
	return "compress"
}

// Call is a timed routine. The set of calls is closed;
// each variant below is one way of invoking the codec.
//
// Run processes src into dst and returns the number of
// bytes produced (or, for the block-level calls, the
// number of bytes of src consumed). It never writes
// past len(dst).
type Call interface {
	Run(s *compr.Contexts, src, dst []byte) (int, error)
	call()
}

// OneShot is a one-shot call on a context owned by
// the session. With Stream set, compression uses the
// streaming context with Workers workers.
type OneShot struct {
	Dir     Direction
	Stream  bool
	Workers int
}

// OneShotFreshContext is a one-shot call on a context
// created and released by the call itself.
type OneShotFreshContext struct {
	Dir Direction
}

// StreamMode is how a streaming compression
// call feeds and ends the frame.
type StreamMode uint8

const (
	// StreamPull lets the encoder read the input.
	StreamPull StreamMode = iota
	// StreamEnd writes the input and ends the frame.
	StreamEnd
	// StreamContinue writes the input, flushes
	// it and then ends the frame.
	StreamContinue
)

// Streaming is a streaming call on the session's
// streaming context. Output that does not fit in dst
// is dropped; the call returns what was written.
type Streaming struct {
	Dir     Direction
	Mode    StreamMode
	Workers int
}

// StreamingFreshContext is a streaming compression
// call on a context created and released by the call.
type StreamingFreshContext struct{}

// ContinueContext compresses or decompresses through the
// session's one-shot context used as a stream. Decompression
// produces the output one block at a time.
type ContinueContext struct {
	Dir Direction
}

// ExtDictPrefix is the size of the first chunk written
// by ContinueExtDict.
const ExtDictPrefix = 8

// ContinueExtDict compresses the first ExtDictPrefix bytes
// as their own block, then the rest of the input with the
// first chunk as history.
type ContinueExtDict struct{}

// BlockLiteralsHeader decodes the literals header of a block
// and builds its Huffman table. It returns the header size plus
// the size of the table description.
type BlockLiteralsHeader struct{}

// BlockLiteralsBody decodes the literals section of a block
// and returns its size.
type BlockLiteralsBody struct{}

// BlockSequenceHeader decodes the sequences section
// header of a block and returns its size.
type BlockSequenceHeader struct{}

func (OneShot) call()               {}
func (OneShotFreshContext) call()   {}
func (Streaming) call()             {}
func (StreamingFreshContext) call() {}
func (ContinueContext) call()       {}
func (ContinueExtDict) call()       {}
func (BlockLiteralsHeader) call()   {}
func (BlockLiteralsBody) call()     {}
func (BlockSequenceHeader) call()   {}

func (o OneShot) Run(s *compr.Contexts, src, dst []byte) (int, error) {
	if o.Dir == Decompression {
		dec, err := s.Decompressor()
		if err != nil {
			return 0, err
		}
		return compr.DecodeInto(dec, src, dst)
	}
	var enc *zstd.Encoder
	var err error
	if o.Stream {
		enc, err = s.StreamEncoder(o.Workers)
	} else {
		enc, err = s.Compressor()
	}
	if err != nil {
		return 0, err
	}
	return compr.EncodeInto(enc, src, dst)
}

func (o OneShotFreshContext) Run(s *compr.Contexts, src, dst []byte) (int, error) {
	if o.Dir == Decompression {
		dec, err := s.NewDecoder()
		if err != nil {
			return 0, err
		}
		defer dec.Close()
		return compr.DecodeInto(dec, src, dst)
	}
	enc, err := s.NewEncoder(1)
	if err != nil {
		return 0, err
	}
	n, err := compr.EncodeInto(enc, src, dst)
	if cerr := enc.Close(); err == nil {
		err = cerr
	}
	return n, err
}

// shortOK turns an output truncated by
// the destination size into a success
func shortOK(n int, err error) (int, error) {
	if errors.Is(err, io.ErrShortWrite) {
		return n, nil
	}
	return n, err
}

func encodeStream(s *compr.Contexts, enc *zstd.Encoder, mode StreamMode, src, dst []byte) (int, error) {
	var out compr.OutBuffer
	out.Reset(dst)
	enc.Reset(&out)
	var err error
	switch mode {
	case StreamPull:
		_, err = enc.ReadFrom(s.Input(src))
	case StreamEnd:
		_, err = enc.Write(src)
	case StreamContinue:
		_, err = enc.Write(src)
		if err == nil {
			err = enc.Flush()
		}
	}
	if cerr := enc.Close(); err == nil {
		err = cerr
	}
	return shortOK(out.Pos, err)
}

func (st Streaming) Run(s *compr.Contexts, src, dst []byte) (int, error) {
	if st.Dir == Decompression {
		dec, err := s.StreamDecoder(src)
		if err != nil {
			return 0, err
		}
		n, err := io.ReadFull(dec, dst)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			err = nil
		}
		return n, err
	}
	enc, err := s.StreamEncoder(st.Workers)
	if err != nil {
		return 0, err
	}
	return encodeStream(s, enc, st.Mode, src, dst)
}

func (StreamingFreshContext) Run(s *compr.Contexts, src, dst []byte) (int, error) {
	enc, err := s.NewEncoder(1)
	if err != nil {
		return 0, err
	}
	return encodeStream(s, enc, StreamPull, src, dst)
}

func (c ContinueContext) Run(s *compr.Contexts, src, dst []byte) (int, error) {
	if c.Dir == Decompression {
		dec, err := s.Decompressor()
		if err != nil {
			return 0, err
		}
		if err := dec.Reset(s.Input(src)); err != nil {
			return 0, err
		}
		pos := 0
		for pos < len(dst) {
			n, err := dec.Read(dst[pos:ints.Min(pos+zstdfmt.BlockSizeMax, len(dst))])
			pos += n
			if err == io.EOF {
				break
			}
			if err != nil {
				return pos, err
			}
		}
		return pos, nil
	}
	enc, err := s.Compressor()
	if err != nil {
		return 0, err
	}
	return encodeStream(s, enc, StreamEnd, src, dst)
}

func (ContinueExtDict) Run(s *compr.Contexts, src, dst []byte) (int, error) {
	enc, err := s.Compressor()
	if err != nil {
		return 0, err
	}
	var out compr.OutBuffer
	out.Reset(dst)
	enc.Reset(&out)
	first := src[:ints.Min(len(src), ExtDictPrefix)]
	_, err = enc.Write(first)
	if err == nil {
		err = enc.Flush()
	}
	if err == nil {
		_, err = enc.Write(src[len(first):])
	}
	if cerr := enc.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return out.Pos, fmt.Errorf("compressContinue_extDict: %w", err)
	}
	return out.Pos, nil
}

func (BlockLiteralsHeader) Run(s *compr.Contexts, src, dst []byte) (int, error) {
	h, table, err := s.Literals().ReadHeader(src)
	if err != nil {
		return 0, err
	}
	return h.HeaderSize + table, nil
}

func (BlockLiteralsBody) Run(s *compr.Contexts, src, dst []byte) (int, error) {
	n, _, err := s.Literals().Decode(src, dst)
	return n, err
}

func (BlockSequenceHeader) Run(s *compr.Contexts, src, dst []byte) (int, error) {
	h, err := zstdfmt.DecodeSequencesHeader(src)
	if err != nil {
		return 0, err
	}
	return h.HeaderSize, nil
}
