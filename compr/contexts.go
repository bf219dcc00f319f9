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

package compr

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/SnellerInc/zbench/ints"
	"github.com/SnellerInc/zbench/zstdfmt"

	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"
)

// ErrRealloc is returned when the codec could
// not produce its output inside the caller's buffer.
var ErrRealloc = errors.New("output buffer realloc'd")

// Contexts owns the codec contexts of one benchmark
// session. Contexts are created on first use and
// released by Close. The zero value is not usable;
// see NewContexts.
//
// A Contexts is not safe for concurrent use.
type Contexts struct {
	Level  int
	Params Params
	Logger logrus.FieldLogger

	cctx          *zstd.Encoder
	dctx          *zstd.Decoder
	cstream       *zstd.Encoder
	cstreamWorker int
	dstream       *zstd.Decoder
	lits          zstdfmt.LiteralsDecoder

	rd     bytes.Reader
	closed bool
}

// NewContexts returns a session that builds
// every context from level and p.
func NewContexts(level int, p Params, logger logrus.FieldLogger) *Contexts {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	c := &Contexts{Level: level, Params: p, Logger: logger}
	if ign := p.Ignored(level); len(ign) > 0 {
		logger.WithField("params", ign).Debug("parameters without an encoder equivalent are ignored")
	}
	return c
}

func (c *Contexts) check() error {
	if c.closed {
		return errors.New("compr.Contexts: use after Close")
	}
	return nil
}

// NewEncoder returns an encoder configured like the
// session's contexts but not owned by the session;
// the caller must close it.
func (c *Contexts) NewEncoder(workers int) (*zstd.Encoder, error) {
	enc, err := zstd.NewWriter(nil, EncoderOptions(c.Level, c.Params, workers)...)
	if err != nil {
		return nil, fmt.Errorf("compr: creating encoder: %w", err)
	}
	return enc, nil
}

// NewDecoder returns a decoder not owned by the session;
// the caller must close it.
func (c *Contexts) NewDecoder() (*zstd.Decoder, error) {
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("compr: creating decoder: %w", err)
	}
	return dec, nil
}

// Compressor returns the session's one-shot compression context.
func (c *Contexts) Compressor() (*zstd.Encoder, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	if c.cctx == nil {
		enc, err := c.NewEncoder(1)
		if err != nil {
			return nil, err
		}
		c.Logger.Debug("created compression context")
		c.cctx = enc
	}
	return c.cctx, nil
}

// Decompressor returns the session's one-shot decompression context.
func (c *Contexts) Decompressor() (*zstd.Decoder, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	if c.dctx == nil {
		dec, err := c.NewDecoder()
		if err != nil {
			return nil, err
		}
		c.Logger.Debug("created decompression context")
		c.dctx = dec
	}
	return c.dctx, nil
}

// StreamEncoder returns the session's streaming
// compression context, using the given number of
// workers. Asking for a different number of workers
// replaces the context.
func (c *Contexts) StreamEncoder(workers int) (*zstd.Encoder, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	workers = ints.Max(workers, 1)
	if c.cstream != nil && c.cstreamWorker != workers {
		c.cstream.Close()
		c.cstream = nil
	}
	if c.cstream == nil {
		enc, err := c.NewEncoder(workers)
		if err != nil {
			return nil, err
		}
		c.Logger.WithField("workers", workers).Debug("created streaming compression context")
		c.cstream = enc
		c.cstreamWorker = workers
	}
	return c.cstream, nil
}

// Input returns a reader over src owned by the session.
// The reader is shared; it is valid until the next call
// to Input or StreamDecoder.
func (c *Contexts) Input(src []byte) io.Reader {
	c.rd.Reset(src)
	return &c.rd
}

// Literals returns the session's literals decoder.
func (c *Contexts) Literals() *zstdfmt.LiteralsDecoder {
	return &c.lits
}

// StreamDecoder returns the session's streaming decompression
// context, reset to read src.
func (c *Contexts) StreamDecoder(src []byte) (*zstd.Decoder, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	rd := c.Input(src)
	if c.dstream == nil {
		dec, err := zstd.NewReader(rd, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("compr: creating stream decoder: %w", err)
		}
		c.Logger.Debug("created streaming decompression context")
		c.dstream = dec
		return dec, nil
	}
	if err := c.dstream.Reset(rd); err != nil {
		return nil, fmt.Errorf("compr: resetting stream decoder: %w", err)
	}
	return c.dstream, nil
}

// Close releases every context created by the session.
// It is safe to call Close more than once.
func (c *Contexts) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	var first error
	for _, enc := range []*zstd.Encoder{c.cctx, c.cstream} {
		if enc == nil {
			continue
		}
		if err := enc.Close(); err != nil && first == nil {
			first = err
		}
	}
	for _, dec := range []*zstd.Decoder{c.dctx, c.dstream} {
		if dec != nil {
			dec.Close()
		}
	}
	c.cctx, c.cstream, c.dctx, c.dstream = nil, nil, nil, nil
	c.lits.Reset()
	c.rd.Reset(nil)
	return first
}

// EncodeInto compresses src into dst with enc
// and returns the compressed size.
func EncodeInto(enc *zstd.Encoder, src, dst []byte) (int, error) {
	if len(dst) == 0 {
		return 0, io.ErrShortBuffer
	}
	ret := enc.EncodeAll(src, dst[:0:len(dst)])
	if len(ret) > 0 && &ret[0] != &dst[0] {
		return 0, fmt.Errorf("zstd compress: %w", ErrRealloc)
	}
	return len(ret), nil
}

// DecodeInto decompresses src into dst with dec
// and returns the decompressed size.
func DecodeInto(dec *zstd.Decoder, src, dst []byte) (int, error) {
	if len(dst) == 0 {
		return 0, io.ErrShortBuffer
	}
	ret, err := dec.DecodeAll(src, dst[:0:len(dst)])
	if err != nil {
		return 0, err
	}
	// the decoder should not have had to
	// realloc the buffer
	if len(ret) > 0 && &ret[0] != &dst[0] {
		return 0, fmt.Errorf("zstd decompress: %w", ErrRealloc)
	}
	return len(ret), nil
}

// CompressLevel compresses src into dst in one shot with
// the default parameters of level, the way benchmark
// inputs for decompression are produced.
func CompressLevel(dst, src []byte, level int) ([]byte, error) {
	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)),
		zstd.WithEncoderConcurrency(1),
		zstd.WithEncoderCRC(false))
	if err != nil {
		return nil, fmt.Errorf("compr.CompressLevel: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(src, dst[:0]), nil
}

// OutBuffer is an io.Writer over a fixed buffer.
// Writes beyond the end of the buffer are truncated
// and report io.ErrShortWrite.
type OutBuffer struct {
	Buf []byte
	Pos int
}

// Reset points the buffer at dst and rewinds it.
func (o *OutBuffer) Reset(dst []byte) {
	o.Buf = dst
	o.Pos = 0
}

func (o *OutBuffer) Write(p []byte) (int, error) {
	n := copy(o.Buf[o.Pos:], p)
	o.Pos += n
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}
