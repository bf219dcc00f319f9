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

	"github.com/google/go-cmp/cmp"
	"pgregory.net/rapid"
)

// literalsHeader builds a compressed literals header
// and pads it with comp bytes of payload.
func literalsHeader(layout, lit, comp int) []byte {
	var hdr []byte
	switch layout {
	case 0, 1:
		v := uint32(LiteralsCompressed) | uint32(layout)<<2 | uint32(lit)<<4 | uint32(comp)<<14
		hdr = []byte{byte(v), byte(v >> 8), byte(v >> 16)}
	case 2:
		v := uint32(LiteralsCompressed) | 2<<2 | uint32(lit)<<4 | uint32(comp)<<18
		hdr = []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
	case 3:
		v := uint32(LiteralsCompressed) | 3<<2 | uint32(lit)<<4 | uint32(comp&0x3ff)<<22
		hdr = []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24), byte(comp >> 10)}
	}
	out := append(hdr, make([]byte, comp)...)
	for len(out) < 5 {
		out = append(out, 0)
	}
	return out
}

func TestDecodeLiteralsHeader(t *testing.T) {
	tcs := []struct {
		layout, lit, comp int
		want              LiteralsHeader
	}{
		{0, 1000, 700, LiteralsHeader{Type: LiteralsCompressed, Layout: 0, HeaderSize: 3, RegeneratedSize: 1000, CompressedSize: 700, Streams: 1}},
		{1, 1023, 1023, LiteralsHeader{Type: LiteralsCompressed, Layout: 1, HeaderSize: 3, RegeneratedSize: 1023, CompressedSize: 1023, Streams: 4}},
		{2, 16383, 9000, LiteralsHeader{Type: LiteralsCompressed, Layout: 2, HeaderSize: 4, RegeneratedSize: 16383, CompressedSize: 9000, Streams: 4}},
		{3, BlockSizeMax, 70000, LiteralsHeader{Type: LiteralsCompressed, Layout: 3, HeaderSize: 5, RegeneratedSize: BlockSizeMax, CompressedSize: 70000, Streams: 4}},
		{3, 20000, 1023, LiteralsHeader{Type: LiteralsCompressed, Layout: 3, HeaderSize: 5, RegeneratedSize: 20000, CompressedSize: 1023, Streams: 4}},
	}
	for _, tc := range tcs {
		got, err := DecodeLiteralsHeader(literalsHeader(tc.layout, tc.lit, tc.comp))
		if err != nil {
			t.Errorf("layout %d: %s", tc.layout, err)
			continue
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("layout %d: (-want +got):\n%s", tc.layout, diff)
		}
	}
}

func TestDecodeLiteralsHeaderOtherTypes(t *testing.T) {
	for _, typ := range []LiteralsType{LiteralsRaw, LiteralsRLE, LiteralsTreeless} {
		h, err := DecodeLiteralsHeader([]byte{byte(typ) | 3<<2, 0xff, 0xff})
		if err != nil {
			t.Fatalf("%s: %s", typ, err)
		}
		if h.Type != typ || h.HeaderSize != 0 {
			t.Errorf("%s: unexpected header %+v", typ, h)
		}
	}
}

func TestDecodeLiteralsHeaderCorrupt(t *testing.T) {
	tcs := []struct {
		name string
		src  []byte
	}{
		{"empty", nil},
		{"two bytes", []byte{2, 0}},
		{"compressed, four bytes", []byte{2, 0, 0, 0}},
		// layout 3 with 2^18-1 literals
		{"too many literals", append([]byte{2 | 3<<2 | 0xf0, 0xff, 0x3f, 0, 0}, make([]byte, 8)...)},
		{"payload overruns input", literalsHeader(2, 100, 200)[:150]},
	}
	for _, tc := range tcs {
		_, err := DecodeLiteralsHeader(tc.src)
		if !errors.Is(err, ErrCorrupt) {
			t.Errorf("%s: got %v, want ErrCorrupt", tc.name, err)
		}
	}
}

func TestLiteralsHeaderRoundTrip(t *testing.T) {
	widths := [4]int{10, 10, 14, 18}
	sizes := [4]int{3, 3, 4, 5}
	rapid.Check(t, func(t *rapid.T) {
		layout := rapid.IntRange(0, 3).Draw(t, "layout")
		maxLit := 1<<widths[layout] - 1
		if maxLit > BlockSizeMax {
			maxLit = BlockSizeMax
		}
		lit := rapid.IntRange(0, maxLit).Draw(t, "lit")
		comp := rapid.IntRange(0, 1<<widths[layout]-1).Draw(t, "comp")
		buf := literalsHeader(layout, lit, comp)

		h, err := DecodeLiteralsHeader(buf)
		if err != nil {
			t.Fatalf("decode: %s", err)
		}
		if h.HeaderSize != sizes[layout] {
			t.Fatalf("header size %d, want %d", h.HeaderSize, sizes[layout])
		}
		if h.RegeneratedSize != lit || h.CompressedSize != comp {
			t.Fatalf("got lit=%d comp=%d, want lit=%d comp=%d", h.RegeneratedSize, h.CompressedSize, lit, comp)
		}
		short := rapid.IntRange(0, sizes[layout]-1).Draw(t, "short")
		if _, err := DecodeLiteralsHeader(buf[:short]); !errors.Is(err, ErrCorrupt) {
			t.Fatalf("truncated to %d: got %v, want ErrCorrupt", short, err)
		}
	})
}

func TestLiteralsDecoderRawRLE(t *testing.T) {
	var d LiteralsDecoder
	dst := make([]byte, 64)

	// raw, 1-byte header, 5 literals
	src := []byte{byte(LiteralsRaw) | 5<<3, 'h', 'e', 'l', 'l', 'o', 0xee}
	n, lits, err := d.Decode(src, dst)
	if err != nil {
		t.Fatal(err)
	}
	if n != 6 || string(lits) != "hello" {
		t.Errorf("raw: n=%d lits=%q", n, lits)
	}

	// RLE, 2-byte header, 40 copies of 'z'
	v := uint16(LiteralsRLE) | 1<<2 | 40<<4
	src = []byte{byte(v), byte(v >> 8), 'z'}
	n, lits, err = d.Decode(src, dst)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 || len(lits) != 40 || lits[0] != 'z' || lits[39] != 'z' {
		t.Errorf("rle: n=%d lits=%q", n, lits)
	}

	// raw literals larger than dst
	v = uint16(LiteralsRaw) | 1<<2 | 100<<4
	src = append([]byte{byte(v), byte(v >> 8)}, make([]byte, 100)...)
	if _, _, err := d.Decode(src, dst); err == nil {
		t.Error("expected an error decoding into a short buffer")
	}

	// raw literals overrunning the input
	if _, _, err := d.Decode(src[:50], make([]byte, 200)); !errors.Is(err, ErrCorrupt) {
		t.Errorf("got %v, want ErrCorrupt", err)
	}
}

func TestLiteralsDecoderTreelessWithoutTable(t *testing.T) {
	var d LiteralsDecoder
	src := literalsHeader(1, 10, 8)
	src[0] = src[0]&^3 | byte(LiteralsTreeless)
	_, _, err := d.Decode(src, make([]byte, 64))
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("got %v, want ErrCorrupt", err)
	}
}

func TestLiteralsDecoderBadTable(t *testing.T) {
	var d LiteralsDecoder
	// an FSE-compressed weight description
	// claiming more bytes than are present
	src := literalsHeader(1, 10, 2)
	src[3] = 100
	_, _, err := d.ReadHeader(src)
	if !errors.Is(err, ErrTable) {
		t.Errorf("got %v, want ErrTable", err)
	}
	if errors.Is(err, ErrCorrupt) {
		t.Error("table errors should be distinct from header corruption")
	}
}
