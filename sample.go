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

package zbench

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/SnellerInc/zbench/datagen"
)

// FileError is returned when an input
// file cannot be benchmarked.
type FileError struct {
	Path string
	// Op is "open", "size" or "read".
	Op  string
	Err error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// BenchSample measures scenario id, or AllScenarios,
// on size bytes of generated data.
func (b *Bencher) BenchSample(id, size int, compressibility float64) ([]Result, error) {
	if err := b.reserve(size); err != nil {
		return nil, err
	}
	src := datagen.Generate(size, compressibility, 0, 0)
	fmt.Fprintf(b.out, "\r%70s\r", "")
	fmt.Fprintf(b.out, " Sample %d bytes : \n", size)
	return b.run(id, src)
}

// BenchFiles measures scenario id, or AllScenarios,
// on the contents of each file. A file too large for
// the memory budget is measured on its prefix.
func (b *Bencher) BenchFiles(id int, paths []string) ([]Result, error) {
	var out []Result
	for _, path := range paths {
		src, err := b.load(path)
		if err != nil {
			return out, err
		}
		fmt.Fprintf(b.out, "\r%70s\r", "")
		fmt.Fprintf(b.out, " %s : \n", path)
		res, err := b.run(id, src)
		out = append(out, res...)
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

func (b *Bencher) load(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &FileError{Path: path, Op: "open", Err: err}
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, &FileError{Path: path, Op: "size", Err: err}
	}
	if !info.Mode().IsRegular() {
		return nil, &FileError{Path: path, Op: "size", Err: errors.New("not a regular file")}
	}
	size := info.Size()
	benched := int64(findMaxMem(uint64(size)*3, b.mem) / 3)
	if benched > size {
		benched = size
	}
	if benched < size {
		b.log.WithField("file", path).Warnf("not enough memory for full size; testing %d MB only", benched>>20)
	}
	if err := b.reserve(int(benched)); err != nil {
		return nil, err
	}
	fmt.Fprintf(b.out, "Loading %s...       \r", path)
	buf := make([]byte, benched)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, &FileError{Path: path, Op: "read", Err: err}
	}
	return buf, nil
}
