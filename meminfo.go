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
	"fmt"
	"os"
	"runtime"

	"github.com/SnellerInc/zbench/ints"
)

// memTotal is the total usable DRAM. On Linux, this
// value is read from /proc/meminfo. On other systems,
// or if the file cannot be read, it remains zero and
// memory is not budgeted.
var memTotal int64

func init() {
	// Only Linux is supported for now.
	if runtime.GOOS != "linux" {
		return
	}
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return
	}
	defer f.Close()
	var kb int64
	for {
		n, err := fmt.Fscanf(f, "MemTotal: %d kB\n", &kb)
		if err != nil {
			return
		}
		if n > 0 {
			memTotal = kb * 1024
			return
		}
	}
}

const (
	memStep = 64 << 20
	maxMem  = 1984 << 20
)

// findMaxMem returns the memory that can be set aside for
// a benchmark needing required bytes: required rounded up
// past the next 64MiB step, no more than maxMem and no
// more than the total memory of the machine.
func findMaxMem(required uint64, total int64) uint64 {
	mem := ints.AlignUp(required+1, memStep)
	if mem > maxMem {
		mem = maxMem
	}
	if total > 0 && mem > uint64(total) {
		mem = ints.AlignDown(uint64(total), memStep)
	}
	return mem
}
