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

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/SnellerInc/zbench"
	"github.com/SnellerInc/zbench/compr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (stdout, stderr string, code int) {
	t.Helper()
	var out, errb bytes.Buffer
	cmd := newCommand(strings.NewReader("\n"), &out, &errb)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errb.String(), exitCode(err)
}

func TestParseZstd(t *testing.T) {
	level, p, err := parseZstd("wlog=20,clog=14,strategy=4", 1, compr.LevelParams(1))
	require.NoError(t, err)
	require.Equal(t, 1, level)
	require.Equal(t, 20, p.WindowLog)
	require.Equal(t, 14, p.ChainLog)
	require.Equal(t, compr.StratLazy, p.Strategy)

	// the level resets previous parameters
	level, p, err = parseZstd("wlog=20,lvl=5,hlog=1K", 1, compr.LevelParams(1))
	require.NoError(t, err)
	require.Equal(t, 5, level)
	want := compr.LevelParams(5)
	want.HashLog = 1024
	require.Equal(t, want, p)

	for _, bad := range []string{"wlog", "bogus=1", "wlog=x", "wlog=20,"} {
		_, _, err := parseZstd(bad, 1, compr.LevelParams(1))
		require.Error(t, err, bad)
	}
}

func TestRunJSON(t *testing.T) {
	stdout, stderr, code := execute(t, "-b3", "-B20K", "-i1", "--slice=5ms", "--json")
	require.Equal(t, exitOK, code, stderr)
	require.Contains(t, stderr, " Sample 20480 bytes : \n")
	require.Contains(t, stderr, " 3#decompressDCtx")

	var rep report
	require.NoError(t, json.Unmarshal([]byte(stdout), &rep))
	_, err := uuid.Parse(rep.RunID)
	require.NoError(t, err)
	require.Equal(t, 1, rep.Level)
	require.Len(t, rep.Results, 1)
	res := rep.Results[0]
	require.Equal(t, zbench.StatusMeasured, res.Status)
	require.Equal(t, 20480, res.SumOfReturn)
	require.Greater(t, res.MBPerSec, 0.0)
}

func TestRunSkip(t *testing.T) {
	stdout, _, code := execute(t, "-b16", "-B1K", "-P0", "-i1", "--slice=5ms", "--json")
	require.Equal(t, exitOK, code)
	var rep report
	require.NoError(t, json.Unmarshal([]byte(stdout), &rep))
	require.Len(t, rep.Results, 1)
	require.Equal(t, zbench.StatusSkipped, rep.Results[0].Status)
	require.Equal(t, "no compressed literals", rep.Results[0].Reason)
}

func TestExitCodes(t *testing.T) {
	dir := t.TempDir()
	tcs := []struct {
		args []string
		code int
	}{
		{[]string{"--zstd=bogus=1"}, exitUsage},
		{[]string{"-B", "99999999999"}, exitUsage},
		{[]string{"-l", "40"}, exitUsage},
		{[]string{"-P", "101"}, exitUsage},
		{[]string{"--no-such-flag"}, exitUsage},
		{[]string{"--config", filepath.Join(dir, "missing.yaml")}, exitUsage},
		{[]string{"-b0", filepath.Join(dir, "missing")}, exitOpen},
	}
	for _, tc := range tcs {
		_, stderr, code := execute(t, tc.args...)
		require.Equal(t, tc.code, code, "%v: %s", tc.args, stderr)
	}
	require.Equal(t, exitNoMemory, exitCode(fmt.Errorf("bench: %w", zbench.ErrNoMemory)))
	require.Equal(t, exitRead, exitCode(&zbench.FileError{Op: "read", Err: os.ErrClosed}))
	require.Equal(t, exitOpen, exitCode(&zbench.FileError{Op: "size", Err: os.ErrClosed}))
}

func TestConfigProfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.yaml")
	profile := "scenario: 0\nlevel: 3\nsampleSize: 4K\niterations: 1\njson: true\n"
	require.NoError(t, os.WriteFile(path, []byte(profile), 0644))

	// the level flag overrides the profile
	stdout, stderr, code := execute(t, "--config", path, "-l", "2", "--slice=5ms")
	require.Equal(t, exitOK, code, stderr)
	var rep report
	require.NoError(t, json.Unmarshal([]byte(stdout), &rep))
	require.Equal(t, 2, rep.Level)
	require.Len(t, rep.Results, 1)
	require.Equal(t, "compress", rep.Results[0].Name)
	require.Equal(t, 4096, rep.Results[0].OrigSize)

	require.NoError(t, os.WriteFile(path, []byte("nosuchkey: 1\n"), 0644))
	_, _, code = execute(t, "--config", path)
	require.Equal(t, exitUsage, code)
}

func TestFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("zbench file input "), 1000), 0644))
	stdout, stderr, code := execute(t, "-b1", "-i1", "--slice=5ms", "--json", path)
	require.Equal(t, exitOK, code, stderr)
	require.Contains(t, stderr, " "+path+" : \n")
	var rep report
	require.NoError(t, json.Unmarshal([]byte(stdout), &rep))
	require.Len(t, rep.Results, 1)
	require.Equal(t, 18000, rep.Results[0].SumOfReturn)
}

func TestVersion(t *testing.T) {
	stdout, _, code := execute(t, "--version")
	require.Equal(t, exitOK, code)
	require.Contains(t, stdout, "zbench version")
}
