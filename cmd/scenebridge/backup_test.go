// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readArchive returns the archive's contents keyed by entry name.
func readArchive(t *testing.T, path string) map[string]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	contents := map[string]string{}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		data, err := io.ReadAll(tr)
		require.NoError(t, err)
		contents[hdr.Name] = string(data)
	}
	return contents
}

func TestWriteArchive(t *testing.T) {
	dir := t.TempDir()
	scene := filepath.Join(dir, "shot.hip")
	require.NoError(t, os.WriteFile(scene, []byte("scene bytes"), 0o644))

	journalDir := filepath.Join(dir, "journal")
	require.NoError(t, os.MkdirAll(filepath.Join(journalDir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(journalDir, "000001.vlog"), []byte("log"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(journalDir, "sub", "MANIFEST"), []byte("manifest"), 0o644))

	dst := filepath.Join(dir, "backup.tar.gz")
	written, err := writeArchive(dst, []string{scene, journalDir})
	require.NoError(t, err)
	assert.Equal(t, 3, written)

	contents := readArchive(t, dst)
	assert.Equal(t, "scene bytes", contents["shot.hip"])
	assert.Equal(t, "log", contents[filepath.Join("journal", "000001.vlog")])
	assert.Equal(t, "manifest", contents[filepath.Join("journal", "sub", "MANIFEST")])
}

func TestWriteArchiveSkipsMissingSources(t *testing.T) {
	dir := t.TempDir()
	scene := filepath.Join(dir, "shot.hip")
	require.NoError(t, os.WriteFile(scene, []byte("scene"), 0o644))

	dst := filepath.Join(dir, "backup.tar.gz")
	written, err := writeArchive(dst, []string{filepath.Join(dir, "missing.hip"), scene})
	require.NoError(t, err)
	assert.Equal(t, 1, written)
}

func TestWriteArchiveAllMissing(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "backup.tar.gz")
	_, err := writeArchive(dst, []string{filepath.Join(dir, "nope")})
	require.Error(t, err)
}
