// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package transfer returns bulk results to clients without unbounded
// memory growth in the response path.
//
// Small payloads are inlined as nested JSON arrays. Anything at or over
// the inline threshold is packed into a flat little-endian buffer,
// written to a shared staging directory beside a JSON metadata sidecar,
// and returned as a file reference. Staged files are reclaimed by age.
package transfer

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/AleutianAI/SceneBridge/services/bridge/contract"
	"github.com/AleutianAI/SceneBridge/services/bridge/host"
)

// InlineThreshold is the estimated byte size at which payloads move
// from inline JSON to staged files.
const InlineThreshold = 1_000_000

// bytesPerElement is the fixed-width assumption behind the estimate.
const bytesPerElement = 4

// ============================================================================
// CONFIGURATION
// ============================================================================

// Config controls staging behavior.
type Config struct {
	// Dir is the shared staging directory, created lazily on first
	// write.
	// Default: <os.TempDir()>/scenebridge_staging
	Dir string

	// TTL is how long staged files live before GC reclaims them.
	// Default: 300s
	TTL time.Duration

	// InlineThreshold overrides the inline/staged boundary in estimated
	// bytes.
	// Default: InlineThreshold
	InlineThreshold int
}

// DefaultConfig returns the standard staging configuration.
func DefaultConfig() Config {
	return Config{
		Dir:             filepath.Join(os.TempDir(), "scenebridge_staging"),
		TTL:             300 * time.Second,
		InlineThreshold: InlineThreshold,
	}
}

// ============================================================================
// PAYLOADS
// ============================================================================

// Payload is one attribute read headed for the wire.
type Payload struct {
	// NodePath identifies the source node for the metadata sidecar.
	NodePath string

	// Data is the full attribute contents as read from the host.
	Data *host.AttribData

	// Start is the first element the client asked for.
	Start int

	// Count is the number of elements requested; -1 means to the end.
	Count int
}

// ClampRange resolves a start/count request against total elements.
// Out-of-range requests clamp instead of erroring: lo and hi are always
// a valid, possibly empty, [lo, hi) window.
func ClampRange(start, count, total int) (lo, hi int) {
	if start < 0 {
		start = 0
	}
	if start > total {
		start = total
	}
	if count < 0 {
		return start, total
	}
	hi = start + count
	if hi > total {
		hi = total
	}
	return start, hi
}

// Stats describes the staging area for operational visibility.
type Stats struct {
	Dir        string `json:"dir"`
	FileCount  int    `json:"file_count"`
	TotalBytes int64  `json:"total_bytes"`
	FreeBytes  uint64 `json:"free_bytes"`
	TTLSeconds int    `json:"ttl_seconds"`
}

// ============================================================================
// MANAGER
// ============================================================================

// Manager owns the staging directory and the inline/staged decision.
//
// Thread Safety: safe for concurrent use. Writers never touch the same
// file because every staged name carries a fresh random suffix, and the
// collector only deletes files strictly older than its age threshold.
type Manager struct {
	cfg     Config
	dirOnce sync.Once
	dirErr  error
}

// NewManager creates a manager. Zero config fields fall back to
// defaults.
func NewManager(cfg Config) *Manager {
	def := DefaultConfig()
	if cfg.Dir == "" {
		cfg.Dir = def.Dir
	}
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.InlineThreshold <= 0 {
		cfg.InlineThreshold = def.InlineThreshold
	}
	return &Manager{cfg: cfg}
}

// Dir returns the staging directory path.
func (m *Manager) Dir() string { return m.cfg.Dir }

// TTL returns the configured staged-file lifetime.
func (m *Manager) TTL() time.Duration { return m.cfg.TTL }

// Encode turns an attribute payload into its wire form.
//
// Description:
//
//	The requested range is clamped, then its size is estimated as
//	element count times four bytes. Below the threshold the result is
//	an inline document with nested JSON arrays; at or above it the
//	range is packed little-endian (float32, int32, or a UTF-8 JSON
//	array for strings), staged beside a metadata sidecar, and returned
//	as a contract.FileRef.
//
// Outputs:
//   - any: map[string]any for inline results, contract.FileRef for
//     staged ones
//   - error: staging I/O failures; inline encoding cannot fail
func (m *Manager) Encode(p Payload) (any, error) {
	info := p.Data.Info
	lo, hi := ClampRange(p.Start, p.Count, p.Data.Total)
	count := hi - lo

	estimate := count * info.TupleSize * bytesPerElement
	if estimate < m.cfg.InlineThreshold {
		return m.inline(p, lo, count), nil
	}
	return m.stageAttrib(p, lo, count)
}

func (m *Manager) inline(p Payload, lo, count int) map[string]any {
	info := p.Data.Info
	doc := map[string]any{
		"node_path":    p.NodePath,
		"attrib_name":  info.Name,
		"attrib_class": info.Class,
		"type":         info.Type,
		"size":         info.TupleSize,
		"start":        lo,
		"count":        count,
		"total":        p.Data.Total,
		"encoding":     "inline",
	}
	switch info.Type {
	case host.AttribFloat:
		doc["data"] = nestFloats(sliceRange(p.Data.Floats, lo, count, info.TupleSize), info.TupleSize)
	case host.AttribInt:
		doc["data"] = nestInts(sliceRange(p.Data.Ints, lo, count, info.TupleSize), info.TupleSize)
	case host.AttribString:
		doc["data"] = sliceRange(p.Data.Strings, lo, count, 1)
	}
	return doc
}

func (m *Manager) stageAttrib(p Payload, lo, count int) (any, error) {
	info := p.Data.Info

	var raw []byte
	var encoding, format, ext string
	switch info.Type {
	case host.AttribFloat:
		vals := sliceRange(p.Data.Floats, lo, count, info.TupleSize)
		raw = make([]byte, len(vals)*4)
		for i, v := range vals {
			binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
		}
		encoding, format, ext = "float32", "binary", ".bin"
	case host.AttribInt:
		vals := sliceRange(p.Data.Ints, lo, count, info.TupleSize)
		raw = make([]byte, len(vals)*4)
		for i, v := range vals {
			binary.LittleEndian.PutUint32(raw[i*4:], uint32(v))
		}
		encoding, format, ext = "int32", "binary", ".bin"
	case host.AttribString:
		data, err := json.Marshal(sliceRange(p.Data.Strings, lo, count, 1))
		if err != nil {
			return nil, fmt.Errorf("encoding string attribute: %w", err)
		}
		raw = data
		encoding, format, ext = "utf8_json", "json", ".json"
	default:
		return nil, fmt.Errorf("unknown attribute type %q", info.Type)
	}

	base := fmt.Sprintf("attrib_%s_%s", sanitize(info.Name), uniqueSuffix())
	path, err := m.writeFile(base+ext, raw)
	if err != nil {
		return nil, err
	}

	meta := map[string]any{
		"node_path":    p.NodePath,
		"attrib_class": info.Class,
		"attrib_name":  info.Name,
		"type":         info.Type,
		"size":         info.TupleSize,
		"start":        lo,
		"count":        count,
		"total":        p.Data.Total,
		"encoding":     encoding,
		"byte_order":   "little",
	}
	metaRaw, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encoding metadata sidecar: %w", err)
	}
	metaPath, err := m.writeFile(base+".meta.json", metaRaw)
	if err != nil {
		return nil, err
	}

	ref := contract.NewFileRef(path, format, int64(len(raw)), int(m.cfg.TTL.Seconds()))
	ref.MetadataPath = metaPath
	return ref, nil
}

// StageBytes writes an already-encoded payload to the staging area and
// returns its reference. Used for geometry exports and other formats
// the manager does not itself encode.
func (m *Manager) StageBytes(prefix, format string, data []byte) (contract.FileRef, error) {
	ext := "." + format
	name := fmt.Sprintf("%s_%s%s", sanitize(prefix), uniqueSuffix(), ext)
	path, err := m.writeFile(name, data)
	if err != nil {
		return contract.FileRef{}, err
	}
	return contract.NewFileRef(path, format, int64(len(data)), int(m.cfg.TTL.Seconds())), nil
}

// writeFile stages one file. The write completes before the name is
// returned, so the collector's age check never sees a partial file.
func (m *Manager) writeFile(name string, data []byte) (string, error) {
	m.dirOnce.Do(func() {
		m.dirErr = os.MkdirAll(m.cfg.Dir, 0o755)
	})
	if m.dirErr != nil {
		return "", fmt.Errorf("creating staging directory %s: %w", m.cfg.Dir, m.dirErr)
	}

	path := filepath.Join(m.cfg.Dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("staging %s: %w", name, err)
	}
	return path, nil
}

// GC deletes staged files whose modification time is strictly older
// than maxAge and reports how many were removed.
//
// Errors:
//   - directory read failures; per-file removal failures are skipped so
//     one busy file cannot wedge collection
func (m *Manager) GC(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(m.cfg.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("scanning staging directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	deleted := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		if !fi.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(m.cfg.Dir, entry.Name())); err == nil {
			deleted++
		}
	}
	return deleted, nil
}

// Stats reports staging area usage, including free space on the
// underlying filesystem.
func (m *Manager) Stats() (*Stats, error) {
	s := &Stats{
		Dir:        m.cfg.Dir,
		TTLSeconds: int(m.cfg.TTL.Seconds()),
	}

	entries, err := os.ReadDir(m.cfg.Dir)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("scanning staging directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		s.FileCount++
		s.TotalBytes += fi.Size()
	}

	statDir := m.cfg.Dir
	if _, err := os.Stat(statDir); err != nil {
		statDir = filepath.Dir(statDir)
	}
	var fs unix.Statfs_t
	if err := unix.Statfs(statDir, &fs); err != nil {
		return nil, fmt.Errorf("statfs %s: %w", statDir, err)
	}
	s.FreeBytes = fs.Bavail * uint64(fs.Bsize)
	return s, nil
}

// ============================================================================
// HELPERS
// ============================================================================

func sliceRange[T any](vals []T, lo, count, tupleSize int) []T {
	start := lo * tupleSize
	end := (lo + count) * tupleSize
	if start > len(vals) {
		start = len(vals)
	}
	if end > len(vals) {
		end = len(vals)
	}
	return vals[start:end]
}

func nestFloats(vals []float32, tupleSize int) any {
	if tupleSize <= 1 {
		return vals
	}
	out := make([][]float32, 0, len(vals)/tupleSize)
	for i := 0; i+tupleSize <= len(vals); i += tupleSize {
		out = append(out, vals[i:i+tupleSize])
	}
	return out
}

func nestInts(vals []int32, tupleSize int) any {
	if tupleSize <= 1 {
		return vals
	}
	out := make([][]int32, 0, len(vals)/tupleSize)
	for i := 0; i+tupleSize <= len(vals); i += tupleSize {
		out = append(out, vals[i:i+tupleSize])
	}
	return out
}

func uniqueSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, name)
}
