// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package contract

// FileRefType is the discriminator value carried by every FileRef.
const FileRefType = "file_ref"

// FileRef points a client at a staged payload on shared storage.
//
// The bridge writes large results to the staging directory instead of
// inlining them in the response. The client reads the file directly and
// must do so before TTLSeconds elapses; after that the garbage collector
// may reclaim it. MetadataPath is set when the payload has a JSON sidecar
// describing its binary layout.
type FileRef struct {
	Type         string `json:"type"`
	Path         string `json:"path"`
	MetadataPath string `json:"metadata_path,omitempty"`
	Format       string `json:"format"`
	SizeBytes    int64  `json:"size_bytes"`
	TTLSeconds   int    `json:"ttl_seconds"`
}

// NewFileRef creates a FileRef for a staged file.
func NewFileRef(path, format string, sizeBytes int64, ttlSeconds int) FileRef {
	return FileRef{
		Type:       FileRefType,
		Path:       path,
		Format:     format,
		SizeBytes:  sizeBytes,
		TTLSeconds: ttlSeconds,
	}
}
