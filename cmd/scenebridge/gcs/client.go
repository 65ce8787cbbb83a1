// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package gcs uploads bridge backup archives to Google Cloud Storage.
package gcs

import (
	"context"
	"fmt"
	"io"
	"os"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// Client wraps a GCS bucket for backup uploads.
type Client struct {
	storageClient *storage.Client
	BucketName    string
}

// NewClient creates a client for the named bucket.
//
// Inputs:
//   - keyPath: service account key file; empty uses application default
//     credentials
//
// Errors:
//   - missing key file, or client construction failures
func NewClient(ctx context.Context, bucketName, keyPath string) (*Client, error) {
	var opts []option.ClientOption
	if keyPath != "" {
		if _, err := os.Stat(keyPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("service account key not found at %s", keyPath)
		}
		opts = append(opts, option.WithCredentialsFile(keyPath))
	}

	storageClient, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating GCS client: %w", err)
	}
	return &Client{storageClient: storageClient, BucketName: bucketName}, nil
}

// UploadFile copies a local file to the bucket under objectPath.
func (c *Client) UploadFile(ctx context.Context, localPath, objectPath string) error {
	localFile, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", localPath, err)
	}
	defer localFile.Close()

	writer := c.storageClient.Bucket(c.BucketName).Object(objectPath).NewWriter(ctx)
	writer.ContentType = "application/gzip"
	writer.CacheControl = "no-cache, no-store, must-revalidate"

	if _, err := io.Copy(writer, localFile); err != nil {
		return fmt.Errorf("uploading %s to gs://%s/%s: %w", localPath, c.BucketName, objectPath, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalizing gs://%s/%s: %w", c.BucketName, objectPath, err)
	}
	return nil
}

// Close releases the underlying client.
func (c *Client) Close() error {
	return c.storageClient.Close()
}
