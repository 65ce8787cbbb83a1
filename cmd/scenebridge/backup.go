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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/SceneBridge/cmd/scenebridge/gcs"
)

var (
	backupOutputDir string
	backupBucket    string
	backupKeyPath   string
	backupPrefix    string
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Archive the scene file and journal",
	Long: `Packs the configured scene file and journal directory into a
timestamped tar.gz. With --bucket the archive is also uploaded to
Google Cloud Storage.`,
	RunE: runBackup,
}

func init() {
	backupCmd.Flags().StringVar(&backupOutputDir, "output-dir", ".", "directory for the archive")
	backupCmd.Flags().StringVar(&backupBucket, "bucket", "", "GCS bucket to upload to; empty skips upload")
	backupCmd.Flags().StringVar(&backupKeyPath, "key", "", "service account key file; empty uses default credentials")
	backupCmd.Flags().StringVar(&backupPrefix, "prefix", "scenebridge", "GCS object prefix")
}

func runBackup(cmd *cobra.Command, args []string) error {
	var sources []string
	if cfg.ScenePath != "" {
		sources = append(sources, cfg.ScenePath)
	}
	if cfg.Journal.Enabled && cfg.Journal.Dir != "" {
		sources = append(sources, cfg.Journal.Dir)
	}
	if len(sources) == 0 {
		return errors.New("nothing to back up: no scene_path and no journal dir configured")
	}

	name := fmt.Sprintf("scenebridge_backup_%s.tar.gz", time.Now().Format("2006-01-02_150405"))
	archivePath := filepath.Join(backupOutputDir, name)

	written, err := writeArchive(archivePath, sources)
	if err != nil {
		return err
	}
	slog.Info("Backup archive written", "path", archivePath, "files", written)
	fmt.Println(render(styleSuccess, "✓") + " " + archivePath)

	if backupBucket == "" {
		return nil
	}

	ctx := cmd.Context()
	client, err := gcs.NewClient(ctx, backupBucket, backupKeyPath)
	if err != nil {
		return err
	}
	defer client.Close()

	objectPath := backupPrefix + "/" + name
	if err := client.UploadFile(ctx, archivePath, objectPath); err != nil {
		return err
	}
	fmt.Println(render(styleSuccess, "✓") + fmt.Sprintf(" uploaded to gs://%s/%s", backupBucket, objectPath))
	return nil
}

// writeArchive packs the sources into a tar.gz at dst and reports how
// many files it stored. Missing sources are skipped with a warning so a
// backup taken before the first save still succeeds; failing every
// source is an error.
func writeArchive(dst string, sources []string) (int, error) {
	out, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("creating archive: %w", err)
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	defer gz.Close()
	tw := tar.NewWriter(gz)
	defer tw.Close()

	written := 0
	for _, src := range sources {
		info, err := os.Stat(src)
		if err != nil {
			slog.Warn("Skipping missing backup source", "path", src, "error", err)
			continue
		}
		if info.IsDir() {
			n, err := archiveDir(tw, src)
			if err != nil {
				return written, err
			}
			written += n
		} else {
			if err := archiveFile(tw, src, filepath.Base(src)); err != nil {
				return written, err
			}
			written++
		}
	}
	if written == 0 {
		return 0, errors.New("no backup sources exist yet")
	}
	return written, nil
}

// archiveDir stores every regular file under dir, rooted at the dir's
// base name inside the archive.
func archiveDir(tw *tar.Writer, dir string) (int, error) {
	written := 0
	base := filepath.Base(dir)
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if err := archiveFile(tw, path, filepath.Join(base, rel)); err != nil {
			return err
		}
		written++
		return nil
	})
	return written, err
}

// archiveFile stores one file under the given name in the archive.
func archiveFile(tw *tar.Writer, path, name string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("tar header for %s: %w", path, err)
	}
	hdr.Name = name
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("writing tar header for %s: %w", name, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("archiving %s: %w", path, err)
	}
	return nil
}
