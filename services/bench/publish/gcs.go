// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"

	"cloud.google.com/go/storage"
	"github.com/AleutianAI/AleutianBench/services/bench/results"
	"google.golang.org/api/option"
)

// GCSConfig addresses a Cloud Storage bucket.
type GCSConfig struct {
	Bucket string

	// Prefix is prepended to every object name.
	Prefix string

	// CredentialsFile is a service account key. Empty uses application
	// default credentials.
	CredentialsFile string

	// Endpoint overrides the storage API endpoint and disables
	// authentication. Used with emulators.
	Endpoint string
}

// GCSPublisher uploads each set as a result file named
// {prefix}/{system}/{started_at}_{run_id}.csv.
type GCSPublisher struct {
	client *storage.Client
	cfg    GCSConfig
}

// NewGCSPublisher creates a storage client for cfg. Call Close when done.
func NewGCSPublisher(ctx context.Context, cfg GCSConfig) (*GCSPublisher, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("gcs bucket is required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		if _, err := os.Stat(cfg.CredentialsFile); err != nil {
			return nil, fmt.Errorf("service account key not found at path: %s: %w", cfg.CredentialsFile, err)
		}
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}
	return &GCSPublisher{client: client, cfg: cfg}, nil
}

// Name implements Publisher.
func (p *GCSPublisher) Name() string { return "gcs" }

// ObjectName returns the object the set is uploaded to.
func (p *GCSPublisher) ObjectName(set results.Set) string {
	stamp := set.StartedAt.UTC().Format("20060102T150405Z")
	return path.Join(p.cfg.Prefix, set.System, stamp+"_"+set.RunID+".csv")
}

// Publish implements Publisher.
func (p *GCSPublisher) Publish(ctx context.Context, set results.Set) error {
	if len(set.Rows) == 0 {
		return ErrEmptySet
	}
	name := p.ObjectName(set)

	// Cancelling the writer context aborts a partial upload.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := p.client.Bucket(p.cfg.Bucket).Object(name).NewWriter(ctx)
	w.ContentType = "text/csv"
	w.CacheControl = "no-cache, no-store, must-revalidate"
	w.ChunkSize = 0
	w.Metadata = map[string]string{
		"run_id": set.RunID,
		"system": set.System,
	}

	if err := results.WriteAll(w, set.Rows); err != nil {
		cancel()
		_ = w.Close()
		return fmt.Errorf("failed to write gs://%s/%s: %w", p.cfg.Bucket, name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer for %s: %w", name, err)
	}
	return nil
}

// Close releases the storage client.
func (p *GCSPublisher) Close() error {
	return p.client.Close()
}
