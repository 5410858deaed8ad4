// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package gcsstore is a GraphStore implementation reading serialized partial
// graphs from a Google Cloud Storage bucket, keyed by an object name the
// caller derives from the dependency id, plus a snapshot sink writing a
// frozen MergedGraph back to the
// same kind of bucket.
package gcsstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/AleutianAI/chamerge/internal/model"
	"github.com/AleutianAI/chamerge/internal/outgraph"
	"github.com/AleutianAI/chamerge/internal/store"
)

// ObjectKeyFunc derives the bucket object name for a dependency id. The
// merger itself has no notion of a dependency's coordinate string — that
// mapping belongs to whatever DependencyStore resolved the id in the first
// place — so the object-key derivation is supplied by the caller at
// construction rather than recomputed here.
type ObjectKeyFunc func(dep store.DependencyId) (string, error)

// Store is a GCS-backed GraphStore.
type Store struct {
	client    *storage.Client
	bucket    string
	objectKey ObjectKeyFunc
}

// NewStore opens a storage client authenticated with the service account key
// at saKeyPath and returns a Store reading partial graphs from bucket.
func NewStore(ctx context.Context, bucket, saKeyPath string, objectKey ObjectKeyFunc) (*Store, error) {
	client, err := storage.NewClient(ctx, option.WithCredentialsFile(saKeyPath))
	if err != nil {
		return nil, fmt.Errorf("gcsstore: create storage client: %w", err)
	}
	return &Store{client: client, bucket: bucket, objectKey: objectKey}, nil
}

// Close releases the underlying storage client.
func (s *Store) Close() error {
	return s.client.Close()
}

// partialGraphDoc is the on-disk JSON shape of one artifact's partial graph.
type partialGraphDoc struct {
	InternalNodes []model.CallableId   `json:"internalNodes"`
	ExternalNodes []model.CallableId   `json:"externalNodes"`
	Edges         [][2]model.CallableId `json:"edges"`
}

// PartialGraph implements store.GraphStore, fetching and decoding the object
// named by s.objectKey(dep).
func (s *Store) PartialGraph(ctx context.Context, dep store.DependencyId) (*model.PartialGraph, error) {
	key, err := s.objectKey(dep)
	if err != nil {
		return nil, fmt.Errorf("gcsstore: derive object key: %w", err)
	}

	reader, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if err == storage.ErrObjectNotExist {
			return nil, model.ErrFocalGraphMissing
		}
		return nil, fmt.Errorf("gcsstore: open %s: %w", key, err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("gcsstore: read %s: %w", key, err)
	}

	var doc partialGraphDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("gcsstore: decode %s: %w", key, err)
	}

	g := model.NewPartialGraph()
	for _, id := range doc.InternalNodes {
		g.AddInternalNode(id)
	}
	for _, id := range doc.ExternalNodes {
		g.AddExternalNode(id)
	}
	for _, e := range doc.Edges {
		g.AddEdge(e[0], e[1])
	}
	return g, nil
}

// snapshotDoc is the merge output wire format from spec.md section 6: nodes
// in ascending order, arcs lexicographically ordered.
type snapshotDoc struct {
	Nodes []model.CallableId    `json:"nodes"`
	Arcs  [][2]model.CallableId `json:"arcs"`
}

// WriteSnapshot uploads a frozen MergedGraph to the bucket under objectKey,
// in the same {nodes, arcs} wire format the CLI writes to local disk.
func (s *Store) WriteSnapshot(ctx context.Context, objectKey string, graph *outgraph.MergedGraph) error {
	doc := snapshotDoc{Nodes: graph.Nodes(), Arcs: graph.Arcs()}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("gcsstore: encode snapshot: %w", err)
	}

	writer := s.client.Bucket(s.bucket).Object(objectKey).NewWriter(ctx)
	writer.ContentType = "application/json"
	writer.CacheControl = "no-cache, no-store, must-revalidate"

	if _, err := writer.Write(raw); err != nil {
		return fmt.Errorf("gcsstore: write snapshot %s: %w", objectKey, err)
	}
	return writer.Close()
}

// ReadSnapshot downloads and decodes a previously written snapshot. The
// diff command does not use it; it reads local snapshot files.
func (s *Store) ReadSnapshot(ctx context.Context, objectKey string) (*snapshotDoc, error) {
	reader, err := s.client.Bucket(s.bucket).Object(objectKey).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcsstore: open snapshot %s: %w", objectKey, err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("gcsstore: read snapshot %s: %w", objectKey, err)
	}

	var doc snapshotDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("gcsstore: decode snapshot %s: %w", objectKey, err)
	}
	return &doc, nil
}
