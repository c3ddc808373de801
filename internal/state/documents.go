// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package state

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/phuslu/log"

	"github.com/allma-studio/allma-go/internal/client"
	"github.com/allma-studio/allma-go/internal/model"
)

// UploadResult is the outcome for one file in a batch.
type UploadResult struct {
	Filename string
	Record   model.DocumentRecord
	Err      error
}

// DocumentController tracks upload status and the indexed document list.
type DocumentController struct {
	client *client.Client
	logger *log.Logger

	mu      sync.Mutex
	records []model.DocumentRecord
}

func NewDocumentController(c *client.Client) *DocumentController {
	return &DocumentController{client: c, logger: &log.DefaultLogger}
}

// Records returns a snapshot of the tracked upload records.
func (dc *DocumentController) Records() []model.DocumentRecord {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	out := make([]model.DocumentRecord, len(dc.records))
	copy(out, dc.records)
	return out
}

// Upload ingests a single named stream and tracks its status.
func (dc *DocumentController) Upload(ctx context.Context, filename string, content io.Reader) UploadResult {
	rec := newUploadingRecord(filename)
	idx := dc.track(rec)

	resp, err := dc.client.UploadDocument(ctx, filename, content)
	if err != nil {
		rec.Failed(err.Error())
		dc.update(idx, rec)
		return UploadResult{Filename: filename, Record: rec, Err: err}
	}

	rec.Indexed(resp.DocumentID, resp.ChunksCreated)
	dc.update(idx, rec)
	return UploadResult{Filename: filename, Record: rec}
}

func newUploadingRecord(name string) model.DocumentRecord {
	return model.DocumentRecord{
		Name:       name,
		Status:     model.DocumentUploading,
		UploadedAt: time.Now(),
	}
}

// UploadFiles ingests the given paths one at a time. A failing file is
// recorded in its own result and does not stop the rest of the batch.
func (dc *DocumentController) UploadFiles(ctx context.Context, paths []string) []UploadResult {
	results := make([]UploadResult, 0, len(paths))
	for _, path := range paths {
		name := filepath.Base(path)

		f, err := os.Open(path)
		if err != nil {
			rec := newUploadingRecord(name)
			rec.Failed(err.Error())
			dc.track(rec)
			results = append(results, UploadResult{Filename: name, Record: rec, Err: err})
			continue
		}

		res := dc.Upload(ctx, name, f)
		f.Close()
		results = append(results, res)

		if ctx.Err() != nil {
			break
		}
	}
	return results
}

// List returns the backend's indexed documents.
func (dc *DocumentController) List(ctx context.Context) ([]model.DocumentRecord, error) {
	docs, err := dc.client.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.DocumentRecord, len(docs))
	for i, d := range docs {
		out[i] = model.DocumentRecord{
			ID:            d.ID,
			Name:          d.Name,
			SizeBytes:     d.SizeBytes,
			ChunksCreated: d.ChunkCount,
			Status:        model.DocumentIndexed,
			UploadedAt:    d.IngestedAt,
		}
	}
	return out, nil
}

// Delete removes a document and drops any local record of it.
func (dc *DocumentController) Delete(ctx context.Context, id string) error {
	if err := dc.client.DeleteDocument(ctx, id); err != nil {
		return err
	}
	dc.mu.Lock()
	defer dc.mu.Unlock()
	kept := dc.records[:0]
	for _, r := range dc.records {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	dc.records = kept
	return nil
}

func (dc *DocumentController) track(rec model.DocumentRecord) int {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	dc.records = append(dc.records, rec)
	return len(dc.records) - 1
}

func (dc *DocumentController) update(idx int, rec model.DocumentRecord) {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	if idx >= 0 && idx < len(dc.records) {
		dc.records[idx] = rec
	}
}
