// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package state

import (
	"context"
	"sync"

	"github.com/allma-studio/allma-go/internal/client"
	"github.com/allma-studio/allma-go/internal/model"
)

// ModelController tracks available models and the confirmed current one.
// The current model changes only after the backend acknowledges a switch;
// there is no optimistic update.
type ModelController struct {
	client *client.Client

	mu      sync.Mutex
	loaded  bool
	models  []model.ModelInfo
	current string
}

func NewModelController(c *client.Client) *ModelController {
	return &ModelController{client: c}
}

// EnsureLoaded fetches the model list on first use. Subsequent calls are
// no-ops unless Refresh is used.
func (mc *ModelController) EnsureLoaded(ctx context.Context) error {
	mc.mu.Lock()
	loaded := mc.loaded
	mc.mu.Unlock()
	if loaded {
		return nil
	}
	return mc.Refresh(ctx)
}

// Refresh re-fetches the model list from the backend.
func (mc *ModelController) Refresh(ctx context.Context) error {
	resp, err := mc.client.ListModels(ctx)
	if err != nil {
		return err
	}

	models := make([]model.ModelInfo, len(resp.Models))
	for i, m := range resp.Models {
		models[i] = model.ModelInfo{
			Name:         m.Name,
			SizeBytes:    m.SizeBytes,
			LastModified: m.LastModified,
		}
	}

	mc.mu.Lock()
	mc.models = models
	mc.current = resp.CurrentModel
	mc.loaded = true
	mc.mu.Unlock()
	return nil
}

// Models returns the known models.
func (mc *ModelController) Models() []model.ModelInfo {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	out := make([]model.ModelInfo, len(mc.models))
	copy(out, mc.models)
	return out
}

// Current returns the confirmed current model, empty until loaded.
func (mc *ModelController) Current() string {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.current
}

// SwitchModel asks the backend to switch and applies the change locally
// only on success.
func (mc *ModelController) SwitchModel(ctx context.Context, name string) error {
	if err := mc.client.SwitchModel(ctx, name); err != nil {
		return err
	}

	mc.mu.Lock()
	mc.current = name
	mc.mu.Unlock()
	return nil
}
