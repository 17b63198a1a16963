// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AuthLib Contributors

// Package datastore builds the configured credential store from a registry
// of named constructors.
package datastore

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/samber/oops"

	"github.com/authlib/authlib/internal/auth"
	"github.com/authlib/authlib/internal/config"
)

// Store is a credential store with a lifecycle. Every registered
// constructor returns one.
type Store interface {
	auth.CredentialStore
	Ping(ctx context.Context) error
	Close() error
}

// Constructor builds a Store from configuration.
type Constructor func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Store, error)

// Registry maps datastore type names to constructors. It is safe for
// concurrent use.
type Registry struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{ctors: make(map[string]Constructor)}
}

// NewDefaultRegistry returns a registry with the built-in types registered.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}

// Register adds a constructor under name. Names are unique.
func (r *Registry) Register(name string, ctor Constructor) error {
	if name == "" || ctor == nil {
		return oops.Code("DATASTORE_REGISTER_INVALID").Errorf("datastore name and constructor are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.ctors[name]; exists {
		return oops.Code("DATASTORE_DUPLICATE").With("type", name).Errorf("datastore type %q already registered", name)
	}
	r.ctors[name] = ctor
	return nil
}

// Types lists registered names in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.ctors))
}

// Create builds the store named by cfg.Datastore.Type. An empty type means
// config.DatastoreMemory.
func (r *Registry) Create(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Store, error) {
	if cfg == nil {
		return nil, oops.Code(auth.CodeConfigMissing.String()).Errorf("configuration is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	name := cfg.Datastore.Type
	if name == "" {
		name = config.DatastoreMemory
	}

	r.mu.RLock()
	ctor, ok := r.ctors[name]
	r.mu.RUnlock()
	if !ok {
		return nil, oops.Code(auth.CodeConfigInvalid.String()).
			With("type", name).
			With("known", r.Types()).
			Errorf("unknown datastore type %q", name)
	}

	store, err := ctor(ctx, cfg, logger.With("datastore", name))
	if err != nil {
		return nil, oops.With("type", name).Wrap(err)
	}
	logger.InfoContext(ctx, "datastore ready", "type", name)
	return store, nil
}
