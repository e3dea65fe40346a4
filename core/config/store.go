// File: core/config/store.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package config provides the dataflow execution core's runtime and static
// configuration layers: a dynamic key/value store with reload-hook
// dispatch behind a topology's dynamic configuration, and YAML-backed
// static deployment settings for a scheduler/topology pair (§10.3).
package config

import "github.com/momentics/flowcore/control"

// Store is the dynamic configuration layer a Topology's api.Control
// surface reads and writes (§6's named configuration operations), a thin
// typed wrapper over the teacher's control.ConfigStore adding a single-key
// Get alongside its snapshot/merge/reload-hook contract.
type Store struct {
	*control.ConfigStore
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{ConfigStore: control.NewConfigStore()}
}

// Snapshot returns a copy of every stored value.
func (s *Store) Snapshot() map[string]any { return s.GetSnapshot() }

// Get looks up a single value by key.
func (s *Store) Get(key string) (any, bool) {
	v, ok := s.GetSnapshot()[key]
	return v, ok
}

// Set merges newValues into the store and dispatches reload listeners.
func (s *Store) Set(newValues map[string]any) { s.SetConfig(newValues) }
